package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cost is one ledger line as imported from a cost log export.
//
// The Vernr is the verification number of the ledger line. It is the natural
// identity of the record, but uniqueness is only enforced by the duplicate
// strategy of an upload, not by the store: with the "keep" strategy multiple
// documents can share a Vernr.
type Cost struct {
	DefaultModel
	Vernr            string `gorm:"index"`
	AccountNumber    int
	PostingDate      time.Time
	RegistrationDate time.Time
	AccountName      string
	Ks               string // Cost center
	ProjectNumber    string
	VerificationText string
	TransactionInfo  string
	Debit            decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Credit           decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
}

func (c Cost) Self() string {
	return "Cost"
}

// AfterFind enforces UTC on the date fields, see DefaultModel.AfterFind.
func (c *Cost) AfterFind(tx *gorm.DB) (err error) {
	err = c.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	c.PostingDate = c.PostingDate.In(time.UTC)
	c.RegistrationDate = c.RegistrationDate.In(time.UTC)
	return
}

// BeforeSave trims whitespace from string fields and enforces UTC dates.
func (c *Cost) BeforeSave(_ *gorm.DB) (err error) {
	c.Vernr = strings.TrimSpace(c.Vernr)
	c.AccountName = strings.TrimSpace(c.AccountName)
	c.Ks = strings.TrimSpace(c.Ks)
	c.ProjectNumber = strings.TrimSpace(c.ProjectNumber)
	c.VerificationText = strings.TrimSpace(c.VerificationText)
	c.TransactionInfo = strings.TrimSpace(c.TransactionInfo)

	c.PostingDate = c.PostingDate.In(time.UTC)
	c.RegistrationDate = c.RegistrationDate.In(time.UTC)
	return
}

// Transaction returns the transaction this cost record is promoted to.
// The supplier name is always unset, it is only ever filled in by the
// supplier enrichment.
func (c Cost) Transaction() Transaction {
	return Transaction{
		Vernr:            c.Vernr,
		AccountNumber:    c.AccountNumber,
		PostingDate:      c.PostingDate,
		RegistrationDate: c.RegistrationDate,
		AccountName:      c.AccountName,
		Ks:               c.Ks,
		ProjectNumber:    c.ProjectNumber,
		VerificationText: c.VerificationText,
		TransactionInfo:  c.TransactionInfo,
		Debit:            c.Debit,
		Credit:           c.Credit,
	}
}
