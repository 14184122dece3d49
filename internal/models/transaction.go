package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a cost record that has been promoted into the canonical
// transaction ledger.
//
// The unique index on Vernr backs the central correctness property of the
// refinement: at most one transaction exists per verification number, even
// when two refinement runs race on the same cost record.
type Transaction struct {
	DefaultModel
	Vernr            string `gorm:"uniqueIndex"`
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
	SupplierName     string
}

func (t Transaction) Self() string {
	return "Transaction"
}

// AfterFind enforces UTC on the date fields, see DefaultModel.AfterFind.
func (t *Transaction) AfterFind(tx *gorm.DB) (err error) {
	err = t.DefaultModel.AfterFind(tx)
	if err != nil {
		return err
	}

	t.PostingDate = t.PostingDate.In(time.UTC)
	t.RegistrationDate = t.RegistrationDate.In(time.UTC)
	return
}

// BeforeSave trims whitespace from string fields and enforces UTC dates.
func (t *Transaction) BeforeSave(_ *gorm.DB) (err error) {
	t.Vernr = strings.TrimSpace(t.Vernr)
	t.AccountName = strings.TrimSpace(t.AccountName)
	t.SupplierName = strings.TrimSpace(t.SupplierName)

	t.PostingDate = t.PostingDate.In(time.UTC)
	t.RegistrationDate = t.RegistrationDate.In(time.UTC)
	return
}

// DistinctTransactionInfos returns every distinct non-empty transaction info
// text in the transaction store. Each text appears once, regardless of how
// many transactions share it.
func DistinctTransactionInfos(db *gorm.DB) ([]string, error) {
	var texts []string

	err := db.Model(&Transaction{}).
		Distinct("transaction_info").
		Where("transaction_info <> ''").
		Order("transaction_info ASC").
		Pluck("transaction_info", &texts).Error
	if err != nil {
		return nil, err
	}

	return texts, nil
}

// SetSupplierName sets the supplier name on every transaction whose
// transaction info matches the text, in a single predicate-matched update.
// It returns the number of transactions updated.
func SetSupplierName(db *gorm.DB, text, supplierName string) (int64, error) {
	res := db.Model(&Transaction{}).
		Where("transaction_info = ?", text).
		Update("supplier_name", supplierName)
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}
