package costs

import (
	"time"

	"github.com/costledger/backend/internal/enricher"
	"github.com/costledger/backend/internal/importer"
	"github.com/costledger/backend/internal/importer/parser/ledgercsv"
	"github.com/costledger/backend/internal/models"
	"github.com/costledger/backend/internal/refiner"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cost is the API representation of a cost record.
type Cost struct {
	ID               uuid.UUID       `json:"id" example:"d430d7c3-d14c-4712-9336-ee56965a6673"`
	Vernr            string          `json:"vernr" example:"A1023"`
	AccountNumber    int             `json:"account_number" example:"4010"`
	PostingDate      time.Time       `json:"posting_date" example:"2024-03-01T00:00:00Z"`
	RegistrationDate time.Time       `json:"registration_date" example:"2024-03-02T00:00:00Z"`
	AccountName      string          `json:"account_name" example:"Material costs"`
	Ks               *string         `json:"ks"`
	ProjectNumber    *string         `json:"project_number"`
	VerificationText *string         `json:"verification_text"`
	TransactionInfo  *string         `json:"transaction_info"`
	Debit            decimal.Decimal `json:"debit" example:"1250.50"`
	Credit           decimal.Decimal `json:"credit" example:"0"`
}

// newCost returns the API representation of the resource.
func newCost(model models.Cost) Cost {
	return Cost{
		ID:               model.ID,
		Vernr:            model.Vernr,
		AccountNumber:    model.AccountNumber,
		PostingDate:      model.PostingDate,
		RegistrationDate: model.RegistrationDate,
		AccountName:      model.AccountName,
		Ks:               optional(model.Ks),
		ProjectNumber:    optional(model.ProjectNumber),
		VerificationText: optional(model.VerificationText),
		TransactionInfo:  optional(model.TransactionInfo),
		Debit:            model.Debit,
		Credit:           model.Credit,
	}
}

// optional maps empty strings to JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type ListQuery struct {
	Limit  int `form:"limit"`  // Maximum number of cost records to return, defaults to 100
	Offset int `form:"offset"` // Offset of the first cost record returned, defaults to 0
}

type CostListResponse struct {
	Items []Cost `json:"items"` // List of cost records
	Total int64  `json:"total"` // Total number of cost records in the store
}

type UploadResponse struct {
	Message string `json:"message" example:"Imported 697 of 700 cost records"`
	importer.Result
	ParseErrors []ledgercsv.RowError `json:"parse_errors,omitempty"` // Rows that were skipped during parsing
}

type RefineResponse struct {
	Message string `json:"message" example:"Refined costs to transactions"`
	refiner.Result
}

type EnrichResponse struct {
	Message string `json:"message" example:"Added supplier names to transactions"`
	enricher.Result
}
