// Package transactions implements the read endpoints for the transaction
// ledger used by the presentation layer.
package transactions

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/costledger/backend/internal/httperror"
	"github.com/costledger/backend/internal/httputil"
	"github.com/costledger/backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is the API representation of a transaction.
type Transaction struct {
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
	SupplierName     *string         `json:"supplier_name"`
}

// newTransaction returns the API representation of the resource.
func newTransaction(model models.Transaction) Transaction {
	return Transaction{
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
		SupplierName:     optional(model.SupplierName),
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
	SortBy string `form:"sort_by"` // Field to sort by, defaults to posting_date
	Order  string `form:"order"`   // Sort order, "asc" or "desc". Defaults to desc
	Limit  int    `form:"limit"`   // Maximum number of transactions to return, defaults to 20
	Offset int    `form:"offset"`  // Offset of the first transaction returned, defaults to 0
}

type ListResponse struct {
	Items []Transaction `json:"items"` // List of transactions
	Total int64         `json:"total"` // Total number of transactions in the ledger
}

// sortFields whitelists the sortable columns so that the order clause is
// never built from raw user input.
var sortFields = map[string]string{
	"vernr":             "vernr",
	"posting_date":      "posting_date",
	"account_number":    "account_number",
	"account_name":      "account_name",
	"verification_text": "verification_text",
	"debit":             "debit",
	"credit":            "credit",
	"supplier_name":     "supplier_name",
}

// RegisterRoutes registers the routes for transactions with the RouterGroup
// that is passed.
func RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", Options)
	r.GET("", List)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Transactions
// @Success		204
// @Router			/transactions [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		List transactions
// @Description	Returns a paginated list of transactions
// @Tags			Transactions
// @Produce		json
// @Success		200	{object}	ListResponse
// @Failure		400	{object}	httperror.Error
// @Failure		500	{object}	httperror.Error
// @Param			sort_by	query	string	false	"Field to sort by. Defaults to posting_date."
// @Param			order	query	string	false	"Sort order, asc or desc. Defaults to desc."
// @Param			limit	query	int		false	"Maximum number of transactions to return. Defaults to 20."
// @Param			offset	query	int		false	"The offset of the first transaction returned. Defaults to 0."
// @Router			/transactions [get]
func List(c *gin.Context) {
	var query ListQuery
	if err := c.Bind(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(err))
		return
	}

	column, ok := sortFields[query.SortBy]
	if !ok {
		column = "posting_date"
	}

	order := "DESC"
	if strings.EqualFold(query.Order, "asc") {
		order = "ASC"
	}

	limit := 20
	if query.Limit > 0 {
		limit = query.Limit
	}

	var total int64
	err := models.DB.Model(&models.Transaction{}).Count(&total).Error
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	var records []models.Transaction
	err = models.DB.
		Order(fmt.Sprintf("%s %s", column, order)).
		Offset(query.Offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	items := make([]Transaction, 0, len(records))
	for _, record := range records {
		items = append(items, newTransaction(record))
	}

	c.JSON(http.StatusOK, ListResponse{Items: items, Total: total})
}
