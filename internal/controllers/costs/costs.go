// Package costs implements the cost pipeline endpoints: CSV upload into the
// cost store, refinement into the transaction ledger, and supplier
// enrichment. Each POST endpoint triggers one synchronous, re-runnable
// batch job.
package costs

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/costledger/backend/internal/enricher"
	"github.com/costledger/backend/internal/httperror"
	"github.com/costledger/backend/internal/httputil"
	"github.com/costledger/backend/internal/importer"
	"github.com/costledger/backend/internal/importer/parser/ledgercsv"
	"github.com/costledger/backend/internal/models"
	"github.com/costledger/backend/internal/refiner"
	"github.com/gin-gonic/gin"
)

// newClassifier returns the classifier used by the enrichment endpoint.
// Tests substitute a deterministic stub here.
var newClassifier = func() enricher.Classifier { return enricher.NewGeminiClassifier() }

// RegisterRoutes registers the routes for costs with the RouterGroup
// that is passed.
func RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", OptionsCosts)
	r.GET("", GetCosts)

	r.OPTIONS("/upload", OptionsUpload)
	r.POST("/upload", Upload)

	r.OPTIONS("/refine-costs-to-transactions", OptionsRefine)
	r.POST("/refine-costs-to-transactions", Refine)

	r.OPTIONS("/refine-transactions-add-supplier", OptionsEnrich)
	r.POST("/refine-transactions-add-supplier", Enrich)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Costs
// @Success		204
// @Router			/costs [options]
func OptionsCosts(c *gin.Context) {
	httputil.OptionsGet(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Costs
// @Success		204
// @Router			/costs/upload [options]
func OptionsUpload(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Costs
// @Success		204
// @Router			/costs/refine-costs-to-transactions [options]
func OptionsRefine(c *gin.Context) {
	httputil.OptionsPost(c)
}

// @Summary		Allowed HTTP verbs
// @Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
// @Tags			Costs
// @Success		204
// @Router			/costs/refine-transactions-add-supplier [options]
func OptionsEnrich(c *gin.Context) {
	httputil.OptionsPost(c)
}

// getUploadedFile returns the form file and handles potential errors.
func getUploadedFile(c *gin.Context, suffix string) (multipart.File, error) {
	formFile, err := c.FormFile("file")
	if formFile == nil {
		return nil, errNoFilePost
	}

	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(formFile.Filename, suffix) {
		return nil, fmt.Errorf("%w: %s", errWrongFileSuffix, suffix)
	}

	f, err := formFile.Open()
	if err != nil {
		return nil, err
	}

	return f, nil
}

// @Summary		List costs
// @Description	Returns a list of cost records
// @Tags			Costs
// @Produce		json
// @Success		200	{object}	CostListResponse
// @Failure		400	{object}	httperror.Error
// @Failure		500	{object}	httperror.Error
// @Param			limit	query	int	false	"Maximum number of cost records to return. Defaults to 100."
// @Param			offset	query	int	false	"The offset of the first cost record returned. Defaults to 0."
// @Router			/costs [get]
func GetCosts(c *gin.Context) {
	var query ListQuery
	if err := c.Bind(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(err))
		return
	}

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}

	var total int64
	err := models.DB.Model(&models.Cost{}).Count(&total).Error
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	var records []models.Cost
	err = models.DB.
		Order("datetime(costs.posting_date) DESC, costs.vernr DESC").
		Offset(query.Offset).
		Limit(limit).
		Find(&records).Error
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(err))
		return
	}

	items := make([]Cost, 0, len(records))
	for _, record := range records {
		items = append(items, newCost(record))
	}

	c.JSON(http.StatusOK, CostListResponse{Items: items, Total: total})
}

// @Summary		Upload a cost log CSV
// @Description	Parses a cost log CSV export and persists the rows into the cost store. The duplicate_strategy form field decides what happens to rows whose verification number already exists: "keep" (default) inserts them as new documents, "skip" discards them, "replace" overwrites the existing document in place. Unparsable rows are skipped and reported, they never abort the upload.
// @Tags			Costs
// @Accept			multipart/form-data
// @Produce		json
// @Success		200					{object}	UploadResponse
// @Failure		400					{object}	httperror.Error
// @Failure		500					{object}	httperror.Error
// @Param			file				formData	file	true	"CSV file to import"
// @Param			duplicate_strategy	formData	string	false	"One of keep, skip, replace. Defaults to keep."
// @Router			/costs/upload [post]
func Upload(c *gin.Context) {
	strategy, err := importer.ParseStrategy(c.PostForm("duplicate_strategy"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(err))
		return
	}

	f, err := getUploadedFile(c, ".csv")
	if err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(err))
		return
	}
	defer f.Close()

	parsed, rowErrors, err := ledgercsv.Parse(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, httperror.New(fmt.Errorf("Error processing upload: %v", err)))
		return
	}

	if len(parsed) == 0 {
		c.JSON(http.StatusBadRequest, httperror.New(fmt.Errorf("%v: %s", errNoRecords, summarize(rowErrors))))
		return
	}

	result, err := importer.Import(models.DB, parsed, strategy)
	if err != nil {
		c.JSON(httperror.Status(err), httperror.New(fmt.Errorf("Error processing upload: %v", err)))
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Message:     fmt.Sprintf("Imported %d of %d cost records", result.Inserted+result.Replaced, len(parsed)+len(rowErrors)),
		Result:      result,
		ParseErrors: rowErrors,
	})
}

// summarize returns the first few row errors as a single string.
func summarize(rowErrors []ledgercsv.RowError) string {
	details := make([]string, 0, 5)
	for i, rowError := range rowErrors {
		if i >= 5 {
			break
		}
		details = append(details, rowError.String())
	}

	if len(details) == 0 {
		return "the file contains no data rows"
	}

	return strings.Join(details, "; ")
}

// @Summary		Refine costs to transactions
// @Description	Promotes all cost records whose account number has a leading digit of 4 or greater into the transaction ledger. Verification numbers that already have a transaction are skipped, so the operation is idempotent and safe to re-run at any time.
// @Tags			Costs
// @Produce		json
// @Success		200	{object}	RefineResponse
// @Failure		500	{object}	httperror.Error
// @Router			/costs/refine-costs-to-transactions [post]
func Refine(c *gin.Context) {
	result, err := refiner.Refine(models.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperror.NewFromString(fmt.Sprintf("Error refining costs to transactions: %v", err)))
		return
	}

	c.JSON(http.StatusOK, RefineResponse{
		Message: fmt.Sprintf("Refined %d costs to transactions", result.Created),
		Result:  result,
	})
}

// @Summary		Add supplier names to transactions
// @Description	Collects the distinct transaction info texts from the transaction ledger, classifies them with the configured supplier rules and one batched call to the external classifier, and bulk-applies the resulting supplier names. Requires GEMINI_API_KEY when any text needs the external classifier.
// @Tags			Costs
// @Produce		json
// @Success		200	{object}	EnrichResponse
// @Failure		500	{object}	httperror.Error
// @Router			/costs/refine-transactions-add-supplier [post]
func Enrich(c *gin.Context) {
	result, err := enricher.New(newClassifier()).Enrich(c.Request.Context(), models.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httperror.NewFromString(fmt.Sprintf("Error adding supplier names to transactions: %v", err)))
		return
	}

	c.JSON(http.StatusOK, EnrichResponse{
		Message: fmt.Sprintf("Added supplier names to %d transactions", result.Updated),
		Result:  result,
	})
}
