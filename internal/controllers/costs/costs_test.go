package costs_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/costledger/backend/internal/controllers/costs"
	"github.com/costledger/backend/internal/enricher"
	"github.com/costledger/backend/internal/httperror"
	"github.com/costledger/backend/internal/models"
	"github.com/costledger/backend/test"
)

const csvHeader = "Vernr,Konto,Bokföringsdatum,Registreringsdatum,Benämning,Ks,Projnr,Verifikationstext,Transaktionsinfo,Debet,Kredit\n"

// stubClassifier returns a fixed mapping for the enrichment endpoint.
type stubClassifier struct {
	mapping map[string]string
	err     error
}

func (s *stubClassifier) Classify(_ context.Context, _ []string) (map[string]string, error) {
	return s.mapping, s.err
}

// upload sends a CSV upload and returns the response.
func (suite *TestSuiteStandard) upload(content string, fields ...map[string]string) costs.UploadResponse {
	body, headers := test.CSVUpload(suite.T(), "costs.csv", content, fields...)
	recorder := test.Request(suite.T(), http.MethodPost, "/costs/upload", body, headers)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var response costs.UploadResponse
	test.DecodeResponse(suite.T(), &recorder, &response)
	return response
}

func (suite *TestSuiteStandard) TestOptions() {
	tests := []struct {
		path  string
		allow string
	}{
		{"/costs", "OPTIONS, GET"},
		{"/costs/upload", "OPTIONS, POST"},
		{"/costs/refine-costs-to-transactions", "OPTIONS, POST"},
		{"/costs/refine-transactions-add-supplier", "OPTIONS, POST"},
	}

	for _, tt := range tests {
		recorder := test.Request(suite.T(), http.MethodOptions, tt.path, nil)
		test.AssertHTTPStatus(suite.T(), http.StatusNoContent, &recorder)
		suite.Assert().Equal(tt.allow, recorder.Header().Get("allow"))
	}
}

func (suite *TestSuiteStandard) TestGetCostsEmpty() {
	recorder := test.Request(suite.T(), http.MethodGet, "/costs", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var response costs.CostListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Empty(response.Items)
	suite.Assert().Equal(int64(0), response.Total)
}

func (suite *TestSuiteStandard) TestUpload() {
	response := suite.upload(csvHeader +
		"A1001,4010,2024-03-01,2024-03-02,Material costs,100,P1,Invoice 1234,ICA SUPERMARKET 0734,\"1250,50\",0\n" +
		"A1002,5010,2024-03-03,,Rent,,,Rent March,HYRA AB,\"10000,00\",0\n")

	suite.Assert().Equal("Imported 2 of 2 cost records", response.Message)
	suite.Assert().Equal(2, response.Inserted)
	suite.Assert().Empty(response.ParseErrors)

	recorder := test.Request(suite.T(), http.MethodGet, "/costs", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var list costs.CostListResponse
	test.DecodeResponse(suite.T(), &recorder, &list)

	suite.Require().Equal(int64(2), list.Total)
	suite.Require().Len(list.Items, 2)

	// Sorted by posting date, newest first
	suite.Assert().Equal("A1002", list.Items[0].Vernr)
	suite.Assert().Equal("A1001", list.Items[1].Vernr)
	suite.Assert().Equal("1250.5", list.Items[1].Debit.String())
	suite.Require().NotNil(list.Items[1].TransactionInfo)
	suite.Assert().Equal("ICA SUPERMARKET 0734", *list.Items[1].TransactionInfo)
}

func (suite *TestSuiteStandard) TestUploadParseErrors() {
	response := suite.upload(csvHeader +
		"A1001,4010,2024-03-01,2024-03-01,Material,,,Text,Info,100,0\n" +
		",4010,2024-03-01,2024-03-01,Material,,,Text,Info,100,0\n")

	suite.Assert().Equal("Imported 1 of 2 cost records", response.Message)
	suite.Assert().Equal(1, response.Inserted)

	// The bad row is reported with its line number
	suite.Require().Len(response.ParseErrors, 1)
	suite.Assert().Equal(3, response.ParseErrors[0].Line)
	suite.Assert().Contains(response.ParseErrors[0].Err, "Vernr field is empty")
}

func (suite *TestSuiteStandard) TestUploadDuplicateStrategies() {
	row := func(accountName string) string {
		return fmt.Sprintf("A1001,4010,2024-03-01,2024-03-01,%s,,,Text,Info,100,0\n", accountName)
	}

	suite.upload(csvHeader + row("Original"))

	// skip leaves the existing document alone
	response := suite.upload(csvHeader+row("Skipped"), map[string]string{"duplicate_strategy": "skip"})
	suite.Assert().Equal(1, response.Skipped)
	suite.Assert().Equal(0, response.Inserted)

	// replace overwrites it in place
	response = suite.upload(csvHeader+row("Replaced"), map[string]string{"duplicate_strategy": "replace"})
	suite.Assert().Equal(1, response.Replaced)

	var cost models.Cost
	suite.Require().Nil(models.DB.Where(&models.Cost{Vernr: "A1001"}).First(&cost).Error)
	suite.Assert().Equal("Replaced", cost.AccountName)

	// keep inserts a second document with the same Vernr
	response = suite.upload(csvHeader+row("Kept"), map[string]string{"duplicate_strategy": "keep"})
	suite.Assert().Equal(1, response.Inserted)

	var total int64
	suite.Require().Nil(models.DB.Model(&models.Cost{}).Count(&total).Error)
	suite.Assert().Equal(int64(2), total)
}

func (suite *TestSuiteStandard) TestUploadErrors() {
	tests := []struct {
		name   string
		body   func() (any, map[string]string)
		detail string
	}{
		{
			"no file",
			func() (any, map[string]string) {
				return "", map[string]string{"Content-Type": "multipart/form-data; boundary=x"}
			},
			"you must send a file",
		},
		{
			"wrong suffix",
			func() (any, map[string]string) {
				body, headers := test.CSVUpload(suite.T(), "costs.xlsx", csvHeader)
				return body, headers
			},
			"this endpoint only supports files of the following types",
		},
		{
			"unknown strategy",
			func() (any, map[string]string) {
				body, headers := test.CSVUpload(suite.T(), "costs.csv", csvHeader, map[string]string{"duplicate_strategy": "overwrite"})
				return body, headers
			},
			"unknown duplicate strategy",
		},
		{
			"empty file",
			func() (any, map[string]string) {
				body, headers := test.CSVUpload(suite.T(), "costs.csv", "")
				return body, headers
			},
			"the uploaded file is empty",
		},
		{
			"no valid records",
			func() (any, map[string]string) {
				body, headers := test.CSVUpload(suite.T(), "costs.csv", csvHeader+",4010,2024-03-01,2024-03-01,Material,,,Text,Info,100,0\n")
				return body, headers
			},
			"no valid cost records found",
		},
	}

	for _, tt := range tests {
		body, headers := tt.body()
		recorder := test.Request(suite.T(), http.MethodPost, "/costs/upload", body, headers)
		test.AssertHTTPStatus(suite.T(), http.StatusBadRequest, &recorder)

		var response httperror.Error
		test.DecodeResponse(suite.T(), &recorder, &response)
		suite.Assert().Contains(response.Detail, tt.detail, "wrong error for %s", tt.name)
	}
}

func (suite *TestSuiteStandard) TestRefine() {
	suite.upload(csvHeader +
		"A1001,4010,2024-03-01,2024-03-01,Material,,,Text,ICA SUPERMARKET 0734,100,0\n" +
		"A1002,1910,2024-03-01,2024-03-01,Bank,,,Text,Info,0,100\n")

	recorder := test.Request(suite.T(), http.MethodPost, "/costs/refine-costs-to-transactions", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var response costs.RefineResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	// Only the expense account qualifies
	suite.Assert().Equal("Refined 1 costs to transactions", response.Message)
	suite.Assert().Equal(1, response.Processed)
	suite.Assert().Equal(1, response.Created)

	// A second run is a no-op
	recorder = test.Request(suite.T(), http.MethodPost, "/costs/refine-costs-to-transactions", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Equal(0, response.Created)
	suite.Assert().Equal(1, response.Skipped)
}

func (suite *TestSuiteStandard) TestRefineClosedDB() {
	suite.CloseDB()

	recorder := test.Request(suite.T(), http.MethodPost, "/costs/refine-costs-to-transactions", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusInternalServerError, &recorder)

	var response httperror.Error
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Contains(response.Detail, "Error refining costs to transactions")
}

func (suite *TestSuiteStandard) TestEnrich() {
	restore := costs.SetClassifierFactory(func() enricher.Classifier {
		return &stubClassifier{mapping: map[string]string{
			"ICA SUPERMARKET 0734": "ICA",
		}}
	})
	defer restore()

	suite.upload(csvHeader +
		"A1001,4010,2024-03-01,2024-03-01,Material,,,Text,ICA SUPERMARKET 0734,100,0\n" +
		"A1002,4020,2024-03-02,2024-03-02,Material,,,Text,ICA SUPERMARKET 0734,200,0\n")

	recorder := test.Request(suite.T(), http.MethodPost, "/costs/refine-costs-to-transactions", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	recorder = test.Request(suite.T(), http.MethodPost, "/costs/refine-transactions-add-supplier", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var response costs.EnrichResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Equal("Added supplier names to 2 transactions", response.Message)
	suite.Assert().Equal(1, response.UniqueTexts)
	suite.Assert().Equal(int64(2), response.Updated)
	suite.Assert().Equal(map[string]string{"ICA SUPERMARKET 0734": "ICA"}, response.Mappings)

	var transaction models.Transaction
	suite.Require().Nil(models.DB.Where(&models.Transaction{Vernr: "A1001"}).First(&transaction).Error)
	suite.Assert().Equal("ICA", transaction.SupplierName)
}

func (suite *TestSuiteStandard) TestEnrichClassifierError() {
	restore := costs.SetClassifierFactory(func() enricher.Classifier {
		return &stubClassifier{err: errors.New("the service is on fire")}
	})
	defer restore()

	suite.upload(csvHeader + "A1001,4010,2024-03-01,2024-03-01,Material,,,Text,ICA SUPERMARKET 0734,100,0\n")

	recorder := test.Request(suite.T(), http.MethodPost, "/costs/refine-costs-to-transactions", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	recorder = test.Request(suite.T(), http.MethodPost, "/costs/refine-transactions-add-supplier", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusInternalServerError, &recorder)

	var response httperror.Error
	test.DecodeResponse(suite.T(), &recorder, &response)
	suite.Assert().Contains(response.Detail, "Error adding supplier names to transactions")
}

func (suite *TestSuiteStandard) TestEnrichEmptyLedger() {
	// Without transactions the external classifier is never needed, so
	// the endpoint works without a configured credential
	recorder := test.Request(suite.T(), http.MethodPost, "/costs/refine-transactions-add-supplier", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var response costs.EnrichResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Equal(0, response.UniqueTexts)
	suite.Assert().Equal(int64(0), response.Updated)
}

func (suite *TestSuiteStandard) TestGetCostsPagination() {
	var rows strings.Builder
	rows.WriteString(csvHeader)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&rows, "A%d,4010,2024-03-0%d,2024-03-0%d,Material,,,Text,Info,100,0\n", i, i, i)
	}
	suite.upload(rows.String())

	recorder := test.Request(suite.T(), http.MethodGet, "/costs?limit=2&offset=2", nil)
	test.AssertHTTPStatus(suite.T(), http.StatusOK, &recorder)

	var response costs.CostListResponse
	test.DecodeResponse(suite.T(), &recorder, &response)

	suite.Assert().Equal(int64(5), response.Total)
	suite.Require().Len(response.Items, 2)
	suite.Assert().Equal("A3", response.Items[0].Vernr)
	suite.Assert().Equal("A2", response.Items[1].Vernr)
}
