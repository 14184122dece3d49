package router_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/costledger/backend/internal/models"
	"github.com/costledger/backend/internal/router"
	"github.com/costledger/backend/test"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMode(t *testing.T) {
	os.Setenv("GIN_MODE", "debug")
	gin.SetMode("debug")

	_, err := router.Router()
	assert.Nil(t, err, "Error on router initialization")
	assert.True(t, gin.IsDebugging())

	os.Unsetenv("GIN_MODE")
}

func TestPprofOn(t *testing.T) {
	os.Setenv("ENABLE_PPROF", "true")

	r, err := router.Router()
	assert.Nil(t, err, "Error on router initialization")

	var routes []string
	for _, route := range r.Routes() {
		routes = append(routes, route.Path)
	}
	assert.Contains(t, routes, "/debug/pprof/")

	os.Unsetenv("ENABLE_PPROF")
}

func TestPprofOff(t *testing.T) {
	r, err := router.Router()
	assert.Nil(t, err, "Error on router initialization")

	for _, route := range r.Routes() {
		assert.NotContains(t, route.Path, "pprof", "pprof routes are registered erroneously! Route: %s", route)
	}
}

// TestCorsSetting checks that setting of CORS works.
// It does not check the actual headers as this is already done in testing of the module.
func TestCorsSetting(t *testing.T) {
	os.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:3000 https://example.com")

	_, err := router.Router()
	assert.Nil(t, err)

	os.Unsetenv("CORS_ALLOW_ORIGINS")
}

func TestGetRoot(t *testing.T) {
	require.Nil(t, models.Connect(test.TmpFile(t)))

	recorder := test.Request(t, http.MethodGet, "http://example.com/", nil)
	test.AssertHTTPStatus(t, http.StatusOK, &recorder)

	var response router.RootResponse
	test.DecodeResponse(t, &recorder, &response)

	assert.Equal(t, "http://example.com/costs", response.Links.Costs)
	assert.Equal(t, "http://example.com/transactions", response.Links.Transactions)
	assert.Equal(t, "http://example.com/supplier-rules", response.Links.SupplierRules)
	assert.Equal(t, "http://example.com/docs/index.html", response.Links.Docs)
}

func TestGetRootForwarded(t *testing.T) {
	require.Nil(t, models.Connect(test.TmpFile(t)))

	recorder := test.Request(t, http.MethodGet, "http://example.com/", nil, map[string]string{
		"x-forwarded-proto": "https",
		"x-forwarded-host":  "ledger.example.com",
	})
	test.AssertHTTPStatus(t, http.StatusOK, &recorder)

	var response router.RootResponse
	test.DecodeResponse(t, &recorder, &response)

	assert.Equal(t, "https://ledger.example.com/api/costs", response.Links.Costs)
}

func TestGetVersion(t *testing.T) {
	require.Nil(t, models.Connect(test.TmpFile(t)))

	recorder := test.Request(t, http.MethodGet, "/version", nil)
	test.AssertHTTPStatus(t, http.StatusOK, &recorder)

	var response router.VersionResponse
	test.DecodeResponse(t, &recorder, &response)
	assert.Equal(t, "0.0.0", response.Data.Version)
}

func TestOptionsRoot(t *testing.T) {
	require.Nil(t, models.Connect(test.TmpFile(t)))

	recorder := test.Request(t, http.MethodOptions, "/", nil)
	test.AssertHTTPStatus(t, http.StatusNoContent, &recorder)
	assert.Equal(t, "OPTIONS, GET", recorder.Header().Get("allow"))
}

func TestMethodNotAllowed(t *testing.T) {
	require.Nil(t, models.Connect(test.TmpFile(t)))

	recorder := test.Request(t, http.MethodDelete, "/version", nil)
	test.AssertHTTPStatus(t, http.StatusMethodNotAllowed, &recorder)
}

func TestMetricsEndpoint(t *testing.T) {
	require.Nil(t, models.Connect(test.TmpFile(t)))

	// A request so that there is something to report
	recorder := test.Request(t, http.MethodGet, "/healthz", nil)
	test.AssertHTTPStatus(t, http.StatusNoContent, &recorder)

	recorder = test.Request(t, http.MethodGet, "/metrics", nil)
	test.AssertHTTPStatus(t, http.StatusOK, &recorder)
	assert.Contains(t, recorder.Body.String(), "requests_total")
}

func TestMetricsMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)

	r.Use(router.MetricsMiddleware())
	r.GET("/rules/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// URL parameters are replaced by their name in the metric labels, so
	// this only has to not panic here. The cardinality is checked by eye
	// on the /metrics output.
	req, _ := http.NewRequest(http.MethodGet, "/rules/b7fb4e80-49a3-4789-a369-dd6d6b827b4a", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
