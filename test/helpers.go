// Package test contains helpers to make HTTP requests against a fully
// configured router in tests.
package test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/costledger/backend/internal/router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TmpFile returns the path to a unique file to be used in tests
func TmpFile(t *testing.T) string {
	dir := t.TempDir()
	return filepath.Join(dir, uuid.New().String())
}

// Request is a helper method to simplify making a HTTP request for tests.
//
// The body can be a string, a *bytes.Buffer (e.g. for file uploads) or
// any struct or map, which is marshalled to JSON.
func Request(t *testing.T, method, url string, body any, headers ...map[string]string) httptest.ResponseRecorder {
	var byteBuffer *bytes.Buffer

	switch b := body.(type) {
	case string:
		byteBuffer = bytes.NewBufferString(b)
	case *bytes.Buffer:
		byteBuffer = b
	case nil:
		byteBuffer = new(bytes.Buffer)
	default:
		byteStr, err := json.Marshal(body)
		if err != nil {
			assert.FailNow(t, "Request body could not be marshalled from struct input", err)
		}
		byteBuffer = bytes.NewBuffer(byteStr)
	}

	r, err := router.Router()
	if err != nil {
		assert.FailNow(t, "Router could not be initialized")
	}

	recorder := httptest.NewRecorder()
	req, _ := http.NewRequest(method, url, byteBuffer)

	for _, headerMap := range headers {
		for header, value := range headerMap {
			req.Header.Set(header, value)
		}
	}

	r.ServeHTTP(recorder, req)

	return *recorder
}

// CSVUpload builds a multipart request body containing the passed CSV
// content as uploaded file, plus any additional form fields.
//
// The body is returned as a buffer and a map for the HTTP request headers.
func CSVUpload(t *testing.T, fileName, content string, fields ...map[string]string) (*bytes.Buffer, map[string]string) {
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)

	w, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		assert.FailNow(t, err.Error())
	}

	if _, err := w.Write([]byte(content)); err != nil {
		assert.FailNow(t, err.Error())
	}

	for _, fieldMap := range fields {
		for field, value := range fieldMap {
			if err := mw.WriteField(field, value); err != nil {
				assert.FailNow(t, err.Error())
			}
		}
	}

	if err := mw.Close(); err != nil {
		assert.FailNow(t, err.Error())
	}

	headers := map[string]string{
		"Content-Type": mw.FormDataContentType(),
	}

	return body, headers
}

func AssertHTTPStatus(t *testing.T, expected int, r *httptest.ResponseRecorder) {
	assert.Equal(t, expected, r.Code, "HTTP status is wrong. Response body: %s", r.Body.String())
}

// DecodeResponse decodes an HTTP response into a target struct.
func DecodeResponse(t *testing.T, r *httptest.ResponseRecorder, target interface{}) {
	err := json.NewDecoder(r.Body).Decode(target)
	if err != nil {
		assert.FailNow(t, "Parsing error", "Unable to parse response from server %q into %v, '%v'", r.Body, reflect.TypeOf(target), err)
	}
}
