// Package httperror defines the JSON body of failed responses.
package httperror

import (
	"errors"
	"net/http"

	"github.com/costledger/backend/internal/models"
)

type Error struct {
	Detail string `json:"detail" example:"Error refining costs to transactions: the cost store is unavailable"`
}

func New(e error) Error {
	return Error{
		Detail: e.Error(),
	}
}

func NewFromString(s string) Error {
	return Error{
		Detail: s,
	}
}

// Status returns the appropriate HTTP status for a database error.
func Status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	return http.StatusBadRequest
}
