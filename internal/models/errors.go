package models

import (
	"errors"
)

var (
	// ErrGeneral is set by the callbacks when the database reports an error we
	// cannot translate into something actionable for the caller, for example a
	// closed connection or an SQLite driver error. Details are logged server side.
	ErrGeneral = errors.New("an error occurred on the server during your request")

	// ErrResourceNotFound is wrapped by the query callback together with the
	// resource name, e.g. "there is no cost matching your query".
	ErrResourceNotFound = errors.New("there is no")
)
