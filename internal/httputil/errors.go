package httputil

import "errors"

// ErrInvalidUUID is returned when a path parameter is not a valid UUID.
var ErrInvalidUUID = errors.New("the specified resource ID is not a valid UUID")
