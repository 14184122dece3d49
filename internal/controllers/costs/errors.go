package costs

import (
	"errors"
)

var (
	errNoFilePost      = errors.New("you must send a file to this endpoint")
	errWrongFileSuffix = errors.New("this endpoint only supports files of the following types")
	errNoRecords       = errors.New("no valid cost records found in the CSV")
)
