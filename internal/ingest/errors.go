package ingest

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnsupportedFormat Kind = "unsupported-format"
	KindEmptyPayload      Kind = "empty-payload"
	KindEngineFailure     Kind = "engine-failure"
)

// ExtractionError reports why one uploaded document could not be processed.
// All kinds stem from caller input and map to a client error.
type ExtractionError struct {
	Kind     Kind
	Filename string
	Err      error
	msg      string
}

func (e *ExtractionError) Error() string { return e.msg }

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsExtractionError reports whether err (or anything it wraps) is an *ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

func emptyPayload(filename string) *ExtractionError {
	return &ExtractionError{
		Kind:     KindEmptyPayload,
		Filename: filename,
		msg:      fmt.Sprintf("The uploaded file '%s' is empty.", filename),
	}
}

func engineFailure(filename string, err error) *ExtractionError {
	return &ExtractionError{
		Kind:     KindEngineFailure,
		Filename: filename,
		Err:      err,
		msg:      fmt.Sprintf("Failed to extract '%s': %v", filename, err),
	}
}
