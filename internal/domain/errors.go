package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMissingToken        = errors.New("missing API token")
	ErrMissingFile         = errors.New("no invoice files provided")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrTemplateUnavailable = errors.New("spreadsheet reader not configured")
)

// InputError marks a file or request input that could not be used. It is
// surfaced before any upstream call and is fatal to the current run.
type InputError struct {
	Filename string
	Err      error
}

func (e *InputError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("invalid input: %v", e.Err)
	}
	return fmt.Sprintf("invalid input %q: %v", e.Filename, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError wraps err as an InputError for the named file.
func NewInputError(filename string, err error) *InputError {
	return &InputError{Filename: filename, Err: err}
}

// UpstreamError indicates a non-2xx or malformed reply from the model
// endpoint. Fatal to the whole run.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream model error (status %d): %s", e.Status, e.Body)
}

// TimeoutError indicates a batch or aggregation call exceeded its bound.
// Batch is 1-based; 0 identifies the aggregation call.
type TimeoutError struct {
	Batch int
	Err   error
}

func (e *TimeoutError) Error() string {
	if e.Batch == 0 {
		return fmt.Sprintf("aggregation call timed out: %v", e.Err)
	}
	return fmt.Sprintf("batch %d timed out: %v", e.Batch, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
