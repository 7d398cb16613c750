package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies run-fatal failures.
type ErrorKind string

const (
	KindFileNotFound          ErrorKind = "file_not_found"
	KindUnreadableInput       ErrorKind = "unreadable_input"
	KindMissingRequiredColumn ErrorKind = "missing_required_column"
	KindEmptyInput            ErrorKind = "empty_input"
	KindInvalidWeights        ErrorKind = "invalid_weights"
)

// PipelineError is a classified failure raised by the stage that detected it.
type PipelineError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewError builds a PipelineError with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapError builds a PipelineError around a cause.
func WrapError(kind ErrorKind, err error, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first PipelineError in err's chain, or ""
// when err is not classified.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
