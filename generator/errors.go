package generator

import (
	"errors"
	"fmt"
)

// Reason classifies a failed generation call.
type Reason string

const (
	// ReasonService: the model endpoint could not be reached or answered with an error.
	ReasonService Reason = "service_error"
	// ReasonSchema: the model answered but the result failed validation.
	ReasonSchema Reason = "schema_error"
)

var (
	ErrService = errors.New("generation service failure")
	ErrSchema  = errors.New("generation result failed validation")
)

// GenerationError wraps a failed Draft, Refine or Translate call.
type GenerationError struct {
	Op     string
	Reason Reason
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is lets callers match on ErrService / ErrSchema without caring about Op.
func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrService:
		return e.Reason == ReasonService
	case ErrSchema:
		return e.Reason == ReasonSchema
	}
	return false
}

// ReasonOf returns the failure reason carried by err, or "" if err is not a
// GenerationError.
func ReasonOf(err error) Reason {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr.Reason
	}
	return ""
}

func serviceErr(op string, err error) error {
	return &GenerationError{Op: op, Reason: ReasonService, Err: err}
}

func schemaErr(op string, format string, args ...any) error {
	return &GenerationError{Op: op, Reason: ReasonSchema, Err: fmt.Errorf(format, args...)}
}
