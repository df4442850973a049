package domain

import (
	"errors"
	"fmt"
)

// FailureKind is the closed taxonomy of conversion failures. Every error
// surfaced to a caller names exactly one kind.
type FailureKind string

const (
	// FailureNoFile is returned when the multipart request carries no file field
	FailureNoFile FailureKind = "NO_FILE_UPLOADED"

	// FailureMissingOutputFormat is returned when the outputFormat field is absent
	FailureMissingOutputFormat FailureKind = "MISSING_OUTPUT_FORMAT"

	// FailureUnsupportedConversion is returned when the (category, target) pair is not in the support matrix
	FailureUnsupportedConversion FailureKind = "UNSUPPORTED_CONVERSION"

	// FailureBackendUnavailable is returned when the backing tool is probed absent
	FailureBackendUnavailable FailureKind = "BACKEND_UNAVAILABLE"

	// FailureBackendError is returned when the backend exited non-zero or produced no artifact
	FailureBackendError FailureKind = "BACKEND_ERROR"

	// FailureBackendTimeout is returned when the backend exceeded its wall-clock budget
	FailureBackendTimeout FailureKind = "BACKEND_TIMEOUT"

	// FailureOutputNotFound is returned when artifact discovery found nothing for the job
	FailureOutputNotFound FailureKind = "OUTPUT_NOT_FOUND"

	// FailureInternal covers unexpected faults
	FailureInternal FailureKind = "INTERNAL_ERROR"
)

// ConversionError carries the failure kind, the backend that produced it,
// and a human-readable detail. Backends translate raw process errors into
// this type at the adapter boundary; nothing is retried automatically.
type ConversionError struct {
	Kind    FailureKind
	Backend string
	Detail  string
	Err     error
}

func (e *ConversionError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Backend, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// NewConversionError creates a ConversionError without a wrapped cause.
func NewConversionError(kind FailureKind, backend, detail string) *ConversionError {
	return &ConversionError{Kind: kind, Backend: backend, Detail: detail}
}

// WrapConversionError creates a ConversionError wrapping an underlying error.
func WrapConversionError(kind FailureKind, backend string, err error) *ConversionError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &ConversionError{Kind: kind, Backend: backend, Detail: detail, Err: err}
}

// KindOf extracts the FailureKind from err, or FailureInternal when err is
// not a ConversionError.
func KindOf(err error) FailureKind {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Kind
	}
	return FailureInternal
}

// DetailOf extracts the human-readable detail from err.
func DetailOf(err error) string {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
