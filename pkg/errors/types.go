package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCode represents the type of error that occurred
type ErrorCode string

const (
	// Schema errors
	ErrorCodeSchemaValidation    ErrorCode = "SCHEMA_VALIDATION"
	ErrorCodeDescriptorMalformed ErrorCode = "DESCRIPTOR_MALFORMED"

	// Resource errors
	ErrorCodeInvalidEnvelope ErrorCode = "INVALID_ENVELOPE"
	ErrorCodeInvalidWorkload ErrorCode = "INVALID_WORKLOAD"
	ErrorCodeSpawnFailed     ErrorCode = "SPAWN_FAILED"

	// Input validation errors
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// System errors
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// FunctionError represents a coded error with field context
type FunctionError struct {
	Code     ErrorCode         `json:"code"`
	Message  string            `json:"message"`
	Field    string            `json:"field,omitempty"`
	Expected string            `json:"expected,omitempty"`
	Actual   string            `json:"actual,omitempty"`
	Context  map[string]string `json:"context,omitempty"`
	Cause    error             `json:"-"`
}

// Error implements the error interface
func (e *FunctionError) Error() string {
	var parts []string

	parts = append(parts, string(e.Code))
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field %q", e.Field))
	}
	parts = append(parts, e.Message)

	if e.Expected != "" || e.Actual != "" {
		parts = append(parts, fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual))
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, k+"="+e.Context[k])
		}
		parts = append(parts, strings.Join(kv, ","))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %s", e.Cause.Error()))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *FunctionError) Unwrap() error {
	return e.Cause
}

// New creates a new FunctionError
func New(code ErrorCode, message string) *FunctionError {
	return &FunctionError{
		Code:    code,
		Message: message,
		Context: make(map[string]string),
	}
}

// Wrap annotates err with message. A FunctionError keeps its code.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	if fe, ok := err.(*FunctionError); ok {
		return &FunctionError{
			Code:    fe.Code,
			Message: message,
			Field:   fe.Field,
			Context: make(map[string]string),
			Cause:   fe,
		}
	}

	return errors.Wrap(err, message)
}

// Wrapf is Wrap with formatting
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithField sets the offending field path
func (e *FunctionError) WithField(path string) *FunctionError {
	e.Field = path
	return e
}

// WithKinds sets the expected and actual kind
func (e *FunctionError) WithKinds(expected, actual string) *FunctionError {
	e.Expected = expected
	e.Actual = actual
	return e
}

// WithContext adds additional context
func (e *FunctionError) WithContext(key, value string) *FunctionError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithCause records the underlying error
func (e *FunctionError) WithCause(err error) *FunctionError {
	e.Cause = err
	return e
}

// As returns the outermost FunctionError in err's chain
func As(err error) (*FunctionError, bool) {
	var fe *FunctionError
	if stderrors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsErrorCode checks if an error chain carries a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	fe, ok := As(err)
	return ok && fe.Code == code
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	if fe, ok := As(err); ok {
		return fe.Code
	}
	return ErrorCodeInternalError
}

// FieldOf returns the innermost field path recorded in err's chain
func FieldOf(err error) string {
	field := ""
	for err != nil {
		if fe, ok := err.(*FunctionError); ok && fe.Field != "" {
			field = fe.Field
		}
		err = stderrors.Unwrap(err)
	}
	return field
}

// SchemaValidationError reports a value that does not satisfy its field's kind
func SchemaValidationError(field, message string) *FunctionError {
	return New(ErrorCodeSchemaValidation, message).WithField(field)
}

// KindMismatchError is a SchemaValidationError for a wrong primitive kind
func KindMismatchError(field, expected, actual string) *FunctionError {
	return SchemaValidationError(field, "kind mismatch").WithKinds(expected, actual)
}

// DescriptorMalformedError reports a descriptor that cannot produce a schema
func DescriptorMalformedError(field, message string) *FunctionError {
	return New(ErrorCodeDescriptorMalformed, message).WithField(field)
}

// InvalidEnvelopeError reports bad envelope identity metadata
func InvalidEnvelopeError(message string) *FunctionError {
	return New(ErrorCodeInvalidEnvelope, message)
}

// InvalidWorkloadError reports a workload whose fields do not fit its resource kind
func InvalidWorkloadError(message string) *FunctionError {
	return New(ErrorCodeInvalidWorkload, message)
}

// SpawnFailedError reports a failed creation for a SPAWN token
func SpawnFailedError(message string) *FunctionError {
	return New(ErrorCodeSpawnFailed, message)
}

// ValidationError creates an input validation error
func ValidationError(message string) *FunctionError {
	return New(ErrorCodeInvalidInput, message)
}
