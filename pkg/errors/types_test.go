package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFunctionErrorMessage(t *testing.T) {
	err := KindMismatchError("replicas", "integer", "string")

	assert.Equal(t, `SCHEMA_VALIDATION: field "replicas": kind mismatch: expected integer, got string`, err.Error())
}

func TestWrapKeepsCode(t *testing.T) {
	inner := DescriptorMalformedError("spec.size", "unknown kind \"float\"")

	wrapped := Wrap(inner, "cannot build schema")
	assert.True(t, IsErrorCode(wrapped, ErrorCodeDescriptorMalformed))
	assert.Equal(t, "spec.size", FieldOf(wrapped))

	twice := Wrapf(fmt.Errorf("resource %q: %w", "db", wrapped), "render %d", 1)
	assert.True(t, IsErrorCode(twice, ErrorCodeDescriptorMalformed))
	assert.Equal(t, "spec.size", FieldOf(twice))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrorCodeInternalError, GetErrorCode(fmt.Errorf("plain")))
	assert.Equal(t, ErrorCodeInvalidEnvelope, GetErrorCode(InvalidEnvelopeError("bad name")))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestFieldOfInnermost(t *testing.T) {
	inner := KindMismatchError("resources.cpu", "string", "integer")
	outer := SchemaValidationError("resources", "invalid nested record").WithCause(inner)

	assert.Equal(t, "resources.cpu", FieldOf(outer))
}
