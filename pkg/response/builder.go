package response

import (
	"encoding/json"

	"google.golang.org/protobuf/types/known/structpb"

	fnv1 "github.com/crossplane/function-sdk-go/proto/v1"
	"github.com/crossplane/function-sdk-go/response"

	"github.com/crossplane/function-crd-record/pkg/errors"
)

// ContextKeyRecords is the pipeline context key holding rendered records
const ContextKeyRecords = "crdrecord.fn.crossplane.io/records"

// RenderedRecord is one record rendered by the function
type RenderedRecord struct {
	// Name is the composed resource name
	Name         string
	ResourceKind string
	Object       map[string]interface{}
}

// Summary is everything one function run rendered
type Summary struct {
	CorrelationID string
	Records       []RenderedRecord

	TokensVisited int
	Spawned       int
	SpawnFailed   int
	SpawnErrors   []error
}

// Builder provides methods to build structured responses for later pipeline steps
type Builder interface {
	// BuildContext creates the context data structure
	BuildContext(summary *Summary) (map[string]interface{}, error)

	// SetContext sets the context in the Crossplane response
	SetContext(rsp *fnv1.RunFunctionResponse, summary *Summary) error
}

// DefaultBuilder implements the Builder interface
type DefaultBuilder struct{}

// NewDefaultBuilder creates a new default response builder
func NewDefaultBuilder() *DefaultBuilder {
	return &DefaultBuilder{}
}

// BuildContext creates the context data structure
func (b *DefaultBuilder) BuildContext(summary *Summary) (map[string]interface{}, error) {
	if summary == nil {
		return nil, errors.ValidationError("summary cannot be nil")
	}

	records := make(map[string]interface{}, len(summary.Records))
	for _, r := range summary.Records {
		records[r.Name] = b.buildRecordContext(r)
	}

	spawnErrors := make([]interface{}, 0, len(summary.SpawnErrors))
	for _, err := range summary.SpawnErrors {
		spawnErrors = append(spawnErrors, map[string]interface{}{
			"code":    string(errors.GetErrorCode(err)),
			"message": err.Error(),
		})
	}

	return map[string]interface{}{
		"correlationId": summary.CorrelationID,
		"records":       records,
		"renderSummary": map[string]interface{}{
			"rendered":      len(summary.Records),
			"tokensVisited": summary.TokensVisited,
			"spawned":       summary.Spawned,
			"spawnFailed":   summary.SpawnFailed,
			"errors":        spawnErrors,
		},
	}, nil
}

// SetContext sets the context in the Crossplane response
func (b *DefaultBuilder) SetContext(rsp *fnv1.RunFunctionResponse, summary *Summary) error {
	context, err := b.BuildContext(summary)
	if err != nil {
		return errors.Wrap(err, "failed to build context")
	}

	contextStruct, err := toStruct(context)
	if err != nil {
		return errors.Wrap(err, "failed to create structured context")
	}
	response.SetContextKey(rsp, ContextKeyRecords, structpb.NewStructValue(contextStruct))

	return nil
}

// buildRecordContext creates a context structure for a single record
func (b *DefaultBuilder) buildRecordContext(r RenderedRecord) map[string]interface{} {
	context := map[string]interface{}{
		"resourceKind": r.ResourceKind,
	}
	if r.Object == nil {
		return context
	}

	for _, key := range []string{"apiVersion", "kind", "metadata", "spec"} {
		if v, found := r.Object[key]; found {
			context[key] = v
		}
	}
	return context
}

// toStruct converts through JSON so every number becomes a float64
func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal context to JSON")
	}

	var clean map[string]interface{}
	if err := json.Unmarshal(raw, &clean); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal context from JSON")
	}

	return structpb.NewStruct(clean)
}

// TemplateHelpers provides helper functions for Go templates
type TemplateHelpers struct{}

// NewTemplateHelpers creates template helper functions
func NewTemplateHelpers() *TemplateHelpers {
	return &TemplateHelpers{}
}

// HasRecord checks if a record was rendered under name
func (h *TemplateHelpers) HasRecord(context map[string]interface{}, name string) bool {
	records, ok := context["records"].(map[string]interface{})
	if !ok {
		return false
	}
	_, exists := records[name]
	return exists
}

// GetRecordField safely gets a field from a rendered record
func (h *TemplateHelpers) GetRecordField(context map[string]interface{}, name string, fieldPath ...string) interface{} {
	records, ok := context["records"].(map[string]interface{})
	if !ok {
		return nil
	}

	current, exists := records[name]
	if !exists {
		return nil
	}
	for _, field := range fieldPath {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}

		current, exists = currentMap[field]
		if !exists {
			return nil
		}
	}

	return current
}
