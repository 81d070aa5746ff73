package schema

import (
	"github.com/crossplane/function-crd-record/pkg/errors"
)

// Record is a set of field values validated against the schema that
// produced it. Values are held in normalized JSON-compatible form.
type Record struct {
	schema *Schema
	values map[string]any
}

// Schema returns the schema the record was validated against
func (r *Record) Schema() *Schema {
	return r.schema
}

// Get returns a copy of the named field's value
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	if !ok {
		return nil, false
	}
	return deepCopy(v), true
}

// Set validates v against the named field and stores it. A nil value resets
// the field to its default.
func (r *Record) Set(name string, v any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return errors.SchemaValidationError(name, "unknown field")
	}
	f := &r.schema.fields[i]

	if v == nil {
		if f.Required && !f.Explicit {
			return errors.SchemaValidationError(name, "required field is missing").
				WithKinds(string(f.Kind), "null")
		}
		r.values[name] = deepCopy(f.Default)
		return nil
	}

	c, err := f.conform(v, name)
	if err != nil {
		return err
	}
	r.values[name] = c
	return nil
}

// Record returns the nested record of an object field that declares
// properties. The nested record is a copy.
func (r *Record) Record(name string) (*Record, bool) {
	i, ok := r.schema.index[name]
	if !ok || r.schema.fields[i].Nested == nil {
		return nil, false
	}
	m, ok := r.values[name].(map[string]any)
	if !ok {
		return nil, false
	}
	return &Record{
		schema: r.schema.fields[i].Nested,
		values: deepCopy(m).(map[string]any),
	}, true
}

// Object returns a deep copy of the record as a JSON-compatible mapping
func (r *Record) Object() map[string]any {
	return deepCopy(r.values).(map[string]any)
}

// DeepCopy returns an independent copy of the record
func (r *Record) DeepCopy() *Record {
	if r == nil {
		return nil
	}
	return &Record{schema: r.schema, values: r.Object()}
}
