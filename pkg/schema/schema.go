// Package schema generates record schemas from descriptors and validates
// candidate field values against them.
//
// A Schema is a first-class value produced by Build. The generator holds no
// state: the same descriptor always yields a structurally equal Schema and
// generated schemas are never registered anywhere.
package schema

import (
	"fmt"
	"reflect"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/errors"
)

// Field is one typed slot of a generated schema
type Field struct {
	Name        string
	Kind        descriptor.Kind
	Description string
	Required    bool

	// Default is the normalized default value. Explicit reports whether the
	// descriptor declared it; otherwise it is the kind's zero value.
	Default  any
	Explicit bool

	// Items is the element type of an array field
	Items *Field

	// Nested is the schema of an object field that declares properties.
	// Nil for free-form mappings.
	Nested *Schema
}

// Schema is an immutable, ordered list of typed fields
type Schema struct {
	name   string
	fields []Field
	index  map[string]int
}

// Option configures Build
type Option func(*options)

type options struct {
	maxDepth int
}

// WithMaxDepth bounds descriptor nesting
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// Build generates a Schema from d. A malformed descriptor or a default that
// does not match its kind fails with a DescriptorMalformedError and no schema.
func Build(d *descriptor.Descriptor, opts ...Option) (*Schema, error) {
	o := options{maxDepth: descriptor.DefaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}

	if err := descriptor.Validate(d, o.maxDepth); err != nil {
		return nil, err
	}

	return build(d, "")
}

func build(d *descriptor.Descriptor, path string) (*Schema, error) {
	s := &Schema{
		name:   d.Name,
		fields: make([]Field, 0, len(d.Fields)),
		index:  make(map[string]int, len(d.Fields)),
	}

	for i := range d.Fields {
		df := &d.Fields[i]
		f, err := buildField(df, descriptor.JoinPath(path, df.Name))
		if err != nil {
			return nil, err
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, *f)
	}

	return s, nil
}

func buildField(df *descriptor.Field, path string) (*Field, error) {
	f := &Field{
		Name:        df.Name,
		Kind:        df.Kind,
		Description: df.Description,
		Required:    df.Required,
	}

	switch df.Kind {
	case descriptor.KindArray:
		items, err := buildField(df.ItemField(), path+"[]")
		if err != nil {
			return nil, err
		}
		f.Items = items
	case descriptor.KindObject:
		if df.Properties != nil {
			nested, err := build(df.Properties, path)
			if err != nil {
				return nil, err
			}
			f.Nested = nested
		}
	}

	if !df.HasDefault {
		f.Default = f.zero()
		return f, nil
	}

	v, err := f.conform(df.Default, path)
	if err != nil {
		return nil, errors.DescriptorMalformedError(path, "default does not match the field kind").
			WithKinds(string(df.Kind), kindOf(df.Default)).
			WithCause(err)
	}
	f.Default = v
	f.Explicit = true
	return f, nil
}

// zero returns the implicit default of the field's kind
func (f *Field) zero() any {
	switch f.Kind {
	case descriptor.KindString:
		return ""
	case descriptor.KindInteger:
		return int64(0)
	case descriptor.KindArray:
		return []any{}
	case descriptor.KindObject:
		if f.Nested != nil {
			return f.Nested.Defaults()
		}
		return map[string]any{}
	}
	return nil
}

// conform validates v against the field and returns its normalized form
func (f *Field) conform(v any, path string) (any, error) {
	switch f.Kind {
	case descriptor.KindString:
		s, ok := v.(string)
		if !ok {
			return nil, errors.KindMismatchError(path, "string", kindOf(v))
		}
		return s, nil

	case descriptor.KindInteger:
		n, ok := toInt64(v)
		if !ok {
			return nil, errors.KindMismatchError(path, "integer", kindOf(v))
		}
		return n, nil

	case descriptor.KindArray:
		elems, ok := toSlice(v)
		if !ok {
			return nil, errors.KindMismatchError(path, "array", kindOf(v))
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			c, err := f.Items.conform(e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil

	case descriptor.KindObject:
		m, ok := toMap(v)
		if !ok {
			return nil, errors.KindMismatchError(path, "object", kindOf(v))
		}
		if f.Nested != nil {
			return f.Nested.conform(m, path)
		}
		return normalizeJSON(m, path)
	}

	return nil, errors.New(errors.ErrorCodeInternalError, fmt.Sprintf("unhandled kind %q", f.Kind)).WithField(path)
}

// conform validates a mapping against every field of s
func (s *Schema) conform(values map[string]any, path string) (map[string]any, error) {
	for _, name := range sortedKeys(values) {
		if _, ok := s.index[name]; !ok {
			return nil, errors.SchemaValidationError(descriptor.JoinPath(path, name), "unknown field")
		}
	}

	out := make(map[string]any, len(s.fields))
	for i := range s.fields {
		f := &s.fields[i]
		fieldPath := descriptor.JoinPath(path, f.Name)

		// null is treated as absent
		v, present := values[f.Name]
		if !present || v == nil {
			if f.Required && !f.Explicit {
				return nil, errors.SchemaValidationError(fieldPath, "required field is missing").
					WithKinds(string(f.Kind), "null")
			}
			out[f.Name] = deepCopy(f.Default)
			continue
		}

		c, err := f.conform(v, fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = c
	}
	return out, nil
}

// Name returns the descriptor name the schema was generated from
func (s *Schema) Name() string {
	return s.name
}

// Len returns the number of fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Fields returns a copy of the schema's fields in declaration order
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	for i := range s.fields {
		out[i] = s.fields[i].clone()
	}
	return out
}

// Field returns a copy of the named field
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i].clone(), true
}

// Defaults returns the value every field takes when it is omitted
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s.fields))
	for i := range s.fields {
		out[s.fields[i].Name] = deepCopy(s.fields[i].Default)
	}
	return out
}

// Equal reports whether s and o have the same fields in the same order with
// the same kinds, defaults, flags, item types and nested schemas.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i := range s.fields {
		if !s.fields[i].equal(&o.fields[i]) {
			return false
		}
	}
	return true
}

func (f *Field) equal(o *Field) bool {
	if f.Name != o.Name || f.Kind != o.Kind || f.Description != o.Description ||
		f.Required != o.Required || f.Explicit != o.Explicit {
		return false
	}
	if !reflect.DeepEqual(f.Default, o.Default) {
		return false
	}
	if (f.Items == nil) != (o.Items == nil) {
		return false
	}
	if f.Items != nil && !f.Items.equal(o.Items) {
		return false
	}
	return f.Nested.Equal(o.Nested)
}

func (f *Field) clone() Field {
	c := *f
	c.Default = deepCopy(f.Default)
	if f.Items != nil {
		items := f.Items.clone()
		c.Items = &items
	}
	return c
}

// New validates values and returns a Record. Omitted fields take their
// default. Values are never coerced: a kind mismatch, a missing required
// field or an unknown field fails with a SchemaValidationError.
func (s *Schema) New(values map[string]any) (*Record, error) {
	out, err := s.conform(values, "")
	if err != nil {
		return nil, err
	}
	return &Record{schema: s, values: out}, nil
}

// Validate checks values without building a Record
func (s *Schema) Validate(values map[string]any) error {
	_, err := s.conform(values, "")
	return err
}
