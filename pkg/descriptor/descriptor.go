// Package descriptor holds the declarative description of a record's fields
// and the parsers that read it from mappings, YAML documents, function input
// and CRD OpenAPI schemas.
package descriptor

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/crossplane/function-crd-record/pkg/errors"
)

// Kind is the primitive kind of a descriptor field
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// DefaultMaxDepth bounds how deeply object and array fields may nest
const DefaultMaxDepth = 32

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	switch k {
	case KindString, KindInteger, KindArray, KindObject:
		return true
	}
	return false
}

// Field describes one named slot of a record
type Field struct {
	Name        string `json:"name,omitempty"`
	Kind        Kind   `json:"kind"`
	Default     any    `json:"default,omitempty"`
	HasDefault  bool   `json:"hasDefault,omitempty"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`

	// Items is the element descriptor of an array field. Nil means string items.
	Items *Field `json:"items,omitempty"`

	// Properties is the nested descriptor of an object field. Nil means a
	// free-form mapping.
	Properties *Descriptor `json:"properties,omitempty"`
}

// Descriptor is an ordered set of uniquely named fields
type Descriptor struct {
	Name   string  `json:"name,omitempty"`
	Fields []Field `json:"fields"`
}

// Lookup returns the field with the given name
func (d *Descriptor) Lookup(name string) (*Field, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// ItemField returns the declared element descriptor of an array field,
// falling back to string items.
func (f *Field) ItemField() *Field {
	if f.Items != nil {
		return f.Items
	}
	return &Field{Kind: KindString}
}

// JoinPath builds a dotted field path
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	if name == "" {
		return parent
	}
	return parent + "." + name
}

// Validate checks the structure of d: known kinds, non-empty unique names,
// items only on arrays, properties only on objects, bounded depth and no
// cycles. Defaults are checked by the schema generator.
func Validate(d *Descriptor, maxDepth int) error {
	if d == nil {
		return errors.DescriptorMalformedError("", "descriptor is nil")
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return validateDescriptor(d, "", 1, maxDepth, map[any]bool{})
}

func validateDescriptor(d *Descriptor, path string, depth, maxDepth int, onPath map[any]bool) error {
	if onPath[d] {
		return errors.DescriptorMalformedError(path, "cyclic object reference")
	}
	if depth > maxDepth {
		return errors.DescriptorMalformedError(path, fmt.Sprintf("descriptor nests deeper than %d levels", maxDepth))
	}
	onPath[d] = true
	defer delete(onPath, d)

	seen := make(map[string]bool, len(d.Fields))
	for i := range d.Fields {
		f := &d.Fields[i]
		if f.Name == "" {
			return errors.DescriptorMalformedError(fmt.Sprintf("%s[%d]", path, i), "field name is empty")
		}
		fieldPath := JoinPath(path, f.Name)
		if seen[f.Name] {
			return errors.DescriptorMalformedError(fieldPath, "duplicate field name")
		}
		seen[f.Name] = true

		if err := validateField(f, fieldPath, depth, maxDepth, onPath); err != nil {
			return err
		}
	}
	return nil
}

func validateField(f *Field, path string, depth, maxDepth int, onPath map[any]bool) error {
	if onPath[f] {
		return errors.DescriptorMalformedError(path, "cyclic item reference")
	}
	onPath[f] = true
	defer delete(onPath, f)

	if !f.Kind.Valid() {
		return errors.DescriptorMalformedError(path, fmt.Sprintf("unknown kind %q", f.Kind))
	}
	if f.Items != nil && f.Kind != KindArray {
		return errors.DescriptorMalformedError(path, "items declared on a non-array field")
	}
	if f.Properties != nil && f.Kind != KindObject {
		return errors.DescriptorMalformedError(path, "properties declared on a non-object field")
	}

	switch f.Kind {
	case KindArray:
		if f.Items == nil {
			return nil
		}
		if depth+1 > maxDepth {
			return errors.DescriptorMalformedError(path, fmt.Sprintf("descriptor nests deeper than %d levels", maxDepth))
		}
		return validateField(f.Items, path+"[]", depth+1, maxDepth, onPath)
	case KindObject:
		if f.Properties == nil {
			return nil
		}
		return validateDescriptor(f.Properties, path, depth+1, maxDepth, onPath)
	}
	return nil
}

// Fingerprint returns a stable digest of d. Structurally equal descriptors
// share a fingerprint. d should be validated first.
func Fingerprint(d *Descriptor) (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", errors.Wrap(err, "cannot encode descriptor")
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
