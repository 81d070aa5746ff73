package descriptor

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"sigs.k8s.io/yaml"

	"github.com/crossplane/function-crd-record/input/v1beta1"
	"github.com/crossplane/function-crd-record/pkg/errors"
)

// Parse reads a YAML or JSON descriptor document in mapping form:
//
//	replicas:
//	  kind: integer
//	image:
//	  kind: string
//	  default: nginx
//
// Duplicate keys are rejected.
func Parse(data []byte) (*Descriptor, error) {
	var m map[string]any
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, errors.DescriptorMalformedError("", "cannot parse descriptor document").WithCause(err)
	}
	return FromMap(m)
}

// FromMap converts the mapping form (field name to attributes) into a
// Descriptor. Fields are ordered by name.
func FromMap(m map[string]any) (*Descriptor, error) {
	return descriptorFromMap(m, "", map[uintptr]bool{})
}

func descriptorFromMap(m map[string]any, path string, onPath map[uintptr]bool) (*Descriptor, error) {
	if ptr := reflect.ValueOf(m).Pointer(); ptr != 0 {
		if onPath[ptr] {
			return nil, errors.DescriptorMalformedError(path, "cyclic object reference")
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	d := &Descriptor{Fields: make([]Field, 0, len(names))}
	for _, name := range names {
		fieldPath := JoinPath(path, name)
		attrs, ok := m[name].(map[string]any)
		if !ok {
			return nil, errors.DescriptorMalformedError(fieldPath, fmt.Sprintf("field attributes must be a mapping, got %T", m[name]))
		}
		f, err := fieldFromMap(name, attrs, fieldPath, onPath)
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, *f)
	}
	return d, nil
}

func fieldFromMap(name string, attrs map[string]any, path string, onPath map[uintptr]bool) (*Field, error) {
	if ptr := reflect.ValueOf(attrs).Pointer(); ptr != 0 {
		if onPath[ptr] {
			return nil, errors.DescriptorMalformedError(path, "cyclic item reference")
		}
		onPath[ptr] = true
		defer delete(onPath, ptr)
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &Field{Name: name}
	for _, key := range keys {
		v := attrs[key]
		switch key {
		case "kind", "type":
			s, ok := v.(string)
			if !ok {
				return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("%s must be a string, got %T", key, v))
			}
			if f.Kind != "" && f.Kind != Kind(s) {
				return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("conflicting kind %q and type %q", f.Kind, s))
			}
			f.Kind = Kind(s)
		case "default":
			f.Default = v
			f.HasDefault = true
		case "description":
			s, ok := v.(string)
			if !ok {
				return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("description must be a string, got %T", v))
			}
			f.Description = s
		case "required":
			b, ok := v.(bool)
			if !ok {
				return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("required must be a boolean, got %T", v))
			}
			f.Required = b
		case "items":
			itemAttrs, ok := v.(map[string]any)
			if !ok {
				return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("items must be a mapping, got %T", v))
			}
			items, err := fieldFromMap("", itemAttrs, path+"[]", onPath)
			if err != nil {
				return nil, err
			}
			f.Items = items
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("properties must be a mapping, got %T", v))
			}
			nested, err := descriptorFromMap(props, path, onPath)
			if err != nil {
				return nil, err
			}
			f.Properties = nested
		default:
			return nil, errors.DescriptorMalformedError(path, fmt.Sprintf("unknown attribute %q", key))
		}
	}

	if f.Kind == "" {
		return nil, errors.DescriptorMalformedError(path, "kind is required")
	}
	return f, nil
}

// FromFields converts the ordered function input form into a Descriptor.
// Field order is preserved.
func FromFields(specs []v1beta1.FieldSpec) (*Descriptor, error) {
	return descriptorFromFields(specs, "")
}

func descriptorFromFields(specs []v1beta1.FieldSpec, path string) (*Descriptor, error) {
	d := &Descriptor{Fields: make([]Field, 0, len(specs))}
	for i := range specs {
		f, err := fieldFromSpec(&specs[i], JoinPath(path, specs[i].Name))
		if err != nil {
			return nil, err
		}
		d.Fields = append(d.Fields, *f)
	}
	return d, nil
}

func fieldFromSpec(spec *v1beta1.FieldSpec, path string) (*Field, error) {
	f := &Field{
		Name:        spec.Name,
		Kind:        Kind(spec.Kind),
		Description: spec.Description,
		Required:    spec.Required,
	}

	if spec.Default != nil {
		var v any
		if err := json.Unmarshal(spec.Default.Raw, &v); err != nil {
			return nil, errors.DescriptorMalformedError(path, "default is not valid JSON").WithCause(err)
		}
		f.Default = v
		f.HasDefault = true
	}

	if spec.Items != nil {
		items, err := fieldFromSpec(spec.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		f.Items = items
	}

	if spec.Properties != nil {
		nested, err := descriptorFromFields(spec.Properties, path)
		if err != nil {
			return nil, err
		}
		f.Properties = nested
	}

	return f, nil
}
