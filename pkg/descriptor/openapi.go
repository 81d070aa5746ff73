package descriptor

import (
	"encoding/json"
	"sort"

	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"

	"github.com/crossplane/function-crd-record/pkg/errors"
)

// FromOpenAPI reads the properties of an OpenAPI v3 object schema, such as
// the spec of a CRD version, into a Descriptor. A field that cannot be
// mapped fails the whole conversion.
func FromOpenAPI(schema *apiextv1.JSONSchemaProps) (*Descriptor, error) {
	if schema == nil {
		return nil, errors.DescriptorMalformedError("", "schema is nil")
	}
	return descriptorFromOpenAPI(schema, "")
}

func descriptorFromOpenAPI(schema *apiextv1.JSONSchemaProps, path string) (*Descriptor, error) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	d := &Descriptor{Fields: make([]Field, 0, len(names))}
	for _, name := range names {
		prop := schema.Properties[name]
		f, err := fieldFromOpenAPI(name, &prop, JoinPath(path, name))
		if err != nil {
			return nil, err
		}
		f.Required = required[name]
		d.Fields = append(d.Fields, *f)
	}
	return d, nil
}

func fieldFromOpenAPI(name string, prop *apiextv1.JSONSchemaProps, path string) (*Field, error) {
	f := &Field{
		Name:        name,
		Kind:        inferKind(prop),
		Description: prop.Description,
	}
	if !f.Kind.Valid() {
		return nil, errors.DescriptorMalformedError(path, "unsupported OpenAPI type "+string(f.Kind))
	}

	if prop.Default != nil {
		var v any
		if err := json.Unmarshal(prop.Default.Raw, &v); err != nil {
			return nil, errors.DescriptorMalformedError(path, "default is not valid JSON").WithCause(err)
		}
		f.Default = v
		f.HasDefault = true
	}

	switch f.Kind {
	case KindArray:
		if prop.Items != nil && prop.Items.Schema != nil {
			items, err := fieldFromOpenAPI("", prop.Items.Schema, path+"[]")
			if err != nil {
				return nil, err
			}
			f.Items = items
		}
	case KindObject:
		if prop.Properties != nil {
			nested, err := descriptorFromOpenAPI(prop, path)
			if err != nil {
				return nil, err
			}
			f.Properties = nested
		}
	}

	return f, nil
}

// inferKind infers the field kind from schema
func inferKind(schema *apiextv1.JSONSchemaProps) Kind {
	if schema.Type != "" {
		return Kind(schema.Type)
	}

	if schema.Properties != nil {
		return KindObject
	}

	if schema.Items != nil {
		return KindArray
	}

	if schema.XPreserveUnknownFields != nil && *schema.XPreserveUnknownFields {
		return KindObject
	}

	switch schema.Format {
	case "int32", "int64":
		return KindInteger
	}

	return KindString
}
