// Package crd renders record schemas as CustomResourceDefinitions.
package crd

import (
	"encoding/json"
	"strings"

	"github.com/gobuffalo/flect"
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/utils/ptr"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/errors"
	"github.com/crossplane/function-crd-record/pkg/schema"
)

// Options names the generated CRD
type Options struct {
	Group      string
	Version    string
	Kind       string
	Plural     string
	Singular   string
	ShortNames []string
	Categories []string
	Scope      apiextv1.ResourceScope
}

// JSONSchema returns the OpenAPI v3 object schema of s
func JSONSchema(s *schema.Schema) (apiextv1.JSONSchemaProps, error) {
	props := apiextv1.JSONSchemaProps{
		Type:       "object",
		Properties: make(map[string]apiextv1.JSONSchemaProps, s.Len()),
	}

	for _, f := range s.Fields() {
		p, err := fieldSchema(&f)
		if err != nil {
			return apiextv1.JSONSchemaProps{}, err
		}
		props.Properties[f.Name] = p
		if f.Required {
			props.Required = append(props.Required, f.Name)
		}
	}
	return props, nil
}

func fieldSchema(f *schema.Field) (apiextv1.JSONSchemaProps, error) {
	p := apiextv1.JSONSchemaProps{
		Type:        string(f.Kind),
		Description: f.Description,
	}

	if f.Explicit {
		raw, err := json.Marshal(f.Default)
		if err != nil {
			return p, errors.Wrapf(err, "cannot encode default of %q", f.Name)
		}
		p.Default = &apiextv1.JSON{Raw: raw}
	}

	switch f.Kind {
	case descriptor.KindInteger:
		p.Format = "int64"
	case descriptor.KindArray:
		items, err := fieldSchema(f.Items)
		if err != nil {
			return p, err
		}
		p.Items = &apiextv1.JSONSchemaPropsOrArray{Schema: &items}
	case descriptor.KindObject:
		if f.Nested == nil {
			p.XPreserveUnknownFields = ptr.To(true)
			break
		}
		nested, err := JSONSchema(f.Nested)
		if err != nil {
			return p, err
		}
		p.Properties = nested.Properties
		p.Required = nested.Required
	}

	return p, nil
}

// Generate returns a CRD with one served and stored version whose spec is s
func Generate(s *schema.Schema, o Options) (*apiextv1.CustomResourceDefinition, error) {
	if msgs := validation.IsDNS1123Subdomain(o.Group); len(msgs) > 0 {
		return nil, errors.ValidationError("invalid group: " + strings.Join(msgs, "; ")).WithField("group")
	}
	if msgs := validation.IsDNS1123Label(o.Version); len(msgs) > 0 {
		return nil, errors.ValidationError("invalid version: " + strings.Join(msgs, "; ")).WithField("version")
	}
	if o.Kind == "" {
		return nil, errors.ValidationError("kind is required").WithField("kind")
	}

	singular := o.Singular
	if singular == "" {
		singular = strings.ToLower(o.Kind)
	}
	plural := o.Plural
	if plural == "" {
		plural = flect.Pluralize(singular)
	}
	scope := o.Scope
	if scope == "" {
		scope = apiextv1.NamespaceScoped
	}

	spec, err := JSONSchema(s)
	if err != nil {
		return nil, err
	}

	root := apiextv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextv1.JSONSchemaProps{
			"apiVersion": {Type: "string"},
			"kind":       {Type: "string"},
			"metadata":   {Type: "object"},
			"spec":       spec,
		},
	}
	if len(spec.Required) > 0 {
		root.Required = []string{"spec"}
	}

	return &apiextv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiextv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: plural + "." + o.Group,
		},
		Spec: apiextv1.CustomResourceDefinitionSpec{
			Group: o.Group,
			Names: apiextv1.CustomResourceDefinitionNames{
				Kind:       o.Kind,
				ListKind:   o.Kind + "List",
				Plural:     plural,
				Singular:   singular,
				ShortNames: o.ShortNames,
				Categories: o.Categories,
			},
			Scope: scope,
			Versions: []apiextv1.CustomResourceDefinitionVersion{{
				Name:    o.Version,
				Served:  true,
				Storage: true,
				Schema: &apiextv1.CustomResourceValidation{
					OpenAPIV3Schema: &root,
				},
			}},
		},
	}, nil
}

// SpecSchema returns the spec schema of the named CRD version
func SpecSchema(c *apiextv1.CustomResourceDefinition, version string) (*apiextv1.JSONSchemaProps, error) {
	for i := range c.Spec.Versions {
		v := &c.Spec.Versions[i]
		if v.Name != version {
			continue
		}
		if v.Schema == nil || v.Schema.OpenAPIV3Schema == nil {
			return nil, errors.DescriptorMalformedError("", "version has no OpenAPI schema").WithContext("version", version)
		}
		spec, ok := v.Schema.OpenAPIV3Schema.Properties["spec"]
		if !ok {
			return nil, errors.DescriptorMalformedError("spec", "schema has no spec property").WithContext("version", version)
		}
		return &spec, nil
	}
	return nil, errors.ValidationError("version not found").WithField("version").WithContext("version", version)
}
