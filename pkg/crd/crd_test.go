package crd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiextv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"sigs.k8s.io/yaml"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/errors"
	"github.com/crossplane/function-crd-record/pkg/schema"
)

const webApp = `
image:
  kind: string
  default: nginx
  description: Container image
replicas:
  kind: integer
  default: 2
ports:
  kind: array
  items:
    kind: integer
resources:
  kind: object
  required: true
  properties:
    cpu:
      kind: string
      required: true
labels:
  kind: object
`

func build(t *testing.T, doc string) *schema.Schema {
	t.Helper()
	d, err := descriptor.Parse([]byte(doc))
	require.NoError(t, err)
	s, err := schema.Build(d)
	require.NoError(t, err)
	return s
}

func TestJSONSchema(t *testing.T) {
	props, err := JSONSchema(build(t, webApp))
	require.NoError(t, err)

	assert.Equal(t, "object", props.Type)
	assert.Equal(t, []string{"resources"}, props.Required)

	image := props.Properties["image"]
	assert.Equal(t, "string", image.Type)
	assert.Equal(t, "Container image", image.Description)
	require.NotNil(t, image.Default)
	assert.JSONEq(t, `"nginx"`, string(image.Default.Raw))

	replicas := props.Properties["replicas"]
	assert.Equal(t, "integer", replicas.Type)
	assert.JSONEq(t, `2`, string(replicas.Default.Raw))

	ports := props.Properties["ports"]
	require.NotNil(t, ports.Items)
	assert.Equal(t, "integer", ports.Items.Schema.Type)
	assert.Nil(t, ports.Default)

	resources := props.Properties["resources"]
	assert.Equal(t, []string{"cpu"}, resources.Required)
	assert.Equal(t, "string", resources.Properties["cpu"].Type)

	labels := props.Properties["labels"]
	require.NotNil(t, labels.XPreserveUnknownFields)
	assert.True(t, *labels.XPreserveUnknownFields)
}

func TestRoundTrip(t *testing.T) {
	s := build(t, webApp)

	props, err := JSONSchema(s)
	require.NoError(t, err)
	d, err := descriptor.FromOpenAPI(&props)
	require.NoError(t, err)
	again, err := schema.Build(d)
	require.NoError(t, err)

	assert.True(t, s.Equal(again))
}

func TestGenerate(t *testing.T) {
	s := build(t, webApp)

	c, err := Generate(s, Options{Group: "example.org", Version: "v1alpha1", Kind: "WebApp", ShortNames: []string{"wa"}})
	require.NoError(t, err)

	assert.Equal(t, "apiextensions.k8s.io/v1", c.APIVersion)
	assert.Equal(t, "CustomResourceDefinition", c.Kind)
	assert.Equal(t, "webapps.example.org", c.Name)
	assert.Equal(t, "webapps", c.Spec.Names.Plural)
	assert.Equal(t, "webapp", c.Spec.Names.Singular)
	assert.Equal(t, "WebAppList", c.Spec.Names.ListKind)
	assert.Equal(t, apiextv1.NamespaceScoped, c.Spec.Scope)
	require.Len(t, c.Spec.Versions, 1)
	assert.True(t, c.Spec.Versions[0].Served)
	assert.True(t, c.Spec.Versions[0].Storage)
	assert.Equal(t, []string{"spec"}, c.Spec.Versions[0].Schema.OpenAPIV3Schema.Required)

	spec, err := SpecSchema(c, "v1alpha1")
	require.NoError(t, err)
	d, err := descriptor.FromOpenAPI(spec)
	require.NoError(t, err)
	again, err := schema.Build(d)
	require.NoError(t, err)
	assert.True(t, s.Equal(again))

	// survives YAML encoding
	out, err := yaml.Marshal(c)
	require.NoError(t, err)
	var decoded apiextv1.CustomResourceDefinition
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, c.Spec.Names, decoded.Spec.Names)

	_, err = SpecSchema(c, "v2")
	assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeInvalidInput))
}

func TestGenerateNames(t *testing.T) {
	s := build(t, "name:\n  kind: string\n")

	c, err := Generate(s, Options{Group: "example.org", Version: "v1", Kind: "Policy", Scope: apiextv1.ClusterScoped})
	require.NoError(t, err)
	assert.Equal(t, "policies", c.Spec.Names.Plural)
	assert.Equal(t, apiextv1.ClusterScoped, c.Spec.Scope)
	assert.Nil(t, c.Spec.Versions[0].Schema.OpenAPIV3Schema.Required)

	cases := map[string]Options{
		"group":   {Group: "Example_Org", Version: "v1", Kind: "Policy"},
		"version": {Group: "example.org", Version: "V1", Kind: "Policy"},
		"kind":    {Group: "example.org", Version: "v1"},
	}
	for field, o := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := Generate(s, o)
			require.Error(t, err)
			assert.Equal(t, field, errors.FieldOf(err))
			assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeInvalidInput))
		})
	}
}
