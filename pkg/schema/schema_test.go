package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/errors"
)

func mustParse(t *testing.T, doc string) *descriptor.Descriptor {
	t.Helper()
	d, err := descriptor.Parse([]byte(doc))
	require.NoError(t, err)
	return d
}

const deploymentDescriptor = `
replicas:
  kind: integer
image:
  kind: string
  default: nginx
`

const nestedDescriptor = `
resources:
  kind: object
  properties:
    cpu:
      kind: string
    memory:
      kind: string
      default: 128Mi
containers:
  kind: array
  items:
    kind: object
    properties:
      name:
        kind: string
        required: true
tags:
  kind: array
labels:
  kind: object
`

func TestBuildDefaults(t *testing.T) {
	s, err := Build(mustParse(t, nestedDescriptor))
	require.NoError(t, err)

	want := map[string]any{
		"containers": []any{},
		"labels":     map[string]any{},
		"resources":  map[string]any{"cpu": "", "memory": "128Mi"},
		"tags":       []any{},
	}
	if diff := cmp.Diff(want, s.Defaults()); diff != "" {
		t.Errorf("Defaults(): -want, +got:\n%s", diff)
	}

	tags, ok := s.Field("tags")
	require.True(t, ok)
	require.NotNil(t, tags.Items)
	assert.Equal(t, descriptor.KindString, tags.Items.Kind)

	containers, ok := s.Field("containers")
	require.True(t, ok)
	require.NotNil(t, containers.Items.Nested)
	assert.Equal(t, 1, containers.Items.Nested.Len())
}

func TestBuildDeterministic(t *testing.T) {
	for _, doc := range []string{deploymentDescriptor, nestedDescriptor} {
		a, err := Build(mustParse(t, doc))
		require.NoError(t, err)
		b, err := Build(mustParse(t, doc))
		require.NoError(t, err)

		assert.True(t, a.Equal(b))
		assert.True(t, b.Equal(a))
		assert.NotSame(t, a, b)
	}

	a, err := Build(mustParse(t, deploymentDescriptor))
	require.NoError(t, err)
	b, err := Build(mustParse(t, nestedDescriptor))
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
}

func TestBuildRejectsBadDefault(t *testing.T) {
	cases := map[string]string{
		"StringGotInteger": "name:\n  kind: string\n  default: 3\n",
		"IntegerGotString": "size:\n  kind: integer\n  default: big\n",
		"IntegerGotFloat":  "size:\n  kind: integer\n  default: 1.5\n",
		"ArrayItemKind":    "ports:\n  kind: array\n  items:\n    kind: integer\n  default: [a]\n",
		"NestedUnknown":    "res:\n  kind: object\n  properties:\n    cpu:\n      kind: string\n  default: {gpu: one}\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := Build(mustParse(t, doc))
			assert.Nil(t, s)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeDescriptorMalformed), err.Error())
		})
	}
}

func TestBuildMaxDepth(t *testing.T) {
	doc := `
a:
  kind: object
  properties:
    b:
      kind: object
      properties:
        c:
          kind: string
`
	_, err := Build(mustParse(t, doc), WithMaxDepth(2))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeDescriptorMalformed))

	_, err = Build(mustParse(t, doc), WithMaxDepth(3))
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	deployment, err := Build(mustParse(t, deploymentDescriptor))
	require.NoError(t, err)
	nested, err := Build(mustParse(t, nestedDescriptor))
	require.NoError(t, err)

	type want struct {
		object map[string]any
		field  string
		code   errors.ErrorCode
	}

	cases := map[string]struct {
		reason string
		schema *Schema
		values map[string]any
		want   want
	}{
		"DefaultFilled": {
			reason: "An omitted field should take its declared default.",
			schema: deployment,
			values: map[string]any{"replicas": 3},
			want: want{
				object: map[string]any{"replicas": int64(3), "image": "nginx"},
			},
		},
		"JSONNumber": {
			reason: "An integral float64 should be accepted as an integer.",
			schema: deployment,
			values: map[string]any{"replicas": float64(5), "image": "redis"},
			want: want{
				object: map[string]any{"replicas": int64(5), "image": "redis"},
			},
		},
		"NullIsAbsent": {
			reason: "A null value should behave like an omitted field.",
			schema: deployment,
			values: map[string]any{"replicas": nil},
			want: want{
				object: map[string]any{"replicas": int64(0), "image": "nginx"},
			},
		},
		"KindMismatch": {
			reason: "A string for an integer field should fail on that field.",
			schema: deployment,
			values: map[string]any{"replicas": "three"},
			want:   want{field: "replicas", code: errors.ErrorCodeSchemaValidation},
		},
		"FractionalInteger": {
			reason: "A fractional number is not an integer.",
			schema: deployment,
			values: map[string]any{"replicas": 1.5},
			want:   want{field: "replicas", code: errors.ErrorCodeSchemaValidation},
		},
		"BooleanNotInteger": {
			reason: "Booleans are never coerced.",
			schema: deployment,
			values: map[string]any{"replicas": true},
			want:   want{field: "replicas", code: errors.ErrorCodeSchemaValidation},
		},
		"UnknownField": {
			reason: "A field the descriptor does not declare should be rejected.",
			schema: deployment,
			values: map[string]any{"replica": 3},
			want:   want{field: "replica", code: errors.ErrorCodeSchemaValidation},
		},
		"NestedPreserved": {
			reason: "A nested record should be preserved verbatim, with nested defaults filled.",
			schema: nested,
			values: map[string]any{"resources": map[string]any{"cpu": "100m"}},
			want: want{
				object: map[string]any{
					"containers": []any{},
					"labels":     map[string]any{},
					"resources":  map[string]any{"cpu": "100m", "memory": "128Mi"},
					"tags":       []any{},
				},
			},
		},
		"NestedMismatch": {
			reason: "A nested kind mismatch should name the dotted path.",
			schema: nested,
			values: map[string]any{"resources": map[string]any{"cpu": 100}},
			want:   want{field: "resources.cpu", code: errors.ErrorCodeSchemaValidation},
		},
		"ItemMismatch": {
			reason: "An array element should be checked against the item kind.",
			schema: nested,
			values: map[string]any{"tags": []string{"a"}, "containers": []any{map[string]any{"name": "a"}, map[string]any{"name": 1}}},
			want:   want{field: "containers[1].name", code: errors.ErrorCodeSchemaValidation},
		},
		"RequiredMissing": {
			reason: "A required field without a default should be reported.",
			schema: nested,
			values: map[string]any{"containers": []any{map[string]any{}}},
			want:   want{field: "containers[0].name", code: errors.ErrorCodeSchemaValidation},
		},
		"FreeFormObject": {
			reason: "A free-form mapping should be normalized but otherwise kept.",
			schema: nested,
			values: map[string]any{"labels": map[string]string{"team": "a"}, "tags": []string{"x", "y"}},
			want: want{
				object: map[string]any{
					"containers": []any{},
					"labels":     map[string]any{"team": "a"},
					"resources":  map[string]any{"cpu": "", "memory": "128Mi"},
					"tags":       []any{"x", "y"},
				},
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := tc.schema.New(tc.values)
			if tc.want.code != "" {
				require.Error(t, err, tc.reason)
				assert.Nil(t, r)
				assert.True(t, errors.IsErrorCode(err, tc.want.code), err.Error())
				assert.Equal(t, tc.want.field, errors.FieldOf(err), tc.reason)
				assert.Error(t, tc.schema.Validate(tc.values))
				return
			}

			require.NoError(t, err, tc.reason)
			if diff := cmp.Diff(tc.want.object, r.Object()); diff != "" {
				t.Errorf("%s\nNew(...): -want, +got:\n%s", tc.reason, diff)
			}
			assert.NoError(t, tc.schema.Validate(tc.values))
		})
	}
}

func TestRecordAccess(t *testing.T) {
	s, err := Build(mustParse(t, nestedDescriptor))
	require.NoError(t, err)

	r, err := s.New(map[string]any{"resources": map[string]any{"cpu": "1"}})
	require.NoError(t, err)
	assert.Same(t, s, r.Schema())

	res, ok := r.Record("resources")
	require.True(t, ok)
	cpu, ok := res.Get("cpu")
	require.True(t, ok)
	assert.Equal(t, "1", cpu)

	_, ok = r.Record("tags")
	assert.False(t, ok)

	// copies never alias the record
	obj := r.Object()
	obj["resources"].(map[string]any)["cpu"] = "2"
	cpu, _ = res.Get("cpu")
	assert.Equal(t, "1", cpu)
	again, _ := r.Get("resources")
	assert.Equal(t, "1", again.(map[string]any)["cpu"])

	require.NoError(t, r.Set("tags", []any{"a"}))
	tags, _ := r.Get("tags")
	assert.Equal(t, []any{"a"}, tags)

	err = r.Set("tags", []any{1})
	require.Error(t, err)
	assert.Equal(t, "tags[0]", errors.FieldOf(err))

	require.NoError(t, r.Set("resources", nil))
	reset, _ := r.Get("resources")
	assert.Equal(t, map[string]any{"cpu": "", "memory": "128Mi"}, reset)

	err = r.Set("missing", "x")
	assert.True(t, errors.IsErrorCode(err, errors.ErrorCodeSchemaValidation))
}

func TestFieldsAreCopies(t *testing.T) {
	s, err := Build(mustParse(t, deploymentDescriptor))
	require.NoError(t, err)

	fields := s.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "image", fields[0].Name)
	assert.Equal(t, "replicas", fields[1].Name)
	assert.True(t, fields[0].Explicit)
	assert.Equal(t, int64(0), fields[1].Default)

	fields[0].Default = "changed"
	image, _ := s.Field("image")
	assert.Equal(t, "nginx", image.Default)
}
