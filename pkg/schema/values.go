package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"k8s.io/apimachinery/pkg/runtime"

	"github.com/crossplane/function-crd-record/pkg/errors"
)

// kindOf names the primitive kind of a candidate value for error messages
func kindOf(v any) string {
	if v == nil {
		return "null"
	}
	switch n := v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32:
		if _, ok := integral(float64(n)); ok {
			return "integer"
		}
		return "number"
	case float64:
		if _, ok := integral(n); ok {
			return "integer"
		}
		return "number"
	case json.Number:
		if _, err := n.Int64(); err == nil {
			return "integer"
		}
		return "number"
	case map[string]any:
		return "object"
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// toInt64 accepts any Go integer, an integral float (JSON numbers) or an
// integral json.Number. Strings and booleans are never converted.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return integral(n)
	case float32:
		return integral(float64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

// toSlice returns the elements of any slice or array value
func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// toMap returns a string-keyed mapping
func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	if r, ok := v.(*Record); ok && r != nil {
		return r.values, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// normalizeJSON converts a free-form value into the JSON-compatible types
// unstructured objects accept: string, bool, int64, float64, nil,
// map[string]any and []any.
func normalizeJSON(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t, nil
	case float32:
		return float64(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, errors.SchemaValidationError(path, "invalid number").WithCause(err)
		}
		return f, nil
	}

	if n, ok := toInt64(v); ok {
		return n, nil
	}

	if m, ok := toMap(v); ok {
		out := make(map[string]any, len(m))
		for k, e := range m {
			c, err := normalizeJSON(e, path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil
	}

	if s, ok := toSlice(v); ok {
		out := make([]any, len(s))
		for i, e := range s {
			c, err := normalizeJSON(e, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	return nil, errors.SchemaValidationError(path, fmt.Sprintf("unsupported value type %T", v))
}

// deepCopy copies a normalized value
func deepCopy(v any) any {
	return runtime.DeepCopyJSONValue(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
