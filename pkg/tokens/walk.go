// Package tokens walks nested token lists and spawns a pod for every SPAWN
// token found.
package tokens

import (
	"reflect"
)

// Spawn is the token that triggers a pod
const Spawn = "SPAWN"

// Token is one leaf of a token tree
type Token struct {
	// Path holds the list indexes leading to the leaf
	Path  []int
	Value any
}

// IsSpawn reports whether the token is the SPAWN sentinel
func (t Token) IsSpawn() bool {
	s, ok := t.Value.(string)
	return ok && s == Spawn
}

// Walk visits every leaf of tokens depth-first, left to right. Lists may nest
// arbitrarily; anything that is not a list is a leaf. A non-nil error from
// visit stops the walk and is returned.
func Walk(tokens any, visit func(Token) error) error {
	if tokens == nil {
		return nil
	}
	return walk(tokens, nil, visit)
}

func walk(v any, path []int, visit func(Token) error) error {
	items, ok := asList(v)
	if !ok {
		return visit(Token{Path: append([]int(nil), path...), Value: v})
	}
	for i, item := range items {
		if err := walk(item, append(path, i), visit); err != nil {
			return err
		}
	}
	return nil
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case string, nil:
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
