// Package tree provides the universal nested-map representation used for
// both schema definitions and plain data records, along with deep equality,
// deep copy and canonical serialization utilities.
package tree

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Tree is a string-keyed mapping whose values are either primitives
// (bool, number, string, array of primitives) or nested Trees.
type Tree = map[string]any

// IsTree reports whether v is a nested Tree.
func IsTree(v any) bool {
	_, ok := v.(Tree)
	return ok
}

// IsPrimitive reports whether v is treated as a primitive for diff
// purposes. Arrays are opaque primitives: they are never diffed
// element-wise.
func IsPrimitive(v any) bool {
	return !IsTree(v)
}

// Equal reports deep structural equality between two values. Numeric
// values compare by magnitude regardless of their concrete Go type, so
// a Tree decoded from JSON (float64) equals the same Tree decoded from
// YAML (int).
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}

	switch av := a.(type) {
	case Tree:
		bv, ok := b.(Tree)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, present := bv[k]
			if !present || !Equal(v, bval) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// Copy returns a deep copy of v. Trees and arrays are copied
// recursively; primitives are returned as-is.
func Copy(v any) any {
	switch val := v.(type) {
	case Tree:
		out := make(Tree, len(val))
		for k, item := range val {
			out[k] = Copy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Copy(item)
		}
		return out
	default:
		return v
	}
}

// CopyTree is Copy specialized for a whole Tree.
func CopyTree(t Tree) Tree {
	if t == nil {
		return nil
	}
	return Copy(t).(Tree)
}

// Canonical serializes v deterministically: identical values always
// produce identical bytes. Map keys are emitted in sorted order and
// numbers are normalized, so the output is stable across JSON and YAML
// decoding.
func Canonical(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(norm)
}

// SortedKeys returns the keys of t in lexical order.
func SortedKeys(t Tree) []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalize rewrites numeric values to float64 so that Canonical output
// does not depend on the decoder that produced the Tree.
func normalize(v any) (any, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	switch val := v.(type) {
	case nil, bool, string:
		return val, nil
	case Tree:
		out := make(Tree, len(val))
		for k, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		// yaml.v2 style maps; yaml.v3 produces map[string]any but
		// guard anyway.
		out := make(Tree, len(val))
		for k, item := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string map key %v", k)
			}
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
