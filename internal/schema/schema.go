// Package schema models structured-data schemas as Trees. A schema maps
// field names to field specs; a field spec is a Tree carrying "type"
// plus optional "required", "default" and "choices" metadata, or a
// nested "shape" holding the sub-schema of a structured field. Keys
// prefixed "__meta" and keys named "form" describe presentation, not
// instance data.
package schema

import (
	"fmt"
	"strings"

	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/patch"
	"github.com/driftwood-io/driftwood/internal/tree"
)

const (
	// MetaPrefix marks schema-only keys that never appear in data.
	MetaPrefix = "__meta"

	// FormKey groups fields for UI rendering; purely cosmetic.
	FormKey = "form"
)

// Field type names understood by the validators.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Validator reports whether a value is acceptable for a field.
type Validator func(value any) bool

// typeValidators maps field type names to their primitive checks.
var typeValidators = map[string]Validator{
	TypeString: func(v any) bool {
		_, ok := v.(string)
		return ok
	},
	TypeNumber: func(v any) bool {
		switch v.(type) {
		case int, int8, int16, int32, int64, float32, float64,
			uint, uint8, uint16, uint32, uint64:
			return true
		}
		return false
	},
	TypeBoolean: func(v any) bool {
		_, ok := v.(bool)
		return ok
	},
	TypeArray: func(v any) bool {
		_, ok := v.([]any)
		return ok
	},
}

// Model is one named schema. Embedded sub-schemas are listed in Embeds
// so the registry can process children before the models embedding
// them. Custom validators live here, outside the Def tree, so they
// never count as schema drift.
type Model struct {
	Name       string
	Def        tree.Tree
	Embeds     []*Model
	Validators map[string]Validator // field path -> extra check
}

// IsFieldSpec reports whether v looks like a single field spec.
func IsFieldSpec(v any) bool {
	t, ok := v.(tree.Tree)
	if !ok {
		return false
	}
	_, hasType := t["type"]
	_, hasShape := t["shape"]
	return hasType || hasShape
}

// zeroValue returns the data value a field of the given type starts
// with when no default is declared.
func zeroValue(typeName any) any {
	switch typeName {
	case TypeString:
		return ""
	case TypeNumber:
		return 0.0
	case TypeBoolean:
		return false
	case TypeArray:
		return []any{}
	default:
		return nil
	}
}

// FieldValue converts one field spec into its initial data value: the
// declared default, the type's zero value, or a nested data object for
// shaped fields.
func FieldValue(spec tree.Tree) any {
	if shape, ok := spec["shape"].(tree.Tree); ok {
		return NewData(shape)
	}
	if def, ok := spec["default"]; ok {
		return tree.Copy(def)
	}
	return zeroValue(spec["type"])
}

// NewData projects a schema definition into a fresh data Tree with
// every field at its initial value. Meta and form keys are dropped.
func NewData(def tree.Tree) tree.Tree {
	data := tree.Tree{}
	for name, spec := range def {
		if strings.HasPrefix(name, MetaPrefix) || name == FormKey {
			continue
		}
		fs, ok := spec.(tree.Tree)
		if !ok {
			// Shorthand declaration: "name": "string".
			data[name] = zeroValue(spec)
			continue
		}
		data[name] = FieldValue(fs)
	}
	return data
}

// StripCosmetic returns a copy of def without presentation-only
// content: form groupings and __meta UI keys. Drift detection runs on
// the stripped form so cosmetic edits never bump a schema version.
func StripCosmetic(def tree.Tree) tree.Tree {
	out := tree.Tree{}
	for name, v := range def {
		if name == FormKey || strings.HasPrefix(name, MetaPrefix) {
			continue
		}
		if sub, ok := v.(tree.Tree); ok {
			out[name] = StripCosmetic(sub)
			continue
		}
		out[name] = tree.Copy(v)
	}
	return out
}

// ProjectionHandler builds the ChangeHandler that reprojects a
// schema-level diff onto data-level objects: meta and default/choices
// keys are skipped, the ".shape" nesting a schema uses for structured
// fields is stripped (data has no such level), and assigned values are
// forced through schema-to-data conversion.
func ProjectionHandler() *patch.ChangeHandler {
	return &patch.ChangeHandler{
		IgnoreKey: func(key string, kind diff.Kind) bool {
			segs := strings.Split(key, ".")
			for _, seg := range segs {
				if strings.HasPrefix(seg, MetaPrefix) || seg == FormKey {
					return true
				}
			}
			last := segs[len(segs)-1]
			return last == "default" || last == "choices"
		},
		FilterKey: func(key string) string {
			segs := strings.Split(key, ".")
			kept := segs[:0]
			for _, seg := range segs {
				if seg == "shape" {
					continue
				}
				kept = append(kept, seg)
			}
			return strings.Join(kept, ".")
		},
		TransformValue: func(key string, value any) any {
			cp := tree.Copy(value)
			if t, ok := cp.(tree.Tree); ok && IsFieldSpec(t) {
				return FieldValue(t)
			}
			return cp
		},
	}
}

// ValidationError reports a rejected Set call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// Record wraps a data Tree together with its Model and validates every
// assignment explicitly. Field paths are dotted and descend through
// shaped fields.
type Record struct {
	model *Model
	data  tree.Tree
}

// NewRecord returns a Record initialized from the model's defaults.
func NewRecord(m *Model) *Record {
	return &Record{model: m, data: NewData(m.Def)}
}

// Data exposes the backing Tree.
func (r *Record) Data() tree.Tree { return r.data }

// Get returns the current value of a field.
func (r *Record) Get(field string) (any, bool) {
	parent, prop, err := resolveData(r.data, field)
	if err != nil || parent == nil {
		return nil, false
	}
	v, ok := parent[prop]
	return v, ok
}

// Set validates value against the field's spec and assigns it.
func (r *Record) Set(field string, value any) error {
	spec, err := r.fieldSpec(field)
	if err != nil {
		return err
	}

	if value == nil {
		if req, _ := spec["required"].(bool); req {
			return &ValidationError{Field: field, Reason: "required field cannot be unset"}
		}
	} else {
		if typeName, ok := spec["type"].(string); ok {
			check, known := typeValidators[typeName]
			if known && !check(value) {
				return &ValidationError{
					Field:  field,
					Reason: fmt.Sprintf("value %v is not a %s", value, typeName),
				}
			}
		}
		if choices, ok := spec["choices"].([]any); ok {
			found := false
			for _, c := range choices {
				if tree.Equal(c, value) {
					found = true
					break
				}
			}
			if !found {
				return &ValidationError{
					Field:  field,
					Reason: fmt.Sprintf("value %v is not among the declared choices", value),
				}
			}
		}
	}

	if r.model.Validators != nil {
		if check, ok := r.model.Validators[field]; ok && !check(value) {
			return &ValidationError{Field: field, Reason: "rejected by custom validator"}
		}
	}

	parent, prop, err := resolveData(r.data, field)
	if err != nil {
		return err
	}
	parent[prop] = value
	return nil
}

// fieldSpec walks the schema definition along a dotted data path,
// descending through "shape" levels.
func (r *Record) fieldSpec(field string) (tree.Tree, error) {
	cur := r.model.Def
	segs := strings.Split(field, ".")
	for i, seg := range segs {
		raw, ok := cur[seg]
		if !ok {
			return nil, &ValidationError{Field: field, Reason: "no such field in schema"}
		}
		spec, ok := raw.(tree.Tree)
		if !ok {
			// Shorthand field; synthesize a spec from the type name.
			if i != len(segs)-1 {
				return nil, &ValidationError{Field: field, Reason: "not a structured field"}
			}
			if s, isStr := raw.(string); isStr {
				return tree.Tree{"type": s}, nil
			}
			return nil, &ValidationError{Field: field, Reason: "malformed field spec"}
		}
		if i == len(segs)-1 {
			return spec, nil
		}
		shape, ok := spec["shape"].(tree.Tree)
		if !ok {
			return nil, &ValidationError{Field: field, Reason: "not a structured field"}
		}
		cur = shape
	}
	return nil, &ValidationError{Field: field, Reason: "empty field path"}
}

// resolveData walks the data tree to the parent of a dotted field,
// allocating intermediate Trees so Set works on fresh records.
func resolveData(data tree.Tree, field string) (tree.Tree, string, error) {
	segs := strings.Split(field, ".")
	cur := data
	for i := 0; i < len(segs)-1; i++ {
		next, present := cur[segs[i]]
		if !present {
			child := tree.Tree{}
			cur[segs[i]] = child
			cur = child
			continue
		}
		child, ok := next.(tree.Tree)
		if !ok {
			return nil, "", &ValidationError{
				Field:  field,
				Reason: fmt.Sprintf("segment %q is not structured", segs[i]),
			}
		}
		cur = child
	}
	return cur, segs[len(segs)-1], nil
}
