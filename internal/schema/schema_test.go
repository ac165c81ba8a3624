package schema

import (
	"errors"
	"testing"

	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/patch"
	"github.com/driftwood-io/driftwood/internal/tree"
)

func userV1() tree.Tree {
	return tree.Tree{
		"name":     tree.Tree{"type": TypeString, "required": true},
		"age":      tree.Tree{"type": TypeNumber, "default": 18},
		"verified": tree.Tree{"type": TypeBoolean},
		"form":     tree.Tree{"basics": []any{"name", "age"}},
	}
}

func TestNewData(t *testing.T) {
	data := NewData(userV1())

	want := tree.Tree{
		"name":     "",
		"age":      18,
		"verified": false,
	}
	if !tree.Equal(data, want) {
		t.Errorf("Expected %v, got %v", want, data)
	}
	if _, ok := data["form"]; ok {
		t.Error("Cosmetic form key should not appear in data")
	}
}

func TestNewDataShapedField(t *testing.T) {
	def := tree.Tree{
		"profile": tree.Tree{
			"shape": tree.Tree{
				"email": tree.Tree{"type": TypeString},
				"tags":  tree.Tree{"type": TypeArray},
			},
		},
	}

	data := NewData(def)
	want := tree.Tree{"profile": tree.Tree{"email": "", "tags": []any{}}}
	if !tree.Equal(data, want) {
		t.Errorf("Expected %v, got %v", want, data)
	}
}

func TestNewDataShorthandField(t *testing.T) {
	data := NewData(tree.Tree{"nick": TypeString})
	if !tree.Equal(data, tree.Tree{"nick": ""}) {
		t.Errorf("Shorthand string field should default to empty string, got %v", data)
	}
}

func TestFieldValueDefaultIsCopied(t *testing.T) {
	def := []any{"a", "b"}
	spec := tree.Tree{"type": TypeArray, "default": def}

	v := FieldValue(spec)
	v.([]any)[0] = "mutated"
	if def[0] != "a" {
		t.Error("FieldValue must copy declared defaults, not alias them")
	}
}

func TestStripCosmetic(t *testing.T) {
	def := userV1()
	def["__meta_order"] = []any{"name"}
	def["name"].(tree.Tree)["__meta_label"] = "Full name"

	stripped := StripCosmetic(def)
	if _, ok := stripped["form"]; ok {
		t.Error("form key should be stripped")
	}
	if _, ok := stripped["__meta_order"]; ok {
		t.Error("__meta keys should be stripped")
	}
	if _, ok := stripped["name"].(tree.Tree)["__meta_label"]; ok {
		t.Error("Nested __meta keys should be stripped")
	}
	if _, ok := stripped["name"].(tree.Tree)["required"]; !ok {
		t.Error("Real spec keys must survive stripping")
	}

	// Cosmetic-only edits diff to nothing after stripping.
	other := userV1()
	other["form"] = tree.Tree{"basics": []any{"age"}}
	if ops := diff.New().Diff(StripCosmetic(def), StripCosmetic(other)); !ops.Empty() {
		t.Errorf("Cosmetic edit should not produce drift, got %v", ops)
	}
}

func TestProjectionHandlerEndToEnd(t *testing.T) {
	v1 := userV1()
	v2 := tree.Tree{
		"username": tree.Tree{"type": TypeString, "required": true},
		"age":      tree.Tree{"type": TypeNumber, "default": 21},
		"verified": tree.Tree{"type": TypeBoolean},
		"admin":    tree.Tree{"type": TypeBoolean, "default": false},
		"profile": tree.Tree{
			"shape": tree.Tree{"email": tree.Tree{"type": TypeString}},
		},
		"form": tree.Tree{"basics": []any{"username"}},
	}

	ops := diff.New().Diff(v1, v2)

	record := tree.Tree{"name": "bob", "age": 30, "verified": true}
	got, err := patch.Apply(ops, record, ProjectionHandler())
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := tree.Tree{
		"username": "bob",
		"age":      30,
		"verified": true,
		"admin":    false,
		"profile":  tree.Tree{"email": ""},
	}
	if !tree.Equal(got, want) {
		t.Errorf("Projected migration mismatch.\nGot:  %v\nWant: %v", got, want)
	}
}

func TestProjectionHandlerIgnoresMetaAndDefaults(t *testing.T) {
	h := ProjectionHandler()

	for _, key := range []string{
		"form.basics",
		"__meta_order",
		"name.__meta_label",
		"age.default",
		"role.choices",
	} {
		if !h.IgnoreKey(key, diff.Update) {
			t.Errorf("Key %q should be ignored during projection", key)
		}
	}
	if h.IgnoreKey("name.required", diff.Update) {
		t.Error("required is a structural key and must not be ignored")
	}
}

func TestProjectionHandlerStripsShapeSegments(t *testing.T) {
	h := ProjectionHandler()

	if got := h.FilterKey("profile.shape.email"); got != "profile.email" {
		t.Errorf("Expected profile.email, got %q", got)
	}
	if got := h.FilterKey("a.shape.b.shape.c"); got != "a.b.c" {
		t.Errorf("Expected a.b.c, got %q", got)
	}
}

func TestRecordSetValidation(t *testing.T) {
	m := &Model{
		Name: "User",
		Def: tree.Tree{
			"name": tree.Tree{"type": TypeString, "required": true},
			"age":  tree.Tree{"type": TypeNumber, "default": 18},
			"role": tree.Tree{"type": TypeString, "choices": []any{"admin", "member"}},
		},
	}
	r := NewRecord(m)

	if err := r.Set("name", "bob"); err != nil {
		t.Fatalf("Valid assignment rejected: %v", err)
	}
	if err := r.Set("age", "thirty"); err == nil {
		t.Error("Type mismatch should be rejected")
	}
	if err := r.Set("name", nil); err == nil {
		t.Error("Unsetting a required field should be rejected")
	}
	if err := r.Set("role", "root"); err == nil {
		t.Error("Value outside choices should be rejected")
	}
	if err := r.Set("role", "admin"); err != nil {
		t.Errorf("Declared choice rejected: %v", err)
	}
	if err := r.Set("nope", 1); err == nil {
		t.Error("Unknown field should be rejected")
	}

	var verr *ValidationError
	if err := r.Set("age", "x"); !errors.As(err, &verr) {
		t.Errorf("Expected *ValidationError, got %T", err)
	}
}

func TestRecordSetNestedField(t *testing.T) {
	m := &Model{
		Name: "User",
		Def: tree.Tree{
			"profile": tree.Tree{
				"shape": tree.Tree{"email": tree.Tree{"type": TypeString}},
			},
		},
	}
	r := NewRecord(m)

	if err := r.Set("profile.email", "a@b.c"); err != nil {
		t.Fatalf("Nested assignment rejected: %v", err)
	}
	v, ok := r.Get("profile.email")
	if !ok || v != "a@b.c" {
		t.Errorf("Expected a@b.c, got %v", v)
	}
	if err := r.Set("profile.email", 5); err == nil {
		t.Error("Nested type mismatch should be rejected")
	}
}

func TestRecordCustomValidator(t *testing.T) {
	m := &Model{
		Name: "User",
		Def:  tree.Tree{"age": tree.Tree{"type": TypeNumber}},
		Validators: map[string]Validator{
			"age": func(v any) bool {
				n, ok := v.(int)
				return ok && n >= 0
			},
		},
	}
	r := NewRecord(m)

	if err := r.Set("age", -1); err == nil {
		t.Error("Custom validator should reject negative ages")
	}
	if err := r.Set("age", 7); err != nil {
		t.Errorf("Custom validator should accept 7: %v", err)
	}
}
