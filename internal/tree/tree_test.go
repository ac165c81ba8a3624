package tree

import (
	"bytes"
	"testing"
)

func TestEqualPrimitives(t *testing.T) {
	if !Equal("bob", "bob") {
		t.Error("Identical strings should be equal")
	}
	if Equal("bob", "alice") {
		t.Error("Different strings should not be equal")
	}
	if !Equal(1, 1.0) {
		t.Error("Numeric values should compare by magnitude")
	}
	if !Equal(nil, nil) {
		t.Error("nil should equal nil")
	}
	if Equal(nil, false) {
		t.Error("nil should not equal false")
	}
}

func TestEqualTrees(t *testing.T) {
	a := Tree{"name": "bob", "profile": Tree{"age": 30, "tags": []any{"x", "y"}}}
	b := Tree{"profile": Tree{"tags": []any{"x", "y"}, "age": 30.0}, "name": "bob"}

	if !Equal(a, b) {
		t.Error("Structurally identical trees should be equal")
	}

	b["profile"].(Tree)["age"] = 31
	if Equal(a, b) {
		t.Error("Trees differing in a nested leaf should not be equal")
	}
}

func TestEqualArrayOrder(t *testing.T) {
	if Equal([]any{1, 2}, []any{2, 1}) {
		t.Error("Array order should matter")
	}
	if Equal([]any{1, 2}, []any{1, 2, 3}) {
		t.Error("Arrays of different length should not be equal")
	}
}

func TestCopyIsDeep(t *testing.T) {
	orig := Tree{"a": Tree{"x": 1}, "list": []any{1, 2}}
	cp := CopyTree(orig)

	if !Equal(orig, cp) {
		t.Fatal("Copy should equal the original")
	}

	cp["a"].(Tree)["x"] = 99
	cp["list"].([]any)[0] = 99

	if orig["a"].(Tree)["x"] != 1 {
		t.Error("Mutating the copy should not affect the original tree")
	}
	if orig["list"].([]any)[0] != 1 {
		t.Error("Mutating a copied array should not affect the original")
	}
}

func TestCanonicalStable(t *testing.T) {
	a := Tree{"b": 2, "a": 1, "nested": Tree{"y": true, "x": "v"}}
	b := Tree{"nested": Tree{"x": "v", "y": true}, "a": 1.0, "b": 2.0}

	ca, err := Canonical(a)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}
	cb, err := Canonical(b)
	if err != nil {
		t.Fatalf("Canonical failed: %v", err)
	}

	if !bytes.Equal(ca, cb) {
		t.Errorf("Equal trees should canonicalize identically: %s vs %s", ca, cb)
	}
}

func TestCanonicalRejectsUnsupported(t *testing.T) {
	if _, err := Canonical(Tree{"fn": func() {}}); err == nil {
		t.Error("Canonical should reject function values")
	}
}

func TestSum(t *testing.T) {
	a := Tree{"x": 1, "y": Tree{"z": "deep"}}
	b := Tree{"y": Tree{"z": "deep"}, "x": 1}

	ha, err := Sum(a)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	hb, err := Sum(b)
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}

	if ha != hb {
		t.Error("Equal values should hash identically")
	}

	hc, err := Sum(Tree{"x": 2})
	if err != nil {
		t.Fatalf("Sum failed: %v", err)
	}
	if ha == hc {
		t.Error("Different values should hash differently")
	}

	if len(ha.String()) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(ha.String()))
	}
}

func TestSumStringUnhashable(t *testing.T) {
	if got := SumString(Tree{"fn": func() {}}); got != "" {
		t.Errorf("Unhashable value should produce empty hash, got %q", got)
	}
}
