// Package patch applies an operation list to a concrete Tree. Pluggable
// policies decide which keys to skip, how to rewrite key paths and how
// to transform values in flight, which is what lets a schema-level diff
// be replayed against plain data records.
package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/tree"
)

// ErrStructuralMismatch reports that a key path ran into a primitive
// where a nested Tree was required. It is fatal to the Apply call.
var ErrStructuralMismatch = errors.New("structural mismatch")

// Hook is invoked with the resolved parent Tree and property name of
// the key an operation addresses, before the mutation for remove,
// update, move and rename (so it can capture the outgoing value) and
// after it for add (so it can adjust the freshly set value).
type Hook func(parent tree.Tree, prop string, op diff.Operation)

// Hooks maps handler names (Operation.Fn) to callbacks. Lookup is an
// explicit map access, never dynamic dispatch.
type Hooks map[string]Hook

// ChangeHandler bundles the three policy functions plus named hooks.
// A zero-valued handler applies identity policies.
type ChangeHandler struct {
	// IgnoreKey skips an operation entirely when it returns true.
	IgnoreKey func(key string, kind diff.Kind) bool

	// FilterKey rewrites the key path an operation is applied at.
	// Returning the empty string drops the operation.
	FilterKey func(key string) string

	// TransformValue rewrites the value assigned by add and update
	// operations. The key passed is the original, unfiltered path.
	TransformValue func(key string, value any) any

	Hooks Hooks
}

// Default returns the identity ChangeHandler used for data-vs-data
// patching.
func Default() *ChangeHandler {
	return &ChangeHandler{}
}

// Apply replays ops against target in list order, mutating target in
// place, and returns it. The first structural mismatch aborts the call.
func Apply(ops diff.List, target tree.Tree, handler *ChangeHandler) (tree.Tree, error) {
	if handler == nil {
		handler = Default()
	}
	for _, op := range ops {
		if err := applyOne(op, target, handler); err != nil {
			return nil, err
		}
	}
	return target, nil
}

func applyOne(op diff.Operation, target tree.Tree, h *ChangeHandler) error {
	switch op.Kind {
	case diff.Add:
		key, ok := h.effectiveKey(op.Key, op.Kind)
		if !ok {
			return nil
		}
		parent, prop, err := resolve(target, key, true)
		if err != nil {
			return err
		}
		parent[prop] = h.transform(op.Key, op.Value)
		h.invoke(op, parent, prop)
		return nil

	case diff.Remove:
		key, ok := h.effectiveKey(op.Key, op.Kind)
		if !ok {
			return nil
		}
		parent, prop, err := resolve(target, key, false)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		h.invoke(op, parent, prop)
		delete(parent, prop)
		return nil

	case diff.Update:
		key, ok := h.effectiveKey(op.Key, op.Kind)
		if !ok {
			return nil
		}
		parent, prop, err := resolve(target, key, true)
		if err != nil {
			return err
		}
		h.invoke(op, parent, prop)
		parent[prop] = h.transform(op.Key, op.NewValue)
		return nil

	case diff.Move, diff.Rename:
		oldKey, ok := h.effectiveKey(op.OldKey, op.Kind)
		if !ok {
			return nil
		}
		newKey, ok := h.effectiveKey(op.NewKey, op.Kind)
		if !ok {
			return nil
		}
		oldParent, oldProp, err := resolve(target, oldKey, false)
		if err != nil {
			return err
		}
		if oldParent == nil {
			return nil
		}
		newParent, newProp, err := resolve(target, newKey, true)
		if err != nil {
			return err
		}
		h.invoke(op, oldParent, oldProp)
		newParent[newProp] = oldParent[oldProp]
		delete(oldParent, oldProp)
		return nil

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (h *ChangeHandler) effectiveKey(key string, kind diff.Kind) (string, bool) {
	if h.IgnoreKey != nil && h.IgnoreKey(key, kind) {
		return "", false
	}
	if h.FilterKey != nil {
		key = h.FilterKey(key)
		if key == "" {
			return "", false
		}
	}
	return key, true
}

func (h *ChangeHandler) transform(key string, value any) any {
	if h.TransformValue != nil {
		return h.TransformValue(key, value)
	}
	return tree.Copy(value)
}

func (h *ChangeHandler) invoke(op diff.Operation, parent tree.Tree, prop string) {
	if h.Hooks == nil {
		return
	}
	if hook, ok := h.Hooks[op.Fn]; ok && hook != nil {
		hook(parent, prop, op)
	}
}

// resolve walks target to the parent Tree of a dotted key path and
// returns it with the leaf property name. With create set, missing
// intermediate Trees are allocated; without it, a missing branch
// yields a nil parent. A primitive in an intermediate position is a
// structural mismatch either way.
func resolve(target tree.Tree, key string, create bool) (tree.Tree, string, error) {
	segs := strings.Split(key, ".")
	cur := target
	for i := 0; i < len(segs)-1; i++ {
		next, present := cur[segs[i]]
		if !present {
			if !create {
				return nil, "", nil
			}
			child := tree.Tree{}
			cur[segs[i]] = child
			cur = child
			continue
		}
		child, ok := next.(tree.Tree)
		if !ok {
			return nil, "", fmt.Errorf("key %q: segment %q is not a tree: %w",
				key, strings.Join(segs[:i+1], "."), ErrStructuralMismatch)
		}
		cur = child
	}
	return cur, segs[len(segs)-1], nil
}

// Reverse inverts ops in place and returns it: list order flips,
// fn/rollback swap, add and remove exchange kinds, and old/new values
// and keys swap. Reversing twice restores the original list exactly.
func Reverse(ops diff.List) diff.List {
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	for i := range ops {
		op := &ops[i]
		op.Fn, op.Rollback = op.Rollback, op.Fn
		op.Kind = op.Kind.Inverse()
		op.OldValue, op.NewValue = op.NewValue, op.OldValue
		op.OldKey, op.NewKey = op.NewKey, op.OldKey
	}
	return ops
}
