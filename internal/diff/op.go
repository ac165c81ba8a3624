// Package diff implements the structural tree-diff engine. It walks two
// Trees, emits an ordered operation list, and post-processes the list to
// recognize renames and moves among otherwise unrelated add/remove pairs.
package diff

import "encoding/json"

// Kind identifies the type of a single structural change.
type Kind string

const (
	Add    Kind = "add"
	Remove Kind = "remove"
	Update Kind = "update"
	Move   Kind = "move"
	Rename Kind = "rename"
)

// Inverse returns the Kind that undoes this one.
func (k Kind) Inverse() Kind {
	switch k {
	case Add:
		return Remove
	case Remove:
		return Add
	default:
		return k
	}
}

// Operation is one structural change between two Trees.
//
// Add, Remove and Update address a single dotted key path via Key.
// Move and Rename carry the source and destination paths in OldKey and
// NewKey. Fn and Rollback are the deterministic handler names exposed
// by generated migration scripts.
type Operation struct {
	Kind Kind `json:"op"`

	Key    string `json:"key,omitempty"`
	OldKey string `json:"oldKey,omitempty"`
	NewKey string `json:"newKey,omitempty"`

	Value    any `json:"value,omitempty"`
	OldValue any `json:"oldValue,omitempty"`
	NewValue any `json:"newValue,omitempty"`

	Fn       string `json:"fn,omitempty"`
	Rollback string `json:"rollback,omitempty"`

	// Stable is false while an add or remove is still a relocation
	// candidate. Every operation in a returned list is stable; the
	// flag only flips during the pairing passes.
	Stable bool `json:"stable"`

	// ValueHash pairs add/remove operations carrying the same value.
	ValueHash string `json:"valueHash,omitempty"`
}

// Path returns the key path an operation primarily addresses: Key for
// add/remove/update, NewKey for move/rename.
func (o Operation) Path() string {
	if o.Key != "" {
		return o.Key
	}
	return o.NewKey
}

// List is an ordered sequence of operations. Order is significant:
// operations must be applied top-down because later entries may depend
// on keys created or removed by earlier ones.
type List []Operation

// Empty reports whether the list contains no operations.
func (l List) Empty() bool { return len(l) == 0 }

// Marshal renders the list as indented JSON, the interchange form used
// by the CLI and by migration artifacts.
func (l List) Marshal() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalList parses a list previously produced by Marshal.
func UnmarshalList(data []byte) (List, error) {
	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return l, nil
}
