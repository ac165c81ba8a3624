package diff

import (
	"log/slog"
	"strings"

	"github.com/driftwood-io/driftwood/internal/similarity"
	"github.com/driftwood-io/driftwood/internal/tree"
)

// DefaultRenameThreshold is the minimum key-name similarity for a
// hash-matched relocation to read as a rename instead of a move.
const DefaultRenameThreshold = 0.5

// Differ computes operation lists between two Trees.
type Differ struct {
	log             *slog.Logger
	matcher         *similarity.Matcher
	renameThreshold float64
}

// Option configures a Differ.
type Option func(*Differ)

// WithLogger sets the logger used for advisory relocation messages.
func WithLogger(l *slog.Logger) Option {
	return func(d *Differ) { d.log = l }
}

// WithRenameThreshold overrides the rename/move key-similarity cutoff.
func WithRenameThreshold(t float64) Option {
	return func(d *Differ) { d.renameThreshold = t }
}

// New returns a Differ with default policies.
func New(opts ...Option) *Differ {
	d := &Differ{
		log:             slog.Default(),
		matcher:         similarity.NewMatcher(),
		renameThreshold: DefaultRenameThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Diff returns the operation list that transforms a into b: applying
// the result to a deep copy of a (default patch policies) yields a
// tree deep-equal to b. Equal trees produce an empty list.
//
// Within a tree level removals are emitted before additions and both
// follow lexical key order, so identical inputs always produce
// identical output.
func (d *Differ) Diff(a, b tree.Tree) List {
	if tree.Equal(a, b) {
		return nil
	}
	ops := d.walk(a, b, "")
	ops = d.pairByHash(ops)
	ops = d.pairBySimilarity(ops)
	for i := range ops {
		ops[i].Stable = true
	}
	return ops
}

// walk emits the raw operation list for one tree level and recurses
// into keys present on both sides.
func (d *Differ) walk(a, b tree.Tree, prefix string) List {
	var removed, added, common []string
	for _, k := range tree.SortedKeys(a) {
		if _, ok := b[k]; ok {
			common = append(common, k)
		} else {
			removed = append(removed, k)
		}
	}
	for _, k := range tree.SortedKeys(b) {
		if _, ok := a[k]; !ok {
			added = append(added, k)
		}
	}

	var ops List
	for _, k := range removed {
		ops = append(ops, d.leafOp(Remove, joinKey(prefix, k), a[k]))
	}
	for _, k := range added {
		ops = append(ops, d.leafOp(Add, joinKey(prefix, k), b[k]))
	}

	for _, k := range common {
		va, vb := a[k], b[k]
		if tree.Equal(va, vb) {
			continue
		}
		path := joinKey(prefix, k)

		ta, aIsTree := va.(tree.Tree)
		tb, bIsTree := vb.(tree.Tree)
		if aIsTree && bIsTree {
			ops = append(ops, d.walk(ta, tb, path)...)
			continue
		}

		// A primitive on either side makes the whole value opaque:
		// arrays and tree/primitive flips become a single update.
		op := Operation{
			Kind:     Update,
			Key:      path,
			OldValue: tree.Copy(va),
			NewValue: tree.Copy(vb),
			Stable:   true,
		}
		handlerNames(&op)
		ops = append(ops, op)
	}
	return ops
}

func (d *Differ) leafOp(kind Kind, key string, value any) Operation {
	op := Operation{
		Kind:      kind,
		Key:       key,
		Value:     tree.Copy(value),
		Stable:    tree.IsPrimitive(value),
		ValueHash: tree.SumString(value),
	}
	handlerNames(&op)
	return op
}

// pairByHash collapses remove/add pairs carrying an identical value
// hash into a single rename or move, inserted at the earlier of the
// two original positions. Pairing walks removes in list order and
// takes the first unconsumed add per hash, keeping output
// deterministic when several values hash identically.
func (d *Differ) pairByHash(ops List) List {
	addsByHash := make(map[string][]int)
	for i, op := range ops {
		if op.Kind == Add && op.ValueHash != "" {
			addsByHash[op.ValueHash] = append(addsByHash[op.ValueHash], i)
		}
	}

	used := make([]bool, len(ops))
	merged := make(map[int]Operation)

	for i, op := range ops {
		if op.Kind != Remove || op.ValueHash == "" || used[i] {
			continue
		}
		j := -1
		for _, ai := range addsByHash[op.ValueHash] {
			if !used[ai] {
				j = ai
				break
			}
		}
		if j < 0 {
			continue
		}
		used[i], used[j] = true, true
		merged[min(i, j)] = d.relocation(op, ops[j])
	}

	return rebuild(ops, used, merged)
}

// pairBySimilarity resolves removes that found no hash partner by
// comparing serialized subtrees. Only a perfect (zero edit distance)
// match collapses into a relocation; anything weaker is logged as
// advisory and deliberately left as a plain remove/add pair, because a
// guessed relocation would silently corrupt migrated data.
func (d *Differ) pairBySimilarity(ops List) List {
	used := make([]bool, len(ops))
	merged := make(map[int]Operation)

	addIdx := func() []int {
		var idx []int
		for i, op := range ops {
			if op.Kind == Add && !used[i] {
				idx = append(idx, i)
			}
		}
		return idx
	}

	for i, op := range ops {
		if op.Kind != Remove || used[i] || tree.IsPrimitive(op.Value) {
			continue
		}
		candidates := addIdx()
		if len(candidates) == 0 {
			break
		}
		values := make([]any, len(candidates))
		for n, ci := range candidates {
			values[n] = ops[ci].Value
		}
		best, ok := d.matcher.Best(op.Value, values)
		if !ok {
			continue
		}
		j := candidates[best.Index]
		if best.Distance == 0 {
			used[i], used[j] = true, true
			merged[min(i, j)] = d.relocation(op, ops[j])
			continue
		}
		d.log.Info("ambiguous relocation left unresolved",
			"removed", op.Key,
			"added", ops[j].Key,
			"distance", best.Distance)
	}

	return rebuild(ops, used, merged)
}

// relocation merges a remove/add pair into a rename or move. A pair
// whose keys share a parent and whose leaf names score at or above the
// rename threshold reads as a rename; everything else is a move.
func (d *Differ) relocation(rem, add Operation) Operation {
	kind := Move
	oldParent, oldLeaf := splitKey(rem.Key)
	newParent, newLeaf := splitKey(add.Key)
	if oldParent == newParent && d.matcher.KeySimilarity(oldLeaf, newLeaf) >= d.renameThreshold {
		kind = Rename
	}

	op := Operation{
		Kind:      kind,
		OldKey:    rem.Key,
		NewKey:    add.Key,
		Value:     add.Value,
		Stable:    true,
		ValueHash: add.ValueHash,
	}
	handlerNames(&op)
	return op
}

// rebuild drops consumed operations and substitutes merged ones at
// their anchor positions.
func rebuild(ops List, used []bool, merged map[int]Operation) List {
	if len(merged) == 0 {
		return ops
	}
	out := make(List, 0, len(ops))
	for i, op := range ops {
		if m, ok := merged[i]; ok {
			out = append(out, m)
			continue
		}
		if used[i] {
			continue
		}
		out = append(out, op)
	}
	return out
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// splitKey separates a dotted path into parent path and leaf name.
func splitKey(key string) (parent, leaf string) {
	if i := strings.LastIndex(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return "", key
}
