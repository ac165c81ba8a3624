// Package similarity scores how alike two subtrees (or two key names)
// are, using Levenshtein edit distance over their serialized forms. The
// diff engine uses it to tell a genuine relocation apart from an
// unrelated remove/add pair.
package similarity

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/driftwood-io/driftwood/internal/tree"
)

// Matcher computes edit distances between serialized values.
type Matcher struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewMatcher returns a ready-to-use Matcher.
func NewMatcher() *Matcher {
	return &Matcher{dmp: diffmatchpatch.New()}
}

// Distance returns the Levenshtein edit distance between the canonical
// serializations of a and b. Zero means the serializations are
// byte-for-byte identical. Values that cannot be serialized are treated
// as maximally distant.
func (m *Matcher) Distance(a, b any) int {
	ca, errA := tree.Canonical(a)
	cb, errB := tree.Canonical(b)
	if errA != nil || errB != nil {
		return maxInt(len(ca), len(cb)) + 1
	}
	return m.textDistance(string(ca), string(cb))
}

// Match is one scored pairing of a removed value against an added one.
type Match struct {
	Index    int // index into the candidate slice
	Distance int
}

// Best returns the candidate with the smallest edit distance to value,
// or ok=false when there are no candidates. Ties resolve to the first
// candidate in slice order, keeping the result deterministic.
func (m *Matcher) Best(value any, candidates []any) (Match, bool) {
	best := Match{Index: -1}
	for i, cand := range candidates {
		d := m.Distance(value, cand)
		if best.Index < 0 || d < best.Distance {
			best = Match{Index: i, Distance: d}
		}
	}
	return best, best.Index >= 0
}

// KeySimilarity scores two key names on a 0.0–1.0 scale, 1.0 meaning
// identical. Used to decide whether a matched relocation reads as a
// rename (similar names) or a move (unrelated names).
func (m *Matcher) KeySimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := maxInt(len(a), len(b))
	if longest == 0 {
		return 1.0
	}
	d := m.textDistance(a, b)
	return 1.0 - float64(d)/float64(longest)
}

func (m *Matcher) textDistance(a, b string) int {
	diffs := m.dmp.DiffMain(a, b, false)
	return m.dmp.DiffLevenshtein(diffs)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
