package tree

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Hash represents a BLAKE3-256 hash of a value's canonical serialization.
type Hash [32]byte

// String returns the hexadecimal representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Sum computes the BLAKE3 hash of v's canonical form. Two values hash
// identically exactly when they are deep-equal, which is what pairs
// relocation candidates in the diff engine.
func Sum(v any) (Hash, error) {
	data, err := Canonical(v)
	if err != nil {
		return Hash{}, err
	}
	return blake3.Sum256(data), nil
}

// SumString is Sum rendered as a hex string, with a hash failure
// reported as the empty string. Values that cannot be canonicalized
// simply never pair.
func SumString(v any) string {
	h, err := Sum(v)
	if err != nil {
		return ""
	}
	return h.String()
}
