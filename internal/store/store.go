// Package store persists schema versions and migration artifacts. Two
// backends implement the same interface: DirStore keeps versioned JSON
// files next to each other, BoltStore keeps zstd-compressed snapshots
// in a bbolt database.
package store

import (
	"errors"
	"fmt"

	"github.com/driftwood-io/driftwood/internal/tree"
)

var (
	// ErrNotReady reports persistence attempted without a configured
	// backend.
	ErrNotReady = errors.New("schema store is not configured")

	// ErrNotFound reports a missing schema or migration artifact.
	ErrNotFound = errors.New("not found in schema store")
)

// Stored is one persisted schema version.
type Stored struct {
	Name    string    `json:"name"`
	Version int       `json:"version"`
	Def     tree.Tree `json:"def"`
}

// ArtifactName is the deterministic name of the migration artifact
// taking a schema from one version to the next.
func ArtifactName(name string, from, to int) string {
	return fmt.Sprintf("%s.v%d.to.v%d", name, from, to)
}

// Store is the persistence boundary of the migration pipeline. The
// pipeline assumes exclusive access for the duration of a registration
// pass; callers serialize registration themselves.
type Store interface {
	// LoadLatest returns the highest stored version of a schema, or
	// (nil, nil) when the schema has never been persisted.
	LoadLatest(name string) (*Stored, error)

	// Load returns one specific stored version.
	Load(name string, version int) (*Stored, error)

	// Save persists a schema version.
	Save(s Stored) error

	// SaveMigration persists a rendered migration script for the
	// from -> to transition of a schema.
	SaveMigration(name string, from, to int, script []byte) error

	// LoadMigration returns a previously saved migration script.
	LoadMigration(name string, from, to int) ([]byte, error)

	// Names lists all schema names with at least one stored version,
	// sorted lexically.
	Names() ([]string, error)

	// Close releases backend resources.
	Close() error
}
