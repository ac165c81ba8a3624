// Package registry implements schema drift detection. A Registry owns a
// schema store handle and compares freshly declared models against their
// last persisted version: first-time schemas persist as version 1,
// cosmetic-only changes are no-ops, and real drift bumps the version,
// writes a migration artifact and fails registration so no caller keeps
// using stale data against the new shape.
//
// The registry is an explicit object passed by handle, never process
// state; its lifecycle is own-and-clear per application or test run.
// Registration passes assume exclusive store access and must be
// serialized by the caller.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftwood-io/driftwood/internal/diff"
	"github.com/driftwood-io/driftwood/internal/migration"
	"github.com/driftwood-io/driftwood/internal/schema"
	"github.com/driftwood-io/driftwood/internal/store"
	"github.com/driftwood-io/driftwood/internal/tree"
)

// DriftError enumerates every schema that drifted in a registration
// pass. It is a control-flow signal, not a bug: by the time it is
// returned, all affected schema versions and migration scripts have
// been durably written, so the caller can run the generated migrations
// and retry.
type DriftError struct {
	Schemas []string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("schema drift detected: %s (run the generated migrations, then retry registration)",
		strings.Join(e.Schemas, ", "))
}

// Registry drives the drift pipeline against one schema store.
type Registry struct {
	store  store.Store
	differ *diff.Differ
	log    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the pipeline logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// WithDiffer overrides the diff engine, e.g. to tune the rename
// threshold.
func WithDiffer(d *diff.Differ) Option {
	return func(r *Registry) { r.differ = d }
}

// New returns a Registry writing to s.
func New(s store.Store, opts ...Option) *Registry {
	r := &Registry{
		store: s,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.differ == nil {
		r.differ = diff.New(diff.WithLogger(r.log))
	}
	return r
}

// Register runs the drift pipeline over the given models and everything
// they embed, children before the models embedding them, each schema at
// most once per pass. Models sharing a nested sub-schema drift
// independently: each gets its own version bump and its own migration
// artifact.
//
// A non-nil *DriftError means every drifted schema's new version and
// migration script were already written before the error was returned.
func (r *Registry) Register(models ...*schema.Model) error {
	if r.store == nil {
		return store.ErrNotReady
	}

	ordered := flatten(models)

	var drifted []string
	for _, m := range ordered {
		changed, err := r.registerOne(m)
		if err != nil {
			// Partial writes from earlier models are deliberate:
			// persisted migration information is never rolled back.
			return fmt.Errorf("register schema %s: %w", m.Name, err)
		}
		if changed {
			drifted = append(drifted, m.Name)
		}
	}

	if len(drifted) > 0 {
		return &DriftError{Schemas: drifted}
	}
	return nil
}

// registerOne processes a single schema and reports whether it drifted.
func (r *Registry) registerOne(m *schema.Model) (bool, error) {
	stored, err := r.store.LoadLatest(m.Name)
	if err != nil {
		return false, err
	}

	if stored == nil {
		first := store.Stored{Name: m.Name, Version: 1, Def: tree.CopyTree(m.Def)}
		if err := r.store.Save(first); err != nil {
			return false, err
		}
		r.log.Info("schema registered", "schema", m.Name, "version", 1)
		return false, nil
	}

	// Drift is judged on the cosmetically stripped definitions so that
	// form groupings and meta-only edits never bump a version.
	cosmetic := r.differ.Diff(schema.StripCosmetic(stored.Def), schema.StripCosmetic(m.Def))
	if cosmetic.Empty() {
		return false, nil
	}

	// The migration script is rendered from the unfiltered diff: data
	// records may still carry fields a cosmetic filter would hide.
	full := r.differ.Diff(stored.Def, m.Def)
	next := stored.Version + 1

	if err := r.store.Save(store.Stored{Name: m.Name, Version: next, Def: tree.CopyTree(m.Def)}); err != nil {
		return false, err
	}

	script := migration.Render(m.Name, stored.Version, next, full)
	if err := r.store.SaveMigration(m.Name, stored.Version, next, script); err != nil {
		return false, err
	}

	r.log.Info("schema drift detected",
		"schema", m.Name,
		"from", stored.Version,
		"to", next,
		"operations", len(full),
		"artifact", store.ArtifactName(m.Name, stored.Version, next))
	return true, nil
}

// flatten orders models children-first, deduplicated by name, so an
// embedded sub-schema is always processed before the models embedding
// it.
func flatten(models []*schema.Model) []*schema.Model {
	seen := make(map[string]bool)
	var ordered []*schema.Model

	var visit func(m *schema.Model)
	visit = func(m *schema.Model) {
		if m == nil || seen[m.Name] {
			return
		}
		seen[m.Name] = true
		for _, child := range m.Embeds {
			visit(child)
		}
		ordered = append(ordered, m)
	}
	for _, m := range models {
		visit(m)
	}
	return ordered
}
