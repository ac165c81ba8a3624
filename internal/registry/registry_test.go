package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-io/driftwood/internal/schema"
	"github.com/driftwood-io/driftwood/internal/store"
	"github.com/driftwood-io/driftwood/internal/tree"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewDirStore(filepath.Join(t.TempDir(), "schemas"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func userModel(def tree.Tree) *schema.Model {
	return &schema.Model{Name: "User", Def: def}
}

func userV1() tree.Tree {
	return tree.Tree{
		"name": tree.Tree{"type": "string", "required": true},
		"age":  tree.Tree{"type": "number", "default": 18},
		"form": tree.Tree{"basics": []any{"name", "age"}},
	}
}

func TestRegisterFirstTime(t *testing.T) {
	s := newTestStore(t)
	r := New(s)

	require.NoError(t, r.Register(userModel(userV1())))

	stored, err := s.LoadLatest("User")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 1, stored.Version)
	assert.True(t, tree.Equal(stored.Def, userV1()))
}

func TestRegisterUnchangedIsNoop(t *testing.T) {
	s := newTestStore(t)
	r := New(s)

	require.NoError(t, r.Register(userModel(userV1())))
	require.NoError(t, r.Register(userModel(userV1())))

	stored, err := s.LoadLatest("User")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestRegisterCosmeticChangeIsNoop(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	require.NoError(t, r.Register(userModel(userV1())))

	reshuffled := userV1()
	reshuffled["form"] = tree.Tree{"basics": []any{"age"}, "extra": []any{"name"}}
	reshuffled["__meta_theme"] = "dark"

	require.NoError(t, r.Register(userModel(reshuffled)))

	stored, err := s.LoadLatest("User")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version, "cosmetic edits must not bump the version")
}

func TestRegisterDrift(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	require.NoError(t, r.Register(userModel(userV1())))

	v2 := userV1()
	v2["admin"] = tree.Tree{"type": "boolean", "default": false}

	err := r.Register(userModel(v2))
	require.Error(t, err)
	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, []string{"User"}, drift.Schemas)

	// The new version and the migration artifact were written before the
	// error was returned.
	stored, err := s.LoadLatest("User")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.True(t, tree.Equal(stored.Def, v2))

	script, err := s.LoadMigration("User", 1, 2)
	require.NoError(t, err)
	assert.Contains(t, string(script), "UserV1ToV2Operations")
	assert.Contains(t, string(script), "addAdmin")
}

func TestRegisterSequentialDrifts(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	require.NoError(t, r.Register(userModel(userV1())))

	v2 := userV1()
	v2["admin"] = tree.Tree{"type": "boolean", "default": false}
	var drift *DriftError
	require.ErrorAs(t, r.Register(userModel(v2)), &drift)

	v3 := tree.CopyTree(v2)
	delete(v3, "age")
	require.ErrorAs(t, r.Register(userModel(v3)), &drift)

	stored, err := s.LoadLatest("User")
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Version)

	_, err = s.LoadMigration("User", 1, 2)
	require.NoError(t, err)
	script, err := s.LoadMigration("User", 2, 3)
	require.NoError(t, err)
	assert.Contains(t, string(script), "UserV2ToV3Operations")
	assert.Contains(t, string(script), "removeAge")
}

func TestRegisterRenameDrift(t *testing.T) {
	s := newTestStore(t)
	r := New(s)
	require.NoError(t, r.Register(userModel(userV1())))

	v2 := userV1()
	v2["username"] = v2["name"]
	delete(v2, "name")

	var drift *DriftError
	require.ErrorAs(t, r.Register(userModel(v2)), &drift)

	script, err := s.LoadMigration("User", 1, 2)
	require.NoError(t, err)
	assert.Contains(t, string(script), "renameUsername")
}

func TestRegisterEmbeddedModels(t *testing.T) {
	s := newTestStore(t)
	r := New(s)

	address := &schema.Model{
		Name: "Address",
		Def:  tree.Tree{"city": tree.Tree{"type": "string"}},
	}
	account := &schema.Model{
		Name:   "Account",
		Def:    tree.Tree{"owner": tree.Tree{"type": "string"}},
		Embeds: []*schema.Model{address},
	}

	require.NoError(t, r.Register(account))

	for _, name := range []string{"Address", "Account"} {
		stored, err := s.LoadLatest(name)
		require.NoError(t, err)
		require.NotNil(t, stored, "embedded model %s should be registered", name)
		assert.Equal(t, 1, stored.Version)
	}
}

func TestRegisterEmbeddedDriftIsIndependent(t *testing.T) {
	s := newTestStore(t)
	r := New(s)

	address := &schema.Model{
		Name: "Address",
		Def:  tree.Tree{"city": tree.Tree{"type": "string"}},
	}
	account := &schema.Model{
		Name:   "Account",
		Def:    tree.Tree{"owner": tree.Tree{"type": "string"}},
		Embeds: []*schema.Model{address},
	}
	require.NoError(t, r.Register(account))

	// Both models change shape: each gets its own bump and artifact,
	// children first.
	address2 := &schema.Model{
		Name: "Address",
		Def: tree.Tree{
			"city":    tree.Tree{"type": "string"},
			"country": tree.Tree{"type": "string", "default": "NO"},
		},
	}
	account2 := &schema.Model{
		Name: "Account",
		Def: tree.Tree{
			"owner":  tree.Tree{"type": "string"},
			"closed": tree.Tree{"type": "boolean"},
		},
		Embeds: []*schema.Model{address2},
	}

	var drift *DriftError
	require.ErrorAs(t, r.Register(account2), &drift)
	assert.Equal(t, []string{"Address", "Account"}, drift.Schemas)

	for _, name := range []string{"Address", "Account"} {
		stored, err := s.LoadLatest(name)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version)
		_, err = s.LoadMigration(name, 1, 2)
		require.NoError(t, err)
	}
}

func TestRegisterSharedEmbedProcessedOnce(t *testing.T) {
	s := newTestStore(t)
	r := New(s)

	shared := &schema.Model{
		Name: "Audit",
		Def:  tree.Tree{"at": tree.Tree{"type": "number"}},
	}
	a := &schema.Model{Name: "A", Def: tree.Tree{"x": "string"}, Embeds: []*schema.Model{shared}}
	b := &schema.Model{Name: "B", Def: tree.Tree{"y": "string"}, Embeds: []*schema.Model{shared}}

	require.NoError(t, r.Register(a, b))

	stored, err := s.LoadLatest("Audit")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestRegisterWithoutStore(t *testing.T) {
	r := New(nil)
	assert.ErrorIs(t, r.Register(userModel(userV1())), store.ErrNotReady)
}
