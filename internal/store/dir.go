package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// DirStore persists each schema version as its own JSON file,
// "<Name>.v<N>.json", in a single directory. The latest version of a
// schema is the maximum integer suffix found among its sibling files.
// Migration scripts live under "<dir>/migrations".
type DirStore struct {
	dir string
}

var schemaFileRe = regexp.MustCompile(`^(.+)\.v(\d+)\.json$`)

// NewDirStore opens (creating if needed) a directory-backed store.
func NewDirStore(dir string) (*DirStore, error) {
	if dir == "" {
		return nil, ErrNotReady
	}
	if err := os.MkdirAll(filepath.Join(dir, "migrations"), 0755); err != nil {
		return nil, fmt.Errorf("create schema directory: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (s *DirStore) schemaPath(name string, version int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.v%d.json", name, version))
}

func (s *DirStore) migrationPath(name string, from, to int) string {
	return filepath.Join(s.dir, "migrations", ArtifactName(name, from, to)+".go")
}

// latestVersion scans sibling files for the highest version of name,
// returning 0 when none exist.
func (s *DirStore) latestVersion(name string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read schema directory: %w", err)
	}
	latest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := schemaFileRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != name {
			continue
		}
		v, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if v > latest {
			latest = v
		}
	}
	return latest, nil
}

func (s *DirStore) LoadLatest(name string) (*Stored, error) {
	latest, err := s.latestVersion(name)
	if err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, nil
	}
	return s.Load(name, latest)
}

func (s *DirStore) Load(name string, version int) (*Stored, error) {
	data, err := os.ReadFile(s.schemaPath(name, version))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("schema %s v%d: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read schema %s v%d: %w", name, version, err)
	}
	var stored Stored
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse schema %s v%d: %w", name, version, err)
	}
	return &stored, nil
}

func (s *DirStore) Save(stored Stored) error {
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema %s: %w", stored.Name, err)
	}
	path := s.schemaPath(stored.Name, stored.Version)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write schema %s v%d: %w", stored.Name, stored.Version, err)
	}
	return nil
}

func (s *DirStore) SaveMigration(name string, from, to int, script []byte) error {
	path := s.migrationPath(name, from, to)
	if err := os.WriteFile(path, script, 0644); err != nil {
		return fmt.Errorf("write migration %s: %w", ArtifactName(name, from, to), err)
	}
	return nil
}

func (s *DirStore) LoadMigration(name string, from, to int) ([]byte, error) {
	data, err := os.ReadFile(s.migrationPath(name, from, to))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("migration %s: %w", ArtifactName(name, from, to), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read migration %s: %w", ArtifactName(name, from, to), err)
	}
	return data, nil
}

func (s *DirStore) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read schema directory: %w", err)
	}
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := schemaFileRe.FindStringSubmatch(e.Name())
		if m == nil || seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names, nil
}

func (s *DirStore) Close() error { return nil }
