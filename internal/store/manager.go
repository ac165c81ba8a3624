package store

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Manager provides shared bolt-store access to prevent locking conflicts:
// bbolt allows a single writer per file, so everything in one process
// funnels through one handle.
type Manager struct {
	store *BoltStore
	path  string
	refs  int
}

var (
	globalManager *Manager
	managerMu     sync.Mutex
)

// GetSharedBolt returns a shared bolt store for the given driftwood
// directory. Multiple calls with the same directory return the same
// underlying handle; it closes when all references are released.
func GetSharedBolt(driftDir string) (*SharedBolt, error) {
	managerMu.Lock()
	defer managerMu.Unlock()

	path := filepath.Join(driftDir, "schemas.db")

	if globalManager == nil || globalManager.path != path {
		if globalManager != nil {
			globalManager.close()
		}

		s, err := OpenBolt(path)
		if err != nil {
			return nil, fmt.Errorf("open schema store: %w", err)
		}

		globalManager = &Manager{
			store: s,
			path:  path,
			refs:  0,
		}
	}

	globalManager.refs++

	return &SharedBolt{
		manager:   globalManager,
		BoltStore: globalManager.store,
	}, nil
}

// SharedBolt wraps a bolt store with reference counting.
type SharedBolt struct {
	manager *Manager
	*BoltStore
}

// Close decrements the reference count and closes the underlying store
// when no more references exist.
func (sb *SharedBolt) Close() error {
	if sb.manager == nil {
		return nil
	}

	managerMu.Lock()
	defer managerMu.Unlock()

	sb.manager.refs--

	if sb.manager.refs <= 0 {
		err := sb.manager.close()
		globalManager = nil
		return err
	}

	return nil
}

func (m *Manager) close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
