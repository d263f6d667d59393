package storage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

// Manager maps repo ids to their owned store handles. Open is idempotent per
// repo; distinct repos may be opened and used in parallel. This replaces any
// notion of a global connection singleton with an explicit owned lifecycle.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store
	logger *slog.Logger
}

// NewManager creates an empty store manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		stores: make(map[string]*Store),
		logger: logger,
	}
}

// Open opens the store for repoID at path. A second call for an already-open
// repo returns the existing handle regardless of path.
func (m *Manager) Open(repoID, path string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[repoID]; ok {
		return store, nil
	}

	store, err := openStore(repoID, path, m.logger.With("repo", repoID))
	if err != nil {
		return nil, fmt.Errorf("failed to open store for %s: %w", repoID, err)
	}
	m.stores[repoID] = store
	m.logger.Debug("store opened", "repo", repoID, "path", path)
	return store, nil
}

// Get returns the open store for repoID. Operating on a repo whose connection
// was never opened is a contract violation, reported as ErrNotInitialized.
func (m *Manager) Get(repoID string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.stores[repoID]
	if !ok {
		return nil, fmt.Errorf("%w: repo %s", types.ErrNotInitialized, repoID)
	}
	return store, nil
}

// Replace closes any open handle for repoID, deletes the store file, and
// opens a fresh one. Used by re-indexing, which fully replaces a repo's index.
func (m *Manager) Replace(repoID, path string) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.stores[repoID]; ok {
		if err := store.Close(); err != nil {
			m.logger.Warn("error closing store before replace", "repo", repoID, "error", err)
		}
		delete(m.stores, repoID)
	}

	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove old store: %w", err)
		}
	}

	store, err := openStore(repoID, path, m.logger.With("repo", repoID))
	if err != nil {
		return nil, fmt.Errorf("failed to recreate store for %s: %w", repoID, err)
	}
	m.stores[repoID] = store
	return store, nil
}

// Close releases one repo's connection. A repo that was never opened is a
// no-op.
func (m *Manager) Close(repoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, ok := m.stores[repoID]
	if !ok {
		return nil
	}
	delete(m.stores, repoID)
	return store.Close()
}

// CloseAll releases every open connection
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, store := range m.stores {
		if err := store.Close(); err != nil {
			m.logger.Warn("error closing store", "repo", id, "error", err)
		}
		delete(m.stores, id)
	}
}
