// Package registry tracks which repositories have a persisted graph index
// and resolves an arbitrary working directory to the registered repo that
// owns it.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

const (
	metaFileName  = "meta.json"
	storeFileName = "graph.db"
)

// Repo is one registered repository index
type Repo struct {
	ID         string          `json:"id"`
	RepoPath   string          `json:"repoPath"`
	LastCommit string          `json:"lastCommit,omitempty"`
	IndexedAt  time.Time       `json:"indexedAt"`
	Stats      types.RepoStats `json:"stats"`
}

// StorePath returns the repo's database location under root
func (r *Repo) StorePath(root string) string {
	return filepath.Join(root, "repos", r.ID, storeFileName)
}

// Registry lists, resolves, and persists repo index metadata under a root
// directory (one subdirectory per repo holding meta.json and graph.db)
type Registry struct {
	root string
	mu   sync.Mutex
}

// New creates a registry rooted at dir
func New(root string) *Registry {
	return &Registry{root: root}
}

// Root returns the registry root directory
func (g *Registry) Root() string { return g.root }

// RepoID derives the deterministic id for a repo path, so a re-index of the
// same path replaces the same entry
func RepoID(repoPath string) string {
	sum := sha256.Sum256([]byte(normalizePath(repoPath)))
	return hex.EncodeToString(sum[:8])
}

func (g *Registry) repoDir(id string) string {
	return filepath.Join(g.root, "repos", id)
}

// List returns all registered entries. With validate, entries whose store
// file no longer exists on disk are filtered out; the existence checks run
// in parallel since they touch no store connection.
func (g *Registry) List(validate bool) ([]Repo, error) {
	entries, err := os.ReadDir(filepath.Join(g.root, "repos"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var repos []Repo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		repo, err := g.load(entry.Name())
		if err != nil {
			continue // corrupt or partial entry, skip
		}
		repos = append(repos, *repo)
	}

	if validate {
		valid := make([]bool, len(repos))
		var eg errgroup.Group
		for i := range repos {
			eg.Go(func() error {
				_, err := os.Stat(repos[i].StorePath(g.root))
				valid[i] = err == nil
				return nil
			})
		}
		_ = eg.Wait()
		filtered := repos[:0]
		for i, repo := range repos {
			if valid[i] {
				filtered = append(filtered, repo)
			}
		}
		repos = filtered
	}

	sort.Slice(repos, func(i, j int) bool { return repos[i].RepoPath < repos[j].RepoPath })
	return repos, nil
}

// Get returns the entry for a repo id
func (g *Registry) Get(id string) (*Repo, error) {
	repo, err := g.load(id)
	if err != nil {
		return nil, fmt.Errorf("%w: repo %s", types.ErrNotFound, id)
	}
	return repo, nil
}

func (g *Registry) load(id string) (*Repo, error) {
	data, err := os.ReadFile(filepath.Join(g.repoDir(id), metaFileName))
	if err != nil {
		return nil, err
	}
	var repo Repo
	if err := json.Unmarshal(data, &repo); err != nil {
		return nil, err
	}
	if repo.ID == "" {
		repo.ID = id
	}
	return &repo, nil
}

// Save writes a repo entry, creating it on first index and overwriting on
// every re-index
func (g *Registry) Save(repo *Repo) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if repo.ID == "" {
		repo.ID = RepoID(repo.RepoPath)
	}
	dir := g.repoDir(repo.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create registry entry: %w", err)
	}
	data, err := json.MarshalIndent(repo, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(dir, metaFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry entry: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, metaFileName))
}

// Delete removes a repo entry and its storage location. This is the only way
// a registry entry disappears.
func (g *Registry) Delete(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	dir := g.repoDir(id)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("%w: repo %s", types.ErrNotFound, id)
	}
	return os.RemoveAll(dir)
}
