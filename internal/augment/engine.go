// Package augment enriches a free-text pattern with graph-derived context
// (callers, callees, process membership) for synchronous use inside another
// tool's pre-execution hook. The engine is strictly fail-closed: any failure
// anywhere collapses the whole call to an empty string, because it runs in
// the host tool's critical path and must never break it.
package augment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dshills/codegraph-mcp/internal/registry"
	"github.com/dshills/codegraph-mcp/internal/search"
	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

// Cost is bounded by fixed caps, not deadlines
const (
	minPatternLen   = 3
	candidateFiles  = 5
	symbolsPerFile  = 3
	enrichedSymbols = 5
	callerCap       = 4
	calleeCap       = 4
)

// Engine resolves the owning repo for a working directory and renders graph
// context for a pattern
type Engine struct {
	registry *registry.Registry
	stores   *storage.Manager
}

// New creates an augmentation engine
func New(reg *registry.Registry, stores *storage.Manager) *Engine {
	return &Engine{registry: reg, stores: stores}
}

// enriched is one symbol with its context. Cohesion orders the output and is
// never rendered.
type enriched struct {
	id        string
	name      string
	filePath  string
	callers   []storage.Neighbor
	callees   []storage.Neighbor
	processes []storage.ProcessMembership
	cohesion  float64
}

// Augment returns a line-oriented context block for pattern, or the empty
// string. It never returns an error and never panics.
func (e *Engine) Augment(ctx context.Context, pattern, cwd string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("augmentation recovered", "panic", r)
			out = ""
		}
	}()

	pattern = strings.TrimSpace(pattern)
	if len(pattern) < minPatternLen {
		return ""
	}

	repo, ok := e.registry.FindRepoForPath(cwd)
	if !ok {
		return ""
	}

	store, err := e.stores.Open(repo.ID, repo.StorePath(e.registry.Root()))
	if err != nil {
		return ""
	}

	// Lexical only: the semantic step is skipped on this path for latency
	hits, err := search.FullText(ctx, store, pattern, candidateFiles)
	if err != nil || len(hits) == 0 {
		return ""
	}

	token := strings.Fields(pattern)[0]
	symbols := e.collectSymbols(ctx, store, hits, token)
	if len(symbols) == 0 {
		return ""
	}

	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].cohesion != symbols[j].cohesion {
			return symbols[i].cohesion > symbols[j].cohesion
		}
		return symbols[i].name < symbols[j].name
	})

	return render(pattern, symbols)
}

func (e *Engine) collectSymbols(ctx context.Context, store *storage.Store, hits []types.SearchHit, token string) []enriched {
	seen := make(map[string]bool)
	var out []enriched
	for _, hit := range hits {
		if len(out) >= enrichedSymbols {
			break
		}
		matches, err := store.SymbolsInFile(ctx, hit.FilePath, token, symbolsPerFile)
		if err != nil {
			continue
		}
		for _, sym := range matches {
			if seen[sym.ID] || len(out) >= enrichedSymbols {
				continue
			}
			seen[sym.ID] = true
			out = append(out, e.enrich(ctx, store, sym, hit.FilePath))
		}
	}
	return out
}

// enrich fetches context for one symbol. Every store call is independently
// guarded; a failed lookup leaves that line empty rather than failing the
// symbol.
func (e *Engine) enrich(ctx context.Context, store *storage.Store, sym storage.Neighbor, filePath string) enriched {
	out := enriched{id: sym.ID, name: sym.Name, filePath: filePath}
	if callers, err := store.Callers(ctx, sym.ID, callerCap); err == nil {
		out.callers = callers
	}
	if callees, err := store.Callees(ctx, sym.ID, calleeCap); err == nil {
		out.callees = callees
	}
	if procs, err := store.ProcessMemberships(ctx, sym.ID); err == nil {
		out.processes = procs
	}
	if cohesion, err := store.CommunityCohesion(ctx, sym.ID); err == nil {
		out.cohesion = cohesion
	}
	return out
}

func render(pattern string, symbols []enriched) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Code graph context: %d matches for %q\n", len(symbols), pattern)
	for _, sym := range symbols {
		fmt.Fprintf(&b, "- %s (%s)\n", sym.name, sym.filePath)
		if line := names(sym.callers); line != "" {
			fmt.Fprintf(&b, "  callers: %s\n", line)
		}
		if line := names(sym.callees); line != "" {
			fmt.Fprintf(&b, "  callees: %s\n", line)
		}
		for _, proc := range sym.processes {
			if proc.Label == "" {
				continue
			}
			fmt.Fprintf(&b, "  process: %s (step %d/%d)\n", proc.Label, proc.Step, proc.StepCount)
		}
	}
	return b.String()
}

func names(neighbors []storage.Neighbor) string {
	parts := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Name != "" {
			parts = append(parts, n.Name)
		}
	}
	return strings.Join(parts, ", ")
}
