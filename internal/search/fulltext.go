// Package search implements ranked retrieval over a repo's graph store:
// sequential per-table full-text queries merged by file, and lexical+semantic
// hybrid fusion behind a pluggable strategy.
package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/dshills/codegraph-mcp/internal/storage"
	"github.com/dshills/codegraph-mcp/pkg/types"
)

// FullText issues one ranked full-text query per searchable table in the
// fixed order File, Function, Class, Method, Interface, sequentially since the
// store connection admits no concurrent statements. Hits are merged by file
// path with per-table scores summed: a file matching both directly and via a
// contained function accumulates both. A table whose query errors (for
// example a missing index) contributes zero results, not a failure.
func FullText(ctx context.Context, store *storage.Store, query string, limit int) ([]types.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	merged := make(map[string]*types.SearchHit)
	for _, label := range storage.FTSLabels() {
		hits, err := store.SearchTable(ctx, label, query, limit)
		if err != nil {
			slog.Debug("full-text table skipped", "label", label, "error", err)
			continue
		}
		for _, hit := range hits {
			if hit.FilePath == "" {
				continue
			}
			entry, ok := merged[hit.FilePath]
			if !ok {
				entry = &types.SearchHit{FilePath: hit.FilePath, Name: hit.Name}
				merged[hit.FilePath] = entry
			}
			entry.Score += hit.Score
			if entry.Name == "" {
				entry.Name = hit.Name
			}
		}
	}

	results := make([]types.SearchHit, 0, len(merged))
	for _, hit := range merged {
		results = append(results, *hit)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].FilePath < results[j].FilePath
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}
