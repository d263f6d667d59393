package search

import (
	"sort"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

// FusionStrategy merges a lexical and a semantic ranking into one ordered
// list. The exact blend is deliberately pluggable; the fused ordering must be
// a deterministic function of the two input rankings, with ties broken by
// lexical rank.
type FusionStrategy interface {
	Fuse(lexical, semantic []types.SearchHit, limit int) []types.SearchHit
}

// RRFStrategy implements reciprocal rank fusion:
//
//	score(d) = sum over rankings of 1 / (K + rank(d))
//
// Raw per-list scores never leak into the fused ordering, only ranks do.
type RRFStrategy struct {
	K float64
}

// DefaultFusion is the fusion used when none is configured
func DefaultFusion() FusionStrategy {
	return RRFStrategy{K: 60}
}

// Fuse combines the two rankings
func (s RRFStrategy) Fuse(lexical, semantic []types.SearchHit, limit int) []types.SearchHit {
	k := s.K
	if k == 0 {
		k = 60
	}

	type fused struct {
		hit         types.SearchHit
		score       float64
		lexicalRank int // 0 = absent from lexical list
	}
	byPath := make(map[string]*fused)

	add := func(hits []types.SearchHit, isLexical bool) {
		for i, hit := range hits {
			rank := i + 1
			entry, ok := byPath[hit.FilePath]
			if !ok {
				entry = &fused{hit: hit}
				byPath[hit.FilePath] = entry
			}
			entry.score += 1.0 / (k + float64(rank))
			if isLexical {
				entry.lexicalRank = rank
			}
			if entry.hit.Name == "" {
				entry.hit.Name = hit.Name
			}
		}
	}
	add(lexical, true)
	add(semantic, false)

	results := make([]*fused, 0, len(byPath))
	for _, f := range byPath {
		results = append(results, f)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		// Ties break by lexical rank; absent entries sort last
		li, lj := results[i].lexicalRank, results[j].lexicalRank
		if li == 0 {
			li = len(lexical) + len(semantic) + 1
		}
		if lj == 0 {
			lj = len(lexical) + len(semantic) + 1
		}
		if li != lj {
			return li < lj
		}
		return results[i].hit.FilePath < results[j].hit.FilePath
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]types.SearchHit, len(results))
	for i, f := range results {
		out[i] = f.hit
		out[i].Score = f.score
		out[i].Rank = i + 1
	}
	return out
}
