package types

import "errors"

// Result validation errors
var (
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrMissingFilePath       = errors.New("file path is required")
	ErrInvalidRelevanceScore = errors.New("relevance score must be >= 0")
)

// SearchHit is one ranked file in a search result set. Score is the combined
// relevance accumulated across per-table lexical hits (and fusion, for hybrid
// results); internal signals such as community cohesion are never carried on
// this type.
type SearchHit struct {
	FilePath string  `json:"filePath"`
	Name     string  `json:"name,omitempty"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// Validate checks hit invariants
func (h *SearchHit) Validate() error {
	if h.FilePath == "" {
		return ErrMissingFilePath
	}
	if h.Rank < 1 {
		return ErrInvalidRank
	}
	if h.Score < 0 {
		return ErrInvalidRelevanceScore
	}
	return nil
}

// RepoStats summarizes one repo's persisted index
type RepoStats struct {
	Files       int `json:"files"`
	Nodes       int `json:"nodes"`
	Edges       int `json:"edges"`
	Communities int `json:"communities,omitempty"`
	Processes   int `json:"processes,omitempty"`
}

// LoadResult aggregates a relationship load: failures are counted, never
// propagated past the batch
type LoadResult struct {
	Inserted int
	Skipped  int
}
