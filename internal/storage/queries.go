package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/codegraph-mcp/pkg/types"
)

// TableHit is one ranked row from a per-table full-text query
type TableHit struct {
	Name     string
	FilePath string
	Score    float64
}

// ProcessMembership describes one STEP_IN_PROCESS edge from a symbol
type ProcessMembership struct {
	ProcessID string
	Label     string
	Step      int
	StepCount int
}

// Neighbor is one endpoint of a traversal edge
type Neighbor struct {
	ID   string
	Name string
}

// StoredEmbedding is one persisted node embedding
type StoredEmbedding struct {
	NodeID   string
	FilePath string
	Vector   []float32
}

// symbolLabels are the tables probed when matching symbols inside a file
var symbolLabels = []types.NodeLabel{
	types.LabelFunction, types.LabelClass, types.LabelMethod,
	types.LabelInterface, types.LabelVariable,
}

// FTSLabels returns the searchable labels in their fixed query order
func FTSLabels() []types.NodeLabel {
	out := make([]types.NodeLabel, len(ftsLabels))
	copy(out, ftsLabels)
	return out
}

// quoteFTS rewrites free text into a safe FTS5 MATCH expression: each
// whitespace token becomes a quoted string so engine operators and stray
// quotes in user input cannot change the query shape.
func quoteFTS(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}

// SearchTable runs one ranked full-text query against a single label's index.
// bm25 ranks ascending (lower is better); the sign is flipped so callers can
// sum and sort descending.
func (s *Store) SearchTable(ctx context.Context, label types.NodeLabel, query string, limit int) ([]TableHit, error) {
	match := quoteFTS(query)
	if match == "" {
		return nil, nil
	}
	fts := ftsTable(label)
	text := fmt.Sprintf(`
		SELECT t.name AS name, t.file_path AS file_path, -bm25(%s) AS score
		FROM %s
		JOIN %s t ON t.rowid = %s.rowid
		WHERE %s MATCH ?
		ORDER BY score DESC
		LIMIT ?`, fts, fts, quoteIdent(string(label)), fts, fts)

	records, err := s.Query(ctx, text, match, limit)
	if err != nil {
		return nil, err
	}
	hits := make([]TableHit, 0, len(records))
	for _, rec := range records {
		hits = append(hits, TableHit{
			Name:     recString(rec, "name"),
			FilePath: recString(rec, "file_path"),
			Score:    recFloat(rec, "score"),
		})
	}
	return hits, nil
}

// SymbolsInFile returns symbols in filePath whose name contains token,
// probing each symbol table sequentially and capping per file. The LIKE
// pattern is parameterized and escaped; ingested content cannot alter it.
func (s *Store) SymbolsInFile(ctx context.Context, filePath, token string, cap int) ([]Neighbor, error) {
	pattern := "%" + escapeLike(token) + "%"
	var out []Neighbor
	for _, label := range symbolLabels {
		if len(out) >= cap {
			break
		}
		text := fmt.Sprintf(
			`SELECT id, name FROM %s WHERE file_path = ? AND name LIKE ? ESCAPE '\' LIMIT ?`,
			quoteIdent(string(label)))
		records, err := s.Query(ctx, text, filePath, pattern, cap-len(out))
		if err != nil {
			continue
		}
		for _, rec := range records {
			out = append(out, Neighbor{ID: recString(rec, "id"), Name: recString(rec, "name")})
		}
	}
	return out, nil
}

// Callers returns up to limit nodes with a CALLS edge into id
func (s *Store) Callers(ctx context.Context, id string, limit int) ([]Neighbor, error) {
	return s.callNeighbors(ctx, "target_id", id, limit)
}

// Callees returns up to limit nodes id has a CALLS edge into
func (s *Store) Callees(ctx context.Context, id string, limit int) ([]Neighbor, error) {
	return s.callNeighbors(ctx, "source_id", id, limit)
}

func (s *Store) callNeighbors(ctx context.Context, endpoint, id string, limit int) ([]Neighbor, error) {
	text := fmt.Sprintf(`SELECT %s AS nid FROM edges e WHERE e.%s = ? AND e.type = ? LIMIT ?`,
		otherEndpoint(endpoint), endpoint)
	records, err := s.Query(ctx, text, id, string(types.RelCalls), limit)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, 0, len(records))
	for _, rec := range records {
		nid := recString(rec, "nid")
		name, err := s.NodeName(ctx, nid)
		if err != nil || name == "" {
			name = nid
		}
		out = append(out, Neighbor{ID: nid, Name: name})
	}
	return out, nil
}

func otherEndpoint(endpoint string) string {
	if endpoint == "target_id" {
		return "e.source_id"
	}
	return "e.target_id"
}

// NodeName resolves the display name of any node by id prefix
func (s *Store) NodeName(ctx context.Context, id string) (string, error) {
	label, err := types.LabelForID(id)
	if err != nil {
		return "", err
	}
	col := "name"
	switch label {
	case types.LabelCommunity, types.LabelProcess:
		col = "COALESCE(NULLIF(heuristic_label, ''), label)"
	}
	text := fmt.Sprintf("SELECT %s AS name FROM %s WHERE id = ?", col, quoteIdent(string(label)))
	records, err := s.Query(ctx, text, id)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", types.ErrNotFound
	}
	return recString(records[0], "name"), nil
}

// ProcessMemberships returns every process id participates in, with step
// position and total step count
func (s *Store) ProcessMemberships(ctx context.Context, id string) ([]ProcessMembership, error) {
	text := `
		SELECT p.id AS pid,
		       COALESCE(NULLIF(p.heuristic_label, ''), p.label) AS plabel,
		       e.step AS step,
		       p.step_count AS step_count
		FROM edges e
		JOIN "Process" p ON p.id = e.target_id
		WHERE e.source_id = ? AND e.type = ?
		ORDER BY e.step`
	records, err := s.Query(ctx, text, id, string(types.RelStepInProcess))
	if err != nil {
		return nil, err
	}
	out := make([]ProcessMembership, 0, len(records))
	for _, rec := range records {
		out = append(out, ProcessMembership{
			ProcessID: recString(rec, "pid"),
			Label:     recString(rec, "plabel"),
			Step:      int(recFloat(rec, "step")),
			StepCount: int(recFloat(rec, "step_count")),
		})
	}
	return out, nil
}

// CommunityCohesion returns the cohesion of the first community id belongs
// to. Internal ranking signal only; never rendered to callers.
func (s *Store) CommunityCohesion(ctx context.Context, id string) (float64, error) {
	text := `
		SELECT c.cohesion AS cohesion
		FROM edges e
		JOIN "Community" c ON c.id = e.target_id
		WHERE e.source_id = ? AND e.type = ?
		LIMIT 1`
	records, err := s.Query(ctx, text, id, string(types.RelMemberOf))
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return recFloat(records[0], "cohesion"), nil
}

// AllNodes reassembles every stored node with its label-specific property bag
func (s *Store) AllNodes(ctx context.Context) ([]types.GraphNode, error) {
	var nodes []types.GraphNode
	for _, label := range types.AllLabels {
		text := fmt.Sprintf("SELECT * FROM %s", quoteIdent(string(label)))
		records, err := s.Query(ctx, text)
		if err != nil {
			continue
		}
		for _, rec := range records {
			nodes = append(nodes, nodeFromRecord(label, rec))
		}
	}
	return nodes, nil
}

// AllEdges returns every stored relationship
func (s *Store) AllEdges(ctx context.Context) ([]types.GraphRelationship, error) {
	records, err := s.Query(ctx, "SELECT id, source_id, target_id, type, confidence, reason, step FROM edges")
	if err != nil {
		return nil, err
	}
	out := make([]types.GraphRelationship, 0, len(records))
	for _, rec := range records {
		out = append(out, types.GraphRelationship{
			ID:         recString(rec, "id"),
			SourceID:   recString(rec, "source_id"),
			TargetID:   recString(rec, "target_id"),
			Type:       types.RelType(recString(rec, "type")),
			Confidence: recFloat(rec, "confidence"),
			Reason:     recString(rec, "reason"),
			Step:       int(recFloat(rec, "step")),
		})
	}
	return out, nil
}

// CountEmbeddings reports how many node embeddings ingestion persisted
func (s *Store) CountEmbeddings(ctx context.Context) (int, error) {
	records, err := s.Query(ctx, "SELECT COUNT(*) AS n FROM embeddings")
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return int(recFloat(records[0], "n")), nil
}

// LoadEmbeddings returns every persisted embedding, deserialized
func (s *Store) LoadEmbeddings(ctx context.Context) ([]StoredEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, types.ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, "SELECT node_id, file_path, vector FROM embeddings")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []StoredEmbedding
	for rows.Next() {
		var emb StoredEmbedding
		var blob []byte
		if err := rows.Scan(&emb.NodeID, &emb.FilePath, &blob); err != nil {
			return nil, err
		}
		vec, err := DeserializeVector(blob)
		if err != nil {
			continue
		}
		emb.Vector = vec
		out = append(out, emb)
	}
	return out, rows.Err()
}

// nodeFromRecord rebuilds the property bag from snake_case columns
func nodeFromRecord(label types.NodeLabel, rec Record) types.GraphNode {
	props := map[string]any{}
	for col, val := range rec {
		if col == "id" || val == nil {
			continue
		}
		props[camelCase(col)] = val
	}
	return types.GraphNode{
		ID:         recString(rec, "id"),
		Label:      label,
		Properties: props,
	}
}

func camelCase(col string) string {
	parts := strings.Split(col, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	// yields the external JSON casing: filePath, startLine, entryPointId
	return strings.Join(parts, "")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func recString(rec Record, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func recFloat(rec Record, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
