package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// UpsertNode inserts a node keyed by its unique key, or refreshes an
// existing one. A resolved node (confidence 1.0 with a canonical path)
// always wins over a stub created earlier from a dangling reference.
func (db *DB) UpsertNode(n *Node) (int64, error) {
	var id int64
	var existingConf float64
	err := db.QueryRow("SELECT id, confidence FROM nodes WHERE key = ?", n.Key).
		Scan(&id, &existingConf)

	if err == sql.ErrNoRows {
		res, err := db.Exec(`
			INSERT INTO nodes (type, key, display_name, canonical_path, original_path, confidence)
			VALUES (?, ?, ?, ?, ?, ?)
		`, n.Type, n.Key, n.DisplayName, nullString(n.CanonicalPath),
			nullString(n.OriginalPath), n.Confidence)
		if err != nil {
			return 0, fmt.Errorf("failed to insert node %s: %w", n.Key, err)
		}
		return res.LastInsertId()
	}
	if err != nil {
		return 0, err
	}

	if n.Confidence >= existingConf {
		_, err = db.Exec(`
			UPDATE nodes
			SET type = ?, display_name = ?, canonical_path = ?, original_path = ?, confidence = ?
			WHERE id = ?
		`, n.Type, n.DisplayName, nullString(n.CanonicalPath),
			nullString(n.OriginalPath), n.Confidence, id)
		if err != nil {
			return 0, fmt.Errorf("failed to update node %s: %w", n.Key, err)
		}
	}
	return id, nil
}

// UpsertEdge inserts an edge or refreshes an existing (src, dst, rel_type)
// row with the latest evidence and provenance
func (db *DB) UpsertEdge(e *Edge) error {
	_, err := db.Exec(`
		INSERT INTO edges (src, dst, rel_type, confidence, evidence_json, source_artifact)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(src, dst, rel_type) DO UPDATE SET
			confidence = excluded.confidence,
			evidence_json = excluded.evidence_json,
			source_artifact = excluded.source_artifact
	`, e.Src, e.Dst, e.RelType, e.Confidence,
		nullString(e.EvidenceJSON), nullString(e.SourceArtifact))
	if err != nil {
		return fmt.Errorf("failed to upsert edge %d-%s->%d: %w", e.Src, e.RelType, e.Dst, err)
	}
	return nil
}

// DeleteEdgesFromArtifact removes all edges derived from one artifact,
// so a changed artifact's relationships can be rebuilt from scratch
func (db *DB) DeleteEdgesFromArtifact(artifactPath string) (int64, error) {
	res, err := db.Exec("DELETE FROM edges WHERE source_artifact = ?", artifactPath)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NodeByKey retrieves a node by its unique key, nil when absent
func (db *DB) NodeByKey(key string) (*Node, error) {
	row := db.QueryRow(`
		SELECT id, type, key, display_name, canonical_path, original_path, confidence
		FROM nodes WHERE key = ?
	`, key)
	return scanNode(row)
}

// NodeByID retrieves a node by id, nil when absent
func (db *DB) NodeByID(id int64) (*Node, error) {
	row := db.QueryRow(`
		SELECT id, type, key, display_name, canonical_path, original_path, confidence
		FROM nodes WHERE id = ?
	`, id)
	return scanNode(row)
}

// NodesByType returns all nodes of a given type ordered by key
func (db *DB) NodesByType(nodeType string) ([]*Node, error) {
	rows, err := db.Query(`
		SELECT id, type, key, display_name, canonical_path, original_path, confidence
		FROM nodes WHERE type = ? ORDER BY key
	`, nodeType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// AllNodes returns every node ordered by key
func (db *DB) AllNodes() ([]*Node, error) {
	rows, err := db.Query(`
		SELECT id, type, key, display_name, canonical_path, original_path, confidence
		FROM nodes ORDER BY key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

// AllEdges returns every edge ordered by id
func (db *DB) AllEdges() ([]*Edge, error) {
	rows, err := db.Query(`
		SELECT id, src, dst, rel_type, confidence, evidence_json, source_artifact
		FROM edges ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// OutgoingEdges returns edges leaving a node, optionally filtered by rel types
func (db *DB) OutgoingEdges(nodeID int64, relTypes ...string) ([]*Edge, error) {
	query := `
		SELECT id, src, dst, rel_type, confidence, evidence_json, source_artifact
		FROM edges WHERE src = ?`
	args := []interface{}{nodeID}
	if len(relTypes) > 0 {
		query += " AND rel_type IN (" + placeholders(len(relTypes)) + ")"
		for _, rt := range relTypes {
			args = append(args, rt)
		}
	}
	query += " ORDER BY id"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// IncomingEdges returns edges entering a node
func (db *DB) IncomingEdges(nodeID int64) ([]*Edge, error) {
	rows, err := db.Query(`
		SELECT id, src, dst, rel_type, confidence, evidence_json, source_artifact
		FROM edges WHERE dst = ? ORDER BY id
	`, nodeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEdges(rows)
}

// OutgoingEdgeCount returns how many edges leave a node
func (db *DB) OutgoingEdgeCount(nodeID int64) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM edges WHERE src = ?", nodeID).Scan(&n)
	return n, err
}

// DownstreamAdjacency returns a src -> dst adjacency map over the given
// relationship types, for reachability walks
func (db *DB) DownstreamAdjacency(relTypes ...string) (map[int64][]int64, error) {
	query := "SELECT src, dst FROM edges"
	var args []interface{}
	if len(relTypes) > 0 {
		query += " WHERE rel_type IN (" + placeholders(len(relTypes)) + ")"
		for _, rt := range relTypes {
			args = append(args, rt)
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	adj := make(map[int64][]int64)
	for rows.Next() {
		var src, dst int64
		if err := rows.Scan(&src, &dst); err != nil {
			return nil, err
		}
		adj[src] = append(adj[src], dst)
	}
	return adj, rows.Err()
}

// GraphCounts returns node and edge totals
func (db *DB) GraphCounts() (nodes int, edges int, err error) {
	if err = db.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err = db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&edges); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

func scanNode(row *sql.Row) (*Node, error) {
	var n Node
	var canonical, original sql.NullString
	err := row.Scan(&n.ID, &n.Type, &n.Key, &n.DisplayName, &canonical, &original, &n.Confidence)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.CanonicalPath = canonical.String
	n.OriginalPath = original.String
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]*Node, error) {
	var out []*Node
	for rows.Next() {
		var n Node
		var canonical, original sql.NullString
		if err := rows.Scan(&n.ID, &n.Type, &n.Key, &n.DisplayName,
			&canonical, &original, &n.Confidence); err != nil {
			return nil, err
		}
		n.CanonicalPath = canonical.String
		n.OriginalPath = original.String
		out = append(out, &n)
	}
	return out, rows.Err()
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	var out []*Edge
	for rows.Next() {
		var e Edge
		var evidence, source sql.NullString
		if err := rows.Scan(&e.ID, &e.Src, &e.Dst, &e.RelType,
			&e.Confidence, &evidence, &source); err != nil {
			return nil, err
		}
		e.EvidenceJSON = evidence.String
		e.SourceArtifact = source.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
