package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertIncident persists an analysis keyed solely by log path: re-analyzing
// the same log updates the existing row in place. Returns the incident id
// and whether a new row was created.
func (db *DB) UpsertIncident(inc *Incident) (int64, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	var id int64
	err := db.QueryRow("SELECT id FROM incidents WHERE log_path = ?", inc.LogPath).Scan(&id)

	if err == sql.ErrNoRows {
		res, err := db.Exec(`
			INSERT INTO incidents (run_id, log_path, parsed_json, top_node_id, top_node_key,
				confidence, hypotheses_json, similar_cases_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, nullString(inc.RunID), inc.LogPath, inc.ParsedJSON,
			nullInt64(inc.TopNodeID), nullString(inc.TopNodeKey), inc.Confidence,
			nullString(inc.HypothesesJSON), nullString(inc.SimilarCasesJSON), now)
		if err != nil {
			return 0, false, fmt.Errorf("failed to insert incident for %s: %w", inc.LogPath, err)
		}
		newID, err := res.LastInsertId()
		return newID, true, err
	}
	if err != nil {
		return 0, false, err
	}

	_, err = db.Exec(`
		UPDATE incidents
		SET run_id = ?, parsed_json = ?, top_node_id = ?, top_node_key = ?,
			confidence = ?, hypotheses_json = ?, similar_cases_json = ?, updated_at = ?
		WHERE id = ?
	`, nullString(inc.RunID), inc.ParsedJSON,
		nullInt64(inc.TopNodeID), nullString(inc.TopNodeKey), inc.Confidence,
		nullString(inc.HypothesesJSON), nullString(inc.SimilarCasesJSON), now, id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to update incident for %s: %w", inc.LogPath, err)
	}
	return id, false, nil
}

// GetIncidentByLogPath retrieves an incident by log path, nil when absent
func (db *DB) GetIncidentByLogPath(logPath string) (*Incident, error) {
	row := db.QueryRow(`
		SELECT id, run_id, log_path, parsed_json, top_node_id, top_node_key,
			confidence, hypotheses_json, similar_cases_json, created_at, updated_at
		FROM incidents WHERE log_path = ?
	`, logPath)
	return scanIncident(row)
}

// ListIncidents returns incidents ordered most recently touched first
func (db *DB) ListIncidents(limit int) ([]*Incident, error) {
	query := `
		SELECT id, run_id, log_path, parsed_json, top_node_id, top_node_key,
			confidence, hypotheses_json, similar_cases_json, created_at, updated_at
		FROM incidents
		ORDER BY COALESCE(updated_at, created_at) DESC`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Incident
	for rows.Next() {
		inc, err := scanIncidentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// CountIncidents returns the number of stored incidents
func (db *DB) CountIncidents() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM incidents").Scan(&n)
	return n, err
}

func scanIncident(row *sql.Row) (*Incident, error) {
	var inc Incident
	var runID, topKey, hyp, similar, updated sql.NullString
	var topNode sql.NullInt64
	var conf sql.NullFloat64
	err := row.Scan(&inc.ID, &runID, &inc.LogPath, &inc.ParsedJSON, &topNode, &topKey,
		&conf, &hyp, &similar, &inc.CreatedAt, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fillIncident(&inc, runID, topKey, hyp, similar, updated, topNode, conf)
	return &inc, nil
}

func scanIncidentRows(rows *sql.Rows) (*Incident, error) {
	var inc Incident
	var runID, topKey, hyp, similar, updated sql.NullString
	var topNode sql.NullInt64
	var conf sql.NullFloat64
	err := rows.Scan(&inc.ID, &runID, &inc.LogPath, &inc.ParsedJSON, &topNode, &topKey,
		&conf, &hyp, &similar, &inc.CreatedAt, &updated)
	if err != nil {
		return nil, err
	}
	fillIncident(&inc, runID, topKey, hyp, similar, updated, topNode, conf)
	return &inc, nil
}

func fillIncident(inc *Incident, runID, topKey, hyp, similar, updated sql.NullString,
	topNode sql.NullInt64, conf sql.NullFloat64) {
	inc.RunID = runID.String
	inc.TopNodeKey = topKey.String
	inc.HypothesesJSON = hyp.String
	inc.SimilarCasesJSON = similar.String
	inc.UpdatedAt = updated.String
	inc.TopNodeID = topNode.Int64
	inc.Confidence = conf.Float64
}

func nullInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}
