package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertMessageCode inserts or replaces one decoded code definition.
// A code may be defined by multiple sources; (code, source_path) is the key.
func (db *DB) UpsertMessageCode(mc *MessageCode) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT INTO message_codes (code, severity, title, body, source_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, source_path) DO UPDATE SET
			severity = excluded.severity,
			title = excluded.title,
			body = excluded.body
	`, mc.Code, mc.Severity, nullString(mc.Title), mc.Body, mc.SourcePath, now)
	if err != nil {
		return fmt.Errorf("failed to upsert message code %s: %w", mc.Code, err)
	}
	return nil
}

// LookupMessageCodes resolves a batch of codes in one query, returning a
// code -> definition map. When a code has several sources the first row
// by source path wins.
func (db *DB) LookupMessageCodes(codes []string) (map[string]*MessageCode, error) {
	out := make(map[string]*MessageCode)
	if len(codes) == 0 {
		return out, nil
	}

	query := `
		SELECT code, severity, title, body, source_path, created_at
		FROM message_codes
		WHERE code IN (` + placeholders(len(codes)) + `)
		ORDER BY code, source_path`
	args := make([]interface{}, len(codes))
	for i, c := range codes {
		args[i] = c
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var mc MessageCode
		var title sql.NullString
		if err := rows.Scan(&mc.Code, &mc.Severity, &title, &mc.Body,
			&mc.SourcePath, &mc.CreatedAt); err != nil {
			return nil, err
		}
		mc.Title = title.String
		if _, seen := out[mc.Code]; !seen {
			out[mc.Code] = &mc
		}
	}
	return out, rows.Err()
}

// AllMessageCodes returns every code definition ordered by code then source
func (db *DB) AllMessageCodes() ([]*MessageCode, error) {
	rows, err := db.Query(`
		SELECT code, severity, title, body, source_path, created_at
		FROM message_codes ORDER BY code, source_path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*MessageCode
	for rows.Next() {
		var mc MessageCode
		var title sql.NullString
		if err := rows.Scan(&mc.Code, &mc.Severity, &title, &mc.Body,
			&mc.SourcePath, &mc.CreatedAt); err != nil {
			return nil, err
		}
		mc.Title = title.String
		out = append(out, &mc)
	}
	return out, rows.Err()
}

// CountMessageCodes returns the number of distinct decoded codes
func (db *DB) CountMessageCodes() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(DISTINCT code) FROM message_codes").Scan(&n)
	return n, err
}
