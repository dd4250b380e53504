package storage

import (
	"database/sql"
	"fmt"
)

// UpsertProc inserts or replaces a parsed job definition keyed by proc name
func (db *DB) UpsertProc(p *Proc) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO procs (proc_name, path, parsed_json, sha256)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(proc_name) DO UPDATE SET
			path = excluded.path,
			parsed_json = excluded.parsed_json,
			sha256 = excluded.sha256
	`, p.ProcName, p.Path, p.ParsedJSON, nullString(p.SHA256))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert proc %s: %w", p.ProcName, err)
	}

	var id int64
	if err := db.QueryRow("SELECT id FROM procs WHERE proc_name = ?", p.ProcName).Scan(&id); err != nil {
		return 0, err
	}
	_ = res
	return id, nil
}

// GetProc retrieves a parsed job definition by proc name, nil when absent
func (db *DB) GetProc(procName string) (*Proc, error) {
	var p Proc
	var sha sql.NullString
	err := db.QueryRow(`
		SELECT id, proc_name, path, parsed_json, sha256
		FROM procs WHERE proc_name = ?
	`, procName).Scan(&p.ID, &p.ProcName, &p.Path, &p.ParsedJSON, &sha)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.SHA256 = sha.String
	return &p, nil
}

// AllProcs returns every parsed job definition ordered by proc name
func (db *DB) AllProcs() ([]*Proc, error) {
	rows, err := db.Query(`
		SELECT id, proc_name, path, parsed_json, sha256
		FROM procs ORDER BY proc_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Proc
	for rows.Next() {
		var p Proc
		var sha sql.NullString
		if err := rows.Scan(&p.ID, &p.ProcName, &p.Path, &p.ParsedJSON, &sha); err != nil {
			return nil, err
		}
		p.SHA256 = sha.String
		out = append(out, &p)
	}
	return out, rows.Err()
}

// CountProcs returns the number of parsed job definitions
func (db *DB) CountProcs() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM procs").Scan(&n)
	return n, err
}
