package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertCaseCard inserts a mined case card, deduplicating by content hash:
// a card whose hash is already stored is skipped. Returns whether a row
// was written.
func (db *DB) UpsertCaseCard(c *CaseCard) (bool, error) {
	var existingID int64
	err := db.QueryRow("SELECT id FROM case_cards WHERE content_hash = ?", c.ContentHash).
		Scan(&existingID)
	if err == nil {
		return false, nil
	}
	if err != sql.ErrNoRows {
		return false, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.Exec(`
		INSERT INTO case_cards (source_path, chunk_id, content_hash, title, signals_json,
			root_cause, fix_summary, verify_commands_json, related_files_json, tags_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_path, chunk_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			title = excluded.title,
			signals_json = excluded.signals_json,
			root_cause = excluded.root_cause,
			fix_summary = excluded.fix_summary,
			verify_commands_json = excluded.verify_commands_json,
			related_files_json = excluded.related_files_json,
			tags_json = excluded.tags_json,
			updated_at = excluded.created_at
	`, c.SourcePath, c.ChunkID, c.ContentHash, c.Title, nullString(c.SignalsJSON),
		nullString(c.RootCause), nullString(c.FixSummary), nullString(c.VerifyCmdsJSON),
		nullString(c.RelFilesJSON), nullString(c.TagsJSON), now)
	if err != nil {
		return false, fmt.Errorf("failed to upsert case card %s#%d: %w", c.SourcePath, c.ChunkID, err)
	}
	return true, nil
}

// AllCaseCards returns every stored case card, most recently touched first
func (db *DB) AllCaseCards() ([]*CaseCard, error) {
	rows, err := db.Query(`
		SELECT id, source_path, chunk_id, content_hash, title, signals_json,
			root_cause, fix_summary, verify_commands_json, related_files_json,
			tags_json, created_at, updated_at
		FROM case_cards
		ORDER BY COALESCE(updated_at, created_at) DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*CaseCard
	for rows.Next() {
		var c CaseCard
		var signals, rootCause, fix, cmds, files, tags, updated sql.NullString
		if err := rows.Scan(&c.ID, &c.SourcePath, &c.ChunkID, &c.ContentHash, &c.Title,
			&signals, &rootCause, &fix, &cmds, &files, &tags,
			&c.CreatedAt, &updated); err != nil {
			return nil, err
		}
		c.SignalsJSON = signals.String
		c.RootCause = rootCause.String
		c.FixSummary = fix.String
		c.VerifyCmdsJSON = cmds.String
		c.RelFilesJSON = files.String
		c.TagsJSON = tags.String
		c.UpdatedAt = updated.String
		out = append(out, &c)
	}
	return out, rows.Err()
}

// CountCaseCards returns the number of stored case cards
func (db *DB) CountCaseCards() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM case_cards").Scan(&n)
	return n, err
}
