package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createArtifactsTable(tx); err != nil {
			return err
		}
		if err := createProcsTable(tx); err != nil {
			return err
		}
		if err := createGraphTables(tx); err != nil {
			return err
		}
		if err := createIncidentsTable(tx); err != nil {
			return err
		}
		if err := createCaseCardsTable(tx); err != nil {
			return err
		}
		if err := createMessageCodesTable(tx); err != nil {
			return err
		}
		if err := createArtifactsFTS(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially as the schema evolves

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createArtifactsTable creates the artifacts table: one row per indexed file
func createArtifactsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY,
			kind TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			original_path TEXT,
			sha256 TEXT,
			mtime REAL NOT NULL,
			size INTEGER NOT NULL,
			text_content TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create artifacts table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind)",
		"CREATE INDEX IF NOT EXISTS idx_artifacts_path ON artifacts(path)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createProcsTable creates the procs table holding parsed job definitions
func createProcsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS procs (
			id INTEGER PRIMARY KEY,
			proc_name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL,
			parsed_json TEXT NOT NULL,
			sha256 TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create procs table: %w", err)
	}
	return nil
}

// createGraphTables creates the nodes and edges tables.
// Edges carry a source_artifact provenance column so a re-scan can drop and
// re-derive exactly the edges contributed by one changed artifact.
func createGraphTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			type TEXT NOT NULL CHECK(type IN ('proc', 'script', 'control', 'insert', 'docdef', 'log')),
			key TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			canonical_path TEXT,
			original_path TEXT,
			confidence REAL DEFAULT 1.0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS edges (
			id INTEGER PRIMARY KEY,
			src INTEGER NOT NULL REFERENCES nodes(id),
			dst INTEGER NOT NULL REFERENCES nodes(id),
			rel_type TEXT NOT NULL CHECK(rel_type IN ('RUNS', 'READS', 'CALLS', 'REFERS_TO')),
			confidence REAL DEFAULT 1.0,
			evidence_json TEXT,
			source_artifact TEXT,
			UNIQUE(src, dst, rel_type)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create edges table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type)",
		"CREATE INDEX IF NOT EXISTS idx_nodes_key ON nodes(key)",
		"CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src)",
		"CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(dst)",
		"CREATE INDEX IF NOT EXISTS idx_edges_rel ON edges(rel_type)",
		"CREATE INDEX IF NOT EXISTS idx_edges_source_artifact ON edges(source_artifact)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createIncidentsTable creates the incidents table keyed by log path
func createIncidentsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS incidents (
			id INTEGER PRIMARY KEY,
			run_id TEXT,
			log_path TEXT NOT NULL UNIQUE,
			parsed_json TEXT NOT NULL,
			top_node_id INTEGER REFERENCES nodes(id),
			top_node_key TEXT,
			confidence REAL,
			hypotheses_json TEXT,
			similar_cases_json TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create incidents table: %w", err)
	}

	if _, err := tx.Exec(
		"CREATE INDEX IF NOT EXISTS idx_incidents_log_path ON incidents(log_path)",
	); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createCaseCardsTable creates the case_cards table with content-hash dedup
func createCaseCardsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS case_cards (
			id INTEGER PRIMARY KEY,
			source_path TEXT,
			chunk_id INTEGER,
			content_hash TEXT,
			title TEXT,
			signals_json TEXT,
			root_cause TEXT,
			fix_summary TEXT,
			verify_commands_json TEXT,
			related_files_json TEXT,
			tags_json TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT,
			UNIQUE(source_path, chunk_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create case_cards table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_case_cards_source ON case_cards(source_path)",
		"CREATE INDEX IF NOT EXISTS idx_case_cards_hash ON case_cards(content_hash)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createMessageCodesTable creates the decoded message code knowledge base
func createMessageCodesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS message_codes (
			code TEXT NOT NULL,
			severity TEXT NOT NULL CHECK(severity IN ('I', 'W', 'E', 'F')),
			title TEXT,
			body TEXT NOT NULL,
			source_path TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (code, source_path)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create message_codes table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_message_codes_code ON message_codes(code)",
		"CREATE INDEX IF NOT EXISTS idx_message_codes_severity ON message_codes(severity)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createArtifactsFTS creates the FTS5 virtual table over artifacts plus
// the triggers keeping it in sync with content-bearing rows
func createArtifactsFTS(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS artifacts_fts USING fts5(
			path,
			text_content,
			content=artifacts,
			content_rowid=id
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create artifacts_fts table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS artifacts_ai AFTER INSERT ON artifacts
		WHEN NEW.text_content IS NOT NULL
		BEGIN
			INSERT INTO artifacts_fts(rowid, path, text_content)
			VALUES (NEW.id, NEW.path, NEW.text_content);
		END`,

		`CREATE TRIGGER IF NOT EXISTS artifacts_ad AFTER DELETE ON artifacts
		WHEN OLD.text_content IS NOT NULL
		BEGIN
			INSERT INTO artifacts_fts(artifacts_fts, rowid, path, text_content)
			VALUES ('delete', OLD.id, OLD.path, OLD.text_content);
		END`,

		`CREATE TRIGGER IF NOT EXISTS artifacts_au AFTER UPDATE ON artifacts
		WHEN OLD.text_content IS NOT NULL OR NEW.text_content IS NOT NULL
		BEGIN
			INSERT INTO artifacts_fts(artifacts_fts, rowid, path, text_content)
			VALUES ('delete', OLD.id, OLD.path, COALESCE(OLD.text_content, ''));
			INSERT INTO artifacts_fts(rowid, path, text_content)
			VALUES (NEW.id, NEW.path, COALESCE(NEW.text_content, ''));
		END`,
	}

	for _, trigger := range triggers {
		if _, err := tx.Exec(trigger); err != nil {
			return fmt.Errorf("failed to create trigger: %w", err)
		}
	}

	return nil
}
