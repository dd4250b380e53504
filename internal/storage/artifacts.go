package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// UpsertArtifact inserts or updates an artifact row keyed by path.
// Returns the artifact id and whether the stored sha256 changed, so the
// caller can re-derive edges only for artifacts that actually differ.
func (db *DB) UpsertArtifact(a *Artifact) (int64, bool, error) {
	var id int64
	var prevSHA sql.NullString
	err := db.QueryRow("SELECT id, sha256 FROM artifacts WHERE path = ?", a.Path).
		Scan(&id, &prevSHA)

	if err == sql.ErrNoRows {
		res, err := db.Exec(`
			INSERT INTO artifacts (kind, path, original_path, sha256, mtime, size, text_content)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.Kind, a.Path, nullString(a.OriginalPath), nullString(a.SHA256),
			a.MTime, a.Size, textOrNull(a))
		if err != nil {
			return 0, false, fmt.Errorf("failed to insert artifact %s: %w", a.Path, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return 0, false, err
		}
		return newID, true, nil
	}
	if err != nil {
		return 0, false, err
	}

	changed := !prevSHA.Valid || prevSHA.String != a.SHA256
	if !changed {
		// Still refresh mtime so stats reflect the latest walk
		_, err := db.Exec("UPDATE artifacts SET mtime = ?, size = ? WHERE id = ?",
			a.MTime, a.Size, id)
		return id, false, err
	}

	_, err = db.Exec(`
		UPDATE artifacts
		SET kind = ?, original_path = ?, sha256 = ?, mtime = ?, size = ?, text_content = ?
		WHERE id = ?
	`, a.Kind, nullString(a.OriginalPath), nullString(a.SHA256),
		a.MTime, a.Size, textOrNull(a), id)
	if err != nil {
		return 0, false, fmt.Errorf("failed to update artifact %s: %w", a.Path, err)
	}
	return id, true, nil
}

// GetArtifactByPath retrieves an artifact by its snapshot-relative path
func (db *DB) GetArtifactByPath(path string) (*Artifact, error) {
	row := db.QueryRow(`
		SELECT id, kind, path, original_path, sha256, mtime, size, text_content
		FROM artifacts WHERE path = ?
	`, path)
	return scanArtifact(row)
}

// ArtifactsByKind returns all artifacts of a given kind ordered by path
func (db *DB) ArtifactsByKind(kind string) ([]*Artifact, error) {
	rows, err := db.Query(`
		SELECT id, kind, path, original_path, sha256, mtime, size, text_content
		FROM artifacts WHERE kind = ? ORDER BY path
	`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// ArtifactsUnderDir returns artifacts whose path starts with the given
// directory prefix, ordered by path
func (db *DB) ArtifactsUnderDir(dir string) ([]*Artifact, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	rows, err := db.Query(`
		SELECT id, kind, path, original_path, sha256, mtime, size, text_content
		FROM artifacts WHERE path LIKE ? ESCAPE '\' ORDER BY path
	`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// ArtifactsMatchingBasename returns artifacts whose basename contains the
// given fragment, case-insensitive
func (db *DB) ArtifactsMatchingBasename(fragment string) ([]*Artifact, error) {
	rows, err := db.Query(`
		SELECT id, kind, path, original_path, sha256, mtime, size, text_content
		FROM artifacts
		WHERE LOWER(path) LIKE ? ESCAPE '\'
		ORDER BY path
	`, "%"+escapeLike(strings.ToLower(fragment))+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

// CountArtifacts returns artifact counts grouped by kind
func (db *DB) CountArtifacts() (map[string]int, error) {
	rows, err := db.Query("SELECT kind, COUNT(*) FROM artifacts GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func scanArtifact(row *sql.Row) (*Artifact, error) {
	var a Artifact
	var origPath, sha, text sql.NullString
	err := row.Scan(&a.ID, &a.Kind, &a.Path, &origPath, &sha, &a.MTime, &a.Size, &text)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.OriginalPath = origPath.String
	a.SHA256 = sha.String
	a.TextContent = text.String
	a.HasContent = text.Valid
	return &a, nil
}

func scanArtifacts(rows *sql.Rows) ([]*Artifact, error) {
	var out []*Artifact
	for rows.Next() {
		var a Artifact
		var origPath, sha, text sql.NullString
		if err := rows.Scan(&a.ID, &a.Kind, &a.Path, &origPath, &sha,
			&a.MTime, &a.Size, &text); err != nil {
			return nil, err
		}
		a.OriginalPath = origPath.String
		a.SHA256 = sha.String
		a.TextContent = text.String
		a.HasContent = text.Valid
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func textOrNull(a *Artifact) interface{} {
	if !a.HasContent {
		return nil
	}
	return a.TextContent
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
