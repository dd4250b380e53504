package storage

import (
	"fmt"
	"strings"
)

// SearchResult is one hit from artifact search
type SearchResult struct {
	Artifact *Artifact `json:"artifact"`
	Snippet  string    `json:"snippet,omitempty"`
	Method   string    `json:"method"`
}

// SearchArtifacts runs the staged artifact search: path substring first,
// then FTS exact phrase, then FTS prefix, then a LIKE scan over content.
// Each widening stage only runs when the previous one found nothing.
// With raw set, the query goes straight to FTS unescaped so callers can
// use FTS5 operators themselves.
func (db *DB) SearchArtifacts(query string, limit int, raw bool) ([]*SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if raw || hasFTSOperators(query) {
		return db.searchFTS(query, limit, "fts_raw")
	}

	results, err := db.searchPathSubstring(query, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	escaped := escapeFTS5Query(query)
	results, err = db.searchFTS(fmt.Sprintf(`"%s"`, escaped), limit, "fts_exact")
	if err == nil && len(results) > 0 {
		return results, nil
	}

	results, err = db.searchFTS(fmt.Sprintf(`"%s"*`, escaped), limit, "fts_prefix")
	if err == nil && len(results) > 0 {
		return results, nil
	}

	return db.searchLike(query, limit)
}

func (db *DB) searchPathSubstring(query string, limit int) ([]*SearchResult, error) {
	rows, err := db.Query(`
		SELECT id, kind, path, original_path, sha256, mtime, size, text_content
		FROM artifacts
		WHERE LOWER(path) LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ?
	`, "%"+escapeLike(strings.ToLower(query))+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts, err := scanArtifacts(rows)
	if err != nil {
		return nil, err
	}
	return wrapResults(artifacts, "path"), nil
}

func (db *DB) searchFTS(ftsQuery string, limit int, method string) ([]*SearchResult, error) {
	rows, err := db.Query(`
		SELECT a.id, a.kind, a.path, a.original_path, a.sha256, a.mtime, a.size, a.text_content,
			snippet(artifacts_fts, 1, '>>', '<<', '...', 12)
		FROM artifacts_fts f
		JOIN artifacts a ON a.id = f.rowid
		WHERE artifacts_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, limit)
	if err != nil {
		// Malformed FTS query falls through to the next stage
		return nil, nil
	}
	defer rows.Close()

	var out []*SearchResult
	for rows.Next() {
		var a Artifact
		var origPath, sha, text, snippet stringOrNull
		if err := rows.Scan(&a.ID, &a.Kind, &a.Path, &origPath, &sha,
			&a.MTime, &a.Size, &text, &snippet); err != nil {
			return nil, err
		}
		a.OriginalPath = origPath.value
		a.SHA256 = sha.value
		a.TextContent = text.value
		a.HasContent = text.valid
		out = append(out, &SearchResult{Artifact: &a, Snippet: snippet.value, Method: method})
	}
	return out, rows.Err()
}

func (db *DB) searchLike(query string, limit int) ([]*SearchResult, error) {
	rows, err := db.Query(`
		SELECT id, kind, path, original_path, sha256, mtime, size, text_content
		FROM artifacts
		WHERE text_content LIKE ? ESCAPE '\'
		ORDER BY path
		LIMIT ?
	`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	artifacts, err := scanArtifacts(rows)
	if err != nil {
		return nil, err
	}
	return wrapResults(artifacts, "like"), nil
}

func wrapResults(artifacts []*Artifact, method string) []*SearchResult {
	out := make([]*SearchResult, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, &SearchResult{Artifact: a, Method: method})
	}
	return out
}

// hasFTSOperators reports whether the query already uses FTS5 syntax
func hasFTSOperators(query string) bool {
	upper := " " + strings.ToUpper(query) + " "
	for _, op := range []string{" AND ", " OR ", " NOT ", " NEAR "} {
		if strings.Contains(upper, op) {
			return true
		}
	}
	return strings.ContainsAny(query, `"*`)
}

// escapeFTS5Query escapes embedded quotes for a phrase query
func escapeFTS5Query(query string) string {
	return strings.ReplaceAll(query, `"`, `""`)
}

// stringOrNull scans a nullable TEXT column
type stringOrNull struct {
	value string
	valid bool
}

func (s *stringOrNull) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		s.value, s.valid = "", false
	case string:
		s.value, s.valid = v, true
	case []byte:
		s.value, s.valid = string(v), true
	default:
		s.value, s.valid = fmt.Sprintf("%v", v), true
	}
	return nil
}
