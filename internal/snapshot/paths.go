package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Original production hosts kept user homes like /home/master and /home/util;
// the snapshot flattens those into top-level directories, with util merged
// into master.
var homeDirAliases = map[string]string{
	"util": "master",
}

var unixPathRe = regexp.MustCompile(`/(?:[A-Za-z0-9_.-]+/)+[A-Za-z0-9_.-]+`)

// MappedPath is the result of resolving an original unix path against
// the snapshot tree
type MappedPath struct {
	OriginalPath string  `json:"original_path"`
	SnapshotPath string  `json:"snapshot_path"`
	AbsPath      string  `json:"abs_path,omitempty"`
	Confidence   float64 `json:"confidence"`
	Found        bool    `json:"found"`
}

// NormalizePath converts a path to forward slashes without a trailing slash
func NormalizePath(path string) string {
	p := filepath.ToSlash(path)
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// MapUnixToSnapshot resolves an original unix path like /home/master/x.sh
// to its location under the snapshot root. Confidence reflects how the
// match was made: 1.0 exact, 0.9 case-insensitive, 0.7 unique basename
// found elsewhere, 0.5 ambiguous basename (first match wins).
func MapUnixToSnapshot(root, originalPath string) *MappedPath {
	result := &MappedPath{OriginalPath: originalPath}

	rel := NormalizePath(originalPath)
	rel = strings.TrimPrefix(rel, "/home/")
	rel = strings.TrimPrefix(rel, "/")

	if parts := strings.SplitN(rel, "/", 2); len(parts) == 2 {
		if alias, ok := homeDirAliases[strings.ToLower(parts[0])]; ok {
			rel = alias + "/" + parts[1]
		}
	}

	abs := filepath.Join(root, filepath.FromSlash(rel))
	if fileIsRegular(abs) {
		result.SnapshotPath = rel
		result.AbsPath = abs
		result.Confidence = 1.0
		result.Found = true
		return result
	}

	if ci := resolveCaseInsensitive(root, rel); ci != "" {
		result.SnapshotPath = ci
		result.AbsPath = filepath.Join(root, filepath.FromSlash(ci))
		result.Confidence = 0.9
		result.Found = true
		return result
	}

	base := filepath.Base(rel)
	matches := findByBasename(root, base)
	switch len(matches) {
	case 0:
		result.SnapshotPath = rel
		return result
	case 1:
		result.SnapshotPath = matches[0]
		result.AbsPath = filepath.Join(root, filepath.FromSlash(matches[0]))
		result.Confidence = 0.7
		result.Found = true
	default:
		result.SnapshotPath = matches[0]
		result.AbsPath = filepath.Join(root, filepath.FromSlash(matches[0]))
		result.Confidence = 0.5
		result.Found = true
	}
	return result
}

// ExtractPaths returns unique absolute unix paths mentioned in free text,
// in order of first appearance
func ExtractPaths(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range unixPathRe.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:")
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// resolveCaseInsensitive walks rel's components under root matching each
// one case-insensitively. Returns the actual relative path or "".
func resolveCaseInsensitive(root, rel string) string {
	parts := strings.Split(rel, "/")
	current := root
	var resolved []string

	for i, part := range parts {
		entries, err := os.ReadDir(current)
		if err != nil {
			return ""
		}
		var match string
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				if i < len(parts)-1 && !e.IsDir() {
					continue
				}
				match = e.Name()
				break
			}
		}
		if match == "" {
			return ""
		}
		resolved = append(resolved, match)
		current = filepath.Join(current, match)
	}

	if !fileIsRegular(current) {
		return ""
	}
	return strings.Join(resolved, "/")
}

// findByBasename locates files with the given basename anywhere under root,
// sorted by path via the walk order
func findByBasename(root, base string) []string {
	var matches []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".lsa" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(d.Name(), base) {
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				matches = append(matches, filepath.ToSlash(rel))
			}
		}
		return nil
	})
	return matches
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
