package snapshot

import (
	"io/fs"
	"path/filepath"
	"strings"

	"lsa/internal/config"
)

// File is one file discovered by a snapshot walk
type File struct {
	// RelPath is forward-slash relative to the snapshot root
	RelPath string
	AbsPath string
	Kind    string
	Size    int64
	MTime   float64
}

var kindByExt = map[string]string{
	".procs":   "procs",
	".sh":      "script",
	".pl":      "script",
	".py":      "script",
	".control": "control",
	".ins":     "insert",
	".dfa":     "docdef",
	".log":     "log",
}

// KindForPath classifies a file by its extension
func KindForPath(path string) string {
	if kind, ok := kindByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return kind
	}
	return "other"
}

// Walk visits every regular file under the configured scan directories
// (plus logs/ when includeLogs is set) and calls fn for each. Directories
// missing from the snapshot are skipped silently. The .lsa state directory
// is never entered.
func Walk(root string, cfg *config.Config, includeLogs bool, fn func(*File) error) error {
	dirs := append([]string{}, cfg.ScanDirs...)
	if includeLogs {
		dirs = append(dirs, "logs")
	}

	for _, dir := range dirs {
		dirAbs := filepath.Join(root, dir)
		err := filepath.WalkDir(dirAbs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if d.Name() == config.StateDir {
					return filepath.SkipDir
				}
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			return fn(&File{
				RelPath: filepath.ToSlash(rel),
				AbsPath: path,
				Kind:    KindForPath(path),
				Size:    info.Size(),
				MTime:   float64(info.ModTime().UnixNano()) / 1e9,
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}
