package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lsa/internal/config"
	lsaerrors "lsa/internal/errors"
	"lsa/internal/graph"
	"lsa/internal/logging"
	"lsa/internal/parsers"
	"lsa/internal/snapshot"
	"lsa/internal/storage"
)

var scanIncludeLogs bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Index the snapshot and build the execution graph",
	Long: `Walks the configured snapshot directories, stores every file as an
artifact (text content kept for text extensions, FTS-indexed), parses job
definitions, and builds the proc/script/resource execution graph.

Re-running scan is incremental: unchanged files keep their derived edges,
changed ones get their edges rebuilt. Files that cannot be read are logged
and skipped; a partial graph is better than no graph.

Examples:
  lsa scan                       # index snapshot in the current directory
  lsa scan --snapshot /data/snap # index another snapshot
  lsa scan --include-logs        # also record files under logs/`,
	Run: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanIncludeLogs, "include-logs", false,
		"Also index files under logs/ (metadata only)")
	rootCmd.AddCommand(scanCmd)
}

type scanResult struct {
	FilesSeen    int
	FilesChanged int
	FilesSkipped int
	ProcEntries  []*graph.ProcEntry
}

// scanSnapshot walks the snapshot and upserts one artifact per file.
// Unreadable files are warned about and skipped; only storage failures
// abort the walk.
func scanSnapshot(db *storage.DB, cfg *config.Config, root string,
	includeLogs bool, logger *logging.Logger) (*scanResult, error) {
	res := &scanResult{}

	err := snapshot.Walk(root, cfg, includeLogs, func(f *snapshot.File) error {
		res.FilesSeen++

		skip := func(err error) {
			res.FilesSkipped++
			logger.Warn("Skipping unreadable file", map[string]interface{}{
				"path":  f.RelPath,
				"code":  string(lsaerrors.ParseSkipped),
				"error": err.Error(),
			})
		}

		artifact := &storage.Artifact{
			Kind:  f.Kind,
			Path:  f.RelPath,
			MTime: f.MTime,
			Size:  f.Size,
		}

		ext := strings.ToLower(filepath.Ext(f.RelPath))
		if cfg.IsTextExtension(ext) && !cfg.IsMetadataOnlyExtension(ext) {
			text, ok, err := snapshot.TryReadText(f.AbsPath, cfg.MaxTextSize)
			if err != nil {
				skip(err)
				return nil
			}
			if ok {
				artifact.TextContent = text
				artifact.HasContent = true
				artifact.SHA256 = snapshot.HashText(text)
			}
		}
		if artifact.SHA256 == "" {
			sha, err := snapshot.HashFile(f.AbsPath)
			if err != nil {
				skip(err)
				return nil
			}
			artifact.SHA256 = sha
		}

		_, changed, err := db.UpsertArtifact(artifact)
		if err != nil {
			return err
		}
		if changed {
			res.FilesChanged++
		}

		if f.Kind == "procs" && artifact.HasContent {
			name := strings.ToLower(strings.TrimSuffix(filepath.Base(f.RelPath), ".procs"))
			data := parsers.ParseProcs(artifact.TextContent)
			parsedJSON, err := data.ToJSON()
			if err != nil {
				return err
			}
			if _, err := db.UpsertProc(&storage.Proc{
				ProcName:   name,
				Path:       f.RelPath,
				ParsedJSON: parsedJSON,
				SHA256:     artifact.SHA256,
			}); err != nil {
				return err
			}
			res.ProcEntries = append(res.ProcEntries, &graph.ProcEntry{
				Name:           name,
				Data:           data,
				SourceArtifact: f.RelPath,
				Changed:        changed,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func runScan(cmd *cobra.Command, args []string) {
	root, err := resolveSnapshot()
	if err != nil {
		fail(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		fail(err)
	}

	logger := newLogger()
	db, err := storage.Open(root, logger)
	if err != nil {
		fail(err)
	}
	defer func() { _ = db.Close() }()

	start := time.Now()
	res, err := scanSnapshot(db, cfg, root, scanIncludeLogs, logger)
	if err != nil {
		fail(err)
	}

	builder := graph.NewBuilder(db, logger, root)
	stats, err := builder.Build(res.ProcEntries)
	if err != nil {
		fail(err)
	}

	nodes, edges, err := db.GraphCounts()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Scanned %s in %.1fs\n", root, time.Since(start).Seconds())
	fmt.Printf("  Files: %d seen, %d changed, %d skipped\n",
		res.FilesSeen, res.FilesChanged, res.FilesSkipped)
	fmt.Printf("  Procs: %d parsed\n", stats.ProcsProcessed)
	fmt.Printf("  Graph: %d nodes, %d edges (%d edges rebuilt)\n",
		nodes, edges, stats.EdgesCreated)

	if res.FilesSeen == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no files found. Check that the snapshot root contains procs/, master/, control/, insert/, or docdef/ directories.")
	}
}
