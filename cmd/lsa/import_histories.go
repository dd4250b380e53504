package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	lsaerrors "lsa/internal/errors"
	"lsa/internal/parsers"
	"lsa/internal/storage"
)

var historiesRedact bool

var importHistoriesCmd = &cobra.Command{
	Use:   "import-histories [path...]",
	Short: "Mine troubleshooting histories into case cards",
	Long: `Splits history files (chat transcripts, runbooks, markdown notes) into
chunks and mines case cards out of the ones that carry error signatures,
shell commands, or file paths. Cards are deduplicated by content hash, so
re-importing the same material is a no-op.

Without arguments the conventional locations are searched: histories/ and
refs/histories/ under the snapshot root and its parent.

Examples:
  lsa import-histories
  lsa import-histories notes/oncall.md
  lsa import-histories refs/histories --redact=false`,
	Run: runImportHistories,
}

func init() {
	importHistoriesCmd.Flags().BoolVar(&historiesRedact, "redact", true,
		"Redact emails, phone numbers, and account numbers")
	rootCmd.AddCommand(importHistoriesCmd)
}

func runImportHistories(cmd *cobra.Command, args []string) {
	root, err := resolveSnapshot()
	if err != nil {
		fail(err)
	}

	logger := newLogger()
	db, err := openExistingDB(root, logger)
	if err != nil {
		fail(err)
	}
	defer func() { _ = db.Close() }()

	paths := args
	if len(paths) == 0 {
		paths = historyDirs(root)
		if len(paths) == 0 {
			fail(lsaerrors.New(lsaerrors.InputMissing,
				"no history files given and no histories/ directory found"))
		}
	}

	files, err := collectHistoryFiles(paths)
	if err != nil {
		fail(err)
	}
	if len(files) == 0 {
		fmt.Println("No history files found.")
		return
	}

	written := 0
	skipped := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Warn("Skipping unreadable history file", map[string]interface{}{
				"path": file, "error": err.Error(),
			})
			continue
		}

		for _, card := range parsers.ParseHistory(string(data), file, historiesRedact) {
			wrote, err := db.UpsertCaseCard(cardToRow(card))
			if err != nil {
				fail(err)
			}
			if wrote {
				written++
			} else {
				skipped++
			}
		}
	}

	fmt.Printf("Imported %d case cards from %d files (%d duplicates skipped)\n",
		written, len(files), skipped)
}

func collectHistoryFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, lsaerrors.Wrap(lsaerrors.InputMissing,
				fmt.Sprintf("cannot access %s", p), err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".md", ".txt", ".log":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func cardToRow(card *parsers.HistoryCard) *storage.CaseCard {
	row := &storage.CaseCard{
		SourcePath:  card.SourcePath,
		ChunkID:     card.ChunkID,
		ContentHash: card.ContentHash,
		Title:       card.Title,
		RootCause:   card.RootCause,
		FixSummary:  card.FixSummary,
	}
	row.SignalsJSON = marshalList(card.Signals)
	row.VerifyCmdsJSON = marshalList(card.VerifyCommands)
	row.RelFilesJSON = marshalList(card.RelatedFiles)
	row.TagsJSON = marshalList(card.Tags)
	return row
}

func marshalList(list []string) string {
	if len(list) == 0 {
		return ""
	}
	data, _ := json.Marshal(list)
	return string(data)
}
