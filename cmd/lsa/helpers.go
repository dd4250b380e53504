package main

import (
	"fmt"
	"os"
	"path/filepath"

	"lsa/internal/config"
	lsaerrors "lsa/internal/errors"
	"lsa/internal/logging"
	"lsa/internal/storage"
)

// newLogger builds a logger from the persistent CLI flags
func newLogger() *logging.Logger {
	format := logging.HumanFormat
	if logFormatFlag == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.LogLevel(logLevelFlag),
	})
}

// resolveSnapshot turns --snapshot into an absolute path and verifies it
// is a directory
func resolveSnapshot() (string, error) {
	root, err := filepath.Abs(snapshotFlag)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return "", lsaerrors.New(lsaerrors.InputMissing,
			fmt.Sprintf("snapshot directory does not exist: %s", root))
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", lsaerrors.New(lsaerrors.InputMissing,
			fmt.Sprintf("snapshot path is not a directory: %s", root))
	}
	return root, nil
}

// openExistingDB opens the snapshot database, failing with a hint to run
// scan first when it does not exist yet
func openExistingDB(root string, logger *logging.Logger) (*storage.DB, error) {
	if !storage.Exists(root) {
		return nil, lsaerrors.New(lsaerrors.InputMissing,
			fmt.Sprintf("no database at %s, run 'lsa scan' first", config.DBPath(root)))
	}
	return storage.Open(root, logger)
}

// historyDirs returns the conventional history locations that exist for a
// snapshot: histories/ and refs/histories/ under the root and its parent
func historyDirs(root string) []string {
	parent := filepath.Dir(root)
	candidates := []string{
		filepath.Join(root, "histories"),
		filepath.Join(root, "refs", "histories"),
		filepath.Join(parent, "histories"),
		filepath.Join(parent, "refs", "histories"),
	}

	var dirs []string
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
