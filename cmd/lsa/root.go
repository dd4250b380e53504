package main

import (
	"github.com/spf13/cobra"

	"lsa/internal/version"
)

var (
	snapshotFlag  string
	logFormatFlag string
	logLevelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "lsa",
	Short: "LSA - Legacy Snapshot Analyzer",
	Long: `LSA (Legacy Snapshot Analyzer) indexes a file snapshot of a legacy batch
processing system into a SQLite-backed execution graph, then answers
questions about it: which job a failure log belongs to, what probably went
wrong, which past cases looked similar, and which files to open for a
change request.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("lsa version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&snapshotFlag, "snapshot", ".",
		"Snapshot root directory")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "human",
		"Log output format: human or json")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Log level: debug, info, warn, or error")
}
