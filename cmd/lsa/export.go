package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"lsa/internal/config"
	"lsa/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the analysis state as a compressed dump",
	Long: `Writes the execution graph, incidents, case cards, and code definitions
to a single zstd-compressed JSON file for archiving or transfer.

Examples:
  lsa export
  lsa export --out /tmp/wccu-snapshot.json.zst`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "",
		"Output path (default .lsa/lsa-export.json.zst)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
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

	outPath := exportOut
	if outPath == "" {
		outPath = filepath.Join(root, config.StateDir, "lsa-export.json.zst")
	}

	stats, err := export.WriteDump(db, root, outPath)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Exported to %s (%.1f KB)\n", outPath, float64(stats.Bytes)/1024)
	fmt.Printf("  %d nodes, %d edges, %d incidents, %d case cards, %d code definitions\n",
		stats.Nodes, stats.Edges, stats.Incidents, stats.CaseCards, stats.MessageCodes)
}
