package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var incidentsLimit int

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List recorded incidents",
	Long: `Lists persisted log analyses, most recently touched first. Each explain
run records or refreshes one incident per log path.`,
	Run: runIncidents,
}

func init() {
	incidentsCmd.Flags().IntVar(&incidentsLimit, "limit", 20, "Maximum incidents")
	rootCmd.AddCommand(incidentsCmd)
}

func runIncidents(cmd *cobra.Command, args []string) {
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

	incidents, err := db.ListIncidents(incidentsLimit)
	if err != nil {
		fail(err)
	}
	if len(incidents) == 0 {
		fmt.Println("No incidents recorded.")
		return
	}

	for i, inc := range incidents {
		when := inc.UpdatedAt
		if when == "" {
			when = inc.CreatedAt
		}
		node := inc.TopNodeKey
		if node == "" {
			node = "(no match)"
		}
		fmt.Printf("%d. %s\n", i+1, inc.LogPath)
		fmt.Printf("   %s, confidence %.0f%%, %s\n", node, inc.Confidence*100, when)
	}
}
