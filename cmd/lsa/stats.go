package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Run:   runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
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

	artifacts, err := db.CountArtifacts()
	if err != nil {
		fail(err)
	}
	procs, err := db.CountProcs()
	if err != nil {
		fail(err)
	}
	nodes, edges, err := db.GraphCounts()
	if err != nil {
		fail(err)
	}
	incidents, err := db.CountIncidents()
	if err != nil {
		fail(err)
	}
	cards, err := db.CountCaseCards()
	if err != nil {
		fail(err)
	}
	codes, err := db.CountMessageCodes()
	if err != nil {
		fail(err)
	}

	fmt.Printf("Database: %s\n", db.Path())

	total := 0
	kinds := make([]string, 0, len(artifacts))
	for kind, n := range artifacts {
		kinds = append(kinds, kind)
		total += n
	}
	sort.Strings(kinds)

	fmt.Printf("Artifacts: %d\n", total)
	for _, kind := range kinds {
		fmt.Printf("  %-8s %d\n", kind, artifacts[kind])
	}
	fmt.Printf("Procs: %d\n", procs)
	fmt.Printf("Graph: %d nodes, %d edges\n", nodes, edges)
	fmt.Printf("Incidents: %d\n", incidents)
	fmt.Printf("Case cards: %d\n", cards)
	fmt.Printf("Message codes: %d\n", codes)
}
