package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchRaw   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed snapshot files",
	Long: `Searches artifact paths and text content. The search widens in stages:
path substring first, then exact full-text phrase, then prefix, then a
plain content scan. Use --raw to pass FTS5 operators through unescaped.

Examples:
  lsa search wccudl014
  lsa search "No data found"
  lsa search 'format_dfa AND wccu' --raw`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	searchCmd.Flags().BoolVar(&searchRaw, "raw", false,
		"Pass the query to FTS5 unescaped")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
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

	results, err := db.SearchArtifacts(args[0], searchLimit, searchRaw)
	if err != nil {
		fail(err)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}

	for i, r := range results {
		fmt.Printf("%d. [%s] %s (%s)\n", i+1, r.Artifact.Kind, r.Artifact.Path, r.Method)
		if r.Snippet != "" {
			snippet := strings.ReplaceAll(r.Snippet, "\n", " ")
			fmt.Printf("   %s\n", snippet)
		}
	}
}
