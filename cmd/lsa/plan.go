package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lsa/internal/analysis"
	"lsa/internal/config"
	lsaerrors "lsa/internal/errors"
	"lsa/internal/output"
)

var (
	planCID    string
	planJob    string
	planTitle  string
	planAll    bool
	planAsJSON bool
	planCursor bool
	planLang   string
	planLimit  int
	planDebug  bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan which files to open for a change request",
	Long: `Builds ranked file bundles (procs, scripts, controls, inserts, document
definitions) from a change-request intent: an explicit client id and job,
or a free-form ticket title the planner parses itself.

Examples:
  lsa plan --cid wccu --job dla
  lsa plan --title "WCCU Letter 14 address block update"
  lsa plan --title "WCCU DL014 fix" --json
  lsa plan --cid wccu --cursor        # Markdown prompt for an AI editor`,
	Run: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planCID, "cid", "", "Client id (4 letters)")
	planCmd.Flags().StringVar(&planJob, "job", "", "Job id suffix, e.g. dla")
	planCmd.Flags().StringVar(&planTitle, "title", "", "Free-form ticket title to parse")
	planCmd.Flags().BoolVar(&planAll, "all", false, "Show files for every candidate")
	planCmd.Flags().BoolVar(&planAsJSON, "json", false, "Emit machine-readable JSON")
	planCmd.Flags().BoolVar(&planCursor, "cursor", false, "Emit a Markdown prompt for an AI editor")
	planCmd.Flags().StringVar(&planLang, "lang", "", "Output language: en or ru (default from config)")
	planCmd.Flags().IntVar(&planLimit, "limit", 5, "Maximum candidates")
	planCmd.Flags().BoolVar(&planDebug, "debug", false, "Show score breakdowns")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) {
	if planCID == "" && planTitle == "" {
		fail(lsaerrors.New(lsaerrors.InputMissing, "provide --cid or --title"))
	}

	root, err := resolveSnapshot()
	if err != nil {
		fail(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		fail(err)
	}
	lang := planLang
	if lang == "" {
		lang = cfg.Language
	}

	logger := newLogger()
	db, err := openExistingDB(root, logger)
	if err != nil {
		fail(err)
	}
	defer func() { _ = db.Close() }()

	intent := analysis.BuildIntent(planCID, planJob, planTitle)
	planner := analysis.NewPlanner(db, root)
	candidates, err := planner.Plan(intent, planLimit)
	if err != nil {
		fail(err)
	}

	in := &output.PlanInput{
		SnapshotRoot: root,
		Intent:       intent,
		Candidates:   candidates,
		ShowAll:      planAll,
		Lang:         lang,
		Debug:        planDebug,
	}

	switch {
	case planCursor:
		text, err := output.RenderPlanCursor(in)
		if err != nil {
			fail(err)
		}
		fmt.Print(text)
	case planAsJSON:
		text, err := output.RenderPlanJSON(in)
		if err != nil {
			fail(err)
		}
		fmt.Print(text)
	default:
		fmt.Print(output.RenderPlanText(in))
	}
}
