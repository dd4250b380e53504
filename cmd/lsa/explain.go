package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lsa/internal/analysis"
	"lsa/internal/config"
	lsaerrors "lsa/internal/errors"
	"lsa/internal/graph"
	"lsa/internal/logging"
	"lsa/internal/output"
	"lsa/internal/parsers"
	"lsa/internal/signals"
	"lsa/internal/storage"
)

var (
	explainProc      string
	explainNoPersist bool
	explainDebug     bool
	explainRules     string
)

var explainCmd = &cobra.Command{
	Use:   "explain <log-file>",
	Short: "Analyze a failure log and print a context pack",
	Long: `Parses a failure log, matches it to the execution graph, detects
external-system signals, ranks root-cause hypotheses, finds similar past
cases, and prints a context pack to stdout. The result is persisted as an
incident keyed by the log path; re-running on the same log updates it.

Examples:
  lsa explain logs/wccudla.print_process.log
  lsa explain failed.log --proc wccudla      # skip matching, force the proc
  lsa explain failed.log --debug             # show candidate scoring
  lsa explain failed.log --no-persist        # analyze without saving`,
	Args: cobra.ExactArgs(1),
	Run:  runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainProc, "proc", "",
		"Force the proc instead of matching")
	explainCmd.Flags().BoolVar(&explainNoPersist, "no-persist", false,
		"Do not record the analysis as an incident")
	explainCmd.Flags().BoolVar(&explainDebug, "debug", false,
		"Show matching candidate breakdown")
	explainCmd.Flags().StringVar(&explainRules, "rules", "",
		"External signal rules YAML (overrides embedded rules)")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) {
	logPath := args[0]

	root, err := resolveSnapshot()
	if err != nil {
		fail(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		fail(err)
	}

	logger := newLogger()
	db, err := openExistingDB(root, logger)
	if err != nil {
		fail(err)
	}
	defer func() { _ = db.Close() }()

	data, err := os.ReadFile(logPath)
	if err != nil {
		fail(lsaerrors.Wrap(lsaerrors.InputMissing,
			fmt.Sprintf("cannot read log file %s", logPath), err))
	}
	text := string(data)
	logAnalysis := parsers.ParseLog(text, logPath)

	engine, err := loadSignalEngine(cfg)
	if err != nil {
		fail(err)
	}
	extSignals := engine.Extract(text)
	services := signals.ServicesFromText(text)
	infotracIDs := signals.InfoTracMissingIDs(extSignals)

	matcher := graph.NewMatcher(db)
	match, err := matcher.MatchLog(logAnalysis, logPath, explainProc, explainDebug)
	if err != nil {
		fail(err)
	}
	if match.NoConfidentMatch {
		warnNoMatch(logger, logPath)
	}

	codeDefs, err := db.LookupMessageCodes(logAnalysis.ErrorCodes)
	if err != nil {
		fail(err)
	}

	hyps := analysis.GenerateHypotheses(logAnalysis, extSignals, codeDefs, cfg.MaxHypotheses)

	var upstream, downstream []output.Neighbor
	var relatedFiles []string
	if match.Node != nil {
		if match.Node.CanonicalPath != "" {
			relatedFiles = append(relatedFiles, match.Node.CanonicalPath)
		}
		upstream, downstream, err = graphNeighbors(db, match.Node.ID)
		if err != nil {
			fail(err)
		}
		for _, n := range downstream {
			if n.Node.CanonicalPath != "" {
				relatedFiles = append(relatedFiles, n.Node.CanonicalPath)
			}
		}
	}

	simSignals := append([]string{}, logAnalysis.ErrorCodes...)
	for _, sig := range extSignals {
		simSignals = append(simSignals, sig.ID)
	}
	similar, err := analysis.FindSimilarCases(db, simSignals, relatedFiles,
		cfg.MaxSimilarCases, cfg.SimilarityThreshold)
	if err != nil {
		fail(err)
	}

	pack := output.RenderContextPack(&output.PackInput{
		LogPath:      logPath,
		GeneratedAt:  time.Now(),
		Analysis:     logAnalysis,
		TopNode:      match.Node,
		Confidence:   match.Confidence,
		Upstream:     upstream,
		Downstream:   downstream,
		Hypotheses:   hyps,
		SimilarCases: similar,
		RelatedFiles: relatedFiles,
		SnapshotRoot: root,
		CodeDefs:     codeDefs,
		ExtSignals:   extSignals,
		Services:     services,
		InfoTracIDs:  infotracIDs,
		MaxLines:     cfg.MaxContextPackLines,
		MaxEvidence:  cfg.MaxEvidenceSnippet,
	})
	fmt.Print(pack)

	if explainDebug && len(match.Candidates) > 0 {
		fmt.Print(graph.FormatDebugCandidates(match.Candidates))
	}

	if explainNoPersist {
		return
	}
	if err := persistIncident(db, logPath, logAnalysis, match, hyps, similar); err != nil {
		fail(err)
	}
}

// warnNoMatch labels the no-match outcome with its stable code so
// json-format log consumers can pick it up; the context pack itself
// still renders with a NOT FOUND header
func warnNoMatch(logger *logging.Logger, logPath string) {
	logger.Warn("No graph node matched with a positive score", map[string]interface{}{
		"code": string(lsaerrors.NoMatch),
		"log":  logPath,
	})
}

func loadSignalEngine(cfg *config.Config) (*signals.Engine, error) {
	switch {
	case explainRules != "":
		return signals.NewEngineFromFile(explainRules)
	case cfg.RulesPath != "":
		return signals.NewEngineFromFile(cfg.RulesPath)
	default:
		return signals.NewEngine()
	}
}

func graphNeighbors(db *storage.DB, nodeID int64) (up, down []output.Neighbor, err error) {
	incoming, err := db.IncomingEdges(nodeID)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range incoming {
		n, err := db.NodeByID(e.Src)
		if err != nil {
			return nil, nil, err
		}
		if n != nil {
			up = append(up, output.Neighbor{RelType: e.RelType, Node: n})
		}
	}

	outgoing, err := db.OutgoingEdges(nodeID)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range outgoing {
		n, err := db.NodeByID(e.Dst)
		if err != nil {
			return nil, nil, err
		}
		if n != nil {
			down = append(down, output.Neighbor{RelType: e.RelType, Node: n})
		}
	}
	return up, down, nil
}

func persistIncident(db *storage.DB, logPath string, logAnalysis *parsers.Analysis,
	match *graph.Match, hyps []*analysis.Hypothesis, similar []*analysis.SimilarCase) error {
	parsedJSON, err := json.Marshal(logAnalysis)
	if err != nil {
		return err
	}
	hypsJSON, err := json.Marshal(hyps)
	if err != nil {
		return err
	}
	similarJSON, err := json.Marshal(similar)
	if err != nil {
		return err
	}

	inc := &storage.Incident{
		RunID:            uuid.New().String(),
		LogPath:          logPath,
		ParsedJSON:       string(parsedJSON),
		Confidence:       match.Confidence,
		HypothesesJSON:   string(hypsJSON),
		SimilarCasesJSON: string(similarJSON),
	}
	if match.Node != nil {
		inc.TopNodeID = match.Node.ID
		inc.TopNodeKey = match.Node.Key
	}

	_, inserted, err := db.UpsertIncident(inc)
	if err != nil {
		return lsaerrors.Wrap(lsaerrors.StoreFailed, "failed to persist incident", err)
	}
	if inserted {
		fmt.Fprintf(os.Stderr, "Incident recorded for %s\n", logPath)
	} else {
		fmt.Fprintf(os.Stderr, "Incident updated for %s\n", logPath)
	}
	return nil
}
