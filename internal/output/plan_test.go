package output

import (
	"encoding/json"
	"strings"
	"testing"

	"lsa/internal/analysis"
)

func planInput() *PlanInput {
	return &PlanInput{
		SnapshotRoot: "/snap",
		Intent: &analysis.Intent{
			CID:           "wccu",
			LetterNumber:  "014",
			TitleKeywords: []string{"wccu", "address"},
			RawTitle:      "WCCU Letter 14 address update",
		},
		Candidates: []*analysis.BundleCandidate{
			{
				ProcKey: "proc:wccudla", ProcName: "wccudla",
				DisplayName: "WCCU - Daily Letters", Score: 74,
				ScoreBreakdown: []analysis.Strategy{{Name: "cid_prefix", Score: 15}},
				Files: []analysis.BundleFile{
					{Path: "procs/wccudla.procs", Kind: "procs", Source: "proc_file"},
					{Path: "docdef/wccudl014.dfa", Kind: "docdef", Source: "control_format_dfa"},
				},
			},
			{
				ProcKey: "proc:wccudlb", ProcName: "wccudlb",
				DisplayName: "WCCU - Other Letters", Score: 20,
				Files: []analysis.BundleFile{
					{Path: "procs/wccudlb.procs", Kind: "procs", Source: "proc_file"},
				},
			},
		},
	}
}

func TestRenderPlanText(t *testing.T) {
	out := RenderPlanText(planInput())

	for _, want := range []string{
		"PARSED INTENT",
		"CID: wccu",
		"Letter number: 014",
		"Keywords: wccu, address",
		"SELECTED BUNDLE: proc:wccudla (score: 74)",
		"WCCU - Daily Letters",
		"FILES TO OPEN:",
		"[procs] procs/wccudla.procs (proc_file)",
		"[docdef] docdef/wccudl014.dfa (control_format_dfa)",
		"OTHER CANDIDATES",
		"2. proc:wccudlb (score: 20, 1 files)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan text missing %q", want)
		}
	}

	// Runner-up files stay hidden without --all
	if strings.Contains(out, "procs/wccudlb.procs") {
		t.Error("runner-up files should be summarized, not listed")
	}
}

func TestRenderPlanTextShowAllAndDebug(t *testing.T) {
	in := planInput()
	in.ShowAll = true
	in.Debug = true

	out := RenderPlanText(in)
	if !strings.Contains(out, "procs/wccudlb.procs") {
		t.Error("--all should list runner-up files")
	}
	if !strings.Contains(out, "+15 cid_prefix") {
		t.Error("--debug should show the score breakdown")
	}
}

func TestRenderPlanTextRussian(t *testing.T) {
	in := planInput()
	in.Lang = "ru"

	out := RenderPlanText(in)
	if !strings.Contains(out, "РАЗОБРАННОЕ НАМЕРЕНИЕ") {
		t.Error("russian intent header missing")
	}
	if !strings.Contains(out, "ВЫБРАННЫЙ ПАКЕТ") {
		t.Error("russian bundle header missing")
	}
}

func TestRenderPlanTextNoCandidates(t *testing.T) {
	in := planInput()
	in.Candidates = nil

	out := RenderPlanText(in)
	if !strings.Contains(out, "(no matching procs found)") {
		t.Error("empty plan message missing")
	}
}

func TestRenderPlanJSON(t *testing.T) {
	out, err := RenderPlanJSON(planInput())
	if err != nil {
		t.Fatalf("RenderPlanJSON: %v", err)
	}

	var decoded struct {
		SnapshotRoot string `json:"snapshot_root"`
		Intent       struct {
			CID string `json:"cid"`
		} `json:"intent"`
		SelectedBundle struct {
			Rank  int     `json:"rank"`
			Key   string  `json:"key"`
			Score float64 `json:"score"`
			Files []struct {
				Kind    string `json:"kind"`
				Path    string `json:"path"`
				AbsPath string `json:"abs_path"`
				Reason  string `json:"reason"`
			} `json:"files"`
		} `json:"selected_bundle"`
		Others []struct {
			Key       string  `json:"key"`
			Score     float64 `json:"score"`
			FileCount int     `json:"file_count"`
		} `json:"other_candidates_summary"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if decoded.SnapshotRoot != "/snap" {
		t.Errorf("snapshot_root = %q", decoded.SnapshotRoot)
	}
	if decoded.Intent.CID != "wccu" {
		t.Errorf("intent cid = %q", decoded.Intent.CID)
	}
	if decoded.SelectedBundle.Rank != 1 || decoded.SelectedBundle.Key != "proc:wccudla" {
		t.Errorf("selected bundle = %+v", decoded.SelectedBundle)
	}
	if len(decoded.SelectedBundle.Files) != 2 {
		t.Fatalf("bundle files = %d, want 2", len(decoded.SelectedBundle.Files))
	}
	if decoded.SelectedBundle.Files[0].AbsPath != "/snap/procs/wccudla.procs" {
		t.Errorf("abs_path = %q", decoded.SelectedBundle.Files[0].AbsPath)
	}
	if len(decoded.Others) != 1 || decoded.Others[0].FileCount != 1 {
		t.Errorf("other candidates = %+v", decoded.Others)
	}
}

func TestRenderPlanCursor(t *testing.T) {
	out, err := RenderPlanCursor(planInput())
	if err != nil {
		t.Fatalf("RenderPlanCursor: %v", err)
	}

	if !strings.HasPrefix(out, "# LSA Bundle Plan") {
		t.Errorf("cursor prompt header = %q", strings.SplitN(out, "\n", 2)[0])
	}
	for _, want := range []string{
		"## Instructions",
		"1. Open files from `selected_bundle.files` (abs_path).",
		"7. Be concise.",
		"## Plan data",
		"```json",
		"\"key\": \"proc:wccudla\"",
		"Snapshot root: `/snap`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("cursor prompt missing %q", want)
		}
	}
}

func TestTrFallback(t *testing.T) {
	if got := tr("files_to_open", "ru"); got != "ФАЙЛЫ ДЛЯ ОТКРЫТИЯ" {
		t.Errorf("ru lookup = %q", got)
	}
	if got := tr("files_to_open", "de"); got != "FILES TO OPEN" {
		t.Errorf("unknown language should fall back to English, got %q", got)
	}
	if got := tr("no_such_key", "en"); got != "no_such_key" {
		t.Errorf("unknown key should fall back to itself, got %q", got)
	}
}
