package analysis

import (
	"testing"

	"lsa/internal/storage"
)

func TestParseTitle(t *testing.T) {
	cid, letter, keywords := ParseTitle("WCCU Letter 14 address update")
	if cid != "wccu" {
		t.Errorf("cid = %q, want wccu", cid)
	}
	if letter != "014" {
		t.Errorf("letter = %q, want 014 (zero-padded)", letter)
	}
	want := []string{"wccu", "address"}
	if len(keywords) != len(want) {
		t.Fatalf("keywords = %v, want %v", keywords, want)
	}
	for i := range want {
		if keywords[i] != want[i] {
			t.Errorf("keywords[%d] = %q, want %q", i, keywords[i], want[i])
		}
	}
}

func TestParseTitleDLMarker(t *testing.T) {
	_, letter, _ := ParseTitle("BKFN DL022 overdraft notice")
	if letter != "022" {
		t.Errorf("letter = %q, want 022", letter)
	}
}

func TestBuildIntentExplicitWins(t *testing.T) {
	intent := BuildIntent("BKFN", "DLA", "WCCU Letter 14 address update")
	if intent.CID != "bkfn" {
		t.Errorf("CID = %q, explicit argument should win", intent.CID)
	}
	if intent.JobID != "dla" {
		t.Errorf("JobID = %q", intent.JobID)
	}
	if intent.LetterNumber != "014" {
		t.Errorf("LetterNumber = %q", intent.LetterNumber)
	}
	if intent.RawTitle != "WCCU Letter 14 address update" {
		t.Errorf("RawTitle = %q", intent.RawTitle)
	}
}

func TestBuildIntentFromTitleOnly(t *testing.T) {
	intent := BuildIntent("", "", "WCCU Letter 14 address update")
	if intent.CID != "wccu" {
		t.Errorf("CID = %q, want wccu from title", intent.CID)
	}
	if intent.JobID != "" {
		t.Errorf("JobID = %q, want empty", intent.JobID)
	}
}

func TestFilterDFAByLetter(t *testing.T) {
	codes := []string{"WCCUDL014", "WCCUDL0014", "WCCUDL015", "WCCUDL"}

	got := filterDFAByLetter(codes, "014")
	if len(got) != 2 || got[0] != "WCCUDL014" || got[1] != "WCCUDL0014" {
		t.Errorf("filtered = %v, want both 014 variants", got)
	}

	if got := filterDFAByLetter(codes, ""); len(got) != len(codes) {
		t.Errorf("empty letter should keep all codes, got %v", got)
	}
}

func TestJobFamilyPrefix(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"bkfnds1122", "bkfnds"},
		{"bkfnds1", "bkfnds"},
		{"wccudla", "wccudl"},
		{"wccu", "wccu"},
	}
	for _, tt := range tests {
		if got := jobFamilyPrefix(tt.name); got != tt.want {
			t.Errorf("jobFamilyPrefix(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtractTitlePhrase(t *testing.T) {
	if got := extractTitlePhrase("WCCU Letter 14 address update"); got != "address update" {
		t.Errorf("phrase = %q, want %q", got, "address update")
	}
}

func seedPlannerSnapshot(t *testing.T, db *storage.DB) {
	t.Helper()

	procJSON := `{"cid":"wccu","app_type":"Address Update","shell_script":"/home/master/wccu_dl_process.sh","docdefs":["WCCUDL014"]}`
	if _, err := db.UpsertProc(&storage.Proc{
		ProcName:   "wccudla",
		Path:       "procs/wccudla.procs",
		ParsedJSON: procJSON,
		SHA256:     "abc123",
	}); err != nil {
		t.Fatal(err)
	}

	procID, err := db.UpsertNode(&storage.Node{
		Type: storage.NodeProc, Key: "proc:wccudla",
		DisplayName:   "WCCU - Address Update",
		CanonicalPath: "procs/wccudla.procs",
		Confidence:    1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	scriptID, err := db.UpsertNode(&storage.Node{
		Type: storage.NodeScript, Key: "script:wccu_dl_process.sh",
		DisplayName:   "wccu_dl_process.sh",
		CanonicalPath: "master/wccu_dl_process.sh",
		Confidence:    1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	insertID, err := db.UpsertNode(&storage.Node{
		Type: storage.NodeInsert, Key: "insert:wccu_dl.ins",
		DisplayName:   "wccu_dl.ins",
		CanonicalPath: "insert/wccu_dl.ins",
		Confidence:    1.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []*storage.Edge{
		{Src: procID, Dst: scriptID, RelType: storage.EdgeRuns, Confidence: 1.0},
		{Src: procID, Dst: insertID, RelType: storage.EdgeReads, Confidence: 1.0},
	} {
		if err := db.UpsertEdge(e); err != nil {
			t.Fatal(err)
		}
	}

	// An unrelated proc that must not surface for a wccu intent
	if _, err := db.UpsertNode(&storage.Node{
		Type: storage.NodeProc, Key: "proc:bkfnds1",
		DisplayName: "BKFN - Daily Statements", Confidence: 1.0,
	}); err != nil {
		t.Fatal(err)
	}

	artifacts := []*storage.Artifact{
		{
			Kind: "control", Path: "control/wccudl014.control",
			SHA256: "c1", TextContent: `wdn_format_dfa="WCCUDL014"`, HasContent: true,
		},
		{Kind: "docdef", Path: "docdef/wccudl014.dfa", SHA256: "d1"},
		{Kind: "docdef", Path: "docdef/wccudl015.dfa", SHA256: "d2"},
	}
	for _, a := range artifacts {
		if _, _, err := db.UpsertArtifact(a); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPlanBuildsRankedBundle(t *testing.T) {
	db := openTestDB(t)
	seedPlannerSnapshot(t, db)

	planner := NewPlanner(db, t.TempDir())
	intent := BuildIntent("", "", "WCCU Letter 14 address update")

	candidates, err := planner.Plan(intent, 5)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}

	best := candidates[0]
	if best.ProcKey != "proc:wccudla" {
		t.Errorf("ProcKey = %q", best.ProcKey)
	}
	if best.Score <= 0 {
		t.Errorf("Score = %v, want positive", best.Score)
	}

	byKind := make(map[string][]string)
	for _, f := range best.Files {
		byKind[f.Kind] = append(byKind[f.Kind], f.Path)
	}
	if len(byKind["procs"]) != 1 || byKind["procs"][0] != "procs/wccudla.procs" {
		t.Errorf("procs files = %v", byKind["procs"])
	}
	if len(byKind["script"]) != 1 || byKind["script"][0] != "master/wccu_dl_process.sh" {
		t.Errorf("script files = %v", byKind["script"])
	}
	if len(byKind["insert"]) != 1 || byKind["insert"][0] != "insert/wccu_dl.ins" {
		t.Errorf("insert files = %v", byKind["insert"])
	}
	if len(byKind["control"]) != 1 || byKind["control"][0] != "control/wccudl014.control" {
		t.Errorf("control files = %v", byKind["control"])
	}
	// Only the letter-14 docdef, never its 015 sibling
	if len(byKind["docdef"]) != 1 || byKind["docdef"][0] != "docdef/wccudl014.dfa" {
		t.Errorf("docdef files = %v", byKind["docdef"])
	}

	names := make(map[string]bool)
	for _, s := range best.ScoreBreakdown {
		names[s.Name] = true
	}
	for _, want := range []string{"cid_prefix", "has_scripts", "has_inserts", "has_dfa", "title_phrase_match"} {
		if !names[want] {
			t.Errorf("score breakdown missing %q: %v", want, best.ScoreBreakdown)
		}
	}
}

func TestPlanExactKeyMatchLeads(t *testing.T) {
	db := openTestDB(t)
	seedPlannerSnapshot(t, db)

	// A sibling sharing the cid prefix
	if _, err := db.UpsertNode(&storage.Node{
		Type: storage.NodeProc, Key: "proc:wccudlb",
		DisplayName: "WCCU - Other Letters", Confidence: 1.0,
	}); err != nil {
		t.Fatal(err)
	}

	planner := NewPlanner(db, t.TempDir())
	intent := BuildIntent("wccu", "dla", "")

	candidates, err := planner.Plan(intent, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].ProcKey != "proc:wccudla" {
		t.Errorf("best = %q, want the exact cid+job match first", candidates[0].ProcKey)
	}
	if candidates[0].Score <= candidates[1].Score {
		t.Errorf("scores not ranked: %v then %v", candidates[0].Score, candidates[1].Score)
	}
}

func TestPlanKeywordFallback(t *testing.T) {
	db := openTestDB(t)
	seedPlannerSnapshot(t, db)

	planner := NewPlanner(db, t.TempDir())
	// No 4-letter uppercase token, so candidates come from keyword search
	intent := BuildIntent("", "", "address update failing again")

	candidates, err := planner.Plan(intent, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || candidates[0].ProcKey != "proc:wccudla" {
		t.Fatalf("candidates = %+v, want wccudla via keywords", candidates)
	}
}
