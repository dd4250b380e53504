package analysis

import (
	"encoding/json"
	"io"
	"testing"

	"lsa/internal/logging"
	"lsa/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
	db, err := storage.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func seedCard(t *testing.T, db *storage.DB, chunkID int, hash, title string,
	signals, files []string) {
	t.Helper()
	card := &storage.CaseCard{
		SourcePath:  "histories/oncall.md",
		ChunkID:     chunkID,
		ContentHash: hash,
		Title:       title,
		SignalsJSON: mustJSON(t, signals),
	}
	if len(files) > 0 {
		card.RelFilesJSON = mustJSON(t, files)
	}
	written, err := db.UpsertCaseCard(card)
	if err != nil {
		t.Fatalf("seed card %s: %v", title, err)
	}
	if !written {
		t.Fatalf("card %s was not written", title)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one empty", []string{"ORA-01017"}, nil, 0},
		{"identical", []string{"ORA-01017"}, []string{"ORA-01017"}, 1},
		{"case insensitive", []string{"ORA-01017"}, []string{"ora-01017"}, 1},
		{"partial", []string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
		{"disjoint", []string{"a"}, []string{"b"}, 0},
	}
	for _, tt := range tests {
		if got := JaccardSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: JaccardSimilarity = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFindSimilarCasesThresholdIsStrict(t *testing.T) {
	db := openTestDB(t)
	seedCard(t, db, 1, "hash-exact-0000001", "exact match",
		[]string{"ORA-01017"}, nil)
	seedCard(t, db, 2, "hash-weak-00000002", "weak match",
		[]string{"ORA-01017", "x1", "x2", "x3"}, nil)
	seedCard(t, db, 3, "hash-none-00000003", "no overlap",
		[]string{"PPCS9999F"}, nil)

	// The weak card scores exactly 0.25 and must be dropped at that threshold
	similar, err := FindSimilarCases(db, []string{"ORA-01017"}, nil, 5, 0.25)
	if err != nil {
		t.Fatal(err)
	}
	if len(similar) != 1 {
		t.Fatalf("got %d cases, want 1", len(similar))
	}
	if similar[0].Title != "exact match" {
		t.Errorf("kept %q", similar[0].Title)
	}
	if similar[0].MatchScore != 1.0 {
		t.Errorf("MatchScore = %v, want 1.0", similar[0].MatchScore)
	}
	if len(similar[0].MatchingSignals) != 1 || similar[0].MatchingSignals[0] != "ORA-01017" {
		t.Errorf("MatchingSignals = %v", similar[0].MatchingSignals)
	}
}

func TestFindSimilarCasesFileBoost(t *testing.T) {
	db := openTestDB(t)
	seedCard(t, db, 1, "hash-boost-0000001", "boosted",
		[]string{"ORA-01017", "x1", "x2", "x3"},
		[]string{"procs/wccudla.procs"})

	// Jaccard alone is 0.25; the shared file lifts it over the bar
	similar, err := FindSimilarCases(db, []string{"ORA-01017"},
		[]string{"procs/wccudla.procs"}, 5, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(similar) != 1 {
		t.Fatalf("got %d cases, want 1", len(similar))
	}
	if similar[0].MatchScore <= 0.3 {
		t.Errorf("MatchScore = %v, want boosted above 0.3", similar[0].MatchScore)
	}
}

func TestFindSimilarCasesLimitAndRecency(t *testing.T) {
	db := openTestDB(t)
	seedCard(t, db, 1, "hash-old-000000001", "older twin", []string{"ORA-01017"}, nil)
	seedCard(t, db, 2, "hash-new-000000002", "newer twin", []string{"ORA-01017"}, nil)
	seedCard(t, db, 3, "hash-other-0000003", "also matches", []string{"ORA-01017"}, nil)

	similar, err := FindSimilarCases(db, []string{"ORA-01017"}, nil, 2, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(similar) != 2 {
		t.Fatalf("got %d cases, want limit of 2", len(similar))
	}
	// Equal scores keep most recently stored cards first
	if similar[0].CaseID < similar[1].CaseID {
		t.Errorf("recency order lost: ids %d then %d", similar[0].CaseID, similar[1].CaseID)
	}
}

func TestFindSimilarCasesNoSignals(t *testing.T) {
	db := openTestDB(t)
	seedCard(t, db, 1, "hash-any-000000001", "whatever", []string{"ORA-01017"}, nil)

	similar, err := FindSimilarCases(db, nil, nil, 5, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if similar != nil {
		t.Errorf("no current signals should yield nil, got %v", similar)
	}
}
