package parsers

import (
	"strings"
	"testing"
)

const sampleHistory = `# WCCU letter run failed

_**User**_

The nightly run died again, log shows ORA-01017 from the load step.

_**Assistant**_

Root cause: the sqlplus password expired on the reporting schema.
Fix: reset the password and re-run the load.

` + "```" + `
sqlplus wccu/secret@PROD @/home/master/wccu_load.sql
grep -n ORA- /d/wccu/dla/wccudla.log
` + "```" + `

Files touched: /home/master/wccu_dl_process.sh and /home/docdef/wccudl014.dfa
`

func TestSplitHistoryBoundaries(t *testing.T) {
	chunks := SplitHistory(sampleHistory)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks (header, user, assistant), got %d", len(chunks))
	}
	// Chunk ids are starting line offsets, strictly increasing
	for i := 1; i < len(chunks); i++ {
		if chunks[i].ID <= chunks[i-1].ID {
			t.Errorf("chunk ids not increasing: %d then %d", chunks[i-1].ID, chunks[i].ID)
		}
	}
}

func TestSplitHistoryIgnoresCodeBlockHeaders(t *testing.T) {
	text := "intro line\n```\n# not a header\n## also not\n```\ntail line\n"
	chunks := SplitHistory(text)
	if len(chunks) != 1 {
		t.Errorf("headers inside code fences should not split, got %d chunks", len(chunks))
	}
}

func TestParseHistory(t *testing.T) {
	cards := ParseHistory(sampleHistory, "histories/oncall.md", false)
	if len(cards) == 0 {
		t.Fatal("expected at least one card")
	}

	var withSignal *HistoryCard
	for _, c := range cards {
		for _, s := range c.Signals {
			if strings.HasPrefix(s, "ORA-") {
				withSignal = c
			}
		}
	}
	if withSignal == nil {
		t.Fatal("no card captured the ORA signal")
	}
	if withSignal.SourcePath != "histories/oncall.md" {
		t.Errorf("SourcePath = %q", withSignal.SourcePath)
	}
	if withSignal.ContentHash == "" || len(withSignal.ContentHash) != 16 {
		t.Errorf("ContentHash = %q, want 16 hex chars", withSignal.ContentHash)
	}

	var foundRootCause, foundFix, foundOracleTag bool
	for _, c := range cards {
		if strings.Contains(c.RootCause, "password expired") {
			foundRootCause = true
		}
		if strings.Contains(c.FixSummary, "reset the password") {
			foundFix = true
		}
		for _, tag := range c.Tags {
			if tag == "oracle" {
				foundOracleTag = true
			}
		}
	}
	if !foundRootCause {
		t.Error("root cause line not mined")
	}
	if !foundFix {
		t.Error("fix line not mined")
	}
	if !foundOracleTag {
		t.Error("oracle tag not derived from ORA signal")
	}
}

func TestParseChunkSkipsEmpty(t *testing.T) {
	if card := ParseChunk("nothing interesting here at all", 0, "h.md", false); card != nil {
		t.Error("chunk without signals, commands, or paths should yield nil")
	}
}

func TestParseHistoryRedaction(t *testing.T) {
	text := "Problem: member john.doe@example.com account 123456789012 failed\n" +
		"grep 123456789012 /d/wccu/dl/cycle.csv\n"
	cards := ParseHistory(text, "h.md", true)
	if len(cards) == 0 {
		t.Fatal("expected a card")
	}
	for _, c := range cards {
		joined := c.Title + c.RootCause + strings.Join(c.VerifyCommands, " ")
		if strings.Contains(joined, "john.doe@example.com") {
			t.Error("email survived redaction")
		}
		if strings.Contains(joined, "123456789012") {
			t.Error("account number survived redaction")
		}
	}
}

func TestChunkHash(t *testing.T) {
	a := ChunkHash("same content")
	b := ChunkHash("same content")
	c := ChunkHash("different content")
	if a != b {
		t.Error("hash should be deterministic")
	}
	if a == c {
		t.Error("distinct content should hash differently")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
}

func TestRedactPII(t *testing.T) {
	in := "call 555-123-4567, ssn 123-45-6789, mail a@b.com, acct 123456789012"
	out := RedactPII(in)
	for _, leak := range []string{"555-123-4567", "123-45-6789", "a@b.com", "123456789012"} {
		if strings.Contains(out, leak) {
			t.Errorf("leaked %q in %q", leak, out)
		}
	}
	for _, marker := range []string{"[PHONE]", "[SSN]", "[EMAIL]", "[ACCT]"} {
		if !strings.Contains(out, marker) {
			t.Errorf("missing marker %q in %q", marker, out)
		}
	}
}
