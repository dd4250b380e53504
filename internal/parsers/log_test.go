package parsers

import (
	"strings"
	"testing"
)

func TestParseLogLineNoise(t *testing.T) {
	if ParseLogLine("", 1) != nil {
		t.Error("blank line should yield nil")
	}
	if ParseLogLine("   ", 2) != nil {
		t.Error("whitespace line should yield nil")
	}
	if ParseLogLine("watchdog: pid 4242 is still alive", 3) != nil {
		t.Error("keepalive chatter should yield nil")
	}
	if ParseLogLine("watchdog: pid 4242 is no longer alive", 4) != nil {
		t.Error("keepalive chatter should yield nil")
	}
}

func TestParseLogLineCodes(t *testing.T) {
	sig := ParseLogLine("PPDE1001E Variable not declared [pcsdll/pcs.cpp,567]", 10)
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if sig.Code != "PPDE1001E" {
		t.Errorf("Code = %q, want PPDE1001E", sig.Code)
	}
	if sig.Severity != "E" {
		t.Errorf("Severity = %q, want E", sig.Severity)
	}
	if sig.SourceFile != "pcsdll/pcs.cpp" || sig.SourceLine != 567 {
		t.Errorf("source ref = %q:%d", sig.SourceFile, sig.SourceLine)
	}
	if sig.LineNumber != 10 {
		t.Errorf("LineNumber = %d, want 10", sig.LineNumber)
	}

	fatal := ParseLogLine("PPCS8005F converter aborted", 11)
	if fatal.Severity != "F" {
		t.Errorf("Severity = %q, want F", fatal.Severity)
	}

	ora := ParseLogLine("ORA-01017: invalid username/password", 12)
	if ora.Code != "ORA-01017" || ora.Severity != "E" {
		t.Errorf("ORA signal = %q/%q, want ORA-01017/E", ora.Code, ora.Severity)
	}
}

func TestParseLogLineKeywordUpgrade(t *testing.T) {
	sig := ParseLogLine("script failed with exit 2", 5)
	if sig.Severity != "E" {
		t.Errorf("keyword hit should upgrade severity to E, got %q", sig.Severity)
	}

	// An info code stays info-coded but the keyword still upgrades
	info := ParseLogLine("PPCS8005I processing complete", 6)
	if info.Severity != "I" {
		t.Errorf("Severity = %q, want I", info.Severity)
	}

	// A fatal code is never downgraded by keyword logic
	fatal := ParseLogLine("PPDE2000F error: abort", 7)
	if fatal.Severity != "F" {
		t.Errorf("Severity = %q, want F", fatal.Severity)
	}
}

const sampleLog = `2024-01-15/02:13:44.120 Starting wccudla cycle
$PREFIX=wccudla $JID=20240115
Running /home/master/wccu_dl_process.sh
Loading WCCUDL14 for statement run docdef=wccudl14
PPDE1001E Variable not declared [pcsdll/pcs.cpp,567]
DOCDEF 'WCCUDL014' compile failed
ORA-01017: invalid username/password
input=/d/wccu/dl/cycle.csv
watchdog: pid 4242 is still alive
ERROR: Generator returns a non-zero value
`

func TestParseLog(t *testing.T) {
	a := ParseLog(sampleLog, "logs/wccudla.print_process.log")

	if len(a.ErrorCodes) != 2 {
		t.Fatalf("ErrorCodes = %v, want 2 codes", a.ErrorCodes)
	}
	if a.ErrorCodes[0] != "ORA-01017" || a.ErrorCodes[1] != "PPDE1001E" {
		t.Errorf("ErrorCodes = %v, want sorted [ORA-01017 PPDE1001E]", a.ErrorCodes)
	}

	if len(a.PrefixTokens) != 1 || a.PrefixTokens[0] != "wccudla" {
		t.Errorf("PrefixTokens = %v", a.PrefixTokens)
	}
	if len(a.JidTokens) != 1 || a.JidTokens[0] != "20240115" {
		t.Errorf("JidTokens = %v", a.JidTokens)
	}
	if len(a.ScriptPaths) != 1 || a.ScriptPaths[0] != "/home/master/wccu_dl_process.sh" {
		t.Errorf("ScriptPaths = %v", a.ScriptPaths)
	}

	// Both the bare token and the docdef= parameter land in the analysis
	if !containsString(a.DocdefTokens, "WCCUDL14") {
		t.Errorf("DocdefTokens = %v, want WCCUDL14", a.DocdefTokens)
	}
	if !containsString(a.DocdefRefs, "WCCUDL014") || !containsString(a.DocdefRefs, "WCCUDL14") {
		t.Errorf("DocdefRefs = %v", a.DocdefRefs)
	}

	if len(a.IOPaths) != 1 || a.IOPaths[0] != "/d/wccu/dl/cycle.csv" {
		t.Errorf("IOPaths = %v", a.IOPaths)
	}

	if !a.HasWrapperNoise {
		t.Error("HasWrapperNoise should be set")
	}
	if !a.HasStrongFailure {
		t.Error("HasStrongFailure should be set (ORA code present)")
	}

	// The keepalive line never becomes a signal
	for _, sig := range a.Signals {
		if strings.Contains(sig.Message, "still alive") {
			t.Error("keepalive line leaked into signals")
		}
	}
}

func TestCIDFromLogPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/d/wccu/dla/wccudla.log", "wccu"},
		{"/d/daily/bkfndn1/run.log", "bkfn"},
		{"logs/wccudla.print_process.log", "wccu"},
		{"logs/_x.log", ""},
	}
	for _, tt := range tests {
		if got := CIDFromLogPath(tt.path); got != tt.want {
			t.Errorf("CIDFromLogPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestProcNameFromLogPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"logs/wccudla.print_process.log", "wccudla"},
		{"logs/wccudla_process.log", "wccudla"},
		{"logs/wccudla_msg_count.log", "wccudla"},
		{"/d/wccu/bkfnds1.log", "bkfnds1"},
	}
	for _, tt := range tests {
		if got := ProcNameFromLogPath(tt.path); got != tt.want {
			t.Errorf("ProcNameFromLogPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBaseProcName(t *testing.T) {
	if got := BaseProcName("bkfnds1122"); got != "bkfnds1" {
		t.Errorf("BaseProcName = %q, want bkfnds1", got)
	}
	if got := BaseProcName("wccudla"); got != "wccudla" {
		t.Errorf("names without cycle digits should pass through, got %q", got)
	}
}
