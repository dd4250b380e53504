package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lsa/internal/analysis"
	"lsa/internal/parsers"
	"lsa/internal/signals"
	"lsa/internal/storage"
)

// Neighbor is one adjacent graph node with the edge connecting it
type Neighbor struct {
	RelType string
	Node    *storage.Node
}

// PackInput carries everything the context pack renders
type PackInput struct {
	LogPath      string
	GeneratedAt  time.Time
	Analysis     *parsers.Analysis
	TopNode      *storage.Node
	Confidence   float64
	Upstream     []Neighbor
	Downstream   []Neighbor
	Hypotheses   []*analysis.Hypothesis
	SimilarCases []*analysis.SimilarCase
	RelatedFiles []string
	SnapshotRoot string
	CodeDefs     map[string]*storage.MessageCode
	ExtSignals   []*signals.Signal
	Services     []string
	InfoTracIDs  []string

	MaxLines    int
	MaxEvidence int
}

const (
	headerWidth  = 60
	sectionWidth = 40
)

// RenderContextPack formats the full analysis result as a plain-text pack
// small enough to paste into a chat or ticket
func RenderContextPack(in *PackInput) string {
	if in.MaxLines <= 0 {
		in.MaxLines = 200
	}
	if in.MaxEvidence <= 0 {
		in.MaxEvidence = 120
	}

	var lines []string
	add := func(format string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	section := func(title string) {
		add("")
		add("%s", title)
		add("%s", strings.Repeat("-", sectionWidth))
	}

	add("%s", strings.Repeat("=", headerWidth))
	add("LSA CONTEXT PACK")
	add("Log: %s", in.LogPath)
	add("Generated: %s", in.GeneratedAt.Format("2006-01-02 15:04:05"))
	add("%s", strings.Repeat("=", headerWidth))

	section("1. MOST LIKELY FAILING NODE")
	if in.TopNode != nil {
		add("%s (confidence: %.0f%%)", in.TopNode.DisplayName, in.Confidence*100)
		add("Type: %s", in.TopNode.Type)
		add("Key: %s", in.TopNode.Key)
		if in.TopNode.CanonicalPath != "" {
			add("Path: %s", in.TopNode.CanonicalPath)
		}
	} else {
		add("NOT FOUND - could not determine failing node")
	}

	section("2. EXECUTION CHAIN")
	if len(in.Upstream) == 0 && len(in.Downstream) == 0 {
		add("(no graph context)")
	} else {
		for _, n := range capNeighbors(in.Upstream, 5) {
			add("  [%s] %s --%s--> (this)", n.Node.Type, n.Node.DisplayName, n.RelType)
		}
		if in.TopNode != nil {
			add("  >>> [%s] %s <<<", in.TopNode.Type, in.TopNode.DisplayName)
		}
		for _, n := range capNeighbors(in.Downstream, 5) {
			add("  (this) --%s--> [%s] %s", n.RelType, n.Node.Type, n.Node.DisplayName)
		}
	}

	section("3. EVIDENCE (error log lines)")
	if in.Analysis != nil && len(in.Analysis.ErrorSignals) > 0 {
		shown := in.Analysis.ErrorSignals
		if len(shown) > 8 {
			shown = shown[:8]
		}
		for _, sig := range shown {
			msg := sig.Message
			if len(msg) > in.MaxEvidence {
				msg = msg[:in.MaxEvidence] + "..."
			}
			add("  L%d: %s", sig.LineNumber, msg)
		}
		if len(in.Analysis.ErrorCodes) > 0 {
			codes := in.Analysis.ErrorCodes
			if len(codes) > 10 {
				codes = codes[:10]
			}
			add("")
			add("Error codes: %s", strings.Join(codes, ", "))
		}
	} else {
		add("(no error lines found)")
	}

	if in.Analysis != nil && len(in.Analysis.ErrorCodes) > 0 {
		section("3b. FORMATTER CODES (decoded)")
		for _, code := range orderCodes(in.Analysis.ErrorCodes, 10) {
			def := in.CodeDefs[code]
			if def == nil {
				add("  %s - UNKNOWN CODE (not in KB yet)", code)
				continue
			}
			add("  %s [%s]", code, severityLabel(def.Severity))
			if def.Title != "" {
				add("    Title: %s", def.Title)
			}
			if def.Body != "" {
				body := def.Body
				if len(body) > 150 {
					body = body[:150] + "..."
				}
				add("    %s", body)
			}
		}
	}

	if in.Analysis != nil &&
		(len(in.Analysis.DocdefTokens) > 0 || len(in.Analysis.ScriptPaths) > 0 || len(in.Analysis.IOPaths) > 0) {
		section("3c. FILES FROM LOG EVIDENCE")
		for _, tok := range capStrings(in.Analysis.DocdefTokens, 5) {
			rel := "docdef/" + strings.ToLower(tok) + ".dfa"
			add("  [docdef] %s -> %s%s", tok, rel, existsMark(in.SnapshotRoot, rel))
		}
		for _, sp := range capStrings(in.Analysis.ScriptPaths, 5) {
			rel := scriptRelPath(sp)
			add("  [script] %s -> %s%s", sp, rel, existsMark(in.SnapshotRoot, rel))
		}
		for _, io := range capStrings(in.Analysis.IOPaths, 5) {
			add("  [io] %s", io)
		}
	}

	section("3d. EXTERNAL CONFIG SIGNALS")
	if len(in.ExtSignals) > 0 {
		top := in.ExtSignals
		if len(top) > 5 {
			top = top[:5]
		}
		for _, sig := range top {
			add("  [%s] %s (%s)", severityLabel(sig.Severity), sig.ID, sig.Category)
			if len(sig.Captures) > 0 {
				add("    Captures: %s", formatCaptures(sig.Captures))
			}
			ev := sig.Evidence
			if len(ev) > 3 {
				ev = ev[:3]
			}
			for _, e := range ev {
				text := e.LineText
				if len(text) > 100 {
					text = text[:100] + "..."
				}
				add("    L%d: %s", e.LineNo, text)
			}
		}
		if len(in.Services) > 0 {
			add("  Services mentioned: %s", strings.Join(in.Services, ", "))
		}
		if len(in.InfoTracIDs) > 0 {
			add("  InfoTrac message ids missing: %s", strings.Join(in.InfoTracIDs, ", "))
		}
	} else {
		add("  None found")
	}

	section("4. TOP HYPOTHESES")
	if len(in.Hypotheses) > 0 {
		for i, h := range in.Hypotheses {
			add("%d. %s (confidence: %.0f%%)", i+1, h.Hypothesis, h.Confidence*100)
			if h.Evidence != "" {
				if h.LineNumber > 0 && !strings.HasPrefix(h.Evidence, "L") {
					add("   Evidence (L%d): %s", h.LineNumber, h.Evidence)
				} else {
					add("   Evidence: %s", h.Evidence)
				}
			}
			if len(h.ConfirmSteps) > 0 {
				add("   How to confirm:")
				for _, step := range h.ConfirmSteps {
					add("     - %s", step)
				}
			}
		}
	} else {
		add("(no hypotheses generated)")
	}

	section("5. FILES TO OPEN")
	if len(in.RelatedFiles) > 0 {
		for _, f := range capStrings(in.RelatedFiles, 8) {
			add("  %s", f)
		}
	} else {
		add("(none identified)")
	}

	section("6. SUGGESTED COMMANDS")
	add("  less %s", in.LogPath)
	add("  grep -n 'ERROR\\|FAIL\\|ORA-' %s", in.LogPath)
	if in.Analysis != nil && len(in.Analysis.ErrorCodes) > 0 {
		add("  grep -n '%s' %s", in.Analysis.ErrorCodes[0], in.LogPath)
	}

	if len(in.SimilarCases) > 0 {
		section("7. SIMILAR PAST CASES")
		for i, sc := range in.SimilarCases {
			title := sc.Title
			if title == "" {
				title = fmt.Sprintf("case #%d", sc.CaseID)
			}
			add("%d. %s (match: %.0f%%)", i+1, title, sc.MatchScore*100)
			if sc.RootCause != "" {
				add("   Root cause: %s", clip(sc.RootCause, 80))
			}
			if sc.FixSummary != "" {
				add("   Fix: %s", clip(sc.FixSummary, 80))
			}
			cmds := sc.VerifyCommands
			if len(cmds) > 2 {
				cmds = cmds[:2]
			}
			for _, cmd := range cmds {
				add("   Verify: %s", clip(cmd, 60))
			}
		}
	}

	add("")
	add("%s", strings.Repeat("=", headerWidth))
	add("END OF CONTEXT PACK")
	add("%s", strings.Repeat("=", headerWidth))

	if len(lines) > in.MaxLines {
		total := len(lines)
		lines = lines[:in.MaxLines-3]
		lines = append(lines,
			"...",
			fmt.Sprintf("[Truncated - %d total lines]", total),
			strings.Repeat("=", headerWidth))
	}

	return strings.Join(lines, "\n") + "\n"
}

func capNeighbors(ns []Neighbor, max int) []Neighbor {
	if len(ns) > max {
		return ns[:max]
	}
	return ns
}

func capStrings(ss []string, max int) []string {
	if len(ss) > max {
		return ss[:max]
	}
	return ss
}

// orderCodes puts fatals first, then errors, then the rest
func orderCodes(codes []string, max int) []string {
	out := append([]string{}, codes...)
	sort.SliceStable(out, func(i, j int) bool {
		return codeRank(out[i]) > codeRank(out[j])
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func codeRank(code string) int {
	switch code[len(code)-1:] {
	case "F":
		return 2
	case "E":
		return 1
	}
	return 0
}

func severityLabel(sev string) string {
	switch sev {
	case "F":
		return "FATAL"
	case "E":
		return "ERROR"
	case "W":
		return "WARN"
	case "I":
		return "INFO"
	}
	return sev
}

// scriptRelPath maps an original unix script path onto snapshot layout
func scriptRelPath(original string) string {
	p := strings.TrimPrefix(original, "/home/test/")
	p = strings.TrimPrefix(p, "/home/")
	if strings.HasPrefix(p, "util/") {
		p = "master/" + strings.TrimPrefix(p, "util/")
	}
	return p
}

func existsMark(root, rel string) string {
	if root == "" {
		return ""
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
		return " [exists]"
	}
	return " [NOT FOUND]"
}

func formatCaptures(captures map[string]string) string {
	keys := make([]string, 0, len(captures))
	for k := range captures {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+captures[k])
	}
	return strings.Join(parts, ", ")
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
