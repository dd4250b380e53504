package parsers

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Signal is one meaningful log line with everything extracted from it
type Signal struct {
	LineNumber int    `json:"line_number"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp,omitempty"`
	Code       string `json:"code,omitempty"`
	Severity   string `json:"severity"`
	SourceFile string `json:"source_file,omitempty"`
	SourceLine int    `json:"source_line,omitempty"`
	DocdefRef  string `json:"docdef_ref,omitempty"`
	ScriptRef  string `json:"script_ref,omitempty"`
	ScriptLine int    `json:"script_line,omitempty"`
}

// Analysis is the full extraction result for one log file
type Analysis struct {
	Path       string    `json:"path"`
	TotalLines int       `json:"total_lines"`
	Signals    []*Signal `json:"-"`

	ErrorSignals   []*Signal `json:"top_errors,omitempty"`
	WarningSignals []*Signal `json:"-"`
	FatalSignals   []*Signal `json:"-"`

	ErrorCodes   []string `json:"error_codes,omitempty"`
	DocdefRefs   []string `json:"docdef_refs,omitempty"`
	ScriptRefs   []string `json:"script_refs,omitempty"`
	PrefixTokens []string `json:"prefix_tokens,omitempty"`
	ScriptPaths  []string `json:"script_paths,omitempty"`
	JidTokens    []string `json:"jid_tokens,omitempty"`
	DocdefTokens []string `json:"docdef_tokens,omitempty"`
	IOPaths      []string `json:"io_paths,omitempty"`

	HasWrapperNoise  bool `json:"has_wrapper_noise"`
	HasStrongFailure bool `json:"has_strong_failure"`
}

// ParseLogLine extracts a signal from one log line. Returns nil for noise
// lines: blanks and the watchdog's keepalive chatter.
func ParseLogLine(line string, lineNumber int) *Signal {
	line = strings.TrimSpace(line)

	if line == "" {
		return nil
	}
	if strings.Contains(line, "is still alive") {
		return nil
	}
	if strings.Contains(line, "is no longer alive") {
		return nil
	}

	signal := &Signal{LineNumber: lineNumber, Message: line, Severity: "I"}

	if m := logTimestampRe.FindStringSubmatch(line); m != nil {
		signal.Timestamp = m[1]
	}

	if m := messageCodeRe.FindStringSubmatch(line); m != nil {
		signal.Code = m[1]
		signal.Severity = signal.Code[len(signal.Code)-1:]
	}

	if m := oraCodeRe.FindStringSubmatch(line); m != nil {
		signal.Code = m[1]
		signal.Severity = "E"
	}

	if m := sourceRefRe.FindStringSubmatch(line); m != nil {
		signal.SourceFile = m[1]
		signal.SourceLine, _ = strconv.Atoi(m[2])
	}

	if m := docdefRefRe.FindStringSubmatch(line); m != nil {
		signal.DocdefRef = m[1]
	}

	if m := scriptLineRefRe.FindStringSubmatch(line); m != nil {
		signal.ScriptRef = m[1]
		signal.ScriptLine, _ = strconv.Atoi(m[2])
	}

	// Keyword hits upgrade severity unless the code already says worse
	if errorKeywordsRe.MatchString(line) && signal.Severity != "E" && signal.Severity != "F" {
		signal.Severity = "E"
	}

	return signal
}

// ParseLog extracts all signals and matching tokens from log text
func ParseLog(text, path string) *Analysis {
	analysis := &Analysis{Path: path}

	lines := strings.Split(text, "\n")
	analysis.TotalLines = len(lines)

	errorCodes := make(map[string]bool)
	docdefRefs := make(map[string]bool)
	scriptRefs := make(map[string]bool)
	prefixTokens := make(map[string]bool)
	scriptPaths := make(map[string]bool)
	jidTokens := make(map[string]bool)
	docdefTokens := make(map[string]bool)
	ioPaths := make(map[string]bool)

	for i, line := range lines {
		signal := ParseLogLine(line, i+1)
		if signal == nil {
			continue
		}

		analysis.Signals = append(analysis.Signals, signal)

		switch signal.Severity {
		case "F":
			analysis.FatalSignals = append(analysis.FatalSignals, signal)
			analysis.ErrorSignals = append(analysis.ErrorSignals, signal)
		case "E":
			analysis.ErrorSignals = append(analysis.ErrorSignals, signal)
		case "W":
			analysis.WarningSignals = append(analysis.WarningSignals, signal)
		}

		if signal.Code != "" {
			errorCodes[signal.Code] = true
		}
		if signal.DocdefRef != "" {
			docdefRefs[signal.DocdefRef] = true
		}
		if signal.ScriptRef != "" {
			scriptRefs[signal.ScriptRef] = true
		}

		for _, m := range prefixTokenRe.FindAllStringSubmatch(line, -1) {
			prefixTokens[strings.ToLower(m[1])] = true
		}
		for _, m := range jidTokenRe.FindAllStringSubmatch(line, -1) {
			jidTokens[strings.ToLower(m[1])] = true
		}
		for _, m := range logScriptPathRe.FindAllStringSubmatch(line, -1) {
			scriptPaths[m[1]] = true
		}
		for _, m := range docdefParamRe.FindAllStringSubmatch(line, -1) {
			docdefRefs[strings.ToUpper(m[1])] = true
		}
		for _, m := range docdefTokenRe.FindAllStringSubmatch(line, -1) {
			docdefTokens[strings.ToUpper(m[1])] = true
		}
		for _, m := range ioPathRe.FindAllStringSubmatch(line, -1) {
			ioPaths[m[1]] = true
		}

		if wrapperNoiseRe.MatchString(line) {
			analysis.HasWrapperNoise = true
		}
		if !analysis.HasStrongFailure {
			for _, re := range strongFailureRes {
				if re.MatchString(line) {
					analysis.HasStrongFailure = true
					break
				}
			}
		}
	}

	analysis.ErrorCodes = sortedKeys(errorCodes)
	analysis.DocdefRefs = sortedKeys(docdefRefs)
	analysis.ScriptRefs = sortedKeys(scriptRefs)
	analysis.PrefixTokens = sortedKeys(prefixTokens)
	analysis.ScriptPaths = sortedKeys(scriptPaths)
	analysis.JidTokens = sortedKeys(jidTokens)
	analysis.DocdefTokens = sortedKeys(docdefTokens)
	analysis.IOPaths = sortedKeys(ioPaths)

	return analysis
}

var (
	cidDirRe      = regexp.MustCompile(`/d/(\w{4})/`)
	cidDailyRe    = regexp.MustCompile(`/d/daily/(\w{4})dn\d/`)
	baseProcRe    = regexp.MustCompile(`^(\w{4}[a-z]{2}\d)(\d{2,})?$`)
	alnumStemRe   = regexp.MustCompile(`^[a-z0-9]{4}`)
	procSuffixes  = []string{"_process", "_msg", "_portal", "_timestamp", "_count"}
)

// CIDFromLogPath guesses the 4-char client id from a log path
func CIDFromLogPath(logPath string) string {
	lower := strings.ToLower(filepath.ToSlash(logPath))

	if m := cidDirRe.FindStringSubmatch(lower); m != nil {
		return m[1]
	}
	if m := cidDailyRe.FindStringSubmatch(lower); m != nil {
		return m[1]
	}

	stem := logStem(lower)
	if m := alnumStemRe.FindString(stem); m != "" {
		return m
	}
	return ""
}

// ProcNameFromLogPath derives a candidate proc name from a log filename:
// the stem before the first dot, with reporting suffixes stripped
func ProcNameFromLogPath(logPath string) string {
	stem := logStem(strings.ToLower(filepath.ToSlash(logPath)))

	for {
		stripped := false
		for _, suffix := range procSuffixes {
			if strings.HasSuffix(stem, suffix) {
				stem = strings.TrimSuffix(stem, suffix)
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return stem
}

// BaseProcName strips cycle digits from a proc name: bkfnds1122 -> bkfnds1
func BaseProcName(name string) string {
	if m := baseProcRe.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return name
}

func logStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return base
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
