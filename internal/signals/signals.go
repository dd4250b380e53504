// Package signals detects external-system failures (configuration portals,
// APIs, databases, network) in log text using a YAML rule set.
package signals

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	lsaerrors "lsa/internal/errors"
)

//go:embed rules/external_signals.yaml
var defaultRulesYAML []byte

// Evidence is one log line supporting a signal
type Evidence struct {
	LineNo   int    `json:"line_no"`
	LineText string `json:"line_text"`
}

// Signal is one detected external failure
type Signal struct {
	ID                 string            `json:"id"`
	Severity           string            `json:"severity"`
	Category           string            `json:"category"`
	Captures           map[string]string `json:"captures,omitempty"`
	Evidence           []Evidence        `json:"evidence,omitempty"`
	Hints              []string          `json:"hints,omitempty"`
	HypothesisTemplate string            `json:"-"`
	Score              float64           `json:"score"`
}

// SeverityRank orders severities F > E > W > I
func (s *Signal) SeverityRank() int {
	return severityRank(s.Severity)
}

func severityRank(sev string) int {
	switch sev {
	case "F":
		return 4
	case "E":
		return 3
	case "W":
		return 2
	case "I":
		return 1
	}
	return 0
}

type rule struct {
	ID                 string
	Severity           string
	Category           string
	Patterns           []*regexp.Regexp
	Hints              []string
	HypothesisTemplate string
}

type ruleFileYAML struct {
	Rules []ruleYAML `yaml:"rules"`
}

type ruleYAML struct {
	ID                 string   `yaml:"id"`
	Severity           string   `yaml:"severity"`
	Category           string   `yaml:"category"`
	Patterns           []string `yaml:"patterns"`
	Hints              []string `yaml:"hints"`
	HypothesisTemplate string   `yaml:"hypothesis_template"`
}

const (
	maxEvidencePerSignal = 5
	maxEvidenceLineLen   = 200
)

// Engine holds a compiled rule set
type Engine struct {
	rules []rule
}

// NewEngine compiles the embedded default rule set
func NewEngine() (*Engine, error) {
	return newEngineFromYAML(defaultRulesYAML, "embedded rules")
}

// NewEngineFromFile compiles rules from a YAML file on disk
func NewEngineFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lsaerrors.Wrap(lsaerrors.ConfigInvalid,
			fmt.Sprintf("failed to read rules file %s", path), err)
	}
	return newEngineFromYAML(data, path)
}

// newEngineFromYAML compiles a rule set, rejecting the whole file on the
// first malformed rule so broken rules never silently vanish
func newEngineFromYAML(data []byte, source string) (*Engine, error) {
	var file ruleFileYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, lsaerrors.Wrap(lsaerrors.ConfigInvalid,
			fmt.Sprintf("failed to parse %s", source), err)
	}
	if len(file.Rules) == 0 {
		return nil, lsaerrors.New(lsaerrors.ConfigInvalid,
			fmt.Sprintf("%s contains no rules", source))
	}

	engine := &Engine{}
	for i, r := range file.Rules {
		if r.ID == "" {
			return nil, lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("%s: rule %d has no id", source, i))
		}
		if severityRank(r.Severity) == 0 {
			return nil, lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("%s: rule %s has invalid severity %q", source, r.ID, r.Severity))
		}
		if r.Category == "" {
			return nil, lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("%s: rule %s has no category", source, r.ID))
		}
		if len(r.Patterns) == 0 {
			return nil, lsaerrors.New(lsaerrors.ConfigInvalid,
				fmt.Sprintf("%s: rule %s has no patterns", source, r.ID))
		}

		compiled := rule{
			ID:                 r.ID,
			Severity:           r.Severity,
			Category:           r.Category,
			Hints:              r.Hints,
			HypothesisTemplate: strings.TrimSpace(r.HypothesisTemplate),
		}
		for _, pat := range r.Patterns {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				return nil, lsaerrors.Wrap(lsaerrors.ConfigInvalid,
					fmt.Sprintf("%s: rule %s has invalid pattern %q", source, r.ID, pat), err)
			}
			compiled.Patterns = append(compiled.Patterns, re)
		}
		engine.rules = append(engine.rules, compiled)
	}

	return engine, nil
}

// RuleCount returns how many rules are loaded
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// Extract scans log text for external signals. Results are deduplicated by
// (rule id, captures) and sorted by severity then score, both descending.
func (e *Engine) Extract(text string) []*Signal {
	signalsMap := make(map[string]*Signal)
	var order []string

	for lineNo, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for ri := range e.rules {
			r := &e.rules[ri]
			for _, re := range r.Patterns {
				m := re.FindStringSubmatchIndex(line)
				if m == nil {
					continue
				}

				captures := namedCaptures(re, line, m)
				key := r.ID + "\x00" + capturesKey(captures)

				evidenceLine := line
				if len(evidenceLine) > maxEvidenceLineLen {
					evidenceLine = evidenceLine[:maxEvidenceLineLen] + "..."
				}
				ev := Evidence{LineNo: lineNo + 1, LineText: evidenceLine}

				if existing, ok := signalsMap[key]; ok {
					if len(existing.Evidence) < maxEvidencePerSignal {
						existing.Evidence = append(existing.Evidence, ev)
					}
				} else {
					sig := &Signal{
						ID:                 r.ID,
						Severity:           r.Severity,
						Category:           r.Category,
						Captures:           captures,
						Evidence:           []Evidence{ev},
						Hints:              append([]string{}, r.Hints...),
						HypothesisTemplate: r.HypothesisTemplate,
					}
					sig.Score = scoreSignal(sig)
					signalsMap[key] = sig
					order = append(order, key)
				}

				// One match per rule per line is enough
				break
			}
		}
	}

	signals := make([]*Signal, 0, len(order))
	for _, key := range order {
		signals = append(signals, signalsMap[key])
	}
	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].SeverityRank() != signals[j].SeverityRank() {
			return signals[i].SeverityRank() > signals[j].SeverityRank()
		}
		return signals[i].Score > signals[j].Score
	})
	return signals
}

func namedCaptures(re *regexp.Regexp, line string, matchIndex []int) map[string]string {
	var captures map[string]string
	for gi, name := range re.SubexpNames() {
		if name == "" || gi*2+1 >= len(matchIndex) {
			continue
		}
		start, end := matchIndex[gi*2], matchIndex[gi*2+1]
		if start < 0 {
			continue
		}
		if captures == nil {
			captures = make(map[string]string)
		}
		captures[name] = line[start:end]
	}
	return captures
}

func capturesKey(captures map[string]string) string {
	if len(captures) == 0 {
		return "{}"
	}
	data, _ := json.Marshal(captures)
	return string(data)
}

func scoreSignal(s *Signal) float64 {
	score := float64(s.SeverityRank() * 10)

	switch s.Category {
	case "CONFIG":
		score += 5
	case "DATABASE":
		score += 4
	case "EXTERNAL_API", "NETWORK":
		score += 3
	case "AUTH", "RESOURCE":
		score += 2
	default:
		score += 1
	}

	score += float64(len(s.Captures) * 2)
	return score
}

// RenderHypothesis expands a signal's hypothesis template, substituting
// {capture_name} placeholders
func (s *Signal) RenderHypothesis() string {
	if s.HypothesisTemplate == "" {
		return ""
	}
	out := s.HypothesisTemplate
	for k, v := range s.Captures {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}

var servicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)services?=(?P<service>[\w|]+)`),
	regexp.MustCompile(`(?i)/services?/(?P<service>\w+)`),
	regexp.MustCompile(`(?i)["']service(?:_type)?["']\s*:\s*["'](?P<service>\w+)["']`),
	regexp.MustCompile(`(?i)service\s*[=:]\s*["']?(?P<service>\w+)["']?`),
}

// ServicesFromText extracts service names mentioned in log text,
// lowercased, sorted, pipe-separated lists split apart
func ServicesFromText(text string) []string {
	services := make(map[string]bool)

	for _, re := range servicePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			for _, svc := range strings.Split(strings.ToLower(m[1]), "|") {
				svc = strings.TrimSpace(svc)
				if len(svc) > 1 {
					services[svc] = true
				}
			}
		}
	}

	out := make([]string, 0, len(services))
	for s := range services {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// InfoTracMissingIDs collects message ids from InfoTrac missing-message
// signals, in signal order without duplicates
func InfoTracMissingIDs(signals []*Signal) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, sig := range signals {
		if sig.ID != "INFOTRAC_MISSING_MESSAGE_ID" {
			continue
		}
		if id, ok := sig.Captures["message_id"]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
