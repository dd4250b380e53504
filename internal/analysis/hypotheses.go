// Package analysis ranks root-cause hypotheses, scores case similarity,
// and plans file bundles for investigation intents.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"lsa/internal/parsers"
	"lsa/internal/signals"
	"lsa/internal/storage"
)

// Hypothesis tiers. Lower is stronger; a hypothesis never moves out of
// its tier no matter the score inside it.
const (
	tierFatalExternal = 1
	tierFatalCode     = 2
	tierErrorCode     = 3
	tierWrapperNote   = 4
)

// Hypothesis is one ranked root-cause candidate
type Hypothesis struct {
	Hypothesis       string   `json:"hypothesis"`
	Evidence         string   `json:"evidence"`
	LineNumber       int      `json:"line_number"`
	ConfirmSteps     []string `json:"confirm_steps,omitempty"`
	Confidence       float64  `json:"confidence"`
	Tier             int      `json:"tier"`
	IsWrapperNoise   bool     `json:"is_wrapper_noise,omitempty"`
	IsExternalSignal bool     `json:"is_external_signal,omitempty"`
	ExternalSignalID string   `json:"external_signal_id,omitempty"`
	Code             string   `json:"code,omitempty"`
}

type codeRule struct {
	match      func(code string) bool
	hypothesis string
	confirm    []string
	confidence float64
}

var codeRules = []codeRule{
	{
		match:      func(c string) bool { return strings.HasPrefix(c, "ORA-") },
		hypothesis: "Database connection or query error (Oracle)",
		confirm: []string{
			"Check Oracle listener status: lsnrctl status",
			"Verify TNS configuration in tnsnames.ora",
			"Check database logs for details",
		},
		confidence: 0.9,
	},
	{
		match:      func(c string) bool { return strings.HasPrefix(c, "PPDE") },
		hypothesis: "Document generation error (formatter DocExec)",
		confirm: []string{
			"Check document definition syntax in the .dfa file",
			"Verify input data format matches expected",
			"Review variable declarations in the docdef",
		},
		confidence: 0.85,
	},
	{
		match:      func(c string) bool { return strings.HasPrefix(c, "PPCS") },
		hypothesis: "Formatter application/converter error",
		confirm: []string{
			"Check application configuration",
			"Verify profile (.prf) file settings",
			"Review input file format",
		},
		confidence: 0.85,
	},
	{
		match:      func(c string) bool { return strings.HasPrefix(c, "AFPR") },
		hypothesis: "AFP resource error (font, overlay, or page segment)",
		confirm: []string{
			"Verify the named AFP resource exists in the resource library",
			"Check resource path configuration",
		},
		confidence: 0.85,
	},
}

var genericCodeConfirm = []string{
	"Look up the code in the message code reference",
	"Review surrounding log lines for context",
}

// wrapperOnlyHypothesis is emitted when the wrapper's blanket error is the
// only failure evidence in the log
const wrapperOnlyHypothesis = "No root cause code found: the log carries only the disk wrapper's generic non-zero exit message"

// GenerateHypotheses builds the ranked hypothesis list in strict tiers:
// fatal external signals first, then fatal codes, then error codes and
// remaining external signals. The wrapper's generic error never outranks
// anything; it appears only as a trailing informational note, or as an
// explicit no-root-cause placeholder when it is all the log has.
func GenerateHypotheses(
	analysis *parsers.Analysis,
	extSignals []*signals.Signal,
	codeDefs map[string]*storage.MessageCode,
	maxHypotheses int,
) []*Hypothesis {
	if maxHypotheses <= 0 {
		maxHypotheses = 3
	}

	var hyps []*Hypothesis

	seenSignalIDs := make(map[string]bool)
	for _, sig := range extSignals {
		if seenSignalIDs[sig.ID] {
			continue
		}
		seenSignalIDs[sig.ID] = true

		tier := tierErrorCode
		if sig.Severity == "F" {
			tier = tierFatalExternal
		}
		hyps = append(hyps, externalHypothesis(sig, tier))
	}

	seenCodes := make(map[string]bool)
	for _, signal := range analysis.Signals {
		if signal.Code == "" || seenCodes[signal.Code] {
			continue
		}

		var tier int
		switch signal.Severity {
		case "F":
			tier = tierFatalCode
		case "E":
			tier = tierErrorCode
		default:
			continue
		}
		seenCodes[signal.Code] = true
		hyps = append(hyps, codeHypothesis(signal, codeDefs[signal.Code], tier))
	}

	// Tiers first, then first appearance inside a tier
	sort.SliceStable(hyps, func(i, j int) bool {
		if hyps[i].Tier != hyps[j].Tier {
			return hyps[i].Tier < hyps[j].Tier
		}
		return hyps[i].LineNumber < hyps[j].LineNumber
	})

	if len(hyps) == 0 {
		if analysis.HasWrapperNoise {
			return []*Hypothesis{{
				Hypothesis: wrapperOnlyHypothesis,
				Evidence:   "ERROR: Generator returns a non-zero value",
				ConfirmSteps: []string{
					"Review preceding log lines for the actual failure",
					"Check the generator's own output if it genuinely failed",
				},
				Confidence:     0.2,
				Tier:           tierWrapperNote,
				IsWrapperNoise: true,
			}}
		}
		return nil
	}

	if len(hyps) > maxHypotheses {
		hyps = hyps[:maxHypotheses]
	}

	// Trailing note when the wrapper also complained
	if analysis.HasWrapperNoise && len(hyps) < maxHypotheses {
		hyps = append(hyps, &Hypothesis{
			Hypothesis:     "FYI: the disk wrapper also reported its generic non-zero exit message; it is noise, not a cause",
			Evidence:       "ERROR: Generator returns a non-zero value",
			Confidence:     0.2,
			Tier:           tierWrapperNote,
			IsWrapperNoise: true,
		})
	}

	return hyps
}

func externalHypothesis(sig *signals.Signal, tier int) *Hypothesis {
	text := sig.RenderHypothesis()
	if text == "" {
		if len(sig.Hints) > 0 {
			text = sig.Hints[0]
		} else {
			text = fmt.Sprintf("External signal: %s (%s)", sig.ID, sig.Category)
		}
	}

	confidence := map[string]float64{"F": 0.95, "E": 0.85, "W": 0.70, "I": 0.50}[sig.Severity]
	if confidence == 0 {
		confidence = 0.70
	}

	h := &Hypothesis{
		Hypothesis:       text,
		ConfirmSteps:     sig.Hints,
		Confidence:       confidence,
		Tier:             tier,
		IsExternalSignal: true,
		ExternalSignalID: sig.ID,
	}
	if len(sig.Evidence) > 0 {
		ev := sig.Evidence[0]
		h.LineNumber = ev.LineNo
		h.Evidence = truncateEvidence(fmt.Sprintf("L%d: %s", ev.LineNo, ev.LineText), 120)
	} else {
		h.Evidence = "External signal: " + sig.ID
	}
	return h
}

func codeHypothesis(signal *parsers.Signal, def *storage.MessageCode, tier int) *Hypothesis {
	text := ""
	confirm := genericCodeConfirm
	confidence := 0.75

	for _, rule := range codeRules {
		if rule.match(signal.Code) {
			text = rule.hypothesis
			confirm = rule.confirm
			confidence = rule.confidence
			break
		}
	}

	if def != nil {
		decoded := def.Title
		if decoded == "" {
			decoded = def.Body
		}
		decoded = truncateEvidence(decoded, 120)
		if text == "" {
			text = fmt.Sprintf("%s: %s", signal.Code, decoded)
		} else {
			text = fmt.Sprintf("%s (%s: %s)", text, signal.Code, decoded)
		}
	} else if text == "" {
		text = fmt.Sprintf("Diagnostic code %s reported in the log", signal.Code)
	}

	if tier == tierFatalCode {
		confidence = minF(1.0, confidence+0.05)
	}

	return &Hypothesis{
		Hypothesis:   text,
		Evidence:     truncateEvidence(signal.Message, 100),
		LineNumber:   signal.LineNumber,
		ConfirmSteps: confirm,
		Confidence:   confidence,
		Tier:         tier,
		Code:         signal.Code,
	}
}

func truncateEvidence(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
