package output

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"lsa/internal/analysis"
)

// PlanInput carries a planning result for rendering
type PlanInput struct {
	SnapshotRoot string
	Intent       *analysis.Intent
	Candidates   []*analysis.BundleCandidate
	ShowAll      bool
	Lang         string
	Debug        bool
}

// RenderPlanText formats a plan result for the terminal
func RenderPlanText(in *PlanInput) string {
	var sb strings.Builder
	lang := in.Lang

	header := func(title string) {
		sb.WriteString("\n" + strings.Repeat("═", 50) + "\n")
		sb.WriteString(title + "\n")
		sb.WriteString(strings.Repeat("═", 50) + "\n")
	}

	header(tr("parsed_intent", lang))
	if in.Intent.CID != "" {
		fmt.Fprintf(&sb, "%s: %s\n", tr("cid", lang), in.Intent.CID)
	}
	if in.Intent.JobID != "" {
		fmt.Fprintf(&sb, "%s: %s\n", tr("job_id", lang), in.Intent.JobID)
	}
	if in.Intent.LetterNumber != "" {
		fmt.Fprintf(&sb, "%s: %s\n", tr("letter_number", lang), in.Intent.LetterNumber)
	}
	if len(in.Intent.TitleKeywords) > 0 {
		fmt.Fprintf(&sb, "%s: %s\n", tr("keywords", lang), strings.Join(in.Intent.TitleKeywords, ", "))
	}
	if in.Intent.RawTitle != "" {
		fmt.Fprintf(&sb, "%s: %s\n", tr("raw_title", lang), in.Intent.RawTitle)
	}

	if len(in.Candidates) == 0 {
		sb.WriteString("\n" + tr("no_matching_procs", lang) + "\n")
		return sb.String()
	}

	best := in.Candidates[0]
	header(fmt.Sprintf("%s: %s (score: %.0f)", tr("selected_bundle", lang), best.ProcKey, best.Score))
	if best.DisplayName != "" {
		sb.WriteString(best.DisplayName + "\n")
	}
	if in.Debug && len(best.ScoreBreakdown) > 0 {
		for _, s := range best.ScoreBreakdown {
			fmt.Fprintf(&sb, "  +%.0f %s\n", s.Score, s.Name)
		}
	}

	sb.WriteString("\n" + tr("files_to_open", lang) + ":\n")
	if len(best.Files) == 0 {
		sb.WriteString("  " + tr("no_files", lang) + "\n")
	}
	for _, f := range best.Files {
		fmt.Fprintf(&sb, "  [%s] %s (%s)\n", f.Kind, f.Path, f.Source)
	}

	if len(in.Candidates) > 1 {
		header(tr("other_candidates", lang))
		rest := in.Candidates[1:]
		for i, c := range rest {
			fmt.Fprintf(&sb, "%d. %s (score: %.0f, %d %s)\n",
				i+2, c.ProcKey, c.Score, len(c.Files), tr("files", lang))
			if in.ShowAll {
				for _, f := range c.Files {
					fmt.Fprintf(&sb, "   [%s] %s (%s)\n", f.Kind, f.Path, f.Source)
				}
			}
			if in.Debug && len(c.ScoreBreakdown) > 0 {
				for _, s := range c.ScoreBreakdown {
					fmt.Fprintf(&sb, "   +%.0f %s\n", s.Score, s.Name)
				}
			}
		}
	}

	return sb.String()
}

type planJSONFile struct {
	Kind    string `json:"kind"`
	Path    string `json:"path"`
	AbsPath string `json:"abs_path"`
	Reason  string `json:"reason"`
}

type planJSONBundle struct {
	Rank        int            `json:"rank"`
	Key         string         `json:"key"`
	DisplayName string         `json:"display_name"`
	Score       float64        `json:"score"`
	Files       []planJSONFile `json:"files"`
}

type planJSONSummary struct {
	Key       string  `json:"key"`
	Score     float64 `json:"score"`
	FileCount int     `json:"file_count"`
}

type planJSON struct {
	SnapshotRoot    string            `json:"snapshot_root"`
	Intent          *analysis.Intent  `json:"intent"`
	SelectedBundle  *planJSONBundle   `json:"selected_bundle,omitempty"`
	OtherCandidates []planJSONSummary `json:"other_candidates_summary,omitempty"`
}

// RenderPlanJSON formats a plan result as indented JSON
func RenderPlanJSON(in *PlanInput) (string, error) {
	out := planJSON{
		SnapshotRoot: in.SnapshotRoot,
		Intent:       in.Intent,
	}

	if len(in.Candidates) > 0 {
		out.SelectedBundle = bundleJSON(in.Candidates[0], 1, in.SnapshotRoot)
		for _, c := range in.Candidates[1:] {
			out.OtherCandidates = append(out.OtherCandidates, planJSONSummary{
				Key:       c.ProcKey,
				Score:     c.Score,
				FileCount: len(c.Files),
			})
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func bundleJSON(c *analysis.BundleCandidate, rank int, root string) *planJSONBundle {
	b := &planJSONBundle{
		Rank:        rank,
		Key:         c.ProcKey,
		DisplayName: c.DisplayName,
		Score:       c.Score,
	}
	for _, f := range c.Files {
		b.Files = append(b.Files, planJSONFile{
			Kind:    f.Kind,
			Path:    f.Path,
			AbsPath: filepath.Join(root, filepath.FromSlash(f.Path)),
			Reason:  f.Source,
		})
	}
	return b
}

// RenderPlanCursor formats a plan as a Markdown prompt ready to paste into
// an AI-assisted editor
func RenderPlanCursor(in *PlanInput) (string, error) {
	jsonText, err := RenderPlanJSON(in)
	if err != nil {
		return "", err
	}
	lang := in.Lang

	var sb strings.Builder
	sb.WriteString("# " + tr("cursor_title", lang) + "\n\n")
	sb.WriteString(tr("cursor_intro", lang) + "\n\n")

	sb.WriteString("## " + tr("cursor_instructions", lang) + "\n\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&sb, "%d. %s\n", i, tr(fmt.Sprintf("cursor_step_%d", i), lang))
	}

	sb.WriteString("\n## " + tr("cursor_data", lang) + "\n\n")
	sb.WriteString("```json\n")
	sb.WriteString(jsonText)
	sb.WriteString("```\n\n")
	fmt.Fprintf(&sb, "Snapshot root: `%s`\n", in.SnapshotRoot)

	return sb.String(), nil
}
