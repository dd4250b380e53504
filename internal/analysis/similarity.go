package analysis

import (
	"encoding/json"
	"sort"
	"strings"

	"lsa/internal/storage"
)

// SimilarCase is one past case matched against the current log's signals
type SimilarCase struct {
	CaseID          int64    `json:"case_id"`
	Title           string   `json:"title,omitempty"`
	MatchScore      float64  `json:"match_score"`
	MatchingSignals []string `json:"matching_signals"`
	RootCause       string   `json:"root_cause,omitempty"`
	FixSummary      string   `json:"fix_summary,omitempty"`
	VerifyCommands  []string `json:"verify_commands,omitempty"`
	SourcePath      string   `json:"source_path,omitempty"`
}

// JaccardSimilarity computes set overlap over union, case-insensitive.
// Two empty sets score zero, not one.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := lowerSet(a)
	setB := lowerSet(b)

	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// FindSimilarCases ranks stored case cards against the current signals.
// Only cards strictly above the threshold are kept; ties go to the most
// recently touched card. File overlap adds a small boost on top of the
// Jaccard base.
func FindSimilarCases(
	db *storage.DB,
	currentSignals []string,
	relatedFiles []string,
	limit int,
	threshold float64,
) ([]*SimilarCase, error) {
	if len(currentSignals) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	cards, err := db.AllCaseCards()
	if err != nil {
		return nil, err
	}

	fileSet := lowerSet(relatedFiles)
	var similar []*SimilarCase

	// Cards arrive most recent first; stable sorting preserves that for ties
	for _, card := range cards {
		if card.SignalsJSON == "" {
			continue
		}
		var cardSignals []string
		if err := json.Unmarshal([]byte(card.SignalsJSON), &cardSignals); err != nil {
			continue
		}

		score := JaccardSimilarity(currentSignals, cardSignals)
		if score == 0 {
			continue
		}

		matching := intersect(currentSignals, cardSignals)

		if len(fileSet) > 0 && card.RelFilesJSON != "" {
			var cardFiles []string
			if err := json.Unmarshal([]byte(card.RelFilesJSON), &cardFiles); err == nil {
				overlap := 0
				for f := range lowerSet(cardFiles) {
					if fileSet[f] {
						overlap++
					}
				}
				if overlap > 0 {
					score = minF(1.0, score+0.2*float64(overlap))
				}
			}
		}

		if score <= threshold {
			continue
		}

		var verifyCommands []string
		if card.VerifyCmdsJSON != "" {
			_ = json.Unmarshal([]byte(card.VerifyCmdsJSON), &verifyCommands)
		}
		if len(verifyCommands) > 3 {
			verifyCommands = verifyCommands[:3]
		}

		similar = append(similar, &SimilarCase{
			CaseID:          card.ID,
			Title:           card.Title,
			MatchScore:      score,
			MatchingSignals: matching,
			RootCause:       card.RootCause,
			FixSummary:      card.FixSummary,
			VerifyCommands:  verifyCommands,
			SourcePath:      card.SourcePath,
		})
	}

	sort.SliceStable(similar, func(i, j int) bool {
		return similar[i].MatchScore > similar[j].MatchScore
	})

	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

func lowerSet(list []string) map[string]bool {
	set := make(map[string]bool, len(list))
	for _, s := range list {
		set[strings.ToLower(s)] = true
	}
	return set
}

func intersect(a, b []string) []string {
	setB := lowerSet(b)
	seen := make(map[string]bool)
	var out []string
	for _, s := range a {
		lower := strings.ToLower(s)
		if setB[lower] && !seen[lower] {
			seen[lower] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
