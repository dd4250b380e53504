package graph

import (
	"database/sql"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"lsa/internal/parsers"
	"lsa/internal/storage"
)

// Matching weights. The denominator is the sum of all strategy maxima, so
// a log that fires every strategy lands at full confidence.
const (
	weightPrefixToken    = 50.0
	weightScriptRuns     = 30.0
	weightDocdefReach    = 20.0
	weightFilenameTokens = 10.0
	weightDenominator    = weightPrefixToken + weightScriptRuns + weightDocdefReach + weightFilenameTokens
)

// Candidate is one scored proc node with its scoring breakdown
type Candidate struct {
	Node       *storage.Node `json:"node"`
	Score      float64       `json:"score"`
	Strategies []Strategy    `json:"strategies,omitempty"`
	outDegree  int
}

// Strategy is one scoring contribution
type Strategy struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Match is the outcome of matching a log to the graph
type Match struct {
	Node       *storage.Node `json:"node,omitempty"`
	Confidence float64       `json:"confidence"`
	Score      float64       `json:"score"`
	// NoConfidentMatch is set when no node scored above zero
	NoConfidentMatch bool         `json:"no_confident_match"`
	Candidates       []*Candidate `json:"candidates,omitempty"`
}

// Matcher scores proc nodes against log evidence
type Matcher struct {
	db *storage.DB
}

// NewMatcher creates a matcher over the stored graph
func NewMatcher(db *storage.DB) *Matcher {
	return &Matcher{db: db}
}

// MatchLog finds the proc node most likely responsible for a log.
// Scoring is additive per strategy; ties break on outgoing edge count
// and then lexical node key so repeated runs agree. With forcedProc set
// the scoring is bypassed entirely.
func (m *Matcher) MatchLog(analysis *parsers.Analysis, logPath, forcedProc string, debug bool) (*Match, error) {
	if forcedProc != "" {
		return m.matchForced(forcedProc)
	}

	procs, err := m.db.NodesByType(storage.NodeProc)
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return &Match{NoConfidentMatch: true}, nil
	}

	adjacency, err := m.db.DownstreamAdjacency(storage.EdgeRuns, storage.EdgeReads, storage.EdgeRefersTo)
	if err != nil {
		return nil, err
	}

	candidates := make(map[int64]*Candidate)
	addScore := func(node *storage.Node, name string, score float64) {
		c, ok := candidates[node.ID]
		if !ok {
			c = &Candidate{Node: node}
			candidates[node.ID] = c
		}
		c.Score += score
		c.Strategies = append(c.Strategies, Strategy{Name: name, Score: score})
	}

	// Prefix tokens name the proc directly
	for _, prefix := range analysis.PrefixTokens {
		for _, p := range procs {
			if p.Key == "proc:"+prefix {
				addScore(p, "prefix_exact:"+prefix, weightPrefixToken)
			}
		}
	}

	// Script paths seen in the log tie back through RUNS edges
	for _, scriptPath := range analysis.ScriptPaths {
		scriptName := path.Base(scriptPath)
		runners, err := m.procsRunningScript(scriptName)
		if err != nil {
			return nil, err
		}
		for _, p := range runners {
			addScore(p, "script_runs:"+scriptName, weightScriptRuns)
		}
	}

	// Docdef tokens must be reachable downstream of the proc
	if len(analysis.DocdefTokens) > 0 {
		docdefOwners, err := m.docdefNodeIDs(analysis.DocdefTokens)
		if err != nil {
			return nil, err
		}
		for token, targetIDs := range docdefOwners {
			for _, p := range procs {
				if reachesAny(adjacency, p.ID, targetIDs) {
					addScore(p, "docdef_reach:"+token, weightDocdefReach)
				}
			}
		}
	}

	// Filename token overlap, scaled by the fraction of tokens that hit
	fileTokens := filenameTokens(logPath)
	if len(fileTokens) > 0 {
		for _, p := range procs {
			haystack := strings.ToLower(p.DisplayName + " " + p.CanonicalPath + " " + p.Key)
			hits := 0
			for _, tok := range fileTokens {
				if strings.Contains(haystack, tok) {
					hits++
				}
			}
			if hits > 0 {
				fraction := float64(hits) / float64(len(fileTokens))
				addScore(p, fmt.Sprintf("filename_tokens:%d/%d", hits, len(fileTokens)),
					weightFilenameTokens*fraction)
			}
		}
	}

	if len(candidates) == 0 {
		return &Match{NoConfidentMatch: true}, nil
	}

	ranked := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.outDegree = len(adjacency[c.Node.ID])
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].outDegree != ranked[j].outDegree {
			return ranked[i].outDegree > ranked[j].outDegree
		}
		return ranked[i].Node.Key < ranked[j].Node.Key
	})

	best := ranked[0]
	if best.Score <= 0 {
		return &Match{NoConfidentMatch: true}, nil
	}

	match := &Match{
		Node:       best.Node,
		Score:      best.Score,
		Confidence: minFloat(1.0, best.Score/weightDenominator),
	}
	if debug {
		if len(ranked) > 10 {
			ranked = ranked[:10]
		}
		match.Candidates = ranked
	}
	return match, nil
}

func (m *Matcher) matchForced(forcedProc string) (*Match, error) {
	forcedProc = strings.ToLower(forcedProc)

	node, err := m.db.NodeByKey("proc:" + forcedProc)
	if err != nil {
		return nil, err
	}
	if node != nil {
		return &Match{Node: node, Confidence: 1.0, Score: weightDenominator}, nil
	}

	procs, err := m.db.NodesByType(storage.NodeProc)
	if err != nil {
		return nil, err
	}
	for _, p := range procs {
		if strings.Contains(p.Key, forcedProc) {
			return &Match{Node: p, Confidence: 0.9}, nil
		}
	}
	return &Match{NoConfidentMatch: true}, nil
}

// procsRunningScript finds proc nodes with a RUNS edge to a script whose
// name matches
func (m *Matcher) procsRunningScript(scriptName string) ([]*storage.Node, error) {
	rows, err := m.db.Query(`
		SELECT p.id, p.type, p.key, p.display_name, p.canonical_path, p.original_path, p.confidence
		FROM nodes p
		JOIN edges e ON p.id = e.src
		JOIN nodes s ON e.dst = s.id
		WHERE p.type = 'proc'
		AND s.type = 'script'
		AND e.rel_type = 'RUNS'
		AND (s.display_name = ? OR s.original_path LIKE ?)
	`, scriptName, "%"+scriptName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMatchNodes(rows)
}

// docdefNodeIDs maps each docdef token to the node ids carrying it
func (m *Matcher) docdefNodeIDs(tokens []string) (map[string][]int64, error) {
	nodes, err := m.db.NodesByType(storage.NodeDocdef)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]int64)
	for _, token := range tokens {
		lower := strings.ToLower(token)
		for _, n := range nodes {
			if strings.Contains(strings.ToLower(n.DisplayName), lower) ||
				strings.Contains(strings.ToLower(n.Key), lower) {
				out[token] = append(out[token], n.ID)
			}
		}
	}
	return out, nil
}

// reachesAny walks downstream from start looking for any target node
func reachesAny(adjacency map[int64][]int64, start int64, targets []int64) bool {
	targetSet := make(map[int64]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	visited := map[int64]bool{start: true}
	queue := []int64{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacency[cur] {
			if targetSet[next] {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

var tokenSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

// filenameTokens splits a log filename stem into lowercase tokens,
// dropping pure cycle numbers and single characters
func filenameTokens(logPath string) []string {
	base := path.Base(filepathToSlash(logPath))
	base = strings.TrimSuffix(base, path.Ext(base))
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}

	var tokens []string
	for _, tok := range tokenSplitRe.Split(strings.ToLower(base), -1) {
		if len(tok) < 2 {
			continue
		}
		if isAllDigits(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// FormatDebugCandidates renders the candidate breakdown for --debug output
func FormatDebugCandidates(candidates []*Candidate) string {
	var sb strings.Builder
	sb.WriteString("\n=== MATCHING DEBUG (top candidates) ===\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "\n%d. %s (score: %.2f)\n", i+1, c.Node.Key, c.Score)
		fmt.Fprintf(&sb, "   Display: %s\n", c.Node.DisplayName)
		for _, s := range c.Strategies {
			fmt.Fprintf(&sb, "   +%.1f %s\n", s.Score, s.Name)
		}
	}
	sb.WriteString("\n" + strings.Repeat("=", 45) + "\n")
	return sb.String()
}

func scanMatchNodes(rows *sql.Rows) ([]*storage.Node, error) {
	var out []*storage.Node
	for rows.Next() {
		var n storage.Node
		var canonical, original sql.NullString
		if err := rows.Scan(&n.ID, &n.Type, &n.Key, &n.DisplayName,
			&canonical, &original, &n.Confidence); err != nil {
			return nil, err
		}
		n.CanonicalPath = canonical.String
		n.OriginalPath = original.String
		out = append(out, &n)
	}
	return out, rows.Err()
}
