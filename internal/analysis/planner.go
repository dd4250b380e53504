package analysis

import (
	"regexp"
	"sort"
	"strings"

	"lsa/internal/storage"
)

// Intent is the parsed investigation request behind a plan
type Intent struct {
	CID           string   `json:"cid,omitempty"`
	JobID         string   `json:"job_id,omitempty"`
	LetterNumber  string   `json:"letter_number,omitempty"`
	TitleKeywords []string `json:"keywords,omitempty"`
	RawTitle      string   `json:"raw_title,omitempty"`
}

// BundleFile is one file selected into a plan bundle
type BundleFile struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Source string `json:"reason"`
}

// BundleCandidate is one scored proc with its file bundle
type BundleCandidate struct {
	ProcKey        string       `json:"key"`
	ProcName       string       `json:"-"`
	DisplayName    string       `json:"display_name"`
	Score          float64      `json:"score"`
	ScoreBreakdown []Strategy   `json:"score_breakdown,omitempty"`
	Files          []BundleFile `json:"files"`
}

// Strategy is one scoring contribution in a candidate's breakdown
type Strategy struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

var planStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "are": true, "was": true,
	"has": true, "have": true, "had": true, "not": true, "but": true,
	"its": true, "our": true, "all": true, "new": true,
	"update": true, "letter": true, "monthly": true, "daily": true,
	"weekly": true, "run": true, "job": true,
}

var (
	cidTokenRe     = regexp.MustCompile(`\b([A-Z]{4})\b`)
	letterNumberRe = regexp.MustCompile(`(?i)(?:Letter\s*|DL)(\d{2,3})\b`)
	wordSplitRe    = regexp.MustCompile(`[^A-Za-z0-9]+`)

	// Matches format_dfa="WCCUDL014" and every *_format_dfa variant
	formatDFARe = regexp.MustCompile(`(?i)\w*format_dfa\s*[=:]\s*["']?(\w+)["']?`)
	// Docdef tokens: uppercase client id prefix plus letters/digits
	dfaTokenRe = regexp.MustCompile(`\b([A-Z]{4}[A-Z0-9]{2,})\b`)

	leadingSepRe  = regexp.MustCompile(`^[\s\-–—:,]+`)
	trailingSepRe = regexp.MustCompile(`[\s\-–—:,]+$`)
	trailingNumRe = regexp.MustCompile(`\d+$`)
)

// Planner builds file bundles from investigation intents
type Planner struct {
	db   *storage.DB
	root string
}

// NewPlanner creates a planner over a snapshot's database
func NewPlanner(db *storage.DB, snapshotRoot string) *Planner {
	return &Planner{db: db, root: snapshotRoot}
}

// ParseTitle splits a free-form title into a client id, a letter number
// zero-padded to 3 digits, and lowercase keywords of 3+ chars
func ParseTitle(title string) (cid, letterNumber string, keywords []string) {
	if m := cidTokenRe.FindStringSubmatch(title); m != nil {
		cid = strings.ToLower(m[1])
	}
	if m := letterNumberRe.FindStringSubmatch(title); m != nil {
		letterNumber = zeroPad(m[1], 3)
	}

	for _, tok := range wordSplitRe.Split(title, -1) {
		lower := strings.ToLower(tok)
		if len(tok) >= 3 && !planStopwords[lower] {
			keywords = append(keywords, lower)
		}
	}
	return cid, letterNumber, keywords
}

// BuildIntent merges explicit arguments with title-parsed values; the
// explicit arguments always win
func BuildIntent(cid, jobID, title string) *Intent {
	intent := &Intent{RawTitle: title}

	var titleCID string
	if title != "" {
		titleCID, intent.LetterNumber, intent.TitleKeywords = ParseTitle(title)
	}

	if cid != "" {
		intent.CID = strings.ToLower(cid)
	} else {
		intent.CID = titleCID
	}
	if jobID != "" {
		intent.JobID = strings.ToLower(jobID)
	}
	return intent
}

// Plan finds, bundles, and scores candidates for an intent, best first
func (p *Planner) Plan(intent *Intent, limit int) ([]*BundleCandidate, error) {
	if limit <= 0 {
		limit = 5
	}

	candidates, err := p.findCandidates(intent)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if err := p.buildBundle(c, intent); err != nil {
			return nil, err
		}
		if err := p.scoreCandidate(c, intent); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (p *Planner) findCandidates(intent *Intent) ([]*BundleCandidate, error) {
	var candidates []*BundleCandidate
	seen := make(map[string]bool)

	add := func(n *storage.Node) {
		if seen[n.Key] {
			return
		}
		seen[n.Key] = true
		candidates = append(candidates, &BundleCandidate{
			ProcKey:     n.Key,
			ProcName:    strings.TrimPrefix(n.Key, "proc:"),
			DisplayName: n.DisplayName,
		})
	}

	if intent.CID != "" {
		procs, err := p.db.NodesByType(storage.NodeProc)
		if err != nil {
			return nil, err
		}

		if intent.JobID != "" {
			exactKey := "proc:" + intent.CID + intent.JobID
			for _, n := range procs {
				if n.Key == exactKey {
					add(n)
				}
			}
		}
		for _, n := range procs {
			if strings.HasPrefix(n.Key, "proc:"+intent.CID) {
				add(n)
			}
		}
	}

	if len(candidates) == 0 && len(intent.TitleKeywords) > 0 {
		procs, err := p.db.AllProcs()
		if err != nil {
			return nil, err
		}
		for _, proc := range procs {
			pj := strings.ToLower(proc.ParsedJSON)
			for _, kw := range intent.TitleKeywords {
				if strings.Contains(pj, kw) {
					node, err := p.db.NodeByKey("proc:" + proc.ProcName)
					if err != nil {
						return nil, err
					}
					if node != nil {
						add(node)
					}
					break
				}
			}
		}
	}

	return candidates, nil
}

func (p *Planner) buildBundle(c *BundleCandidate, intent *Intent) error {
	c.Files = append(c.Files, BundleFile{
		Path:   "procs/" + c.ProcName + ".procs",
		Kind:   "procs",
		Source: "proc_file",
	})

	node, err := p.db.NodeByKey(c.ProcKey)
	if err != nil || node == nil {
		return err
	}

	runs, err := p.db.OutgoingEdges(node.ID, storage.EdgeRuns)
	if err != nil {
		return err
	}
	for _, e := range runs {
		dst, err := p.db.NodeByID(e.Dst)
		if err != nil {
			return err
		}
		if dst != nil && dst.CanonicalPath != "" {
			c.Files = append(c.Files, BundleFile{Path: dst.CanonicalPath, Kind: "script", Source: "RUNS_edge"})
		}
	}

	reads, err := p.db.OutgoingEdges(node.ID, storage.EdgeReads)
	if err != nil {
		return err
	}
	for _, e := range reads {
		dst, err := p.db.NodeByID(e.Dst)
		if err != nil {
			return err
		}
		if dst != nil && dst.CanonicalPath != "" {
			c.Files = append(c.Files, BundleFile{Path: dst.CanonicalPath, Kind: "insert", Source: "READS_edge"})
		}
	}

	cid := intent.CID
	if cid == "" && len(c.ProcName) >= 4 {
		cid = c.ProcName[:4]
	}

	allControls, err := p.db.ArtifactsMatchingBasename(cid)
	if err != nil {
		return err
	}
	controls := selectControls(allControls, c.ProcName, intent)
	for _, ctrl := range controls {
		c.Files = append(c.Files, BundleFile{Path: ctrl.Path, Kind: "control", Source: "control_match"})
	}

	seenDFA := make(map[string]bool)
	for _, ctrl := range controls {
		codes := filterDFAByLetter(dfaCodesFromControl(ctrl.TextContent), intent.LetterNumber)
		for _, code := range codes {
			if err := p.resolveDFA(code, "control_format_dfa", c, seenDFA); err != nil {
				return err
			}
		}
	}

	proc, err := p.db.GetProc(c.ProcName)
	if err != nil {
		return err
	}
	if proc != nil {
		codes := filterDFAByLetter(dfaTokensFromProcs(proc.ParsedJSON, cid), intent.LetterNumber)
		for _, code := range codes {
			if err := p.resolveDFA(code, "procs_dfa_token", c, seenDFA); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Planner) resolveDFA(code, source string, c *BundleCandidate, seen map[string]bool) error {
	artifacts, err := p.db.ArtifactsByKind("docdef")
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if !strings.Contains(strings.ToUpper(a.Path), code) {
			continue
		}
		if seen[a.Path] {
			continue
		}
		seen[a.Path] = true
		c.Files = append(c.Files, BundleFile{Path: a.Path, Kind: "docdef", Source: source})
	}
	return nil
}

func (p *Planner) scoreCandidate(c *BundleCandidate, intent *Intent) error {
	var breakdown []Strategy
	add := func(name string, score float64) {
		breakdown = append(breakdown, Strategy{Name: name, Score: score})
	}

	if intent.CID != "" && intent.JobID != "" &&
		c.ProcKey == "proc:"+intent.CID+intent.JobID {
		add("exact_key_match", 50.0)
	}

	proc, err := p.db.GetProc(c.ProcName)
	if err != nil {
		return err
	}
	pj := ""
	if proc != nil {
		pj = strings.ToLower(proc.ParsedJSON)
	}

	if intent.RawTitle != "" && pj != "" {
		phrase := extractTitlePhrase(intent.RawTitle)
		if phrase != "" && strings.Contains(pj, strings.ToLower(phrase)) {
			add("title_phrase_match", 30.0)
		}
	}

	if intent.CID != "" && strings.HasPrefix(c.ProcName, intent.CID) {
		add("cid_prefix", 15.0)
	}

	if hasFileKind(c.Files, "script") {
		add("has_scripts", 10.0)
	}
	if hasFileKind(c.Files, "insert") {
		add("has_inserts", 10.0)
	}
	if hasFileKind(c.Files, "docdef") {
		add("has_dfa", 5.0)
	}

	if pj != "" {
		for _, kw := range intent.TitleKeywords {
			if strings.Contains(pj, kw) {
				add("keyword:"+kw, 2.0)
			}
		}
	}

	c.ScoreBreakdown = breakdown
	c.Score = 0
	for _, s := range breakdown {
		c.Score += s.Score
	}
	return nil
}

// selectControls picks control artifacts for a proc: the job family prefix
// must appear in the path, and when a letter number is known controls
// carrying it win over the rest of the family
func selectControls(all []*storage.Artifact, procName string, intent *Intent) []*storage.Artifact {
	if len(all) == 0 {
		return nil
	}

	family := jobFamilyPrefix(procName)

	var familyRows []*storage.Artifact
	for _, a := range all {
		if a.Kind != "control" {
			continue
		}
		if family != "" && strings.Contains(strings.ToLower(a.Path), family) {
			familyRows = append(familyRows, a)
		}
	}
	if len(familyRows) == 0 {
		return nil
	}

	if intent.LetterNumber != "" {
		var letterRows []*storage.Artifact
		for _, a := range familyRows {
			if strings.Contains(a.Path, intent.LetterNumber) {
				letterRows = append(letterRows, a)
			}
		}
		if len(letterRows) > 0 {
			return letterRows
		}
	}
	return familyRows
}

// jobFamilyPrefix strips the variant suffix from a proc name: trailing
// digits when present, otherwise one trailing letter on long names
func jobFamilyPrefix(procName string) string {
	if len(procName) <= 4 {
		return procName
	}
	stripped := trailingNumRe.ReplaceAllString(procName, "")
	if stripped != procName && len(stripped) >= 5 {
		return stripped
	}
	if len(procName) > 5 {
		return procName[:len(procName)-1]
	}
	return procName
}

func dfaCodesFromControl(content string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, m := range formatDFARe.FindAllStringSubmatch(content, -1) {
		code := strings.ToUpper(m[1])
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

func dfaTokensFromProcs(parsedJSON, cid string) []string {
	prefix := strings.ToUpper(cid)
	var codes []string
	seen := make(map[string]bool)
	for _, m := range dfaTokenRe.FindAllStringSubmatch(parsedJSON, -1) {
		token := m[1]
		if strings.HasPrefix(token, prefix) && !seen[token] {
			seen[token] = true
			codes = append(codes, token)
		}
	}
	return codes
}

// filterDFAByLetter keeps codes whose trailing digit run equals the letter
// number zero-padded to that run's width, so DL14 matches WCCUDL014 and
// WCCUDL0014 but not WCCUDL015
func filterDFAByLetter(codes []string, letterNumber string) []string {
	if letterNumber == "" {
		return codes
	}

	trimmed := strings.TrimLeft(letterNumber, "0")
	var out []string
	for _, code := range codes {
		digits := trailingNumRe.FindString(code)
		if digits == "" {
			continue
		}
		if digits == zeroPad(trimmed, len(digits)) {
			out = append(out, code)
		}
	}
	return out
}

// extractTitlePhrase strips the leading client id token and letter-number
// marker from a title, leaving its distinctive phrase
func extractTitlePhrase(rawTitle string) string {
	s := rawTitle
	if loc := cidTokenRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	if loc := letterNumberRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	s = leadingSepRe.ReplaceAllString(s, "")
	s = trailingSepRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func hasFileKind(files []BundleFile, kind string) bool {
	for _, f := range files {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

func zeroPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
