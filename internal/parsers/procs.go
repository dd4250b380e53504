package parsers

import (
	"encoding/json"
	"strings"
)

// ProcsData is the structured content of one job definition file
type ProcsData struct {
	Firm    string `json:"firm"`
	CID     string `json:"cid"`
	AppType string `json:"app_type"`
	JobID   string `json:"job_id,omitempty"`
	LR      string `json:"lr,omitempty"`

	ShellScript     string `json:"shell_script,omitempty"`
	ShellScriptLine int    `json:"shell_script_line,omitempty"`
	LogFile         string `json:"log_file,omitempty"`
	LogFileLine     int    `json:"log_file_line,omitempty"`
	FileSetup       string `json:"file_setup,omitempty"`
	FileSetupLine   int    `json:"file_setup_line,omitempty"`

	PrintFiles    []string `json:"print_files,omitempty"`
	InputLocation string   `json:"input_location,omitempty"`
	CrossRefs     []string `json:"cross_refs,omitempty"`
	AllPaths      []string `json:"all_paths,omitempty"`
}

// ScriptRef is one script reference with its relationship type
type ScriptRef struct {
	Path    string
	RelType string
}

// ResourceRef is one non-script file reference with its resource type
type ResourceRef struct {
	Path string
	Kind string
}

// ToJSON serializes the parsed data
func (p *ProcsData) ToJSON() (string, error) {
	data, err := json.Marshal(p)
	return string(data), err
}

// ProcsDataFromJSON deserializes parsed data stored in the database
func ProcsDataFromJSON(jsonStr string) (*ProcsData, error) {
	var p ProcsData
	if err := json.Unmarshal([]byte(jsonStr), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseProcs extracts structured data from job definition text
func ParseProcs(text string) *ProcsData {
	data := &ProcsData{Firm: "unknown", CID: "unknown", AppType: "unknown"}

	if m := procsFirmRe.FindStringSubmatch(text); m != nil {
		data.Firm = strings.TrimSpace(m[1])
	}
	if m := procsCIDRe.FindStringSubmatch(text); m != nil {
		data.CID = strings.ToLower(strings.TrimSpace(m[1]))
	}
	if m := procsAppTypeRe.FindStringSubmatch(text); m != nil {
		data.AppType = strings.TrimSpace(m[1])
	}
	if m := procsJobIDRe.FindStringSubmatch(text); m != nil {
		data.JobID = strings.TrimSpace(m[1])
	}
	if m := procsLRRe.FindStringSubmatch(text); m != nil {
		data.LR = strings.TrimSpace(m[1])
	}

	if loc := procsShellScriptRe.FindStringSubmatchIndex(text); loc != nil {
		data.ShellScript = strings.TrimSpace(text[loc[2]:loc[3]])
		data.ShellScriptLine = lineNumberAt(text, loc[0])
	}
	if loc := procsLogFileRe.FindStringSubmatchIndex(text); loc != nil {
		data.LogFile = strings.TrimSpace(text[loc[2]:loc[3]])
		data.LogFileLine = lineNumberAt(text, loc[0])
	}
	if loc := procsFileSetupRe.FindStringSubmatchIndex(text); loc != nil {
		data.FileSetup = strings.TrimSpace(text[loc[2]:loc[3]])
		data.FileSetupLine = lineNumberAt(text, loc[0])
	}

	for _, m := range procsPrintFilesRe.FindAllStringSubmatch(text, -1) {
		path := strings.TrimSpace(m[1])
		if !containsString(data.PrintFiles, path) {
			data.PrintFiles = append(data.PrintFiles, path)
		}
	}

	if m := procsInputLocationRe.FindStringSubmatch(text); m != nil {
		data.InputLocation = strings.TrimSpace(m[1])
	}

	for _, m := range procsCrossRefRe.FindAllStringSubmatch(text, -1) {
		ref := strings.TrimSpace(m[1])
		if !containsString(data.CrossRefs, ref) {
			data.CrossRefs = append(data.CrossRefs, ref)
		}
	}

	seen := make(map[string]bool)
	for _, m := range absolutePathRe.FindAllStringSubmatch(text, -1) {
		path := strings.TrimRight(strings.TrimSpace(m[1]), ".,;:)]}")
		if len(path) > 5 && !seen[path] {
			seen[path] = true
			data.AllPaths = append(data.AllPaths, path)
		}
	}

	return data
}

// ReferencedScripts returns every script the job runs or calls.
// The main shell script is a RUNS edge, everything else CALLS.
func (p *ProcsData) ReferencedScripts() []ScriptRef {
	var scripts []ScriptRef

	if p.ShellScript != "" {
		scripts = append(scripts, ScriptRef{Path: p.ShellScript, RelType: "RUNS"})
	}

	for _, path := range p.AllPaths {
		if hasAnySuffix(path, ".sh", ".pl", ".py") && path != p.ShellScript {
			scripts = append(scripts, ScriptRef{Path: path, RelType: "CALLS"})
		}
	}
	return scripts
}

// ReferencedResources returns the job's non-script file references
func (p *ProcsData) ReferencedResources() []ResourceRef {
	var resources []ResourceRef

	if p.FileSetup != "" {
		resources = append(resources, ResourceRef{Path: p.FileSetup, Kind: "insert"})
	}
	if p.InputLocation != "" {
		resources = append(resources, ResourceRef{Path: p.InputLocation, Kind: "input"})
	}

	for _, path := range p.AllPaths {
		switch {
		case strings.HasSuffix(path, ".control"):
			resources = append(resources, ResourceRef{Path: path, Kind: "control"})
		case strings.HasSuffix(path, ".dfa"):
			resources = append(resources, ResourceRef{Path: path, Kind: "docdef"})
		case strings.HasSuffix(path, ".ins") && path != p.FileSetup:
			resources = append(resources, ResourceRef{Path: path, Kind: "insert"})
		}
	}
	return resources
}

func lineNumberAt(text string, pos int) int {
	return strings.Count(text[:pos], "\n") + 1
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
