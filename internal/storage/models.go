package storage

// Artifact is one indexed snapshot file
type Artifact struct {
	ID           int64   `json:"id"`
	Kind         string  `json:"kind"`
	Path         string  `json:"path"`
	OriginalPath string  `json:"original_path,omitempty"`
	SHA256       string  `json:"sha256,omitempty"`
	MTime        float64 `json:"mtime"`
	Size         int64   `json:"size"`
	TextContent  string  `json:"-"`
	HasContent   bool    `json:"has_content"`
}

// Proc is one parsed job definition
type Proc struct {
	ID         int64  `json:"id"`
	ProcName   string `json:"proc_name"`
	Path       string `json:"path"`
	ParsedJSON string `json:"parsed_json"`
	SHA256     string `json:"sha256,omitempty"`
}

// Node types in the execution graph
const (
	NodeProc    = "proc"
	NodeScript  = "script"
	NodeControl = "control"
	NodeInsert  = "insert"
	NodeDocdef  = "docdef"
	NodeLog     = "log"
)

// Edge relationship types
const (
	EdgeRuns     = "RUNS"
	EdgeReads    = "READS"
	EdgeCalls    = "CALLS"
	EdgeRefersTo = "REFERS_TO"
)

// Node is one entity in the execution graph
type Node struct {
	ID            int64   `json:"id"`
	Type          string  `json:"type"`
	Key           string  `json:"key"`
	DisplayName   string  `json:"display_name"`
	CanonicalPath string  `json:"canonical_path,omitempty"`
	OriginalPath  string  `json:"original_path,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// Edge is one directed relationship between graph nodes
type Edge struct {
	ID             int64   `json:"id"`
	Src            int64   `json:"src"`
	Dst            int64   `json:"dst"`
	RelType        string  `json:"rel_type"`
	Confidence     float64 `json:"confidence"`
	EvidenceJSON   string  `json:"evidence_json,omitempty"`
	SourceArtifact string  `json:"source_artifact,omitempty"`
}

// Incident is one persisted log analysis, keyed by log path
type Incident struct {
	ID               int64   `json:"id"`
	RunID            string  `json:"run_id,omitempty"`
	LogPath          string  `json:"log_path"`
	ParsedJSON       string  `json:"parsed_json"`
	TopNodeID        int64   `json:"top_node_id,omitempty"`
	TopNodeKey       string  `json:"top_node_key,omitempty"`
	Confidence       float64 `json:"confidence"`
	HypothesesJSON   string  `json:"hypotheses_json,omitempty"`
	SimilarCasesJSON string  `json:"similar_cases_json,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
}

// CaseCard is one structured record mined from a troubleshooting history
type CaseCard struct {
	ID             int64  `json:"id"`
	SourcePath     string `json:"source_path"`
	ChunkID        int    `json:"chunk_id"`
	ContentHash    string `json:"content_hash"`
	Title          string `json:"title"`
	SignalsJSON    string `json:"signals_json,omitempty"`
	RootCause      string `json:"root_cause,omitempty"`
	FixSummary     string `json:"fix_summary,omitempty"`
	VerifyCmdsJSON string `json:"verify_commands_json,omitempty"`
	RelFilesJSON   string `json:"related_files_json,omitempty"`
	TagsJSON       string `json:"tags_json,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// MessageCode is one decoded diagnostic code definition
type MessageCode struct {
	Code       string `json:"code"`
	Severity   string `json:"severity"`
	Title      string `json:"title,omitempty"`
	Body       string `json:"body"`
	SourcePath string `json:"source_path"`
	CreatedAt  string `json:"created_at"`
}
