// Package graph builds and queries the execution graph: procs, the scripts
// they run, and the resources those scripts touch.
package graph

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"lsa/internal/logging"
	"lsa/internal/parsers"
	"lsa/internal/snapshot"
	"lsa/internal/storage"
)

// ProcEntry is one parsed job definition queued for graph building
type ProcEntry struct {
	Name           string
	Data           *parsers.ProcsData
	SourceArtifact string
	Changed        bool
}

// BuildStats summarizes one graph build
type BuildStats struct {
	ProcsProcessed int `json:"procs_processed"`
	NodesCreated   int `json:"nodes_created"`
	EdgesCreated   int `json:"edges_created"`
	EdgesDropped   int `json:"edges_dropped"`
}

// Builder constructs the execution graph from parsed job definitions
type Builder struct {
	db     *storage.DB
	logger *logging.Logger
	root   string
}

// NewBuilder creates a graph builder for a snapshot
func NewBuilder(db *storage.DB, logger *logging.Logger, snapshotRoot string) *Builder {
	return &Builder{db: db, logger: logger, root: snapshotRoot}
}

// Build runs the two-pass graph build. The first pass declares a node for
// every proc so cross-references resolve regardless of file order; the
// second derives edges. Entries whose source artifact is unchanged keep
// their existing edges; changed ones get their derived edges dropped and
// rebuilt.
func (b *Builder) Build(entries []*ProcEntry) (*BuildStats, error) {
	stats := &BuildStats{}

	procNodeIDs := make(map[string]int64, len(entries))
	for _, entry := range entries {
		id, err := b.db.UpsertNode(&storage.Node{
			Type:          storage.NodeProc,
			Key:           "proc:" + entry.Name,
			DisplayName:   procDisplayName(entry),
			CanonicalPath: "procs/" + entry.Name + ".procs",
			Confidence:    1.0,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to declare proc node %s: %w", entry.Name, err)
		}
		procNodeIDs[entry.Name] = id
		stats.NodesCreated++
	}

	for _, entry := range entries {
		stats.ProcsProcessed++
		if !entry.Changed {
			continue
		}

		dropped, err := b.db.DeleteEdgesFromArtifact(entry.SourceArtifact)
		if err != nil {
			return nil, err
		}
		stats.EdgesDropped += int(dropped)

		if err := b.deriveEdges(entry, procNodeIDs[entry.Name], stats); err != nil {
			return nil, err
		}
	}

	b.logger.Info("Graph build complete", map[string]interface{}{
		"procs":         stats.ProcsProcessed,
		"nodes_created": stats.NodesCreated,
		"edges_created": stats.EdgesCreated,
		"edges_dropped": stats.EdgesDropped,
	})

	return stats, nil
}

func (b *Builder) deriveEdges(entry *ProcEntry, procNodeID int64, stats *BuildStats) error {
	data := entry.Data

	if data.ShellScript != "" {
		scriptID, err := b.createScriptNode(data.ShellScript, stats)
		if err != nil {
			return err
		}
		evidence := edgeEvidence(entry.SourceArtifact, data.ShellScriptLine,
			"__Shell Script: "+data.ShellScript)
		if err := b.addEdge(procNodeID, scriptID, storage.EdgeRuns, 1.0, evidence, entry, stats); err != nil {
			return err
		}
	}

	if data.FileSetup != "" {
		insertID, err := b.createResourceNode(data.FileSetup, "insert", stats)
		if err != nil {
			return err
		}
		evidence := edgeEvidence(entry.SourceArtifact, data.FileSetupLine,
			"__File Setup: "+data.FileSetup)
		if err := b.addEdge(procNodeID, insertID, storage.EdgeReads, 1.0, evidence, entry, stats); err != nil {
			return err
		}
	}

	if data.LogFile != "" {
		logID, err := b.createResourceNode(data.LogFile, "log", stats)
		if err != nil {
			return err
		}
		evidence := edgeEvidence(entry.SourceArtifact, data.LogFileLine,
			"__Log File: "+data.LogFile)
		if err := b.addEdge(procNodeID, logID, storage.EdgeReads, 0.9, evidence, entry, stats); err != nil {
			return err
		}
	}

	for _, crossRef := range data.CrossRefs {
		refName := strings.ToLower(stemOf(crossRef))
		// Stub unless the first pass already declared it
		refID, err := b.db.UpsertNode(&storage.Node{
			Type:          storage.NodeProc,
			Key:           "proc:" + refName,
			DisplayName:   refName,
			CanonicalPath: "procs/" + refName + ".procs",
			OriginalPath:  crossRef,
			Confidence:    0.8,
		})
		if err != nil {
			return err
		}
		evidence := edgeEvidence(entry.SourceArtifact, 0, "refer to "+crossRef)
		if err := b.addEdge(procNodeID, refID, storage.EdgeRefersTo, 0.9, evidence, entry, stats); err != nil {
			return err
		}
	}

	for _, script := range data.ReferencedScripts() {
		if script.RelType != storage.EdgeCalls {
			continue
		}
		scriptID, err := b.createScriptNode(script.Path, stats)
		if err != nil {
			return err
		}
		evidence := edgeEvidence(entry.SourceArtifact, 0, "Referenced: "+script.Path)
		if err := b.addEdge(procNodeID, scriptID, storage.EdgeCalls, 0.7, evidence, entry, stats); err != nil {
			return err
		}
	}

	for _, res := range data.ReferencedResources() {
		if res.Path == data.FileSetup {
			continue
		}
		resID, err := b.createResourceNode(res.Path, res.Kind, stats)
		if err != nil {
			return err
		}
		evidence := edgeEvidence(entry.SourceArtifact, 0, "Referenced: "+res.Path)
		if err := b.addEdge(procNodeID, resID, storage.EdgeReads, 0.7, evidence, entry, stats); err != nil {
			return err
		}
	}

	return nil
}

func (b *Builder) addEdge(src, dst int64, relType string, confidence float64,
	evidence string, entry *ProcEntry, stats *BuildStats) error {
	err := b.db.UpsertEdge(&storage.Edge{
		Src:            src,
		Dst:            dst,
		RelType:        relType,
		Confidence:     confidence,
		EvidenceJSON:   evidence,
		SourceArtifact: entry.SourceArtifact,
	})
	if err != nil {
		return err
	}
	stats.EdgesCreated++
	return nil
}

func (b *Builder) createScriptNode(scriptPath string, stats *BuildStats) (int64, error) {
	mapped := snapshot.MapUnixToSnapshot(b.root, scriptPath)
	canonical := ""
	if mapped.Found {
		canonical = mapped.SnapshotPath
	}

	id, err := b.db.UpsertNode(&storage.Node{
		Type:          storage.NodeScript,
		Key:           "script:" + path.Base(scriptPath),
		DisplayName:   path.Base(scriptPath),
		CanonicalPath: canonical,
		OriginalPath:  scriptPath,
		Confidence:    mapped.Confidence,
	})
	if err != nil {
		return 0, err
	}
	stats.NodesCreated++
	return id, nil
}

func (b *Builder) createResourceNode(resourcePath, kind string, stats *BuildStats) (int64, error) {
	nodeType := kind
	switch {
	case strings.HasSuffix(resourcePath, ".control"):
		nodeType = storage.NodeControl
	case strings.HasSuffix(strings.ToLower(resourcePath), ".dfa"):
		nodeType = storage.NodeDocdef
	case strings.HasSuffix(resourcePath, ".ins"):
		nodeType = storage.NodeInsert
	case kind == "input":
		nodeType = storage.NodeInsert
	}

	mapped := snapshot.MapUnixToSnapshot(b.root, resourcePath)
	canonical := ""
	if mapped.Found {
		canonical = mapped.SnapshotPath
	}

	id, err := b.db.UpsertNode(&storage.Node{
		Type:          nodeType,
		Key:           nodeType + ":" + path.Base(resourcePath),
		DisplayName:   path.Base(resourcePath),
		CanonicalPath: canonical,
		OriginalPath:  resourcePath,
		Confidence:    mapped.Confidence,
	})
	if err != nil {
		return 0, err
	}
	stats.NodesCreated++
	return id, nil
}

func procDisplayName(entry *ProcEntry) string {
	if entry.Data.CID != "" && entry.Data.CID != "unknown" {
		return strings.ToUpper(entry.Data.CID) + " - " + entry.Data.AppType
	}
	return entry.Name
}

func edgeEvidence(file string, lineNo int, lineText string) string {
	ev := map[string]interface{}{
		"file":      file,
		"line_text": lineText,
	}
	if lineNo > 0 {
		ev["line_no"] = lineNo
	}
	data, _ := json.Marshal(ev)
	return string(data)
}

func stemOf(p string) string {
	base := path.Base(p)
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return base
}
