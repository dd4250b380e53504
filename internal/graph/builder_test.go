package graph

import (
	"io"
	"testing"

	"lsa/internal/logging"
	"lsa/internal/parsers"
	"lsa/internal/storage"
)

const builderProcsText = `Firm: Western Community CU
CID : WCCU
Application Type: Daily Letters
Job ID: dla

__Processing Shell Script: /home/master/wccu_dl_process.sh
__Log File: /d/wccu/dla/wccudla.log
__File Setup Before Processing: /home/insert/wccu_dl.ins

For archive setup refer to /home/procs/wccuarch.procs
Docdef at /home/docdef/wccudl014.dfa
`

const archiveProcsText = `Firm: Western Community CU
CID : WCCU
Application Type: Archival

__Processing Shell Script: /home/master/wccu_arch.sh
`

func builderEntries(t *testing.T) []*ProcEntry {
	t.Helper()
	return []*ProcEntry{
		{
			Name:           "wccudla",
			Data:           parsers.ParseProcs(builderProcsText),
			SourceArtifact: "procs/wccudla.procs",
			Changed:        true,
		},
		{
			Name:           "wccuarch",
			Data:           parsers.ParseProcs(archiveProcsText),
			SourceArtifact: "procs/wccuarch.procs",
			Changed:        true,
		},
	}
}

func newTestBuilder(t *testing.T, db *storage.DB) *Builder {
	t.Helper()
	logger := logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
		Output: io.Discard,
	})
	return NewBuilder(db, logger, t.TempDir())
}

func TestBuildCreatesGraph(t *testing.T) {
	db := newTestDB(t)
	b := newTestBuilder(t, db)

	stats, err := b.Build(builderEntries(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.ProcsProcessed != 2 {
		t.Errorf("ProcsProcessed = %d, want 2", stats.ProcsProcessed)
	}

	proc, err := db.NodeByKey("proc:wccudla")
	if err != nil {
		t.Fatal(err)
	}
	if proc == nil {
		t.Fatal("proc:wccudla not created")
	}
	if proc.DisplayName != "WCCU - Daily Letters" {
		t.Errorf("DisplayName = %q", proc.DisplayName)
	}
	if proc.Confidence != 1.0 {
		t.Errorf("proc confidence = %v, want 1.0", proc.Confidence)
	}

	script, err := db.NodeByKey("script:wccu_dl_process.sh")
	if err != nil {
		t.Fatal(err)
	}
	if script == nil {
		t.Fatal("script node not created")
	}

	edges, err := db.OutgoingEdges(proc.ID)
	if err != nil {
		t.Fatal(err)
	}
	var hasRuns, hasRefersTo bool
	for _, e := range edges {
		if e.RelType == storage.EdgeRuns && e.Dst == script.ID {
			hasRuns = true
		}
		if e.RelType == storage.EdgeRefersTo {
			hasRefersTo = true
		}
		if e.SourceArtifact != "procs/wccudla.procs" {
			t.Errorf("edge provenance = %q", e.SourceArtifact)
		}
	}
	if !hasRuns {
		t.Error("no RUNS edge to the shell script")
	}
	if !hasRefersTo {
		t.Error("no REFERS_TO edge for the procs cross-reference")
	}
}

func TestBuildCrossRefResolvesToDeclaredProc(t *testing.T) {
	db := newTestDB(t)
	b := newTestBuilder(t, db)

	if _, err := b.Build(builderEntries(t)); err != nil {
		t.Fatal(err)
	}

	// wccuarch is both a cross-ref target and a declared entry; the
	// declared node keeps full confidence
	ref, err := db.NodeByKey("proc:wccuarch")
	if err != nil {
		t.Fatal(err)
	}
	if ref == nil {
		t.Fatal("proc:wccuarch not created")
	}
	if ref.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0 (stub must not downgrade)", ref.Confidence)
	}
}

func TestBuildStubForDanglingCrossRef(t *testing.T) {
	db := newTestDB(t)
	b := newTestBuilder(t, db)

	entries := builderEntries(t)[:1]
	if _, err := b.Build(entries); err != nil {
		t.Fatal(err)
	}

	stub, err := db.NodeByKey("proc:wccuarch")
	if err != nil {
		t.Fatal(err)
	}
	if stub == nil {
		t.Fatal("dangling cross-ref should create a stub node")
	}
	if stub.Confidence != 0.8 {
		t.Errorf("stub confidence = %v, want 0.8", stub.Confidence)
	}
}

func TestBuildRebuildKeepsEdgeCountStable(t *testing.T) {
	db := newTestDB(t)
	b := newTestBuilder(t, db)

	if _, err := b.Build(builderEntries(t)); err != nil {
		t.Fatal(err)
	}
	_, edgesAfterFirst, err := db.GraphCounts()
	if err != nil {
		t.Fatal(err)
	}
	if edgesAfterFirst == 0 {
		t.Fatal("first build created no edges")
	}

	stats, err := b.Build(builderEntries(t))
	if err != nil {
		t.Fatal(err)
	}
	if stats.EdgesDropped == 0 {
		t.Error("rebuild of changed entries should drop derived edges first")
	}

	_, edgesAfterSecond, err := db.GraphCounts()
	if err != nil {
		t.Fatal(err)
	}
	if edgesAfterSecond != edgesAfterFirst {
		t.Errorf("edges after rebuild = %d, want %d", edgesAfterSecond, edgesAfterFirst)
	}
}

func TestBuildUnchangedEntrySkipsEdgeDerivation(t *testing.T) {
	db := newTestDB(t)
	b := newTestBuilder(t, db)

	entries := builderEntries(t)
	for _, e := range entries {
		e.Changed = false
	}
	stats, err := b.Build(entries)
	if err != nil {
		t.Fatal(err)
	}
	if stats.EdgesCreated != 0 {
		t.Errorf("EdgesCreated = %d, want 0 for unchanged entries", stats.EdgesCreated)
	}

	// Proc nodes are still declared so later runs can resolve references
	proc, err := db.NodeByKey("proc:wccudla")
	if err != nil {
		t.Fatal(err)
	}
	if proc == nil {
		t.Error("unchanged entries should still declare proc nodes")
	}
}
