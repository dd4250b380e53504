// Package export writes a zstd-compressed JSON dump of the analysis state,
// suitable for archiving or moving between machines.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"lsa/internal/storage"
)

// Dump is the full serialized state of one analysis database
type Dump struct {
	FormatVersion int                    `json:"format_version"`
	ExportedAt    string                 `json:"exported_at"`
	SnapshotRoot  string                 `json:"snapshot_root,omitempty"`
	Nodes         []*storage.Node        `json:"nodes,omitempty"`
	Edges         []*storage.Edge        `json:"edges,omitempty"`
	Incidents     []*storage.Incident    `json:"incidents,omitempty"`
	CaseCards     []*storage.CaseCard    `json:"case_cards,omitempty"`
	MessageCodes  []*storage.MessageCode `json:"message_codes,omitempty"`
}

// Stats summarizes what an export wrote
type Stats struct {
	Nodes        int
	Edges        int
	Incidents    int
	CaseCards    int
	MessageCodes int
	Bytes        int64
}

const formatVersion = 1

// WriteDump collects the graph, incidents, case cards, and code definitions
// into a single zstd-compressed JSON file
func WriteDump(db *storage.DB, snapshotRoot, outPath string) (*Stats, error) {
	dump := &Dump{
		FormatVersion: formatVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		SnapshotRoot:  snapshotRoot,
	}

	var err error
	if dump.Nodes, err = db.AllNodes(); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	if dump.Edges, err = db.AllEdges(); err != nil {
		return nil, fmt.Errorf("failed to read edges: %w", err)
	}
	if dump.Incidents, err = db.ListIncidents(0); err != nil {
		return nil, fmt.Errorf("failed to read incidents: %w", err)
	}
	if dump.CaseCards, err = db.AllCaseCards(); err != nil {
		return nil, fmt.Errorf("failed to read case cards: %w", err)
	}
	if dump.MessageCodes, err = db.AllMessageCodes(); err != nil {
		return nil, fmt.Errorf("failed to read message codes: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize compressor: %w", err)
	}

	enc := json.NewEncoder(zw)
	if err := enc.Encode(dump); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to encode dump: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush compressor: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return nil, err
	}

	return &Stats{
		Nodes:        len(dump.Nodes),
		Edges:        len(dump.Edges),
		Incidents:    len(dump.Incidents),
		CaseCards:    len(dump.CaseCards),
		MessageCodes: len(dump.MessageCodes),
		Bytes:        info.Size(),
	}, nil
}

// ReadDump loads a zstd-compressed dump back into memory
func ReadDump(path string) (*Dump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize decompressor: %w", err)
	}
	defer zr.Close()

	var dump Dump
	if err := json.NewDecoder(zr).Decode(&dump); err != nil {
		return nil, fmt.Errorf("failed to decode dump: %w", err)
	}
	if dump.FormatVersion != formatVersion {
		return nil, fmt.Errorf("unsupported dump format version %d", dump.FormatVersion)
	}
	return &dump, nil
}
