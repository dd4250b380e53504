package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	for _, want := range []string{"procs", "master", "control", "insert", "docdef"} {
		found := false
		for _, dir := range cfg.ScanDirs {
			if dir == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("ScanDirs missing %q", want)
		}
	}

	if cfg.SimilarityThreshold != 0.3 {
		t.Errorf("SimilarityThreshold = %v, want 0.3", cfg.SimilarityThreshold)
	}
	if cfg.MaxHypotheses != 3 {
		t.Errorf("MaxHypotheses = %d, want 3", cfg.MaxHypotheses)
	}
	if cfg.MaxSimilarCases != 5 {
		t.Errorf("MaxSimilarCases = %d, want 5", cfg.MaxSimilarCases)
	}
	if cfg.MaxTextSize != 1024*1024 {
		t.Errorf("MaxTextSize = %d, want 1 MB", cfg.MaxTextSize)
	}
	if cfg.Language != "en" {
		t.Errorf("Language = %q, want en", cfg.Language)
	}
}

func TestLoadMissingConfigUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SimilarityThreshold != Default().SimilarityThreshold {
		t.Error("missing config file should yield defaults")
	}
}

func TestLoadOverlay(t *testing.T) {
	root := t.TempDir()
	writeSnapshotConfig(t, root, "similarityThreshold: 0.5\nmaxHypotheses: 7\nlanguage: ru\n")

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold = %v, want 0.5", cfg.SimilarityThreshold)
	}
	if cfg.MaxHypotheses != 7 {
		t.Errorf("MaxHypotheses = %d, want 7", cfg.MaxHypotheses)
	}
	if cfg.Language != "ru" {
		t.Errorf("Language = %q, want ru", cfg.Language)
	}
	if len(cfg.ScanDirs) != len(Default().ScanDirs) {
		t.Error("ScanDirs should keep defaults when not overridden")
	}
}

func TestLoadInvalidThreshold(t *testing.T) {
	root := t.TempDir()
	writeSnapshotConfig(t, root, "similarityThreshold: 1.5\n")

	if _, err := Load(root); err == nil {
		t.Error("out-of-range similarityThreshold should fail validation")
	}
}

func TestLoadInvalidLanguage(t *testing.T) {
	root := t.TempDir()
	writeSnapshotConfig(t, root, "language: fr\n")

	if _, err := Load(root); err == nil {
		t.Error("unsupported language should fail validation")
	}
}

func TestDBPath(t *testing.T) {
	got := DBPath("/snap")
	want := filepath.Join("/snap", StateDir, DBName)
	if got != want {
		t.Errorf("DBPath = %q, want %q", got, want)
	}
}

func TestIsTextExtension(t *testing.T) {
	cfg := Default()

	if !cfg.IsTextExtension(".procs") {
		t.Error(".procs should be a text extension")
	}
	if !cfg.IsTextExtension(".DFA") {
		t.Error("extension check should be case-insensitive")
	}
	if cfg.IsTextExtension(".afp") {
		t.Error(".afp should not be a text extension")
	}
}

func TestIsMetadataOnlyExtension(t *testing.T) {
	cfg := Default()

	if !cfg.IsMetadataOnlyExtension(".pdf") {
		t.Error(".pdf should be metadata-only")
	}
	if !cfg.IsMetadataOnlyExtension(".log") {
		t.Error(".log should be metadata-only")
	}
	if cfg.IsMetadataOnlyExtension(".sh") {
		t.Error(".sh should not be metadata-only")
	}
}

func writeSnapshotConfig(t *testing.T, root, yaml string) {
	t.Helper()
	stateDir := filepath.Join(root, StateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
}
