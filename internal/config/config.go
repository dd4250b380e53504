// Package config loads lsa configuration: compiled defaults overlaid with an
// optional per-snapshot .lsa/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	lsaerrors "lsa/internal/errors"
)

const (
	// StateDir is the per-snapshot directory holding derived state
	StateDir = ".lsa"
	// DBName is the SQLite database file name inside StateDir
	DBName = "lsa.sqlite"
	// configName is the optional per-snapshot config file inside StateDir
	configName = "config.yaml"
)

// Config represents the complete lsa configuration
type Config struct {
	// ScanDirs are snapshot subdirectories indexed by scan (logs excluded by default)
	ScanDirs []string `mapstructure:"scanDirs"`
	// TextExtensions are file extensions whose content is stored and FTS-indexed
	TextExtensions []string `mapstructure:"textExtensions"`
	// MetadataOnlyExtensions are never read as text, only recorded
	MetadataOnlyExtensions []string `mapstructure:"metadataOnlyExtensions"`
	// MaxTextSize caps stored file content, bytes
	MaxTextSize int64 `mapstructure:"maxTextSize"`
	// SimilarityThreshold is the strict lower bound for case similarity retention
	SimilarityThreshold float64 `mapstructure:"similarityThreshold"`
	// MaxSimilarCases bounds the similar-case result set
	MaxSimilarCases int `mapstructure:"maxSimilarCases"`
	// MaxHypotheses bounds the ranked hypothesis list
	MaxHypotheses int `mapstructure:"maxHypotheses"`
	// MaxContextPackLines truncates context pack output
	MaxContextPackLines int `mapstructure:"maxContextPackLines"`
	// MaxEvidenceSnippet truncates evidence lines, chars
	MaxEvidenceSnippet int `mapstructure:"maxEvidenceSnippet"`
	// RulesPath optionally overrides the embedded external-signal rules
	RulesPath string `mapstructure:"rulesPath"`
	// Language selects human-readable output language (en, ru)
	Language string `mapstructure:"language"`
}

// Default returns the compiled-in configuration
func Default() *Config {
	return &Config{
		ScanDirs:               []string{"procs", "master", "control", "insert", "docdef"},
		TextExtensions:         []string{".procs", ".sh", ".pl", ".py", ".control", ".ins", ".txt", ".md", ".cfg", ".conf", ".ini", ".sql", ".dfa"},
		MetadataOnlyExtensions: []string{".afp", ".pdf", ".zip", ".pgp", ".log"},
		MaxTextSize:            1024 * 1024,
		SimilarityThreshold:    0.3,
		MaxSimilarCases:        5,
		MaxHypotheses:          3,
		MaxContextPackLines:    200,
		MaxEvidenceSnippet:     120,
		Language:               "en",
	}
}

// Load reads the snapshot config file if present and overlays it on defaults
func Load(snapshotRoot string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(snapshotRoot, StateDir, configName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, lsaerrors.Wrap(lsaerrors.ConfigInvalid,
			fmt.Sprintf("failed to read config %s", path), err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, lsaerrors.Wrap(lsaerrors.ConfigInvalid,
			fmt.Sprintf("failed to parse config %s", path), err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return lsaerrors.New(lsaerrors.ConfigInvalid,
			fmt.Sprintf("similarityThreshold out of range [0,1]: %v", c.SimilarityThreshold))
	}
	if c.MaxTextSize <= 0 {
		return lsaerrors.New(lsaerrors.ConfigInvalid, "maxTextSize must be positive")
	}
	switch c.Language {
	case "en", "ru":
	default:
		return lsaerrors.New(lsaerrors.ConfigInvalid,
			fmt.Sprintf("unsupported language %q (want en or ru)", c.Language))
	}
	return nil
}

// DBPath returns the SQLite database path for a snapshot
func DBPath(snapshotRoot string) string {
	return filepath.Join(snapshotRoot, StateDir, DBName)
}

// IsTextExtension reports whether ext (with leading dot) is configured as text
func (c *Config) IsTextExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.TextExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// IsMetadataOnlyExtension reports whether ext is recorded without content
func (c *Config) IsMetadataOnlyExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.MetadataOnlyExtensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
