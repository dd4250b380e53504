// Package snapshot provides filesystem access to a legacy environment
// snapshot: walking its directories, hashing files, and mapping original
// unix paths onto snapshot-relative ones.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"unicode/utf8"
)

// HashFile returns the hex sha256 of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashText returns the hex sha256 of a string
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// TryReadText reads a file as text when it fits the size cap and is valid
// UTF-8 without NUL bytes. Returns ok=false for binary or oversized files.
func TryReadText(path string, maxSize int64) (string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", false, err
	}
	if info.Size() > maxSize {
		return "", false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(data) {
		return "", false, nil
	}
	for _, b := range data {
		if b == 0 {
			return "", false, nil
		}
	}
	return string(data), true, nil
}
