package parsers

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// HistoryCard is one troubleshooting case mined from a history file chunk
type HistoryCard struct {
	SourcePath     string
	ChunkID        int
	ContentHash    string
	Title          string
	Signals        []string
	RootCause      string
	FixSummary     string
	VerifyCommands []string
	RelatedFiles   []string
	Tags           []string
}

// Chunk is one slice of a history file, identified by its starting line
type Chunk struct {
	ID   int
	Text string
}

const (
	maxCardCommands = 10
	maxCardPaths    = 20
)

// ChunkHash returns the first 16 hex chars of the chunk's sha256, used
// to deduplicate re-imports
func ChunkHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:16]
}

// SplitHistory cuts a history file into chunks at session tags, user and
// assistant turn markers, top-level markdown headers, and runs of three
// or more blank lines. Boundaries inside fenced code blocks are ignored.
func SplitHistory(text string) []Chunk {
	var chunks []Chunk
	var current []string
	currentStart := 0
	blankCount := 0
	inCodeBlock := false

	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCodeBlock = !inCodeBlock
		}

		isBoundary := false
		if !inCodeBlock {
			switch {
			case historySessionStartRe.MatchString(line) || historySessionEndRe.MatchString(line):
				isBoundary = true
			case historyUserTurnRe.MatchString(line) || historyAssistTurnRe.MatchString(line):
				isBoundary = true
			case strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "## "):
				isBoundary = true
			case strings.TrimSpace(line) == "":
				blankCount++
				if blankCount >= 3 {
					isBoundary = true
				}
			default:
				blankCount = 0
			}
		}

		if isBoundary && len(current) > 0 {
			chunkText := strings.Join(current, "\n")
			if strings.TrimSpace(chunkText) != "" {
				chunks = append(chunks, Chunk{ID: currentStart, Text: chunkText})
			}
			current = current[:0]
			currentStart = i
			blankCount = 0
		}

		current = append(current, line)
	}

	if len(current) > 0 {
		chunkText := strings.Join(current, "\n")
		if strings.TrimSpace(chunkText) != "" {
			chunks = append(chunks, Chunk{ID: currentStart, Text: chunkText})
		}
	}

	return chunks
}

var rootCauseRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:root cause|причина|problem|проблема)[:\s]+(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)(?:because|потому что)[:\s]+(.+?)(?:\n|$)`),
}

var fixSummaryRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:fix|решение|solution)[:\s]+(.+?)(?:\n|$)`),
	regexp.MustCompile(`(?i)(?:changed|изменил|added|добавил)[:\s]+(.+?)(?:\n|$)`),
}

// ParseChunk turns one history chunk into a card. Chunks carrying no error
// signatures, shell commands or file paths yield nil.
func ParseChunk(chunkText string, chunkID int, sourcePath string, redact bool) *HistoryCard {
	text := chunkText
	if redact {
		text = RedactPII(text)
	}

	signals := extractErrorSignatures(text)
	commands := extractShellCommands(text)
	files := extractFilePaths(text)

	if len(signals) == 0 && len(commands) == 0 && len(files) == 0 {
		return nil
	}

	card := &HistoryCard{
		SourcePath:     sourcePath,
		ChunkID:        chunkID,
		ContentHash:    ChunkHash(text),
		Title:          extractTitle(text),
		Signals:        signals,
		VerifyCommands: commands,
		RelatedFiles:   files,
	}

	for _, re := range rootCauseRes {
		if m := re.FindStringSubmatch(text); m != nil {
			card.RootCause = truncate(strings.TrimSpace(m[1]), 200)
			break
		}
	}
	for _, re := range fixSummaryRes {
		if m := re.FindStringSubmatch(text); m != nil {
			card.FixSummary = truncate(strings.TrimSpace(m[1]), 200)
			break
		}
	}

	card.Tags = deriveTags(signals, files)
	return card
}

// ParseHistory mines every card out of one history file's text
func ParseHistory(text, sourcePath string, redact bool) []*HistoryCard {
	var cards []*HistoryCard
	for _, chunk := range SplitHistory(text) {
		if card := ParseChunk(chunk.Text, chunk.ID, sourcePath, redact); card != nil {
			cards = append(cards, card)
		}
	}
	return cards
}

func extractErrorSignatures(text string) []string {
	var signatures []string
	seen := make(map[string]bool)
	for _, re := range errorSignatureRes {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				signatures = append(signatures, m)
			}
		}
	}
	return signatures
}

func extractShellCommands(text string) []string {
	var commands []string
	seen := make(map[string]bool)
	for _, m := range shellCommandRe.FindAllString(text, -1) {
		cmd := strings.TrimSpace(m)
		if len(cmd) > 200 {
			cmd = cmd[:200] + "..."
		}
		if !seen[cmd] {
			seen[cmd] = true
			commands = append(commands, cmd)
		}
		if len(commands) >= maxCardCommands {
			break
		}
	}
	return commands
}

func extractFilePaths(text string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, m := range filePathRe.FindAllStringSubmatch(text, -1) {
		path := strings.TrimRight(m[1], ".,;:)]}")
		if len(path) > 5 && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
		if len(paths) >= maxCardPaths {
			break
		}
	}
	return paths
}

func extractTitle(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for _, line := range lines[:limit] {
		if strings.HasPrefix(line, "#") {
			title := strings.TrimSpace(strings.TrimLeft(line, "#"))
			if title != "" {
				return truncate(title, 100)
			}
		}
	}

	limit = len(lines)
	if limit > 3 {
		limit = 3
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < 100 &&
			!strings.HasPrefix(line, "```") &&
			!strings.HasPrefix(line, "---") &&
			!strings.HasPrefix(line, "_**") {
			return line
		}
	}
	return ""
}

func deriveTags(signals, files []string) []string {
	var tags []string
	if anyContains(signals, "ORA-") {
		tags = append(tags, "oracle")
	}
	if anyContains(files, ".pl") {
		tags = append(tags, "perl")
	}
	if anyContains(files, ".sh") {
		tags = append(tags, "shell")
	}
	if anyContains(files, ".dfa") {
		tags = append(tags, "docdef")
	}
	for _, s := range signals {
		if strings.Contains(strings.ToLower(s), "csv") {
			tags = append(tags, "csv")
			break
		}
	}
	return tags
}

func anyContains(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
