// Package logging provides the structured logger shared by all lsa
// commands. Lines go to stderr by default so stdout stays reserved for
// context packs and plan output.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel is the severity of a log line
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// priority orders levels for filtering; unknown levels rank as info
func (lv LogLevel) priority() int {
	switch lv {
	case DebugLevel:
		return 0
	case WarnLevel:
		return 2
	case ErrorLevel:
		return 3
	default:
		return 1
	}
}

// Format selects how log lines are rendered
type Format string

const (
	// JSONFormat renders one JSON object per line
	JSONFormat Format = "json"
	// HumanFormat renders "timestamp [level] message | k=v, k=v" lines
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // defaults to stderr
}

// Logger writes leveled log lines with optional structured fields
type Logger struct {
	format Format
	min    int
	writer io.Writer
}

// NewLogger builds a logger from config
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}
	return &Logger{
		format: config.Format,
		min:    config.Level.priority(),
		writer: writer,
	}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return level.priority() >= l.min
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	ts := time.Now().UTC().Format(time.RFC3339)
	if l.format == JSONFormat {
		l.writeJSON(ts, level, message, fields)
		return
	}
	l.writeHuman(ts, level, message, fields)
}

func (l *Logger) writeJSON(ts string, level LogLevel, message string, fields map[string]interface{}) {
	line := struct {
		Timestamp string                 `json:"timestamp"`
		Level     string                 `json:"level"`
		Message   string                 `json:"message"`
		Fields    map[string]interface{} `json:"fields,omitempty"`
	}{ts, string(level), message, fields}

	data, err := json.Marshal(line)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(l.writer, string(data))
}

// writeHuman renders fields in sorted key order so lines are stable
func (l *Logger) writeHuman(ts string, level LogLevel, message string, fields map[string]interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts, level, message)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" |")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	_, _ = fmt.Fprintln(l.writer, b.String())
}

// Debug logs at debug level
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DebugLevel, message, fields)
}

// Info logs at info level
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(InfoLevel, message, fields)
}

// Warn logs at warn level
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WarnLevel, message, fields)
}

// Error logs at error level
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ErrorLevel, message, fields)
}
