// FILE: src/internal/core/entry.go
package core

// LogEntry is a single classified log record flowing through the pipeline.
// Immutable once created; the JSON shape is the dashboard wire contract.
type LogEntry struct {
	Time    string `json:"time"` // wall clock, HH:MM:SS
	Level   string `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

// RawLine is an unclassified line as read from a source, tagged with the
// source name it came from.
type RawLine struct {
	Source string
	Text   string
}

// Log levels produced by classification.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelDebug = "debug"
)
