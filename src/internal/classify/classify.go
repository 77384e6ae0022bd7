// FILE: src/internal/classify/classify.go
package classify

import (
	"regexp"
	"strings"
	"time"

	"guardpost/src/internal/core"
)

// Matches the first wall-clock timestamp embedded in a log line.
var timestampPattern = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)

// Keyword groups checked in priority order; first match wins. These lists
// are a compatibility contract with the dashboard frontend and must not be
// reordered.
var levelKeywords = []struct {
	level    string
	keywords []string
}{
	{core.LevelError, []string{"error", "failed", "fatal"}},
	{core.LevelWarn, []string{"warn", "warning"}},
	{core.LevelDebug, []string{"debug", "trace"}},
}

// Normalize converts a raw line from the named source into a classified
// entry. Lines without a recognizable timestamp get the current wall clock;
// lines without a level keyword default to info. Never fails.
func Normalize(raw, source string) core.LogEntry {
	return normalizeAt(raw, source, time.Now())
}

func normalizeAt(raw, source string, now time.Time) core.LogEntry {
	timestamp := now.Format("15:04:05")
	if match := timestampPattern.FindString(raw); match != "" {
		timestamp = match
	}

	return core.LogEntry{
		Time:    timestamp,
		Level:   Level(raw),
		Source:  source,
		Message: strings.TrimSpace(raw),
	}
}

// Level classifies a raw line by case-insensitive keyword search,
// defaulting to info.
func Level(raw string) string {
	lower := strings.ToLower(raw)
	for _, group := range levelKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.level
			}
		}
	}
	return core.LevelInfo
}
