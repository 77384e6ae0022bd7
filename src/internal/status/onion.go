// FILE: src/internal/status/onion.go
package status

import (
	"os"
	"strings"
)

// OnionAddress reads a hidden service hostname file. A missing or
// unreadable file yields an empty string; the mirror simply has no
// published address yet.
func OnionAddress(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
