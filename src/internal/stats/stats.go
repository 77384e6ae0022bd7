// FILE: src/internal/stats/stats.go
package stats

import (
	"strings"
	"sync/atomic"
)

// Collector derives monotonically increasing counters from classified log
// entries. Counters live for the process lifetime and are never reset.
type Collector struct {
	requests atomic.Uint64
	blocked  atomic.Uint64
	captchas atomic.Uint64
}

// Snapshot is a read-only copy of the counters for status queries.
type Snapshot struct {
	Requests uint64 `json:"requests"`
	Blocked  uint64 `json:"blocked"`
	Captchas uint64 `json:"captchas"`
}

func NewCollector() *Collector {
	return &Collector{}
}

// Observe updates the counters from one entry's message. A single entry may
// increment multiple counters. Non-blocking.
func (c *Collector) Observe(message string) {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "request") {
		c.requests.Add(1)
	}
	if strings.Contains(lower, "blocked") ||
		strings.Contains(lower, "denied") ||
		strings.Contains(lower, "reject") {
		c.blocked.Add(1)
	}
	if strings.Contains(lower, "captcha") {
		c.captchas.Add(1)
	}
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Requests: c.requests.Load(),
		Blocked:  c.blocked.Load(),
		Captchas: c.captchas.Load(),
	}
}
