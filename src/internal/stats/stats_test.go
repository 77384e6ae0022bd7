// FILE: src/internal/stats/stats_test.go
package stats

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	testCases := []struct {
		name     string
		message  string
		expected Snapshot
	}{
		{"Request", "incoming request from client", Snapshot{Requests: 1}},
		{"Blocked", "ip blocked by policy", Snapshot{Blocked: 1}},
		{"Denied", "access DENIED", Snapshot{Blocked: 1}},
		{"Reject", "Rejected malformed header", Snapshot{Blocked: 1}},
		{"Captcha", "captcha challenge issued", Snapshot{Captchas: 1}},
		{"MultipleCounters", "request blocked, serving captcha", Snapshot{Requests: 1, Blocked: 1, Captchas: 1}},
		{"CaseInsensitive", "REQUEST denied", Snapshot{Requests: 1, Blocked: 1}},
		{"NoKeywords", "routine checkpoint", Snapshot{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCollector()
			c.Observe(tc.message)
			assert.Equal(t, tc.expected, c.Snapshot())
		})
	}
}

func TestObserve_ClassificationScenario(t *testing.T) {
	c := NewCollector()
	c.Observe("FATAL: request blocked")

	snap := c.Snapshot()
	assert.Equal(t, uint64(1), snap.Requests)
	assert.Equal(t, uint64(1), snap.Blocked)
	assert.Equal(t, uint64(0), snap.Captchas)
}

func TestSnapshot_Monotonic(t *testing.T) {
	c := NewCollector()
	prev := c.Snapshot()

	messages := []string{
		"request in",
		"nothing interesting",
		"request rejected",
		"captcha solved",
		"denied again",
	}

	for _, msg := range messages {
		c.Observe(msg)
		cur := c.Snapshot()
		assert.GreaterOrEqual(t, cur.Requests, prev.Requests)
		assert.GreaterOrEqual(t, cur.Blocked, prev.Blocked)
		assert.GreaterOrEqual(t, cur.Captchas, prev.Captchas)
		prev = cur
	}

	assert.Equal(t, Snapshot{Requests: 2, Blocked: 2, Captchas: 1}, prev)
}

func TestObserve_Concurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Observe(fmt.Sprintf("request %d-%d blocked", n, j))
			}
		}(i)
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, uint64(800), snap.Requests)
	assert.Equal(t, uint64(800), snap.Blocked)
}
