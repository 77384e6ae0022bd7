// FILE: src/internal/feed/feed_test.go
package feed

import (
	"context"
	"testing"
	"time"

	"github.com/lixenwraith/log"
	"github.com/panjf2000/gnet/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
	"guardpost/src/internal/hub"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newTestFeed(t *testing.T, h *hub.Hub) *Feed {
	t.Helper()

	f := New(&config.FeedConfig{
		Enabled: true,
		Host:    "127.0.0.1",
		Port:    9998,
	}, h, newTestLogger())

	// Wire the broadcast loop directly; the gnet listener is not needed
	// to observe entry processing.
	f.sub = h.Subscribe()
	require.NotNil(t, f.sub)
	f.server = &feedServer{
		feed:    f,
		clients: make(map[gnet.Conn]struct{}),
	}
	return f
}

func TestBroadcastLoop_ProcessesHubEntries(t *testing.T) {
	h := hub.New(10, 16, newTestLogger())
	defer h.Close()

	f := newTestFeed(t, h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.broadcastLoop(ctx)
	}()

	h.Publish(core.LogEntry{Time: "10:00:01", Level: core.LevelInfo, Source: "nginx", Message: "200 request"})
	h.Publish(core.LogEntry{Time: "10:00:02", Level: core.LevelError, Source: "tor", Message: "connection failed"})
	h.Publish(core.LogEntry{Time: "10:00:03", Level: core.LevelInfo, Source: "haproxy", Message: "blocked denied 403"})

	require.Eventually(t, func() bool {
		return f.totalProcessed.Load() == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	f.wg.Wait()
}

func TestBroadcastLoop_StopsWhenHubCloses(t *testing.T) {
	h := hub.New(10, 16, newTestLogger())
	f := newTestFeed(t, h)

	done := make(chan struct{})
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.broadcastLoop(context.Background())
		close(done)
	}()

	h.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast loop did not stop after hub close")
	}
}

func TestGetStats(t *testing.T) {
	h := hub.New(10, 16, newTestLogger())
	defer h.Close()

	f := newTestFeed(t, h)
	st := f.GetStats()

	assert.Equal(t, 9998, st["port"])
	assert.Equal(t, int64(0), st["active_connections"])
	assert.Equal(t, uint64(0), st["total_processed"])
}
