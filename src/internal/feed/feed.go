// FILE: src/internal/feed/feed.go
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"

	"guardpost/src/internal/config"
	"guardpost/src/internal/hub"
)

// Feed streams classified log entries to raw TCP clients as
// newline-delimited JSON, one object per line. It is a convenience surface
// for ops tooling (`nc host 9998`); clients send nothing, inbound bytes are
// discarded.
type Feed struct {
	config *config.FeedConfig
	hub    *hub.Hub
	logger *log.Logger

	server   *feedServer
	engine   *gnet.Engine
	engineMu sync.Mutex

	sub       *hub.Subscription
	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	activeConns    atomic.Int64
	totalProcessed atomic.Uint64
}

// New creates the TCP feed.
func New(cfg *config.FeedConfig, h *hub.Hub, logger *log.Logger) *Feed {
	return &Feed{
		config:    cfg,
		hub:       h,
		logger:    logger,
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
}

// Start launches the gnet server and the broadcast loop.
func (f *Feed) Start(ctx context.Context) error {
	f.sub = f.hub.Subscribe()
	if f.sub == nil {
		return fmt.Errorf("hub is closed")
	}

	f.server = &feedServer{
		feed:    f,
		clients: make(map[gnet.Conn]struct{}),
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.broadcastLoop(ctx)
	}()

	addr := fmt.Sprintf("tcp://%s:%d", f.config.Host, f.config.Port)
	gnetLogger := compat.NewGnetAdapter(f.logger)

	errChan := make(chan error, 1)
	go func() {
		f.logger.Info("msg", "TCP feed started",
			"component", "feed",
			"host", f.config.Host,
			"port", f.config.Port)

		err := gnet.Run(f.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithReusePort(true),
		)
		if err != nil {
			f.logger.Error("msg", "TCP feed server failed",
				"component", "feed",
				"port", f.config.Port,
				"error", err)
			errChan <- err
		}
	}()

	go func() {
		<-ctx.Done()
		f.stopEngine()
	}()

	select {
	case err := <-errChan:
		close(f.done)
		f.wg.Wait()
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts down the feed and releases its hub subscription.
func (f *Feed) Stop() {
	f.logger.Info("msg", "Stopping TCP feed", "component", "feed")

	close(f.done)
	f.stopEngine()
	f.wg.Wait()
	f.hub.Unsubscribe(f.sub)

	f.logger.Info("msg", "TCP feed stopped", "component", "feed")
}

func (f *Feed) stopEngine() {
	f.engineMu.Lock()
	engine := f.engine
	f.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		(*engine).Stop(ctx)
	}
}

// broadcastLoop relays hub entries to every connected client, with an idle
// heartbeat comment line.
func (f *Feed) broadcastLoop(ctx context.Context) {
	var tickerChan <-chan time.Time
	if f.config.HeartbeatIntervalMS > 0 {
		ticker := time.NewTicker(time.Duration(f.config.HeartbeatIntervalMS) * time.Millisecond)
		tickerChan = ticker.C
		defer ticker.Stop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return

		case entry, ok := <-f.sub.Entries():
			if !ok {
				return
			}
			f.totalProcessed.Add(1)

			data, err := json.Marshal(entry)
			if err != nil {
				f.logger.Error("msg", "Failed to marshal entry",
					"component", "feed",
					"entry_source", entry.Source,
					"error", err)
				continue
			}
			f.server.broadcast(append(data, '\n'))

		case <-tickerChan:
			f.server.broadcast([]byte(fmt.Sprintf("# heartbeat %s clients=%d\n",
				time.Now().UTC().Format(time.RFC3339), f.activeConns.Load())))
		}
	}
}

// GetStats returns feed statistics.
func (f *Feed) GetStats() map[string]any {
	return map[string]any{
		"port":               f.config.Port,
		"active_connections": f.activeConns.Load(),
		"total_processed":    f.totalProcessed.Load(),
		"uptime_seconds":     int(time.Since(f.startTime).Seconds()),
	}
}

// feedServer implements the gnet.EventHandler interface.
type feedServer struct {
	gnet.BuiltinEventEngine
	feed    *Feed
	clients map[gnet.Conn]struct{}
	mu      sync.RWMutex
}

func (s *feedServer) broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		if err := c.AsyncWrite(data, nil); err != nil {
			s.feed.logger.Debug("msg", "Feed write failed",
				"component", "feed",
				"remote_addr", c.RemoteAddr().String(),
				"error", err)
		}
	}
}

func (s *feedServer) OnBoot(eng gnet.Engine) gnet.Action {
	s.feed.engineMu.Lock()
	s.feed.engine = &eng
	s.feed.engineMu.Unlock()

	s.feed.logger.Debug("msg", "TCP feed server booted",
		"component", "feed",
		"port", s.feed.config.Port)
	return gnet.None
}

func (s *feedServer) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	count := s.feed.activeConns.Add(1)
	s.feed.logger.Debug("msg", "Feed client connected",
		"component", "feed",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", count)
	return nil, gnet.None
}

func (s *feedServer) OnClose(c gnet.Conn, err error) gnet.Action {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	count := s.feed.activeConns.Add(-1)
	s.feed.logger.Debug("msg", "Feed client disconnected",
		"component", "feed",
		"remote_addr", c.RemoteAddr().String(),
		"active_connections", count,
		"error", err)
	return gnet.None
}

func (s *feedServer) OnTraffic(c gnet.Conn) gnet.Action {
	// The feed is write-only; discard anything the client sends.
	c.Discard(-1) //nolint:errcheck
	return gnet.None
}
