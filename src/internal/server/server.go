// FILE: src/internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"

	"guardpost/src/internal/config"
	"guardpost/src/internal/service"
	"guardpost/src/internal/stats"
	"guardpost/src/internal/status"
	"guardpost/src/internal/version"
)

// API paths consumed by the dashboard frontend.
const (
	statusPath  = "/api/status"
	streamPath  = "/api/logs/stream"
	historyPath = "/api/logs/history"
)

// StatusChecker reports per-service states for /api/status.
type StatusChecker interface {
	Check(ctx context.Context) map[string]string
}

// Server is the dashboard HTTP surface: status JSON, the SSE log stream,
// bounded history, and the static frontend assets.
type Server struct {
	config  *config.Config
	dash    *service.Dashboard
	checker StatusChecker
	logger  *log.Logger

	server    *fasthttp.Server
	fsHandler fasthttp.RequestHandler
	limiter   *RateLimiter

	done          chan struct{}
	wg            sync.WaitGroup
	activeClients atomic.Int64
	startTime     time.Time
}

// statusResponse is the /api/status wire contract.
type statusResponse struct {
	Services     map[string]string `json:"services"`
	MirrorOnion  *string           `json:"mirror_onion"`
	BackendOnion string            `json:"backend_onion"`
	Stats        stats.Snapshot    `json:"stats"`
	StartTime    int64             `json:"start_time"` // epoch milliseconds
}

// New creates the dashboard HTTP server.
func New(cfg *config.Config, dash *service.Dashboard, checker StatusChecker, logger *log.Logger) *Server {
	s := &Server{
		config:    cfg,
		dash:      dash,
		checker:   checker,
		logger:    logger,
		done:      make(chan struct{}),
		startTime: time.Now(),
	}

	fs := &fasthttp.FS{
		Root:       cfg.Server.DashboardDir,
		IndexNames: []string{"index.html"},
	}
	s.fsHandler = fs.NewRequestHandler()

	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit, logger)
	}

	return s
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &fasthttp.Server{
		Name:             fmt.Sprintf("Guardpost/%s", version.Short()),
		Handler:          s.requestHandler,
		DisableKeepalive: false,
		Logger:           compat.NewFastHTTPAdapter(s.logger),
	}

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("msg", "Dashboard HTTP server started",
			"component", "server",
			"host", s.config.Server.Host,
			"port", s.config.Server.Port)

		if err := s.server.ListenAndServe(addr); err != nil {
			errChan <- err
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.ShutdownWithContext(shutdownCtx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts down the server and all streaming sessions.
func (s *Server) Stop() {
	s.logger.Info("msg", "Stopping dashboard server", "component", "server")

	close(s.done)

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.ShutdownWithContext(ctx)
	}

	s.wg.Wait()

	if s.limiter != nil {
		s.limiter.Stop()
	}

	s.logger.Info("msg", "Dashboard server stopped", "component", "server")
}

func (s *Server) requestHandler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	if s.limiter != nil && strings.HasPrefix(path, "/api/") && path != streamPath {
		if !s.limiter.Allow(ctx.RemoteIP().String()) {
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			s.writeJSON(ctx, map[string]string{"error": "Too many requests"})
			return
		}
	}

	switch path {
	case statusPath:
		s.handleStatus(ctx)
	case streamPath:
		s.handleStream(ctx)
	case historyPath:
		s.handleHistory(ctx)
	default:
		// Static dashboard assets; "/" resolves to index.html.
		s.fsHandler(ctx)
	}
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	services := s.checker.Check(context.Background())

	var mirror *string
	if onion := status.OnionAddress(s.config.Tor.HostnameFile); onion != "" {
		mirror = &onion
	}

	s.writeJSON(ctx, statusResponse{
		Services:     services,
		MirrorOnion:  mirror,
		BackendOnion: s.config.Tor.BackendOnion,
		Stats:        s.dash.Stats.Snapshot(),
		StartTime:    s.dash.StartTime().UnixMilli(),
	})
}

func (s *Server) handleHistory(ctx *fasthttp.RequestCtx) {
	s.writeJSON(ctx, s.dash.Hub.Snapshot(s.config.Server.HistoryLimit))
}

// writeJSON sends a JSON response with permissive CORS for browser
// consumption.
func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, v any) {
	ctx.SetContentType("application/json")
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")

	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		s.logger.Error("msg", "Failed to encode JSON response",
			"component", "server",
			"path", string(ctx.Path()),
			"error", err)
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
}

// ActiveClients returns the number of connected stream viewers.
func (s *Server) ActiveClients() int64 {
	return s.activeClients.Load()
}
