// FILE: src/cmd/guardpost/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lixenwraith/log"

	"guardpost/src/internal/config"
	"guardpost/src/internal/feed"
	"guardpost/src/internal/server"
	"guardpost/src/internal/service"
	"guardpost/src/internal/status"
	"guardpost/src/internal/version"
)

var logger *log.Logger

func main() {
	if err := parseFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if *configFile != "" {
		os.Setenv("GUARDPOST_CONFIG_FILE", *configFile)
	}

	cfg, err := config.LoadWithCLI(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := initializeLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer shutdownLogger()

	logger.Info("msg", "Guardpost starting",
		"version", version.String(),
		"port", cfg.Server.Port,
		"sources", len(cfg.Sources))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	dash, srv, tcpFeed, err := bootstrap(ctx, cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap dashboard", "error", err)
		os.Exit(1)
	}

	logger.Info("msg", "Guardpost started",
		"version", version.Short(),
		"dashboard", fmt.Sprintf("http://%s:%d/", cfg.Server.Host, cfg.Server.Port),
		"status_api", fmt.Sprintf("http://%s:%d%s", cfg.Server.Host, cfg.Server.Port, "/api/status"))

	<-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		srv.Stop()
		if tcpFeed != nil {
			tcpFeed.Stop()
		}
		dash.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

// bootstrap assembles and starts the pipeline, HTTP server, and optional
// TCP feed.
func bootstrap(ctx context.Context, cfg *config.Config) (*service.Dashboard, *server.Server, *feed.Feed, error) {
	dash, err := service.New(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("assemble pipeline: %w", err)
	}

	if err := dash.Start(); err != nil {
		return nil, nil, nil, fmt.Errorf("start pipeline: %w", err)
	}

	checker := status.NewChecker(cfg.Status, logger)

	srv := server.New(cfg, dash, checker, logger)
	if err := srv.Start(ctx); err != nil {
		dash.Shutdown()
		return nil, nil, nil, fmt.Errorf("start HTTP server: %w", err)
	}

	var tcpFeed *feed.Feed
	if cfg.Feed.Enabled {
		tcpFeed = feed.New(&cfg.Feed, dash.Hub, logger)
		if err := tcpFeed.Start(ctx); err != nil {
			// The feed is auxiliary; the dashboard stays up without it.
			logger.Warn("msg", "TCP feed failed to start, continuing without it",
				"error", err)
			tcpFeed = nil
		}
	}

	return dash, srv, tcpFeed, nil
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
		}
	}
}
