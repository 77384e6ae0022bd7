// FILE: src/internal/service/dashboard.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lixenwraith/log"

	"guardpost/src/internal/classify"
	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
	"guardpost/src/internal/filter"
	"guardpost/src/internal/hub"
	"guardpost/src/internal/source"
	"guardpost/src/internal/stats"
)

// Dashboard owns the log aggregation pipeline: sources feed raw lines
// through classification and stats into the broadcast hub. It is the
// explicit top-level state object; nothing here is a package global.
type Dashboard struct {
	Config *config.Config
	Hub    *hub.Hub
	Stats  *stats.Collector

	sources []source.Source
	chain   *filter.Chain
	logger  *log.Logger

	startTime time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New assembles the pipeline from configuration. Sources are created but
// not yet attached.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Dashboard, error) {
	dashCtx, cancel := context.WithCancel(ctx)

	d := &Dashboard{
		Config:    cfg,
		Hub:       hub.New(cfg.Server.BufferSize, cfg.Server.ClientBufferSize, logger),
		Stats:     stats.NewCollector(),
		logger:    logger,
		startTime: time.Now(),
		ctx:       dashCtx,
		cancel:    cancel,
	}

	chain, err := filter.NewChain(cfg.Filters, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create filter chain: %w", err)
	}
	d.chain = chain

	for i, srcCfg := range cfg.Sources {
		src, err := source.New(srcCfg, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create source[%d] '%s': %w", i, srcCfg.Name, err)
		}
		d.sources = append(d.sources, src)
	}

	return d, nil
}

// Start attaches every source and wires it into the hub. A source that
// cannot attach is logged and skipped: it is an isolated failure domain and
// must not take down the process or the other tailers.
func (d *Dashboard) Start() error {
	started := 0
	for _, src := range d.sources {
		ch := src.Subscribe()

		if err := src.Start(); err != nil {
			d.logger.Warn("msg", "Source failed to attach, continuing without it",
				"component", "dashboard",
				"source", src.GetStats().Name,
				"error", err)
			continue
		}

		d.wireSource(src, ch)
		started++
	}

	d.logger.Info("msg", "Log pipeline started",
		"component", "dashboard",
		"sources_attached", started,
		"sources_configured", len(d.sources))

	d.Hub.Publish(core.LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Level:   core.LevelInfo,
		Source:  "dashboard",
		Message: "Dashboard server started",
	})

	return nil
}

// wireSource pumps one source's raw lines through classification, stats and
// filtering into the hub.
func (d *Dashboard) wireSource(src source.Source, lines <-chan core.RawLine) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// A panicking source pipeline must not crash its siblings.
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("msg", "Panic in source pipeline",
					"component", "dashboard",
					"source", src.GetStats().Name,
					"panic", r)
			}
		}()

		for {
			select {
			case <-d.ctx.Done():
				return
			case raw, ok := <-lines:
				if !ok {
					return
				}

				entry := classify.Normalize(raw.Text, raw.Source)
				d.Stats.Observe(entry.Message)

				if !d.chain.Apply(entry) {
					continue
				}
				d.Hub.Publish(entry)
			}
		}
	}()
}

// StartTime reports when the pipeline was assembled; exposed as start_time
// in /api/status.
func (d *Dashboard) StartTime() time.Time {
	return d.startTime
}

// Shutdown stops the sources, drains the wiring goroutines, and closes the
// hub.
func (d *Dashboard) Shutdown() {
	d.logger.Info("msg", "Shutting down log pipeline", "component", "dashboard")

	d.cancel()

	var wg sync.WaitGroup
	for _, src := range d.sources {
		wg.Add(1)
		go func(s source.Source) {
			defer wg.Done()
			s.Stop()
		}(src)
	}
	wg.Wait()

	d.wg.Wait()
	d.Hub.Close()

	d.logger.Info("msg", "Log pipeline shutdown complete", "component", "dashboard")
}

// GetStats aggregates pipeline statistics for diagnostics.
func (d *Dashboard) GetStats() map[string]any {
	sourceStats := make([]map[string]any, 0, len(d.sources))
	for _, src := range d.sources {
		s := src.GetStats()
		sourceStats = append(sourceStats, map[string]any{
			"kind":           s.Kind,
			"name":           s.Name,
			"total_lines":    s.TotalLines,
			"dropped_lines":  s.DroppedLines,
			"start_time":     s.StartTime,
			"last_line_time": s.LastLineTime,
		})
	}

	return map[string]any{
		"uptime_seconds": int(time.Since(d.startTime).Seconds()),
		"counters":       d.Stats.Snapshot(),
		"hub":            d.Hub.GetStats(),
		"filters":        d.chain.GetStats(),
		"sources":        sourceStats,
	}
}
