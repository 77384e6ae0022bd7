// FILE: guardpost/src/internal/source/source.go
package source

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"

	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
)

// Source is one tailed log origin. It produces raw lines as they appear;
// classification happens downstream. Sources are non-restartable: a source
// that loses its target terminates alone, without affecting any other
// source.
type Source interface {
	// Returns a channel that receives raw lines
	Subscribe() <-chan core.RawLine

	// Begins tailing. An error means the source could not attach; the
	// caller decides whether to continue without it.
	Start() error

	// Gracefully shuts down the source
	Stop()

	// Returns source statistics
	GetStats() Stats
}

// Stats contains statistics about a source.
type Stats struct {
	Kind         string
	Name         string
	TotalLines   uint64
	DroppedLines uint64
	StartTime    time.Time
	LastLineTime time.Time
}

// New creates a source for the given descriptor.
func New(cfg config.SourceConfig, logger *log.Logger) (Source, error) {
	switch cfg.Kind {
	case config.SourceKindJournal:
		return NewJournalSource(cfg, logger), nil
	case config.SourceKindFile:
		return NewFileSource(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown source kind '%s'", cfg.Kind)
	}
}

// publisher is the shared subscriber bookkeeping embedded by both source
// kinds.
type publisher struct {
	mu          sync.RWMutex
	subscribers []chan core.RawLine
	closed      bool

	totalLines   atomic.Uint64
	droppedLines atomic.Uint64
	lastLineTime atomic.Value // time.Time
}

func (p *publisher) subscribe() <-chan core.RawLine {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan core.RawLine, 256)
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// publish sends a raw line to all subscribers without blocking; a full
// subscriber buffer drops the line for that subscriber only.
func (p *publisher) publish(line core.RawLine) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	p.totalLines.Add(1)
	p.lastLineTime.Store(time.Now())

	for _, ch := range p.subscribers {
		select {
		case ch <- line:
		default:
			p.droppedLines.Add(1)
		}
	}
}

func (p *publisher) closeSubscribers() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, ch := range p.subscribers {
		close(ch)
	}
}

func (p *publisher) stats(kind, name string, startTime time.Time) Stats {
	lastLine, _ := p.lastLineTime.Load().(time.Time)
	return Stats{
		Kind:         kind,
		Name:         name,
		TotalLines:   p.totalLines.Load(),
		DroppedLines: p.droppedLines.Load(),
		StartTime:    startTime,
		LastLineTime: lastLine,
	}
}
