// FILE: guardpost/src/internal/source/journal.go
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/lixenwraith/log"

	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
)

// JournalSource follows a systemd unit's journal from the moment of
// attachment, with no historical backlog.
type JournalSource struct {
	publisher

	config config.SourceConfig
	binary string // journalctl, overridable in tests
	logger *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
}

// NewJournalSource creates a journal-following source for a unit.
func NewJournalSource(cfg config.SourceConfig, logger *log.Logger) *JournalSource {
	return &JournalSource{
		config:    cfg,
		binary:    "journalctl",
		logger:    logger,
		startTime: time.Now(),
	}
}

// Subscribe returns a channel for receiving raw lines.
func (j *JournalSource) Subscribe() <-chan core.RawLine {
	return j.subscribe()
}

// Start attaches to the unit's journal. A missing journalctl binary or a
// unit that cannot be followed is an attach failure: the error is returned
// and the source stays inert.
func (j *JournalSource) Start() error {
	j.ctx, j.cancel = context.WithCancel(context.Background())

	cmd := exec.CommandContext(j.ctx, j.binary,
		"-u", j.config.Target, "-f", "-n", "0", "--no-pager")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		j.cancel()
		return fmt.Errorf("journal pipe for unit '%s': %w", j.config.Target, err)
	}

	if err := cmd.Start(); err != nil {
		j.cancel()
		return fmt.Errorf("attach to journal of unit '%s': %w", j.config.Target, err)
	}

	j.logger.Info("msg", "Journal source started",
		"component", "journal_source",
		"source", j.config.Name,
		"unit", j.config.Target)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.follow(stdout)

		// Reap the child; after cancellation this returns promptly.
		if err := cmd.Wait(); err != nil && j.ctx.Err() == nil {
			j.logger.Warn("msg", "Journal follower exited",
				"component", "journal_source",
				"source", j.config.Name,
				"unit", j.config.Target,
				"error", err)
		}
		j.closeSubscribers()
	}()

	return nil
}

// follow publishes each completed journal line until the stream ends.
func (j *JournalSource) follow(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		j.publish(core.RawLine{Source: j.config.Name, Text: line})
	}

	if err := scanner.Err(); err != nil && j.ctx.Err() == nil {
		j.logger.Warn("msg", "Journal read failed",
			"component", "journal_source",
			"source", j.config.Name,
			"error", err)
	}
}

// Stop terminates the follower and closes subscriber channels.
func (j *JournalSource) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
	j.closeSubscribers()

	j.logger.Info("msg", "Journal source stopped",
		"component", "journal_source",
		"source", j.config.Name)
}

// GetStats returns the source's statistics.
func (j *JournalSource) GetStats() Stats {
	return j.stats(config.SourceKindJournal, j.config.Name, j.startTime)
}
