// FILE: guardpost/src/internal/source/file.go
package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lixenwraith/log"

	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
)

// FileSource tails a growing log file: pre-existing content is skipped and
// new lines are picked up by polling.
type FileSource struct {
	publisher

	config       config.SourceConfig
	pollInterval time.Duration
	logger       *log.Logger

	position int64
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	startTime time.Time
}

// NewFileSource creates a file-tailing source.
func NewFileSource(cfg config.SourceConfig, logger *log.Logger) *FileSource {
	return &FileSource{
		config:       cfg,
		pollInterval: 100 * time.Millisecond,
		logger:       logger,
		startTime:    time.Now(),
	}
}

// Subscribe returns a channel for receiving raw lines.
func (f *FileSource) Subscribe() <-chan core.RawLine {
	return f.subscribe()
}

// Start opens the target and begins tailing from its current end. A missing
// or unreadable file is an attach failure: the error is returned and the
// source stays inert.
func (f *FileSource) Start() error {
	file, err := os.Open(f.config.Target)
	if err != nil {
		return fmt.Errorf("attach to file '%s': %w", f.config.Target, err)
	}

	pos, err := file.Seek(0, io.SeekEnd)
	file.Close()
	if err != nil {
		return fmt.Errorf("seek to end of '%s': %w", f.config.Target, err)
	}
	f.position = pos

	f.ctx, f.cancel = context.WithCancel(context.Background())

	f.logger.Info("msg", "File source started",
		"component", "file_source",
		"source", f.config.Name,
		"path", f.config.Target,
		"position", pos)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.tailLoop()
		f.closeSubscribers()
	}()

	return nil
}

// tailLoop polls the file for growth at a fixed interval.
func (f *FileSource) tailLoop() {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			if err := f.readNew(); err != nil {
				// The file going away mid-tail terminates this source only.
				f.logger.Warn("msg", "File source terminating",
					"component", "file_source",
					"source", f.config.Name,
					"path", f.config.Target,
					"error", err)
				return
			}
		}
	}
}

// readNew publishes any lines appended since the last poll. Truncation or
// rotation-in-place resets the read position to the start of the file.
func (f *FileSource) readNew() error {
	file, err := os.Open(f.config.Target)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	size := info.Size()
	if size < f.position {
		f.position = 0
	}
	if size == f.position {
		return nil
	}

	if _, err := file.Seek(f.position, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		f.publish(core.RawLine{Source: f.config.Name, Text: line})
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		pos = size
	}
	f.position = pos
	return nil
}

// Stop terminates the tail loop and closes subscriber channels.
func (f *FileSource) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.wg.Wait()
	f.closeSubscribers()

	f.logger.Info("msg", "File source stopped",
		"component", "file_source",
		"source", f.config.Name,
		"path", f.config.Target)
}

// GetStats returns the source's statistics.
func (f *FileSource) GetStats() Stats {
	return f.stats(config.SourceKindFile, f.config.Name, f.startTime)
}
