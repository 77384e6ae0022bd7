// FILE: guardpost/src/internal/source/file_test.go
package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newTestFileSource(t *testing.T, path string) *FileSource {
	t.Helper()
	src := NewFileSource(config.SourceConfig{
		Name:   "testfile",
		Kind:   config.SourceKindFile,
		Target: path,
	}, newTestLogger())
	src.pollInterval = 5 * time.Millisecond
	return src
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func collect(ch <-chan core.RawLine, n int, timeout time.Duration) []core.RawLine {
	var out []core.RawLine
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case line, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, line)
		case <-deadline:
			return out
		}
	}
	return out
}

func TestFileSource_SkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	require.NoError(t, os.WriteFile(path, []byte("old line 1\nold line 2\n"), 0o644))

	src := newTestFileSource(t, path)
	ch := src.Subscribe()
	require.NoError(t, src.Start())
	defer src.Stop()

	appendLine(t, path, "new line")

	lines := collect(ch, 1, time.Second)
	require.Len(t, lines, 1)
	assert.Equal(t, "new line", lines[0].Text)
	assert.Equal(t, "testfile", lines[0].Source)
}

func TestFileSource_YieldsLinesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src := newTestFileSource(t, path)
	ch := src.Subscribe()
	require.NoError(t, src.Start())
	defer src.Stop()

	appendLine(t, path, "first")
	appendLine(t, path, "second")
	appendLine(t, path, "third")

	lines := collect(ch, 3, time.Second)
	require.Len(t, lines, 3)
	assert.Equal(t, "first", lines[0].Text)
	assert.Equal(t, "second", lines[1].Text)
	assert.Equal(t, "third", lines[2].Text)
}

func TestFileSource_TruncationResetsPosition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotated.log")
	require.NoError(t, os.WriteFile(path, []byte("before rotation\n"), 0o644))

	src := newTestFileSource(t, path)
	ch := src.Subscribe()
	require.NoError(t, src.Start())
	defer src.Stop()

	appendLine(t, path, "pre")
	require.Len(t, collect(ch, 1, time.Second), 1)

	// Rotate in place: truncate and write fresh content.
	require.NoError(t, os.WriteFile(path, []byte("after rotation\n"), 0o644))

	lines := collect(ch, 1, time.Second)
	require.Len(t, lines, 1)
	assert.Equal(t, "after rotation", lines[0].Text)
}

func TestFileSource_MissingTargetFailsAttach(t *testing.T) {
	src := newTestFileSource(t, filepath.Join(t.TempDir(), "does-not-exist.log"))
	err := src.Start()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "attach to file")
}

func TestFileSource_DeletedMidTailTerminatesAlone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vanishing.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src := newTestFileSource(t, path)
	ch := src.Subscribe()
	require.NoError(t, src.Start())

	require.NoError(t, os.Remove(path))

	// The subscriber channel closes once the tailer gives up.
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("tailer did not terminate after target removal")
	}
	src.Stop()
}

func TestFileSource_GetStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	src := newTestFileSource(t, path)
	ch := src.Subscribe()
	require.NoError(t, src.Start())
	defer src.Stop()

	appendLine(t, path, "one")
	appendLine(t, path, "two")
	require.Len(t, collect(ch, 2, time.Second), 2)

	stats := src.GetStats()
	assert.Equal(t, config.SourceKindFile, stats.Kind)
	assert.Equal(t, "testfile", stats.Name)
	assert.Equal(t, uint64(2), stats.TotalLines)
	assert.False(t, stats.LastLineTime.IsZero())
}
