// FILE: src/internal/filter/filter_test.go
package filter

import (
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"

	"guardpost/src/internal/config"
	"guardpost/src/internal/core"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNew(t *testing.T) {
	logger := newTestLogger()

	t.Run("SuccessWithDefaults", func(t *testing.T) {
		cfg := config.FilterConfig{Patterns: []string{"test"}}
		f, err := New(cfg, logger)
		assert.NoError(t, err)
		assert.NotNil(t, f)
		assert.Equal(t, config.FilterTypeInclude, f.config.Type)
		assert.Equal(t, config.FilterLogicOr, f.config.Logic)
	})

	t.Run("ErrorInvalidRegex", func(t *testing.T) {
		cfg := config.FilterConfig{Patterns: []string{"["}}
		f, err := New(cfg, logger)
		assert.Error(t, err)
		assert.Nil(t, f)
		assert.Contains(t, err.Error(), "invalid regex pattern")
	})
}

func TestFilter_Apply(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name     string
		cfg      config.FilterConfig
		entry    core.LogEntry
		expected bool
	}{
		{
			name:     "IncludeOR_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"tor", "haproxy"}},
			entry:    core.LogEntry{Message: "tor circuit established"},
			expected: true,
		},
		{
			name:     "IncludeOR_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"tor", "haproxy"}},
			entry:    core.LogEntry{Message: "cache flush complete"},
			expected: false,
		},
		{
			name:     "IncludeAND_MatchAll",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"request", "blocked"}},
			entry:    core.LogEntry{Message: "request blocked by policy"},
			expected: true,
		},
		{
			name:     "IncludeAND_MatchOne",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicAnd, Patterns: []string{"request", "blocked"}},
			entry:    core.LogEntry{Message: "request served"},
			expected: false,
		},
		{
			name:     "Exclude_Match",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicOr, Patterns: []string{"healthcheck"}},
			entry:    core.LogEntry{Message: "GET /healthcheck 200"},
			expected: false,
		},
		{
			name:     "Exclude_NoMatch",
			cfg:      config.FilterConfig{Type: config.FilterTypeExclude, Logic: config.FilterLogicOr, Patterns: []string{"healthcheck"}},
			entry:    core.LogEntry{Message: "GET /index.html 200"},
			expected: true,
		},
		{
			name:     "MatchesSourceField",
			cfg:      config.FilterConfig{Type: config.FilterTypeInclude, Logic: config.FilterLogicOr, Patterns: []string{"^nginx"}},
			entry:    core.LogEntry{Source: "nginx", Message: "200 GET /"},
			expected: true,
		},
		{
			name:     "NoPatternsPassesEverything",
			cfg:      config.FilterConfig{},
			entry:    core.LogEntry{Message: "anything"},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := New(tc.cfg, logger)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, f.Apply(tc.entry))
		})
	}
}

func TestChain_Apply(t *testing.T) {
	logger := newTestLogger()

	t.Run("EmptyChainPasses", func(t *testing.T) {
		chain, err := NewChain(nil, logger)
		assert.NoError(t, err)
		assert.True(t, chain.Apply(core.LogEntry{Message: "anything"}))
	})

	t.Run("AllFiltersMustPass", func(t *testing.T) {
		chain, err := NewChain([]config.FilterConfig{
			{Type: config.FilterTypeInclude, Patterns: []string{"request"}},
			{Type: config.FilterTypeExclude, Patterns: []string{"healthcheck"}},
		}, logger)
		assert.NoError(t, err)

		assert.True(t, chain.Apply(core.LogEntry{Message: "request served"}))
		assert.False(t, chain.Apply(core.LogEntry{Message: "healthcheck request"}))
		assert.False(t, chain.Apply(core.LogEntry{Message: "idle"}))
	})

	t.Run("ErrorPropagatesFromFilter", func(t *testing.T) {
		_, err := NewChain([]config.FilterConfig{{Patterns: []string{"["}}}, logger)
		assert.Error(t, err)
	})
}
