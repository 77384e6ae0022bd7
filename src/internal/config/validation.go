// FILE: guardpost/src/internal/config/validation.go
package config

import "fmt"

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.Server.BufferSize)
	}
	if c.Server.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.Server.HistoryLimit)
	}
	if c.Server.ClientBufferSize < 1 {
		return fmt.Errorf("client_buffer_size must be positive, got %d", c.Server.ClientBufferSize)
	}
	if c.Server.KeepaliveIntervalMS < 1 {
		return fmt.Errorf("keepalive_interval_ms must be positive, got %d", c.Server.KeepaliveIntervalMS)
	}

	if c.Feed.Enabled {
		if c.Feed.Port < 1 || c.Feed.Port > 65535 {
			return fmt.Errorf("invalid feed port: %d", c.Feed.Port)
		}
		if c.Feed.Port == c.Server.Port {
			return fmt.Errorf("feed port %d collides with server port", c.Feed.Port)
		}
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("no log sources configured")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source[%d]: name is required", i)
		}
		if src.Target == "" {
			return fmt.Errorf("source[%d] '%s': target is required", i, src.Name)
		}
		switch src.Kind {
		case SourceKindJournal, SourceKindFile:
		default:
			return fmt.Errorf("source[%d] '%s': unknown kind '%s' (valid: journal, file)", i, src.Name, src.Kind)
		}
	}

	for i, f := range c.Filters {
		switch f.Type {
		case "", FilterTypeInclude, FilterTypeExclude:
		default:
			return fmt.Errorf("filter[%d]: unknown type '%s' (valid: include, exclude)", i, f.Type)
		}
		switch f.Logic {
		case "", FilterLogicOr, FilterLogicAnd:
		default:
			return fmt.Errorf("filter[%d]: unknown logic '%s' (valid: or, and)", i, f.Logic)
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSec < 1 {
			return fmt.Errorf("ratelimit requests_per_sec must be positive, got %d", c.RateLimit.RequestsPerSec)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("ratelimit burst must be positive, got %d", c.RateLimit.Burst)
		}
	}

	return validateLogging(&c.Logging)
}
