// FILE: guardpost/src/internal/config/config.go
package config

// Config is the root configuration for the dashboard daemon.
type Config struct {
	Server    ServerConfig   `toml:"server"`
	Feed      FeedConfig     `toml:"feed"`
	Status    StatusConfig   `toml:"status"`
	Tor       TorConfig      `toml:"tor"`
	RateLimit RateLimit      `toml:"ratelimit"`
	Sources   []SourceConfig `toml:"sources"`
	Filters   []FilterConfig `toml:"filters"`
	Logging   LoggingConfig  `toml:"logging"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	DashboardDir string `toml:"dashboard_dir"`

	// Event pipeline sizing
	BufferSize       int `toml:"buffer_size"`        // bounded history capacity
	HistoryLimit     int `toml:"history_limit"`      // max entries returned by /api/logs/history
	ClientBufferSize int `toml:"client_buffer_size"` // per-subscriber channel depth

	KeepaliveIntervalMS int `toml:"keepalive_interval_ms"`
}

// FeedConfig controls the optional raw TCP log feed.
type FeedConfig struct {
	Enabled             bool   `toml:"enabled"`
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	HeartbeatIntervalMS int    `toml:"heartbeat_interval_ms"`
}

// StatusConfig lists the systemd units surfaced on the dashboard.
type StatusConfig struct {
	Units     []string `toml:"units"`
	TimeoutMS int      `toml:"timeout_ms"`
}

// TorConfig locates the hidden service identities shown in /api/status.
type TorConfig struct {
	HostnameFile string `toml:"hostname_file"`
	BackendOnion string `toml:"backend_onion"`
}

// RateLimit configures per-client request limiting on the JSON API.
type RateLimit struct {
	Enabled            bool  `toml:"enabled"`
	RequestsPerSec     int   `toml:"requests_per_sec"`
	Burst              int   `toml:"burst"`
	CleanupIntervalSec int64 `toml:"cleanup_interval_sec"`
}

// Source kinds.
const (
	SourceKindJournal = "journal"
	SourceKindFile    = "file"
)

// SourceConfig describes one log source to tail. Fixed at startup.
type SourceConfig struct {
	Name   string `toml:"name"`
	Kind   string `toml:"kind"`   // "journal" or "file"
	Target string `toml:"target"` // unit name or file path
}

// Filter types and logic.
const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"

	FilterLogicOr  = "or"
	FilterLogicAnd = "and"
)

// FilterConfig is an optional regex gate applied before entries reach the
// buffer and viewers.
type FilterConfig struct {
	Type     string   `toml:"type"`
	Logic    string   `toml:"logic"`
	Patterns []string `toml:"patterns"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                9999,
			DashboardDir:        "./dashboard",
			BufferSize:          1000,
			HistoryLimit:        100,
			ClientBufferSize:    64,
			KeepaliveIntervalMS: 1000,
		},
		Feed: FeedConfig{
			Enabled:             false,
			Host:                "127.0.0.1",
			Port:                9998,
			HeartbeatIntervalMS: 30000,
		},
		Status: StatusConfig{
			Units:     []string{"fortify", "tor", "haproxy", "nginx", "redis-server"},
			TimeoutMS: 5000,
		},
		Tor: TorConfig{
			HostnameFile: "/var/lib/tor/cerberus_hs/hostname",
			BackendOnion: "sigilahzwq5u34gdh2bl3ymokyc7kobika55kyhztsucdoub73hz7qid.onion",
		},
		RateLimit: RateLimit{
			Enabled:            false,
			RequestsPerSec:     10,
			Burst:              20,
			CleanupIntervalSec: 60,
		},
		Sources: []SourceConfig{
			{Name: "fortify", Kind: SourceKindJournal, Target: "fortify"},
			{Name: "tor", Kind: SourceKindJournal, Target: "tor"},
			{Name: "haproxy", Kind: SourceKindJournal, Target: "haproxy"},
			{Name: "nginx", Kind: SourceKindJournal, Target: "nginx"},
			{Name: "redis", Kind: SourceKindJournal, Target: "redis-server"},
			{Name: "nginx", Kind: SourceKindFile, Target: "/var/log/nginx/access.log"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
		},
	}
}
