// Package config loads healthkit configuration with precedence ENV > file > defaults.
package config

import (
	"time"
)

// AppConfig is the full application configuration.
type AppConfig struct {
	// Paths
	DataDir    string // working directory for all generated artifacts
	ExportPath string // path to export.xml
	DBPath     string // SQLite database path
	ReportDir  string // CSV/JSON report output directory

	// Ingestion
	MaxExportBytes int64  // cap on export.xml size
	DedupBackend   string // "badger" or "memory"
	DedupDir       string // badger directory

	// API
	APIListenAddr  string
	APIToken       string // empty disables auth
	AllowedOrigins []string
	RateLimitRPM   int // requests per minute per IP, 0 disables

	// Metrics
	MetricsEnabled bool
	MetricsAddr    string

	// Cache
	RedisAddr     string // empty selects the in-memory cache
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Watcher
	WatchEnabled  bool
	WatchDebounce time.Duration

	// Tracing
	TracingEnabled     bool
	TracingEndpoint    string
	TracingSampling    float64
	TracingEnvironment string

	// Logging
	LogLevel   string
	LogService string

	// Version is stamped by the loader, not the file.
	Version string
}

// ServerConfig holds HTTP server operational parameters.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ParseServerConfig reads server tunables from the environment.
func ParseServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ParseString("HK_LISTEN", ":8080"),
		ReadTimeout:     ParseDuration("HK_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    ParseDuration("HK_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     ParseDuration("HK_IDLE_TIMEOUT", 120*time.Second),
		ShutdownTimeout: ParseDuration("HK_SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}
