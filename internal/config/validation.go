package config

import (
	"github.com/kkin1995/healthkit/internal/validate"
)

// Validate checks the resolved configuration before the daemon starts.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.Directory("DataDir", cfg.DataDir, false)
	v.Path("ExportPath", cfg.ExportPath)
	v.Path("DBPath", cfg.DBPath)
	v.Path("ReportDir", cfg.ReportDir)

	v.Positive("MaxExportBytes", cfg.MaxExportBytes)
	v.OneOf("DedupBackend", cfg.DedupBackend, []string{"badger", "memory"})
	if cfg.DedupBackend == "badger" {
		v.Path("DedupDir", cfg.DedupDir)
	}

	v.ListenAddr("APIListenAddr", cfg.APIListenAddr)
	v.NonNegative("RateLimitRPM", cfg.RateLimitRPM)

	if cfg.MetricsEnabled {
		v.ListenAddr("MetricsAddr", cfg.MetricsAddr)
	}

	if cfg.RedisAddr != "" {
		v.NonNegative("RedisDB", cfg.RedisDB)
	}
	if cfg.CacheTTL <= 0 {
		v.AddError("CacheTTL", "cache TTL must be positive", cfg.CacheTTL)
	}

	if cfg.WatchEnabled && cfg.WatchDebounce <= 0 {
		v.AddError("WatchDebounce", "debounce must be positive", cfg.WatchDebounce)
	}

	if cfg.TracingEnabled {
		v.NotEmpty("TracingEndpoint", cfg.TracingEndpoint)
	}
	v.RangeFloat("TracingSampling", cfg.TracingSampling, 0, 1)

	v.OneOf("LogLevel", cfg.LogLevel, []string{"trace", "debug", "info", "warn", "error"})

	return v.Err()
}
