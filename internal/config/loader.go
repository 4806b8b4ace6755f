package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from "zero value" so the env overlay keeps file values intact.
type FileConfig struct {
	DataDir    *string `yaml:"dataDir"`
	ExportPath *string `yaml:"exportPath"`
	DBPath     *string `yaml:"dbPath"`
	ReportDir  *string `yaml:"reportDir"`

	MaxExportBytes *int64  `yaml:"maxExportBytes"`
	DedupBackend   *string `yaml:"dedupBackend"`
	DedupDir       *string `yaml:"dedupDir"`

	API struct {
		Listen         *string  `yaml:"listen"`
		Token          *string  `yaml:"token"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		RateLimitRPM   *int     `yaml:"rateLimitRPM"`
	} `yaml:"api"`

	Metrics struct {
		Enabled *bool   `yaml:"enabled"`
		Listen  *string `yaml:"listen"`
	} `yaml:"metrics"`

	Cache struct {
		RedisAddr     *string `yaml:"redisAddr"`
		RedisPassword *string `yaml:"redisPassword"`
		RedisDB       *int    `yaml:"redisDB"`
		TTL           *string `yaml:"ttl"` // Go duration string, e.g. "5m"
	} `yaml:"cache"`

	Watch struct {
		Enabled  *bool   `yaml:"enabled"`
		Debounce *string `yaml:"debounce"` // Go duration string, e.g. "2s"
	} `yaml:"watch"`

	Tracing struct {
		Enabled     *bool    `yaml:"enabled"`
		Endpoint    *string  `yaml:"endpoint"`
		Sampling    *float64 `yaml:"sampling"`
		Environment *string  `yaml:"environment"`
	} `yaml:"tracing"`

	Logging struct {
		Level   *string `yaml:"level"`
		Service *string `yaml:"service"`
	} `yaml:"logging"`
}

// Loader handles configuration loading with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a configuration loader. configPath may be empty, in
// which case only defaults and environment variables apply.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the full configuration: defaults, then the YAML file if
// one was given, then environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	// DataDir must be absolute so derived paths survive a daemon chdir.
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	deriveDefaults(&cfg)

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		DataDir:            "./data",
		MaxExportBytes:     1 << 30,
		DedupBackend:       "badger",
		APIListenAddr:      ":8080",
		RateLimitRPM:       120,
		MetricsEnabled:     true,
		MetricsAddr:        ":9090",
		CacheTTL:           5 * time.Minute,
		WatchDebounce:      2 * time.Second,
		TracingSampling:    0.1,
		TracingEnvironment: "production",
		LogLevel:           "info",
		LogService:         "healthkit",
	}
}

// deriveDefaults fills path fields that default relative to DataDir and
// were not set by the file or the environment.
func deriveDefaults(cfg *AppConfig) {
	if cfg.ExportPath == "" {
		cfg.ExportPath = filepath.Join(cfg.DataDir, "apple_health_export", "export.xml")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "healthkit.db")
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = filepath.Join(cfg.DataDir, "reports")
	}
	if cfg.DedupDir == "" {
		cfg.DedupDir = filepath.Join(cfg.DataDir, "dedup")
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse yaml %s: %w", path, err)
	}
	return &fc, nil
}

func mergeFileConfig(cfg *AppConfig, fc *FileConfig) error {
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.ExportPath, fc.ExportPath)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.ReportDir, fc.ReportDir)
	setInt64(&cfg.MaxExportBytes, fc.MaxExportBytes)
	setString(&cfg.DedupBackend, fc.DedupBackend)
	setString(&cfg.DedupDir, fc.DedupDir)

	setString(&cfg.APIListenAddr, fc.API.Listen)
	setString(&cfg.APIToken, fc.API.Token)
	if len(fc.API.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.API.AllowedOrigins
	}
	setInt(&cfg.RateLimitRPM, fc.API.RateLimitRPM)

	setBool(&cfg.MetricsEnabled, fc.Metrics.Enabled)
	setString(&cfg.MetricsAddr, fc.Metrics.Listen)

	setString(&cfg.RedisAddr, fc.Cache.RedisAddr)
	setString(&cfg.RedisPassword, fc.Cache.RedisPassword)
	setInt(&cfg.RedisDB, fc.Cache.RedisDB)
	if err := setDuration(&cfg.CacheTTL, fc.Cache.TTL, "cache.ttl"); err != nil {
		return err
	}

	setBool(&cfg.WatchEnabled, fc.Watch.Enabled)
	if err := setDuration(&cfg.WatchDebounce, fc.Watch.Debounce, "watch.debounce"); err != nil {
		return err
	}

	setBool(&cfg.TracingEnabled, fc.Tracing.Enabled)
	setString(&cfg.TracingEndpoint, fc.Tracing.Endpoint)
	setFloat(&cfg.TracingSampling, fc.Tracing.Sampling)
	setString(&cfg.TracingEnvironment, fc.Tracing.Environment)

	setString(&cfg.LogLevel, fc.Logging.Level)
	setString(&cfg.LogService, fc.Logging.Service)
	return nil
}

func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString("HK_DATA_DIR", cfg.DataDir)
	cfg.ExportPath = ParseString("HK_EXPORT_PATH", cfg.ExportPath)
	cfg.DBPath = ParseString("HK_DB_PATH", cfg.DBPath)
	cfg.ReportDir = ParseString("HK_REPORT_DIR", cfg.ReportDir)
	cfg.MaxExportBytes = ParseInt64("HK_MAX_EXPORT_BYTES", cfg.MaxExportBytes)
	cfg.DedupBackend = ParseString("HK_DEDUP_BACKEND", cfg.DedupBackend)
	cfg.DedupDir = ParseString("HK_DEDUP_DIR", cfg.DedupDir)

	cfg.APIListenAddr = ParseString("HK_LISTEN", cfg.APIListenAddr)
	cfg.APIToken = ParseString("HK_API_TOKEN", cfg.APIToken)
	cfg.AllowedOrigins = ParseStringSlice("HK_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.RateLimitRPM = ParseInt("HK_RATE_LIMIT_RPM", cfg.RateLimitRPM)

	cfg.MetricsEnabled = ParseBool("HK_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("HK_METRICS_LISTEN", cfg.MetricsAddr)

	cfg.RedisAddr = ParseString("HK_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("HK_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("HK_REDIS_DB", cfg.RedisDB)
	cfg.CacheTTL = ParseDuration("HK_CACHE_TTL", cfg.CacheTTL)

	cfg.WatchEnabled = ParseBool("HK_WATCH_ENABLED", cfg.WatchEnabled)
	cfg.WatchDebounce = ParseDuration("HK_WATCH_DEBOUNCE", cfg.WatchDebounce)

	cfg.TracingEnabled = ParseBool("HK_TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = ParseString("HK_TRACING_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampling = ParseFloat("HK_TRACING_SAMPLING", cfg.TracingSampling)
	cfg.TracingEnvironment = ParseString("HK_TRACING_ENVIRONMENT", cfg.TracingEnvironment)

	cfg.LogLevel = ParseString("HK_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("HK_LOG_SERVICE", cfg.LogService)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string, field string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, *src, err)
	}
	*dst = d
	return nil
}
