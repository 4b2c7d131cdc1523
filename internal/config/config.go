// Package config loads the engine's configuration: a TOML file layered
// with environment variable overrides, grounded on the teacher's own
// env-var-driven Config (generalized from encryption/WAL settings to the
// indexing engine's own knobs) and on go-toml/v2 + godotenv for the file
// and .env layers.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/codegraph/codegraph/internal/errkind"
)

// Config holds every tunable the engine reads at startup.
type Config struct {
	DatabaseDSN   string        `toml:"database_dsn"`
	PureGoSQLite  bool          `toml:"pure_go_sqlite"`
	Workers       int           `toml:"workers"`
	ParseTimeout  time.Duration `toml:"parse_timeout"`
	CacheMaxBytes int64         `toml:"cache_max_bytes"`
	CacheTTL      time.Duration `toml:"cache_ttl"`
	QueryCacheTTL time.Duration `toml:"query_cache_ttl"`
	NoGitignore   bool          `toml:"no_gitignore"`
	CustomIgnore  []string      `toml:"custom_ignore"`
	LogLevel      string        `toml:"log_level"`
	LogJSON       bool          `toml:"log_json"`
}

// Defaults returns the engine's built-in configuration before any file or
// environment overrides are applied.
func Defaults() Config {
	return Config{
		DatabaseDSN:   ".codegraph/codegraph.db",
		Workers:       0, // zero means "runtime.NumCPU() * 2", resolved by internal/index
		ParseTimeout:  30 * time.Second,
		CacheMaxBytes: 100 * 1024 * 1024, // 100 MiB, per spec's default memory-tier cap
		CacheTTL:      15 * time.Minute,
		QueryCacheTTL: 30 * time.Second,
		LogLevel:      "info",
	}
}

// Load reads a TOML config file (if path is non-empty and exists), then a
// .env file in the working directory (if present), then applies
// CODEGRAPH_*-prefixed environment variables on top — in that precedence
// order, lowest to highest.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, errkind.Wrap(errkind.InvalidPath, "failed to parse config file", err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, errkind.Wrap(errkind.FileReadError, "failed to read config file", err)
		}
	}

	_ = godotenv.Load() // best-effort; absence of .env is not an error

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEGRAPH_DATABASE_DSN"); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := os.Getenv("CODEGRAPH_PURE_GO_SQLITE"); v != "" {
		cfg.PureGoSQLite = v == "1" || v == "true"
	}
	if v := os.Getenv("CODEGRAPH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("CODEGRAPH_PARSE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ParseTimeout = d
		}
	}
	if v := os.Getenv("CODEGRAPH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("CODEGRAPH_CACHE_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.CacheMaxBytes = n
		}
	}
	if v := os.Getenv("CODEGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CODEGRAPH_LOG_JSON"); v != "" {
		cfg.LogJSON = v == "1" || v == "true"
	}
	if v := os.Getenv("CODEGRAPH_NO_GITIGNORE"); v != "" {
		cfg.NoGitignore = v == "1" || v == "true"
	}
}
