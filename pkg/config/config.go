// Package config loads and validates engine configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Database, Index, Search, Stemmer, Cache, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Stemmer  StemmerConfig  `yaml:"stemmer"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DatabaseConfig holds connection parameters for the index store. Driver is
// either "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Path            string        `yaml:"path"` // sqlite only; empty means in-memory
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		if d.Path == "" {
			return ":memory:"
		}
		return d.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// IndexConfig controls the write path: table naming, transaction retry
// budget, and insert chunking.
type IndexConfig struct {
	TablePrefix         string        `yaml:"tablePrefix"`
	TransactionAttempts int           `yaml:"transactionAttempts"`
	InsertChunkSize     int           `yaml:"insertChunkSize"`
	Timeout             time.Duration `yaml:"timeout"`
}

// SearchConfig holds the scoring weights and match-policy knobs of the
// query compiler. All weights are neutral at 1.0.
type SearchConfig struct {
	InverseDocumentFrequencyWeight float64       `yaml:"inverseDocumentFrequencyWeight"`
	TermFrequencyWeight            float64       `yaml:"termFrequencyWeight"`
	TermDeviationWeight            float64       `yaml:"termDeviationWeight"`
	WildcardLastToken              bool          `yaml:"wildcardLastToken"`
	RequireMatchForAllTokens       bool          `yaml:"requireMatchForAllTokens"`
	Timeout                        time.Duration `yaml:"timeout"`
}

// StemmerConfig selects the stemmer language. "none" disables stemming.
type StemmerConfig struct {
	Language string `yaml:"language"`
}

// CacheConfig controls the optional redis-backed search result cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics endpoint of the CLI.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults without reading any file.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Database:        "scoutdb",
			User:            "scoutdb",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Index: IndexConfig{
			TablePrefix:         "scout_",
			TransactionAttempts: 3,
			InsertChunkSize:     100,
			Timeout:             30 * time.Second,
		},
		Search: SearchConfig{
			InverseDocumentFrequencyWeight: 1.0,
			TermFrequencyWeight:            1.0,
			TermDeviationWeight:            1.0,
			WildcardLastToken:              true,
			RequireMatchForAllTokens:       false,
			Timeout:                        10 * time.Second,
		},
		Stemmer: StemmerConfig{
			Language: "english",
		},
		Cache: CacheConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			TTL:      60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

func validate(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Index.TransactionAttempts < 1 {
		return fmt.Errorf("index.transactionAttempts must be at least 1, got %d", cfg.Index.TransactionAttempts)
	}
	if cfg.Index.InsertChunkSize < 1 {
		return fmt.Errorf("index.insertChunkSize must be at least 1, got %d", cfg.Index.InsertChunkSize)
	}
	return nil
}

// applyEnvOverrides reads SCOUT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCOUT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SCOUT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SCOUT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SCOUT_DB_DATABASE"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("SCOUT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SCOUT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SCOUT_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SCOUT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SCOUT_INDEX_TABLE_PREFIX"); v != "" {
		cfg.Index.TablePrefix = v
	}
	if v := os.Getenv("SCOUT_INDEX_TRANSACTION_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.TransactionAttempts = n
		}
	}
	if v := os.Getenv("SCOUT_SEARCH_WILDCARD_LAST_TOKEN"); v != "" {
		cfg.Search.WildcardLastToken = parseBool(v, cfg.Search.WildcardLastToken)
	}
	if v := os.Getenv("SCOUT_SEARCH_REQUIRE_ALL_TOKENS"); v != "" {
		cfg.Search.RequireMatchForAllTokens = parseBool(v, cfg.Search.RequireMatchForAllTokens)
	}
	if v := os.Getenv("SCOUT_STEMMER_LANGUAGE"); v != "" {
		cfg.Stemmer.Language = v
	}
	if v := os.Getenv("SCOUT_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = parseBool(v, cfg.Cache.Enabled)
	}
	if v := os.Getenv("SCOUT_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SCOUT_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SCOUT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCOUT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
