// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"TATTVA_HOST" yaml:"host"`
	Port int    `envconfig:"TATTVA_PORT" yaml:"port"`

	// Observation store configuration
	Database DatabaseConfig `yaml:"database"`

	// Result cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Correlation search configuration
	Correlation CorrelationConfig `yaml:"correlation"`

	// Context snapshot configuration
	Insight InsightConfig `yaml:"insight"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// DatabaseConfig holds observation store connection settings.
type DatabaseConfig struct {
	Driver       string `envconfig:"TATTVA_DB_DRIVER" yaml:"driver"` // sqlite3 or pgx
	DSN          string `envconfig:"TATTVA_DB_DSN" yaml:"dsn"`
	MaxOpenConns int    `envconfig:"TATTVA_DB_MAX_OPEN_CONNS" yaml:"max_open_conns"`
	AutoMigrate  bool   `envconfig:"TATTVA_DB_AUTO_MIGRATE" yaml:"auto_migrate"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Type       string `envconfig:"TATTVA_CACHE_TYPE" yaml:"type"` // memory, redis or none
	RedisURL   string `envconfig:"REDIS_URL" yaml:"redis_url"`
	Key        string `envconfig:"TATTVA_CACHE_KEY" yaml:"key"`
	TTLSeconds int    `envconfig:"HYPOTHESIS_CACHE_TTL" yaml:"ttl_seconds"`
}

// TTL returns the cache time-to-live as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// CorrelationConfig holds correlation search settings.
type CorrelationConfig struct {
	Thresholds []int    `envconfig:"TATTVA_THRESHOLDS" yaml:"thresholds"`
	Covariates []string `envconfig:"TATTVA_COVARIATES" yaml:"covariates"`
}

// InsightConfig holds context snapshot defaults.
type InsightConfig struct {
	DefaultRadiusKm float64 `envconfig:"TATTVA_DEFAULT_RADIUS_KM" yaml:"default_radius_km"`
	DefaultTopN     int     `envconfig:"TATTVA_DEFAULT_TOP_N" yaml:"default_top_n"`
	MaxTopN         int     `envconfig:"TATTVA_MAX_TOP_N" yaml:"max_top_n"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"TATTVA_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"TATTVA_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"TATTVA_KAFKA_GROUP" yaml:"kafka_group"`
	// KafkaClientID and KafkaVersion fall back to the sarama defaults set in
	// bus.NewKafkaBus when empty.
	KafkaClientID string `envconfig:"TATTVA_KAFKA_CLIENT_ID" yaml:"kafka_client_id"`
	KafkaVersion  string `envconfig:"TATTVA_KAFKA_VERSION" yaml:"kafka_version"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"TATTVA_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"TATTVA_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit int `envconfig:"TATTVA_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
}

// DefaultCovariates are the sighting columns analysed when none are configured.
var DefaultCovariates = []string{"sea_surface_temp_c", "salinity_psu", "chlorophyll_mg_m3"}

// DefaultThresholds is the minimum-group-size relaxation sequence.
var DefaultThresholds = []int{30, 20, 10, 5}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

// Default returns a validated configuration holding only the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8000

	cfg.Database = DatabaseConfig{
		Driver:       "sqlite3",
		DSN:          "file:tattva.db?_foreign_keys=on&_busy_timeout=5000",
		MaxOpenConns: 10,
		AutoMigrate:  true,
	}

	cfg.Cache = CacheConfig{
		Type:       "memory",
		RedisURL:   "redis://localhost:6379/0",
		Key:        "tattva:correlation:latest",
		TTLSeconds: 600,
	}

	cfg.Correlation = CorrelationConfig{
		Thresholds: append([]int(nil), DefaultThresholds...),
		Covariates: append([]string(nil), DefaultCovariates...),
	}

	cfg.Insight = InsightConfig{
		DefaultRadiusKm: 50,
		DefaultTopN:     10,
		MaxTopN:         100,
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaGroup: "tattva",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit: 0,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite3": true, "pgx": true}
	if !validDrivers[c.Database.Driver] {
		errs = append(errs, fmt.Sprintf("invalid database driver: %s (must be sqlite3 or pgx)", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database dsn must be set")
	}

	// Cache validation
	validCacheTypes := map[string]bool{"memory": true, "redis": true, "none": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be memory, redis, or none)", c.Cache.Type))
	}
	if c.Cache.TTLSeconds < 1 {
		errs = append(errs, "cache ttl_seconds must be positive")
	}
	if c.Cache.Key == "" {
		errs = append(errs, "cache key must be set")
	}

	// Correlation validation
	if len(c.Correlation.Thresholds) == 0 {
		errs = append(errs, "at least one correlation threshold is required")
	}
	for _, th := range c.Correlation.Thresholds {
		if th < 1 {
			errs = append(errs, fmt.Sprintf("correlation threshold must be positive, got %d", th))
		}
	}
	if len(c.Correlation.Covariates) == 0 {
		errs = append(errs, "at least one covariate is required")
	}
	seen := make(map[string]bool, len(c.Correlation.Covariates))
	for _, name := range c.Correlation.Covariates {
		if !identifierPattern.MatchString(name) {
			errs = append(errs, fmt.Sprintf("invalid covariate column name: %q", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("duplicate covariate: %s", name))
		}
		seen[name] = true
	}

	// Insight validation
	if c.Insight.DefaultRadiusKm <= 0 {
		errs = append(errs, "default_radius_km must be positive")
	}
	if c.Insight.DefaultTopN < 1 || c.Insight.DefaultTopN > c.Insight.MaxTopN {
		errs = append(errs, "default_top_n must be between 1 and max_top_n")
	}

	// Bus validation
	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "rate_limit must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsIdentifier reports whether name is safe to splice into SQL as a column name.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
