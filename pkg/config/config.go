package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port           string
	Env            string
	AllowedOrigins []string

	// Logging
	LogFormat string
	LogLevel  string

	// Database configuration
	DatabaseURL string
	DBMaxConns  int

	// Redis configuration
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	SummaryCacheTTL time.Duration

	// JWT configuration
	JWTSecret string

	// Projection auditor
	AuditEnabled  bool
	AuditInterval time.Duration
}

// fileConfig mirrors the optional TOML file. Every field is optional; the
// environment always wins over the file.
type fileConfig struct {
	Env    string `toml:"env"`
	Server struct {
		Port           string   `toml:"port"`
		AllowedOrigins []string `toml:"allowed_origins"`
	} `toml:"server"`
	Logging struct {
		Format string `toml:"format"`
		Level  string `toml:"level"`
	} `toml:"logging"`
	Database struct {
		URL      string `toml:"url"`
		MaxConns int    `toml:"max_conns"`
	} `toml:"database"`
	Redis struct {
		URL      string `toml:"url"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		CacheTTL string `toml:"cache_ttl"`
	} `toml:"redis"`
	Audit struct {
		Enabled  *bool  `toml:"enabled"`
		Interval string `toml:"interval"`
	} `toml:"audit"`
}

// Load loads configuration from CONFIG_FILE (if set) and environment variables
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:            "8080",
		Env:             "development",
		AllowedOrigins:  []string{"http://localhost:5173"},
		DBMaxConns:      25,
		RedisURL:        "localhost:6379",
		SummaryCacheTTL: 5 * time.Minute,
		AuditEnabled:    true,
		AuditInterval:   15 * time.Minute,
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.Env, fc.Env)
	setString(&c.Port, fc.Server.Port)
	if len(fc.Server.AllowedOrigins) > 0 {
		c.AllowedOrigins = fc.Server.AllowedOrigins
	}
	setString(&c.LogFormat, fc.Logging.Format)
	setString(&c.LogLevel, fc.Logging.Level)
	setString(&c.DatabaseURL, fc.Database.URL)
	if fc.Database.MaxConns > 0 {
		c.DBMaxConns = fc.Database.MaxConns
	}
	setString(&c.RedisURL, fc.Redis.URL)
	setString(&c.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB > 0 {
		c.RedisDB = fc.Redis.DB
	}
	if fc.Redis.CacheTTL != "" {
		d, err := time.ParseDuration(fc.Redis.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid redis.cache_ttl: %w", err)
		}
		c.SummaryCacheTTL = d
	}
	if fc.Audit.Enabled != nil {
		c.AuditEnabled = *fc.Audit.Enabled
	}
	if fc.Audit.Interval != "" {
		d, err := time.ParseDuration(fc.Audit.Interval)
		if err != nil {
			return fmt.Errorf("invalid audit.interval: %w", err)
		}
		c.AuditInterval = d
	}

	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.DBMaxConns = getEnvAsInt("DB_MAX_CONNS", c.DBMaxConns)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvAsInt("REDIS_DB", c.RedisDB)
	c.SummaryCacheTTL = getEnvAsDuration("SUMMARY_CACHE_TTL", c.SummaryCacheTTL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AuditEnabled = getEnvAsBool("AUDIT_ENABLED", c.AuditEnabled)
	c.AuditInterval = getEnvAsDuration("AUDIT_INTERVAL", c.AuditInterval)
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}

	if c.AuditEnabled && c.AuditInterval <= 0 {
		return errors.New("AUDIT_INTERVAL must be positive when the auditor is enabled")
	}

	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
