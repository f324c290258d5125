package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatabasePath is where the SQLite catalogue lives unless ALBUMS_DB_PATH says otherwise.
const DefaultDatabasePath = "albums.sqlite3"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Cache    CacheConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver       string // sqlite, pgx, postgres
	Path         string // SQLite file path
	URL          string // Postgres URL
	UniqueTitles bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// CacheConfig holds the optional Redis artist cache settings. An empty Addr disables it.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads configuration from the environment, after merging envFiles
// (missing files are ignored).
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		_ = godotenv.Load(file)
	}

	cfg := &Config{}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	cfg.loadCORS()
	cfg.loadLogging()

	if err := cfg.loadCache(); err != nil {
		return nil, fmt.Errorf("load cache config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadDatabase() error {
	c.Database.Driver = strings.ToLower(getEnvOrDefault("DB_DRIVER", "sqlite"))
	c.Database.Path = getEnvOrDefault("ALBUMS_DB_PATH", DefaultDatabasePath)
	c.Database.URL = os.Getenv("DATABASE_URL")

	unique, err := parseBool("ALBUMS_UNIQUE_TITLES", false)
	if err != nil {
		return err
	}
	c.Database.UniqueTitles = unique
	return nil
}

func (c *Config) loadServer() error {
	portStr := getEnvOrDefault("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "localhost")
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		return
	}
	for _, origin := range strings.Split(originsEnv, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, trimmed)
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

func (c *Config) loadCache() error {
	c.Cache.Addr = os.Getenv("REDIS_ADDR")
	c.Cache.Password = os.Getenv("REDIS_PASSWORD")

	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	c.Cache.DB = db

	ttl, err := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "5m"))
	if err != nil {
		return fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	c.Cache.TTL = ttl
	return nil
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errors = append(errors, "ALBUMS_DB_PATH must not be empty")
		}
	case "pgx", "postgres":
		if c.Database.URL == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres drivers")
		}
	default:
		errors = append(errors, "DB_DRIVER must be one of: sqlite, pgx, postgres")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if c.Cache.Enabled() && c.Cache.TTL <= 0 {
		errors = append(errors, "CACHE_TTL must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
