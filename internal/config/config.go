package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins string
	TablePrefix string
	// Storage
	StorageDriver  string
	DatabaseURL    string
	SQLitePath     string
	MigrateOnStart bool
	// Identity
	AuthJWKSURL   string
	AuthDevUserID string // Fixed identity for local development, ignored outside dev
	// Content encryption at rest
	EncryptionKey string
	// Logging
	LogDir      string
	LogMaxFiles int
	// Debug flags
	Debug bool
}

// Load builds the configuration from the environment. When CONFIG_FILE names
// a YAML file its keys (same names as the environment variables) provide
// defaults; real environment variables always win.
func Load() (*Config, error) {
	src := &source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := src.loadFile(path); err != nil {
			return nil, err
		}
	}

	env := src.get("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:           src.get("PORT", "8080"),
		Environment:    env,
		CORSOrigins:    src.get("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:    src.tablePrefix(env),
		StorageDriver:  src.get("STORAGE_DRIVER", DriverPostgres),
		DatabaseURL:    src.get("DATABASE_URL", ""),
		SQLitePath:     src.get("SQLITE_PATH", "notevault.db"),
		MigrateOnStart: src.get("MIGRATE_ON_START", "true") == "true",
		AuthJWKSURL:    src.get("AUTH_JWKS_URL", ""),
		AuthDevUserID:  src.get("AUTH_DEV_USER_ID", ""),
		EncryptionKey:  src.get("ENCRYPTION_KEY", ""),
		LogDir:         src.get("LOG_DIR", ""),
		// Debug flags - default to true in dev/test, false in production
		Debug: src.get("DEBUG", getDefaultDebug(env)) == "true",
	}

	maxFiles, err := strconv.Atoi(src.get("LOG_MAX_FILES", "10"))
	if err != nil || maxFiles < 1 {
		return nil, fmt.Errorf("LOG_MAX_FILES must be a positive integer")
	}
	cfg.LogMaxFiles = maxFiles

	return cfg, nil
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	var errs []error

	if c.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required"))
	}

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.AuthJWKSURL == "" && !c.UseDevAuth() {
		errs = append(errs, errors.New("AUTH_JWKS_URL is required (AUTH_DEV_USER_ID is only honored in dev)"))
	}

	return errors.Join(errs...)
}

// UseDevAuth reports whether requests are attributed to the fixed dev user
func (c *Config) UseDevAuth() bool {
	return c.Environment == "dev" && c.AuthDevUserID != ""
}

// source resolves keys from the environment, then the optional config file
type source struct {
	file map[string]string
}

func (s *source) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	s.file = make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		s.file[k] = fmt.Sprint(v)
	}
	return nil
}

func (s *source) get(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

// tablePrefix returns the table prefix based on environment
func (s *source) tablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX
	if prefix := s.get("TABLE_PREFIX", ""); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}
