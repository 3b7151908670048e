package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		AutoMigrate     bool   `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret" env:"JWT_SECRET"`
		Issuer string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Auth struct {
		Enabled bool `yaml:"enabled" env:"AUTH_ENABLED"`
		// ManagerRoles may mutate the prerequisite graph and grant overrides.
		ManagerRoles []string `yaml:"manager_roles" env:"AUTH_MANAGER_ROLES"`
	} `yaml:"auth"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Enrollment struct {
		MaxTxRetries          int           `yaml:"max_tx_retries" env:"ENROLLMENT_MAX_TX_RETRIES"`
		BulkConcurrency       int           `yaml:"bulk_concurrency" env:"ENROLLMENT_BULK_CONCURRENCY"`
		RequireOverrideReason bool          `yaml:"require_override_reason" env:"ENROLLMENT_REQUIRE_OVERRIDE_REASON"`
		RequestTimeout        time.Duration `yaml:"request_timeout" env:"ENROLLMENT_REQUEST_TIMEOUT"`
	} `yaml:"enrollment"`

	Seed struct {
		Demo bool `yaml:"demo" env:"SEED_DEMO"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; defaults plus environment are enough to boot.
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Driver = DriverPostgres
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "registrar"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.AutoMigrate = true

	config.JWT.Issuer = "registrar"

	config.Auth.Enabled = true
	config.Auth.ManagerRoles = []string{"ADMIN", "INSTRUCTOR"}

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Enrollment.MaxTxRetries = 5
	config.Enrollment.BulkConcurrency = 1
	config.Enrollment.RequireOverrideReason = true
	config.Enrollment.RequestTimeout = 10 * time.Second
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database connection lifetime: %w", err)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Auth.Enabled && config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required when auth is enabled")
	}

	if config.Enrollment.MaxTxRetries < 0 {
		return fmt.Errorf("enrollment.max_tx_retries must not be negative")
	}
	if config.Enrollment.BulkConcurrency < 1 {
		return fmt.Errorf("enrollment.bulk_concurrency must be at least 1")
	}
	if config.Enrollment.RequestTimeout <= 0 {
		return fmt.Errorf("enrollment.request_timeout must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsManagerRole reports whether role may manage the catalog and grant overrides
func (c *Config) IsManagerRole(role string) bool {
	for _, r := range c.Auth.ManagerRoles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
