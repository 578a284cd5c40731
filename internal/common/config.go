// Package common provides shared configuration, logging, and version
// utilities for the restore request service.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the restore request service.
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Auth        AuthConfig     `toml:"auth"`
	ACP         ACPConfig      `toml:"acp"`
	Executor    ExecutorConfig `toml:"executor"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Storage backend names.
const (
	StorageBackendMemory = "memory"
	StorageBackendSQLite = "sqlite"
)

// StorageConfig selects and locates the snapshot store backend.
type StorageConfig struct {
	Backend string `toml:"backend"` // "memory" or "sqlite"
	Path    string `toml:"path"`    // sqlite database file
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	Audience     string `toml:"audience"`
	ServiceScope string `toml:"service_scope"`
	ClockSkew    string `toml:"clock_skew"` // duration string, default "30s"
}

// GetClockSkew parses the clock-skew tolerance for token expiry checks.
func (c *AuthConfig) GetClockSkew() time.Duration {
	d, err := time.ParseDuration(c.ClockSkew)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ACP resolver modes.
const (
	ACPModeLocal    = "local"
	ACPModeExternal = "external"
)

// ACPConfig configures the source-mapping resolver: either a static local map
// or the external auth control plane client, plus the cache TTLs.
type ACPConfig struct {
	Mode          string `toml:"mode"` // "local" or "external"
	BaseURL       string `toml:"base_url"`
	InternalToken string `toml:"internal_token"`
	TimeoutMS     int    `toml:"timeout_ms"`
	RateLimit     int    `toml:"rate_limit"` // requests per second

	PositiveTTL string `toml:"positive_ttl"` // duration string, default "5m"
	NegativeTTL string `toml:"negative_ttl"` // duration string, default "30s"

	Mappings []StaticMapping `toml:"mappings"`
}

// StaticMapping is one local-resolver entry.
type StaticMapping struct {
	TenantID         string   `toml:"tenant_id"`
	InstanceID       string   `toml:"instance_id"`
	Source           string   `toml:"source"`
	TenantState      string   `toml:"tenant_state"`
	EntitlementState string   `toml:"entitlement_state"`
	InstanceState    string   `toml:"instance_state"`
	AllowedServices  []string `toml:"allowed_services"`
}

// GetTimeout returns the absolute deadline applied to each ACP call.
func (c *ACPConfig) GetTimeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetPositiveTTL parses the positive cache TTL.
func (c *ACPConfig) GetPositiveTTL() time.Duration {
	d, err := time.ParseDuration(c.PositiveTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GetNegativeTTL parses the not-found cache TTL.
func (c *ACPConfig) GetNegativeTTL() time.Duration {
	d, err := time.ParseDuration(c.NegativeTTL)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ExecutorConfig declares the capabilities the downstream execution pipeline
// offers. Jobs requiring anything else are rejected at admission.
type ExecutorConfig struct {
	Capabilities []string `toml:"capabilities"`
}

// Missing returns the required capabilities the executor does not offer.
func (c *ExecutorConfig) Missing(required []string) []string {
	offered := make(map[string]struct{}, len(c.Capabilities))
	for _, capability := range c.Capabilities {
		offered[capability] = struct{}{}
	}
	var missing []string
	for _, req := range required {
		if _, ok := offered[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: StorageBackendMemory,
			Path:    "data/rrs.db",
		},
		Auth: AuthConfig{
			JWTSecret:    "dev-jwt-secret-change-in-production",
			Audience:     "rezilient:rrs",
			ServiceScope: "rrs",
			ClockSkew:    "30s",
		},
		ACP: ACPConfig{
			Mode:        ACPModeLocal,
			TimeoutMS:   5000,
			RateLimit:   10,
			PositiveTTL: "5m",
			NegativeTTL: "30s",
		},
		Executor: ExecutorConfig{
			Capabilities: []string{"restore_rows", "restore_media"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies RRS_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RRS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("RRS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("RRS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("RRS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("RRS_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if path := os.Getenv("RRS_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}

	if v := os.Getenv("RRS_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if v := os.Getenv("RRS_ACP_MODE"); v != "" {
		config.ACP.Mode = v
	}
	if v := os.Getenv("RRS_ACP_BASE_URL"); v != "" {
		config.ACP.BaseURL = v
	}
	if v := os.Getenv("RRS_ACP_INTERNAL_TOKEN"); v != "" {
		config.ACP.InternalToken = v
	}
}

// validateConfig rejects values that cannot be served.
func validateConfig(config *Config) error {
	switch config.Storage.Backend {
	case StorageBackendMemory, StorageBackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	switch config.ACP.Mode {
	case ACPModeLocal:
	case ACPModeExternal:
		if config.ACP.BaseURL == "" {
			return fmt.Errorf("acp.base_url is required in external mode")
		}
	default:
		return fmt.Errorf("unknown acp mode %q", config.ACP.Mode)
	}

	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
