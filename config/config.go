// Package config loads and validates the service configuration from the environment
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Environment is the deployment environment the service runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

var validEnvs = []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment maps an ENV value, including the long aliases, to an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, value)
}

// Dataset file extensions the catalog loader understands
var supportedCatalogExtensions = []string{".json", ".yaml", ".yml", ".parquet"}

// Config holds all application configuration
type Config struct {
	Port              string      `envconfig:"PORT" default:"5001"`
	Address           string      `envconfig:"ADDRESS" default:"127.0.0.1"`
	Env               Environment `envconfig:"ENV" default:"dev"`
	LogLevel          string      `envconfig:"LOG_LEVEL" default:"info"`
	LogDir            string      `envconfig:"LOG_DIR" default:"logs"`
	LogRetentionWeeks int         `envconfig:"LOG_RETENTION_WEEKS" default:"4"`
	MaxLogFileSize    int64       `envconfig:"MAX_LOG_FILE_SIZE" default:"104857600"` // 100MB
	MaxRequestBody    int64       `envconfig:"MAX_REQUEST_BODY" default:"1048576"`    // 1MB
	MaxHeaderSize     int64       `envconfig:"MAX_HEADER_SIZE" default:"1048576"`     // 1MB

	CatalogPath string `envconfig:"CATALOG_PATH" default:"data/medicines.json"`

	// PriceSeed seeds the price generator, 0 picks a random seed
	PriceSeed uint64 `envconfig:"PRICE_SEED" default:"0"`

	RateLimitRate     int64 `envconfig:"RATE_LIMIT_RATE" default:"3"` // tokens per second
	RateLimitCapacity int64 `envconfig:"RATE_LIMIT_CAPACITY" default:"1000"`
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	env, err := ParseEnvironment(string(cfg.Env))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}
	cfg.Env = env
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs behind the production proxy
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateCatalogPath(cfg.CatalogPath); err != nil {
		return fmt.Errorf("invalid CATALOG_PATH: %w", err)
	}

	if cfg.RateLimitRate <= 0 || cfg.RateLimitCapacity <= 0 {
		return fmt.Errorf("invalid rate limit: RATE_LIMIT_RATE and RATE_LIMIT_CAPACITY must be positive")
	}

	if cfg.RateLimitRate > cfg.RateLimitCapacity {
		return fmt.Errorf("invalid rate limit: rate %d exceeds capacity %d", cfg.RateLimitRate, cfg.RateLimitCapacity)
	}

	return nil
}

func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

func validateEnv(env Environment) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 {
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

func validateCatalogPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("CATALOG_PATH cannot be empty")
	}

	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedCatalogExtensions {
		if ext == supported {
			return nil
		}
	}

	return fmt.Errorf("unsupported catalog format %q, expected one of %v", ext, supportedCatalogExtensions)
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"CATALOG_PATH",
		"PRICE_SEED",
		"RATE_LIMIT_RATE",
		"RATE_LIMIT_CAPACITY",
	}
}

// UnsetEnvVars returns the expected environment variables that are not set
// and therefore take their default value
func UnsetEnvVars() []string {
	var unset []string
	for _, name := range GetEnvVars() {
		if _, ok := os.LookupEnv(name); !ok {
			unset = append(unset, name)
		}
	}
	return unset
}
