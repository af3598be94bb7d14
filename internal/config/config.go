// Package config provides environment-based configuration for the tquery server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/latebit/tquery/internal/logging"
	"github.com/latebit/tquery/protocol"
)

// Config holds the server configuration.
type Config struct {
	Port           int
	LineAddr       string
	HTTPAddr       string
	DataDir        string
	MaxStreams     int
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	TLSCert        string
	TLSKey         string
	TokensFile     string
	RateLimit      float64
	RateBurst      int
	CacheSize      int
	LogFormat      string
	LogLevel       string
}

// NewConfig loads configuration from environment variables and validates
// it. Environment variables are prefixed with TQUERY_. An empty DataDir
// selects the embedded network.
func NewConfig() (*Config, error) {
	config := Load()
	return config, config.Validate()
}

// Load reads the environment without validating, for callers that apply
// their own overrides before calling Validate.
func Load() *Config {
	config := &Config{}

	config.Port = getEnvAsInt("TQUERY_PORT", protocol.DefaultPort)
	config.LineAddr = getEnv("TQUERY_LINE_ADDR", "127.0.0.1:12345")
	config.HTTPAddr = getEnv("TQUERY_HTTP_ADDR", "")
	config.DataDir = getEnv("TQUERY_DATA_DIR", "")
	config.MaxStreams = getEnvAsInt("TQUERY_MAX_STREAMS", 10)
	config.IdleTimeout = getEnvAsDuration("TQUERY_IDLE_TIMEOUT", 30*time.Second)
	config.RequestTimeout = getEnvAsDuration("TQUERY_REQUEST_TIMEOUT", 10*time.Second)
	config.TLSCert = getEnv("TQUERY_TLS_CERT", "")
	config.TLSKey = getEnv("TQUERY_TLS_KEY", "")
	config.TokensFile = getEnv("TQUERY_TOKENS", "")
	config.RateLimit = getEnvAsFloat("TQUERY_RATE_LIMIT", 50)
	config.RateBurst = getEnvAsInt("TQUERY_RATE_BURST", 100)
	config.CacheSize = getEnvAsInt("TQUERY_CACHE_SIZE", 1024)
	config.LogFormat = getEnv("TQUERY_LOG_FORMAT", "text")
	config.LogLevel = getEnv("TQUERY_LOG_LEVEL", "info")

	return config
}

// Validate reports the first setting the server cannot run with.
func (c *Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("TQUERY_TLS_CERT and TQUERY_TLS_KEY must be set together")
	}
	if c.MaxStreams < 1 {
		return fmt.Errorf("TQUERY_MAX_STREAMS must be positive, got %d", c.MaxStreams)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("TQUERY_RATE_BURST must be positive when rate limiting, got %d", c.RateBurst)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("TQUERY_LOG_LEVEL: %w", err)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("TQUERY_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// LoadDotEnv sets environment variables from a .env file. Variables that
// are already set keep their values.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
