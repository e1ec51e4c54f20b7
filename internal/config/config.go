// Package config provides configuration loading for the datalens server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// HTTP server port
	Port string `yaml:"port"`

	// SQLite database file
	DatabasePath string `yaml:"database_path"`

	// Request header carrying the authenticated user id, set by the auth proxy
	UserHeader string `yaml:"user_header"`

	// Bound on a single connector fetch
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Time allowed for in-flight requests on shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Inbound API rate limit
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Per-connector circuit breaker
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset"`

	// OpenTelemetry endpoint for observability
	OtelEndpoint  string `yaml:"otel_endpoint"`
	EnableMetrics bool   `yaml:"enable_metrics"`

	Providers Providers `yaml:"providers"`
}

// Providers configures the upstream data providers.
type Providers struct {
	AlphaVantageURL    string `yaml:"alphavantage_url"`
	AlphaVantageAPIKey string `yaml:"alphavantage_api_key"`

	// Free tier allows 5 requests per minute
	AlphaVantageRPM int `yaml:"alphavantage_rpm"`

	CoinGeckoURL string `yaml:"coingecko_url"`

	FREDURL    string `yaml:"fred_url"`
	FREDAPIKey string `yaml:"fred_api_key"`

	WorldBankURL string `yaml:"worldbank_url"`

	NOAAURL       string `yaml:"noaa_url"`
	NOAAUserAgent string `yaml:"noaa_user_agent"`

	UNDataURL      string `yaml:"undata_url"`
	UNDataMaxPages int    `yaml:"undata_max_pages"`
}

// Default returns the configuration used when nothing is set. Empty provider
// URLs select each provider's public endpoint.
func Default() Config {
	return Config{
		Port:            "8080",
		DatabasePath:    "data/datalens.db",
		UserHeader:      "X-User-Id",
		FetchTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		BreakerFailures: 5,
		BreakerReset:    time.Minute,
		EnableMetrics:   true,
		Providers: Providers{
			AlphaVantageAPIKey: "demo",
			AlphaVantageRPM:    5,
			UNDataMaxPages:     50,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if any, then environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path, ok := GetEnv("CONFIG_FILE"); ok && path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.overlayEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) overlayEnv() {
	c.Port = GetEnvOrDefault("PORT", c.Port)
	c.DatabasePath = GetEnvOrDefault("DATABASE_PATH", c.DatabasePath)
	c.UserHeader = GetEnvOrDefault("USER_HEADER", c.UserHeader)
	c.FetchTimeout = GetEnvAsDuration("FETCH_TIMEOUT", c.FetchTimeout)
	c.ShutdownTimeout = GetEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.RateLimitRPS = GetEnvAsFloat("RATE_LIMIT_RPS", c.RateLimitRPS)
	c.RateLimitBurst = GetEnvAsInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.BreakerFailures = GetEnvAsInt("BREAKER_FAILURES", c.BreakerFailures)
	c.BreakerReset = GetEnvAsDuration("BREAKER_RESET", c.BreakerReset)
	c.OtelEndpoint = GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", c.OtelEndpoint)
	c.EnableMetrics = GetEnvAsBool("ENABLE_METRICS", c.EnableMetrics)

	p := &c.Providers
	p.AlphaVantageURL = GetEnvOrDefault("ALPHA_VANTAGE_URL", p.AlphaVantageURL)
	p.AlphaVantageAPIKey = GetEnvOrDefault("ALPHA_VANTAGE_API_KEY", p.AlphaVantageAPIKey)
	p.AlphaVantageRPM = GetEnvAsInt("ALPHA_VANTAGE_RPM", p.AlphaVantageRPM)
	p.CoinGeckoURL = GetEnvOrDefault("COINGECKO_URL", p.CoinGeckoURL)
	p.FREDURL = GetEnvOrDefault("FRED_URL", p.FREDURL)
	p.FREDAPIKey = GetEnvOrDefault("FRED_API_KEY", p.FREDAPIKey)
	p.WorldBankURL = GetEnvOrDefault("WORLDBANK_URL", p.WorldBankURL)
	p.NOAAURL = GetEnvOrDefault("NOAA_URL", p.NOAAURL)
	p.NOAAUserAgent = GetEnvOrDefault("NOAA_USER_AGENT", p.NOAAUserAgent)
	p.UNDataURL = GetEnvOrDefault("UNDATA_URL", p.UNDataURL)
	p.UNDataMaxPages = GetEnvAsInt("UNDATA_MAX_PAGES", p.UNDataMaxPages)
}

// Validate checks that the configuration can start a server.
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is required"))
	}
	if c.UserHeader == "" {
		errs = append(errs, errors.New("user_header is required"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("fetch_timeout must be positive"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("rate_limit_rps and rate_limit_burst must be positive"))
	}
	if c.BreakerFailures <= 0 {
		errs = append(errs, errors.New("breaker_failures must be positive"))
	}
	if c.Providers.AlphaVantageRPM <= 0 {
		errs = append(errs, errors.New("providers.alphavantage_rpm must be positive"))
	}
	return errors.Join(errs...)
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		logrus.Warnf("Invalid boolean in %s, using default: %v", key, defaultValue)
	}
	return defaultValue
}
