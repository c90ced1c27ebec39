package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kitbuilder587/brave-search/internal/search"
)

var (
	ErrMissingAPIKey    = errors.New("BRAVE_API_KEY is required")
	ErrNoEndpoints      = errors.New("at least one search endpoint must be enabled")
	ErrInvalidInterval  = errors.New("PACER_MIN_INTERVAL_MS must be positive")
	ErrInvalidTimeout   = errors.New("BRAVE_TIMEOUT_SEC must be positive")
	ErrInvalidEndpoints = errors.New("endpoint base url is empty")
)

type Config struct {
	Brave    BraveConfig
	Pacer    PacerConfig
	Database DatabaseConfig
	Metrics  MetricsConfig
	Log      LogConfig
}

type BraveConfig struct {
	APIKey    string
	Timeout   time.Duration
	Endpoints []EndpointConfig
}

type EndpointConfig struct {
	Kind    search.Kind
	Enabled bool
	BaseURL string
}

type PacerConfig struct {
	MinInterval time.Duration
}

// DatabaseConfig - пустой URL выключает историю запросов
type DatabaseConfig struct {
	URL string
}

type MetricsConfig struct {
	Addr string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Brave: BraveConfig{
			APIKey:  os.Getenv("BRAVE_API_KEY"),
			Timeout: time.Duration(getEnvIntOrDefault("BRAVE_TIMEOUT_SEC", 30)) * time.Second,
		},
		Pacer: PacerConfig{
			MinInterval: time.Duration(getEnvIntOrDefault("PACER_MIN_INTERVAL_MS", 1000)) * time.Millisecond,
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	for _, ep := range search.Endpoints() {
		prefix := "BRAVE_" + strings.ToUpper(string(ep.Kind))
		cfg.Brave.Endpoints = append(cfg.Brave.Endpoints, EndpointConfig{
			Kind:    ep.Kind,
			Enabled: getEnvBoolOrDefault(prefix+"_ENABLED", true),
			BaseURL: getEnvOrDefault(prefix+"_URL", ep.BaseURL),
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Brave.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Brave.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Pacer.MinInterval <= 0 {
		return ErrInvalidInterval
	}
	if len(c.EnabledEndpoints()) == 0 {
		return ErrNoEndpoints
	}
	for _, ep := range c.Brave.Endpoints {
		if ep.Enabled && ep.BaseURL == "" {
			return ErrInvalidEndpoints
		}
	}
	return nil
}

// EnabledEndpoints - дескрипторы включенных вариантов с учетом переопределенных URL
func (c *Config) EnabledEndpoints() []search.Endpoint {
	var out []search.Endpoint
	for _, ec := range c.Brave.Endpoints {
		if !ec.Enabled {
			continue
		}
		ep, err := search.DefaultEndpoint(ec.Kind)
		if err != nil {
			continue
		}
		out = append(out, ep.WithBaseURL(ec.BaseURL))
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
