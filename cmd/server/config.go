package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/ic-768/multiplayer-beats/internal/gateway"
)

// Config holds server settings. Values come from an optional YAML file with
// environment variables taking precedence.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	Websocket struct {
		WriteTimeoutSec int `yaml:"write_timeout_sec"`
		ReadTimeoutSec  int `yaml:"read_timeout_sec"`
		PingIntervalSec int `yaml:"ping_interval_sec"`
		RateLimit       int `yaml:"rate_limit"`
		RateBurst       int `yaml:"rate_burst"`
	} `yaml:"websocket"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML config file when present and applies env
// overrides. A missing file is fine; everything has a default.
func loadConfig(path string) (*Config, error) {
	var config Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.Port = getEnv("PORT", defaultString(config.Port, "8080"))
	config.LogLevel = getEnv("LOG_LEVEL", defaultString(config.LogLevel, "info"))
	config.Websocket.RateLimit = getEnvAsInt("WS_RATE_LIMIT", defaultInt(config.Websocket.RateLimit, 0))
	config.Websocket.RateBurst = getEnvAsInt("WS_RATE_BURST", defaultInt(config.Websocket.RateBurst, 0))

	return &config, nil
}

// connConfig maps the file settings onto the gateway's transport config,
// keeping gateway defaults for anything unset.
func (c *Config) connConfig() gateway.ConnConfig {
	cfg := gateway.DefaultConnConfig()
	if c.Websocket.WriteTimeoutSec > 0 {
		cfg.WriteTimeout = time.Duration(c.Websocket.WriteTimeoutSec) * time.Second
	}
	if c.Websocket.ReadTimeoutSec > 0 {
		cfg.ReadTimeout = time.Duration(c.Websocket.ReadTimeoutSec) * time.Second
	}
	if c.Websocket.PingIntervalSec > 0 {
		cfg.PingInterval = time.Duration(c.Websocket.PingIntervalSec) * time.Second
	}
	if c.Websocket.RateLimit > 0 {
		cfg.RateLimit = rate.Limit(c.Websocket.RateLimit)
	}
	if c.Websocket.RateBurst > 0 {
		cfg.RateBurst = c.Websocket.RateBurst
	}
	return cfg
}

func defaultString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func defaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}
