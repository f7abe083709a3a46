package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv      string `env:"GO_ENV" default:"development"`
	ServerName string `env:"SERVER_NAME" default:"Blackjack Dealer"`

	// Game server (TCP)
	TCPHost     string        `env:"TCP_HOST" default:""`
	TCPPort     int           `env:"TCP_PORT" default:"0"` // 0 = OS-assigned
	ReadTimeout time.Duration `env:"READ_TIMEOUT" default:"60s"`
	MaxSessions int           `env:"MAX_SESSIONS" default:"1000"`
	AcceptRate  float64       `env:"ACCEPT_RATE" default:"50"`
	AcceptBurst int           `env:"ACCEPT_BURST" default:"100"`
	CardPacing  time.Duration `env:"CARD_PACING" default:"0s"`

	// Discovery (UDP)
	DiscoveryPort int           `env:"DISCOVERY_PORT" default:"13122"`
	BroadcastAddr string        `env:"BROADCAST_ADDR" default:"255.255.255.255"`
	OfferInterval time.Duration `env:"OFFER_INTERVAL" default:"1s"`

	// Stats reporting
	HTTPPort             int           `env:"HTTP_PORT" default:"8080"` // 0 disables the API
	RedisURL             string        `env:"REDIS_URL" default:""`     // empty disables publishing
	StatsPublishInterval time.Duration `env:"STATS_PUBLISH_INTERVAL" default:"5s"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"json"`
}

// LoadConfig loads configuration from .env and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		// If .env file doesn't exist, that's OK - we can still use system env vars
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: .env file not loaded: %v\n", err)
		}
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.ServerName, "SERVER_NAME", "Blackjack Dealer"); err != nil {
		return nil, err
	}

	// Game server
	if err := loadEnvString(&config.TCPHost, "TCP_HOST", ""); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.TCPPort, "TCP_PORT", 0); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ReadTimeout, "READ_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.MaxSessions, "MAX_SESSIONS", 1000); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.AcceptRate, "ACCEPT_RATE", 50); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.AcceptBurst, "ACCEPT_BURST", 100); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.CardPacing, "CARD_PACING", 0); err != nil {
		return nil, err
	}

	// Discovery
	if err := loadEnvInt(&config.DiscoveryPort, "DISCOVERY_PORT", 13122); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.BroadcastAddr, "BROADCAST_ADDR", "255.255.255.255"); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.OfferInterval, "OFFER_INTERVAL", time.Second); err != nil {
		return nil, err
	}

	// Stats reporting
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.StatsPublishInterval, "STATS_PUBLISH_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "json"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	// 0 is allowed where the OS may pick or the feature is off
	if c.TCPPort < 0 || c.TCPPort > 65535 {
		errors = append(errors, "TCP_PORT must be between 0 and 65535")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 0 and 65535")
	}
	if c.DiscoveryPort < 1 || c.DiscoveryPort > 65535 {
		errors = append(errors, "DISCOVERY_PORT must be between 1 and 65535")
	}

	if strings.TrimSpace(c.ServerName) == "" {
		errors = append(errors, "SERVER_NAME must not be empty")
	}
	if !utf8.ValidString(c.ServerName) || strings.HasSuffix(c.ServerName, "\x00") {
		errors = append(errors, "SERVER_NAME must be valid UTF-8 without trailing NUL")
	}
	if c.ReadTimeout <= 0 {
		errors = append(errors, "READ_TIMEOUT must be positive")
	}
	if c.OfferInterval <= 0 {
		errors = append(errors, "OFFER_INTERVAL must be positive")
	}
	if c.MaxSessions < 1 {
		errors = append(errors, "MAX_SESSIONS must be at least 1")
	}
	if c.AcceptRate < 0 {
		errors = append(errors, "ACCEPT_RATE must not be negative")
	}
	if c.CardPacing < 0 {
		errors = append(errors, "CARD_PACING must not be negative")
	}
	if c.RedisURL != "" && c.StatsPublishInterval <= 0 {
		errors = append(errors, "STATS_PUBLISH_INTERVAL must be positive when REDIS_URL is set")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
