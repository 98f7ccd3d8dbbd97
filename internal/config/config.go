package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the service
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Signer     SignerConfig
	Reconciler ReconcilerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SignerConfig holds the claim-authorization key material
type SignerConfig struct {
	PrivateKey string // hex-encoded secp256k1 key, 0x prefix optional
}

// ReconcilerConfig holds the orphan-relay repair loop settings
type ReconcilerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 3000),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "trusted_relay"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Signer: SignerConfig{
			PrivateKey: getEnv("SIGNER_PRIVATE_KEY", ""),
		},
		Reconciler: ReconcilerConfig{
			Interval:  time.Duration(getEnvInt("RECONCILE_INTERVAL_SECONDS", 30)) * time.Second,
			BatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Signer.PrivateKey == "" {
		return fmt.Errorf("signer private key is required")
	}

	if c.Reconciler.Interval <= 0 {
		return fmt.Errorf("invalid reconcile interval: %s", c.Reconciler.Interval)
	}

	if c.Reconciler.BatchSize <= 0 {
		return fmt.Errorf("invalid reconcile batch size: %d", c.Reconciler.BatchSize)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
