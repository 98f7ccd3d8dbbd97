package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SIGNER_PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" || cfg.Database.Port != 5432 {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Database.DBName != "trusted_relay" {
		t.Errorf("expected default db name trusted_relay, got %s", cfg.Database.DBName)
	}
	if cfg.Reconciler.Interval != 30*time.Second {
		t.Errorf("expected default interval 30s, got %s", cfg.Reconciler.Interval)
	}
	if cfg.Reconciler.BatchSize != 100 {
		t.Errorf("expected default batch size 100, got %d", cfg.Reconciler.BatchSize)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SIGNER_PRIVATE_KEY", "aa")
	t.Setenv("SERVER_PORT", "8088")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("RECONCILE_INTERVAL_SECONDS", "5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected host db.internal, got %s", cfg.Database.Host)
	}
	if cfg.Reconciler.Interval != 5*time.Second {
		t.Errorf("expected interval 5s, got %s", cfg.Reconciler.Interval)
	}
}

func TestLoadConfigMissingSignerKey(t *testing.T) {
	t.Setenv("SIGNER_PRIVATE_KEY", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when signer key is unset")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 3000},
			Database: DatabaseConfig{Host: "localhost"},
			Signer:   SignerConfig{PrivateKey: "aa"},
			Reconciler: ReconcilerConfig{
				Interval:  30 * time.Second,
				BatchSize: 100,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, true},
		{"missing signer key", func(c *Config) { c.Signer.PrivateKey = "" }, true},
		{"bad interval", func(c *Config) { c.Reconciler.Interval = 0 }, true},
		{"bad batch size", func(c *Config) { c.Reconciler.BatchSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
