package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	if err := os.Setenv("SERVER_PORT", "9090"); err != nil {
		t.Fatalf("Failed to set SERVER_PORT: %v", err)
	}
	if err := os.Setenv("QUEUE_STALL_INTERVAL", "45s"); err != nil {
		t.Fatalf("Failed to set QUEUE_STALL_INTERVAL: %v", err)
	}
	if err := os.Setenv("REDIS_HOST", "redis-test"); err != nil {
		t.Fatalf("Failed to set REDIS_HOST: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("SERVER_PORT")
		_ = os.Unsetenv("QUEUE_STALL_INTERVAL")
		_ = os.Unsetenv("REDIS_HOST")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %v, want %v", cfg.Server.Port, "9090")
	}

	if cfg.Queue.StallInterval != 45*time.Second {
		t.Errorf("Queue.StallInterval = %v, want %v", cfg.Queue.StallInterval, 45*time.Second)
	}

	if cfg.Database.Redis.Host != "redis-test" {
		t.Errorf("Database.Redis.Host = %v, want %v", cfg.Database.Redis.Host, "redis-test")
	}

	// maxStalledCount defaults to 1: a stalled job is retried at most once
	if cfg.Queue.MaxStalledCount != 1 {
		t.Errorf("Queue.MaxStalledCount = %v, want 1", cfg.Queue.MaxStalledCount)
	}
}

func TestPostgresEnabled(t *testing.T) {
	cfg := &PostgresConfig{}
	if cfg.Enabled() {
		t.Error("Enabled() should be false when host is empty")
	}

	cfg.Host = "localhost"
	if !cfg.Enabled() {
		t.Error("Enabled() should be true when host is set")
	}
}

func TestChainConfigs(t *testing.T) {
	if err := os.Setenv("ENABLED_CHAINS", "base_sepolia,polygon"); err != nil {
		t.Fatalf("Failed to set ENABLED_CHAINS: %v", err)
	}
	if err := os.Setenv("BASE_SEPOLIA_CHAIN_ID", "84532"); err != nil {
		t.Fatalf("Failed to set BASE_SEPOLIA_CHAIN_ID: %v", err)
	}
	if err := os.Setenv("BASE_SEPOLIA_RPC_URL", "https://sepolia.base.org"); err != nil {
		t.Fatalf("Failed to set BASE_SEPOLIA_RPC_URL: %v", err)
	}
	defer func() {
		_ = os.Unsetenv("ENABLED_CHAINS")
		_ = os.Unsetenv("BASE_SEPOLIA_CHAIN_ID")
		_ = os.Unsetenv("BASE_SEPOLIA_RPC_URL")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if len(cfg.Chains.Enabled) != 2 {
		t.Fatalf("len(Chains.Enabled) = %d, want 2", len(cfg.Chains.Enabled))
	}

	base, ok := cfg.Chains.Chains["base_sepolia"]
	if !ok {
		t.Fatal("missing base_sepolia chain config")
	}
	if base.ChainID != "84532" {
		t.Errorf("ChainID = %v, want 84532", base.ChainID)
	}
	if base.RPCURL != "https://sepolia.base.org" {
		t.Errorf("RPCURL = %v", base.RPCURL)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"returns parsed value", "7", 3, 7},
		{"returns default when unset", "", 3, 3},
		{"returns default on parse error", "abc", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_INT_KEY"
			if tt.envValue != "" {
				if err := os.Setenv(key, tt.envValue); err != nil {
					t.Fatalf("Setenv: %v", err)
				}
				defer func() { _ = os.Unsetenv(key) }()
			}

			if got := getEnvAsInt(key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnvAsInt() = %d, want %d", got, tt.want)
			}
		})
	}
}
