package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/backtrack/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

database:
  driver: postgres
  dsn: "postgres://localhost:5432/backtrack"

cache:
  ttl: 30s

archive:
  type: localfs
  path: "/tmp/backtrack/archive"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %s", cfg.Cache.TTL)
	}
	if cfg.Archive.Path != "/tmp/backtrack/archive" {
		t.Errorf("expected archive path, got %s", cfg.Archive.Path)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  port: 8081
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Goals.RefreshConcurrency != 1 {
		t.Errorf("expected default refresh concurrency 1, got %d", cfg.Goals.RefreshConcurrency)
	}
	if cfg.MarketData.DefaultLimit != 500 {
		t.Errorf("expected default limit 500, got %d", cfg.MarketData.DefaultLimit)
	}
}

func TestLoad_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_BACKTRACK_KEY", "secret")
	cfgPath := writeConfig(t, `
server:
  api_key: "${TEST_BACKTRACK_KEY}"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("expected api key from env, got %q", cfg.Server.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 60*time.Second {
		t.Errorf("expected default cache ttl 60s, got %s", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(c *Config)) Config {
		c := *Defaults()
		mut(&c)
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr *core.Error
	}{
		{
			name: "valid config",
			cfg:  valid(func(c *Config) {}),
		},
		{
			name:    "invalid port - zero",
			cfg:     valid(func(c *Config) { c.Server.Port = 0 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "invalid port - too high",
			cfg:     valid(func(c *Config) { c.Server.Port = 70000 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "unknown database driver",
			cfg:     valid(func(c *Config) { c.Database.Driver = "oracle" }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "missing dsn",
			cfg:     valid(func(c *Config) { c.Database.DSN = "" }),
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "zero refresh concurrency",
			cfg:     valid(func(c *Config) { c.Goals.RefreshConcurrency = 0 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "limit out of range",
			cfg:     valid(func(c *Config) { c.MarketData.DefaultLimit = 5000 }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "redis cache without addr",
			cfg:     valid(func(c *Config) { c.Cache.Type = "redis" }),
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "claude without key",
			cfg:     valid(func(c *Config) { c.LLM.Provider = "claude" }),
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "unknown llm provider",
			cfg:     valid(func(c *Config) { c.LLM.Provider = "bard" }),
			wantErr: core.ErrConfigInvalid,
		},
		{
			name:    "s3 archive without bucket",
			cfg:     valid(func(c *Config) { c.Archive.Type = "s3" }),
			wantErr: core.ErrConfigMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %s", err, tt.wantErr.Code)
			}
		})
	}
}
