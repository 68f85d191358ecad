package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/balkashynov/wroklog/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("USER", "alice")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDB := filepath.Join(tempHome, ".local", "share", "wroklog", "wroklog.db")
	if cfg.Database.Path != wantDB {
		t.Fatalf("unexpected database path: got %q want %q", cfg.Database.Path, wantDB)
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Fatalf("unexpected driver: %q", cfg.Database.Driver)
	}
	if cfg.DebounceWindow() != 2*time.Second {
		t.Fatalf("unexpected debounce window: %v", cfg.DebounceWindow())
	}
	if cfg.Quota.MonthlyLimit != 3 {
		t.Fatalf("unexpected monthly limit: %d", cfg.Quota.MonthlyLimit)
	}
	if cfg.Server.RateLimitPerMinute != 100 || len(cfg.Server.AllowedOrigins) != 0 {
		t.Fatalf("unexpected server limits: %+v", cfg.Server)
	}
	if cfg.CLI.User != "alice" {
		t.Fatalf("expected CLI user from $USER, got %q", cfg.CLI.User)
	}
}

func TestLoadFileOverridesAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WROKLOG_DATABASE_DSN", "postgres://db.internal/wroklog?sslmode=disable")

	dir := t.TempDir()
	path := filepath.Join(dir, "wroklog.toml")
	payload := map[string]any{
		"database": map[string]any{"driver": "postgresql"},
		"autosave": map[string]any{"debounce_ms": 500},
		"media":    map[string]any{"public_url": "https://cdn.example.com/media/"},
		"server":   map[string]any{"allowed_origins": []string{" https://app.example.com/ ", ""}},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		t.Fatalf("driver alias not normalized: %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://db.internal/wroklog?sslmode=disable" {
		t.Fatalf("dsn not taken from env: %q", cfg.Database.DSN)
	}
	if cfg.DebounceWindow() != 500*time.Millisecond {
		t.Fatalf("debounce override ignored: %v", cfg.DebounceWindow())
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://app.example.com" {
		t.Fatalf("origins not normalized: %q", cfg.Server.AllowedOrigins)
	}
	if cfg.Media.PublicURL != "https://cdn.example.com/media" {
		t.Fatalf("public url not trimmed: %q", cfg.Media.PublicURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"zero debounce", func(c *config.Config) { c.Autosave.DebounceMillis = 0 }, "debounce_ms"},
		{"zero sweep", func(c *config.Config) { c.Scheduler.SweepSeconds = 0 }, "sweep_seconds"},
		{"negative quota", func(c *config.Config) { c.Quota.MonthlyLimit = -1 }, "monthly_limit"},
		{"origin without scheme", func(c *config.Config) { c.Server.AllowedOrigins = []string{"app.example.com"} }, "allowed_origins"},
		{"negative rate limit", func(c *config.Config) { c.Server.RateLimitPerMinute = -5 }, "rate_limit_per_minute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("Load(sample) exists=%v err=%v", exists, err)
	}
}
