package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains HTTP listener settings.
type Server struct {
	Bind            string `toml:"bind"`
	ShutdownSeconds int    `toml:"shutdown_seconds"`
	LockPath        string `toml:"lock_path"`

	RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
	AllowedOrigins     []string `toml:"allowed_origins"`
}

// Database selects and configures the storage backend.
type Database struct {
	Driver string `toml:"driver"` // sqlite or postgres
	Path   string `toml:"path"`   // sqlite file
	DSN    string `toml:"dsn"`    // postgres connection string; falls back to env and keyring
	Debug  bool   `toml:"debug"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
	Debug bool   `toml:"debug"`
}

// Autosave contains the debounce window for document edits.
type Autosave struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Scheduler contains auto-stop sweep settings.
type Scheduler struct {
	SweepSeconds int `toml:"sweep_seconds"`
}

// Quota contains the monthly AI summary allowance.
type Quota struct {
	MonthlyLimit int `toml:"monthly_limit"`
}

// Media describes where embedded media objects live.
type Media struct {
	Dir       string `toml:"dir"`
	PublicURL string `toml:"public_url"`
}

// Summary contains the streaming text generator connection.
type Summary struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CLI contains defaults for local commands.
type CLI struct {
	User string `toml:"user"`
}

// Config encapsulates all configuration values for wroklog.
//
// Configuration sections by subsystem:
//   - Server: HTTP bind address and single-instance lock
//   - Database: sqlite file or postgres DSN
//   - Logging: log level and directory
//   - Autosave: debounce window for document edits
//   - Scheduler: auto-stop sweep interval
//   - Quota: monthly AI summary limit
//   - Media: local object store for embedded media
//   - Summary: streaming text generator endpoint
//   - CLI: default identity for local commands
type Config struct {
	Server    Server    `toml:"server"`
	Database  Database  `toml:"database"`
	Logging   Logging   `toml:"logging"`
	Autosave  Autosave  `toml:"autosave"`
	Scheduler Scheduler `toml:"scheduler"`
	Quota     Quota     `toml:"quota"`
	Media     Media     `toml:"media"`
	Summary   Summary   `toml:"summary"`
	CLI       CLI       `toml:"cli"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wroklog.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir, c.Media.Dir}
	if c.Database.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Database.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DebounceWindow returns the autosave quiescence period.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Autosave.DebounceMillis) * time.Millisecond
}

// SweepInterval returns how often the scheduler scans for due auto-stops.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Scheduler.SweepSeconds) * time.Second
}

// ShutdownTimeout bounds graceful HTTP shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
