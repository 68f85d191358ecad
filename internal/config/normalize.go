package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	c.normalizeSummary()
	c.normalizeCLI()
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Media.PublicURL = strings.TrimRight(strings.TrimSpace(c.Media.PublicURL), "/")
	origins := c.Server.AllowedOrigins[:0]
	for _, o := range c.Server.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.AllowedOrigins = origins
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Server.LockPath, err = expandPath(c.Server.LockPath); err != nil {
		return fmt.Errorf("server.lock_path: %w", err)
	}
	if c.Database.Path, err = expandPath(c.Database.Path); err != nil {
		return fmt.Errorf("database.path: %w", err)
	}
	if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Media.Dir, err = expandPath(c.Media.Dir); err != nil {
		return fmt.Errorf("media.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == "postgresql" {
		c.Database.Driver = DriverPostgres
	}
	if dsn := strings.TrimSpace(os.Getenv("WROKLOG_DATABASE_DSN")); dsn != "" {
		c.Database.DSN = dsn
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
}

func (c *Config) normalizeSummary() {
	if key := strings.TrimSpace(os.Getenv("WROKLOG_SUMMARY_API_KEY")); key != "" {
		c.Summary.APIKey = key
	}
	c.Summary.APIKey = strings.TrimSpace(c.Summary.APIKey)
	c.Summary.BaseURL = strings.TrimSpace(c.Summary.BaseURL)
	c.Summary.Model = strings.TrimSpace(c.Summary.Model)
}

func (c *Config) normalizeCLI() {
	c.CLI.User = strings.TrimSpace(c.CLI.User)
	if c.CLI.User == "" {
		c.CLI.User = strings.TrimSpace(os.Getenv("USER"))
	}
}
