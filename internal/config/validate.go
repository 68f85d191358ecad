package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if c.Server.Bind == "" {
		return errors.New("server.bind must be set")
	}
	if c.Server.RateLimitPerMinute < 0 {
		return errors.New("server.rate_limit_per_minute must not be negative")
	}
	for _, o := range c.Server.AllowedOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("server.allowed_origins: %q must be \"*\" or an http(s) origin", o)
		}
	}
	if c.Autosave.DebounceMillis <= 0 {
		return errors.New("autosave.debounce_ms must be positive")
	}
	if c.Scheduler.SweepSeconds <= 0 {
		return errors.New("scheduler.sweep_seconds must be positive")
	}
	if c.Quota.MonthlyLimit < 0 {
		return errors.New("quota.monthly_limit must not be negative")
	}
	if c.Media.PublicURL != "" {
		if _, err := url.ParseRequestURI(c.Media.PublicURL); err != nil {
			return fmt.Errorf("media.public_url: %w", err)
		}
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		// DSN may still come from the OS keyring at open time.
	default:
		return fmt.Errorf("database.driver %q is not supported (use %q or %q)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	return nil
}
