// Package config loads, normalizes, and validates wroklog configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WROKLOG_DATABASE_DSN and WROKLOG_SUMMARY_API_KEY.
package config
