package config

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultConfigPath        = "~/.config/wroklog/config.toml"
	defaultBind              = "127.0.0.1:8080"
	defaultShutdownSeconds   = 10
	defaultLockPath          = "~/.local/share/wroklog/wroklog.lock"
	defaultRateLimit         = 100
	defaultDatabasePath      = "~/.local/share/wroklog/wroklog.db"
	defaultLogDir            = "~/.local/share/wroklog/logs"
	defaultLogLevel          = "info"
	defaultDebounceMillis    = 2000
	defaultSweepSeconds      = 60
	defaultMonthlyLimit      = 3
	defaultMediaDir          = "~/.local/share/wroklog/media"
	defaultMediaPublicURL    = "http://127.0.0.1:8080/media"
	defaultSummaryBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultSummaryModel      = "anthropic/claude-sonnet-4.5"
	defaultSummaryMaxTokens  = 1000
	defaultSummaryTimeoutSec = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:            defaultBind,
			ShutdownSeconds: defaultShutdownSeconds,
			LockPath:        defaultLockPath,

			RateLimitPerMinute: defaultRateLimit,
		},
		Database: Database{
			Driver: DriverSQLite,
			Path:   defaultDatabasePath,
		},
		Logging: Logging{
			Level: defaultLogLevel,
			Dir:   defaultLogDir,
		},
		Autosave: Autosave{
			DebounceMillis: defaultDebounceMillis,
		},
		Scheduler: Scheduler{
			SweepSeconds: defaultSweepSeconds,
		},
		Quota: Quota{
			MonthlyLimit: defaultMonthlyLimit,
		},
		Media: Media{
			Dir:       defaultMediaDir,
			PublicURL: defaultMediaPublicURL,
		},
		Summary: Summary{
			BaseURL:        defaultSummaryBaseURL,
			Model:          defaultSummaryModel,
			MaxTokens:      defaultSummaryMaxTokens,
			TimeoutSeconds: defaultSummaryTimeoutSec,
		},
	}
}
