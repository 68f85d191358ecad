package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/clock"
	"github.com/balkashynov/wroklog/internal/config"
	"github.com/balkashynov/wroklog/internal/content"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/document"
	"github.com/balkashynov/wroklog/internal/keyring"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/media"
	"github.com/balkashynov/wroklog/internal/quota"
	"github.com/balkashynov/wroklog/internal/scheduler"
	"github.com/balkashynov/wroklog/internal/session"
	"github.com/balkashynov/wroklog/internal/summary"
)

// app holds the services a command works with.
type app struct {
	cfg       *config.Config
	store     *db.Store
	sessions  *session.Manager
	scheduler *scheduler.Scheduler
	parser    *content.Parser
	media     *media.LocalStore
	deleter   *media.Deleter
	documents *document.Pipeline
	quota     *quota.Gate
	summary   *summary.Service
}

// openApp opens the database, applies migrations and wires the services.
func openApp(cfg *config.Config) (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	dbCfg := cfg.Database
	if dbCfg.Driver == config.DriverPostgres {
		dbCfg.DSN = keyring.Fallback(dbCfg.DSN, keyring.DatabaseDSN)
	}
	store, err := db.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	clk := clock.Real{}
	a := &app{cfg: cfg, store: store}

	a.sessions = session.NewManager(store, clk)
	a.scheduler = scheduler.New(store, a.sessions, clk, scheduler.WithSweepInterval(cfg.SweepInterval()))
	a.sessions.AttachScheduler(a.scheduler)

	parser, err := content.NewParser(cfg.Media.PublicURL)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.parser = parser
	a.media, err = media.NewLocalStore(cfg.Media.Dir, cfg.Media.PublicURL)
	if err != nil {
		store.Close()
		return nil, err
	}
	a.deleter = media.NewDeleter(a.media)
	a.documents = document.NewPipeline(store, parser,
		document.WithClock(clk),
		document.WithDebounce(cfg.DebounceWindow()),
		document.WithDeleter(a.deleter),
	)

	a.quota = quota.NewGate(store.Usage, clk, cfg.Quota.MonthlyLimit)

	var generator summary.Generator
	chat := summary.NewChatGenerator(summary.ChatConfig{
		APIKey:         keyring.Fallback(cfg.Summary.APIKey, keyring.SummaryAPIKey),
		BaseURL:        cfg.Summary.BaseURL,
		Model:          cfg.Summary.Model,
		MaxTokens:      cfg.Summary.MaxTokens,
		TimeoutSeconds: cfg.Summary.TimeoutSeconds,
	})
	if chat != nil {
		generator = chat
	} else {
		logger.Debug("summary generator disabled: no API key configured")
	}
	a.summary = summary.NewService(store.Documents, parser, a.quota, generator)

	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()
	if err := a.documents.Close(ctx); err != nil {
		logger.Warn("flush pending edits", "error", err)
	}
	a.deleter.Wait()
	if err := a.store.Close(); err != nil {
		logger.Warn("close database", "error", err)
	}
}

// withApp wraps a command function to open the app first.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, a, args)
	}
}
