package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/balkashynov/wroklog/internal/api"
	"github.com/balkashynov/wroklog/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the auto-stop scheduler",
	Long: `Run the HTTP API together with the auto-stop scheduler. Only one server
may run against a data directory at a time.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		if bind, _ := cmd.Flags().GetString("bind"); bind != "" {
			a.cfg.Server.Bind = bind
		}

		lock := flock.New(a.cfg.Server.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			return errors.New("another wroklog server is already running")
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logger.Warn("failed to release server lock", "error", err)
			}
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		recovered, err := a.scheduler.Recover(ctx)
		if err != nil {
			return fmt.Errorf("recover auto-stops: %w", err)
		}
		logger.Info("wroklog server starting", "bind", a.cfg.Server.Bind, "driver", a.store.Driver, "armed", recovered)

		server := api.NewServer(api.Deps{
			Store:     a.store,
			Sessions:  a.sessions,
			Scheduler: a.scheduler,
			Documents: a.documents,
			Quota:     a.quota,
			Summary:   a.summary,
			Media:     a.media,

			RateLimit:      a.cfg.Server.RateLimitPerMinute,
			AllowedOrigins: a.cfg.Server.AllowedOrigins,
		})

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return a.scheduler.Run(gctx)
		})
		g.Go(func() error {
			return server.Run(gctx, a.cfg.Server.Bind, a.cfg.ShutdownTimeout())
		})

		err = g.Wait()
		a.scheduler.DisarmAll()
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		logger.Info("wroklog server stopped")
		return err
	}),
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		fmt.Printf("✅ Database schema is up to date (%s)\n", a.store.Driver)
		return nil
	}),
}

func init() {
	serveCmd.Flags().String("bind", "", "Listen address (overrides server.bind)")
}
