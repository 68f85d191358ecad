package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/display"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/parser"
	"github.com/balkashynov/wroklog/internal/session"
	"github.com/balkashynov/wroklog/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start today's work session",
	Long: `Start today's work session. Opens the interactive timer by default, use --no-ui for a simple start.

Examples:
  wroklog start          # Start and watch the timer
  wroklog start --no-ui  # Start without the timer UI`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		device, _ := cmd.Flags().GetString("device")
		sess, err := a.sessions.Start(cmd.Context(), owner, device)
		if err != nil {
			return err
		}

		noUI, _ := cmd.Flags().GetBool("no-ui")
		if noUI || !interactive() {
			fmt.Printf("⏱️  Started today's session\n")
			fmt.Printf("Started at: %s\n", localClock(sess.StartTime))
			fmt.Printf("Earliest stop: %s\n", localClock(sess.StartTime.Add(session.MinDuration)))
			return nil
		}
		return runTimer(cmd.Context(), a, owner, sess)
	}),
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active session",
	Long: `Stop the active session. A session must run for at least 4 hours.

Examples:
  wroklog stop             # Stop now
  wroklog stop --at 17:30  # Stop at 17:30 today`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		active, err := requireActive(cmd.Context(), a, owner)
		if err != nil {
			return err
		}

		at := a.sessions.Now()
		if raw, _ := cmd.Flags().GetString("at"); raw != "" {
			if at, err = parser.ParseInstant(raw, at, time.Local); err != nil {
				return err
			}
		}

		stopped, err := a.sessions.Stop(cmd.Context(), owner, active.ID, at)
		if errors.Is(err, apperr.ErrTooShort) {
			return fmt.Errorf("session has only run %s; it can be stopped after %s",
				display.Human(display.Elapsed(active.StartTime, at)), localClock(active.StartTime.Add(session.MinDuration)))
		}
		if err != nil {
			return err
		}
		fmt.Printf("⏹️  Stopped today's session\n")
		fmt.Printf("Session duration: %s\n", display.Human(stopped.Duration()))
		return nil
	}),
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Discard the active session",
	Long:  "Discard the active session without recording it. The day becomes free for a new session.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		active, err := requireActive(cmd.Context(), a, owner)
		if err != nil {
			return err
		}
		if _, err := a.sessions.Cancel(cmd.Context(), owner, active.ID); err != nil {
			return err
		}
		fmt.Println("🗑️  Session cancelled")
		return nil
	}),
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		sess, err := a.sessions.GetActive(cmd.Context(), owner)
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println("No active session")
			return nil
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch && interactive() {
			return runTimer(cmd.Context(), a, owner, sess)
		}

		now := a.sessions.Now()
		fmt.Printf("⏱️  Session running since %s\n", localClock(sess.StartTime))
		fmt.Printf("Elapsed time: %s\n", display.Clock(display.Elapsed(sess.StartTime, now)))
		if sess.ScheduledEnd != nil {
			fmt.Printf("Auto-stop: %s (%s)\n", localClock(*sess.ScheduledEnd), display.Until(*sess.ScheduledEnd, now))
		}
		return nil
	}),
}

func init() {
	startCmd.Flags().Bool("no-ui", false, "Start without the interactive timer")
	startCmd.Flags().String("device", "", "Device identifier recorded with the session")
	stopCmd.Flags().String("at", "", "Stop time (HH:MM, yyyy-mm-dd HH:MM, or RFC 3339)")
	statusCmd.Flags().BoolP("watch", "w", false, "Open the interactive timer")
}

func runTimer(ctx context.Context, a *app, owner string, sess *models.Session) error {
	stopped, err := tui.RunTimer(sess, a.sessions.Now, func() (*models.Session, error) {
		return a.sessions.Stop(ctx, owner, sess.ID, a.sessions.Now())
	})
	if err != nil {
		return err
	}
	if stopped != nil {
		fmt.Printf("⏹️  Stopped today's session\n")
		fmt.Printf("📊 Session duration: %s\n", display.Human(stopped.Duration()))
		return nil
	}
	fmt.Printf("\n💡 Session is still running.\n")
	fmt.Printf("   Use 'wroklog status' to check it or 'wroklog stop' to stop it.\n")
	return nil
}

func requireActive(ctx context.Context, a *app, owner string) (*models.Session, error) {
	sess, err := a.sessions.GetActive(ctx, owner)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("no active session")
	}
	return sess, nil
}

func currentUser() (string, error) {
	if cfg.CLI.User == "" {
		return "", errors.New("no user configured: set cli.user in the config file or $USER")
	}
	return cfg.CLI.User, nil
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

func localClock(t time.Time) string {
	return t.Local().Format("15:04:05")
}
