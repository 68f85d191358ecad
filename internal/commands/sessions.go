package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/display"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/parser"
	"github.com/balkashynov/wroklog/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"ls"},
	Short:   "List sessions",
	Long:    "List sessions, newest first, with optional status and date filters",
	Args:    cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		params := session.ListParams{}
		params.Status, _ = cmd.Flags().GetString("status")
		params.Page, _ = cmd.Flags().GetInt("page")
		params.PerPage, _ = cmd.Flags().GetInt("limit")

		now := a.sessions.Now()
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			if params.FromDate, err = parser.ParseDay(from, now, time.UTC); err != nil {
				return err
			}
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			if params.ToDate, err = parser.ParseDay(to, now, time.UTC); err != nil {
				return err
			}
		}

		page, err := a.sessions.List(cmd.Context(), owner, params)
		if err != nil {
			return err
		}
		if len(page.Sessions) == 0 {
			fmt.Println("No sessions found. Use 'wroklog start' to begin today's session.")
			return nil
		}

		fmt.Println(renderSessions(page.Sessions, now))
		fmt.Printf("Page %d, %d of %d sessions\n", page.Page, len(page.Sessions), page.Total)
		return nil
	}),
}

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Record a session after the fact",
	Long: `Record a completed session that was not tracked live. It must last
between 4 and 24 hours and end in the past.

Examples:
  wroklog manual --start "2026-02-17 09:00" --end "2026-02-17 17:30"
  wroklog manual --start "17/02/2026 09:00" --end "17/02/2026 17:30"`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		now := a.sessions.Now()
		rawStart, _ := cmd.Flags().GetString("start")
		rawEnd, _ := cmd.Flags().GetString("end")
		start, err := parser.ParseInstant(rawStart, now, time.Local)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		end, err := parser.ParseInstant(rawEnd, now, time.Local)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		device, _ := cmd.Flags().GetString("device")

		sess, err := a.sessions.CreateManual(cmd.Context(), owner, session.ManualInput{Start: start, End: end, DeviceID: device})
		if err != nil {
			return err
		}
		fmt.Printf("✅ Recorded %s session for %s\n", display.Human(sess.Duration()), sess.StartDay)
		return nil
	}),
}

func init() {
	sessionsCmd.Flags().StringP("status", "s", "", "Filter by status: active, completed, cancelled")
	sessionsCmd.Flags().String("from", "", "First day to include (yyyy-mm-dd, dd/mm/yyyy, today, yesterday)")
	sessionsCmd.Flags().String("to", "", "Last day to include")
	sessionsCmd.Flags().Int("page", 1, "Page number")
	sessionsCmd.Flags().IntP("limit", "n", 20, "Sessions per page")

	manualCmd.Flags().String("start", "", "Session start time")
	manualCmd.Flags().String("end", "", "Session end time")
	manualCmd.Flags().String("device", "", "Device identifier recorded with the session")
	_ = manualCmd.MarkFlagRequired("start")
	_ = manualCmd.MarkFlagRequired("end")
}

func renderSessions(sessions []models.Session, now time.Time) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		end, length := "-", display.Human(display.Elapsed(s.StartTime, now))
		if s.EndTime != nil {
			end = s.EndTime.Local().Format("15:04")
			length = display.Human(s.Duration())
		}
		if s.Status == models.StatusCancelled {
			length = "-"
		}
		auto := ""
		if s.ScheduledEnd != nil && s.Status == models.StatusActive {
			auto = s.ScheduledEnd.Local().Format("15:04")
		}
		rows = append(rows, []string{
			s.StartDay,
			string(s.Status),
			s.StartTime.Local().Format("15:04"),
			end,
			length,
			auto,
		})
	}
	return renderTable(
		[]string{"Day", "Status", "Start", "End", "Duration", "Auto-stop"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}
