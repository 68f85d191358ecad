package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/display"
	"github.com/balkashynov/wroklog/internal/parser"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <when>",
	Short: "Stop the active session automatically",
	Long: `Arm an auto-stop for the active session. <when> is either a length
measured from the session start or a clock time. It must fall between 4 and
24 hours after the start. A running "wroklog serve" performs the stop; until
then an overdue auto-stop is applied on the next sweep or restart.

Examples:
  wroklog schedule 8h      # Stop 8 hours after the start
  wroklog schedule 17:30   # Stop at 17:30 today`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		active, err := requireActive(cmd.Context(), a, owner)
		if err != nil {
			return err
		}

		now := a.sessions.Now()
		var fireAt time.Time
		if offset, err := parser.ParseOffset(args[0]); err == nil {
			fireAt = active.StartTime.Add(offset)
		} else if fireAt, err = parser.ParseInstant(args[0], now, time.Local); err != nil {
			return err
		}

		sess, err := a.scheduler.Arm(cmd.Context(), owner, active.ID, fireAt)
		if err != nil {
			return err
		}
		fmt.Printf("⏰ Auto-stop set for %s (%s from now)\n",
			sess.ScheduledEnd.Local().Format("Mon 15:04"), display.Until(*sess.ScheduledEnd, now))
		return nil
	}),
}

var unscheduleCmd = &cobra.Command{
	Use:   "unschedule",
	Short: "Remove the auto-stop from the active session",
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
		if err := a.scheduler.Cancel(cmd.Context(), owner, active.ID); err != nil {
			return err
		}
		fmt.Println("Auto-stop removed")
		return nil
	}),
}
