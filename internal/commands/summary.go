package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/parser"
	"github.com/balkashynov/wroklog/internal/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize log entries with AI",
	Long: `Stream an AI summary of your log entries. Each summary uses one of the
monthly allowance; a range with no entries is free.

Examples:
  wroklog summary                          # All entries
  wroklog summary --from 2026-02-01 --to 2026-02-14`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		now := a.sessions.Now()
		var req summary.Request
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			if req.FromDate, err = parser.ParseDay(from, now, time.UTC); err != nil {
				return err
			}
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			if req.ToDate, err = parser.ParseDay(to, now, time.UTC); err != nil {
				return err
			}
		}

		err = a.summary.Summarize(cmd.Context(), owner, req, func(chunk string) error {
			_, err := fmt.Print(chunk)
			return err
		})
		fmt.Println()
		if errors.Is(err, summary.ErrNotConfigured) {
			return errors.New("no summary API key configured: set summary.api_key or run 'wroklog keyring set summary-api-key'")
		}
		return err
	}),
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show this month's remaining AI summaries",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		d, err := a.quota.Remaining(cmd.Context(), owner, a.quota.CurrentMonth())
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d of %d summaries used, %d remaining\n", d.Month, d.Used, d.Limit, d.Remaining)
		return nil
	}),
}

func init() {
	summaryCmd.Flags().String("from", "", "First day to include")
	summaryCmd.Flags().String("to", "", "Last day to include")
}
