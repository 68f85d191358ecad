package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var helpCmd = &cobra.Command{
	Use:         "help [command]",
	Short:       "Show help for wroklog or a command",
	Annotations: map[string]string{skipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			if target, _, err := rootCmd.Find(args); err == nil && target != rootCmd {
				_ = target.Help()
				return
			}
		}
		showCustomHelp()
	},
}

func showCustomHelp() {
	fmt.Print(`
██╗    ██╗██████╗  ██████╗ ██╗  ██╗██╗      ██████╗  ██████╗
██║    ██║██╔══██╗██╔═══██╗██║ ██╔╝██║     ██╔═══██╗██╔════╝
██║ █╗ ██║██████╔╝██║   ██║█████╔╝ ██║     ██║   ██║██║  ███╗
██║███╗██║██╔══██╗██║   ██║██╔═██╗ ██║     ██║   ██║██║   ██║
╚███╔███╔╝██║  ██║╚██████╔╝██║  ██╗███████╗╚██████╔╝╚██████╔╝
 ╚══╝╚══╝ ╚═╝  ╚═╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝ ╚═════╝  ╚═════╝

wroklog - one work session and one log entry per day

SESSIONS:

  start                   Start today's session (opens the timer)
    --no-ui               Skip the interactive timer
  stop                    Stop the active session (4 hour minimum)
    --at                  Stop time, e.g. 17:30
  cancel                  Discard the active session
  status                  Show the active session
    -w, --watch           Open the interactive timer
  sessions                List sessions
    -s, --status          active|completed|cancelled
    --from, --to          Day range
  manual                  Record a 4 to 24 hour session after the fact
    --start, --end        Session bounds

  schedule <when>         Auto-stop the active session (8h, 17:30)
  unschedule              Remove the auto-stop

LOG ENTRIES:

  entry write             Publish today's entry (--text or --file)
  entry show [day]        Print an entry
  entry ls                List entries
  entry history [day]     List saved versions
  entry restore <day> <n> Bring back version n

SUMMARIES:

  summary                 Stream an AI summary (--from, --to)
  quota                   Show remaining summaries this month

SERVER:

  serve                   Run the HTTP API and auto-stop scheduler
  migrate                 Create or upgrade the database schema
  config init             Write a sample configuration file
  keyring set <secret>    Store database-dsn or summary-api-key
  keyring delete <secret> Remove a stored secret
  version                 Print version information

GLOBAL FLAGS:

  -c, --config            Path to configuration file
  -v, --verbose           Mirror log output to stderr

Run 'wroklog help <command>' for details on a command.
`)
}
