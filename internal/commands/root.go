package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/config"
	"github.com/balkashynov/wroklog/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath string
	verbose    bool

	// cfg is loaded once per invocation before any command runs.
	cfg *config.Config
)

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

var rootCmd = &cobra.Command{
	Use:   "wroklog",
	Short: "Daily work sessions and log entries",
	Long: `wroklog tracks one focused work session per day and keeps a versioned
log entry for each day. Run "wroklog serve" for the HTTP API; the other
commands work directly against the same database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] == "true" {
			return nil
		}
		loaded, resolved, exists, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if err := logger.Init(logger.Config{
			Debug:   cfg.Logging.Debug,
			Level:   cfg.Logging.Level,
			LogDir:  cfg.Logging.Dir,
			Console: verbose,
		}); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger.Debug("config loaded", "path", resolved, "exists", exists, "command", cmd.Name())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipConfig: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wroklog %s (commit %s, built %s)\n", version, commit, date)
	},
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log output to stderr")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(unscheduleCmd)
	rootCmd.AddCommand(entryCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyringCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetHelpCommand(helpCmd)
}
