package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/config"
	"github.com/balkashynov/wroklog/internal/keyring"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a sample configuration file",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultConfigPath(); err != nil {
				return err
			}
		}
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.CreateSample(path); err != nil {
			return err
		}
		fmt.Printf("✅ Wrote %s\n", path)
		return nil
	},
}

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Store secrets in the OS keyring",
	Long: `Store secrets in the OS keyring instead of the configuration file.
Known secrets: database-dsn, summary-api-key. Values in the configuration file
or environment take precedence.`,
}

var keyringSetCmd = &cobra.Command{
	Use:         "set <secret>",
	Short:       "Store a secret read from stdin",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := keyring.ParseSecret(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Enter value for %s: ", name)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read secret: %w", err)
		}
		if err := keyring.Set(name, strings.TrimSpace(line)); err != nil {
			return err
		}
		fmt.Printf("🔑 Stored %s\n", name)
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:         "delete <secret>",
	Short:       "Remove a secret",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := keyring.ParseSecret(args[0])
		if err != nil {
			return err
		}
		if err := keyring.Delete(name); err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				fmt.Printf("%s was not stored\n", name)
				return nil
			}
			return err
		}
		fmt.Printf("Removed %s\n", name)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	keyringCmd.AddCommand(keyringSetCmd)
	keyringCmd.AddCommand(keyringDeleteCmd)
}
