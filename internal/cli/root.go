package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/config"
)

var (
	cfg     *config.Config
	verbose bool
)

// rootCmd はルートコマンド
var rootCmd = &cobra.Command{
	Use:   "asana-rules",
	Short: "Asana task automation rules CLI",
	Long: `asana-rules is a CLI tool that automates task management in Asana.

It loads user-defined rules from a config file (e.g. moving tasks between
sections based on due-date windows) and applies them on demand or on a
polling schedule.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute はCLIを実行する
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(sectionCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(watchCmd)
}
