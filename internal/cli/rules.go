package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/asana"
	"github.com/tkc/asana-rules/internal/config"
	"github.com/tkc/asana-rules/internal/notify"
	"github.com/tkc/asana-rules/internal/rules"
)

var (
	rulesFile    string
	rulesExecute bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage automation rules",
}

var rulesRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all rules from the rules file",
	Long: `Run all rules defined in the rules file.

By default this is a dry run: every rule reports what it would do without
moving any task.  Pass --execute to apply the changes for real.

Examples:
  asana-rules rules run                      # Dry run all rules
  asana-rules rules run --execute            # Apply changes
  asana-rules rules run --rules-file x.yaml  # Use an alternate rules file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadRules()
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			fmt.Println("No rules loaded")
			return nil
		}

		if !rulesExecute {
			fmt.Println("📋 Dry run (pass --execute to apply changes)")
			fmt.Println()
		}

		ctx := context.Background()
		ok := rules.ExecuteRules(ctx, loaded, !rulesExecute)

		fmt.Println()
		if !ok {
			_ = notify.SendRunFailure(len(loaded))
			return fmt.Errorf("one or more rules failed")
		}
		fmt.Printf("✅ All %d rule(s) completed\n", len(loaded))
		if rulesExecute {
			_ = notify.SendRunSuccess(len(loaded))
		}
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in the rules file",
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadRules()
		if err != nil {
			return err
		}
		if len(loaded) == 0 {
			fmt.Println("No rules loaded")
			return nil
		}

		fmt.Println("Loaded rules:")
		fmt.Println()
		for _, r := range loaded {
			mode := "live"
			if r.TestReportOnly() {
				mode = "test report only"
			}
			fmt.Printf("  • %s (%s, %s)\n", r.ID(), r.Type(), mode)
		}
		fmt.Printf("\nTotal: %d rule(s)\n", len(loaded))
		return nil
	},
}

// loadRules は設定とルール定義ファイルからルール一式を組み立てる
func loadRules() ([]rules.Rule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := rulesFile
	if path == "" {
		path = cfg.RulesFile
	}
	store, err := config.LoadSectionStore(path)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	api := asana.NewClient(cfg.AccessToken)
	return rules.LoadAllFromConfig(store, api, loc), nil
}

func init() {
	rulesRunCmd.Flags().BoolVar(&rulesExecute, "execute", false, "Apply changes instead of dry run")
	rulesCmd.PersistentFlags().StringVar(&rulesFile, "rules-file", "", "Path to the rules file (default from config)")
	rulesCmd.AddCommand(rulesRunCmd)
	rulesCmd.AddCommand(rulesListCmd)
}
