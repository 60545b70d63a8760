package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/notify"
	"github.com/tkc/asana-rules/internal/rules"
)

var (
	watchInterval time.Duration
	watchExecute  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run rules repeatedly on a polling interval",
	Long: `Run all rules from the rules file at regular intervals.

The rules file is re-read on every tick, so edits take effect without
restarting.  By default each pass is a dry run; pass --execute to apply
changes for real.

Press Ctrl+C to stop watching.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		fmt.Printf("👀 Watching rules file %s\n", cfg.RulesFile)
		fmt.Printf("   Interval: %s\n", watchInterval)
		if !watchExecute {
			fmt.Println("   Mode: dry run (pass --execute to apply changes)")
		}
		fmt.Println("   Press Ctrl+C to stop")
		fmt.Println()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// シグナルハンドリング
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		// 初回実行
		runRulesPass(ctx)

		for {
			select {
			case <-ticker.C:
				runRulesPass(ctx)
			case <-sigCh:
				fmt.Println("\n👋 Stopping watch...")
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	},
}

// runRulesPass はルール定義を読み直してから全ルールを1回実行する
func runRulesPass(ctx context.Context) {
	timestamp := time.Now().Format("15:04:05")

	loaded, err := loadRules()
	if err != nil {
		fmt.Printf("[%s] ⚠️  Failed to load rules: %v\n", timestamp, err)
		return
	}
	if len(loaded) == 0 {
		fmt.Printf("[%s] No rules loaded\n", timestamp)
		return
	}

	fmt.Printf("[%s] Running %d rule(s)\n", timestamp, len(loaded))
	if rules.ExecuteRules(ctx, loaded, !watchExecute) {
		fmt.Printf("[%s] ✅ Pass completed\n", timestamp)
	} else {
		fmt.Printf("[%s] ❌ Pass completed with failures\n", timestamp)
		_ = notify.SendRunFailure(len(loaded))
	}
	fmt.Println()
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 5*time.Minute, "Polling interval")
	watchCmd.Flags().BoolVar(&watchExecute, "execute", false, "Apply changes instead of dry run")
}
