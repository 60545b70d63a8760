package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/asana"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list <section-gid>",
	Short: "List tasks in a section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		sectGID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid section gid: %s", args[0])
		}

		client := asana.NewClient(cfg.AccessToken)
		ctx := context.Background()

		params := map[string]string{
			"section": strconv.FormatInt(sectGID, 10),
		}
		fields := []string{"due_at", "due_on", "name", "resource_type", "completed"}
		tasks, err := client.GetTasks(ctx, params, fields)
		if err != nil {
			return fmt.Errorf("failed to get tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("No tasks found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DONE\tDUE\tNAME\tGID")
		fmt.Fprintln(w, "----\t---\t----\t---")

		for _, t := range tasks {
			done := " "
			if t.Completed {
				done = "✓"
			}
			due := "-"
			switch {
			case t.DueAt != "":
				due = t.DueAt
			case t.DueOn != "":
				due = t.DueOn
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", done, due, truncate(t.Name, 50), t.GID)
		}
		w.Flush()

		fmt.Println()
		fmt.Printf("Total: %d tasks\n", len(tasks))
		return nil
	},
}

// truncate は文字列を最大長に切り詰める
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	taskCmd.AddCommand(taskListCmd)
}
