package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/asana"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage Asana workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces the token can access",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := asana.NewClient(cfg.AccessToken)
		ctx := context.Background()

		workspaces, err := client.GetWorkspaces(ctx)
		if err != nil {
			return fmt.Errorf("failed to get workspaces: %w", err)
		}

		if len(workspaces) == 0 {
			fmt.Println("No workspaces found")
			return nil
		}

		fmt.Println("Workspaces:")
		fmt.Println()
		for _, ws := range workspaces {
			fmt.Printf("  %-16s %s\n", ws.GID, ws.Name)
		}

		fmt.Println()
		fmt.Println("To list projects, run:")
		fmt.Println("  asana-rules project list <workspace-gid>")
		return nil
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceListCmd)
}
