package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/asana"
)

var projectArchived bool

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage Asana projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list <workspace-gid>",
	Short: "List projects in a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		wsGID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid workspace gid: %s", args[0])
		}

		client := asana.NewClient(cfg.AccessToken)
		ctx := context.Background()

		projects, err := client.GetProjects(ctx, wsGID, projectArchived)
		if err != nil {
			return fmt.Errorf("failed to get projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found")
			return nil
		}

		fmt.Printf("Projects in workspace %d:\n\n", wsGID)
		for _, p := range projects {
			fmt.Printf("  %-16s %s\n", p.GID, p.Name)
		}

		fmt.Println()
		fmt.Println("To list sections, run:")
		fmt.Println("  asana-rules section list <project-gid>")
		return nil
	},
}

func init() {
	projectListCmd.Flags().BoolVar(&projectArchived, "archived", false, "List archived projects instead")
	projectCmd.AddCommand(projectListCmd)
}
