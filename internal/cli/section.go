package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/asana"
)

var sectionCmd = &cobra.Command{
	Use:   "section",
	Short: "Manage sections",
}

var sectionListCmd = &cobra.Command{
	Use:   "list <project-or-utl-gid>",
	Short: "List sections in a project or user task list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		gid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid project gid: %s", args[0])
		}

		client := asana.NewClient(cfg.AccessToken)
		ctx := context.Background()

		sections, err := client.GetSections(ctx, gid)
		if err != nil {
			return fmt.Errorf("failed to get sections: %w", err)
		}

		if len(sections) == 0 {
			fmt.Println("No sections found")
			return nil
		}

		fmt.Println("Sections:")
		fmt.Println()
		for _, s := range sections {
			fmt.Printf("  %-16s %s\n", s.GID, s.Name)
		}
		fmt.Printf("\nTotal: %d sections\n", len(sections))

		return nil
	},
}

func init() {
	sectionCmd.AddCommand(sectionListCmd)
}
