package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tkc/asana-rules/internal/asana"
	"github.com/tkc/asana-rules/internal/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to Asana",
	Long: `Login to Asana using a personal access token.

Create a token at: https://app.asana.com/0/my-apps

The token can also be supplied with the ` + config.EnvAccessToken + `
environment variable, which takes precedence over the saved config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Asana Personal Access Token を入力してください")
		fmt.Println()
		fmt.Print("Token: ")

		reader := bufio.NewReader(os.Stdin)
		token, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(token)

		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}

		// 保存前にトークンが生きているか確認
		client := asana.NewClient(token)
		me, err := client.Me(context.Background())
		if err != nil {
			return fmt.Errorf("token verification failed: %w", err)
		}

		cfg.AccessToken = token
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("✓ Token saved successfully (logged in as %s)\n", me.Name)
		fmt.Println()
		fmt.Println("Next step: asana-rules workspace list")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.AccessToken == "" {
			fmt.Println("✗ Not logged in")
			fmt.Println()
			fmt.Println("Run: asana-rules auth login")
			return nil
		}

		// トークンの一部を表示
		token := cfg.AccessToken
		masked := token
		if len(token) > 8 {
			masked = token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
		}

		client := asana.NewClient(cfg.AccessToken)
		me, err := client.Me(context.Background())
		if err != nil {
			fmt.Printf("✗ Token is saved but not working (token: %s)\n", masked)
			fmt.Printf("  Error: %v\n", err)
			return nil
		}

		fmt.Printf("✓ Logged in as %s (token: %s)\n", me.Name, masked)
		fmt.Printf("  Rules file: %s\n", cfg.RulesFile)
		if cfg.Timezone != "" {
			fmt.Printf("  Timezone:   %s\n", cfg.Timezone)
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Logout from Asana",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.AccessToken = ""
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Println("✓ Logged out successfully")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)
}
