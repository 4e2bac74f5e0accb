package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active stack and authentication status",
	Long: `Display the active stack and verify the AWS credentials it uses.

Examples:
  nimbus status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget()
	if err != nil {
		return fmt.Errorf("failed to get current stack: %w", err)
	}

	fmt.Println("Current Status")
	fmt.Println(ui.MutedStyle.Render("─────────────────────────────────"))
	fmt.Println()

	if t.name == "" {
		fmt.Println("Stack:    " + ui.MutedStyle.Render("(not set)"))
		fmt.Println()
		printStackHint(t.state)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Stack:    %s\n", ui.HeaderStyle.Render(cfg.Stack))
	fmt.Printf("Project:  %s\n", cfg.Project)
	fmt.Printf("Stage:    %s\n", cfg.Stage)
	if cfg.Profile != "" {
		fmt.Printf("Profile:  %s\n", cfg.Profile)
	}
	fmt.Printf("Region:   %s\n", cfg.Region)
	fmt.Println()

	fmt.Print("Auth:     ")
	client, err := newAWSClient(cmd.Context(), cfg)
	if err == nil {
		identity, idErr := client.CallerIdentity(cmd.Context())
		if idErr == nil {
			fmt.Println(ui.RunningStyle.Render("✓ Authenticated"))
			fmt.Printf("Account:  %s\n", identity.Account)
			fmt.Printf("User:     %s\n", identity.UserID)
			fmt.Printf("ARN:      %s\n", ui.MutedStyle.Render(identity.Arn))
			if cfg.AccountID != "" && cfg.AccountID != identity.Account {
				fmt.Println(ui.FailedStyle.Render(fmt.Sprintf("          config pins account %s", cfg.AccountID)))
			}
			return nil
		}
		err = idErr
	}

	fmt.Println(ui.StoppedStyle.Render("✗ Not authenticated"))
	fmt.Printf("          %s\n", ui.MutedStyle.Render(err.Error()))
	if cfg.Profile != "" {
		fmt.Println()
		fmt.Println("To authenticate:")
		fmt.Printf("  aws sso login --profile %s\n", cfg.Profile)
	}
	return nil
}
