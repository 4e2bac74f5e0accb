package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/ui"
)

var stacksCmd = &cobra.Command{
	Use:   "stacks",
	Short: "List the stacks of the project",
	Long: `List the stacks the engine backend holds for the project, with their
resource counts and last update.

Examples:
  nimbus stacks`,
	Args: cobra.NoArgs,
	RunE: runStacks,
}

func init() {
	rootCmd.AddCommand(stacksCmd)
}

func runStacks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	stacks, err := engine.ListStacks(cmd.Context())
	if err != nil {
		return err
	}
	if len(stacks) == 0 {
		fmt.Printf("No stacks deployed for project %s yet.\n", cfg.Project)
		return nil
	}

	ui.PrintStacks(cmd.OutOrStdout(), stacks)
	return nil
}
