package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/internal/ui"
	"github.com/vietdv277/nimbus/pkg/types"
)

var (
	assumeYes     bool
	skipPreflight bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the changes an update would make",
	Args:  cobra.NoArgs,
	RunE:  runPreview,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Deploy the stack",
	Long: `Run preflight checks, preview the changes and deploy them.

Examples:
  nimbus up
  nimbus up --yes --stack prod`,
	Args: cobra.NoArgs,
	RunE: runUp,
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete every resource of the stack",
	Args:  cobra.NoArgs,
	RunE:  runDestroy,
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Reconcile the stack state with the live resources",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(previewCmd, upCmd, destroyCmd, refreshCmd)

	upCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	upCmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "deploy without running preflight checks")
	destroyCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	res, err := engine.Preview(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintChanges(cmd.OutOrStdout(), "Preview", res.Changes)
	return nil
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !skipPreflight {
		checks, err := runPreflight(ctx, cfg)
		if err != nil {
			return err
		}
		if types.Failed(checks) {
			ui.PrintChecks(cmd.OutOrStdout(), checks)
			return fmt.Errorf("preflight failed, nothing deployed")
		}
		logger.Infof("%d preflight checks passed", len(checks))
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	if !assumeYes {
		preview, err := engine.Preview(ctx)
		if err != nil {
			return err
		}
		ui.PrintChanges(cmd.OutOrStdout(), "Preview", preview.Changes)
		if !deploy.HasChanges(preview.Changes) {
			fmt.Println("Nothing to deploy.")
			return nil
		}
		if !confirm(fmt.Sprintf("Deploy %s/%s to %s?", cfg.Project, cfg.Stack, cfg.Region)) {
			return fmt.Errorf("aborted")
		}
	}

	res, err := engine.Up(ctx)
	if err != nil {
		return err
	}
	ui.PrintChanges(cmd.OutOrStdout(), "Update", res.Changes)
	ui.PrintOutputs(cmd.OutOrStdout(), deploy.FlattenOutputs(res.Outputs, false))
	return nil
}

func runDestroy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !assumeYes && !confirm(fmt.Sprintf("Destroy every resource of %s/%s in %s?", cfg.Project, cfg.Stack, cfg.Region)) {
		return fmt.Errorf("aborted")
	}

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}
	res, err := engine.Destroy(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintChanges(cmd.OutOrStdout(), "Destroy", res.Changes)
	return nil
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	res, err := engine.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	ui.PrintChanges(cmd.OutOrStdout(), "Refresh", res.Changes)
	return nil
}

// confirm asks a yes/no question on stdin, defaulting to no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
