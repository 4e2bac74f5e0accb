package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/infra"
	"github.com/vietdv277/nimbus/internal/ui"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

const refreshPollInterval = 15 * time.Second

var natWait bool

var natCmd = &cobra.Command{
	Use:   "nat",
	Short: "Inspect and manage the NAT instance",
	Long: `Commands for the auto scaling group running the NAT instance.

Examples:
  nimbus nat status
  nimbus nat refresh`,
}

var natStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the NAT group and its instance",
	Args:  cobra.NoArgs,
	RunE:  runNatStatus,
}

var natRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Replace the NAT instance",
	Long: `Start an instance refresh of the NAT group, e.g. to pick up a new image.
Compute subnets lose outbound connectivity until the new instance has
attached the NAT interface.`,
	Args: cobra.NoArgs,
	RunE: runNatRefresh,
}

func init() {
	rootCmd.AddCommand(natCmd)
	natCmd.AddCommand(natStatusCmd)
	natCmd.AddCommand(natRefreshCmd)

	natRefreshCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
	natRefreshCmd.Flags().BoolVarP(&natWait, "wait", "w", false, "wait for the refresh to finish")
}

func runNatStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newAWSClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	group, err := client.NatGroup(cmd.Context(), infra.NatGroupName)
	if err != nil {
		return err
	}
	ui.PrintNatGroup(cmd.OutOrStdout(), group)
	return nil
}

func runNatRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newAWSClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	group, err := client.NatGroup(cmd.Context(), infra.NatGroupName)
	if err != nil {
		return err
	}
	if !assumeYes && !confirm(fmt.Sprintf("Replace the NAT instance of %s?", group.Name)) {
		return fmt.Errorf("aborted")
	}

	refresh, err := client.Refresh(cmd.Context(), group.Name)
	if err != nil {
		return err
	}

	fmt.Printf("Instance refresh %s started on %s.\n", ui.IDStyle.Render(refresh.ID), group.Name)
	if !natWait {
		fmt.Println(ui.HintStyle.Render("Follow it with: nimbus nat status"))
		return nil
	}

	refresh, err = waitForRefresh(cmd.Context(), client, group.Name, refresh.ID, refreshPollInterval)
	if err != nil {
		return err
	}
	if refresh.Status != "Successful" {
		return fmt.Errorf("instance refresh %s ended %s: %s", refresh.ID, refresh.Status, refresh.StatusReason)
	}
	fmt.Printf("Instance refresh %s finished.\n", refresh.ID)
	return nil
}

// waitForRefresh polls until the refresh reaches a terminal status.
func waitForRefresh(ctx context.Context, nat provider.NatController, group, id string, every time.Duration) (*types.InstanceRefresh, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		refresh, err := nat.RefreshStatus(ctx, group, id)
		if err != nil {
			return nil, err
		}
		switch refresh.Status {
		case "Successful", "Failed", "Cancelled", "RollbackSuccessful", "RollbackFailed":
			return refresh, nil
		}
		fmt.Printf("  %s %d%%\n", refresh.Status, refresh.PercentageComplete)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
