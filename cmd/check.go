package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/preflight"
	"github.com/vietdv277/nimbus/internal/ui"
	"github.com/vietdv277/nimbus/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the account holds everything the stack reads",
	Long: `Run preflight checks against the target account: credentials, the
DocumentDB master credentials in Parameter Store, the broker user secrets
in Secrets Manager, parameters referenced by services and the NAT image.

Examples:
  nimbus check
  nimbus check --stack prod`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks, err := runPreflight(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	ui.PrintChecks(cmd.OutOrStdout(), checks)
	if types.Failed(checks) {
		return fmt.Errorf("preflight failed")
	}
	return nil
}

func runPreflight(ctx context.Context, cfg *config.Config) ([]types.Check, error) {
	client, err := newAWSClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r := &preflight.Runner{
		Parameters: client.Parameters(),
		Secrets:    client.SecretStore(),
		Identity:   client,
		Images:     client,
	}
	return r.Run(ctx, cfg)
}
