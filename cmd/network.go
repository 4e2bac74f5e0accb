package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/internal/infra"
	"github.com/vietdv277/nimbus/internal/preflight"
	"github.com/vietdv277/nimbus/internal/ui"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

var (
	networkVpcID string
	networkENI   string
)

var networkCmd = &cobra.Command{
	Use:     "network",
	Aliases: []string{"vpc"},
	Short:   "Show the deployed network and verify its routing",
	Long: `Describe the deployed VPC, its subnets and their default routes, and
check that public subnets route to the internet gateway and compute
subnets route through the NAT interface.

The VPC and NAT interface are read from the stack outputs unless given.

Examples:
  nimbus network
  nimbus network --vpc-id vpc-0abc --nat-interface eni-0def`,
	Args: cobra.NoArgs,
	RunE: runNetwork,
}

func init() {
	rootCmd.AddCommand(networkCmd)

	networkCmd.Flags().StringVar(&networkVpcID, "vpc-id", "", "VPC to inspect")
	networkCmd.Flags().StringVar(&networkENI, "nat-interface", "", "expected NAT network interface")
}

func runNetwork(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	vpcID, eni := networkVpcID, networkENI
	if vpcID == "" || eni == "" {
		engine, err := newEngine(cfg)
		if err != nil {
			return err
		}
		outputs, err := engine.Outputs(ctx)
		if err != nil {
			return err
		}
		for _, o := range deploy.FlattenOutputs(outputs, true) {
			switch {
			case o.Key == infra.OutputVpcID && vpcID == "":
				vpcID = o.Value
			case o.Key == infra.OutputNatInterfaceID && eni == "":
				eni = o.Value
			}
		}
	}
	if vpcID == "" {
		return fmt.Errorf("stack %s has no %s output; deploy it or pass --vpc-id", cfg.Stack, infra.OutputVpcID)
	}

	client, err := newAWSClient(ctx, cfg)
	if err != nil {
		return err
	}
	return inspectNetwork(ctx, cmd.OutOrStdout(), client, vpcID, eni)
}

func inspectNetwork(ctx context.Context, w io.Writer, inspector provider.NetworkInspector, vpcID, eni string) error {
	network, err := inspector.Network(ctx, vpcID)
	if err != nil {
		return err
	}

	ui.PrintNetwork(w, network)
	fmt.Fprintln(w)

	checks := preflight.VerifyNetwork(network, eni)
	ui.PrintChecks(w, checks)
	if types.Failed(checks) {
		return fmt.Errorf("routing does not match the network layout")
	}
	return nil
}
