package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/internal/ui"
)

var (
	showSecrets bool
	outputsJSON bool
)

var outputsCmd = &cobra.Command{
	Use:   "outputs [key]",
	Short: "Show the stack outputs",
	Long: `Show the outputs of the last deployment. Nested outputs are flattened,
so subnetIds.compute[0] is the first compute subnet.

Examples:
  nimbus outputs
  nimbus outputs vpcId
  nimbus outputs --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOutputs,
}

func init() {
	rootCmd.AddCommand(outputsCmd)

	outputsCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "reveal secret outputs")
	outputsCmd.Flags().BoolVar(&outputsJSON, "json", false, "print outputs as JSON")
}

func runOutputs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	outputs, err := engine.Outputs(cmd.Context())
	if err != nil {
		return err
	}
	rows := deploy.FlattenOutputs(outputs, showSecrets)

	if len(args) == 1 {
		for _, r := range rows {
			if r.Key == args[0] {
				fmt.Println(r.Value)
				return nil
			}
		}
		return fmt.Errorf("output %q not found", args[0])
	}

	if outputsJSON {
		flat := make(map[string]string, len(rows))
		for _, r := range rows {
			flat[r.Key] = r.Value
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(flat)
	}

	ui.PrintOutputs(cmd.OutOrStdout(), rows)
	return nil
}
