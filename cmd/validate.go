package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/netplan"
	"github.com/vietdv277/nimbus/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the stack configuration",
	Long: `Validate nimbus.yaml without contacting AWS and print the subnet plan.

Examples:
  nimbus validate
  nimbus validate -c prod.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		var verrs *config.ValidationErrors
		if errors.As(err, &verrs) {
			for _, e := range verrs.Errors {
				fmt.Printf("%s %s: %s\n", ui.FailedStyle.Render("✗"), e.Field, e.Message)
			}
			return fmt.Errorf("%d configuration errors", len(verrs.Errors))
		}
		return err
	}

	plan, err := cfg.SubnetPlan()
	if err != nil {
		return err
	}

	fmt.Printf("%s %s/%s is valid\n\n", ui.RunningStyle.Render("✓"), cfg.Project, cfg.Stack)

	t := &ui.Table{Headers: []string{"Role", "Zone", "CIDR"}}
	for _, role := range netplan.Roles() {
		for _, a := range plan.Group(role) {
			t.Add(
				ui.Cell{Text: string(role), Style: ui.NameStyle},
				ui.Cell{Text: a.Zone, Style: ui.ValueStyle},
				ui.Cell{Text: a.CIDR, Style: ui.IDStyle},
			)
		}
	}
	fmt.Print(t.String())

	return nil
}
