package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vietdv277/nimbus/internal/aws"
	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/ui"
)

var (
	initProject string
	initStage   string
	initAccount string
)

var initCmd = &cobra.Command{
	Use:   "init [stack]",
	Short: "Write a nimbus.yaml and register the stack",
	Long: `Write a nimbus.yaml with the default topology and register the stack in
~/.nimbus.yaml so later commands can find it.

Examples:
  nimbus init                                   # Stack "dev" in ./nimbus.yaml
  nimbus init prod --profile prod-sso --stage production
  nimbus init staging -c staging.yaml --region eu-west-1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initProject, "project", "", "Pulumi project name")
	initCmd.Flags().StringVar(&initStage, "stage", "", "deployment stage (dev, test, production)")
	initCmd.Flags().StringVar(&initAccount, "account-id", "", "pin the AWS account id")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if len(args) == 1 {
		cfg.Stack = args[0]
	}
	if initProject != "" {
		cfg.Project = initProject
	}
	if initStage != "" {
		cfg.Stage = initStage
	}
	cfg.AccountID = initAccount
	cfg.Profile = viper.GetString("profile")
	if r := viper.GetString("region"); r != "" {
		cfg.Region = r
	}

	if cfg.Profile != "" && !aws.ValidateProfile(cfg.Profile) {
		fmt.Println(ui.PendingStyle.Render(fmt.Sprintf("warning: profile %q not found in ~/.aws/config or ~/.aws/credentials", cfg.Profile)))
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	path := viper.GetString("config")
	if path == "" {
		path = config.DefaultConfigFile
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	if err := config.WriteFile(abs, cfg); err != nil {
		return err
	}

	statePath := config.StatePath()
	state, err := config.LoadState(statePath)
	if err != nil {
		return err
	}
	state.Add(cfg.Stack, &config.StackEntry{ConfigFile: abs, Profile: cfg.Profile, Region: cfg.Region})
	if err := state.Save(statePath); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", abs)
	fmt.Printf("  Stack:   %s\n", ui.NameStyle.Render(cfg.Stack))
	fmt.Printf("  Project: %s\n", cfg.Project)
	fmt.Printf("  Region:  %s\n", cfg.Region)
	fmt.Printf("  Stage:   %s\n", cfg.Stage)
	if state.CurrentStack == cfg.Stack {
		fmt.Println(ui.MutedStyle.Render("  (active stack)"))
	}
	fmt.Println()
	fmt.Println("Next:")
	fmt.Println("  nimbus check     # verify secrets and credentials")
	fmt.Println("  nimbus preview   # show planned changes")

	return nil
}
