package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/ui"
)

var useCmd = &cobra.Command{
	Use:   "use [stack]",
	Short: "Set the active stack",
	Long: `Set the active stack for subsequent commands. Without an argument an
interactive selector lists the registered stacks.

Examples:
  nimbus use                # Pick from a list
  nimbus use prod           # Switch to the prod stack`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUse,
}

var useAddCmd = &cobra.Command{
	Use:   "add <stack>",
	Short: "Register an existing stack",
	Long: `Register a stack whose nimbus.yaml already exists.

Examples:
  nimbus use add prod -c deploy/prod.yaml --profile prod-sso --region eu-west-1`,
	Args: cobra.ExactArgs(1),
	RunE: runUseAdd,
}

var useDeleteCmd = &cobra.Command{
	Use:     "delete <stack>",
	Short:   "Forget a stack",
	Long:    `Remove a stack from ~/.nimbus.yaml. Deployed resources are not touched.`,
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runUseDelete,
}

func init() {
	rootCmd.AddCommand(useCmd)
	useCmd.AddCommand(useAddCmd)
	useCmd.AddCommand(useDeleteCmd)
}

func runUse(cmd *cobra.Command, args []string) error {
	path := config.StatePath()
	state, err := config.LoadState(path)
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	} else {
		if name, err = ui.SelectStack(state); err != nil {
			return err
		}
	}

	if err := state.Use(name); err != nil {
		fmt.Printf("Stack %q not found.\n\n", name)
		printStackHint(state)
		return nil
	}
	if err := state.Save(path); err != nil {
		return err
	}

	entry := state.Stacks[name]
	fmt.Printf("Switched to stack: %s\n", ui.NameStyle.Render(name))
	if entry.ConfigFile != "" {
		fmt.Printf("  Config:  %s\n", entry.ConfigFile)
	}
	if entry.Profile != "" {
		fmt.Printf("  Profile: %s\n", entry.Profile)
	}
	if entry.Region != "" {
		fmt.Printf("  Region:  %s\n", entry.Region)
	}

	return nil
}

func runUseAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	entry := &config.StackEntry{
		ConfigFile: configFile,
		Profile:    profile,
		Region:     region,
	}

	path := config.StatePath()
	state, err := config.LoadState(path)
	if err != nil {
		return err
	}
	state.Add(name, entry)
	if err := state.Save(path); err != nil {
		return err
	}

	fmt.Printf("Stack %s added.\n", ui.NameStyle.Render(name))
	if state.CurrentStack != name {
		fmt.Printf("Switch to it with: nimbus use %s\n", name)
	}
	return nil
}

func runUseDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	path := config.StatePath()
	state, err := config.LoadState(path)
	if err != nil {
		return err
	}
	if _, ok := state.Stacks[name]; !ok {
		return fmt.Errorf("stack %q not found", name)
	}

	state.Remove(name)
	if err := state.Save(path); err != nil {
		return err
	}

	fmt.Printf("Stack %s removed.\n", name)
	return nil
}

func printStackHint(state *config.State) {
	names := state.Names()
	if len(names) == 0 {
		fmt.Println("No stacks registered. Create one with:")
		fmt.Println("  nimbus init <stack> --profile <profile> --region <region>")
		return
	}

	fmt.Println("Registered stacks:")
	for _, n := range names {
		marker := "  "
		if n == state.CurrentStack {
			marker = "* "
		}
		fmt.Printf("  %s%s\n", marker, n)
	}
}
