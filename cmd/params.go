package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/credentials"
	"github.com/vietdv277/nimbus/internal/naming"
	"github.com/vietdv277/nimbus/internal/ui"
	"github.com/vietdv277/nimbus/pkg/provider"
)

var paramsDecrypt bool

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect the parameters and secrets the stack reads and publishes",
	Long: `Commands for the Parameter Store entries and broker secrets of the stack.

Examples:
  nimbus params list
  nimbus params get /warehouse/cluster/host --decrypt
  nimbus params secrets`,
}

var paramsListCmd = &cobra.Command{
	Use:     "list [prefix...]",
	Aliases: []string{"ls"},
	Short:   "List parameters under the database and broker prefixes",
	RunE:    runParamsList,
}

var paramsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a parameter",
	Args:  cobra.ExactArgs(1),
	RunE:  runParamsGet,
}

var paramsSecretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Check the broker user secrets",
	Args:  cobra.NoArgs,
	RunE:  runParamsSecrets,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsListCmd, paramsGetCmd, paramsSecretsCmd)

	paramsGetCmd.Flags().BoolVarP(&paramsDecrypt, "decrypt", "d", false, "decrypt SecureString values")
}

func runParamsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newAWSClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	prefixes := args
	if len(prefixes) == 0 {
		prefixes = []string{"/" + cfg.Warehouse.Name + "/", "/" + cfg.Broker.Name + "/"}
	}

	t := &ui.Table{Headers: []string{"Name", "Type", "Version", "Last Modified"}}
	for _, prefix := range prefixes {
		params, err := client.Parameters().List(cmd.Context(), &provider.ParameterFilter{Prefix: prefix})
		if err != nil {
			return err
		}
		for _, p := range params {
			t.Add(
				ui.Cell{Text: p.Name, Style: ui.NameStyle},
				ui.Cell{Text: p.Type, Style: ui.ValueStyle},
				ui.Cell{Text: fmt.Sprint(p.Version), Style: ui.MutedStyle},
				ui.Cell{Text: p.LastModified.Format("2006-01-02 15:04"), Style: ui.MutedStyle},
			)
		}
	}
	fmt.Print(t.String())
	fmt.Printf("  %d parameters\n", len(t.Rows))
	return nil
}

func runParamsGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newAWSClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	p, err := client.Parameters().Get(cmd.Context(), args[0], paramsDecrypt)
	if err != nil {
		return err
	}

	fmt.Printf("Name:     %s\n", ui.NameStyle.Render(p.Name))
	fmt.Printf("Type:     %s\n", p.Type)
	fmt.Printf("Version:  %d\n", p.Version)
	fmt.Printf("Modified: %s\n", p.LastModified.Format("2006-01-02 15:04:05"))
	if p.Type == "SecureString" && !paramsDecrypt {
		fmt.Printf("Value:    %s\n", ui.MutedStyle.Render("(encrypted, pass --decrypt)"))
	} else {
		fmt.Printf("Value:    %s\n", p.Value)
	}
	return nil
}

func runParamsSecrets(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := newAWSClient(ctx, cfg)
	if err != nil {
		return err
	}

	account := cfg.AccountID
	if account == "" {
		id, err := client.CallerIdentity(ctx)
		if err != nil {
			return err
		}
		account = id.Account
	}

	t := &ui.Table{Headers: []string{"Secret", "User", "Status"}}
	for _, user := range []string{naming.BrokerAdminUser, naming.BrokerReplicationUser} {
		name := naming.BrokerSecretName(cfg.Broker.Name, user)
		secret, err := client.SecretStore().Get(ctx, naming.BrokerSecretARN(cfg.Region, account, cfg.Broker.Name, user))
		if err != nil {
			t.Add(ui.Cell{Text: name, Style: ui.NameStyle}, ui.Cell{Text: "-"}, ui.Cell{Text: err.Error(), Style: ui.FailedStyle})
			continue
		}
		creds, err := credentials.ParseBroker(secret.Value)
		if err != nil {
			t.Add(ui.Cell{Text: name, Style: ui.NameStyle}, ui.Cell{Text: "-"}, ui.Cell{Text: err.Error(), Style: ui.FailedStyle})
			continue
		}
		t.Add(ui.Cell{Text: name, Style: ui.NameStyle}, ui.Cell{Text: creds.Username, Style: ui.ValueStyle}, ui.Cell{Text: "● ok", Style: ui.RunningStyle})
	}
	fmt.Print(t.String())
	return nil
}
