package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/juju/loggo/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vietdv277/nimbus/internal/aws"
	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/deploy"
)

var logger = loggo.GetLogger("nimbus.cmd")

var (
	// Global flags
	stackName  string
	configFile string
	profile    string
	region     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "nimbus",
	Short: "Nimbus - infrastructure for the LLM twin data platform",
	Long: `Nimbus declares the AWS infrastructure of the LLM twin data platform
(network, registry, document database, message broker, crawlers and the
streaming cluster) and drives the Pulumi engine to deploy it.

Getting Started:
  nimbus init --profile <profile>   # Write nimbus.yaml and register the stack
  nimbus validate                   # Check nimbus.yaml
  nimbus check                      # Verify credentials and secrets exist
  nimbus preview                    # Show planned changes
  nimbus up                         # Deploy

Stacks:
  nimbus use prod                   # Switch the active stack
  nimbus stacks                     # List stacks known to the backend
  nimbus status                     # Show the active stack and auth status

Inspection:
  nimbus outputs                    # Show stack outputs
  nimbus network                    # Show subnets and verify routing
  nimbus nat status                 # Show the NAT instance group
  nimbus params list                # List published parameters`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := viper.GetString("log_level")
		if err := loggo.ConfigureLoggers("<root>=WARNING;nimbus=" + strings.ToUpper(level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&stackName, "stack", "s", "", "stack to operate on (default: the active stack)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: the stack's file or ./nimbus.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "AWS profile to use")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "AWS region to use")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warning, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("stack", rootCmd.PersistentFlags().Lookup("stack"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Read from environment variables
	viper.SetEnvPrefix("NIMBUS")
	viper.AutomaticEnv()

	// Fall back to the AWS CLI environment
	if viper.GetString("profile") == "" {
		if p := os.Getenv("AWS_PROFILE"); p != "" {
			viper.Set("profile", p)
		}
	}
}

// target is the stack a command operates on and how it was resolved.
type target struct {
	name  string
	entry *config.StackEntry
	state *config.State
}

// resolveTarget picks the stack from --stack, then the active stack.
func resolveTarget() (*target, error) {
	state, err := config.LoadState(config.StatePath())
	if err != nil {
		return nil, err
	}

	t := &target{state: state, name: viper.GetString("stack")}
	if t.name == "" {
		entry, name, err := state.Current()
		if err != nil {
			return nil, err
		}
		t.name, t.entry = name, entry
	} else {
		t.entry = state.Stacks[t.name]
	}

	return t, nil
}

// loadConfig reads and validates the configuration of the target stack.
// Flags override the stack entry, which overrides the file.
func loadConfig() (*config.Config, error) {
	t, err := resolveTarget()
	if err != nil {
		return nil, err
	}

	path := viper.GetString("config")
	if path == "" && t.entry != nil {
		path = t.entry.ConfigFile
	}

	v := viper.New()
	v.SetEnvPrefix("NIMBUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := config.ReadFile(v, path); err != nil {
		return nil, err
	}

	if t.entry != nil {
		setIf(v, "profile", t.entry.Profile)
		setIf(v, "region", t.entry.Region)
	}
	setIf(v, "stack", t.name)
	setIf(v, "profile", viper.GetString("profile"))
	setIf(v, "region", viper.GetString("region"))

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	logger.Debugf("loaded stack %s (config %q, profile %q, region %s)", cfg.Stack, v.ConfigFileUsed(), cfg.Profile, cfg.Region)
	return cfg, nil
}

func setIf(v *viper.Viper, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func newAWSClient(ctx context.Context, cfg *config.Config) (*aws.Client, error) {
	return aws.NewClient(ctx, aws.WithProfile(cfg.Profile), aws.WithRegion(cfg.Region))
}

func newEngine(cfg *config.Config) (*deploy.Engine, error) {
	settings, err := deploy.LoadSettings()
	if err != nil {
		return nil, err
	}
	return deploy.NewEngine(cfg, settings, os.Stdout), nil
}
