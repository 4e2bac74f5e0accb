package deploy

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

// Settings holds the engine configuration read from the environment.
type Settings struct {
	BackendURL      string `env:"PULUMI_BACKEND_URL"`
	Passphrase      string `env:"PULUMI_CONFIG_PASSPHRASE"`
	AccessToken     string `env:"PULUMI_ACCESS_TOKEN"`
	SecretsProvider string `env:"NIMBUS_SECRETS_PROVIDER"`
	WorkDir         string `env:"NIMBUS_WORK_DIR"`
	Parallel        int    `env:"NIMBUS_PARALLEL" envDefault:"10"`
}

// LoadSettings reads Settings from the process environment.
func LoadSettings() (Settings, error) {
	return parseSettings(env.Options{})
}

func parseSettings(opts env.Options) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("failed to parse engine settings: %w", err)
	}
	if s.Parallel < 1 {
		return Settings{}, fmt.Errorf("NIMBUS_PARALLEL must be at least 1, got %d", s.Parallel)
	}
	return s, nil
}

// envVars returns the variables handed to the engine process. Unset
// settings are left to the engine's own defaults.
func (s Settings) envVars(profile string) map[string]string {
	vars := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			vars[k] = v
		}
	}
	set("PULUMI_BACKEND_URL", s.BackendURL)
	set("PULUMI_CONFIG_PASSPHRASE", s.Passphrase)
	set("PULUMI_ACCESS_TOKEN", s.AccessToken)
	set("AWS_PROFILE", profile)
	return vars
}
