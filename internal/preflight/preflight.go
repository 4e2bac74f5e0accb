// Package preflight checks the live account for everything a deployment
// reads but does not create: master credentials, broker user secrets,
// service secret parameters, the NAT image and the target account.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/juju/loggo/v2"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/credentials"
	"github.com/vietdv277/nimbus/internal/naming"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

var logger = loggo.GetLogger("nimbus.preflight")

// Runner runs the preflight checks against one account.
type Runner struct {
	Parameters provider.ParameterStore
	Secrets    provider.SecretStore
	Identity   provider.IdentityProvider
	Images     provider.ImageCatalog
}

// Run checks every external input cfg depends on. A non-nil error means
// the checks could not run at all, e.g. expired credentials; individual
// missing inputs are reported as failed checks.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) ([]types.Check, error) {
	id, err := r.Identity.CallerIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve caller identity: %w", err)
	}

	account := id.Account
	checks := []types.Check{r.checkAccount(cfg, id)}
	if cfg.AccountID != "" {
		account = cfg.AccountID
	}

	for _, path := range []string{
		naming.MasterUsernamePath(cfg.Warehouse.Name),
		naming.MasterPasswordPath(cfg.Warehouse.Name),
	} {
		checks = append(checks, r.checkParameter(ctx, path))
	}

	for _, user := range []string{naming.BrokerAdminUser, naming.BrokerReplicationUser} {
		arn := naming.BrokerSecretARN(cfg.Region, account, cfg.Broker.Name, user)
		checks = append(checks, r.checkBrokerSecret(ctx, naming.BrokerSecretName(cfg.Broker.Name, user), arn))
	}

	seen := map[string]bool{}
	for _, svc := range cfg.Services {
		for _, s := range svc.Secrets {
			path := "/" + strings.TrimPrefix(s.Parameter, "/")
			if seen[path] || producedByStack(cfg, path) {
				continue
			}
			seen[path] = true
			checks = append(checks, r.checkParameter(ctx, path))
		}
	}

	if cfg.Network.Nat.ImageID != "" {
		checks = append(checks, r.checkImage(ctx, cfg.Network.Nat.ImageID))
	}

	for _, c := range checks {
		logger.Debugf("%s: %s %s", c.Name, c.Status, c.Detail)
	}
	return checks, nil
}

func (r *Runner) checkAccount(cfg *config.Config, id *types.CallerIdentity) types.Check {
	c := types.Check{Name: "account"}
	switch {
	case cfg.AccountID == "":
		c.Status = types.CheckPassed
		c.Detail = fmt.Sprintf("deploying into %s as %s", id.Account, id.Arn)
	case cfg.AccountID == id.Account:
		c.Status = types.CheckPassed
		c.Detail = fmt.Sprintf("credentials match pinned account %s", id.Account)
	default:
		c.Status = types.CheckFailed
		c.Detail = fmt.Sprintf("credentials belong to %s, config pins %s", id.Account, cfg.AccountID)
	}
	return c
}

func (r *Runner) checkParameter(ctx context.Context, path string) types.Check {
	c := types.Check{Name: "parameter " + path}
	if _, err := r.Parameters.Get(ctx, path, false); err != nil {
		c.Status = types.CheckFailed
		c.Detail = describe(err)
		return c
	}
	c.Status = types.CheckPassed
	return c
}

func (r *Runner) checkBrokerSecret(ctx context.Context, name, arn string) types.Check {
	c := types.Check{Name: "secret " + name}

	secret, err := r.Secrets.Get(ctx, arn)
	if err != nil {
		c.Status = types.CheckFailed
		c.Detail = describe(err)
		return c
	}
	if _, err := credentials.ParseBroker(secret.Value); err != nil {
		c.Status = types.CheckFailed
		c.Detail = err.Error()
		return c
	}

	c.Status = types.CheckPassed
	return c
}

func (r *Runner) checkImage(ctx context.Context, imageID string) types.Check {
	c := types.Check{Name: "nat image " + imageID}
	ok, err := r.Images.ImageExists(ctx, imageID)
	switch {
	case err != nil:
		c.Status = types.CheckFailed
		c.Detail = describe(err)
	case !ok:
		c.Status = types.CheckFailed
		c.Detail = "image not found in this region"
	default:
		c.Status = types.CheckPassed
	}
	return c
}

// producedByStack reports whether the deployment itself writes path, in
// which case it cannot exist before the first deployment.
func producedByStack(cfg *config.Config, path string) bool {
	switch path {
	case naming.ClusterHostPath(cfg.Warehouse.Name),
		naming.BrokerHostPath(cfg.Broker.Name),
		naming.BrokerPortPath(cfg.Broker.Name):
		return true
	}
	return false
}

func describe(err error) string {
	switch {
	case errors.Is(err, provider.ErrNotFound):
		return "not found"
	case errors.Is(err, provider.ErrPermissionDenied):
		return "access denied"
	}
	return err.Error()
}
