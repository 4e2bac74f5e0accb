package preflight

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

const account = "123456789012"

type fakeParams map[string]string

func (f fakeParams) List(context.Context, *provider.ParameterFilter) ([]types.Parameter, error) {
	return nil, nil
}

func (f fakeParams) Get(_ context.Context, name string, _ bool) (*types.Parameter, error) {
	v, ok := f[name]
	if !ok {
		return nil, fmt.Errorf("get parameter %s: %w", name, provider.ErrNotFound)
	}
	return &types.Parameter{Name: name, Value: v}, nil
}

type fakeSecrets map[string]string

func (f fakeSecrets) Get(_ context.Context, arn string) (*types.SecretValue, error) {
	v, ok := f[arn]
	if !ok {
		return nil, fmt.Errorf("get secret %s: %w", arn, provider.ErrNotFound)
	}
	return &types.SecretValue{Value: v}, nil
}

type fakeIdentity struct {
	account string
	err     error
}

func (f fakeIdentity) CallerIdentity(context.Context) (*types.CallerIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &types.CallerIdentity{Account: f.account, Arn: "arn:aws:iam::" + f.account + ":user/ops"}, nil
}

type fakeImages map[string]bool

func (f fakeImages) ImageExists(_ context.Context, id string) (bool, error) {
	return f[id], nil
}

func healthyRunner() *Runner {
	return &Runner{
		Parameters: fakeParams{
			"/warehouse/cluster/master/username": "admin",
			"/warehouse/cluster/master/password": "secret",
			"/database/username":                 "reader",
		},
		Secrets: fakeSecrets{
			"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/admin":            `{"username":"admin","password":"a"}`,
			"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/replication-user": `{"username":"repl","password":"r"}`,
		},
		Identity: fakeIdentity{account: account},
		Images:   fakeImages{"ami-0fcknat": true},
	}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Region = "eu-central-1"
	cfg.Services = []config.ServiceConfig{{
		Name: "bytewax",
		Secrets: []config.SecretRef{
			{Name: "MONGO_DATABASE_HOST", Parameter: "warehouse/cluster/host"},
			{Name: "MONGO_DATABASE_USER", Parameter: "database/username"},
			{Name: "MONGO_DATABASE_USER_AGAIN", Parameter: "/database/username"},
		},
	}}
	return cfg
}

func byName(t *testing.T, checks []types.Check, name string) types.Check {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	require.FailNowf(t, "check not run", "%s", name)
	return types.Check{}
}

func TestRunHealthy(t *testing.T) {
	checks, err := healthyRunner().Run(context.Background(), testConfig())
	require.NoError(t, err)

	assert.False(t, types.Failed(checks), "%+v", checks)

	names := make([]string, 0, len(checks))
	for _, c := range checks {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{
		"account",
		"parameter /warehouse/cluster/master/username",
		"parameter /warehouse/cluster/master/password",
		"secret /streaming/broker/admin",
		"secret /streaming/broker/replication-user",
		"parameter /database/username",
	}, names, "stack-produced and duplicate parameters are skipped")
}

func TestRunMissingInputs(t *testing.T) {
	r := healthyRunner()
	r.Parameters = fakeParams{"/warehouse/cluster/master/username": "admin"}
	r.Secrets = fakeSecrets{
		"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/admin":            "",
		"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/replication-user": `{"username":"repl"}`,
	}

	checks, err := r.Run(context.Background(), testConfig())
	require.NoError(t, err)
	assert.True(t, types.Failed(checks))

	password := byName(t, checks, "parameter /warehouse/cluster/master/password")
	assert.Equal(t, types.CheckFailed, password.Status)
	assert.Equal(t, "not found", password.Detail)

	admin := byName(t, checks, "secret /streaming/broker/admin")
	assert.Equal(t, types.CheckFailed, admin.Status)
	assert.Contains(t, admin.Detail, "no string data")

	repl := byName(t, checks, "secret /streaming/broker/replication-user")
	assert.Equal(t, types.CheckFailed, repl.Status)
	assert.Contains(t, repl.Detail, "username and password are required")
}

func TestRunAccountMismatch(t *testing.T) {
	cfg := testConfig()
	cfg.AccountID = "210987654321"

	checks, err := healthyRunner().Run(context.Background(), cfg)
	require.NoError(t, err)

	c := byName(t, checks, "account")
	assert.Equal(t, types.CheckFailed, c.Status)
	assert.Equal(t, "credentials belong to 123456789012, config pins 210987654321", c.Detail)

	// Secrets are looked up in the pinned account.
	admin := byName(t, checks, "secret /streaming/broker/admin")
	assert.Equal(t, types.CheckFailed, admin.Status)
}

func TestRunNatImage(t *testing.T) {
	cfg := testConfig()
	cfg.Network.Nat.ImageID = "ami-0fcknat"
	checks, err := healthyRunner().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CheckPassed, byName(t, checks, "nat image ami-0fcknat").Status)

	cfg.Network.Nat.ImageID = "ami-gone"
	checks, err = healthyRunner().Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, types.CheckFailed, byName(t, checks, "nat image ami-gone").Status)
}

func TestRunIdentityError(t *testing.T) {
	r := healthyRunner()
	r.Identity = fakeIdentity{err: provider.ErrAuthFailed}

	_, err := r.Run(context.Background(), testConfig())
	assert.True(t, errors.Is(err, provider.ErrAuthFailed))
}

func TestVerifyNetwork(t *testing.T) {
	n := &types.Network{
		Subnets: []types.Subnet{
			{ID: "subnet-web-a", Role: "web-servers", AZ: "eu-central-1a", RouteTableID: "rtb-web-a"},
			{ID: "subnet-compute-a", Role: "compute", AZ: "eu-central-1a", RouteTableID: "rtb-compute-a"},
			{ID: "subnet-compute-b", Role: "compute", AZ: "eu-central-1b", RouteTableID: "rtb-compute-b"},
			{ID: "subnet-compute-c", Role: "compute", AZ: "eu-central-1c"},
			{ID: "subnet-other", AZ: "eu-central-1a", RouteTableID: "rtb-other"},
		},
		Routes: []types.RouteEntry{
			{RouteTableID: "rtb-web-a", Destination: "0.0.0.0/0", Target: "igw-1", State: "active"},
			{RouteTableID: "rtb-compute-a", Destination: "0.0.0.0/0", Target: "eni-nat", State: "active"},
			{RouteTableID: "rtb-compute-b", Destination: "0.0.0.0/0", Target: "igw-1", State: "active"},
		},
	}

	checks := VerifyNetwork(n, "eni-nat")
	require.Len(t, checks, 4)

	assert.Equal(t, types.CheckPassed, checks[0].Status)
	assert.Equal(t, types.CheckPassed, checks[1].Status)
	assert.Equal(t, "0.0.0.0/0 -> eni-nat", checks[1].Detail)
	assert.Equal(t, types.CheckFailed, checks[2].Status)
	assert.Contains(t, checks[2].Detail, "want NAT interface eni-nat")
	assert.Equal(t, types.CheckFailed, checks[3].Status)
	assert.Equal(t, "no route table associated", checks[3].Detail)
}
