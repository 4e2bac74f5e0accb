package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	file := filepath.Join(dir, "nimbus.yaml")
	require.NoError(t, os.WriteFile(file, []byte("project: llm-twin\nregion: eu-west-1\nprofile: from-file\n"), 0644))

	statePath := filepath.Join(dir, "state.yaml")
	t.Setenv("NIMBUS_STATE_FILE", statePath)
	state := &config.State{
		CurrentStack: "prod",
		Stacks: map[string]*config.StackEntry{
			"prod": {ConfigFile: file, Profile: "ops", Region: "us-west-2"},
		},
	}
	require.NoError(t, state.Save(statePath))

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Stack)
	assert.Equal(t, "llm-twin", cfg.Project)
	assert.Equal(t, "ops", cfg.Profile)
	assert.Equal(t, "us-west-2", cfg.Region)

	viper.Set("profile", "cli")
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "cli", cfg.Profile)
	assert.Equal(t, "us-west-2", cfg.Region)
}

type fakeNat struct {
	statuses []string
	calls    int
}

func (f *fakeNat) NatGroup(ctx context.Context, name string) (*types.AutoScalingGroup, error) {
	return nil, provider.ErrNotFound
}

func (f *fakeNat) Refresh(ctx context.Context, groupName string) (*types.InstanceRefresh, error) {
	return &types.InstanceRefresh{ID: "r-1", Status: "Pending"}, nil
}

func (f *fakeNat) RefreshStatus(ctx context.Context, groupName, refreshID string) (*types.InstanceRefresh, error) {
	status := f.statuses[f.calls]
	f.calls++
	return &types.InstanceRefresh{ID: refreshID, Status: status, PercentageComplete: 50 * f.calls}, nil
}

func TestWaitForRefresh(t *testing.T) {
	nat := &fakeNat{statuses: []string{"Pending", "InProgress", "Successful"}}

	refresh, err := waitForRefresh(context.Background(), nat, "fck-nat", "r-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "Successful", refresh.Status)
	assert.Equal(t, 3, nat.calls)
}

func TestWaitForRefreshCancelled(t *testing.T) {
	nat := &fakeNat{statuses: []string{"InProgress", "InProgress"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := waitForRefresh(ctx, nat, "fck-nat", "r-1", time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeInspector struct {
	network *types.Network
}

func (f *fakeInspector) Network(ctx context.Context, vpcID string) (*types.Network, error) {
	if f.network == nil || f.network.VPC.ID != vpcID {
		return nil, provider.ErrNotFound
	}
	return f.network, nil
}

func TestInspectNetwork(t *testing.T) {
	network := &types.Network{
		VPC: types.VPC{ID: "vpc-1", CIDR: "10.100.0.0/16"},
		Subnets: []types.Subnet{
			{ID: "subnet-a", Role: "web-servers", AZ: "eu-central-1a", Public: true, RouteTableID: "rtb-a"},
			{ID: "subnet-b", Role: "compute", AZ: "eu-central-1a", RouteTableID: "rtb-b"},
		},
		Routes: []types.RouteEntry{
			{RouteTableID: "rtb-a", Destination: "0.0.0.0/0", Target: "igw-1", State: "active"},
			{RouteTableID: "rtb-b", Destination: "0.0.0.0/0", Target: "eni-1", State: "active"},
		},
	}
	inspector := &fakeInspector{network: network}

	var out bytes.Buffer
	require.NoError(t, inspectNetwork(context.Background(), &out, inspector, "vpc-1", "eni-1"))
	assert.Contains(t, out.String(), "subnet-b")

	out.Reset()
	assert.Error(t, inspectNetwork(context.Background(), &out, inspector, "vpc-1", "eni-other"))

	assert.ErrorIs(t, inspectNetwork(context.Background(), &out, inspector, "vpc-2", "eni-1"), provider.ErrNotFound)
}
