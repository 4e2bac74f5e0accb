package deploy

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optdestroy"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optrefresh"
	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/pulumi/pulumi/sdk/v3/go/common/apitype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/pkg/types"
)

func TestParseSettings(t *testing.T) {
	s, err := parseSettings(env.Options{Environment: map[string]string{
		"PULUMI_BACKEND_URL":       "s3://state-bucket",
		"PULUMI_CONFIG_PASSPHRASE": "hunter2",
	}})
	require.NoError(t, err)
	assert.Equal(t, "s3://state-bucket", s.BackendURL)
	assert.Equal(t, 10, s.Parallel)

	vars := s.envVars("deployer")
	assert.Equal(t, map[string]string{
		"PULUMI_BACKEND_URL":       "s3://state-bucket",
		"PULUMI_CONFIG_PASSPHRASE": "hunter2",
		"AWS_PROFILE":              "deployer",
	}, vars)

	_, err = parseSettings(env.Options{Environment: map[string]string{"NIMBUS_PARALLEL": "0"}})
	assert.Error(t, err)

	_, err = parseSettings(env.Options{Environment: map[string]string{"NIMBUS_PARALLEL": "many"}})
	assert.Error(t, err)
}

func TestFlattenOutputs(t *testing.T) {
	outputs := auto.OutputMap{
		"vpcId": {Value: "vpc-1"},
		"subnetIds": {Value: map[string]any{
			"compute":     []any{"subnet-c1", "subnet-c2"},
			"web-servers": []any{"subnet-w1"},
		}},
		"docdbEndpoint": {Value: "warehouse.cluster", Secret: true},
		"serviceNames":  {Value: []any{}},
		"replicas":      {Value: float64(3)},
	}

	rows := FlattenOutputs(outputs, false)
	assert.Equal(t, []types.StackOutput{
		{Key: "docdbEndpoint", Value: SecretMask, Secret: true},
		{Key: "replicas", Value: "3"},
		{Key: "subnetIds.compute[0]", Value: "subnet-c1"},
		{Key: "subnetIds.compute[1]", Value: "subnet-c2"},
		{Key: "subnetIds.web-servers[0]", Value: "subnet-w1"},
		{Key: "vpcId", Value: "vpc-1"},
	}, rows)

	revealed := FlattenOutputs(outputs, true)
	assert.Equal(t, "warehouse.cluster", revealed[0].Value)
	assert.True(t, revealed[0].Secret)
}

func TestChanges(t *testing.T) {
	changes := Changes(map[string]int{
		"same":               40,
		"create":             3,
		"delete":             0,
		"update":             1,
		"discard":            2,
		"create-replacement": 1,
	})
	assert.Equal(t, []types.ChangeCount{
		{Op: "create", Count: 3},
		{Op: "update", Count: 1},
		{Op: "same", Count: 40},
		{Op: "create-replacement", Count: 1},
		{Op: "discard", Count: 2},
	}, changes)
	assert.True(t, HasChanges(changes))

	assert.False(t, HasChanges(Changes(map[string]int{"same": 12})))
	assert.Empty(t, Changes(nil))
}

type fakeStack struct {
	upCalls int
	err     error
}

func (f *fakeStack) Preview(context.Context, ...optpreview.Option) (auto.PreviewResult, error) {
	return auto.PreviewResult{ChangeSummary: map[apitype.OpType]int{apitype.OpCreate: 60}}, f.err
}

func (f *fakeStack) Up(context.Context, ...optup.Option) (auto.UpResult, error) {
	f.upCalls++
	changes := map[string]int{"create": 60}
	return auto.UpResult{
		Outputs: auto.OutputMap{"vpcId": {Value: "vpc-1"}},
		Summary: auto.UpdateSummary{ResourceChanges: &changes},
	}, f.err
}

func (f *fakeStack) Destroy(context.Context, ...optdestroy.Option) (auto.DestroyResult, error) {
	changes := map[string]int{"delete": 60}
	return auto.DestroyResult{Summary: auto.UpdateSummary{ResourceChanges: &changes}}, f.err
}

func (f *fakeStack) Refresh(context.Context, ...optrefresh.Option) (auto.RefreshResult, error) {
	return auto.RefreshResult{Summary: auto.UpdateSummary{}}, f.err
}

func (f *fakeStack) Outputs(context.Context) (auto.OutputMap, error) {
	return auto.OutputMap{"vpcId": {Value: "vpc-1"}}, f.err
}

func testEngine(s *fakeStack) *Engine {
	e := NewEngine(config.Default(), Settings{Parallel: 4}, &bytes.Buffer{})
	e.open = func(context.Context) (stack, error) { return s, nil }
	return e
}

func TestEngineOperations(t *testing.T) {
	s := &fakeStack{}
	e := testEngine(s)
	ctx := context.Background()

	preview, err := e.Preview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.ChangeCount{{Op: "create", Count: 60}}, preview.Changes)

	up, err := e.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.upCalls)
	assert.Equal(t, "vpc-1", up.Outputs["vpcId"].Value)

	destroyed, err := e.Destroy(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.ChangeCount{{Op: "delete", Count: 60}}, destroyed.Changes)

	refreshed, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.Empty(t, refreshed.Changes)

	outputs, err := e.Outputs(ctx)
	require.NoError(t, err)
	assert.Len(t, outputs, 1)
}

func TestEngineErrors(t *testing.T) {
	e := testEngine(&fakeStack{err: errors.New("provider exploded")})

	_, err := e.Up(context.Background())
	assert.EqualError(t, err, "update failed: provider exploded")

	e.open = func(context.Context) (stack, error) { return nil, errors.New("no backend") }
	_, err = e.Preview(context.Background())
	assert.EqualError(t, err, "no backend")
}

func TestToStackSummary(t *testing.T) {
	count := 61
	s := toStackSummary(auto.StackSummary{
		Name:          "dev",
		Current:       true,
		LastUpdate:    "2026-10-01T12:00:00Z",
		ResourceCount: &count,
	})
	assert.Equal(t, "dev", s.Name)
	assert.True(t, s.Current)
	assert.Equal(t, 61, s.ResourceCount)
	assert.Equal(t, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC), s.LastUpdate)

	assert.True(t, toStackSummary(auto.StackSummary{LastUpdate: "never"}).LastUpdate.IsZero())
}
