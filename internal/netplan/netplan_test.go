package netplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultGroups = map[Role]GroupSpec{
	WebServers: {NewBits: 8, NetNum: 0},
	Compute:    {NewBits: 6, NetNum: 25},
}

func TestBuildDefaultPlan(t *testing.T) {
	plan, err := Build("10.100.0.0/16", []string{"eu-central-1a", "eu-central-1b", "eu-central-1c"}, defaultGroups)
	require.NoError(t, err)

	var web []string
	for _, a := range plan.Group(WebServers) {
		web = append(web, a.CIDR)
	}
	assert.Equal(t, []string{"10.100.0.0/24", "10.100.1.0/24", "10.100.2.0/24"}, web)

	var compute []string
	for _, a := range plan.Group(Compute) {
		compute = append(compute, a.CIDR)
	}
	assert.Equal(t, []string{"10.100.100.0/22", "10.100.104.0/22", "10.100.108.0/22"}, compute)

	assert.Equal(t, "eu-central-1b", plan.Group(Compute)[1].Zone)
}

func TestBuildAllocationsArePairwiseDisjoint(t *testing.T) {
	plan, err := Build("10.100.0.0/16", []string{"a", "b", "c"}, defaultGroups)
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 6)

	for i, a := range plan.Allocations {
		for j, b := range plan.Allocations {
			if i == j {
				continue
			}
			ok, err := Disjoint(a.CIDR, b.CIDR)
			require.NoError(t, err)
			assert.True(t, ok, "%s overlaps %s", a.CIDR, b.CIDR)
		}
	}
}

func TestBuildRejectsOverlap(t *testing.T) {
	_, err := Build("10.100.0.0/16", []string{"a", "b", "c"}, map[Role]GroupSpec{
		WebServers: {NewBits: 8, NetNum: 0},
		Compute:    {NewBits: 8, NetNum: 2},
	})
	assert.Error(t, err)
}

func TestBuildRejectsEscapingPrefix(t *testing.T) {
	_, err := Build("10.100.0.0/16", []string{"a", "b", "c"}, map[Role]GroupSpec{
		WebServers: {NewBits: 8, NetNum: 254},
	})
	assert.Error(t, err)
}

func TestBuildRejectsUnknownRole(t *testing.T) {
	_, err := Build("10.100.0.0/16", []string{"a"}, map[Role]GroupSpec{"private": {NewBits: 8}})
	assert.ErrorContains(t, err, "unknown subnet group")
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := Build("10.100.0.0", []string{"a"}, defaultGroups)
	assert.Error(t, err)

	_, err = Build("10.100.0.0/16", nil, defaultGroups)
	assert.Error(t, err)
}

func TestBuildRejectsDuplicateZones(t *testing.T) {
	_, err := Build("10.100.0.0/16", []string{"eu-central-1a", "eu-central-1a", "eu-central-1b"}, defaultGroups)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eu-central-1a listed twice")

	_, err = Build("10.100.0.0/16", []string{"eu-central-1a", ""}, defaultGroups)
	assert.Error(t, err)
}

func TestDisjoint(t *testing.T) {
	ok, err := Disjoint("10.0.0.0/24", "10.0.1.0/24")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Disjoint("10.0.0.0/16", "10.0.1.0/24")
	require.NoError(t, err)
	assert.False(t, ok)
}
