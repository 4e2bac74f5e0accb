package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/pkg/types"
)

func TestTableAlignment(t *testing.T) {
	tbl := &Table{Headers: []string{"Key", "Value"}}
	tbl.Add(Cell{Text: "vpcId"}, Cell{Text: "vpc-0123456789"})
	tbl.Add(Cell{Text: "subnetIds.compute[0]"}, Cell{Text: "subnet-1"})
	tbl.Add(Cell{Text: "short"})

	lines := strings.Split(strings.TrimRight(tbl.String(), "\n"), "\n")
	require.Len(t, lines, 7)

	width := runewidth.StringWidth(stripANSI(lines[0]))
	for _, l := range lines {
		assert.Equal(t, width, runewidth.StringWidth(stripANSI(l)), l)
	}
	assert.Contains(t, lines[3], "vpc-0123456789")
}

func TestTableTruncatesLongCells(t *testing.T) {
	tbl := &Table{Headers: []string{"Value"}}
	tbl.Add(Cell{Text: strings.Repeat("x", maxColumnWidth*2)})

	out := tbl.String()
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("x", maxColumnWidth+1))
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	PrintChecks(&buf, []types.Check{
		{Name: "account", Status: types.CheckPassed},
		{Name: "parameter /warehouse/cluster/master/password", Status: types.CheckFailed, Detail: "not found"},
	})

	out := buf.String()
	assert.Contains(t, out, "parameter /warehouse/cluster/master/password")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "2 checks")
	assert.Contains(t, out, "1 failed")
}

func TestPrintChanges(t *testing.T) {
	var buf bytes.Buffer
	PrintChanges(&buf, "Preview", []types.ChangeCount{{Op: "create", Count: 3}, {Op: "same", Count: 10}})
	assert.Contains(t, buf.String(), "3 create")
	assert.Contains(t, buf.String(), "10 same")

	buf.Reset()
	PrintChanges(&buf, "Refresh", nil)
	assert.Equal(t, "Refresh: no resources\n", buf.String())
}

func TestPrintOutputsEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintOutputs(&buf, nil)
	assert.Contains(t, buf.String(), "no outputs")
}

func TestPrintNetwork(t *testing.T) {
	var buf bytes.Buffer
	PrintNetwork(&buf, &types.Network{
		VPC:     types.VPC{ID: "vpc-1", CIDR: "10.100.0.0/16"},
		Subnets: []types.Subnet{{ID: "subnet-1", Role: "compute", RouteTableID: "rtb-1"}},
		Routes:  []types.RouteEntry{{RouteTableID: "rtb-1", Destination: "0.0.0.0/0", Target: "eni-nat"}},
	})
	assert.Contains(t, buf.String(), "eni-nat")
	assert.Contains(t, buf.String(), "1 subnets, 1 routes")
}

func TestStackModel(t *testing.T) {
	state := &config.State{
		CurrentStack: "prod",
		Stacks: map[string]*config.StackEntry{
			"dev":  {Profile: "dev-sso", Region: "eu-central-1"},
			"prod": {Profile: "prod-sso", Region: "eu-west-1", ConfigFile: "prod/nimbus.yaml"},
		},
	}

	items := []stackItem{
		{name: "dev", entry: state.Stacks["dev"]},
		{name: "prod", entry: state.Stacks["prod"], current: true},
	}
	m := newStackModel(items)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("pro")})
	m = next.(StackModel)
	require.Len(t, m.filtered, 1)
	assert.Contains(t, m.View(), "prod/nimbus.yaml")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(StackModel)
	assert.NotNil(t, cmd)
	assert.Equal(t, "prod", m.selected)
	assert.False(t, m.cancelled)
}

// stripANSI removes styling so widths can be compared.
func stripANSI(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEscape = false
		case !inEscape:
			out.WriteRune(r)
		}
	}
	return out.String()
}
