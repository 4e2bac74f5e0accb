package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vietdv277/nimbus/pkg/types"
)

// PrintChecks prints preflight results followed by a pass/fail summary
func PrintChecks(w io.Writer, checks []types.Check) {
	t := &Table{Headers: []string{"Check", "Status", "Detail"}}
	counts := map[types.CheckStatus]int{}
	for _, c := range checks {
		counts[c.Status]++
		t.Add(cell(c.Name, NameStyle), formatCheckStatus(c.Status), cell(orDash(c.Detail), MutedStyle))
	}
	fmt.Fprint(w, t.String())

	var parts []string
	if n := counts[types.CheckPassed]; n > 0 {
		parts = append(parts, RunningStyle.Render(fmt.Sprintf("%d passed", n)))
	}
	if n := counts[types.CheckWarning]; n > 0 {
		parts = append(parts, PendingStyle.Render(fmt.Sprintf("%d warnings", n)))
	}
	if n := counts[types.CheckFailed]; n > 0 {
		parts = append(parts, FailedStyle.Render(fmt.Sprintf("%d failed", n)))
	}
	fmt.Fprintf(w, "  %d checks (%s)\n", len(checks), strings.Join(parts, ", "))
}

func formatCheckStatus(s types.CheckStatus) Cell {
	switch s {
	case types.CheckPassed:
		return cell("● pass", RunningStyle)
	case types.CheckWarning:
		return cell("◐ warn", PendingStyle)
	default:
		return cell("✗ fail", FailedStyle)
	}
}

// PrintOutputs prints flattened stack outputs
func PrintOutputs(w io.Writer, outputs []types.StackOutput) {
	if len(outputs) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("  no outputs; run `nimbus up` first"))
		return
	}

	t := &Table{Headers: []string{"Output", "Value"}}
	for _, o := range outputs {
		style := ValueStyle
		if o.Secret {
			style = MutedStyle
		}
		t.Add(cell(o.Key, NameStyle), cell(o.Value, style))
	}
	fmt.Fprint(w, t.String())
}

// PrintChanges prints a one-line resource change summary
func PrintChanges(w io.Writer, verb string, changes []types.ChangeCount) {
	if len(changes) == 0 {
		fmt.Fprintf(w, "%s: no resources\n", verb)
		return
	}

	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		parts = append(parts, opStyle(c.Op).Render(fmt.Sprintf("%d %s", c.Count, c.Op)))
	}
	fmt.Fprintf(w, "%s: %s\n", verb, strings.Join(parts, ", "))
}

func opStyle(op string) lipgloss.Style {
	switch {
	case op == "create":
		return RunningStyle
	case op == "delete" || strings.HasSuffix(op, "replace") || strings.HasSuffix(op, "replacement"):
		return FailedStyle
	case op == "update":
		return PendingStyle
	default:
		return MutedStyle
	}
}

// PrintNetwork prints the subnets of a network with their default routes
func PrintNetwork(w io.Writer, n *types.Network) {
	fmt.Fprintf(w, "VPC:  %s  %s  %s\n", IDStyle.Render(n.VPC.ID), NameStyle.Render(orDash(n.VPC.Name)), n.VPC.CIDR)

	t := &Table{Headers: []string{"Subnet", "Role", "CIDR", "AZ", "Free IPs", "Route Table", "Default Route"}}
	for _, s := range n.Subnets {
		target := "-"
		if r, ok := n.DefaultRoute(s.RouteTableID); ok {
			target = r.Target
		}
		t.Add(
			cell(s.ID, IDStyle),
			cell(orDash(s.Role), NameStyle),
			cell(s.CIDR, ValueStyle),
			cell(s.AZ, ValueStyle),
			cell(strconv.Itoa(s.AvailableIPs), MutedStyle),
			cell(orDash(s.RouteTableID), MutedStyle),
			cell(target, ValueStyle),
		)
	}
	fmt.Fprint(w, t.String())
	fmt.Fprintf(w, "  %d subnets, %d routes\n", len(n.Subnets), len(n.Routes))
}

// PrintNatGroup prints the NAT auto scaling group and its instances
func PrintNatGroup(w io.Writer, g *types.AutoScalingGroup) {
	fmt.Fprintf(w, "Group:    %s\n", NameStyle.Render(g.Name))
	fmt.Fprintf(w, "Template: %s\n", orDash(g.LaunchTemplate))
	fmt.Fprintf(w, "Capacity: %d desired (min %d, max %d)\n", g.DesiredCapacity, g.MinSize, g.MaxSize)
	fmt.Fprintf(w, "Status:   %s\n", formatGroupStatus(g))
	fmt.Fprintln(w)

	t := &Table{Headers: []string{"Instance", "State", "Health", "Type", "AZ", "Private IP", "Public IP", "Launched"}}
	for _, i := range g.Instances {
		launched := "-"
		if !i.LaunchTime.IsZero() {
			launched = i.LaunchTime.Format(time.RFC3339)
		}
		t.Add(
			cell(i.ID, IDStyle),
			formatState(i.State),
			cell(orDash(i.Health), ValueStyle),
			cell(i.Type, ValueStyle),
			cell(i.AZ, ValueStyle),
			cell(orDash(i.PrivateIP), ValueStyle),
			cell(orDash(i.PublicIP), ValueStyle),
			cell(launched, MutedStyle),
		)
	}
	fmt.Fprint(w, t.String())
}

func formatGroupStatus(g *types.AutoScalingGroup) string {
	text := fmt.Sprintf("%s, %d/%d healthy", g.Status, g.HealthyCount, g.InstanceCount)
	switch {
	case g.InstanceCount == 0 || g.UnhealthyCount > 0:
		return FailedStyle.Render(text)
	case g.HealthyCount < g.DesiredCapacity:
		return PendingStyle.Render(text)
	default:
		return RunningStyle.Render(text)
	}
}

func formatState(state string) Cell {
	switch state {
	case "running":
		return cell("● "+state, RunningStyle)
	case "pending", "stopping":
		return cell("◐ "+state, PendingStyle)
	default:
		return cell("○ "+orDash(state), StoppedStyle)
	}
}

// PrintStacks prints the stacks known to the engine backend
func PrintStacks(w io.Writer, stacks []types.StackSummary) {
	t := &Table{Headers: []string{"", "Stack", "Resources", "Last Update", "URL"}}
	for _, s := range stacks {
		marker := " "
		style := NameStyle
		if s.Current {
			marker = "*"
			style = RunningStyle
		}
		updated := "never"
		switch {
		case s.UpdateInProgress:
			updated = "in progress"
		case !s.LastUpdate.IsZero():
			updated = s.LastUpdate.Local().Format("2006-01-02 15:04")
		}
		t.Add(
			cell(marker, style),
			cell(s.Name, style),
			cell(strconv.Itoa(s.ResourceCount), ValueStyle),
			cell(updated, MutedStyle),
			cell(orDash(s.URL), MutedStyle),
		)
	}
	fmt.Fprint(w, t.String())
}
