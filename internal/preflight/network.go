package preflight

import (
	"fmt"
	"strings"

	"github.com/vietdv277/nimbus/internal/netplan"
	"github.com/vietdv277/nimbus/pkg/types"
)

// VerifyNetwork checks a deployed network against the routing invariants:
// every web-servers subnet sends 0.0.0.0/0 to the internet gateway and
// every compute subnet sends it to the NAT interface. Subnets without a
// Role tag are ignored.
func VerifyNetwork(n *types.Network, natInterfaceID string) []types.Check {
	var checks []types.Check
	for _, s := range n.Subnets {
		role := netplan.Role(s.Role)
		if !role.Valid() {
			continue
		}

		c := types.Check{Name: fmt.Sprintf("route %s (%s %s)", s.ID, s.Role, s.AZ)}
		route, ok := n.DefaultRoute(s.RouteTableID)
		switch {
		case s.RouteTableID == "":
			c.Status = types.CheckFailed
			c.Detail = "no route table associated"
		case !ok:
			c.Status = types.CheckFailed
			c.Detail = "no default route"
		case role.Public() && !isInternetGateway(route.Target):
			c.Status = types.CheckFailed
			c.Detail = "default route targets " + route.Target + ", want an internet gateway"
		case !role.Public() && route.Target != natInterfaceID:
			c.Status = types.CheckFailed
			c.Detail = fmt.Sprintf("default route targets %s, want NAT interface %s", route.Target, natInterfaceID)
		case route.State == "blackhole":
			c.Status = types.CheckWarning
			c.Detail = "default route is a blackhole"
		default:
			c.Status = types.CheckPassed
			c.Detail = "0.0.0.0/0 -> " + route.Target
		}
		checks = append(checks, c)
	}
	return checks
}

func isInternetGateway(target string) bool {
	return strings.HasPrefix(target, "igw-")
}
