// Package netplan carves the subnet groups of the VPC out of its base prefix.
package netplan

import (
	"fmt"
	"net"
	"sort"

	"github.com/apparentlymart/go-cidr/cidr"
)

// Role names a subnet group.
type Role string

const (
	// WebServers subnets are public and route to the internet gateway.
	WebServers Role = "web-servers"
	// Compute subnets are private and route through the NAT instance.
	Compute Role = "compute"
)

// Roles lists the subnet groups every network carries, in creation order.
func Roles() []Role {
	return []Role{WebServers, Compute}
}

// Public reports whether subnets of the role face the internet gateway.
func (r Role) Public() bool {
	return r == WebServers
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == WebServers || r == Compute
}

// GroupSpec sizes one subnet group. Each zone takes the next network
// number after NetNum, so a group of three zones starting at NetNum 25 with
// NewBits 6 yields the 25th, 26th and 27th /22 of a /16.
type GroupSpec struct {
	NewBits int
	NetNum  int
}

// Allocation is one subnet of the plan.
type Allocation struct {
	Role Role
	Zone string
	CIDR string
}

// Plan is the full set of subnet allocations of a network.
type Plan struct {
	Base        string
	Allocations []Allocation
}

// Group returns the allocations of a role in zone order.
func (p Plan) Group(role Role) []Allocation {
	var out []Allocation
	for _, a := range p.Allocations {
		if a.Role == role {
			out = append(out, a)
		}
	}
	return out
}

// Build computes the allocations for every role across zones and verifies
// that they fit in base without overlapping.
func Build(base string, zones []string, groups map[Role]GroupSpec) (Plan, error) {
	_, baseNet, err := net.ParseCIDR(base)
	if err != nil {
		return Plan{}, fmt.Errorf("invalid base CIDR %q: %w", base, err)
	}
	if len(zones) == 0 {
		return Plan{}, fmt.Errorf("at least one availability zone is required")
	}
	seen := make(map[string]bool, len(zones))
	for _, zone := range zones {
		if zone == "" {
			return Plan{}, fmt.Errorf("availability zone must not be empty")
		}
		if seen[zone] {
			return Plan{}, fmt.Errorf("availability zone %s listed twice", zone)
		}
		seen[zone] = true
	}

	roles := make([]Role, 0, len(groups))
	for role := range groups {
		if !role.Valid() {
			return Plan{}, fmt.Errorf("unknown subnet group %q", role)
		}
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roleOrder(roles[i]) < roleOrder(roles[j]) })

	plan := Plan{Base: baseNet.String()}
	var nets []*net.IPNet
	for _, role := range roles {
		spec := groups[role]
		for i, zone := range zones {
			subnet, err := cidr.Subnet(baseNet, spec.NewBits, spec.NetNum+i)
			if err != nil {
				return Plan{}, fmt.Errorf("subnet group %s zone %s: %w", role, zone, err)
			}
			nets = append(nets, subnet)
			plan.Allocations = append(plan.Allocations, Allocation{
				Role: role,
				Zone: zone,
				CIDR: subnet.String(),
			})
		}
	}

	if err := cidr.VerifyNoOverlap(nets, baseNet); err != nil {
		return Plan{}, fmt.Errorf("subnet plan for %s: %w", base, err)
	}

	return plan, nil
}

// Disjoint reports whether two CIDR blocks share no address.
func Disjoint(a, b string) (bool, error) {
	_, an, err := net.ParseCIDR(a)
	if err != nil {
		return false, err
	}
	_, bn, err := net.ParseCIDR(b)
	if err != nil {
		return false, err
	}
	return !an.Contains(bn.IP) && !bn.Contains(an.IP), nil
}

func roleOrder(r Role) int {
	for i, known := range Roles() {
		if r == known {
			return i
		}
	}
	return len(Roles())
}
