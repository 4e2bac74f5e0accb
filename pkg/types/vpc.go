package types

// VPC represents an AWS VPC
type VPC struct {
	ID        string
	Name      string
	CIDR      string
	State     string
	IsDefault bool
	OwnerID   string
}

// Subnet represents an AWS VPC Subnet
type Subnet struct {
	ID           string
	Name         string
	Role         string // web-servers or compute
	VPCID        string
	CIDR         string
	AZ           string
	AvailableIPs int
	State        string
	Public       bool   // MapPublicIpOnLaunch
	RouteTableID string // explicitly associated route table
}

// RouteEntry is one route of a route table
type RouteEntry struct {
	RouteTableID string
	Destination  string
	Target       string // igw-..., eni-..., local
	State        string
}

// Network is a VPC with its subnets and routes as deployed
type Network struct {
	VPC     VPC
	Subnets []Subnet
	Routes  []RouteEntry
}

// DefaultRoute returns the 0.0.0.0/0 route of a route table, if any
func (n *Network) DefaultRoute(routeTableID string) (RouteEntry, bool) {
	for _, r := range n.Routes {
		if r.RouteTableID == routeTableID && r.Destination == "0.0.0.0/0" {
			return r, true
		}
	}
	return RouteEntry{}, false
}
