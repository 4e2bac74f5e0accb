package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/netplan"
)

// SubnetArgs places one subnet.
type SubnetArgs struct {
	VpcID pulumi.StringInput
	Zone  string
	CIDR  string
	Role  netplan.Role
}

// Subnet is a subnet with its own route table.
type Subnet struct {
	pulumi.ResourceState

	Zone string
	CIDR string
	Role netplan.Role

	SubnetID     pulumi.StringOutput
	RouteTableID pulumi.StringOutput

	ctx  *pulumi.Context
	name string
}

// RouteSpec is a route appended to a subnet's route table. Set exactly one
// target.
type RouteSpec struct {
	DestinationCidrBlock string
	GatewayID            pulumi.StringInput
	NetworkInterfaceID   pulumi.StringInput
}

// NewSubnet creates the subnet, a dedicated route table and their association.
func NewSubnet(ctx *pulumi.Context, name string, args *SubnetArgs, opts ...pulumi.ResourceOption) (*Subnet, error) {
	s := &Subnet{Zone: args.Zone, CIDR: args.CIDR, Role: args.Role, ctx: ctx, name: name}
	if err := ctx.RegisterComponentResource(typePrefix+"subnet", name, s, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(s)

	subnet, err := ec2.NewSubnet(ctx, name+"-subnet", &ec2.SubnetArgs{
		VpcId:               args.VpcID,
		AvailabilityZone:    pulumi.String(args.Zone),
		CidrBlock:           pulumi.String(args.CIDR),
		MapPublicIpOnLaunch: pulumi.Bool(args.Role.Public()),
		Tags:                tags("networking", "Name", name, "Role", string(args.Role)),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("subnet %s: %w", name, err)
	}

	routeTable, err := ec2.NewRouteTable(ctx, name+"-route-table", &ec2.RouteTableArgs{
		VpcId: args.VpcID,
		Tags:  tags("networking", "Name", name, "Role", string(args.Role)),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("route table %s: %w", name, err)
	}

	_, err = ec2.NewRouteTableAssociation(ctx, name+"-route-table-association", &ec2.RouteTableAssociationArgs{
		RouteTableId: routeTable.ID().ToStringOutput(),
		SubnetId:     subnet.ID().ToStringOutput(),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("route table association %s: %w", name, err)
	}

	s.SubnetID = subnet.ID().ToStringOutput()
	s.RouteTableID = routeTable.ID().ToStringOutput()

	if err := ctx.RegisterResourceOutputs(s, pulumi.Map{
		"subnetId":     s.SubnetID,
		"routeTableId": s.RouteTableID,
	}); err != nil {
		return nil, err
	}

	return s, nil
}

// AddRoute appends a route to the subnet's route table and returns the
// subnet for chaining. Overlapping routes are not checked.
func (s *Subnet) AddRoute(name string, spec RouteSpec) (*Subnet, error) {
	args := &ec2.RouteArgs{
		RouteTableId:         s.RouteTableID,
		DestinationCidrBlock: pulumi.String(spec.DestinationCidrBlock),
	}
	if spec.GatewayID != nil {
		args.GatewayId = spec.GatewayID.ToStringOutput()
	}
	if spec.NetworkInterfaceID != nil {
		args.NetworkInterfaceId = spec.NetworkInterfaceID.ToStringOutput()
	}

	if _, err := ec2.NewRoute(s.ctx, s.name+"-"+name, args, pulumi.Parent(s)); err != nil {
		return nil, fmt.Errorf("route %s-%s: %w", s.name, name, err)
	}

	return s, nil
}
