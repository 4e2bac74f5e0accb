package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// Network returns the VPC with its subnets and the routes of their
// associated route tables.
func (c *Client) Network(ctx context.Context, vpcID string) (*types.Network, error) {
	vpcs, err := c.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		VpcIds: []string{vpcID},
	})
	if err != nil {
		return nil, classify(err, "describe vpc "+vpcID)
	}
	if len(vpcs.Vpcs) == 0 {
		return nil, fmt.Errorf("vpc %s: %w", vpcID, provider.ErrNotFound)
	}

	network := &types.Network{VPC: toVPC(vpcs.Vpcs[0])}
	byVpc := []ec2types.Filter{{
		Name:   aws.String("vpc-id"),
		Values: []string{vpcID},
	}}

	subnets := ec2.NewDescribeSubnetsPaginator(c.EC2, &ec2.DescribeSubnetsInput{Filters: byVpc})
	for subnets.HasMorePages() {
		page, err := subnets.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "describe subnets")
		}
		for _, s := range page.Subnets {
			network.Subnets = append(network.Subnets, toSubnet(s))
		}
	}

	index := make(map[string]int, len(network.Subnets))
	for i, s := range network.Subnets {
		index[s.ID] = i
	}

	tables := ec2.NewDescribeRouteTablesPaginator(c.EC2, &ec2.DescribeRouteTablesInput{Filters: byVpc})
	for tables.HasMorePages() {
		page, err := tables.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "describe route tables")
		}
		for _, rt := range page.RouteTables {
			tableID := deref(rt.RouteTableId)
			for _, assoc := range rt.Associations {
				if i, ok := index[deref(assoc.SubnetId)]; ok {
					network.Subnets[i].RouteTableID = tableID
				}
			}
			for _, r := range rt.Routes {
				network.Routes = append(network.Routes, toRoute(tableID, r))
			}
		}
	}

	return network, nil
}

// toVPC converts an EC2 VPC to our VPC type
func toVPC(v ec2types.Vpc) types.VPC {
	return types.VPC{
		ID:        deref(v.VpcId),
		Name:      tagValue(v.Tags, "Name"),
		CIDR:      deref(v.CidrBlock),
		State:     string(v.State),
		IsDefault: derefBool(v.IsDefault),
		OwnerID:   deref(v.OwnerId),
	}
}

// toSubnet converts an EC2 Subnet to our Subnet type
func toSubnet(s ec2types.Subnet) types.Subnet {
	return types.Subnet{
		ID:           deref(s.SubnetId),
		Name:         tagValue(s.Tags, "Name"),
		Role:         tagValue(s.Tags, "Role"),
		VPCID:        deref(s.VpcId),
		CIDR:         deref(s.CidrBlock),
		AZ:           deref(s.AvailabilityZone),
		AvailableIPs: int(deref32(s.AvailableIpAddressCount)),
		State:        string(s.State),
		Public:       derefBool(s.MapPublicIpOnLaunch),
	}
}

func toRoute(tableID string, r ec2types.Route) types.RouteEntry {
	entry := types.RouteEntry{
		RouteTableID: tableID,
		Destination:  deref(r.DestinationCidrBlock),
		State:        string(r.State),
	}
	switch {
	case r.NetworkInterfaceId != nil:
		entry.Target = *r.NetworkInterfaceId
	case r.NatGatewayId != nil:
		entry.Target = *r.NatGatewayId
	case r.GatewayId != nil:
		entry.Target = *r.GatewayId
	case r.InstanceId != nil:
		entry.Target = *r.InstanceId
	}
	if entry.Destination == "" {
		entry.Destination = deref(r.DestinationPrefixListId)
	}
	return entry
}

func tagValue(tags []ec2types.Tag, key string) string {
	for _, tag := range tags {
		if deref(tag.Key) == key {
			return deref(tag.Value)
		}
	}
	return ""
}
