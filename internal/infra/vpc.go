package infra

import (
	"fmt"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/kms"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/s3"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/naming"
	"github.com/vietdv277/nimbus/internal/netplan"
)

// VpcArgs configures the network.
type VpcArgs struct {
	Region             string
	Plan               netplan.Plan
	Nat                NatArgs
	InterfaceEndpoints []string // e.g. ssm, ec2messages
	GatewayEndpoints   []string // e.g. dynamodb, s3
}

// Vpc is the network: a VPC with flow logs, an internet gateway, the
// web-servers and compute subnet groups, the NAT instance and the VPC
// endpoints.
type Vpc struct {
	pulumi.ResourceState

	VpcID             pulumi.StringOutput
	CidrBlock         string
	InternetGatewayID pulumi.StringOutput
	NatInterfaceID    pulumi.StringOutput
	NatSecurityGroup  pulumi.StringOutput
	FlowLogBucket     pulumi.StringOutput
	KmsKeyArn         pulumi.StringOutput

	// Subnets holds every subnet group in zone order.
	Subnets map[netplan.Role][]*Subnet

	name string
}

// NewVpc creates the network.
func NewVpc(ctx *pulumi.Context, name string, args *VpcArgs, opts ...pulumi.ResourceOption) (*Vpc, error) {
	v := &Vpc{name: name, CidrBlock: args.Plan.Base, Subnets: make(map[netplan.Role][]*Subnet)}
	if err := ctx.RegisterComponentResource(typePrefix+"vpc", name, v, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(v)

	key, err := kms.NewKey(ctx, name+"-cmk", &kms.KeyArgs{
		Description: pulumi.Sprintf("%s flow log encryption", name),
		Tags:        tags("networking"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("kms key: %w", err)
	}

	_, err = kms.NewAlias(ctx, name+"-cmk-alias", &kms.AliasArgs{
		Name:        pulumi.Sprintf("alias/%s-vpc", name),
		TargetKeyId: key.KeyId,
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("kms alias: %w", err)
	}

	vpc, err := ec2.NewVpc(ctx, name+"-vpc", &ec2.VpcArgs{
		CidrBlock:                        pulumi.String(args.Plan.Base),
		EnableDnsSupport:                 pulumi.Bool(true),
		EnableDnsHostnames:               pulumi.Bool(true),
		EnableNetworkAddressUsageMetrics: pulumi.Bool(true),
		Tags:                             tags("networking", "Name", name),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("vpc: %w", err)
	}
	v.VpcID = vpc.ID().ToStringOutput()
	v.KmsKeyArn = key.Arn

	if err := v.createFlowLogs(ctx, key); err != nil {
		return nil, err
	}

	igw, err := ec2.NewInternetGateway(ctx, name+"-igw", &ec2.InternetGatewayArgs{
		VpcId: v.VpcID,
		Tags:  tags("networking", "Name", name+"-igw"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("internet gateway: %w", err)
	}
	v.InternetGatewayID = igw.ID().ToStringOutput()

	for _, role := range netplan.Roles() {
		if err := v.createSubnetGroup(ctx, args.Region, role, args.Plan.Group(role)); err != nil {
			return nil, err
		}
	}

	if err := v.createNat(ctx, &args.Nat); err != nil {
		return nil, err
	}

	if err := v.createEndpoints(ctx, args); err != nil {
		return nil, err
	}

	if err := ctx.RegisterResourceOutputs(v, pulumi.Map{
		"vpcId":             v.VpcID,
		"internetGatewayId": v.InternetGatewayID,
		"natInterfaceId":    v.NatInterfaceID,
		"flowLogBucket":     v.FlowLogBucket,
	}); err != nil {
		return nil, err
	}

	return v, nil
}

func (v *Vpc) createFlowLogs(ctx *pulumi.Context, key *kms.Key) error {
	parent := pulumi.Parent(v)

	bucket, err := s3.NewBucketV2(ctx, v.name+"-vpc-logs", &s3.BucketV2Args{
		ForceDestroy: pulumi.Bool(true),
		Tags:         tags("networking"),
	}, parent)
	if err != nil {
		return fmt.Errorf("flow log bucket: %w", err)
	}

	_, err = s3.NewBucketServerSideEncryptionConfigurationV2(ctx, v.name+"-vpc-logs-encryption", &s3.BucketServerSideEncryptionConfigurationV2Args{
		Bucket: bucket.ID().ToStringOutput(),
		Rules: s3.BucketServerSideEncryptionConfigurationV2RuleArray{
			&s3.BucketServerSideEncryptionConfigurationV2RuleArgs{
				ApplyServerSideEncryptionByDefault: &s3.BucketServerSideEncryptionConfigurationV2RuleApplyServerSideEncryptionByDefaultArgs{
					SseAlgorithm:   pulumi.String("aws:kms"),
					KmsMasterKeyId: key.Arn,
				},
			},
		},
	}, parent)
	if err != nil {
		return fmt.Errorf("flow log bucket encryption: %w", err)
	}

	_, err = ec2.NewFlowLog(ctx, v.name+"-flow-logs", &ec2.FlowLogArgs{
		LogDestination:     bucket.Arn,
		LogDestinationType: pulumi.String("s3"),
		TrafficType:        pulumi.String("ALL"),
		VpcId:              v.VpcID,
	}, parent)
	if err != nil {
		return fmt.Errorf("flow log: %w", err)
	}

	v.FlowLogBucket = bucket.Bucket
	return nil
}

func (v *Vpc) createSubnetGroup(ctx *pulumi.Context, region string, role netplan.Role, allocations []netplan.Allocation) error {
	for _, a := range allocations {
		zoneSuffix := strings.TrimPrefix(a.Zone, region)
		subnet, err := NewSubnet(ctx, fmt.Sprintf("%s-%s", role, zoneSuffix), &SubnetArgs{
			VpcID: v.VpcID,
			Zone:  a.Zone,
			CIDR:  a.CIDR,
			Role:  role,
		}, pulumi.Parent(v))
		if err != nil {
			return err
		}

		if role.Public() {
			if _, err := subnet.AddRoute("route-to-igw", RouteSpec{
				DestinationCidrBlock: anywhere,
				GatewayID:            v.InternetGatewayID,
			}); err != nil {
				return err
			}
		}

		v.Subnets[role] = append(v.Subnets[role], subnet)
	}
	return nil
}

func (v *Vpc) createEndpoints(ctx *pulumi.Context, args *VpcArgs) error {
	parent := pulumi.Parent(v)
	compute := v.Subnets[netplan.Compute]

	routeTables := make(pulumi.StringArray, len(compute))
	for i, s := range compute {
		routeTables[i] = s.RouteTableID
	}

	for _, service := range args.GatewayEndpoints {
		_, err := ec2.NewVpcEndpoint(ctx, fmt.Sprintf("%s-%s-endpoint", v.name, service), &ec2.VpcEndpointArgs{
			ServiceName:   pulumi.String(naming.ServiceEndpoint(args.Region, service)),
			VpcId:         v.VpcID,
			RouteTableIds: routeTables,
			Tags:          tags("networking"),
		}, parent)
		if err != nil {
			return fmt.Errorf("%s gateway endpoint: %w", service, err)
		}
	}

	if len(args.InterfaceEndpoints) == 0 {
		return nil
	}

	sg, err := ec2.NewSecurityGroup(ctx, v.name+"-vpc-endpoint-interface-sg", &ec2.SecurityGroupArgs{
		Description: pulumi.String("VPC interface endpoint access"),
		VpcId:       v.VpcID,
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Description:    pulumi.String("HTTPS from the NAT instance"),
				SecurityGroups: pulumi.StringArray{v.NatSecurityGroup},
				Protocol:       pulumi.String("tcp"),
				FromPort:       pulumi.Int(443),
				ToPort:         pulumi.Int(443),
			},
			ec2.SecurityGroupIngressArgs{
				Description: pulumi.String("HTTPS from the VPC"),
				CidrBlocks:  pulumi.StringArray{pulumi.String(v.CidrBlock)},
				Protocol:    pulumi.String("tcp"),
				FromPort:    pulumi.Int(443),
				ToPort:      pulumi.Int(443),
			},
		},
		Egress: ec2.SecurityGroupEgressArray{
			ec2.SecurityGroupEgressArgs{
				CidrBlocks: pulumi.StringArray{pulumi.String(v.CidrBlock)},
				Protocol:   pulumi.String("tcp"),
				FromPort:   pulumi.Int(443),
				ToPort:     pulumi.Int(443),
			},
		},
		Tags: tags("networking"),
	}, parent)
	if err != nil {
		return fmt.Errorf("endpoint security group: %w", err)
	}

	for _, service := range args.InterfaceEndpoints {
		_, err := ec2.NewVpcEndpoint(ctx, fmt.Sprintf("%s-%s-endpoint", v.name, service), &ec2.VpcEndpointArgs{
			ServiceName:       pulumi.String(naming.ServiceEndpoint(args.Region, service)),
			VpcId:             v.VpcID,
			VpcEndpointType:   pulumi.String("Interface"),
			PrivateDnsEnabled: pulumi.Bool(true),
			SecurityGroupIds:  pulumi.StringArray{sg.ID().ToStringOutput()},
			SubnetIds:         v.SubnetIDs(netplan.Compute),
			Tags:              tags("networking"),
		}, parent)
		if err != nil {
			return fmt.Errorf("%s interface endpoint: %w", service, err)
		}
	}

	return nil
}

// SubnetIDs returns the subnet ids of a group in zone order.
func (v *Vpc) SubnetIDs(role netplan.Role) pulumi.StringArray {
	group := v.Subnets[role]
	ids := make(pulumi.StringArray, len(group))
	for i, s := range group {
		ids[i] = s.SubnetID
	}
	return ids
}

// Subnet returns the subnet of a group in the given zone, or nil.
func (v *Vpc) Subnet(role netplan.Role, zone string) *Subnet {
	for _, s := range v.Subnets[role] {
		if s.Zone == zone {
			return s
		}
	}
	return nil
}
