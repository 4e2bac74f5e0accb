package infra

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/autoscaling"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/netplan"
)

// fck-nat publishes its images from this account.
const (
	natImageOwner  = "568608671756"
	natImageFilter = "fck-nat-al2023-*-arm64-ebs"
)

// NatGroupName is the Name tag of the NAT autoscaling group.
const NatGroupName = "fck-nat"

// NatArgs configures the NAT instance. An empty ImageID selects the most
// recent fck-nat image.
type NatArgs struct {
	ImageID      string
	InstanceType string
}

// NatUserData is the boot script that pins the NAT daemon to the shared ENI.
func NatUserData(eniID string) string {
	script := strings.Join([]string{
		"#!/bin/bash",
		fmt.Sprintf(`echo "eni_id=%s" >> /etc/fck-nat.conf`, eniID),
		"service fck-nat restart",
	}, "\n")
	return base64.StdEncoding.EncodeToString([]byte(script))
}

// createNat runs a single NAT instance behind a fixed ENI in the first
// web-servers subnet, and routes every compute subnet through that ENI.
func (v *Vpc) createNat(ctx *pulumi.Context, args *NatArgs) error {
	parent := pulumi.Parent(v)

	web := v.Subnets[netplan.WebServers]
	if len(web) == 0 {
		return fmt.Errorf("nat instance needs a %s subnet", netplan.WebServers)
	}
	home := web[0]

	imageID := args.ImageID
	if imageID == "" {
		ami, err := ec2.LookupAmi(ctx, &ec2.LookupAmiArgs{
			MostRecent: pulumi.BoolRef(true),
			Owners:     []string{natImageOwner},
			Filters: []ec2.GetAmiFilter{
				{Name: "name", Values: []string{natImageFilter}},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to find nat image: %w", err)
		}
		imageID = ami.Id
	}

	sg, err := ec2.NewSecurityGroup(ctx, v.name+"-nat-sg", &ec2.SecurityGroupArgs{
		Description: pulumi.String("FckNat Security Group"),
		VpcId:       v.VpcID,
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				CidrBlocks: pulumi.StringArray{pulumi.String(v.CidrBlock)},
				Protocol:   pulumi.String("-1"),
				FromPort:   pulumi.Int(0),
				ToPort:     pulumi.Int(0),
			},
		},
		Egress: openEgress(),
		Tags:   tags("networking"),
	}, parent)
	if err != nil {
		return fmt.Errorf("nat security group: %w", err)
	}
	v.NatSecurityGroup = sg.ID().ToStringOutput()

	eni, err := ec2.NewNetworkInterface(ctx, v.name+"-nat-interface", &ec2.NetworkInterfaceArgs{
		SubnetId:        home.SubnetID,
		SecurityGroups:  pulumi.StringArray{v.NatSecurityGroup},
		SourceDestCheck: pulumi.Bool(false),
		Tags:            tags("networking", "Name", v.name+"-nat-interface"),
	}, parent)
	if err != nil {
		return fmt.Errorf("nat interface: %w", err)
	}
	v.NatInterfaceID = eni.ID().ToStringOutput()

	role, err := iam.NewRole(ctx, v.name+"-nat-asg-role", &iam.RoleArgs{
		AssumeRolePolicy:  pulumi.String(AssumeRolePolicy("ec2.amazonaws.com")),
		ManagedPolicyArns: pulumi.StringArray{pulumi.String(policySSMManagedInstanceCore)},
		InlinePolicies: iam.RoleInlinePolicyArray{
			&iam.RoleInlinePolicyArgs{
				Name: pulumi.String("for-ec2"),
				Policy: pulumi.String(NewPolicy(Allow("*",
					"ec2:AttachNetworkInterface",
					"ec2:ModifyNetworkInterfaceAttribute",
					"ec2:AssociateAddress",
					"ec2:DisassociateAddress",
				)).JSON()),
			},
		},
		Tags: tags("networking"),
	}, parent)
	if err != nil {
		return fmt.Errorf("nat role: %w", err)
	}

	profile, err := iam.NewInstanceProfile(ctx, v.name+"-nat-asg-profile", &iam.InstanceProfileArgs{
		Role: role.Name,
	}, parent)
	if err != nil {
		return fmt.Errorf("nat instance profile: %w", err)
	}

	userData := v.NatInterfaceID.ApplyT(func(id string) string {
		return NatUserData(id)
	}).(pulumi.StringOutput)

	template, err := ec2.NewLaunchTemplate(ctx, v.name+"-launch-template", &ec2.LaunchTemplateArgs{
		NamePrefix:   pulumi.Sprintf("%s-fcknat-", v.name),
		ImageId:      pulumi.String(imageID),
		InstanceType: pulumi.String(args.InstanceType),
		IamInstanceProfile: &ec2.LaunchTemplateIamInstanceProfileArgs{
			Arn: profile.Arn,
		},
		VpcSecurityGroupIds: pulumi.StringArray{v.NatSecurityGroup},
		UserData:            userData,
		Tags:                tags("networking"),
		TagSpecifications: ec2.LaunchTemplateTagSpecificationArray{
			&ec2.LaunchTemplateTagSpecificationArgs{
				ResourceType: pulumi.String("instance"),
				Tags:         tags("networking", "Name", NatGroupName),
			},
		},
	}, parent, pulumi.DependsOn([]pulumi.Resource{profile}))
	if err != nil {
		return fmt.Errorf("nat launch template: %w", err)
	}

	_, err = autoscaling.NewGroup(ctx, v.name+"-asg", &autoscaling.GroupArgs{
		MinSize:         pulumi.Int(1),
		MaxSize:         pulumi.Int(1),
		DesiredCapacity: pulumi.Int(1),
		LaunchTemplate: &autoscaling.GroupLaunchTemplateArgs{
			Id:      template.ID().ToStringOutput(),
			Version: pulumi.String("$Latest"),
		},
		VpcZoneIdentifiers: pulumi.StringArray{home.SubnetID},
		Tags: autoscaling.GroupTagArray{
			&autoscaling.GroupTagArgs{
				Key:               pulumi.String("Name"),
				Value:             pulumi.String(NatGroupName),
				PropagateAtLaunch: pulumi.Bool(true),
			},
		},
	}, parent)
	if err != nil {
		return fmt.Errorf("nat autoscaling group: %w", err)
	}

	for _, subnet := range v.Subnets[netplan.Compute] {
		if _, err := subnet.AddRoute("to-nat", RouteSpec{
			DestinationCidrBlock: anywhere,
			NetworkInterfaceID:   v.NatInterfaceID,
		}); err != nil {
			return err
		}
	}

	return nil
}
