package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/servicediscovery"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// ECSClusterArgs configures the container cluster.
type ECSClusterArgs struct {
	VpcID pulumi.StringInput
}

// ECSCluster is a container cluster with a shared host security group, a
// private DNS namespace and the task execution role its services run with.
type ECSCluster struct {
	pulumi.ResourceState

	// ClusterName is the plain cluster name, {name}-cluster.
	ClusterName      string
	Name             pulumi.StringOutput
	Arn              pulumi.StringOutput
	SecurityGroupID  pulumi.StringOutput
	NamespaceID      pulumi.StringOutput
	ExecutionRoleArn pulumi.StringOutput
}

// NewECSCluster creates the cluster.
func NewECSCluster(ctx *pulumi.Context, name string, args *ECSClusterArgs, opts ...pulumi.ResourceOption) (*ECSCluster, error) {
	c := &ECSCluster{ClusterName: name + "-cluster"}
	if err := ctx.RegisterComponentResource(typePrefix+"ecs", name, c, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(c)

	cluster, err := ecs.NewCluster(ctx, name+"-cluster", &ecs.ClusterArgs{
		Name: pulumi.String(c.ClusterName),
		Tags: tags("ecs", "Name", c.ClusterName),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("ecs cluster: %w", err)
	}
	c.Name = cluster.Name
	c.Arn = cluster.Arn

	sg, err := ec2.NewSecurityGroup(ctx, name+"-sg", &ec2.SecurityGroupArgs{
		Name:        pulumi.Sprintf("%s-ecs-host-sg", name),
		Description: pulumi.String("Access to the ECS hosts that run containers"),
		VpcId:       args.VpcID,
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Description: pulumi.String("Ingress from other containers in the same security group"),
				Protocol:    pulumi.String("-1"),
				FromPort:    pulumi.Int(0),
				ToPort:      pulumi.Int(0),
				Self:        pulumi.Bool(true),
			},
		},
		Egress: openEgress(),
		Tags:   tags("ecs", "Name", name+"-ecs-host-sg"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("ecs host security group: %w", err)
	}
	c.SecurityGroupID = sg.ID().ToStringOutput()

	namespace, err := servicediscovery.NewPrivateDnsNamespace(ctx, name+"-private-dns-namespace", &servicediscovery.PrivateDnsNamespaceArgs{
		Name: pulumi.Sprintf("%s.internal", name),
		Vpc:  args.VpcID,
		Tags: tags("ecs"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("private dns namespace: %w", err)
	}
	c.NamespaceID = namespace.ID().ToStringOutput()

	role, err := iam.NewRole(ctx, name+"-task-execution-role", &iam.RoleArgs{
		Name:             pulumi.Sprintf("%s-task-execution-role", name),
		Path:             pulumi.String("/"),
		AssumeRolePolicy: pulumi.String(AssumeRolePolicy("ecs-tasks.amazonaws.com")),
		ManagedPolicyArns: pulumi.StringArray{
			pulumi.String(policyECSTaskExecutionRolePolicy),
		},
		InlinePolicies: iam.RoleInlinePolicyArray{
			&iam.RoleInlinePolicyArgs{
				Name:   pulumi.String("ecs-logs"),
				Policy: pulumi.String(NewPolicy(Allow("*", "logs:CreateLogGroup")).JSON()),
			},
			&iam.RoleInlinePolicyArgs{
				Name: pulumi.String("ecs-ssm"),
				Policy: pulumi.String(NewPolicy(Statement{
					Sid:      "readEnvironmentParameters",
					Effect:   "Allow",
					Action:   []string{"ssm:GetParameters"},
					Resource: "*",
				}).JSON()),
			},
		},
		Tags: tags("ecs"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("task execution role: %w", err)
	}
	c.ExecutionRoleArn = role.Arn

	if err := ctx.RegisterResourceOutputs(c, pulumi.Map{
		"name":             c.Name,
		"namespaceId":      c.NamespaceID,
		"executionRoleArn": c.ExecutionRoleArn,
	}); err != nil {
		return nil, err
	}

	return c, nil
}
