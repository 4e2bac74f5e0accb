package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// CrawlerArgs configures the crawler function.
type CrawlerArgs struct {
	VpcID       pulumi.StringInput
	SubnetIDs   pulumi.StringArrayInput
	ImageURI    string
	Timeout     int
	Memory      int
	Environment map[string]string
}

// Crawler is the container image function that crawls on direct invocation.
type Crawler struct {
	pulumi.ResourceState

	Arn             pulumi.StringOutput
	SecurityGroupID pulumi.StringOutput
}

// NewCrawler creates the crawler function inside the given subnets.
func NewCrawler(ctx *pulumi.Context, name string, args *CrawlerArgs, opts ...pulumi.ResourceOption) (*Crawler, error) {
	c := &Crawler{}
	if err := ctx.RegisterComponentResource(typePrefix+"crawler", name, c, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(c)

	role, err := iam.NewRole(ctx, name+"-role", &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(AssumeRolePolicy("lambda.amazonaws.com")),
		ManagedPolicyArns: pulumi.StringArray{
			pulumi.String(policyS3FullAccess),
			pulumi.String(policyDocDBFullAccess),
			pulumi.String(policyLambdaBasicExecution),
			pulumi.String(policyLambdaVPCAccessExecution),
			pulumi.String(policyLambdaInsightsExecution),
		},
		Tags: tags("crawler"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("crawler role: %w", err)
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-security-group", &ec2.SecurityGroupArgs{
		Name:        pulumi.Sprintf("%s-sg", name),
		Description: pulumi.String("Crawler Lambda Access"),
		VpcId:       args.VpcID,
		Egress:      openEgress(),
		Tags:        tags("crawler", "Name", name+"-sg"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("crawler security group: %w", err)
	}
	c.SecurityGroupID = sg.ID().ToStringOutput()

	fnArgs := &lambda.FunctionArgs{
		Name:        pulumi.String(name),
		Description: pulumi.String("Crawler Lambda Function"),
		PackageType: pulumi.String("Image"),
		ImageUri:    pulumi.String(args.ImageURI),
		Timeout:     pulumi.Int(args.Timeout),
		MemorySize:  pulumi.Int(args.Memory),
		Role:        role.Arn,
		VpcConfig: &lambda.FunctionVpcConfigArgs{
			SubnetIds:        args.SubnetIDs,
			SecurityGroupIds: pulumi.StringArray{c.SecurityGroupID},
		},
		Tags: tags("crawler"),
	}
	if len(args.Environment) > 0 {
		fnArgs.Environment = &lambda.FunctionEnvironmentArgs{
			Variables: pulumi.ToStringMap(args.Environment),
		}
	}

	fn, err := lambda.NewFunction(ctx, name+"-lambda-function", fnArgs, parent, pulumi.DependsOn([]pulumi.Resource{role}))
	if err != nil {
		return nil, fmt.Errorf("crawler function: %w", err)
	}
	c.Arn = fn.Arn

	if err := ctx.RegisterResourceOutputs(c, pulumi.Map{
		"arn": c.Arn,
	}); err != nil {
		return nil, err
	}

	return c, nil
}
