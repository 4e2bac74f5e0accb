package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/naming"
)

// CrawlingLambdasArgs configures the stream-triggered crawler functions.
type CrawlingLambdasArgs struct {
	Identity         Identity
	StreamARN        pulumi.StringInput
	EncryptionKeyARN pulumi.StringInput
	Repository       string
	Memory           int
	Timeout          int
	ResultTable      string
	// Filters maps a crawler tag to an event filter pattern. Crawlers
	// without a pattern receive every record.
	Filters map[string]string
}

// CrawlingLambdas runs one crawler function per crawler image, each fed by
// the same change stream.
type CrawlingLambdas struct {
	pulumi.ResourceState

	RoleArn pulumi.StringOutput
	// FunctionArns is keyed by crawler tag.
	FunctionArns map[string]pulumi.StringOutput
}

// NewCrawlingLambdas creates the shared execution role and the crawler
// functions with their stream mappings.
func NewCrawlingLambdas(ctx *pulumi.Context, name string, args *CrawlingLambdasArgs, opts ...pulumi.ResourceOption) (*CrawlingLambdas, error) {
	c := &CrawlingLambdas{FunctionArns: make(map[string]pulumi.StringOutput)}
	if err := ctx.RegisterComponentResource(typePrefix+"decodingmlcrawlinglambdas", name, c, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(c)

	streamPolicy := args.StreamARN.ToStringOutput().ApplyT(func(arn string) string {
		return NewPolicy(Allow(arn,
			"dynamodb:GetRecords",
			"dynamodb:GetShardIterator",
			"dynamodb:DescribeStream",
			"dynamodb:ListStreams",
		)).JSON()
	}).(pulumi.StringOutput)

	kmsPolicy := args.EncryptionKeyARN.ToStringOutput().ApplyT(func(arn string) string {
		return NewPolicy(Allow(arn, "kms:Decrypt")).JSON()
	}).(pulumi.StringOutput)

	role, err := iam.NewRole(ctx, name+"-execution-role", &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(AssumeRolePolicy("lambda.amazonaws.com")),
		InlinePolicies: iam.RoleInlinePolicyArray{
			&iam.RoleInlinePolicyArgs{
				Name:   pulumi.String("DynamoDBStreamRead"),
				Policy: streamPolicy,
			},
			&iam.RoleInlinePolicyArgs{
				Name: pulumi.String("LambdaCloudWatchLogs"),
				Policy: pulumi.String(NewPolicy(Allow(
					naming.LambdaLogGroupARN(args.Identity.Region, args.Identity.AccountID),
					"logs:CreateLogGroup",
					"logs:CreateLogStream",
					"logs:PutLogEvents",
				)).JSON()),
			},
			&iam.RoleInlinePolicyArgs{
				Name:   pulumi.String("KMSDecryptPermission"),
				Policy: kmsPolicy,
			},
			&iam.RoleInlinePolicyArgs{
				Name: pulumi.String("DynamoDBWriteAccess"),
				Policy: pulumi.String(NewPolicy(Allow("*",
					"dynamodb:PutItem",
					"dynamodb:UpdateItem",
					"dynamodb:DeleteItem",
				)).JSON()),
			},
		},
		Tags: tags("decodingmlcrawlinglambdas"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("crawling role: %w", err)
	}
	c.RoleArn = role.Arn

	for _, tag := range CrawlerTags() {
		arn, err := c.createFunction(ctx, tag, role, args)
		if err != nil {
			return nil, err
		}
		c.FunctionArns[tag] = arn
	}

	outputs := pulumi.Map{"roleArn": c.RoleArn}
	for tag, arn := range c.FunctionArns {
		outputs[tag] = arn
	}
	if err := ctx.RegisterResourceOutputs(c, outputs); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *CrawlingLambdas) createFunction(ctx *pulumi.Context, tag string, role *iam.Role, args *CrawlingLambdasArgs) (pulumi.StringOutput, error) {
	fn, err := lambda.NewFunction(ctx, tag, &lambda.FunctionArgs{
		PackageType:   pulumi.String("Image"),
		ImageUri:      pulumi.String(args.Identity.ImageURI(args.Repository, tag)),
		Architectures: pulumi.StringArray{pulumi.String("arm64")},
		MemorySize:    pulumi.Int(args.Memory),
		Timeout:       pulumi.Int(args.Timeout),
		Role:          role.Arn,
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: pulumi.StringMap{
				"DYNAMO_TABLE": pulumi.String(args.ResultTable),
			},
		},
		Tags: tags("decodingmlcrawlinglambdas"),
	}, pulumi.Parent(c))
	if err != nil {
		return pulumi.StringOutput{}, fmt.Errorf("crawler function %s: %w", tag, err)
	}

	mapping := &lambda.EventSourceMappingArgs{
		EventSourceArn:   args.StreamARN.ToStringOutput(),
		FunctionName:     fn.Arn,
		StartingPosition: pulumi.String("LATEST"),
	}
	if pattern, ok := args.Filters[tag]; ok && pattern != "" {
		mapping.FilterCriteria = &lambda.EventSourceMappingFilterCriteriaArgs{
			Filters: lambda.EventSourceMappingFilterCriteriaFilterArray{
				&lambda.EventSourceMappingFilterCriteriaFilterArgs{
					Pattern: pulumi.String(pattern),
				},
			},
		}
	}

	if _, err := lambda.NewEventSourceMapping(ctx, tag+"-dynamodb-stream-mapping", mapping, pulumi.Parent(fn)); err != nil {
		return pulumi.StringOutput{}, fmt.Errorf("stream mapping %s: %w", tag, err)
	}

	return fn.Arn, nil
}
