// Package infra declares the data platform's cloud resources as Pulumi
// component resources and composes them into a single program.
package infra

import (
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// typePrefix is the component type namespace, e.g. decodingml:ai:vpc.
const typePrefix = "decodingml:ai:"

const anywhere = "0.0.0.0/0"

// tags returns the {module, scope} tag set every component stamps on its
// resources, plus any extra key/value pairs.
func tags(scope string, kv ...string) pulumi.StringMap {
	m := pulumi.StringMap{
		"module": pulumi.String("ai"),
		"scope":  pulumi.String(scope),
	}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = pulumi.String(kv[i+1])
	}
	return m
}

// openEgress allows all outbound traffic.
func openEgress() ec2.SecurityGroupEgressArray {
	return ec2.SecurityGroupEgressArray{
		ec2.SecurityGroupEgressArgs{
			Description: pulumi.String("Allow all outbound traffic by default"),
			Protocol:    pulumi.String("-1"),
			FromPort:    pulumi.Int(0),
			ToPort:      pulumi.Int(0),
			CidrBlocks:  pulumi.StringArray{pulumi.String(anywhere)},
		},
	}
}
