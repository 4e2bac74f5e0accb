package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/naming"
)

// Identity is the account and region the program deploys into. It is
// resolved once per deployment and handed to every component that builds
// ARNs or image references.
type Identity struct {
	AccountID string
	Region    string
}

// ResolveIdentity returns the deploying identity. A pinned account id wins
// over the caller identity lookup.
func ResolveIdentity(ctx *pulumi.Context, region, pinned string) (Identity, error) {
	if pinned != "" {
		return Identity{AccountID: pinned, Region: region}, nil
	}

	caller, err := aws.GetCallerIdentity(ctx, &aws.GetCallerIdentityArgs{})
	if err != nil {
		return Identity{}, fmt.Errorf("failed to get caller identity: %w", err)
	}

	return Identity{AccountID: caller.AccountId, Region: region}, nil
}

// ImageURI returns the private registry reference of repository:tag.
func (id Identity) ImageURI(repository, tag string) string {
	return naming.ImageURI(id.AccountID, id.Region, repository, tag)
}

// ParameterARN returns the ARN of a parameter store path.
func (id Identity) ParameterARN(parameter string) string {
	return naming.ParameterARN(id.Region, id.AccountID, parameter)
}
