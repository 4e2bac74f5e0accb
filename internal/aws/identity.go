package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/vietdv277/nimbus/pkg/types"
)

// CallerIdentity returns the current AWS caller identity
func (c *Client) CallerIdentity(ctx context.Context) (*types.CallerIdentity, error) {
	output, err := c.STS.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, classify(err, "get caller identity")
	}

	return &types.CallerIdentity{
		Account: deref(output.Account),
		Arn:     deref(output.Arn),
		UserID:  deref(output.UserId),
	}, nil
}
