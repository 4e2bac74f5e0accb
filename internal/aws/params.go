package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/vietdv277/nimbus/pkg/provider"
	"github.com/vietdv277/nimbus/pkg/types"
)

// ParameterStore reads SSM Parameter Store entries
type ParameterStore struct {
	ssm ssmAPI
}

// SecretStore reads Secrets Manager secrets
type SecretStore struct {
	sm secretsAPI
}

// Parameters returns the client's parameter store view
func (c *Client) Parameters() *ParameterStore {
	return &ParameterStore{ssm: c.SSM}
}

// SecretStore returns the client's secrets view
func (c *Client) SecretStore() *SecretStore {
	return &SecretStore{sm: c.SM}
}

// List returns parameters under the filter prefix, values left encrypted
func (p *ParameterStore) List(ctx context.Context, filter *provider.ParameterFilter) ([]types.Parameter, error) {
	path := "/"
	if filter != nil && filter.Prefix != "" {
		path = filter.Prefix
	}

	paginator := ssm.NewGetParametersByPathPaginator(p.ssm, &ssm.GetParametersByPathInput{
		Path:      aws.String(path),
		Recursive: aws.Bool(true),
	})

	var params []types.Parameter
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "list parameters under "+path)
		}

		for _, param := range page.Parameters {
			params = append(params, types.Parameter{
				Name:         deref(param.Name),
				Type:         string(param.Type),
				Version:      param.Version,
				LastModified: safeTime(param.LastModifiedDate),
			})
		}
	}

	return params, nil
}

// Get returns a parameter, decrypting SecureString values when decrypt is set
func (p *ParameterStore) Get(ctx context.Context, name string, decrypt bool) (*types.Parameter, error) {
	output, err := p.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(decrypt),
	})
	if err != nil {
		return nil, classify(err, "get parameter "+name)
	}

	param := output.Parameter
	return &types.Parameter{
		Name:         deref(param.Name),
		Type:         string(param.Type),
		Version:      param.Version,
		LastModified: safeTime(param.LastModifiedDate),
		Value:        deref(param.Value),
	}, nil
}

// Get returns the current value of a secret
func (s *SecretStore) Get(ctx context.Context, nameOrARN string) (*types.SecretValue, error) {
	output, err := s.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(nameOrARN),
	})
	if err != nil {
		return nil, classify(err, fmt.Sprintf("get secret %s", nameOrARN))
	}

	return &types.SecretValue{
		Secret: types.Secret{
			Name:      deref(output.Name),
			ARN:       deref(output.ARN),
			CreatedAt: safeTime(output.CreatedDate),
		},
		Value:   deref(output.SecretString),
		Version: deref(output.VersionId),
	}, nil
}

func safeTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
