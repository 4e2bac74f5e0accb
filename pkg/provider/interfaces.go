package provider

import (
	"context"
	"errors"

	"github.com/vietdv277/nimbus/pkg/types"
)

// Common errors
var (
	ErrNotSupported     = errors.New("feature not supported by this provider")
	ErrNotFound         = errors.New("resource not found")
	ErrNotConfigured    = errors.New("provider not configured")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrPermissionDenied = errors.New("permission denied")
)

// ParameterFilter contains filters for parameter listing
type ParameterFilter struct {
	Prefix string
}

// ParameterStore reads the parameter store entries the stack consumes and
// produces.
type ParameterStore interface {
	// List returns parameters under the filter prefix
	List(ctx context.Context, filter *ParameterFilter) ([]types.Parameter, error)

	// Get returns a parameter, decrypting SecureString values when decrypt is set
	Get(ctx context.Context, name string, decrypt bool) (*types.Parameter, error)
}

// SecretStore reads secrets holding broker credentials
type SecretStore interface {
	// Get returns the current secret value
	Get(ctx context.Context, nameOrARN string) (*types.SecretValue, error)
}

// IdentityProvider resolves the credentials in use
type IdentityProvider interface {
	CallerIdentity(ctx context.Context) (*types.CallerIdentity, error)
}

// ImageCatalog checks machine images
type ImageCatalog interface {
	// ImageExists reports whether the image is visible to the account
	ImageExists(ctx context.Context, imageID string) (bool, error)
}

// NetworkInspector describes a deployed network
type NetworkInspector interface {
	// Network returns the VPC with its subnets and route tables
	Network(ctx context.Context, vpcID string) (*types.Network, error)
}

// NatController manages the NAT instance auto scaling group
type NatController interface {
	// NatGroup returns the group tagged with the NAT name
	NatGroup(ctx context.Context, name string) (*types.AutoScalingGroup, error)

	// Refresh starts an instance refresh of the group
	Refresh(ctx context.Context, groupName string) (*types.InstanceRefresh, error)

	// RefreshStatus returns the progress of an instance refresh
	RefreshStatus(ctx context.Context, groupName, refreshID string) (*types.InstanceRefresh, error)
}
