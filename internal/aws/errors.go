package aws

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	"github.com/vietdv277/nimbus/pkg/provider"
)

// classify wraps err with the provider sentinel matching its API error
// code, so callers can test with errors.Is.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ParameterNotFound", "ResourceNotFoundException", "InvalidAMIID.NotFound",
			"InvalidAMIID.Malformed", "InvalidVpcID.NotFound":
			return fmt.Errorf("%s: %w: %s", what, provider.ErrNotFound, apiErr.ErrorMessage())
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			return fmt.Errorf("%s: %w: %s", what, provider.ErrPermissionDenied, apiErr.ErrorMessage())
		case "ExpiredToken", "ExpiredTokenException", "InvalidClientTokenId", "UnrecognizedClientException":
			return fmt.Errorf("%s: %w: %s", what, provider.ErrAuthFailed, apiErr.ErrorMessage())
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, provider.ErrNotFound)
}
