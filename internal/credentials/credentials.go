// Package credentials parses the credential blobs kept in Secrets Manager.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSecretNoPayload is returned when a secret version carries no string data.
	ErrSecretNoPayload = errors.New("secret version contains no string data")
	// ErrSecretMalformed is returned when a secret is not a username/password blob.
	ErrSecretMalformed = errors.New("secret is not a username/password JSON object")
)

// Broker is a message broker user as stored in Secrets Manager.
type Broker struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ParseBroker decodes a {"username": ..., "password": ...} secret string.
func ParseBroker(secretString string) (Broker, error) {
	if secretString == "" {
		return Broker{}, ErrSecretNoPayload
	}

	var creds Broker
	if err := json.Unmarshal([]byte(secretString), &creds); err != nil {
		return Broker{}, fmt.Errorf("%w: %v", ErrSecretMalformed, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return Broker{}, fmt.Errorf("%w: username and password are required", ErrSecretMalformed)
	}

	return creds, nil
}
