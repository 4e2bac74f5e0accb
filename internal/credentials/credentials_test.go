package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBroker(t *testing.T) {
	creds, err := ParseBroker(`{"username":"admin","password":"s3cr3t!"}`)
	require.NoError(t, err)
	assert.Equal(t, Broker{Username: "admin", Password: "s3cr3t!"}, creds)
}

func TestParseBrokerEmpty(t *testing.T) {
	_, err := ParseBroker("")
	assert.ErrorIs(t, err, ErrSecretNoPayload)
}

func TestParseBrokerMalformed(t *testing.T) {
	for _, payload := range []string{
		"not json",
		`{"username":"admin"}`,
		`{"password":"x"}`,
		`["admin","x"]`,
	} {
		_, err := ParseBroker(payload)
		assert.ErrorIs(t, err, ErrSecretMalformed, payload)
	}
}
