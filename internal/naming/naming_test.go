package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterPaths(t *testing.T) {
	assert.Equal(t, "/warehouse/cluster/master/username", MasterUsernamePath("warehouse"))
	assert.Equal(t, "/warehouse/cluster/master/password", MasterPasswordPath("warehouse"))
	assert.Equal(t, "/warehouse/cluster/host", ClusterHostPath("warehouse"))
	assert.Equal(t, "/streaming/broker/host", BrokerHostPath("streaming"))
	assert.Equal(t, "/streaming/broker/port", BrokerPortPath("streaming"))
	assert.Equal(t, "/streaming/broker/admin", BrokerSecretName("streaming", BrokerAdminUser))
}

func TestParameterARN(t *testing.T) {
	assert.Equal(t, "arn:aws:ssm:eu-central-1:123456789012:parameter/p", ParameterARN("eu-central-1", "123456789012", "p"))
	assert.Equal(t, "arn:aws:ssm:eu-central-1:123456789012:parameter/database/host", ParameterARN("eu-central-1", "123456789012", "/database/host"))
}

func TestBrokerSecretARN(t *testing.T) {
	assert.Equal(t,
		"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/replication-user",
		BrokerSecretARN("eu-central-1", "123456789012", "streaming", BrokerReplicationUser))
}

func TestImageURI(t *testing.T) {
	assert.Equal(t, "123456789012.dkr.ecr.eu-central-1.amazonaws.com/crawler:latest", ImageURI("123456789012", "eu-central-1", "crawler", "latest"))
	assert.Equal(t, "com.amazonaws.eu-central-1.ssmmessages", ServiceEndpoint("eu-central-1", "ssmmessages"))
}
