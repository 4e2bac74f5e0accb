package infra

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionString(t *testing.T) {
	assert.Equal(t,
		"mongodb://admin:p@ss@cluster.local:27017/?replicaSet=rs0&readPreference=secondaryPreferred&retryWrites=false",
		ConnectionString("admin", "p@ss", "cluster.local", 27017),
	)
}

func TestBrokerHost(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "amqps://b-1234.mq.eu-central-1.amazonaws.com:5671", want: "b-1234.mq.eu-central-1.amazonaws.com"},
		{endpoint: "https://b-1234.mq.eu-central-1.amazonaws.com", want: "b-1234.mq.eu-central-1.amazonaws.com"},
		{endpoint: "b-1234.mq.eu-central-1.amazonaws.com:5671", want: "b-1234.mq.eu-central-1.amazonaws.com"},
		{endpoint: "b-1234.mq.eu-central-1.amazonaws.com", want: "b-1234.mq.eu-central-1.amazonaws.com"},
		{endpoint: "", wantErr: true},
		{endpoint: "amqps://:5671", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := BrokerHost(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContainerSecrets(t *testing.T) {
	id := Identity{AccountID: "123456789012", Region: "eu-central-1"}

	got := ContainerSecrets(id, []ContainerSecret{
		{Name: "MONGO_DATABASE_HOST", Parameter: "database/host"},
		{Name: "MONGO_DATABASE_HOST", Parameter: "/database/username"},
	})

	assert.Equal(t, []SecretValue{
		{Name: "MONGO_DATABASE_HOST", ValueFrom: "arn:aws:ssm:eu-central-1:123456789012:parameter/database/host"},
		{Name: "MONGO_DATABASE_HOST", ValueFrom: "arn:aws:ssm:eu-central-1:123456789012:parameter/database/username"},
	}, got)
}

func TestContainerDefinitions(t *testing.T) {
	args := &ServiceArgs{
		Identity:      Identity{AccountID: "123456789012", Region: "us-east-1"},
		Repository:    "superlinked",
		ImageTag:      "v2",
		ContainerPort: 8080,
		Command:       []string{"python", "-m", "server"},
		Environment:   []KeyValue{{Name: "LOG_LEVEL", Value: "debug"}},
	}

	raw, err := ContainerDefinitions("superlinked", "/ecs/streaming-cluster/superlinked", args)
	require.NoError(t, err)

	var defs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &defs))
	require.Len(t, defs, 1)

	def := defs[0]
	assert.Equal(t, "superlinked", def["name"])
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com/superlinked:v2", def["image"])
	assert.Equal(t, []any{"python", "-m", "server"}, def["command"])
	assert.Equal(t, []any{map[string]any{"containerPort": float64(8080)}}, def["portMappings"])
	assert.Equal(t, []any{}, def["secrets"])

	logs := def["logConfiguration"].(map[string]any)
	assert.Equal(t, "awslogs", logs["logDriver"])
	options := logs["options"].(map[string]any)
	assert.Equal(t, "us-east-1", options["awslogs-region"])
	assert.Equal(t, "/ecs/streaming-cluster/superlinked", options["awslogs-group"])
	assert.Equal(t, "superlinked", options["awslogs-stream-prefix"])
}

func TestDesiredCount(t *testing.T) {
	assert.Equal(t, 1, DesiredCount(nil))

	zero := 0
	assert.Equal(t, 0, DesiredCount(&zero))

	three := 3
	assert.Equal(t, 3, DesiredCount(&three))
}

func TestLifecyclePolicyDocument(t *testing.T) {
	assert.JSONEq(t, `{
		"rules": [{
			"rulePriority": 1,
			"description": "Delete older than 30 days images with no tag.",
			"selection": {
				"tagStatus": "untagged",
				"countType": "sinceImagePushed",
				"countUnit": "days",
				"countNumber": 30
			},
			"action": {"type": "expire"}
		}]
	}`, LifecyclePolicyDocument())
}

func TestNatUserData(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString(NatUserData("eni-0abc"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\necho \"eni_id=eni-0abc\" >> /etc/fck-nat.conf\nservice fck-nat restart", string(raw))
}

func TestPolicyDocuments(t *testing.T) {
	assert.JSONEq(t,
		`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"Service":"lambda.amazonaws.com"},"Action":"sts:AssumeRole"}]}`,
		AssumeRolePolicy("lambda.amazonaws.com"),
	)

	assert.JSONEq(t,
		`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["kms:Decrypt","kms:Encrypt"],"Resource":"*"}]}`,
		NewPolicy(Allow("*", "kms:Decrypt", "kms:Encrypt")).JSON(),
	)
}

func TestResolveIdentity(t *testing.T) {
	var pinned, resolved Identity
	err := run(newMocks(), func(ctx *pulumi.Context) error {
		var err error
		if pinned, err = ResolveIdentity(ctx, "eu-west-1", "210987654321"); err != nil {
			return err
		}
		resolved, err = ResolveIdentity(ctx, "eu-west-1", "")
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, Identity{AccountID: "210987654321", Region: "eu-west-1"}, pinned)
	assert.Equal(t, Identity{AccountID: testAccountID, Region: "eu-west-1"}, resolved)
	assert.Equal(t, "123456789012.dkr.ecr.eu-west-1.amazonaws.com/ai:tag", resolved.ImageURI("ai", "tag"))
}

func TestCrawlerTags(t *testing.T) {
	assert.Equal(t, []string{"github-crawler-latest", "linkedin-crawler-latest", "medium-crawler-latest"}, CrawlerTags())
}
