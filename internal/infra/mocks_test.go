package infra

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/common/resource"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/require"
)

const (
	testAccountID      = "123456789012"
	testRegion         = "eu-central-1"
	testBrokerEndpoint = "amqps://b-1234.mq.eu-central-1.amazonaws.com:5671"
	testNatImage       = "ami-0fcknat00000000"
)

type registered struct {
	Type   string
	Name   string
	Inputs resource.PropertyMap
}

// mocks records every resource the program registers and answers the
// provider lookups from in-memory parameter and secret stores.
type mocks struct {
	mu        sync.Mutex
	resources []registered

	params  map[string]string
	secrets map[string]string
}

func newMocks() *mocks {
	return &mocks{
		params: map[string]string{
			"/warehouse/cluster/master/username": "admin",
			"/warehouse/cluster/master/password": "p@ss",
		},
		secrets: map[string]string{
			"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/admin":            `{"username":"admin","password":"admin-pass"}`,
			"arn:aws:secretsmanager:eu-central-1:123456789012:secret:/streaming/broker/replication-user": `{"username":"replicator","password":"repl-pass"}`,
		},
	}
}

func (m *mocks) NewResource(args pulumi.MockResourceArgs) (string, resource.PropertyMap, error) {
	m.mu.Lock()
	m.resources = append(m.resources, registered{Type: args.TypeToken, Name: args.Name, Inputs: args.Inputs})
	m.mu.Unlock()

	outputs := args.Inputs.Copy()
	if _, ok := outputs["arn"]; !ok {
		outputs["arn"] = resource.NewStringProperty(fmt.Sprintf("arn:aws:mock:%s:%s:%s", testRegion, testAccountID, args.Name))
	}

	switch args.TypeToken {
	case "aws:docdb/cluster:Cluster":
		outputs["endpoint"] = resource.NewStringProperty(args.Name + ".cluster-abc.eu-central-1.docdb.amazonaws.com")
	case "aws:mq/broker:Broker":
		outputs["instances"] = resource.NewArrayProperty([]resource.PropertyValue{
			resource.NewObjectProperty(resource.PropertyMap{
				"endpoints": resource.NewArrayProperty([]resource.PropertyValue{
					resource.NewStringProperty(testBrokerEndpoint),
				}),
			}),
		})
	case "aws:ecr/repository:Repository":
		outputs["repositoryUrl"] = resource.NewStringProperty(fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s", testAccountID, testRegion, str(args.Inputs["name"])))
	case "aws:s3/bucketV2:BucketV2":
		outputs["bucket"] = resource.NewStringProperty(args.Name)
	case "aws:kms/key:Key":
		outputs["keyId"] = resource.NewStringProperty(args.Name + "-key")
	}

	return args.Name + "_id", outputs, nil
}

func (m *mocks) Call(args pulumi.MockCallArgs) (resource.PropertyMap, error) {
	switch args.Token {
	case "aws:index/getCallerIdentity:getCallerIdentity":
		return resource.NewPropertyMapFromMap(map[string]interface{}{
			"accountId": testAccountID,
			"arn":       "arn:aws:iam::" + testAccountID + ":user/deployer",
			"userId":    "AIDAEXAMPLE",
			"id":        testAccountID,
		}), nil

	case "aws:ssm/getParameter:getParameter":
		name := str(args.Args["name"])
		value, ok := m.params[name]
		if !ok {
			return nil, fmt.Errorf("ParameterNotFound: %s", name)
		}
		return resource.NewPropertyMapFromMap(map[string]interface{}{
			"id":            name,
			"name":          name,
			"arn":           "arn:aws:ssm:" + testRegion + ":" + testAccountID + ":parameter" + name,
			"type":          "SecureString",
			"value":         value,
			"insecureValue": value,
			"version":       1,
		}), nil

	case "aws:secretsmanager/getSecretVersion:getSecretVersion":
		id := str(args.Args["secretId"])
		secret, ok := m.secrets[id]
		if !ok {
			return nil, fmt.Errorf("ResourceNotFoundException: %s", id)
		}
		return resource.NewPropertyMapFromMap(map[string]interface{}{
			"id":           id,
			"arn":          id,
			"secretId":     id,
			"secretString": secret,
			"versionId":    "v1",
			"versionStage": "AWSCURRENT",
		}), nil

	case "aws:ec2/getAmi:getAmi":
		return resource.NewPropertyMapFromMap(map[string]interface{}{
			"id":      testNatImage,
			"imageId": testNatImage,
			"name":    "fck-nat-al2023-hvm-1.3.0-arm64-ebs",
		}), nil
	}

	return resource.PropertyMap{}, nil
}

func (m *mocks) byType(token string) []registered {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []registered
	for _, r := range m.resources {
		if r.Type == token {
			out = append(out, r)
		}
	}
	return out
}

func (m *mocks) byName(t *testing.T, token, name string) registered {
	t.Helper()
	for _, r := range m.byType(token) {
		if r.Name == name {
			return r
		}
	}
	require.FailNowf(t, "resource not registered", "%s %s", token, name)
	return registered{}
}

func run(m *mocks, program pulumi.RunFunc) error {
	return pulumi.RunErr(program, pulumi.WithMocks("nimbus", "test", m))
}

// str unwraps secrets and returns the string value of v, or "".
func str(v resource.PropertyValue) string {
	if v.IsSecret() {
		v = v.SecretValue().Element
	}
	if v.IsString() {
		return v.StringValue()
	}
	return ""
}

func num(v resource.PropertyValue) float64 {
	if v.IsSecret() {
		v = v.SecretValue().Element
	}
	if v.IsNumber() {
		return v.NumberValue()
	}
	return 0
}

func strs(v resource.PropertyValue) []string {
	if v.IsSecret() {
		v = v.SecretValue().Element
	}
	if !v.IsArray() {
		return nil
	}
	out := make([]string, 0, len(v.ArrayValue()))
	for _, e := range v.ArrayValue() {
		out = append(out, str(e))
	}
	return out
}

func tagValue(r registered, key string) string {
	t, ok := r.Inputs["tags"]
	if !ok || !t.IsObject() {
		return ""
	}
	return str(t.ObjectValue()[resource.PropertyKey(key)])
}
