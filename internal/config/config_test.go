package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, doc string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return Load(v)
}

func TestDefaultIsValid(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "10.100.0.0/16", cfg.Network.CIDR)
	assert.Equal(t, []string{"eu-central-1a", "eu-central-1b", "eu-central-1c"}, cfg.Zones())
	assert.Equal(t, 27017, cfg.Warehouse.Port)
	assert.Equal(t, 7, cfg.Warehouse.BackupRetentionDays)
	assert.Equal(t, "3.11.20", cfg.Broker.EngineVersion)
	assert.Equal(t, "mq.t3.micro", cfg.Broker.InstanceType)
	assert.Equal(t, "web-servers", cfg.Broker.Placement)
	assert.Equal(t, "compute", cfg.Crawler.Placement)
	assert.Equal(t, 3008, cfg.CrawlerMemory())
}

func TestLoad(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	cfg, err := load(t, `
project: llm-twin
region: us-east-1
stage: production
network:
  zones: [a, b]
services:
  - name: bytewax
    repository: streaming
    container_port: 8080
    secrets:
      - name: MONGO_DATABASE_HOST
        parameter: database/host
  - name: superlinked
    repository: superlinked
    container_port: 8080
    desired_count: 0
`)
	require.NoError(t, err)

	assert.Equal(t, "llm-twin", cfg.Project)
	assert.Equal(t, []string{"us-east-1a", "us-east-1b"}, cfg.Zones())
	assert.Equal(t, 10240, cfg.CrawlerMemory())

	require.Len(t, cfg.Services, 2)
	assert.Nil(t, cfg.Services[0].DesiredCount)
	require.NotNil(t, cfg.Services[1].DesiredCount)
	assert.Equal(t, 0, *cfg.Services[1].DesiredCount)
	assert.Equal(t, "512", cfg.Services[0].CPU)
	assert.Equal(t, "1024", cfg.Services[0].Memory)
	assert.Equal(t, "ECS", cfg.Services[0].DeploymentController)
	assert.Equal(t, "latest", cfg.Services[0].ImageTag)
	assert.Equal(t, []SecretRef{{Name: "MONGO_DATABASE_HOST", Parameter: "database/host"}}, cfg.Services[0].Secrets)
}

func TestLoadRejectsUnknownStage(t *testing.T) {
	_, err := load(t, "stage: staging\n")
	require.Error(t, err)

	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Errors, 1)
	assert.Equal(t, "stage", verr.Errors[0].Field)
	assert.Contains(t, verr.Error(), "dev, production, test")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.AccountID = "12345"
	cfg.Broker.Placement = "database"
	cfg.Network.Groups["compute"] = SubnetGroupConfig{NewBits: 8, NetNum: 1}
	cfg.Services = []ServiceConfig{
		{Name: "api", Repository: "api", ContainerPort: 8080, DeploymentController: "ECS"},
		{Name: "api", ContainerPort: 0, DeploymentController: "ROLLING"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr))

	fields := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{
		"account_id",
		"broker.placement",
		"network.groups",
		"services[1].name",
		"services[1].repository",
		"services[1].container_port",
		"services[1].deployment_controller",
	}, fields)
}

func TestValidateRejectsBadZones(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	cfg := Default()
	cfg.Network.Zones = []string{"a", "a", "b", ""}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr))

	var zones []string
	for _, fe := range verr.Errors {
		if fe.Field == "network.zones" {
			zones = append(zones, fe.Message)
		}
	}
	assert.Equal(t, []string{`zone "a" listed twice`, "zone suffix must not be empty"}, zones)
}

func TestValidateRejectsOverlappingEndpoints(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	cfg := Default()
	cfg.Network.InterfaceEndpoints = append(cfg.Network.InterfaceEndpoints, "s3")

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.interface_endpoints")
	assert.Contains(t, err.Error(), `"s3" already listed in network.gateway_endpoints`)
}

func TestValidateRejectsBadCIDR(t *testing.T) {
	cfg := Default()
	cfg.Network.CIDR = "10.100.0.0"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network.cidr")
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	require.NoError(t, WriteFile(path, Default()))
	err := WriteFile(path, Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	v := viper.New()
	require.NoError(t, ReadFile(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Network, cfg.Network)
	assert.Equal(t, def.Warehouse, cfg.Warehouse)
	assert.Equal(t, def.StreamCrawlers.MemoryTiers, cfg.StreamCrawlers.MemoryTiers)
}

func TestReadFileMissing(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	assert.NoError(t, ReadFile(viper.New(), ""))
	assert.Error(t, ReadFile(viper.New(), filepath.Join(dir, "missing.yaml")))
}
