package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/vietdv277/nimbus/internal/netplan"
)

// DefaultConfigFile is looked up in the working directory when --config is not given.
const DefaultConfigFile = "nimbus.yaml"

// Config is the validated description of one deployment. It is injected into
// the infrastructure program and the operator commands; nothing downstream
// reads globals.
type Config struct {
	Project   string `mapstructure:"project" yaml:"project"`
	Stack     string `mapstructure:"stack" yaml:"stack,omitempty"`
	Region    string `mapstructure:"region" yaml:"region"`
	Profile   string `mapstructure:"profile" yaml:"profile,omitempty"`
	AccountID string `mapstructure:"account_id" yaml:"account_id,omitempty"` // resolved from the caller identity when empty
	Stage     string `mapstructure:"stage" yaml:"stage"`                     // dev, test or production

	Network        NetworkConfig        `mapstructure:"network" yaml:"network"`
	Registry       RegistryConfig       `mapstructure:"registry" yaml:"registry"`
	Warehouse      WarehouseConfig      `mapstructure:"warehouse" yaml:"warehouse"`
	Broker         BrokerConfig         `mapstructure:"broker" yaml:"broker"`
	Crawler        CrawlerConfig        `mapstructure:"crawler" yaml:"crawler"`
	StreamCrawlers StreamCrawlersConfig `mapstructure:"stream_crawlers" yaml:"stream_crawlers"`
	Cluster        ClusterConfig        `mapstructure:"cluster" yaml:"cluster"`
	Services       []ServiceConfig      `mapstructure:"services" yaml:"services,omitempty"`
}

// NetworkConfig describes the VPC and its subnet groups.
type NetworkConfig struct {
	Name               string                       `mapstructure:"name" yaml:"name"`
	CIDR               string                       `mapstructure:"cidr" yaml:"cidr"`
	Zones              []string                     `mapstructure:"zones" yaml:"zones"` // suffixes appended to the region
	Groups             map[string]SubnetGroupConfig `mapstructure:"groups" yaml:"groups"`
	Nat                NatConfig                    `mapstructure:"nat" yaml:"nat"`
	InterfaceEndpoints []string                     `mapstructure:"interface_endpoints" yaml:"interface_endpoints"`
	GatewayEndpoints   []string                     `mapstructure:"gateway_endpoints" yaml:"gateway_endpoints"`
}

// SubnetGroupConfig sizes a subnet group, see netplan.GroupSpec.
type SubnetGroupConfig struct {
	NewBits int `mapstructure:"new_bits" yaml:"new_bits"`
	NetNum  int `mapstructure:"net_num" yaml:"net_num"`
}

// NatConfig configures the single instance NAT substitute.
type NatConfig struct {
	ImageID      string `mapstructure:"image_id" yaml:"image_id"`
	InstanceType string `mapstructure:"instance_type" yaml:"instance_type"`
}

// RegistryConfig names the container image registry.
type RegistryConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

// WarehouseConfig configures the document database cluster.
type WarehouseConfig struct {
	Name                string `mapstructure:"name" yaml:"name"`
	InstanceClass       string `mapstructure:"instance_class" yaml:"instance_class"`
	Port                int    `mapstructure:"port" yaml:"port"`
	BackupRetentionDays int    `mapstructure:"backup_retention_days" yaml:"backup_retention_days"`
	EngineVersion       string `mapstructure:"engine_version" yaml:"engine_version"`
	Placement           string `mapstructure:"placement" yaml:"placement"`
}

// BrokerConfig configures the message queue broker.
type BrokerConfig struct {
	Name          string `mapstructure:"name" yaml:"name"`
	EngineVersion string `mapstructure:"engine_version" yaml:"engine_version"`
	InstanceType  string `mapstructure:"instance_type" yaml:"instance_type"`
	Placement     string `mapstructure:"placement" yaml:"placement"`
}

// CrawlerConfig configures the directly invoked crawler function.
type CrawlerConfig struct {
	Name        string            `mapstructure:"name" yaml:"name"`
	Repository  string            `mapstructure:"repository" yaml:"repository"`
	ImageTag    string            `mapstructure:"image_tag" yaml:"image_tag"`
	Timeout     int               `mapstructure:"timeout" yaml:"timeout"`
	Memory      int               `mapstructure:"memory" yaml:"memory"`
	Placement   string            `mapstructure:"placement" yaml:"placement"`
	Environment map[string]string `mapstructure:"environment" yaml:"environment,omitempty"`
}

// StreamCrawlersConfig configures the change stream triggered crawlers.
// They are only deployed when StreamARN is set.
type StreamCrawlersConfig struct {
	StreamARN   string            `mapstructure:"stream_arn" yaml:"stream_arn,omitempty"`
	Repository  string            `mapstructure:"repository" yaml:"repository"`
	Timeout     int               `mapstructure:"timeout" yaml:"timeout"`
	ResultTable string            `mapstructure:"result_table" yaml:"result_table"`
	MemoryTiers map[string]int    `mapstructure:"memory_tiers" yaml:"memory_tiers"`
	Filters     map[string]string `mapstructure:"filters" yaml:"filters,omitempty"` // crawler tag -> event filter pattern
}

// ClusterConfig configures the container cluster.
type ClusterConfig struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Placement string `mapstructure:"placement" yaml:"placement"`
}

// KeyValue is a container environment variable.
type KeyValue struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// SecretRef maps a container environment variable to a parameter store path.
type SecretRef struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Parameter string `mapstructure:"parameter" yaml:"parameter"`
}

// ServiceConfig declares one container service.
type ServiceConfig struct {
	Name                 string      `mapstructure:"name" yaml:"name"`
	Repository           string      `mapstructure:"repository" yaml:"repository"`
	ImageTag             string      `mapstructure:"image_tag" yaml:"image_tag,omitempty"`
	ContainerPort        int         `mapstructure:"container_port" yaml:"container_port"`
	CPU                  string      `mapstructure:"cpu" yaml:"cpu,omitempty"`
	Memory               string      `mapstructure:"memory" yaml:"memory,omitempty"`
	DesiredCount         *int        `mapstructure:"desired_count" yaml:"desired_count,omitempty"`
	DeploymentController string      `mapstructure:"deployment_controller" yaml:"deployment_controller,omitempty"`
	TaskRoleARN          string      `mapstructure:"task_role_arn" yaml:"task_role_arn,omitempty"`
	Command              []string    `mapstructure:"command" yaml:"command,omitempty"`
	Environment          []KeyValue  `mapstructure:"environment" yaml:"environment,omitempty"`
	Secrets              []SecretRef `mapstructure:"secrets" yaml:"secrets,omitempty"`
}

// Default returns the configuration used when nimbus.yaml is silent.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration held by v, fills defaults and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ReadFile points v at path (or ./nimbus.yaml) and reads it. A missing
// default file is not an error; a missing explicit file is.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigFile(DefaultConfigFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// WriteFile saves cfg as YAML, refusing to overwrite an existing file.
func WriteFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Zones returns the fully qualified availability zones of the network.
func (c *Config) Zones() []string {
	zones := make([]string, len(c.Network.Zones))
	for i, z := range c.Network.Zones {
		zones[i] = c.Region + z
	}
	return zones
}

// SubnetPlan carves the network's subnet groups.
func (c *Config) SubnetPlan() (netplan.Plan, error) {
	groups := make(map[netplan.Role]netplan.GroupSpec, len(c.Network.Groups))
	for name, g := range c.Network.Groups {
		groups[netplan.Role(name)] = netplan.GroupSpec{NewBits: g.NewBits, NetNum: g.NetNum}
	}
	return netplan.Build(c.Network.CIDR, c.Zones(), groups)
}

// CrawlerMemory returns the memory tier of the configured stage.
func (c *Config) CrawlerMemory() int {
	return c.StreamCrawlers.MemoryTiers[c.Stage]
}

func (c *Config) applyDefaults() {
	if c.Project == "" {
		c.Project = "decodingml"
	}
	if c.Stack == "" {
		c.Stack = "dev"
	}
	if c.Region == "" {
		c.Region = os.Getenv("AWS_REGION")
	}
	if c.Region == "" {
		c.Region = "eu-central-1"
	}
	if c.Stage == "" {
		c.Stage = "dev"
	}

	n := &c.Network
	if n.Name == "" {
		n.Name = "network-overlay"
	}
	if n.CIDR == "" {
		n.CIDR = "10.100.0.0/16"
	}
	if len(n.Zones) == 0 {
		n.Zones = []string{"a", "b", "c"}
	}
	if len(n.Groups) == 0 {
		n.Groups = map[string]SubnetGroupConfig{
			string(netplan.WebServers): {NewBits: 8, NetNum: 0},
			string(netplan.Compute):    {NewBits: 6, NetNum: 25},
		}
	}
	if n.Nat.InstanceType == "" {
		n.Nat.InstanceType = "t4g.nano"
	}
	if n.InterfaceEndpoints == nil {
		n.InterfaceEndpoints = []string{"ssm", "ec2", "ec2messages", "ssmmessages", "kms", "logs"}
	}
	if n.GatewayEndpoints == nil {
		n.GatewayEndpoints = []string{"dynamodb", "s3"}
	}

	if c.Registry.Name == "" {
		c.Registry.Name = "ai"
	}

	w := &c.Warehouse
	if w.Name == "" {
		w.Name = "warehouse"
	}
	if w.InstanceClass == "" {
		w.InstanceClass = "db.t3.medium"
	}
	if w.Port == 0 {
		w.Port = 27017
	}
	if w.BackupRetentionDays == 0 {
		w.BackupRetentionDays = 7
	}
	if w.EngineVersion == "" {
		w.EngineVersion = "5.0.0"
	}
	if w.Placement == "" {
		w.Placement = string(netplan.Compute)
	}

	b := &c.Broker
	if b.Name == "" {
		b.Name = "streaming"
	}
	if b.EngineVersion == "" {
		b.EngineVersion = "3.11.20"
	}
	if b.InstanceType == "" {
		b.InstanceType = "mq.t3.micro"
	}
	if b.Placement == "" {
		b.Placement = string(netplan.WebServers)
	}

	cr := &c.Crawler
	if cr.Name == "" {
		cr.Name = "crawler"
	}
	if cr.Repository == "" {
		cr.Repository = "crawler"
	}
	if cr.ImageTag == "" {
		cr.ImageTag = "latest"
	}
	if cr.Timeout == 0 {
		cr.Timeout = 900
	}
	if cr.Memory == 0 {
		cr.Memory = 3008
	}
	if cr.Placement == "" {
		cr.Placement = string(netplan.Compute)
	}

	s := &c.StreamCrawlers
	if s.Repository == "" {
		s.Repository = c.Registry.Name
	}
	if s.Timeout == 0 {
		s.Timeout = 900
	}
	if s.ResultTable == "" {
		s.ResultTable = "crawler-results"
	}
	if len(s.MemoryTiers) == 0 {
		s.MemoryTiers = map[string]int{
			"dev":        3008,
			"test":       5102,
			"production": 10240,
		}
	}

	if c.Cluster.Name == "" {
		c.Cluster.Name = "streaming"
	}
	if c.Cluster.Placement == "" {
		c.Cluster.Placement = string(netplan.Compute)
	}

	for i := range c.Services {
		svc := &c.Services[i]
		if svc.ImageTag == "" {
			svc.ImageTag = "latest"
		}
		if svc.CPU == "" {
			svc.CPU = "512"
		}
		if svc.Memory == "" {
			svc.Memory = "1024"
		}
		if svc.DeploymentController == "" {
			svc.DeploymentController = "ECS"
		}
	}
}
