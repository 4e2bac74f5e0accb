package infra

import (
	"encoding/json"
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/servicediscovery"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const logRetentionDays = 90

// KeyValue is a container environment variable.
type KeyValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContainerSecret maps an environment variable to a parameter store path.
type ContainerSecret struct {
	Name      string
	Parameter string
}

// ServiceArgs configures one container service.
type ServiceArgs struct {
	Identity  Identity
	Cluster   *ECSCluster
	SubnetIDs pulumi.StringArrayInput

	Repository           string
	ImageTag             string
	ContainerPort        int
	CPU                  string
	Memory               string
	DesiredCount         *int
	DeploymentController string
	TaskRoleARN          string
	Command              []string
	Environment          []KeyValue
	Secrets              []ContainerSecret
}

// Service is a Fargate service registered in the cluster namespace.
type Service struct {
	pulumi.ResourceState

	ServiceName  pulumi.StringOutput
	TaskDefArn   pulumi.StringOutput
	LogGroupName pulumi.StringOutput
}

// SecretValue is a resolved container secret.
type SecretValue struct {
	Name      string `json:"name"`
	ValueFrom string `json:"valueFrom"`
}

type portMapping struct {
	ContainerPort int `json:"containerPort"`
}

type logConfiguration struct {
	LogDriver string            `json:"logDriver"`
	Options   map[string]string `json:"options"`
}

type containerDefinition struct {
	Name             string           `json:"name"`
	Image            string           `json:"image"`
	PortMappings     []portMapping    `json:"portMappings"`
	Command          []string         `json:"command,omitempty"`
	Environment      []KeyValue       `json:"environment"`
	Secrets          []SecretValue    `json:"secrets"`
	LogConfiguration logConfiguration `json:"logConfiguration"`
}

// ContainerSecrets resolves each secret to its parameter ARN. Duplicate
// names are passed through.
func ContainerSecrets(id Identity, secrets []ContainerSecret) []SecretValue {
	out := make([]SecretValue, 0, len(secrets))
	for _, s := range secrets {
		out = append(out, SecretValue{Name: s.Name, ValueFrom: id.ParameterARN(s.Parameter)})
	}
	return out
}

// ContainerDefinitions renders the task's single container definition.
func ContainerDefinitions(name, logGroup string, args *ServiceArgs) (string, error) {
	env := args.Environment
	if env == nil {
		env = []KeyValue{}
	}

	defs := []containerDefinition{{
		Name:         name,
		Image:        args.Identity.ImageURI(args.Repository, args.ImageTag),
		PortMappings: []portMapping{{ContainerPort: args.ContainerPort}},
		Command:      args.Command,
		Environment:  env,
		Secrets:      ContainerSecrets(args.Identity, args.Secrets),
		LogConfiguration: logConfiguration{
			LogDriver: "awslogs",
			Options: map[string]string{
				"awslogs-group":         logGroup,
				"awslogs-create-group":  "true",
				"awslogs-region":        args.Identity.Region,
				"awslogs-stream-prefix": name,
			},
		},
	}}

	b, err := json.Marshal(defs)
	if err != nil {
		return "", fmt.Errorf("failed to encode container definitions: %w", err)
	}
	return string(b), nil
}

// DesiredCount returns the configured task count, defaulting to one.
func DesiredCount(n *int) int {
	if n == nil {
		return 1
	}
	return *n
}

// NewService creates the task definition, its log group, the service
// discovery entry and the ECS service.
func NewService(ctx *pulumi.Context, name string, args *ServiceArgs, opts ...pulumi.ResourceOption) (*Service, error) {
	s := &Service{}
	if err := ctx.RegisterComponentResource(typePrefix+"service", name, s, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(s)

	logGroupName := fmt.Sprintf("/ecs/%s/%s", args.Cluster.ClusterName, name)

	logGroup, err := cloudwatch.NewLogGroup(ctx, name+"-log-group", &cloudwatch.LogGroupArgs{
		Name:            pulumi.String(logGroupName),
		RetentionInDays: pulumi.Int(logRetentionDays),
		Tags:            tags("service", "Name", fmt.Sprintf("%s-%s-cluster-log-group", args.Cluster.ClusterName, name)),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("log group %s: %w", name, err)
	}
	s.LogGroupName = logGroup.Name

	containers, err := ContainerDefinitions(name, logGroupName, args)
	if err != nil {
		return nil, err
	}

	taskArgs := &ecs.TaskDefinitionArgs{
		Family:                  pulumi.String(name),
		NetworkMode:             pulumi.String("awsvpc"),
		RequiresCompatibilities: pulumi.StringArray{pulumi.String("FARGATE")},
		Cpu:                     pulumi.String(args.CPU),
		Memory:                  pulumi.String(args.Memory),
		ExecutionRoleArn:        args.Cluster.ExecutionRoleArn,
		ContainerDefinitions:    pulumi.String(containers),
		Tags:                    tags("service", "Name", name),
	}
	if args.TaskRoleARN != "" {
		taskArgs.TaskRoleArn = pulumi.String(args.TaskRoleARN)
	}

	taskDef, err := ecs.NewTaskDefinition(ctx, name+"-ecs-task-definition", taskArgs, parent, pulumi.DependsOn([]pulumi.Resource{logGroup}))
	if err != nil {
		return nil, fmt.Errorf("task definition %s: %w", name, err)
	}
	s.TaskDefArn = taskDef.Arn

	discovery, err := servicediscovery.NewService(ctx, name+"-service-discovery", &servicediscovery.ServiceArgs{
		Name:        pulumi.String(name),
		Description: pulumi.Sprintf("Service discovery for %s", name),
		DnsConfig: &servicediscovery.ServiceDnsConfigArgs{
			NamespaceId:   args.Cluster.NamespaceID,
			RoutingPolicy: pulumi.String("MULTIVALUE"),
			DnsRecords: servicediscovery.ServiceDnsConfigDnsRecordArray{
				&servicediscovery.ServiceDnsConfigDnsRecordArgs{
					Type: pulumi.String("A"),
					Ttl:  pulumi.Int(60),
				},
			},
		},
		HealthCheckCustomConfig: &servicediscovery.ServiceHealthCheckCustomConfigArgs{
			FailureThreshold: pulumi.Int(1),
		},
		Tags: tags("service", "Name", name),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("service discovery %s: %w", name, err)
	}

	svc, err := ecs.NewService(ctx, name+"-ecs-service", &ecs.ServiceArgs{
		Name:       pulumi.Sprintf("%s-service", name),
		Cluster:    args.Cluster.Arn,
		LaunchType: pulumi.String("FARGATE"),
		DeploymentController: &ecs.ServiceDeploymentControllerArgs{
			Type: pulumi.String(args.DeploymentController),
		},
		DesiredCount:   pulumi.Int(DesiredCount(args.DesiredCount)),
		TaskDefinition: taskDef.Arn,
		ServiceRegistries: &ecs.ServiceServiceRegistriesArgs{
			RegistryArn:   discovery.Arn,
			ContainerName: pulumi.String(name),
		},
		NetworkConfiguration: &ecs.ServiceNetworkConfigurationArgs{
			AssignPublicIp: pulumi.Bool(false),
			SecurityGroups: pulumi.StringArray{args.Cluster.SecurityGroupID},
			Subnets:        args.SubnetIDs,
		},
		Tags: tags("service", "Name", name),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("ecs service %s: %w", name, err)
	}
	s.ServiceName = svc.Name

	if err := ctx.RegisterResourceOutputs(s, pulumi.Map{
		"serviceName":       s.ServiceName,
		"taskDefinitionArn": s.TaskDefArn,
		"logGroupName":      s.LogGroupName,
	}); err != nil {
		return nil, err
	}

	return s, nil
}
