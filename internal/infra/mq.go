package infra

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/mq"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ssm"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/credentials"
	"github.com/vietdv277/nimbus/internal/naming"
)

// MessageQueueBrokerArgs configures the broker.
type MessageQueueBrokerArgs struct {
	Identity      Identity
	VpcID         pulumi.StringInput
	SubnetIDs     pulumi.StringArrayInput
	EngineVersion string
	InstanceType  string
}

// MessageQueueBroker is a single instance RabbitMQ broker.
type MessageQueueBroker struct {
	pulumi.ResourceState

	Arn             pulumi.StringOutput
	Host            pulumi.StringOutput
	SecurityGroupID pulumi.StringOutput
}

// BrokerHost strips the scheme and port from a broker endpoint such as
// amqps://b-1234.mq.eu-central-1.amazonaws.com:5671.
func BrokerHost(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("broker endpoint is empty")
	}

	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("invalid broker endpoint %q: %w", endpoint, err)
		}
		if u.Hostname() == "" {
			return "", fmt.Errorf("invalid broker endpoint %q: no host", endpoint)
		}
		return u.Hostname(), nil
	}

	if host, _, err := net.SplitHostPort(endpoint); err == nil {
		return host, nil
	}
	return endpoint, nil
}

// NewMessageQueueBroker creates the broker with the admin and replication
// users read from Secrets Manager, and publishes its host and port.
func NewMessageQueueBroker(ctx *pulumi.Context, name string, args *MessageQueueBrokerArgs, opts ...pulumi.ResourceOption) (*MessageQueueBroker, error) {
	b := &MessageQueueBroker{}
	if err := ctx.RegisterComponentResource(typePrefix+"mq", name, b, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(b)

	admin, err := lookupBrokerUser(ctx, args.Identity, name, naming.BrokerAdminUser)
	if err != nil {
		return nil, err
	}
	replication, err := lookupBrokerUser(ctx, args.Identity, name, naming.BrokerReplicationUser)
	if err != nil {
		return nil, err
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-mq-sg", &ec2.SecurityGroupArgs{
		Name:        pulumi.Sprintf("%s-mq-sg", name),
		Description: pulumi.String("Message Queue broker access"),
		VpcId:       args.VpcID,
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Description: pulumi.String("Ingress from AMQPS protocol"),
				Protocol:    pulumi.String("tcp"),
				FromPort:    pulumi.Int(5671),
				ToPort:      pulumi.Int(5671),
				CidrBlocks:  pulumi.StringArray{pulumi.String(anywhere)},
			},
			ec2.SecurityGroupIngressArgs{
				Description: pulumi.String("Ingress from HTTPS protocol"),
				Protocol:    pulumi.String("tcp"),
				FromPort:    pulumi.Int(443),
				ToPort:      pulumi.Int(443),
				CidrBlocks:  pulumi.StringArray{pulumi.String(anywhere)},
			},
		},
		Egress: openEgress(),
		Tags:   tags("mq", "Name", name+"-mq-sg"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("mq security group: %w", err)
	}
	b.SecurityGroupID = sg.ID().ToStringOutput()

	broker, err := mq.NewBroker(ctx, name+"-mq-broker", &mq.BrokerArgs{
		BrokerName:         pulumi.Sprintf("%s-mq-broker", name),
		EngineType:         pulumi.String("RabbitMQ"),
		EngineVersion:      pulumi.String(args.EngineVersion),
		HostInstanceType:   pulumi.String(args.InstanceType),
		SecurityGroups:     pulumi.StringArray{b.SecurityGroupID},
		DeploymentMode:     pulumi.String("SINGLE_INSTANCE"),
		PubliclyAccessible: pulumi.Bool(true),
		SubnetIds:          args.SubnetIDs,
		Logs: &mq.BrokerLogsArgs{
			General: pulumi.Bool(true),
		},
		Users: mq.BrokerUserArray{
			&mq.BrokerUserArgs{
				Username:      pulumi.String(admin.Username),
				Password:      pulumi.ToSecret(pulumi.String(admin.Password)).(pulumi.StringOutput),
				ConsoleAccess: pulumi.Bool(true),
			},
			&mq.BrokerUserArgs{
				Username:        pulumi.String(replication.Username),
				Password:        pulumi.ToSecret(pulumi.String(replication.Password)).(pulumi.StringOutput),
				ConsoleAccess:   pulumi.Bool(true),
				ReplicationUser: pulumi.Bool(true),
			},
		},
		Tags: tags("mq", "Name", name+"-mq-broker"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("mq broker: %w", err)
	}
	b.Arn = broker.Arn

	b.Host = broker.Instances.ApplyT(func(instances []mq.BrokerInstance) (string, error) {
		if len(instances) == 0 || len(instances[0].Endpoints) == 0 {
			return "", fmt.Errorf("broker %s has no endpoints", name)
		}
		return BrokerHost(instances[0].Endpoints[0])
	}).(pulumi.StringOutput)

	_, err = ssm.NewParameter(ctx, name+"-mq-broker-host-ssm-parameter", &ssm.ParameterArgs{
		Name:        pulumi.String(naming.BrokerHostPath(name)),
		Type:        pulumi.String("String"),
		Description: pulumi.Sprintf("RabbitMQ cluster host for %s-mq-broker", name),
		Value:       b.Host,
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("mq host parameter: %w", err)
	}

	_, err = ssm.NewParameter(ctx, name+"-mq-broker-port-ssm-parameter", &ssm.ParameterArgs{
		Name:        pulumi.String(naming.BrokerPortPath(name)),
		Type:        pulumi.String("String"),
		Description: pulumi.Sprintf("RabbitMQ cluster port for %s-mq-broker", name),
		Value:       pulumi.String(naming.BrokerPort),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("mq port parameter: %w", err)
	}

	if err := ctx.RegisterResourceOutputs(b, pulumi.Map{
		"arn":  b.Arn,
		"host": b.Host,
	}); err != nil {
		return nil, err
	}

	return b, nil
}

// lookupBrokerUser reads /{name}/broker/{user} from Secrets Manager.
func lookupBrokerUser(ctx *pulumi.Context, id Identity, name, user string) (credentials.Broker, error) {
	arn := naming.BrokerSecretARN(id.Region, id.AccountID, name, user)

	version, err := secretsmanager.LookupSecretVersion(ctx, &secretsmanager.LookupSecretVersionArgs{
		SecretId: arn,
	})
	if err != nil {
		return credentials.Broker{}, fmt.Errorf("failed to read broker secret %s: %w", arn, err)
	}

	creds, err := credentials.ParseBroker(version.SecretString)
	if err != nil {
		return credentials.Broker{}, fmt.Errorf("broker secret %s: %w", arn, err)
	}

	return creds, nil
}
