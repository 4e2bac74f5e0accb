package infra

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/docdb"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ec2"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ssm"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/naming"
)

// DocumentDBClusterArgs configures the document database.
type DocumentDBClusterArgs struct {
	VpcID               pulumi.StringInput
	SubnetIDs           pulumi.StringArrayInput
	InstanceClass       string
	Port                int
	BackupRetentionDays int
	EngineVersion       string
}

// DocumentDBCluster is a single instance DocumentDB cluster whose connection
// string is published to the parameter store.
type DocumentDBCluster struct {
	pulumi.ResourceState

	ClusterIdentifier pulumi.StringOutput
	Endpoint          pulumi.StringOutput
	SecurityGroupID   pulumi.StringOutput
}

// ConnectionString builds the MongoDB URI downstream services read from
// /{name}/cluster/host.
func ConnectionString(username, password, endpoint string, port int) string {
	return fmt.Sprintf(
		"mongodb://%s:%s@%s:%d/?replicaSet=rs0&readPreference=secondaryPreferred&retryWrites=false",
		username, password, endpoint, port,
	)
}

// NewDocumentDBCluster creates the cluster with credentials read from
// /{name}/cluster/master/{username,password}.
func NewDocumentDBCluster(ctx *pulumi.Context, name string, args *DocumentDBClusterArgs, opts ...pulumi.ResourceOption) (*DocumentDBCluster, error) {
	c := &DocumentDBCluster{}
	if err := ctx.RegisterComponentResource(typePrefix+"docdb", name, c, opts...); err != nil {
		return nil, err
	}
	parent := pulumi.Parent(c)

	username, err := lookupParameter(ctx, naming.MasterUsernamePath(name))
	if err != nil {
		return nil, err
	}
	password, err := lookupParameter(ctx, naming.MasterPasswordPath(name))
	if err != nil {
		return nil, err
	}

	subnetGroup, err := docdb.NewSubnetGroup(ctx, name+"-docdb-subnet-group", &docdb.SubnetGroupArgs{
		Name:        pulumi.Sprintf("%s-cluster-subnet-group", name),
		Description: pulumi.Sprintf("VPC subnet group for the %s-cluster", name),
		SubnetIds:   args.SubnetIDs,
		Tags:        tags("docdb", "Name", name+"-cluster-subnet-group"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("docdb subnet group: %w", err)
	}

	sg, err := ec2.NewSecurityGroup(ctx, name+"-docdb-sg", &ec2.SecurityGroupArgs{
		Name:        pulumi.Sprintf("%s-docdb-cluster-sg", name),
		Description: pulumi.String("Database access"),
		VpcId:       args.VpcID,
		Ingress: ec2.SecurityGroupIngressArray{
			ec2.SecurityGroupIngressArgs{
				Description: pulumi.String("Ingress from anywhere"),
				Protocol:    pulumi.String("-1"),
				FromPort:    pulumi.Int(args.Port),
				ToPort:      pulumi.Int(args.Port),
				CidrBlocks:  pulumi.StringArray{pulumi.String(anywhere)},
			},
		},
		Egress: openEgress(),
		Tags:   tags("docdb", "Name", name+"-docdb-cluster-sg"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("docdb security group: %w", err)
	}
	c.SecurityGroupID = sg.ID().ToStringOutput()

	cluster, err := docdb.NewCluster(ctx, name+"-docdb-cluster", &docdb.ClusterArgs{
		ClusterIdentifier:     pulumi.Sprintf("%s-cluster", name),
		BackupRetentionPeriod: pulumi.Int(args.BackupRetentionDays),
		MasterUsername:        pulumi.String(username),
		MasterPassword:        pulumi.ToSecret(pulumi.String(password)).(pulumi.StringOutput),
		EngineVersion:         pulumi.String(args.EngineVersion),
		Port:                  pulumi.Int(args.Port),
		DbSubnetGroupName:     subnetGroup.Name,
		StorageEncrypted:      pulumi.Bool(true),
		SkipFinalSnapshot:     pulumi.Bool(true),
		VpcSecurityGroupIds:   pulumi.StringArray{c.SecurityGroupID},
		Tags:                  tags("docdb", "Name", name+"-cluster"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("docdb cluster: %w", err)
	}
	c.ClusterIdentifier = cluster.ClusterIdentifier
	c.Endpoint = cluster.Endpoint

	_, err = docdb.NewClusterInstance(ctx, name+"-docdb-primary-instance", &docdb.ClusterInstanceArgs{
		ClusterIdentifier: cluster.ClusterIdentifier,
		Identifier:        pulumi.Sprintf("%s-primary-instance", name),
		InstanceClass:     pulumi.String(args.InstanceClass),
		Tags:              tags("docdb", "Name", name+"-primary-instance"),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("docdb primary instance: %w", err)
	}

	uri := cluster.Endpoint.ApplyT(func(endpoint string) string {
		return ConnectionString(username, password, endpoint, args.Port)
	}).(pulumi.StringOutput)

	_, err = ssm.NewParameter(ctx, name+"-docdb-host-ssm-parameter", &ssm.ParameterArgs{
		Name:        pulumi.String(naming.ClusterHostPath(name)),
		Type:        pulumi.String("SecureString"),
		Description: pulumi.Sprintf("DocumentDB connection string for %s-cluster", name),
		Value:       pulumi.ToSecret(uri).(pulumi.StringOutput),
	}, parent)
	if err != nil {
		return nil, fmt.Errorf("docdb host parameter: %w", err)
	}

	if err := ctx.RegisterResourceOutputs(c, pulumi.Map{
		"clusterIdentifier": c.ClusterIdentifier,
		"endpoint":          c.Endpoint,
	}); err != nil {
		return nil, err
	}

	return c, nil
}

// lookupParameter reads and decrypts a parameter store value.
func lookupParameter(ctx *pulumi.Context, path string) (string, error) {
	param, err := ssm.LookupParameter(ctx, &ssm.LookupParameterArgs{
		Name:           path,
		WithDecryption: pulumi.BoolRef(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", path, err)
	}
	return param.Value, nil
}
