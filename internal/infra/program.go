package infra

import (
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/netplan"
)

// Stack output names.
const (
	OutputVpcID               = "vpcId"
	OutputSubnetIDs           = "subnetIds"
	OutputNatInterfaceID      = "natInterfaceId"
	OutputRepositoryURL       = "repositoryUrl"
	OutputDocdbEndpoint       = "docdbEndpoint"
	OutputBrokerArn           = "brokerArn"
	OutputCrawlerArn          = "crawlerArn"
	OutputClusterName         = "clusterName"
	OutputServiceNames        = "serviceNames"
	OutputCrawlerFunctionArns = "crawlerFunctionArns"
)

// Program returns the Pulumi program that deploys cfg. Components are
// created in dependency order: network, registry, database, crawler,
// broker, cluster, services and finally the stream crawlers.
func Program(cfg *config.Config) pulumi.RunFunc {
	return func(ctx *pulumi.Context) error {
		plan, err := cfg.SubnetPlan()
		if err != nil {
			return fmt.Errorf("invalid subnet plan: %w", err)
		}

		id, err := ResolveIdentity(ctx, cfg.Region, cfg.AccountID)
		if err != nil {
			return err
		}
		_ = ctx.Log.Info(fmt.Sprintf("deploying %s/%s into account %s (%s)", cfg.Project, cfg.Stack, id.AccountID, id.Region), nil)

		// 1. Network
		vpc, err := NewVpc(ctx, cfg.Network.Name, &VpcArgs{
			Region: cfg.Region,
			Plan:   plan,
			Nat: NatArgs{
				ImageID:      cfg.Network.Nat.ImageID,
				InstanceType: cfg.Network.Nat.InstanceType,
			},
			InterfaceEndpoints: cfg.Network.InterfaceEndpoints,
			GatewayEndpoints:   cfg.Network.GatewayEndpoints,
		})
		if err != nil {
			return err
		}
		subnets := func(placement string) pulumi.StringArray {
			return vpc.SubnetIDs(netplan.Role(placement))
		}

		// 2. Registry
		repo, err := NewRepository(ctx, cfg.Registry.Name, pulumi.DependsOn([]pulumi.Resource{vpc}))
		if err != nil {
			return err
		}

		// 3. Warehouse
		docdb, err := NewDocumentDBCluster(ctx, cfg.Warehouse.Name, &DocumentDBClusterArgs{
			VpcID:               vpc.VpcID,
			SubnetIDs:           subnets(cfg.Warehouse.Placement),
			InstanceClass:       cfg.Warehouse.InstanceClass,
			Port:                cfg.Warehouse.Port,
			BackupRetentionDays: cfg.Warehouse.BackupRetentionDays,
			EngineVersion:       cfg.Warehouse.EngineVersion,
		}, pulumi.DependsOn([]pulumi.Resource{repo}))
		if err != nil {
			return err
		}

		// 4. Crawler
		crawler, err := NewCrawler(ctx, cfg.Crawler.Name, &CrawlerArgs{
			VpcID:       vpc.VpcID,
			SubnetIDs:   subnets(cfg.Crawler.Placement),
			ImageURI:    id.ImageURI(cfg.Crawler.Repository, cfg.Crawler.ImageTag),
			Timeout:     cfg.Crawler.Timeout,
			Memory:      cfg.Crawler.Memory,
			Environment: cfg.Crawler.Environment,
		}, pulumi.DependsOn([]pulumi.Resource{docdb}))
		if err != nil {
			return err
		}

		// 5. Broker. A single instance broker takes exactly one subnet.
		brokerSubnets := subnets(cfg.Broker.Placement)
		if len(brokerSubnets) == 0 {
			return fmt.Errorf("broker placement %q has no subnets", cfg.Broker.Placement)
		}
		brokerSubnets = brokerSubnets[:1]
		broker, err := NewMessageQueueBroker(ctx, cfg.Broker.Name, &MessageQueueBrokerArgs{
			Identity:      id,
			VpcID:         vpc.VpcID,
			SubnetIDs:     brokerSubnets,
			EngineVersion: cfg.Broker.EngineVersion,
			InstanceType:  cfg.Broker.InstanceType,
		}, pulumi.DependsOn([]pulumi.Resource{crawler}))
		if err != nil {
			return err
		}

		// 6. Cluster and services
		cluster, err := NewECSCluster(ctx, cfg.Cluster.Name, &ECSClusterArgs{
			VpcID: vpc.VpcID,
		}, pulumi.DependsOn([]pulumi.Resource{broker}))
		if err != nil {
			return err
		}

		serviceNames := pulumi.StringArray{}
		last := pulumi.Resource(cluster)
		for _, sc := range cfg.Services {
			svc, err := NewService(ctx, sc.Name, serviceArgs(id, cluster, subnets(cfg.Cluster.Placement), sc), pulumi.DependsOn([]pulumi.Resource{cluster}))
			if err != nil {
				return err
			}
			serviceNames = append(serviceNames, svc.ServiceName)
			last = svc
		}

		// 7. Stream crawlers
		functionArns := pulumi.StringMap{}
		if cfg.StreamCrawlers.StreamARN != "" {
			lambdas, err := NewCrawlingLambdas(ctx, "decodingml-crawling", &CrawlingLambdasArgs{
				Identity:         id,
				StreamARN:        pulumi.String(cfg.StreamCrawlers.StreamARN),
				EncryptionKeyARN: vpc.KmsKeyArn,
				Repository:       cfg.StreamCrawlers.Repository,
				Memory:           cfg.CrawlerMemory(),
				Timeout:          cfg.StreamCrawlers.Timeout,
				ResultTable:      cfg.StreamCrawlers.ResultTable,
				Filters:          cfg.StreamCrawlers.Filters,
			}, pulumi.DependsOn([]pulumi.Resource{last}))
			if err != nil {
				return err
			}
			for tag, arn := range lambdas.FunctionArns {
				functionArns[tag] = arn
			}
		} else {
			_ = ctx.Log.Debug("no change stream configured, skipping stream crawlers", nil)
		}

		subnetIDs := pulumi.Map{}
		for _, role := range netplan.Roles() {
			subnetIDs[string(role)] = vpc.SubnetIDs(role)
		}

		ctx.Export(OutputVpcID, vpc.VpcID)
		ctx.Export(OutputSubnetIDs, subnetIDs)
		ctx.Export(OutputNatInterfaceID, vpc.NatInterfaceID)
		ctx.Export(OutputRepositoryURL, repo.URL)
		ctx.Export(OutputDocdbEndpoint, docdb.Endpoint)
		ctx.Export(OutputBrokerArn, broker.Arn)
		ctx.Export(OutputCrawlerArn, crawler.Arn)
		ctx.Export(OutputClusterName, cluster.Name)
		ctx.Export(OutputServiceNames, serviceNames)
		ctx.Export(OutputCrawlerFunctionArns, functionArns)

		return nil
	}
}

func serviceArgs(id Identity, cluster *ECSCluster, subnets pulumi.StringArrayInput, sc config.ServiceConfig) *ServiceArgs {
	args := &ServiceArgs{
		Identity:             id,
		Cluster:              cluster,
		SubnetIDs:            subnets,
		Repository:           sc.Repository,
		ImageTag:             sc.ImageTag,
		ContainerPort:        sc.ContainerPort,
		CPU:                  sc.CPU,
		Memory:               sc.Memory,
		DesiredCount:         sc.DesiredCount,
		DeploymentController: sc.DeploymentController,
		TaskRoleARN:          sc.TaskRoleARN,
		Command:              sc.Command,
	}
	for _, kv := range sc.Environment {
		args.Environment = append(args.Environment, KeyValue{Name: kv.Name, Value: kv.Value})
	}
	for _, s := range sc.Secrets {
		args.Secrets = append(args.Secrets, ContainerSecret{Name: s.Name, Parameter: s.Parameter})
	}
	return args
}
