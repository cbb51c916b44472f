package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsrds"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

type RdsStackProps struct {
	awscdk.StackProps
	Publisher *params.Publisher
	Network   *VpcOutputs
	Secrets   *SecretsOutputs
}

// RdsOutputs exposes the Aurora cluster identifiers the access-control stack
// needs.
type RdsOutputs struct {
	Cluster awsrds.DatabaseCluster
	KmsKey  awskms.Key
}

// NewRdsStack declares the Aurora MySQL Serverless v2 cluster in the network
// stack's isolated subnets.
func NewRdsStack(scope constructs.Construct, id string, props *RdsStackProps, cfg config.EnvironmentConfig) (awscdk.Stack, *RdsOutputs, error) {
	if props == nil || props.Publisher == nil {
		return nil, nil, &MissingDependencyError{Stack: StackRds, Dependency: "parameter publisher"}
	}
	if props.Network == nil || props.Network.Vpc == nil {
		return nil, nil, &MissingDependencyError{Stack: StackRds, Dependency: "vpc outputs"}
	}
	if props.Network.DbSecurityGroup == nil {
		return nil, nil, &MissingDependencyError{Stack: StackRds, Dependency: "db security group"}
	}
	if props.Secrets == nil || props.Secrets.RdsCredentials == nil {
		return nil, nil, &MissingDependencyError{Stack: StackRds, Dependency: "secrets outputs"}
	}
	stack := awscdk.NewStack(scope, &id, &props.StackProps)

	kmsKey := awskms.NewKey(stack, jsii.String("RdsKmsKey"), &awskms.KeyProps{
		Description:       jsii.String(fmt.Sprintf("KMS key for RDS encryption in %s environment", cfg.Name)),
		EnableKeyRotation: jsii.Bool(true),
	})
	awscdk.Tags_Of(kmsKey).Add(jsii.String("Purpose"), jsii.String("RdsEncryption"), nil)

	subnetGroup := awsrds.NewSubnetGroup(stack, jsii.String("AuroraSubnetGroup"), &awsrds.SubnetGroupProps{
		Description: jsii.String(fmt.Sprintf("Aurora subnet group for %s", cfg.Name)),
		Vpc:         props.Network.Vpc,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
		},
	})

	engine := awsrds.DatabaseClusterEngine_AuroraMysql(&awsrds.AuroraMysqlClusterEngineProps{
		Version: awsrds.AuroraMysqlEngineVersion_VER_3_02_0(),
	})

	clusterParameters := map[string]*string{}
	for name, value := range config.AuroraParameters() {
		clusterParameters[name] = jsii.String(value)
	}
	parameterGroup := awsrds.NewParameterGroup(stack, jsii.String("AuroraParameterGroup"), &awsrds.ParameterGroupProps{
		Engine:      engine,
		Description: jsii.String(fmt.Sprintf("Aurora MySQL parameter group for %s", cfg.Name)),
		Parameters:  &clusterParameters,
	})

	cluster := awsrds.NewDatabaseCluster(stack, jsii.String("AuroraCluster"), &awsrds.DatabaseClusterProps{
		Engine:      engine,
		Credentials: awsrds.Credentials_FromGeneratedSecret(jsii.String(config.MasterUsername), nil),
		Writer: awsrds.ClusterInstance_ServerlessV2(jsii.String("Writer"), &awsrds.ServerlessV2ClusterInstanceProps{
			EnablePerformanceInsights: jsii.Bool(cfg.DetailedMonitoring),
			PubliclyAccessible:        jsii.Bool(false),
		}),
		Readers: &[]awsrds.IClusterInstance{
			awsrds.ClusterInstance_ServerlessV2(jsii.String("Reader"), &awsrds.ServerlessV2ClusterInstanceProps{
				ScaleWithWriter:           jsii.Bool(true),
				EnablePerformanceInsights: jsii.Bool(cfg.DetailedMonitoring),
				PubliclyAccessible:        jsii.Bool(false),
			}),
		},
		Vpc: props.Network.Vpc,
		VpcSubnets: &awsec2.SubnetSelection{
			SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
		},
		SecurityGroups:      &[]awsec2.ISecurityGroup{props.Network.DbSecurityGroup},
		DefaultDatabaseName: jsii.String(config.DatabaseName),
		ParameterGroup:      parameterGroup,
		SubnetGroup:         subnetGroup,
		Backup: &awsrds.BackupProps{
			Retention:       awscdk.Duration_Days(jsii.Number(float64(cfg.Database.BackupRetentionDays))),
			PreferredWindow: jsii.String(config.SnapshotWindow), // UTC
		},
		ServerlessV2MinCapacity: jsii.Number(cfg.Database.MinCapacity),
		ServerlessV2MaxCapacity: jsii.Number(cfg.Database.MaxCapacity),
		StorageEncrypted:        jsii.Bool(true),
		StorageEncryptionKey:    kmsKey,
		DeletionProtection:      jsii.Bool(cfg.Database.DeletionProtection),
	})
	awscdk.Tags_Of(cluster).Add(jsii.String("Name"), jsii.String(cfg.ResourceName("aurora-cluster")), nil)

	applyTags(stack, cfg)

	collector := newOutputCollector()
	collector.set("cluster-endpoint", *cluster.ClusterEndpoint().Hostname())
	collector.set("cluster-port", *awscdk.Token_AsString(cluster.ClusterEndpoint().Port(), nil))
	collector.set("cluster-reader-endpoint", *cluster.ClusterReadEndpoint().Hostname())
	collector.set("cluster-arn", *cluster.ClusterArn())
	collector.set("database-name", config.DatabaseName)
	collector.set("kms-key-arn", *kmsKey.KeyArn())
	collector.set("subnet-group-name", *subnetGroup.SubnetGroupName())
	collector.set("parameter-group-name", *parameterGroup.BindToCluster(&awsrds.ParameterGroupClusterBindOptions{}).ParameterGroupName)
	if err := collector.publish(stack, props.Publisher, StackRds); err != nil {
		return nil, nil, err
	}

	return stack, &RdsOutputs{Cluster: cluster, KmsKey: kmsKey}, nil
}
