package stacks

import (
	"fmt"
	"sort"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsopensearchservice"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

type OpenSearchStackProps struct {
	awscdk.StackProps
	Publisher *params.Publisher
	Network   *VpcOutputs
}

// OpenSearchOutputs exposes the domain identifiers the access-control stack
// scopes its policies to.
type OpenSearchOutputs struct {
	DomainArn      string
	DomainEndpoint string
	DomainName     string
}

// NewOpenSearchStack declares the OpenSearch domain inside the network
// stack's private subnets. The domain is an L1 construct so cluster options
// the L2 Domain does not surface (standby multi-AZ, advanced options) stay
// under direct control.
func NewOpenSearchStack(scope constructs.Construct, id string, props *OpenSearchStackProps, cfg config.EnvironmentConfig) (awscdk.Stack, *OpenSearchOutputs, error) {
	if props == nil || props.Publisher == nil {
		return nil, nil, &MissingDependencyError{Stack: StackOpenSearch, Dependency: "parameter publisher"}
	}
	if props.Network == nil || props.Network.Vpc == nil {
		return nil, nil, &MissingDependencyError{Stack: StackOpenSearch, Dependency: "vpc outputs"}
	}
	if props.Network.OpenSearchSecurityGroup == nil {
		return nil, nil, &MissingDependencyError{Stack: StackOpenSearch, Dependency: "opensearch security group"}
	}
	stack := awscdk.NewStack(scope, &id, &props.StackProps)

	kmsKey := awskms.NewKey(stack, jsii.String("OpenSearchKmsKey"), &awskms.KeyProps{
		Description:       jsii.String(fmt.Sprintf("KMS key for OpenSearch encryption in %s environment", cfg.Name)),
		EnableKeyRotation: jsii.Bool(true),
	})
	awscdk.Tags_Of(kmsKey).Add(jsii.String("Purpose"), jsii.String("OpenSearchEncryption"), nil)

	domainName := cfg.ResourceName("opensearch")

	retention := awslogs.RetentionDays_THREE_MONTHS
	if cfg.IsDev() {
		retention = awslogs.RetentionDays_ONE_MONTH
	}
	logGroup := awslogs.NewLogGroup(stack, jsii.String("OpenSearchLogGroup"), &awslogs.LogGroupProps{
		LogGroupName: jsii.String(fmt.Sprintf("/aws/opensearch/domains/%s", domainName)),
		Retention:    retention,
	})
	awscdk.Tags_Of(logGroup).Add(jsii.String("Purpose"), jsii.String("OpenSearchLogs"), nil)

	masterPasswordSecret := awssecretsmanager.NewSecret(stack, jsii.String("OpenSearchMasterPassword"), &awssecretsmanager.SecretProps{
		SecretName:  jsii.String(cfg.ResourceName("opensearch-master-password")),
		Description: jsii.String("OpenSearch master user password"),
		GenerateSecretString: &awssecretsmanager.SecretStringGenerator{
			SecretStringTemplate: jsonTemplate(map[string]string{"username": config.MasterUsername}),
			GenerateStringKey:    jsii.String("password"),
			ExcludeCharacters:    jsii.String(config.ExcludedPasswordChars),
			PasswordLength:       jsii.Number(float64(config.PasswordLength)),
		},
		EncryptionKey: kmsKey,
	})

	clusterConfig := &awsopensearchservice.CfnDomain_ClusterConfigProperty{
		InstanceCount: jsii.Number(float64(cfg.Search.InstanceCount)),
		InstanceType:  jsii.String(cfg.Search.InstanceType),
	}
	if cfg.Search.InstanceCount > 1 {
		azCount := cfg.Search.InstanceCount
		if azCount < 2 {
			azCount = 2
		}
		if azCount > 3 {
			azCount = 3
		}
		clusterConfig.ZoneAwarenessEnabled = jsii.Bool(true)
		clusterConfig.ZoneAwarenessConfig = &awsopensearchservice.CfnDomain_ZoneAwarenessConfigProperty{
			AvailabilityZoneCount: jsii.Number(float64(azCount)),
		}
	}
	if cfg.IsProd() {
		clusterConfig.MultiAzWithStandbyEnabled = jsii.Bool(true)
	}

	subnetIds := props.Network.Vpc.SelectSubnets(&awsec2.SubnetSelection{
		SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
	}).SubnetIds

	advancedOptions := map[string]*string{}
	for name, value := range config.OpenSearchAdvancedOptions() {
		advancedOptions[name] = jsii.String(value)
	}

	domain := awsopensearchservice.NewCfnDomain(stack, jsii.String("OpenSearchDomain"), &awsopensearchservice.CfnDomainProps{
		DomainName:    jsii.String(domainName),
		EngineVersion: jsii.String(config.OpenSearchVersion),
		ClusterConfig: clusterConfig,
		EbsOptions: &awsopensearchservice.CfnDomain_EBSOptionsProperty{
			EbsEnabled: jsii.Bool(true),
			VolumeSize: jsii.Number(float64(cfg.Search.EBSVolumeSizeGB)),
			VolumeType: jsii.String("gp3"),
		},
		EncryptionAtRestOptions: &awsopensearchservice.CfnDomain_EncryptionAtRestOptionsProperty{
			Enabled:  jsii.Bool(true),
			KmsKeyId: kmsKey.KeyArn(),
		},
		NodeToNodeEncryptionOptions: &awsopensearchservice.CfnDomain_NodeToNodeEncryptionOptionsProperty{
			Enabled: jsii.Bool(true),
		},
		AdvancedSecurityOptions: &awsopensearchservice.CfnDomain_AdvancedSecurityOptionsInputProperty{
			Enabled:                     jsii.Bool(true),
			InternalUserDatabaseEnabled: jsii.Bool(true),
			MasterUserOptions: &awsopensearchservice.CfnDomain_MasterUserOptionsProperty{
				MasterUserName:     jsii.String(config.MasterUsername),
				MasterUserPassword: masterPasswordSecret.SecretValueFromJson(jsii.String("password")).ToString(),
			},
		},
		DomainEndpointOptions: &awsopensearchservice.CfnDomain_DomainEndpointOptionsProperty{
			EnforceHttps:      jsii.Bool(true),
			TlsSecurityPolicy: jsii.String("Policy-Min-TLS-1-2-2019-07"),
		},
		VpcOptions: &awsopensearchservice.CfnDomain_VPCOptionsProperty{
			SubnetIds:        subnetIds,
			SecurityGroupIds: &[]*string{props.Network.OpenSearchSecurityGroup.SecurityGroupId()},
		},
		LogPublishingOptions: map[string]interface{}{
			"ES_APPLICATION_LOGS": &awsopensearchservice.CfnDomain_LogPublishingOptionProperty{
				CloudWatchLogsLogGroupArn: logGroup.LogGroupArn(),
				Enabled:                   jsii.Bool(true),
			},
		},
		AdvancedOptions: advancedOptions,
		Tags:            domainTags(cfg, domainName),
	})
	if cfg.IsDev() {
		domain.ApplyRemovalPolicy(awscdk.RemovalPolicy_DESTROY, nil)
	} else {
		domain.ApplyRemovalPolicy(awscdk.RemovalPolicy_RETAIN, nil)
	}

	applyTags(stack, cfg)

	outputs := &OpenSearchOutputs{
		DomainArn:      *domain.AttrArn(),
		DomainEndpoint: *domain.AttrDomainEndpoint(),
		DomainName:     domainName,
	}

	collector := newOutputCollector()
	collector.set("domain-endpoint", outputs.DomainEndpoint)
	collector.set("domain-arn", outputs.DomainArn)
	collector.set("domain-name", outputs.DomainName)
	collector.set("kms-key-arn", *kmsKey.KeyArn())
	collector.set("log-group-arn", *logGroup.LogGroupArn())
	collector.set("master-username", config.MasterUsername)
	collector.set("security-group-id", *props.Network.OpenSearchSecurityGroup.SecurityGroupId())
	collector.set("master-password-secret-arn", *masterPasswordSecret.SecretArn())
	if err := collector.publish(stack, props.Publisher, StackOpenSearch); err != nil {
		return nil, nil, err
	}

	return stack, outputs, nil
}

func domainTags(cfg config.EnvironmentConfig, domainName string) *[]*awscdk.CfnTag {
	tags := []*awscdk.CfnTag{
		{Key: jsii.String("Name"), Value: jsii.String(domainName)},
	}
	common := cfg.Tags()
	keys := make([]string, 0, len(common))
	for key := range common {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		tags = append(tags, &awscdk.CfnTag{Key: jsii.String(key), Value: jsii.String(common[key])})
	}
	return &tags
}
