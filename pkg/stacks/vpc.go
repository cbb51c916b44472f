package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslogs"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

type VpcStackProps struct {
	awscdk.StackProps
	Publisher *params.Publisher
}

// VpcOutputs is the network stack's output set consumed by dependent stacks.
type VpcOutputs struct {
	Vpc                     awsec2.Vpc
	WebSecurityGroup        awsec2.SecurityGroup
	AppSecurityGroup        awsec2.SecurityGroup
	DbSecurityGroup         awsec2.SecurityGroup
	OpenSearchSecurityGroup awsec2.SecurityGroup
	LambdaSecurityGroup     awsec2.SecurityGroup
}

// NewVpcStack declares the multi-AZ VPC, its security groups and flow logs,
// and publishes the network identifiers every other stack discovers.
func NewVpcStack(scope constructs.Construct, id string, props *VpcStackProps, cfg config.EnvironmentConfig) (awscdk.Stack, *VpcOutputs, error) {
	if props == nil || props.Publisher == nil {
		return nil, nil, &MissingDependencyError{Stack: StackVpc, Dependency: "parameter publisher"}
	}
	stack := awscdk.NewStack(scope, &id, &props.StackProps)

	natGateways := 1
	if cfg.Network.NATGatewayPerAZ {
		natGateways = cfg.Network.MaxAZs
	}

	vpc := awsec2.NewVpc(stack, jsii.String("Vpc"), &awsec2.VpcProps{
		IpAddresses:        awsec2.IpAddresses_Cidr(jsii.String(cfg.Network.CIDR)),
		MaxAzs:             jsii.Number(float64(cfg.Network.MaxAZs)),
		EnableDnsHostnames: jsii.Bool(true),
		EnableDnsSupport:   jsii.Bool(true),
		SubnetConfiguration: &[]*awsec2.SubnetConfiguration{
			{
				// Public subnets for load balancers and NAT gateways.
				Name:       jsii.String("Public"),
				SubnetType: awsec2.SubnetType_PUBLIC,
				CidrMask:   jsii.Number(float64(config.SubnetCIDRMask)),
			},
			{
				// Private subnets for application servers.
				Name:       jsii.String("Private"),
				SubnetType: awsec2.SubnetType_PRIVATE_WITH_EGRESS,
				CidrMask:   jsii.Number(float64(config.SubnetCIDRMask)),
			},
			{
				// Isolated subnets for databases.
				Name:       jsii.String("Isolated"),
				SubnetType: awsec2.SubnetType_PRIVATE_ISOLATED,
				CidrMask:   jsii.Number(float64(config.SubnetCIDRMask)),
			},
		},
		NatGateways: jsii.Number(float64(natGateways)),
	})
	awscdk.Tags_Of(vpc).Add(jsii.String("Name"), jsii.String(cfg.ResourceName("vpc")), nil)

	outputs := createSecurityGroups(stack, vpc)
	outputs.Vpc = vpc

	if cfg.Network.FlowLogs {
		createFlowLogs(stack, vpc, cfg)
	}

	applyTags(stack, cfg)

	collector := newOutputCollector()
	collector.set("vpc-id", *vpc.VpcId())
	collector.setList("public-subnet-ids", subnetIDs(vpc.PublicSubnets()))
	collector.setList("private-subnet-ids", subnetIDs(vpc.PrivateSubnets()))
	collector.setList("isolated-subnet-ids", subnetIDs(vpc.IsolatedSubnets()))
	collector.set("web-security-group-id", *outputs.WebSecurityGroup.SecurityGroupId())
	collector.set("app-security-group-id", *outputs.AppSecurityGroup.SecurityGroupId())
	collector.set("db-security-group-id", *outputs.DbSecurityGroup.SecurityGroupId())
	collector.set("opensearch-security-group-id", *outputs.OpenSearchSecurityGroup.SecurityGroupId())
	collector.set("lambda-security-group-id", *outputs.LambdaSecurityGroup.SecurityGroupId())
	collector.setList("availability-zones", derefList(vpc.AvailabilityZones()))
	if err := collector.publish(stack, props.Publisher, StackVpc); err != nil {
		return nil, nil, err
	}

	return stack, outputs, nil
}

func createSecurityGroups(stack awscdk.Stack, vpc awsec2.IVpc) *VpcOutputs {
	outputs := &VpcOutputs{}

	// Default group, kept separate from the VPC-managed default.
	awsec2.NewSecurityGroup(stack, jsii.String("DefaultSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		Description:      jsii.String("Default security group for VPC"),
		AllowAllOutbound: jsii.Bool(true),
	})

	outputs.WebSecurityGroup = awsec2.NewSecurityGroup(stack, jsii.String("WebSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		Description:      jsii.String("Security group for web servers"),
		AllowAllOutbound: jsii.Bool(true),
	})
	outputs.WebSecurityGroup.AddIngressRule(
		awsec2.Peer_AnyIpv4(),
		awsec2.Port_Tcp(jsii.Number(float64(config.HTTPPort))),
		jsii.String("Allow HTTP from anywhere"),
		jsii.Bool(false),
	)
	outputs.WebSecurityGroup.AddIngressRule(
		awsec2.Peer_AnyIpv4(),
		awsec2.Port_Tcp(jsii.Number(float64(config.HTTPSPort))),
		jsii.String("Allow HTTPS from anywhere"),
		jsii.Bool(false),
	)

	outputs.AppSecurityGroup = awsec2.NewSecurityGroup(stack, jsii.String("AppSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		Description:      jsii.String("Security group for application servers"),
		AllowAllOutbound: jsii.Bool(true),
	})
	outputs.AppSecurityGroup.AddIngressRule(
		outputs.WebSecurityGroup,
		awsec2.Port_AllTcp(),
		jsii.String("Allow traffic from web servers"),
		jsii.Bool(false),
	)

	outputs.DbSecurityGroup = awsec2.NewSecurityGroup(stack, jsii.String("DbSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		Description:      jsii.String("Security group for databases"),
		AllowAllOutbound: jsii.Bool(false),
	})
	outputs.DbSecurityGroup.AddIngressRule(
		outputs.AppSecurityGroup,
		awsec2.Port_Tcp(jsii.Number(float64(config.MySQLPort))),
		jsii.String("Allow MySQL/Aurora from app servers"),
		jsii.Bool(false),
	)

	outputs.OpenSearchSecurityGroup = awsec2.NewSecurityGroup(stack, jsii.String("OpenSearchSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		Description:      jsii.String("Security group for OpenSearch"),
		AllowAllOutbound: jsii.Bool(true),
	})
	outputs.OpenSearchSecurityGroup.AddIngressRule(
		outputs.AppSecurityGroup,
		awsec2.Port_Tcp(jsii.Number(float64(config.HTTPSPort))),
		jsii.String("Allow HTTPS from app servers"),
		jsii.Bool(false),
	)

	outputs.LambdaSecurityGroup = awsec2.NewSecurityGroup(stack, jsii.String("LambdaSecurityGroup"), &awsec2.SecurityGroupProps{
		Vpc:              vpc,
		Description:      jsii.String("Security group for Lambda functions"),
		AllowAllOutbound: jsii.Bool(true),
	})

	return outputs
}

func createFlowLogs(stack awscdk.Stack, vpc awsec2.IVpc, cfg config.EnvironmentConfig) {
	retention := awslogs.RetentionDays_THREE_MONTHS
	if cfg.IsDev() {
		retention = awslogs.RetentionDays_ONE_MONTH
	}
	logGroup := awslogs.NewLogGroup(stack, jsii.String("VpcFlowLogGroup"), &awslogs.LogGroupProps{
		LogGroupName: jsii.String(fmt.Sprintf("/aws/vpc/flowlogs/%s", cfg.ResourceName("vpc"))),
		Retention:    retention,
	})
	awscdk.Tags_Of(logGroup).Add(jsii.String("Purpose"), jsii.String("VpcFlowLogs"), nil)

	flowLogRole := awsiam.NewRole(stack, jsii.String("VpcFlowLogRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("vpc-flow-logs.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/VPCFlowLogsDeliveryRolePolicy")),
		},
	})

	awsec2.NewFlowLog(stack, jsii.String("VpcFlowLog"), &awsec2.FlowLogProps{
		ResourceType: awsec2.FlowLogResourceType_FromVpc(vpc),
		TrafficType:  awsec2.FlowLogTrafficType_ALL,
		Destination:  awsec2.FlowLogDestination_ToCloudWatchLogs(logGroup, flowLogRole),
	})
}

func subnetIDs(subnets *[]awsec2.ISubnet) []string {
	if subnets == nil {
		return nil
	}
	ids := make([]string, 0, len(*subnets))
	for _, subnet := range *subnets {
		ids = append(ids, *subnet.SubnetId())
	}
	return ids
}
