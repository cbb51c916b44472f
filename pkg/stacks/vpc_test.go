package stacks

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
)

func TestVpcStackTemplate(t *testing.T) {
	cfg := resolveConfig(t, "dev")
	app, publisher := newAppPublisher(cfg)

	stack, _, err := NewVpcStack(app, "TestVpc", &VpcStackProps{Publisher: publisher}, cfg)
	if err != nil {
		t.Fatalf("vpc stack: %v", err)
	}
	template := assertions.Template_FromStack(stack, nil)

	template.HasResourceProperties(jsii.String("AWS::EC2::VPC"), map[string]interface{}{
		"CidrBlock":          "10.0.0.0/16",
		"EnableDnsHostnames": true,
		"EnableDnsSupport":   true,
	})

	// 5 named groups plus the explicit default group.
	template.ResourceCountIs(jsii.String("AWS::EC2::SecurityGroup"), jsii.Number(6))

	// Dev runs a single NAT gateway.
	template.ResourceCountIs(jsii.String("AWS::EC2::NatGateway"), jsii.Number(1))

	// 2 AZs x 3 subnet tiers.
	template.ResourceCountIs(jsii.String("AWS::EC2::Subnet"), jsii.Number(6))
	template.HasResourceProperties(jsii.String("AWS::EC2::Subnet"), map[string]interface{}{
		"MapPublicIpOnLaunch": true,
	})
}

func TestVpcFlowLogsTemplate(t *testing.T) {
	cfg := resolveConfig(t, "dev")
	app, publisher := newAppPublisher(cfg)

	stack, _, err := NewVpcStack(app, "TestVpcFlowLogs", &VpcStackProps{Publisher: publisher}, cfg)
	if err != nil {
		t.Fatalf("vpc stack: %v", err)
	}
	template := assertions.Template_FromStack(stack, nil)

	template.HasResourceProperties(jsii.String("AWS::EC2::FlowLog"), map[string]interface{}{
		"ResourceType": "VPC",
		"TrafficType":  "ALL",
	})
	template.ResourceCountIs(jsii.String("AWS::Logs::LogGroup"), jsii.Number(1))
}

func TestVpcPublishedParameters(t *testing.T) {
	cfg := resolveConfig(t, "dev")
	app, publisher := newAppPublisher(cfg)

	stack, _, err := NewVpcStack(app, "TestVpcParams", &VpcStackProps{Publisher: publisher}, cfg)
	if err != nil {
		t.Fatalf("vpc stack: %v", err)
	}
	template := assertions.Template_FromStack(stack, nil)

	// vpc-id, 3 subnet lists, 5 security group ids, availability zones.
	template.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(10))
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]interface{}{
		"Name": "/infra/dev/vpc/vpc-id",
		"Type": "String",
	})
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]interface{}{
		"Name": "/infra/dev/vpc/private-subnet-ids",
		"Type": "StringList",
	})
}
