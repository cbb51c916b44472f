package stacks

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
)

func iamTemplate(t *testing.T) assertions.Template {
	t.Helper()
	cfg := resolveConfig(t, "dev")
	app, publisher := newAppPublisher(cfg)

	network := buildNetwork(t, app, publisher, "TestIamVpc")
	secrets := buildSecrets(t, app, publisher, "TestIamSecrets")
	_, rds, err := NewRdsStack(app, "TestIamRds", &RdsStackProps{
		Publisher: publisher,
		Network:   network,
		Secrets:   secrets,
	}, cfg)
	if err != nil {
		t.Fatalf("rds fixture: %v", err)
	}
	_, sqs, err := NewSqsStack(app, "TestIamSqs", &SqsStackProps{Publisher: publisher}, cfg)
	if err != nil {
		t.Fatalf("sqs fixture: %v", err)
	}
	_, opensearch, err := NewOpenSearchStack(app, "TestIamOpenSearch", &OpenSearchStackProps{
		Publisher: publisher,
		Network:   network,
	}, cfg)
	if err != nil {
		t.Fatalf("opensearch fixture: %v", err)
	}

	stack, _, err := NewIamStack(app, "TestIam", &IamStackProps{
		Publisher:  publisher,
		Secrets:    secrets,
		Rds:        rds,
		Sqs:        sqs,
		OpenSearch: opensearch,
	}, cfg)
	if err != nil {
		t.Fatalf("iam stack: %v", err)
	}
	return assertions.Template_FromStack(stack, &assertions.TemplateParsingOptions{
		SkipCyclicalDependenciesCheck: jsii.Bool(true),
	})
}

func TestIamStackTemplate(t *testing.T) {
	template := iamTemplate(t)

	// Lambda execution role and application role.
	template.ResourceCountIs(jsii.String("AWS::IAM::Role"), jsii.Number(2))
	// rds, sqs, opensearch, secrets and cloudwatch-logs access.
	template.ResourceCountIs(jsii.String("AWS::IAM::Policy"), jsii.Number(5))
}

func TestIamLambdaExecutionRole(t *testing.T) {
	template := iamTemplate(t)

	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"RoleName": "aws-cdk-infra-lambda-execution-role-dev",
		"AssumeRolePolicyDocument": map[string]interface{}{
			"Statement": []interface{}{
				map[string]interface{}{
					"Action": "sts:AssumeRole",
					"Effect": "Allow",
					"Principal": map[string]interface{}{
						"Service": "lambda.amazonaws.com",
					},
				},
			},
		},
	})
}

func TestIamSqsPolicyScopedToQueues(t *testing.T) {
	template := iamTemplate(t)

	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]interface{}{
		"PolicyName": "aws-cdk-infra-sqs-access-policy-dev",
		"PolicyDocument": map[string]interface{}{
			"Statement": []interface{}{
				map[string]interface{}{
					"Effect":   "Allow",
					"Resource": assertions.Match_AnyValue(),
				},
			},
		},
	})
}

func TestIamPublishedParameters(t *testing.T) {
	template := iamTemplate(t)

	// 2 role ARNs + 2 role names + 5 policy names.
	template.ResourceCountIs(jsii.String("AWS::SSM::Parameter"), jsii.Number(9))
	template.HasResourceProperties(jsii.String("AWS::SSM::Parameter"), map[string]interface{}{
		"Name": "/infra/dev/iam/lambda-execution-role-arn",
		"Type": "String",
	})
}
