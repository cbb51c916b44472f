package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

type IamStackProps struct {
	awscdk.StackProps
	Publisher  *params.Publisher
	Secrets    *SecretsOutputs
	Rds        *RdsOutputs
	Sqs        *SqsOutputs
	OpenSearch *OpenSearchOutputs
}

// IamOutputs exposes the role identifiers applications assume.
type IamOutputs struct {
	LambdaExecutionRole awsiam.Role
	ApplicationRole     awsiam.Role
}

// NewIamStack declares the execution and application roles and the
// least-privilege policies scoped to every upstream stack's resource ARNs.
// It runs last: it depends on outputs from all resource stacks.
func NewIamStack(scope constructs.Construct, id string, props *IamStackProps, cfg config.EnvironmentConfig) (awscdk.Stack, *IamOutputs, error) {
	if props == nil || props.Publisher == nil {
		return nil, nil, &MissingDependencyError{Stack: StackIam, Dependency: "parameter publisher"}
	}
	if props.Secrets == nil || props.Secrets.RdsCredentials == nil {
		return nil, nil, &MissingDependencyError{Stack: StackIam, Dependency: "secrets outputs"}
	}
	if props.Rds == nil || props.Rds.Cluster == nil {
		return nil, nil, &MissingDependencyError{Stack: StackIam, Dependency: "rds outputs"}
	}
	if props.Sqs == nil || props.Sqs.MainQueue == nil {
		return nil, nil, &MissingDependencyError{Stack: StackIam, Dependency: "sqs outputs"}
	}
	if props.OpenSearch == nil || props.OpenSearch.DomainArn == "" {
		return nil, nil, &MissingDependencyError{Stack: StackIam, Dependency: "opensearch outputs"}
	}
	stack := awscdk.NewStack(scope, &id, &props.StackProps)

	lambdaExecutionRole := awsiam.NewRole(stack, jsii.String("LambdaExecutionRole"), &awsiam.RoleProps{
		RoleName:    jsii.String(cfg.ResourceName("lambda-execution-role")),
		AssumedBy:   awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
		Description: jsii.String("Execution role for Lambda functions"),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaBasicExecutionRole")),
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaVPCAccessExecutionRole")),
		},
	})

	applicationRole := awsiam.NewRole(stack, jsii.String("ApplicationRole"), &awsiam.RoleProps{
		RoleName: jsii.String(cfg.ResourceName("application-role")),
		AssumedBy: awsiam.NewCompositePrincipal(
			awsiam.NewServicePrincipal(jsii.String("ec2.amazonaws.com"), nil),
			awsiam.NewServicePrincipal(jsii.String("ecs-tasks.amazonaws.com"), nil),
		),
		Description: jsii.String("Role for application services"),
	})

	rdsAccessPolicy := awsiam.NewPolicy(stack, jsii.String("RdsAccessPolicy"), &awsiam.PolicyProps{
		PolicyName: jsii.String(cfg.ResourceName("rds-access-policy")),
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"rds:DescribeDBClusters",
					"rds:DescribeDBInstances",
					"rds:DescribeDBClusterEndpoints",
				),
				Resources: jsii.Strings("*"),
			}),
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"secretsmanager:GetSecretValue",
					"secretsmanager:DescribeSecret",
				),
				Resources: &[]*string{props.Secrets.RdsCredentials.SecretArn()},
			}),
		},
	})

	sqsAccessPolicy := awsiam.NewPolicy(stack, jsii.String("SqsAccessPolicy"), &awsiam.PolicyProps{
		PolicyName: jsii.String(cfg.ResourceName("sqs-access-policy")),
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"sqs:SendMessage",
					"sqs:SendMessageBatch",
					"sqs:ReceiveMessage",
					"sqs:DeleteMessage",
					"sqs:DeleteMessageBatch",
					"sqs:GetQueueAttributes",
					"sqs:GetQueueUrl",
				),
				Resources: &[]*string{
					props.Sqs.MainQueue.QueueArn(),
					props.Sqs.HighPriorityQueue.QueueArn(),
					props.Sqs.FifoQueue.QueueArn(),
					props.Sqs.BatchQueue.QueueArn(),
					props.Sqs.DeadLetterQueue.QueueArn(),
				},
			}),
		},
	})

	opensearchAccessPolicy := awsiam.NewPolicy(stack, jsii.String("OpenSearchAccessPolicy"), &awsiam.PolicyProps{
		PolicyName: jsii.String(cfg.ResourceName("opensearch-access-policy")),
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"es:ESHttpGet",
					"es:ESHttpPost",
					"es:ESHttpPut",
					"es:ESHttpDelete",
					"es:ESHttpHead",
				),
				Resources: jsii.Strings(props.OpenSearch.DomainArn + "/*"),
			}),
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"es:DescribeDomain",
					"es:DescribeDomains",
				),
				Resources: jsii.Strings(props.OpenSearch.DomainArn),
			}),
		},
	})

	secretsAccessPolicy := awsiam.NewPolicy(stack, jsii.String("SecretsAccessPolicy"), &awsiam.PolicyProps{
		PolicyName: jsii.String(cfg.ResourceName("secrets-access-policy")),
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"secretsmanager:GetSecretValue",
					"secretsmanager:DescribeSecret",
				),
				Resources: &[]*string{
					props.Secrets.ApiKeys.SecretArn(),
					props.Secrets.AppConfig.SecretArn(),
					props.Secrets.DbConnectionStrings.SecretArn(),
				},
			}),
		},
	})

	cloudwatchLogsPolicy := awsiam.NewPolicy(stack, jsii.String("CloudWatchLogsPolicy"), &awsiam.PolicyProps{
		PolicyName: jsii.String(cfg.ResourceName("cloudwatch-logs-policy")),
		Statements: &[]awsiam.PolicyStatement{
			awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
				Effect: awsiam.Effect_ALLOW,
				Actions: jsii.Strings(
					"logs:CreateLogGroup",
					"logs:CreateLogStream",
					"logs:PutLogEvents",
					"logs:DescribeLogGroups",
					"logs:DescribeLogStreams",
				),
				Resources: jsii.Strings("*"),
			}),
		},
	})

	policies := []awsiam.Policy{
		rdsAccessPolicy,
		sqsAccessPolicy,
		opensearchAccessPolicy,
		secretsAccessPolicy,
		cloudwatchLogsPolicy,
	}
	for _, policy := range policies {
		lambdaExecutionRole.AttachInlinePolicy(policy)
		applicationRole.AttachInlinePolicy(policy)
	}

	applyTags(stack, cfg)

	collector := newOutputCollector()
	collector.set("lambda-execution-role-arn", *lambdaExecutionRole.RoleArn())
	collector.set("application-role-arn", *applicationRole.RoleArn())
	collector.set("rds-access-policy-name", *rdsAccessPolicy.PolicyName())
	collector.set("sqs-access-policy-name", *sqsAccessPolicy.PolicyName())
	collector.set("opensearch-access-policy-name", *opensearchAccessPolicy.PolicyName())
	collector.set("secrets-access-policy-name", *secretsAccessPolicy.PolicyName())
	collector.set("cloudwatch-logs-policy-name", *cloudwatchLogsPolicy.PolicyName())
	collector.set("lambda-execution-role-name", *lambdaExecutionRole.RoleName())
	collector.set("application-role-name", *applicationRole.RoleName())
	if err := collector.publish(stack, props.Publisher, StackIam); err != nil {
		return nil, nil, err
	}

	return stack, &IamOutputs{LambdaExecutionRole: lambdaExecutionRole, ApplicationRole: applicationRole}, nil
}
