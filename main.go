package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
	"github.com/fernbrook/aws-cdk-infra/pkg/stacks"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
)

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	envName, ok := app.Node().TryGetContext(jsii.String("env")).(string)
	if !ok || envName == "" {
		log.Fatalf("No environment selected: pass -c env=<name> (available: %v)", config.EnvironmentNames())
	}

	cfg, err := loadConfiguration(envName)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	jsonConfig, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Printf("Loaded configuration for %s:\n%s\n", envName, string(jsonConfig))

	awsEnv := &awscdk.Environment{
		Account: jsii.String(os.Getenv("CDK_DEFAULT_ACCOUNT")),
		Region:  jsii.String(cfg.Region),
	}

	for key, value := range cfg.Tags() {
		awscdk.Tags_Of(app).Add(jsii.String(key), jsii.String(value), nil)
	}

	publisher := params.NewPublisher(config.ParameterRoot, envName)

	// Build order follows the dependency graph: network first, resource
	// stacks next, access control last.
	_, vpcOutputs, err := stacks.NewVpcStack(app, stackID(cfg, stacks.StackVpc), &stacks.VpcStackProps{
		StackProps: awscdk.StackProps{
			Env:         awsEnv,
			Description: jsii.String(fmt.Sprintf("VPC infrastructure for %s environment", envName)),
		},
		Publisher: publisher,
	}, cfg)
	if err != nil {
		log.Fatalf("Error building vpc stack: %v", err)
	}

	_, secretsOutputs, err := stacks.NewSecretsStack(app, stackID(cfg, stacks.StackSecrets), &stacks.SecretsStackProps{
		StackProps: awscdk.StackProps{
			Env:         awsEnv,
			Description: jsii.String(fmt.Sprintf("Secrets Manager for %s environment", envName)),
		},
		Publisher: publisher,
	}, cfg)
	if err != nil {
		log.Fatalf("Error building secrets stack: %v", err)
	}

	_, rdsOutputs, err := stacks.NewRdsStack(app, stackID(cfg, stacks.StackRds), &stacks.RdsStackProps{
		StackProps: awscdk.StackProps{
			Env:         awsEnv,
			Description: jsii.String(fmt.Sprintf("Aurora MySQL cluster for %s environment", envName)),
		},
		Publisher: publisher,
		Network:   vpcOutputs,
		Secrets:   secretsOutputs,
	}, cfg)
	if err != nil {
		log.Fatalf("Error building rds stack: %v", err)
	}

	_, sqsOutputs, err := stacks.NewSqsStack(app, stackID(cfg, stacks.StackSqs), &stacks.SqsStackProps{
		StackProps: awscdk.StackProps{
			Env:         awsEnv,
			Description: jsii.String(fmt.Sprintf("SQS queues for %s environment", envName)),
		},
		Publisher: publisher,
	}, cfg)
	if err != nil {
		log.Fatalf("Error building sqs stack: %v", err)
	}

	_, opensearchOutputs, err := stacks.NewOpenSearchStack(app, stackID(cfg, stacks.StackOpenSearch), &stacks.OpenSearchStackProps{
		StackProps: awscdk.StackProps{
			Env:         awsEnv,
			Description: jsii.String(fmt.Sprintf("OpenSearch domain for %s environment", envName)),
		},
		Publisher: publisher,
		Network:   vpcOutputs,
	}, cfg)
	if err != nil {
		log.Fatalf("Error building opensearch stack: %v", err)
	}

	_, _, err = stacks.NewIamStack(app, stackID(cfg, stacks.StackIam), &stacks.IamStackProps{
		StackProps: awscdk.StackProps{
			Env:         awsEnv,
			Description: jsii.String(fmt.Sprintf("IAM roles and policies for %s environment", envName)),
		},
		Publisher:  publisher,
		Secrets:    secretsOutputs,
		Rds:        rdsOutputs,
		Sqs:        sqsOutputs,
		OpenSearch: opensearchOutputs,
	}, cfg)
	if err != nil {
		log.Fatalf("Error building iam stack: %v", err)
	}

	app.Synth(nil)
}

func stackID(cfg config.EnvironmentConfig, stack string) string {
	return fmt.Sprintf("%s-%s-%s", cfg.ProjectName, stack, cfg.Name)
}

func loadConfiguration(envName string) (config.EnvironmentConfig, error) {
	cfg, err := config.Resolve(envName)
	if err != nil {
		return config.EnvironmentConfig{}, err
	}
	// Optional per-environment override file next to the app, e.g.
	// config.dev.json. The static table is complete without it.
	if err := config.LoadOverrides(context.Background(), &cfg, config.OverrideFilename(envName)); err != nil {
		return config.EnvironmentConfig{}, err
	}
	return cfg, nil
}
