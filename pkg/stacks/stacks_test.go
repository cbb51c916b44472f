package stacks

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

func resolveConfig(t *testing.T, env string) config.EnvironmentConfig {
	t.Helper()
	cfg, err := config.Resolve(env)
	if err != nil {
		t.Fatalf("resolve %q: %v", env, err)
	}
	return cfg
}

func newAppPublisher(cfg config.EnvironmentConfig) (awscdk.App, *params.Publisher) {
	return awscdk.NewApp(nil), params.NewPublisher(config.ParameterRoot, cfg.Name)
}

// Fixture stacks are always built from the dev table so synthesized AZ counts
// stay within the two dummy AZs of an environment-agnostic stack; the stack
// under test gets whichever config the test exercises.
func buildNetwork(t *testing.T, app awscdk.App, publisher *params.Publisher, id string) *VpcOutputs {
	t.Helper()
	_, outputs, err := NewVpcStack(app, id, &VpcStackProps{Publisher: publisher}, resolveConfig(t, "dev"))
	if err != nil {
		t.Fatalf("building network fixture: %v", err)
	}
	return outputs
}

func buildSecrets(t *testing.T, app awscdk.App, publisher *params.Publisher, id string) *SecretsOutputs {
	t.Helper()
	_, outputs, err := NewSecretsStack(app, id, &SecretsStackProps{Publisher: publisher}, resolveConfig(t, "dev"))
	if err != nil {
		t.Fatalf("building secrets fixture: %v", err)
	}
	return outputs
}
