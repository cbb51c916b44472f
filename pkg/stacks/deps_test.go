package stacks

import (
	"errors"
	"testing"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

// Dependency validation happens before any construct is created, so a nil
// scope never gets touched when a required input is absent.
func TestConstructorsRejectMissingDependencies(t *testing.T) {
	cfg, err := config.Resolve("dev")
	if err != nil {
		t.Fatalf("resolve dev: %v", err)
	}
	publisher := params.NewPublisher(config.ParameterRoot, "dev")

	tests := []struct {
		name       string
		stack      string
		dependency string
		build      func() error
	}{
		{
			name:       "vpc without props",
			stack:      StackVpc,
			dependency: "parameter publisher",
			build: func() error {
				_, _, err := NewVpcStack(nil, "vpc", nil, cfg)
				return err
			},
		},
		{
			name:       "secrets without publisher",
			stack:      StackSecrets,
			dependency: "parameter publisher",
			build: func() error {
				_, _, err := NewSecretsStack(nil, "secrets", &SecretsStackProps{}, cfg)
				return err
			},
		},
		{
			name:       "rds without network",
			stack:      StackRds,
			dependency: "vpc outputs",
			build: func() error {
				_, _, err := NewRdsStack(nil, "rds", &RdsStackProps{Publisher: publisher}, cfg)
				return err
			},
		},
		{
			name:       "rds with empty network outputs",
			stack:      StackRds,
			dependency: "vpc outputs",
			build: func() error {
				props := &RdsStackProps{Publisher: publisher, Network: &VpcOutputs{}}
				_, _, err := NewRdsStack(nil, "rds", props, cfg)
				return err
			},
		},
		{
			name:       "sqs without props",
			stack:      StackSqs,
			dependency: "parameter publisher",
			build: func() error {
				_, _, err := NewSqsStack(nil, "sqs", nil, cfg)
				return err
			},
		},
		{
			name:       "opensearch without network",
			stack:      StackOpenSearch,
			dependency: "vpc outputs",
			build: func() error {
				props := &OpenSearchStackProps{Publisher: publisher}
				_, _, err := NewOpenSearchStack(nil, "opensearch", props, cfg)
				return err
			},
		},
		{
			name:       "iam without secrets",
			stack:      StackIam,
			dependency: "secrets outputs",
			build: func() error {
				props := &IamStackProps{Publisher: publisher}
				_, _, err := NewIamStack(nil, "iam", props, cfg)
				return err
			},
		},
		{
			name:       "iam without publisher",
			stack:      StackIam,
			dependency: "parameter publisher",
			build: func() error {
				_, _, err := NewIamStack(nil, "iam", &IamStackProps{}, cfg)
				return err
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build()
			if err == nil {
				t.Fatal("expected missing dependency error")
			}
			var missing *MissingDependencyError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingDependencyError, got %v", err)
			}
			if missing.Stack != tc.stack {
				t.Fatalf("stack = %q, want %q", missing.Stack, tc.stack)
			}
			if missing.Dependency != tc.dependency {
				t.Fatalf("dependency = %q, want %q", missing.Dependency, tc.dependency)
			}
		})
	}
}

func TestMissingDependencyErrorMessage(t *testing.T) {
	err := &MissingDependencyError{Stack: StackRds, Dependency: "vpc outputs"}
	want := `stack "rds" is missing required dependency "vpc outputs"`
	if err.Error() != want {
		t.Fatalf("message %q, want %q", err.Error(), want)
	}
}
