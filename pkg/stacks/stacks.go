// Package stacks declares the six infrastructure stacks. Each constructor is
// deterministic over its config and upstream outputs: it validates required
// dependencies before declaring anything, declares its resources, then
// publishes its output set to the shared parameter namespace. Nothing here
// touches live infrastructure; reconciliation is the deployment engine's job.
package stacks

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

// Stack keys used as the {stack} segment of published parameter paths.
const (
	StackVpc        = "vpc"
	StackSecrets    = "secrets"
	StackRds        = "rds"
	StackSqs        = "sqs"
	StackOpenSearch = "opensearch"
	StackIam        = "iam"
)

// MissingDependencyError reports a stack invoked without a required upstream
// output. The failing stack declares nothing: a partial declaration is worse
// than an early hard failure.
type MissingDependencyError struct {
	Stack      string
	Dependency string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("stack %q is missing required dependency %q", e.Stack, e.Dependency)
}

// applyTags adds the common environment tags to a construct tree.
func applyTags(scope awscdk.Stack, cfg config.EnvironmentConfig) {
	for key, value := range cfg.Tags() {
		awscdk.Tags_Of(scope).Add(jsii.String(key), jsii.String(value), nil)
	}
}

// outputCollector accumulates outputs and holds the first error, so stack
// code can list its outputs without an error check per line.
type outputCollector struct {
	outputs *params.OutputSet
	err     error
}

func newOutputCollector() *outputCollector {
	return &outputCollector{outputs: params.NewOutputSet()}
}

func (c *outputCollector) set(resourceKey, value string) {
	if c.err != nil {
		return
	}
	c.err = c.outputs.Set(resourceKey, value)
}

func (c *outputCollector) setList(resourceKey string, values []string) {
	if c.err != nil {
		return
	}
	c.err = c.outputs.SetList(resourceKey, values)
}

// publish flushes the collected outputs through the shared publisher and
// materializes them as SSM parameter constructs inside the stack.
func (c *outputCollector) publish(stack awscdk.Stack, publisher *params.Publisher, stackKey string) error {
	if c.err != nil {
		return c.err
	}
	parameters, err := publisher.Publish(stackKey, c.outputs)
	if err != nil {
		return err
	}
	params.Materialize(stack, stackKey, parameters)
	return nil
}

// derefList flattens a slice of CDK string tokens for list outputs.
func derefList(values *[]*string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(*values))
	for _, v := range *values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}
