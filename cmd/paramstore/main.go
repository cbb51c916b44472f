// Command paramstore looks up resource identifiers published to the shared
// SSM parameter namespace by the infrastructure stacks. It is read-only:
// publishing happens only at deploy time through the CDK app.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/urfave/cli/v2"

	"github.com/fernbrook/aws-cdk-infra/pkg/config"
	"github.com/fernbrook/aws-cdk-infra/pkg/params"
)

func main() {
	app := &cli.App{
		Name:  "paramstore",
		Usage: "look up infrastructure identifiers published to SSM Parameter Store",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "print the value published under /<root>/<env>/<stack>/<key>",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "env",
						Usage:    fmt.Sprintf("target environment (%s)", strings.Join(config.EnvironmentNames(), ", ")),
						Required: true,
					},
					&cli.StringFlag{
						Name:     "stack",
						Usage:    "stack segment, e.g. vpc, rds, sqs, opensearch, secrets, iam",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "key",
						Usage:    "resource key, e.g. cluster-endpoint",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "root",
						Usage: "parameter namespace root",
						Value: config.ParameterRoot,
					},
					&cli.StringFlag{
						Name:  "region",
						Usage: "AWS region (defaults to the environment's region)",
					},
					&cli.BoolFlag{
						Name:  "list",
						Usage: "treat the value as a StringList and print one element per line",
					},
				},
				Action: runGet,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runGet(c *cli.Context) error {
	ctx := c.Context

	envName := c.String("env")
	cfg, err := config.Resolve(envName)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	region := c.String("region")
	if region == "" {
		region = cfg.Region
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	reader := params.NewReader(ssm.NewFromConfig(awsCfg), c.String("root"), envName)

	if c.Bool("list") {
		values, err := reader.GetStringList(ctx, c.String("stack"), c.String("key"))
		if err != nil {
			return exitOnLookupError(err)
		}
		for _, value := range values {
			fmt.Println(value)
		}
		return nil
	}

	value, err := reader.Get(ctx, c.String("stack"), c.String("key"))
	if err != nil {
		return exitOnLookupError(err)
	}
	fmt.Println(value)
	return nil
}

func exitOnLookupError(err error) error {
	var notFound *params.NotFoundError
	if errors.As(err, &notFound) {
		return cli.Exit(fmt.Sprintf("%v (wrong environment, or the owning stack is not deployed yet)", err), 2)
	}
	return err
}
