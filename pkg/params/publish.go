package params

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsssm"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// Materialize declares one SSM parameter construct and one CloudFormation
// output per record inside the given stack. The records come from
// Publisher.Publish, so paths are already validated and collision-free.
func Materialize(scope constructs.Construct, stack string, parameters []Parameter) {
	for _, parameter := range parameters {
		key := parameter.Path[strings.LastIndex(parameter.Path, "/")+1:]
		id := "Parameter" + constructID(key)
		description := jsii.String(key + " for " + stack)

		switch parameter.Type {
		case TypeStringList:
			values := make([]*string, 0, len(parameter.Values))
			for _, v := range parameter.Values {
				values = append(values, jsii.String(v))
			}
			awsssm.NewStringListParameter(scope, jsii.String(id), &awsssm.StringListParameterProps{
				ParameterName:   jsii.String(parameter.Path),
				StringListValue: &values,
				Description:     description,
			})
			awscdk.NewCfnOutput(scope, jsii.String(constructID(key)+"Output"), &awscdk.CfnOutputProps{
				Value:       jsii.String(strings.Join(parameter.Values, ",")),
				Description: description,
			})
		default:
			awsssm.NewStringParameter(scope, jsii.String(id), &awsssm.StringParameterProps{
				ParameterName: jsii.String(parameter.Path),
				StringValue:   jsii.String(parameter.Value),
				Description:   description,
				Tier:          awsssm.ParameterTier_STANDARD,
			})
			awscdk.NewCfnOutput(scope, jsii.String(constructID(key)+"Output"), &awscdk.CfnOutputProps{
				Value:       jsii.String(parameter.Value),
				Description: description,
			})
		}
	}
}

// constructID turns a hyphenated resource key into the CamelCase construct
// identifier CDK expects, e.g. cluster-endpoint -> ClusterEndpoint.
func constructID(resourceKey string) string {
	var b strings.Builder
	for _, word := range strings.Split(resourceKey, "-") {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}
