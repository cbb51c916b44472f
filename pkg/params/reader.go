package params

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// NotFoundError reports a lookup against a path that was never published.
// Retrying is the caller's decision, not the reader's.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("parameter %s not found", e.Path)
}

// GetParameterAPI is the slice of the SSM client the reader needs.
type GetParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Reader looks up published parameters for one root/environment namespace.
// It is strictly read-only: the publishing side lives in the CDK stacks.
type Reader struct {
	client      GetParameterAPI
	root        string
	environment string
}

// NewReader returns a reader over the given namespace.
func NewReader(client GetParameterAPI, root, environment string) *Reader {
	return &Reader{client: client, root: root, environment: environment}
}

// Get retrieves the value published under /{root}/{env}/{stack}/{resourceKey}.
func (r *Reader) Get(ctx context.Context, stack, resourceKey string) (string, error) {
	path, err := ParameterPath(r.root, r.environment, stack, resourceKey)
	if err != nil {
		return "", err
	}
	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", &NotFoundError{Path: path}
		}
		return "", fmt.Errorf("getting parameter %s: %w", path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", &NotFoundError{Path: path}
	}
	return *out.Parameter.Value, nil
}

// GetStringList retrieves a StringList parameter as its ordered elements.
// SSM stores StringList values as a single comma-joined string, so element
// values must not themselves contain commas. An empty value reads back as an
// empty, non-nil list.
func (r *Reader) GetStringList(ctx context.Context, stack, resourceKey string) ([]string, error) {
	value, err := r.Get(ctx, stack, resourceKey)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return []string{}, nil
	}
	return strings.Split(value, ","), nil
}
