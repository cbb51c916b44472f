// Package params implements the shared parameter namespace used for
// cross-stack discovery. Every stack publishes selected resource identifiers
// to SSM Parameter Store under /{root}/{environment}/{stack}/{resource-key};
// consumers reconstruct the same path to look them up. The path shape is a
// hard external contract: other systems hard-code it.
package params

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentPattern is the allowed shape of every path segment. Restricting
// segments to lowercase-hyphenated words (no slashes) keeps the mapping from
// (environment, stack, resource-key) to path injective.
var segmentPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// InvalidSegmentError reports a path segment outside the allowed charset.
type InvalidSegmentError struct {
	Segment string
}

func (e *InvalidSegmentError) Error() string {
	return fmt.Sprintf("invalid parameter path segment %q: must be lowercase words separated by hyphens", e.Segment)
}

// ParameterPath builds the canonical parameter path
// /{root}/{environment}/{stack}/{resource-key}.
func ParameterPath(root, environment, stack, resourceKey string) (string, error) {
	for _, segment := range []string{root, environment, stack, resourceKey} {
		if !segmentPattern.MatchString(segment) {
			return "", &InvalidSegmentError{Segment: segment}
		}
	}
	return "/" + strings.Join([]string{root, environment, stack, resourceKey}, "/"), nil
}
