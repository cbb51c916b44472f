package params

import (
	"fmt"

	"github.com/iancoleman/orderedmap"
)

// Type distinguishes the two SSM parameter value shapes.
type Type string

const (
	TypeString     Type = "String"
	TypeStringList Type = "StringList"
)

// Parameter is one record destined for the parameter store.
type Parameter struct {
	Path   string
	Type   Type
	Value  string   // set when Type == TypeString
	Values []string // set when Type == TypeStringList
}

// OutputSet is the ordered set of resource identifiers a stack exposes.
// Insertion order is preserved so repeated synthesis emits parameters (and
// therefore template diffs) in a stable order.
type OutputSet struct {
	entries *orderedmap.OrderedMap
}

// NewOutputSet returns an empty output set.
func NewOutputSet() *OutputSet {
	return &OutputSet{entries: orderedmap.New()}
}

// Set records a scalar output. Each resource key may be set once; a second
// Set on the same key is the in-stack form of a path collision.
func (s *OutputSet) Set(resourceKey, value string) error {
	return s.add(resourceKey, value)
}

// SetList records an ordered string-list output under the same key rules.
func (s *OutputSet) SetList(resourceKey string, values []string) error {
	copied := make([]string, len(values))
	copy(copied, values)
	return s.add(resourceKey, copied)
}

func (s *OutputSet) add(resourceKey string, value interface{}) error {
	if !segmentPattern.MatchString(resourceKey) {
		return &InvalidSegmentError{Segment: resourceKey}
	}
	if _, exists := s.entries.Get(resourceKey); exists {
		return fmt.Errorf("output %q already set", resourceKey)
	}
	s.entries.Set(resourceKey, value)
	return nil
}

// Keys returns the resource keys in insertion order.
func (s *OutputSet) Keys() []string {
	return s.entries.Keys()
}

// Len returns the number of outputs.
func (s *OutputSet) Len() int {
	return len(s.entries.Keys())
}

// PathCollisionError reports two outputs resolving to the same parameter
// path. Collisions are always a naming bug and are never resolved by
// overwriting.
type PathCollisionError struct {
	Path          string
	Stack         string
	PreviousStack string
}

func (e *PathCollisionError) Error() string {
	if e.PreviousStack != "" && e.PreviousStack != e.Stack {
		return fmt.Sprintf("parameter path %s published by both %q and %q stacks", e.Path, e.PreviousStack, e.Stack)
	}
	return fmt.Sprintf("parameter path %s published twice by %q stack", e.Path, e.Stack)
}

// Publisher turns stack outputs into parameter records under a fixed root and
// environment. One publisher is shared by all stacks of a deployment pass so
// cross-stack path collisions are caught at build time.
type Publisher struct {
	root        string
	environment string
	published   map[string]string // path -> owning stack
}

// NewPublisher returns a publisher for the given namespace root and
// environment.
func NewPublisher(root, environment string) *Publisher {
	return &Publisher{
		root:        root,
		environment: environment,
		published:   map[string]string{},
	}
}

// Root returns the namespace root.
func (p *Publisher) Root() string { return p.root }

// Environment returns the environment segment.
func (p *Publisher) Environment() string { return p.environment }

// Publish maps every output to a Parameter record in insertion order. Scalar
// outputs become String parameters, list outputs StringList parameters. The
// same inputs always produce the same path set; any path already published in
// this pass fails with PathCollisionError before any record is returned.
func (p *Publisher) Publish(stack string, outputs *OutputSet) ([]Parameter, error) {
	parameters := make([]Parameter, 0, outputs.Len())
	for _, key := range outputs.Keys() {
		path, err := ParameterPath(p.root, p.environment, stack, key)
		if err != nil {
			return nil, err
		}
		if owner, seen := p.published[path]; seen {
			return nil, &PathCollisionError{Path: path, Stack: stack, PreviousStack: owner}
		}
		value, _ := outputs.entries.Get(key)
		switch v := value.(type) {
		case string:
			parameters = append(parameters, Parameter{Path: path, Type: TypeString, Value: v})
		case []string:
			parameters = append(parameters, Parameter{Path: path, Type: TypeStringList, Values: v})
		default:
			return nil, fmt.Errorf("output %q has unsupported value type %T", key, value)
		}
	}
	for _, parameter := range parameters {
		p.published[parameter.Path] = stack
	}
	return parameters, nil
}
