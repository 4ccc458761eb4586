// Package activity describes activity types: how their arguments are
// validated and how their durations are computed.
package activity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

var (
	// ErrUnknownType indicates no activity type is registered under a tag.
	ErrUnknownType = errors.New("unknown activity type")
	// ErrInvalidArguments indicates arguments do not satisfy the type's schema.
	ErrInvalidArguments = errors.New("invalid activity arguments")
)

// ValidationError lists the schema problems found for a set of arguments.
type ValidationError struct {
	Type     string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for activity type %q: %s", e.Type, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArguments
}

// Lookup resolves an activity type tag.
type Lookup func(typeTag string) (*Type, error)

// Type is an activity type: a name, an argument schema and a duration rule.
type Type struct {
	Name string
	// Schema is a JSON schema document for the argument map. A nil schema
	// accepts any arguments.
	Schema   map[string]any
	Duration DurationRule

	once     sync.Once
	compiled *gojsonschema.Schema
	compErr  error
}

// ValidateArguments checks args against the type's schema.
func (t *Type) ValidateArguments(args map[string]any) error {
	if t.Schema == nil {
		return nil
	}
	t.once.Do(func() {
		t.compiled, t.compErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Schema))
	})
	if t.compErr != nil {
		return fmt.Errorf("compile schema for %q: %w", t.Name, t.compErr)
	}

	if args == nil {
		args = map[string]any{}
	}
	result, err := t.compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return &ValidationError{Type: t.Name, Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &ValidationError{Type: t.Name, Problems: problems}
}

// DurationOf computes the duration of an activity of this type with args.
// The second result is false when the duration is not known ahead of simulation.
func (t *Type) DurationOf(args map[string]any) (time.Duration, bool) {
	return t.Duration.Compute(args)
}

// Registry holds activity types keyed by name.
type Registry struct {
	types map[string]*Type
}

// NewRegistry creates a registry holding types.
func NewRegistry(types ...*Type) *Registry {
	r := &Registry{types: make(map[string]*Type, len(types))}
	for _, t := range types {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a type.
func (r *Registry) Register(t *Type) {
	r.types[t.Name] = t
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return t, nil
}

// Names returns the registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Types returns the registered types sorted by name.
func (r *Registry) Types() []*Type {
	out := make([]*Type, 0, len(r.types))
	for _, name := range r.Names() {
		out = append(out, r.types[name])
	}
	return out
}

// DurationOf computes the duration of d from its registered type. Unknown
// types have unknown duration.
func (r *Registry) DurationOf(d directive.Directive) (time.Duration, bool) {
	t, ok := r.types[d.Type]
	if !ok {
		return 0, false
	}
	return t.DurationOf(d.Arguments)
}
