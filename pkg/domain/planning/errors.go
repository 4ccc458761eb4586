package planning

import (
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

// Plan editing errors.
var (
	// ErrResolution indicates an anchor parent could not be resolved to exactly one directive.
	ErrResolution = errors.New("anchor parent resolution failed")
	// ErrConflict indicates a delete would orphan anchored directives.
	ErrConflict = errors.New("directive has anchored children")
	// ErrNotFound indicates the directive to delete is not in the plan.
	ErrNotFound = errors.New("directive not found")
	// ErrAmbiguous indicates an ID matched more than one directive.
	ErrAmbiguous = errors.New("directive ID is ambiguous")
	// ErrNoResults indicates a simulation left no results to retrieve.
	ErrNoResults = errors.New("simulation produced no results")
	// ErrUnknownStrategy indicates an unrecognised deleted-anchor strategy.
	ErrUnknownStrategy = errors.New("unknown deleted anchor strategy")
)

// ResolutionError reports how many directives matched an anchor's parent ID.
type ResolutionError struct {
	ParentID directive.ID
	Matches  int
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("expected one parent directive with id %s, found %d", e.ParentID, e.Matches)
}

// Is allows errors.Is to work with ResolutionError.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// ConflictError lists the children anchored to a directive that cannot be deleted.
type ConflictError struct {
	DirectiveID directive.ID
	Children    []directive.ID
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Children))
	for i, id := range e.Children {
		ids[i] = id.String()
	}
	return fmt.Sprintf("cannot delete directive %s: anchored by %s; choose a deleted anchor strategy",
		e.DirectiveID, strings.Join(ids, ", "))
}

// Is allows errors.Is to work with ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
