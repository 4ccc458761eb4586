// Package plan defines the queryable, ordered collection of directives that
// a plan editor reads and mutates.
package plan

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

var (
	// ErrNotFound indicates the directive is not in the plan.
	ErrNotFound = errors.New("directive not found in plan")
	// ErrDuplicateID indicates a directive with the same ID is already in the plan.
	ErrDuplicateID = errors.New("directive ID already in plan")
	// ErrAnchorCycle indicates an anchor chain loops back on itself.
	ErrAnchorCycle = errors.New("anchor cycle detected")
)

// View is the plan as seen by the editor. Implementations are backed by
// whatever storage holds the authoritative plan.
type View interface {
	// Directives returns a restartable sequence over the directives present
	// when iteration starts. Order is presentation only.
	Directives() iter.Seq[directive.Directive]
	Add(d directive.Directive) error
	Remove(d directive.Directive) error
	TotalBounds() Interval
	ToRelative(abs time.Time) time.Duration
	ToAbsolute(rel time.Duration) time.Time
}

// Interval is a closed time range.
type Interval struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Contains reports whether t lies within the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Horizon is the planning window of a plan.
type Horizon = Interval

// NewHorizon validates and returns a planning horizon.
func NewHorizon(start, end time.Time) (Horizon, error) {
	if end.Before(start) {
		return Horizon{}, fmt.Errorf("horizon end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Horizon{Start: start, End: end}, nil
}

// Collect materialises the view's directives.
func Collect(v View) []directive.Directive {
	var out []directive.Directive
	for d := range v.Directives() {
		out = append(out, d)
	}
	return out
}

// FindByID returns every directive carrying id.
func FindByID(v View, id directive.ID) []directive.Directive {
	var out []directive.Directive
	for d := range v.Directives() {
		if d.ID == id {
			out = append(out, d)
		}
	}
	return out
}

// Contains reports whether a directive equal to d is in the view.
func Contains(v View, d directive.Directive) bool {
	for existing := range v.Directives() {
		if existing.Equal(d) {
			return true
		}
	}
	return false
}

// Children returns the directives anchored directly to parent.
func Children(directives []directive.Directive, parent directive.ID) []directive.Directive {
	var out []directive.Directive
	for _, d := range directives {
		if d.AnchoredTo(parent) {
			out = append(out, d)
		}
	}
	return out
}

// MaxID returns the largest directive ID in the view, or zero.
func MaxID(v View) directive.ID {
	var highest directive.ID
	for d := range v.Directives() {
		if d.ID > highest {
			highest = d.ID
		}
	}
	return highest
}
