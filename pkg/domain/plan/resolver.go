package plan

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

// DurationFunc returns a directive's duration, or false if unknown.
type DurationFunc func(d directive.Directive) (time.Duration, bool)

// Resolver computes actual start times by walking anchor chains.
type Resolver struct {
	byID      map[directive.ID]directive.Directive
	durations DurationFunc
}

// NewResolver indexes directives for resolution. durations may be nil, in
// which case every duration counts as zero.
func NewResolver(directives []directive.Directive, durations DurationFunc) *Resolver {
	byID := make(map[directive.ID]directive.Directive, len(directives))
	for _, d := range directives {
		byID[d.ID] = d
	}
	return &Resolver{byID: byID, durations: durations}
}

// NewViewResolver indexes the current content of v.
func NewViewResolver(v View, durations DurationFunc) *Resolver {
	return NewResolver(Collect(v), durations)
}

// Duration returns d's duration; unknown durations count as zero.
func (r *Resolver) Duration(d directive.Directive) time.Duration {
	if r.durations == nil {
		return 0
	}
	dur, ok := r.durations(d)
	if !ok {
		return 0
	}
	return dur
}

// StartOf resolves the start time of d.
// A missing parent falls back to the cached estimated start.
func (r *Resolver) StartOf(d directive.Directive) (time.Time, error) {
	seen := make(map[directive.ID]bool)
	return r.startOf(d, seen)
}

// AnchorTimeOf returns the instant a child anchored to parent at point is
// measured from.
func (r *Resolver) AnchorTimeOf(parent directive.Directive, point directive.AnchorPoint) (time.Time, error) {
	start, err := r.StartOf(parent)
	if err != nil {
		return time.Time{}, err
	}
	if point == directive.AnchorEnd {
		return start.Add(r.Duration(parent)), nil
	}
	return start, nil
}

// Span returns the resolved start and end of d.
func (r *Resolver) Span(d directive.Directive) (Interval, error) {
	start, err := r.StartOf(d)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: start.Add(r.Duration(d))}, nil
}

func (r *Resolver) startOf(d directive.Directive, seen map[directive.ID]bool) (time.Time, error) {
	if d.Start.Kind != directive.StartAnchor {
		return d.Start.Time, nil
	}
	if seen[d.ID] {
		return time.Time{}, fmt.Errorf("%w at directive %s", ErrAnchorCycle, d.ID)
	}
	seen[d.ID] = true

	parent, ok := r.byID[d.Start.ParentID]
	if !ok {
		return d.Start.EstimatedStart, nil
	}
	base, err := r.startOf(parent, seen)
	if err != nil {
		return time.Time{}, err
	}
	if d.Start.Point == directive.AnchorEnd {
		base = base.Add(r.Duration(parent))
	}
	return base.Add(d.Start.Offset), nil
}
