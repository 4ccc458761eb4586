package plan

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

// InMemoryView is a View held entirely in memory. It is not safe for
// concurrent mutation.
type InMemoryView struct {
	horizon    Horizon
	directives []directive.Directive
}

// NewInMemoryView creates a view over the horizon seeded with directives.
func NewInMemoryView(horizon Horizon, directives ...directive.Directive) (*InMemoryView, error) {
	v := &InMemoryView{horizon: horizon}
	for _, d := range directives {
		if err := v.Add(d); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (v *InMemoryView) Directives() iter.Seq[directive.Directive] {
	return func(yield func(directive.Directive) bool) {
		snapshot := slices.Clone(v.directives)
		for _, d := range snapshot {
			if !yield(d) {
				return
			}
		}
	}
}

func (v *InMemoryView) Add(d directive.Directive) error {
	if err := d.Start.Validate(); err != nil {
		return fmt.Errorf("directive %s: %w", d.ID, err)
	}
	for _, existing := range v.directives {
		if existing.ID == d.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
	}
	v.directives = append(v.directives, d)
	return nil
}

func (v *InMemoryView) Remove(d directive.Directive) error {
	for i, existing := range v.directives {
		if existing.ID == d.ID && existing.Equal(d) {
			v.directives = slices.Delete(v.directives, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, d.ID)
}

// Len returns the number of directives in the view.
func (v *InMemoryView) Len() int {
	return len(v.directives)
}

func (v *InMemoryView) TotalBounds() Interval {
	return v.horizon
}

func (v *InMemoryView) ToRelative(abs time.Time) time.Duration {
	return abs.Sub(v.horizon.Start)
}

func (v *InMemoryView) ToAbsolute(rel time.Duration) time.Time {
	return v.horizon.Start.Add(rel)
}
