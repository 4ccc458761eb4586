package simulation

import (
	"context"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
)

// Collaborator runs simulations. Results of the latest run are retrieved
// separately from the run itself.
type Collaborator interface {
	// SimulateWithResults simulates the view's current content up to until.
	SimulateWithResults(ctx context.Context, view plan.View, until time.Time) error
	// LatestSimulationData returns the latest run, or nil if none has run yet.
	// Repeated calls without a new run return equivalent data.
	LatestSimulationData(ctx context.Context) (*Data, error)
}

// PauseKind selects how a simulation's stopping point is chosen.
type PauseKind string

const (
	PauseKindEnd     PauseKind = "end"
	PauseKindInstant PauseKind = "instant"
	PauseKindAfter   PauseKind = "after"
)

// Pause is the condition a simulation stops at.
type Pause struct {
	Kind  PauseKind
	At    time.Time
	After time.Duration
}

// PauseAtEnd stops at the end of the plan horizon.
func PauseAtEnd() Pause { return Pause{Kind: PauseKindEnd} }

// PauseAt stops at an absolute instant.
func PauseAt(t time.Time) Pause { return Pause{Kind: PauseKindInstant, At: t} }

// PauseAfter stops a duration after the plan start.
func PauseAfter(d time.Duration) Pause { return Pause{Kind: PauseKindAfter, After: d} }

// Resolve converts the pause condition to an instant on v's time axis.
func (p Pause) Resolve(v plan.View) time.Time {
	switch p.Kind {
	case PauseKindInstant:
		return p.At
	case PauseKindAfter:
		return v.ToAbsolute(p.After)
	default:
		return v.TotalBounds().End
	}
}

// Options configure a simulate call.
type Options struct {
	Pause Pause
}

// DefaultOptions simulate the whole horizon.
func DefaultOptions() Options {
	return Options{Pause: PauseAtEnd()}
}
