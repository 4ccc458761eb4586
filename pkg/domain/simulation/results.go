// Package simulation is the boundary between the plan editor and the
// simulation engine that computes activity effects over time.
package simulation

import (
	"reflect"
	"slices"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

var resultsSeq atomic.Uint64

// Data is what a simulation collaborator reports for its latest run.
type Data struct {
	// DriverResults is opaque to the editor.
	DriverResults any
	// Inputs are the directives the run was computed from.
	Inputs []directive.Directive
	// Until is the instant the run was simulated to.
	Until time.Time
}

// Results wraps the data of one simulation run with a stale flag that the
// plan editor flips as the plan changes. The flag may be read from any goroutine.
type Results struct {
	id     uint64
	driver any
	inputs []directive.Directive
	until  time.Time
	stale  atomic.Bool
}

// NewResults wraps data. Every call yields a distinct instance with its own ID.
func NewResults(data *Data) *Results {
	return &Results{
		id:     resultsSeq.Add(1),
		driver: data.DriverResults,
		inputs: slices.Clone(data.Inputs),
		until:  data.Until,
	}
}

// ID is unique per Results instance for the life of the process.
func (r *Results) ID() uint64 {
	return r.id
}

// IsStale reports whether the plan has changed since these results were computed.
func (r *Results) IsStale() bool {
	return r.stale.Load()
}

// SetStale sets the stale flag.
func (r *Results) SetStale(stale bool) {
	r.stale.Store(stale)
}

// InputDirectives returns the directives the run was computed from.
func (r *Results) InputDirectives() []directive.Directive {
	return slices.Clone(r.inputs)
}

// DriverResults returns the engine-specific payload.
func (r *Results) DriverResults() any {
	return r.driver
}

// SimulatedUntil returns the instant the run stopped at.
func (r *Results) SimulatedUntil() time.Time {
	return r.until
}

// MatchesPlan reports whether the inputs are the same set as current.
func (r *Results) MatchesPlan(current []directive.Directive) bool {
	return directive.SameSet(r.inputs, current)
}

// Equal compares content, not identity or staleness.
func (r *Results) Equal(other *Results) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.until.Equal(other.until) &&
		directive.SameSet(r.inputs, other.inputs) &&
		reflect.DeepEqual(r.driver, other.driver)
}
