package staleness

import (
	"iter"
	"slices"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

// Tracker keeps the validity set for the plan's current content.
//
// The current set may be shared with a commit (see Share). Invalidation
// therefore never empties a set in place: it releases the current set and
// allocates a fresh one, leaving any commit's reference intact.
type Tracker struct {
	table   *SetTable
	current SetID
}

// NewTracker creates a tracker with an empty current set.
func NewTracker() *Tracker {
	table := NewSetTable()
	return &Tracker{table: table, current: table.New()}
}

// Register recomputes the staleness of r against the current directives and
// tracks it when it is valid. It reports whether r is valid.
func (t *Tracker) Register(r *simulation.Results, current iter.Seq[directive.Directive]) bool {
	valid := r.MatchesPlan(slices.Collect(current))
	r.SetStale(!valid)
	if valid {
		t.table.Add(t.current, NewHandle(r))
	}
	return valid
}

// InvalidateAll marks every tracked result stale and starts a new empty set.
// It returns how many live results were marked.
func (t *Tracker) InvalidateAll() int {
	marked := t.markStale(t.current)
	t.table.Release(t.current)
	t.current = t.table.New()
	return marked
}

// MarkValid clears the stale flag of every live result in set id.
func (t *Tracker) MarkValid(id SetID) int {
	return t.table.Each(id, func(r *simulation.Results) { r.SetStale(false) })
}

// Share retains the current set on behalf of another holder and returns it.
func (t *Tracker) Share() SetID {
	t.table.Retain(t.current)
	return t.current
}

// Release drops a holder's reference obtained from Share.
func (t *Tracker) Release(id SetID) {
	t.table.Release(id)
}

// Restore makes set id current again: results tracked now are marked stale,
// results in id are marked valid, and the tracker shares id with its holder.
func (t *Tracker) Restore(id SetID) {
	t.markStale(t.current)
	t.MarkValid(id)
	t.table.Retain(id)
	t.table.Release(t.current)
	t.current = id
}

// Current returns the current set.
func (t *Tracker) Current() SetID {
	return t.current
}

// Tracked returns the number of live results in the current set.
func (t *Tracker) Tracked() int {
	return t.table.Len(t.current)
}

// Refs returns the number of holders of set id.
func (t *Tracker) Refs(id SetID) int {
	return t.table.Refs(id)
}

// LiveSets returns the number of sets still held.
func (t *Tracker) LiveSets() int {
	return t.table.Sets()
}

func (t *Tracker) markStale(id SetID) int {
	return t.table.Each(id, func(r *simulation.Results) { r.SetStale(true) })
}
