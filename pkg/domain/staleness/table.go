package staleness

import (
	"slices"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

// SetID names a validity set in a SetTable.
type SetID uint64

type validitySet struct {
	handles []Handle
	refs    int
}

// SetTable is an arena of reference-counted validity sets. A set lives as
// long as at least one holder has retained it.
type SetTable struct {
	sets map[SetID]*validitySet
	next SetID
}

// NewSetTable creates an empty arena.
func NewSetTable() *SetTable {
	return &SetTable{sets: make(map[SetID]*validitySet)}
}

// New allocates an empty set held once by the caller.
func (t *SetTable) New() SetID {
	t.next++
	t.sets[t.next] = &validitySet{refs: 1}
	return t.next
}

// Retain adds a holder to id.
func (t *SetTable) Retain(id SetID) {
	if s, ok := t.sets[id]; ok {
		s.refs++
	}
}

// Release drops a holder from id, freeing the set when none remain.
func (t *SetTable) Release(id SetID) {
	s, ok := t.sets[id]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(t.sets, id)
	}
}

// Refs returns the number of holders of id.
func (t *SetTable) Refs(id SetID) int {
	if s, ok := t.sets[id]; ok {
		return s.refs
	}
	return 0
}

// Add puts h into set id unless results with the same ID are already there.
func (t *SetTable) Add(id SetID, h Handle) bool {
	s, ok := t.sets[id]
	if !ok {
		return false
	}
	if slices.ContainsFunc(s.handles, func(existing Handle) bool { return existing.ID() == h.ID() }) {
		return false
	}
	s.handles = append(s.handles, h)
	return true
}

// Each calls fn for every live results instance in set id and prunes
// handles whose results are gone. It returns the number visited.
func (t *SetTable) Each(id SetID, fn func(r *simulation.Results)) int {
	s, ok := t.sets[id]
	if !ok {
		return 0
	}
	visited := 0
	s.handles = slices.DeleteFunc(s.handles, func(h Handle) bool {
		r, live := h.Value()
		if !live {
			return true
		}
		fn(r)
		visited++
		return false
	})
	return visited
}

// Len returns the number of live handles in set id.
func (t *SetTable) Len(id SetID) int {
	return t.Each(id, func(*simulation.Results) {})
}

// Sets returns the number of sets still held by someone.
func (t *SetTable) Sets() int {
	return len(t.sets)
}
