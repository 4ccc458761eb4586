// Package staleness tracks which simulation results are still valid for the
// plan's current content, without keeping those results alive.
package staleness

import (
	"weak"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

// Handle is a non-owning reference to a Results instance.
type Handle struct {
	id  uint64
	ptr weak.Pointer[simulation.Results]
}

// NewHandle returns a weak handle to r.
func NewHandle(r *simulation.Results) Handle {
	return Handle{id: r.ID(), ptr: weak.Make(r)}
}

// ID returns the results ID the handle was made for.
func (h Handle) ID() uint64 {
	return h.id
}

// Value returns the referenced results, or false once they are gone.
func (h Handle) Value() (*simulation.Results, bool) {
	r := h.ptr.Value()
	if r == nil || r.ID() != h.id {
		return nil, false
	}
	return r, true
}
