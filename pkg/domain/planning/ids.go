package planning

import (
	"sync/atomic"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
)

// IDGenerator issues directive IDs. Implementations must never return an ID
// they returned before or one present in the initial plan.
type IDGenerator interface {
	Next() directive.ID
}

// SequentialIDGenerator counts upward from a floor.
type SequentialIDGenerator struct {
	last atomic.Int64
}

// NewSequentialIDGenerator returns a generator whose first ID is after+1.
func NewSequentialIDGenerator(after directive.ID) *SequentialIDGenerator {
	g := &SequentialIDGenerator{}
	g.last.Store(int64(after))
	return g
}

func (g *SequentialIDGenerator) Next() directive.ID {
	return directive.ID(g.last.Add(1))
}
