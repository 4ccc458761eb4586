package simulation

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
)

// TimeoutCollaborator bounds every simulation run of an inner collaborator.
type TimeoutCollaborator struct {
	inner Collaborator
	limit time.Duration
}

// NewTimeoutCollaborator wraps inner. A non-positive limit disables the bound.
func NewTimeoutCollaborator(inner Collaborator, limit time.Duration) *TimeoutCollaborator {
	return &TimeoutCollaborator{inner: inner, limit: limit}
}

func (c *TimeoutCollaborator) SimulateWithResults(ctx context.Context, view plan.View, until time.Time) error {
	if c.limit <= 0 {
		return c.inner.SimulateWithResults(ctx, view, until)
	}

	t := timeout.New[struct{}](timeout.Config{
		DefaultTimeout: c.limit,
	})
	_, err := t.Execute(ctx, c.limit, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.inner.SimulateWithResults(ctx, view, until)
	})
	return err
}

func (c *TimeoutCollaborator) LatestSimulationData(ctx context.Context) (*Data, error) {
	return c.inner.LatestSimulationData(ctx)
}
