package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

// TracedCollaborator wraps a simulation collaborator with spans.
type TracedCollaborator struct {
	inner  simulation.Collaborator
	tracer trace.Tracer
}

func NewTracedCollaborator(inner simulation.Collaborator, tracer trace.Tracer) *TracedCollaborator {
	return &TracedCollaborator{inner: inner, tracer: tracer}
}

func (c *TracedCollaborator) SimulateWithResults(ctx context.Context, view plan.View, until time.Time) error {
	ctx, span := c.tracer.Start(ctx, "simulation.Simulate",
		trace.WithAttributes(attribute.String("until", until.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	if err := c.inner.SimulateWithResults(ctx, view, until); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (c *TracedCollaborator) LatestSimulationData(ctx context.Context) (*simulation.Data, error) {
	return c.inner.LatestSimulationData(ctx)
}
