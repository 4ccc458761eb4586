package simulation

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
)

// Span is the simulated extent of one directive.
type Span struct {
	ID    directive.ID `json:"id"`
	Type  string       `json:"type"`
	Start time.Time    `json:"start"`
	End   time.Time    `json:"end"`
}

// SpanSimulator is a reference Collaborator that lays each directive out on
// the timeline using the activity duration rules. It reports []Span as its
// driver results.
type SpanSimulator struct {
	durations plan.DurationFunc
	latest    *Data
	runs      int
}

// NewSpanSimulator creates a simulator. durations may be nil.
func NewSpanSimulator(durations plan.DurationFunc) *SpanSimulator {
	return &SpanSimulator{durations: durations}
}

func (s *SpanSimulator) SimulateWithResults(ctx context.Context, view plan.View, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	inputs := plan.Collect(view)
	resolver := plan.NewResolver(inputs, s.durations)

	spans := make([]Span, 0, len(inputs))
	for _, d := range inputs {
		extent, err := resolver.Span(d)
		if err != nil {
			return fmt.Errorf("lay out directive %s: %w", d.ID, err)
		}
		if extent.Start.After(until) {
			continue
		}
		end := extent.End
		if end.After(until) {
			end = until
		}
		spans = append(spans, Span{ID: d.ID, Type: d.Type, Start: extent.Start, End: end})
	}
	slices.SortFunc(spans, func(a, b Span) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	s.latest = &Data{DriverResults: spans, Inputs: inputs, Until: until}
	s.runs++
	return nil
}

func (s *SpanSimulator) LatestSimulationData(ctx context.Context) (*Data, error) {
	if s.latest == nil {
		return nil, nil
	}
	out := *s.latest
	out.Inputs = slices.Clone(s.latest.Inputs)
	out.DriverResults = slices.Clone(s.latest.DriverResults.([]Span))
	return &out, nil
}

// Runs returns how many simulations have completed.
func (s *SpanSimulator) Runs() int {
	return s.runs
}

// Spans extracts the span layout from results produced by a SpanSimulator.
func Spans(r *Results) ([]Span, bool) {
	spans, ok := r.DriverResults().([]Span)
	return spans, ok
}
