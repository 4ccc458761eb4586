package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

// CreateGoal creates each directive in order. If ids is not nil the new IDs
// are appended to it.
func CreateGoal(ids *[]directive.ID, nds ...directive.NewDirective) Goal {
	return func(ctx context.Context, p *planning.EditablePlan) error {
		for _, nd := range nds {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := p.Create(nd)
			if err != nil {
				return fmt.Errorf("create %s: %w", nd.Type, err)
			}
			if ids != nil {
				*ids = append(*ids, id)
			}
		}
		return nil
	}
}

// DeleteGoal deletes the directive with id using strategy.
func DeleteGoal(id directive.ID, strategy planning.DeletedAnchorStrategy) Goal {
	return func(ctx context.Context, p *planning.EditablePlan) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.DeleteByID(id, strategy)
	}
}

// SimulateGoal simulates the plan. If out is not nil it receives the results.
func SimulateGoal(opts simulation.Options, out **simulation.Results) Goal {
	return func(ctx context.Context, p *planning.EditablePlan) error {
		results, err := p.Simulate(ctx, opts)
		if err != nil {
			return err
		}
		if out != nil {
			*out = results
		}
		return nil
	}
}

// Chain runs goals one after another inside a single transaction.
func Chain(goals ...Goal) Goal {
	return func(ctx context.Context, p *planning.EditablePlan) error {
		for _, g := range goals {
			if err := g(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}
}
