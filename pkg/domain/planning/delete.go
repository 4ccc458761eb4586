package planning

import (
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
)

// planDeletion computes which directives a delete removes and which it
// re-adds with a rewritten start. Nothing is mutated.
func (p *EditablePlan) planDeletion(snapshot []directive.Directive, target directive.Directive, strategy DeletedAnchorStrategy) ([]directive.Directive, []directive.Directive, error) {
	children := plan.Children(snapshot, target.ID)
	if len(children) == 0 {
		return []directive.Directive{target}, nil, nil
	}

	switch strategy {
	case StrategyError:
		ids := make([]directive.ID, 0, len(children))
		for _, c := range children {
			ids = append(ids, c.ID)
		}
		return nil, nil, &ConflictError{DirectiveID: target.ID, Children: ids}

	case StrategyCascade:
		return subtree(snapshot, target), nil, nil

	case StrategyAnchorToParent:
		resolver := plan.NewResolver(snapshot, p.durationOf)
		deletions := []directive.Directive{target}
		creations := make([]directive.Directive, 0, len(children))
		for _, c := range children {
			deletions = append(deletions, c)
			creations = append(creations, c.WithStart(reanchorToParent(target, c, resolver)))
		}
		return deletions, creations, nil

	case StrategyAnchorToPlan:
		resolver := plan.NewResolver(snapshot, p.durationOf)
		deletions := []directive.Directive{target}
		creations := make([]directive.Directive, 0, len(children))
		for _, c := range children {
			at, err := resolver.StartOf(c)
			if err != nil {
				at = c.Start.Estimate()
			}
			deletions = append(deletions, c)
			creations = append(creations, c.WithStart(directive.Absolute(at)))
		}
		return deletions, creations, nil

	default:
		return nil, nil, ErrUnknownStrategy
	}
}

// reanchorToParent composes the child's offset onto the target's own start,
// so the child keeps its position once the target is gone.
func reanchorToParent(target, child directive.Directive, resolver *plan.Resolver) directive.Start {
	offset := child.Start.Offset
	if child.Start.Point == directive.AnchorEnd {
		offset += resolver.Duration(target)
	}

	switch target.Start.Kind {
	case directive.StartAnchor:
		return directive.Anchor(
			target.Start.ParentID,
			target.Start.Offset+offset,
			target.Start.Point,
			target.Start.EstimatedStart.Add(offset),
		)
	default:
		return directive.Absolute(target.Start.Time.Add(offset))
	}
}

// subtree lists root and all its transitive children, children first.
func subtree(all []directive.Directive, root directive.Directive) []directive.Directive {
	var out []directive.Directive
	visited := make(map[directive.ID]bool)

	var walk func(d directive.Directive)
	walk = func(d directive.Directive) {
		if visited[d.ID] {
			return
		}
		visited[d.ID] = true
		for _, c := range plan.Children(all, d.ID) {
			walk(c)
		}
		out = append(out, d)
	}
	walk(root)
	return out
}
