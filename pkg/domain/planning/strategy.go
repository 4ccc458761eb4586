package planning

import (
	"fmt"
	"strings"
)

// DeletedAnchorStrategy decides what happens to directives anchored to a
// directive that is being deleted.
type DeletedAnchorStrategy string

const (
	// StrategyError refuses to delete a directive that has anchored children.
	StrategyError DeletedAnchorStrategy = "error"
	// StrategyCascade deletes the directive and everything anchored below it.
	StrategyCascade DeletedAnchorStrategy = "cascade"
	// StrategyAnchorToParent re-anchors children to the deleted directive's own parent.
	StrategyAnchorToParent DeletedAnchorStrategy = "anchor_to_parent"
	// StrategyAnchorToPlan gives children absolute starts.
	StrategyAnchorToPlan DeletedAnchorStrategy = "anchor_to_plan"
)

// AllDeletedAnchorStrategies returns every valid strategy.
func AllDeletedAnchorStrategies() []DeletedAnchorStrategy {
	return []DeletedAnchorStrategy{
		StrategyError,
		StrategyCascade,
		StrategyAnchorToParent,
		StrategyAnchorToPlan,
	}
}

// IsValid checks if the strategy is known.
func (s DeletedAnchorStrategy) IsValid() bool {
	switch s {
	case StrategyError, StrategyCascade, StrategyAnchorToParent, StrategyAnchorToPlan:
		return true
	default:
		return false
	}
}

func (s DeletedAnchorStrategy) String() string {
	return string(s)
}

// ParseDeletedAnchorStrategy parses a strategy name. Matching ignores case,
// hyphens and underscores; "reanchor" is accepted for anchor_to_parent.
func ParseDeletedAnchorStrategy(s string) (DeletedAnchorStrategy, error) {
	norm := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch norm {
	case "error":
		return StrategyError, nil
	case "cascade":
		return StrategyCascade, nil
	case "anchortoparent", "reanchor":
		return StrategyAnchorToParent, nil
	case "anchortoplan":
		return StrategyAnchorToPlan, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}
