package planning

import (
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
)

// Document is the persisted form of a plan. Version is bumped by every save
// and used for optimistic locking.
type Document struct {
	Version    int                   `json:"version" yaml:"version"`
	Horizon    plan.Horizon          `json:"horizon" yaml:"horizon"`
	Directives []directive.Directive `json:"directives" yaml:"directives"`
}

// PlanRepository handles persistence of plans.
type PlanRepository interface {
	SavePlan(doc *Document) error
	LoadPlan() (*Document, error)
}

// Snapshot captures the current content of the plan as a document.
func (p *EditablePlan) Snapshot() *Document {
	return &Document{
		Horizon:    p.view.TotalBounds(),
		Directives: plan.Collect(p.view),
	}
}
