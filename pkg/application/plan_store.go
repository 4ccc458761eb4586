package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

// PlanStore opens the plan a scheduling session edits and persists it when
// the session ends with a net change.
type PlanStore interface {
	Open(ctx context.Context) (plan.View, error)
	Save(ctx context.Context, view plan.View) error
}

// DocumentStore edits an in-memory copy of a document held by a
// planning.PlanRepository and writes it back on Save.
type DocumentStore struct {
	repo    planning.PlanRepository
	version int
}

func NewDocumentStore(repo planning.PlanRepository) *DocumentStore {
	return &DocumentStore{repo: repo}
}

func (s *DocumentStore) Open(ctx context.Context) (plan.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.repo.LoadPlan()
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	view, err := plan.NewInMemoryView(doc.Horizon, doc.Directives...)
	if err != nil {
		return nil, fmt.Errorf("build plan view: %w", err)
	}
	s.version = doc.Version
	return view, nil
}

func (s *DocumentStore) Save(ctx context.Context, view plan.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := &planning.Document{
		Version:    s.version,
		Horizon:    view.TotalBounds(),
		Directives: plan.Collect(view),
	}
	if err := s.repo.SavePlan(doc); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	s.version = doc.Version
	return nil
}

// WriteThroughStore serves a view that persists each change itself, such as
// storage.SQLiteView. Save is a no-op.
type WriteThroughStore struct {
	view plan.View
}

func NewWriteThroughStore(view plan.View) *WriteThroughStore {
	return &WriteThroughStore{view: view}
}

func (s *WriteThroughStore) Open(ctx context.Context) (plan.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.view, nil
}

func (s *WriteThroughStore) Save(ctx context.Context, view plan.View) error {
	return ctx.Err()
}

// WritesThrough reports that every edit is stored as soon as it is applied.
func (s *WriteThroughStore) WritesThrough() bool {
	return true
}

// writesThrough reports whether store persists edits without Save.
func writesThrough(store PlanStore) bool {
	wt, ok := store.(interface{ WritesThrough() bool })
	return ok && wt.WritesThrough()
}
