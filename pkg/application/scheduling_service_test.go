package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

var t0 = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func types() *activity.Registry {
	return activity.NewRegistry(&activity.Type{
		Name:     "PeelBanana",
		Duration: activity.DurationRule{Kind: activity.DurationFixed, Fixed: 30 * time.Minute},
	})
}

func seededRepo() *MockRepo {
	return &MockRepo{Doc: &planning.Document{
		Version: 1,
		Horizon: plan.Horizon{Start: t0, End: t0.Add(24 * time.Hour)},
		Directives: []directive.Directive{
			{ID: 1, Type: "PeelBanana", Start: directive.Absolute(t0)},
			{ID: 2, Type: "PeelBanana", Start: directive.Anchor(1, time.Hour, directive.AnchorStart, t0.Add(time.Hour))},
		},
	}}
}

func newService(repo *MockRepo, journal *MockJournal) *application.SchedulingService {
	reg := types()
	sim := simulation.NewSpanSimulator(func(d directive.Directive) (time.Duration, bool) {
		t, err := reg.Lookup(d.Type)
		if err != nil {
			return 0, false
		}
		return t.DurationOf(d.Arguments)
	})
	return application.NewSchedulingService(application.NewDocumentStore(repo), sim, reg.Lookup,
		application.WithLogger(quiet), application.WithJournal(journal))
}

func peel(at time.Duration) directive.NewDirective {
	return directive.NewDirective{Type: "PeelBanana", Start: directive.Absolute(t0.Add(at))}
}

func TestSchedulingService_CommitsSuccessfulGoals(t *testing.T) {
	repo := seededRepo()
	journal := &MockJournal{}
	svc := newService(repo, journal)

	var created []directive.ID
	var results *simulation.Results
	report, err := svc.Run(context.Background(),
		application.CreateGoal(&created, peel(3*time.Hour), peel(4*time.Hour)),
		application.SimulateGoal(simulation.DefaultOptions(), &results),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(created) != 2 {
		t.Fatalf("expected 2 ids, got %v", created)
	}
	if report.Commits != 1 {
		t.Errorf("expected 1 commit (simulate alone does not commit), got %d", report.Commits)
	}
	if len(report.Diff) != 2 {
		t.Errorf("expected diff of 2 creates, got %v", report.Diff)
	}
	if !report.Saved || repo.Saves != 1 || len(repo.Doc.Directives) != 4 {
		t.Errorf("plan not persisted: saved=%v saves=%d directives=%d", report.Saved, repo.Saves, len(repo.Doc.Directives))
	}
	if repo.Doc.Version != 2 {
		t.Errorf("expected version 2, got %d", repo.Doc.Version)
	}
	if report.Results == nil || report.Results.IsStale() {
		t.Errorf("expected fresh results for the final plan")
	}
	if results == nil || results.IsStale() {
		t.Errorf("goal results should still be valid")
	}
	if len(journal.Entries) != 1 || journal.Entries[0].SessionID != report.SessionID {
		t.Errorf("expected one journal entry for the session, got %v", journal.Entries)
	}
}

func TestSchedulingService_RollsBackFailingGoal(t *testing.T) {
	repo := seededRepo()
	journal := &MockJournal{}
	svc := newService(repo, journal)

	errGiveUp := errors.New("no feasible slot")
	report, err := svc.Run(context.Background(),
		application.Chain(
			application.CreateGoal(nil, peel(5*time.Hour)),
			func(context.Context, *planning.EditablePlan) error { return errGiveUp },
		),
		application.DeleteGoal(1, planning.StrategyError),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %v", report.Failures)
	}
	if !errors.Is(report.Failures[0].Err, errGiveUp) || len(report.Failures[0].Undone) != 1 {
		t.Errorf("unexpected first failure %+v", report.Failures[0])
	}
	if !errors.Is(report.Failures[1].Err, planning.ErrConflict) {
		t.Errorf("expected conflict deleting anchored directive, got %v", report.Failures[1].Err)
	}
	if report.Saved || repo.Saves != 0 || len(journal.Entries) != 0 {
		t.Errorf("unchanged plan must not be saved or journaled")
	}
	if len(report.Diff) != 0 {
		t.Errorf("expected empty diff, got %v", report.Diff)
	}
}

func TestSchedulingService_CreateThenDeleteLeavesNoTrace(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo, &MockJournal{})

	var ids []directive.ID
	report, err := svc.Run(context.Background(),
		application.CreateGoal(&ids, peel(6*time.Hour)),
		func(ctx context.Context, p *planning.EditablePlan) error {
			return p.DeleteByID(ids[0], planning.StrategyError)
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	if report.Commits != 2 || len(report.Diff) != 0 || report.Saved {
		t.Errorf("expected two commits that cancel out, got %+v", report)
	}
}

func TestSchedulingService_CascadeDelete(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo, &MockJournal{})

	if _, err := svc.Run(context.Background(), application.DeleteGoal(1, planning.StrategyCascade)); err != nil {
		t.Fatal(err)
	}
	if len(repo.Doc.Directives) != 0 {
		t.Errorf("expected cascade to empty the plan, got %v", repo.Doc.Directives)
	}
}

func TestSchedulingService_OpenError(t *testing.T) {
	repo := &MockRepo{LoadError: errors.New("disk on fire")}
	svc := newService(repo, &MockJournal{})

	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSchedulingService_SaveError(t *testing.T) {
	repo := seededRepo()
	repo.SaveError = errors.New("read-only")
	svc := newService(repo, &MockJournal{})

	report, err := svc.Run(context.Background(), application.CreateGoal(nil, peel(time.Hour)))
	if err == nil {
		t.Fatal("expected persist error")
	}
	if report == nil || len(report.Diff) != 1 || report.Saved {
		t.Errorf("report should describe the unsaved diff, got %+v", report)
	}
}

func TestSchedulingService_CancelledContext(t *testing.T) {
	repo := seededRepo()
	svc := newService(repo, &MockJournal{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Run(ctx, application.CreateGoal(nil, peel(time.Hour))); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if repo.Saves != 0 {
		t.Errorf("cancelled run must not save")
	}
}

func TestSchedulingService_StoppedRunReportsStoredEdits(t *testing.T) {
	stopAfterFirst := func(cancel context.CancelFunc) []application.Goal {
		return []application.Goal{
			application.CreateGoal(nil, peel(2*time.Hour)),
			func(ctx context.Context, p *planning.EditablePlan) error {
				cancel()
				return nil
			},
			application.CreateGoal(nil, peel(3*time.Hour)),
		}
	}

	t.Run("write through", func(t *testing.T) {
		view, err := plan.NewInMemoryView(seededRepo().Doc.Horizon, seededRepo().Doc.Directives...)
		if err != nil {
			t.Fatal(err)
		}
		journal := &MockJournal{}
		reg := types()
		svc := application.NewSchedulingService(application.NewWriteThroughStore(view),
			simulation.NewSpanSimulator(reg.DurationOf), reg.Lookup,
			application.WithLogger(quiet), application.WithJournal(journal))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		report, err := svc.Run(ctx, stopAfterFirst(cancel)...)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !report.Saved || len(report.Diff) != 1 || report.Commits != 1 {
			t.Errorf("expected the first goal's edit reported as saved, got %+v", report)
		}
		if len(journal.Entries) != 1 || len(journal.Entries[0].Diff) != 1 {
			t.Fatalf("expected one journal entry with one edit, got %+v", journal.Entries)
		}
		if n := len(plan.Collect(view)); n != 3 {
			t.Errorf("expected three directives in the view, got %d", n)
		}
	})

	t.Run("document", func(t *testing.T) {
		repo := seededRepo()
		journal := &MockJournal{}
		svc := newService(repo, journal)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		report, err := svc.Run(ctx, stopAfterFirst(cancel)...)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if report.Saved || len(report.Diff) != 1 {
			t.Errorf("expected an unsaved diff of one edit, got %+v", report)
		}
		if repo.Saves != 0 || len(journal.Entries) != 0 {
			t.Errorf("stopped document run must not save or journal: saves=%d entries=%d", repo.Saves, len(journal.Entries))
		}
	})
}
