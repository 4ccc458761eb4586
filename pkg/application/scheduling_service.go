package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

const tracerName = "chronoplan/application"

// Goal is one step of a scheduling algorithm. A goal that returns an error
// has its edits rolled back; otherwise they are committed.
type Goal func(ctx context.Context, p *planning.EditablePlan) error

// Journal records the net change of each run that changed the plan.
type Journal interface {
	Append(entry *storage.JournalEntry) error
}

// GoalFailure describes a goal whose edits were rolled back.
type GoalFailure struct {
	Index  int
	Err    error
	Undone []edit.Edit
}

// RunReport summarises a scheduling run.
type RunReport struct {
	SessionID string
	CommitID  string
	Commits   int
	Diff      []edit.Edit
	Failures  []GoalFailure
	// Results are the latest simulation results, nil if nothing was simulated.
	Results *simulation.Results
	Saved   bool
}

// SchedulingService runs goals against a plan inside editing transactions.
type SchedulingService struct {
	store   PlanStore
	sim     simulation.Collaborator
	types   activity.Lookup
	journal Journal
	options []planning.Option
	logger  *slog.Logger
	tracer  trace.Tracer
}

// ServiceOption configures a SchedulingService.
type ServiceOption func(*SchedulingService)

// WithJournal records each changing run in j.
func WithJournal(j Journal) ServiceOption {
	return func(s *SchedulingService) { s.journal = j }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *SchedulingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPlanOptions passes options to every EditablePlan the service creates.
func WithPlanOptions(opts ...planning.Option) ServiceOption {
	return func(s *SchedulingService) { s.options = append(s.options, opts...) }
}

func NewSchedulingService(store PlanStore, sim simulation.Collaborator, types activity.Lookup, opts ...ServiceOption) *SchedulingService {
	s := &SchedulingService{
		store:  store,
		types:  types,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sim = NewTracedCollaborator(sim, s.tracer)
	return s
}

// Run opens the plan, applies goals in order, and persists the result when
// the committed diff is not empty. Each goal runs in its own transaction.
func (s *SchedulingService) Run(ctx context.Context, goals ...Goal) (report *RunReport, err error) {
	ctx, span := s.tracer.Start(ctx, "SchedulingService.Run",
		trace.WithAttributes(attribute.Int("goals", len(goals))),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	view, err := s.store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}

	opts := append([]planning.Option{planning.WithLogger(s.logger)}, s.options...)
	p, err := planning.NewEditablePlan(view, nil, s.sim, s.types, opts...)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session_id", p.SessionID()))

	report = &RunReport{SessionID: p.SessionID()}
	for i, goal := range goals {
		if err := ctx.Err(); err != nil {
			if _, rbErr := p.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			s.abandon(p, report, err)
			return report, err
		}

		failure, err := s.runGoal(ctx, p, i, goal)
		if err != nil {
			s.abandon(p, report, err)
			return report, err
		}
		if failure != nil {
			report.Failures = append(report.Failures, *failure)
		}
	}

	s.summarize(p, report)

	results, err := p.LatestResults(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch latest results: %w", err)
	}
	report.Results = results

	if len(report.Diff) == 0 {
		s.logger.Info("scheduling run left plan unchanged",
			"session_id", report.SessionID,
			"goals", len(goals),
			"failures", len(report.Failures))
		return report, nil
	}

	if err := s.store.Save(ctx, view); err != nil {
		return report, fmt.Errorf("persist plan: %w", err)
	}
	report.Saved = true

	s.appendJournal(report)

	span.SetAttributes(attribute.Int("diff_size", len(report.Diff)), attribute.Int("commits", report.Commits))
	s.logger.Info("scheduling run saved",
		"session_id", report.SessionID,
		"commits", report.Commits,
		"diff_size", len(report.Diff),
		"failures", len(report.Failures))
	return report, nil
}

// abandon reports a run that stopped early. A write-through store already
// holds the committed edits, so they are reported as saved and journaled.
func (s *SchedulingService) abandon(p *planning.EditablePlan, report *RunReport, cause error) {
	s.summarize(p, report)
	if len(report.Diff) == 0 || !writesThrough(s.store) {
		return
	}
	report.Saved = true
	s.appendJournal(report)
	s.logger.Warn("scheduling run stopped after saving committed edits",
		"session_id", report.SessionID,
		"commits", report.Commits,
		"diff_size", len(report.Diff),
		"error", cause)
}

func (s *SchedulingService) summarize(p *planning.EditablePlan, report *RunReport) {
	report.Commits = p.Commits()
	report.CommitID = p.LatestCommit().ID
	report.Diff = p.TotalDiff()
}

func (s *SchedulingService) appendJournal(report *RunReport) {
	if s.journal == nil {
		return
	}
	entry := &storage.JournalEntry{
		SessionID: report.SessionID,
		CommitID:  report.CommitID,
		Commits:   report.Commits,
		Diff:      storage.NewJournalEdits(report.Diff),
	}
	if err := s.journal.Append(entry); err != nil {
		// The plan is already saved.
		s.logger.Warn("failed to journal scheduling run", "session_id", report.SessionID, "error", err)
	}
}

// runGoal applies one goal and commits or rolls back. A non-nil error means
// the session can no longer continue.
func (s *SchedulingService) runGoal(ctx context.Context, p *planning.EditablePlan, index int, goal Goal) (*GoalFailure, error) {
	ctx, span := s.tracer.Start(ctx, "SchedulingService.Goal",
		trace.WithAttributes(attribute.Int("index", index)),
	)
	defer span.End()

	goalErr := goal(ctx, p)
	if goalErr == nil {
		if c := p.Commit(); c != nil {
			span.SetAttributes(attribute.String("commit_id", c.ID))
		}
		return nil, nil
	}

	span.RecordError(goalErr)
	span.SetStatus(codes.Error, goalErr.Error())

	undone, err := p.Rollback()
	if err != nil {
		return nil, fmt.Errorf("roll back goal %d: %w", index, err)
	}
	s.logger.Warn("goal failed, edits rolled back",
		"session_id", p.SessionID(),
		"goal", index,
		"undone", len(undone),
		"error", goalErr)
	return &GoalFailure{Index: index, Err: goalErr, Undone: undone}, nil
}
