package planning

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/staleness"
)

// EditablePlan lets a scheduling algorithm edit a plan in transactions and
// keeps every simulation result it hands out flagged stale or fresh as the
// plan changes.
//
// Staleness works as follows:
//
//  1. The plan keeps a validity set of weak handles to results that match
//     the current content.
//  2. Whenever results are handed out (Simulate or LatestResults) they are
//     compared against the current directives; valid ones join the set.
//  3. An edit marks everything in the set stale and swaps in a new empty set.
//  4. A commit shares the current set. Results obtained before the next edit
//     still join it.
//  5. A rollback marks the current set stale, marks the last commit's set
//     valid and shares that set again.
//
// An EditablePlan is not safe for concurrent use.
type EditablePlan struct {
	view    plan.View
	ids     IDGenerator
	sim     simulation.Collaborator
	types   activity.Lookup
	tracker *staleness.Tracker
	session *SessionStateMachine

	uncommitted edit.Log
	latest      *Commit
	commits     int

	sessionID string
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an EditablePlan.
type Option func(*EditablePlan)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *EditablePlan) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) Option {
	return func(p *EditablePlan) {
		if id != "" {
			p.sessionID = id
		}
	}
}

// WithClock overrides time.Now for commit timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *EditablePlan) {
		if now != nil {
			p.now = now
		}
	}
}

// NewEditablePlan starts an editing session over view. A nil ids generator
// counts up from the largest ID in view; a nil types lookup accepts any
// activity type with unknown duration.
func NewEditablePlan(view plan.View, ids IDGenerator, sim simulation.Collaborator, types activity.Lookup, opts ...Option) (*EditablePlan, error) {
	if ids == nil {
		ids = NewSequentialIDGenerator(plan.MaxID(view))
	}
	if types == nil {
		types = func(name string) (*activity.Type, error) {
			return &activity.Type{Name: name}, nil
		}
	}

	p := &EditablePlan{
		view:      view,
		ids:       ids,
		sim:       sim,
		types:     types,
		tracker:   staleness.NewTracker(),
		sessionID: uuid.New().String(),
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	session, err := NewSessionStateMachine(p.sessionID)
	if err != nil {
		return nil, err
	}
	p.session = session

	// The baseline commit shares the initial set, so results for the
	// unedited plan come back after a rollback.
	p.latest = &Commit{
		ID:  uuid.New().String(),
		At:  p.now(),
		set: p.tracker.Share(),
	}
	return p, nil
}

// Create adds a new directive and returns its ID.
func (p *EditablePlan) Create(nd directive.NewDirective) (directive.ID, error) {
	if err := nd.Start.Validate(); err != nil {
		return 0, fmt.Errorf("invalid start: %w", err)
	}

	current := plan.Collect(p.view)

	var anchorTime time.Time
	if nd.Start.Kind == directive.StartAnchor {
		var parents []directive.Directive
		for _, d := range current {
			if d.ID == nd.Start.ParentID {
				parents = append(parents, d)
			}
		}
		if len(parents) != 1 {
			return 0, &ResolutionError{ParentID: nd.Start.ParentID, Matches: len(parents)}
		}
		t, err := plan.NewResolver(current, p.durationOf).AnchorTimeOf(parents[0], nd.Start.Point)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrResolution, err)
		}
		anchorTime = t
	}

	typ, err := p.types(nd.Type)
	if err != nil {
		return 0, fmt.Errorf("validate directive: %w", err)
	}
	if err := typ.ValidateArguments(nd.Arguments); err != nil {
		return 0, err
	}

	id := p.nextID(current)
	d := nd.Resolve(id, anchorTime)
	if err := p.view.Add(d); err != nil {
		return 0, fmt.Errorf("add directive %s: %w", id, err)
	}

	p.record(edit.Create(d))
	p.edited()

	p.logger.Debug("directive created",
		"session_id", p.sessionID,
		"directive_id", id,
		"type", d.Type,
		"start", d.Start.String())
	return id, nil
}

// DeleteByID deletes the single directive carrying id.
func (p *EditablePlan) DeleteByID(id directive.ID, strategy DeletedAnchorStrategy) error {
	matches := plan.FindByID(p.view, id)
	switch len(matches) {
	case 0:
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return p.Delete(matches[0], strategy)
	default:
		return fmt.Errorf("%w: %s matches %d directives", ErrAmbiguous, id, len(matches))
	}
}

// Delete removes d, resolving directives anchored to it with strategy.
func (p *EditablePlan) Delete(d directive.Directive, strategy DeletedAnchorStrategy) error {
	if !strategy.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	snapshot := plan.Collect(p.view)
	if !containsEqual(snapshot, d) {
		return fmt.Errorf("%w: %s", ErrNotFound, d.ID)
	}

	deletions, creations, err := p.planDeletion(snapshot, d, strategy)
	if err != nil {
		return err
	}
	if err := p.applyAll(deletions, creations); err != nil {
		return err
	}

	for _, removed := range deletions {
		p.record(edit.Delete(removed))
	}
	for _, created := range creations {
		p.record(edit.Create(created))
	}
	p.edited()

	p.logger.Debug("directive deleted",
		"session_id", p.sessionID,
		"directive_id", d.ID,
		"strategy", strategy,
		"removed", len(deletions),
		"reanchored", len(creations))
	return nil
}

// Commit folds the uncommitted edits into the total diff. It returns nil and
// changes nothing when there is nothing to commit.
func (p *EditablePlan) Commit() *Commit {
	if p.uncommitted.Len() == 0 {
		return nil
	}

	edits := p.uncommitted.Take()
	previous := p.latest
	p.latest = &Commit{
		ID:   uuid.New().String(),
		At:   p.now(),
		diff: edit.Compact(previous.diff, edits),
		set:  p.tracker.Share(),
	}
	p.tracker.Release(previous.set)
	p.commits++

	if err := p.session.Transition(EventCommit); err != nil {
		p.logger.Warn("session state out of sync", "session_id", p.sessionID, "error", err)
	}
	commitsTotal.Inc()

	p.logger.Debug("plan committed",
		"session_id", p.sessionID,
		"commit_id", p.latest.ID,
		"edits", len(edits),
		"diff_size", len(p.latest.diff))
	return p.latest
}

// Rollback undoes every uncommitted edit and returns them in the order they
// were applied. It returns nothing when there is nothing to undo.
func (p *EditablePlan) Rollback() ([]edit.Edit, error) {
	if p.uncommitted.Len() == 0 {
		return nil, nil
	}

	edits := p.uncommitted.Take()
	for i := len(edits) - 1; i >= 0; i-- {
		if err := p.applyDirect(edits[i].Inverse()); err != nil {
			p.redo(edits, i+1)
			return nil, fmt.Errorf("rollback %s: %w", edits[i], err)
		}
	}

	p.tracker.Restore(p.latest.set)
	if err := p.session.Transition(EventRollback); err != nil {
		p.logger.Warn("session state out of sync", "session_id", p.sessionID, "error", err)
	}
	rollbacksTotal.Inc()

	p.logger.Debug("plan rolled back",
		"session_id", p.sessionID,
		"edits", len(edits))
	return edits, nil
}

// Simulate runs the simulation collaborator over the current plan and returns
// the resulting (fresh) results. Collaborator errors are returned as is.
func (p *EditablePlan) Simulate(ctx context.Context, opts simulation.Options) (*simulation.Results, error) {
	until := opts.Pause.Resolve(p.view)
	if err := p.sim.SimulateWithResults(ctx, p.view, until); err != nil {
		return nil, err
	}
	results, err := p.LatestResults(ctx)
	if err != nil {
		return nil, err
	}
	if results == nil {
		return nil, ErrNoResults
	}
	return results, nil
}

// LatestResults returns the most recent simulation results with their stale
// flag computed against the current plan, or nil if nothing has been simulated.
func (p *EditablePlan) LatestResults(ctx context.Context) (*simulation.Results, error) {
	data, err := p.sim.LatestSimulationData(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	results := simulation.NewResults(data)
	valid := p.tracker.Register(results, p.view.Directives())
	resultsRegisteredTotal.WithLabelValues(fmt.Sprint(!valid)).Inc()
	return results, nil
}

// TotalDiff returns the net committed changes since the session started.
func (p *EditablePlan) TotalDiff() []edit.Edit {
	return p.latest.Diff()
}

// Uncommitted returns the edits applied since the last commit.
func (p *EditablePlan) Uncommitted() []edit.Edit {
	return p.uncommitted.Entries()
}

// LatestCommit returns the most recent commit, or the session baseline.
func (p *EditablePlan) LatestCommit() *Commit {
	return p.latest
}

// Commits returns the number of non-empty commits made.
func (p *EditablePlan) Commits() int {
	return p.commits
}

// State returns the session state, StateClean or StateDirty.
func (p *EditablePlan) State() string {
	return p.session.Current()
}

// IsDirty reports whether there are uncommitted edits.
func (p *EditablePlan) IsDirty() bool {
	return p.uncommitted.Len() > 0
}

// SessionID identifies the editing session in logs.
func (p *EditablePlan) SessionID() string {
	return p.sessionID
}

// Tracker exposes the staleness tracker for inspection.
func (p *EditablePlan) Tracker() *staleness.Tracker {
	return p.tracker
}

func (p *EditablePlan) Directives() iter.Seq[directive.Directive] {
	return p.view.Directives()
}

func (p *EditablePlan) TotalBounds() plan.Interval {
	return p.view.TotalBounds()
}

func (p *EditablePlan) ToRelative(abs time.Time) time.Duration {
	return p.view.ToRelative(abs)
}

func (p *EditablePlan) ToAbsolute(rel time.Duration) time.Time {
	return p.view.ToAbsolute(rel)
}

// StartOf resolves the actual start time of d in the current plan.
func (p *EditablePlan) StartOf(d directive.Directive) (time.Time, error) {
	return plan.NewViewResolver(p.view, p.durationOf).StartOf(d)
}

func (p *EditablePlan) record(e edit.Edit) {
	p.uncommitted.Record(e)
	editsRecordedTotal.WithLabelValues(string(e.Kind)).Inc()
}

// edited invalidates every tracked result after a successful edit.
func (p *EditablePlan) edited() {
	marked := p.tracker.InvalidateAll()
	resultsInvalidatedTotal.Add(float64(marked))
	if err := p.session.MarkEdited(); err != nil {
		p.logger.Warn("session state out of sync", "session_id", p.sessionID, "error", err)
	}
}

func (p *EditablePlan) nextID(current []directive.Directive) directive.ID {
	taken := make(map[directive.ID]bool, len(current))
	for _, d := range current {
		taken[d.ID] = true
	}
	for {
		id := p.ids.Next()
		if !taken[id] {
			return id
		}
	}
}

func (p *EditablePlan) durationOf(d directive.Directive) (time.Duration, bool) {
	typ, err := p.types(d.Type)
	if err != nil {
		return 0, false
	}
	return typ.DurationOf(d.Arguments)
}

// applyDirect applies e to the view without logging it.
func (p *EditablePlan) applyDirect(e edit.Edit) error {
	switch e.Kind {
	case edit.KindCreate:
		return p.view.Add(e.Directive)
	case edit.KindDelete:
		return p.view.Remove(e.Directive)
	default:
		return fmt.Errorf("unknown edit kind %q", e.Kind)
	}
}

// redo re-applies edits[from:] after a failed rollback and puts every edit
// back in the uncommitted log.
func (p *EditablePlan) redo(edits []edit.Edit, from int) {
	for _, e := range edits[from:] {
		if err := p.applyDirect(e); err != nil {
			p.logger.Error("failed to restore edit after rollback failure",
				"session_id", p.sessionID, "edit", e.String(), "error", err)
		}
	}
	for _, e := range edits {
		p.uncommitted.Record(e)
	}
}

// applyAll removes then adds directives, undoing its own work on failure.
func (p *EditablePlan) applyAll(deletions, creations []directive.Directive) error {
	var applied []edit.Edit
	undo := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			if err := p.applyDirect(applied[i].Inverse()); err != nil {
				p.logger.Error("failed to undo partial delete",
					"session_id", p.sessionID, "edit", applied[i].String(), "error", err)
			}
		}
	}

	for _, d := range deletions {
		e := edit.Delete(d)
		if err := p.applyDirect(e); err != nil {
			undo()
			return fmt.Errorf("remove directive %s: %w", d.ID, err)
		}
		applied = append(applied, e)
	}
	for _, d := range creations {
		e := edit.Create(d)
		if err := p.applyDirect(e); err != nil {
			undo()
			return fmt.Errorf("re-add directive %s: %w", d.ID, err)
		}
		applied = append(applied, e)
	}
	return nil
}

func containsEqual(directives []directive.Directive, d directive.Directive) bool {
	for _, existing := range directives {
		if existing.Equal(d) {
			return true
		}
	}
	return false
}
