package wiring

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

// ErrNotInitialized is returned when the workspace has no .chronoplan directory.
var ErrNotInitialized = errors.New("workspace not initialized")

// AppServices exposes the application layer services wired together with a workspace.
type AppServices struct {
	Workspace *Workspace
	Types     *activity.Registry
	// Plans reads and writes the whole plan document on the configured backend.
	Plans      planning.PlanRepository
	Store      application.PlanStore
	Journal    *storage.FileCommitJournal
	Simulator  *simulation.SpanSimulator
	Scheduling *application.SchedulingService

	closers []io.Closer
}

// BuildAppServices wires the plan backend, activity types, simulator and
// scheduling service for ws. Callers must Close the result.
func BuildAppServices(ws *Workspace) (*AppServices, error) {
	if !ws.Repo.IsInitialized() {
		return nil, fmt.Errorf("%w at %s: run 'chronoplan init'", ErrNotInitialized, ws.Repo.Root())
	}
	cfg := ws.Config

	types, err := ws.Repo.LoadActivityTypes(cfg.TypesFile)
	if err != nil {
		return nil, fmt.Errorf("load activity types: %w", err)
	}

	svc := &AppServices{Workspace: ws, Types: types}

	switch cfg.Backend {
	case config.BackendSQLite:
		view, err := storage.OpenSQLiteView(filepath.Join(ws.Repo.Dir(), storage.DatabaseFile))
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, view)
		svc.Plans = view
		svc.Store = application.NewWriteThroughStore(view)
	default:
		svc.Plans = ws.Repo
		svc.Store = application.NewDocumentStore(ws.Repo)
	}

	journal, err := storage.NewFileCommitJournal(ws.Repo.Dir())
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("open commit journal: %w", err)
	}
	svc.Journal = journal

	svc.Simulator = simulation.NewSpanSimulator(types.DurationOf)
	sim := simulation.NewTimeoutCollaborator(svc.Simulator, cfg.SimulationTimeout)

	svc.Scheduling = application.NewSchedulingService(svc.Store, sim, types.Lookup,
		application.WithJournal(journal),
		application.WithLogger(ws.Logger),
	)

	ws.Logger.Debug("services wired",
		"root", ws.Repo.Root(),
		"backend", cfg.Backend,
		"types", len(types.Names()))
	return svc, nil
}

// Close releases the plan backend.
func (s *AppServices) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}
