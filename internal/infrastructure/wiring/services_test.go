package wiring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

var t0 = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func initWorkspace(t *testing.T, backend string) *Workspace {
	t.Helper()
	root := t.TempDir()
	ws, err := NewWorkspace(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Repo.Initialize(); err != nil {
		t.Fatal(err)
	}
	ws.Config.Backend = backend
	if err := config.Save(root, ws.Config); err != nil {
		t.Fatal(err)
	}
	types := []*activity.Type{
		{Name: "BiteBanana", Duration: activity.DurationRule{Kind: activity.DurationFixed, Fixed: time.Hour}},
	}
	if err := ws.Repo.SaveActivityTypes(types); err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestBuildAppServicesRequiresInit(t *testing.T) {
	ws, err := NewWorkspace(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BuildAppServices(ws); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestBuildAppServicesBackends(t *testing.T) {
	for _, backend := range []string{config.BackendYAML, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			ws := initWorkspace(t, backend)
			services, err := BuildAppServices(ws)
			if err != nil {
				t.Fatalf("build services failed: %v", err)
			}
			defer services.Close()

			if services.Scheduling == nil || services.Journal == nil || services.Plans == nil {
				t.Fatalf("expected non-nil services, got %+v", services)
			}
			if _, err := services.Types.Lookup("BiteBanana"); err != nil {
				t.Fatalf("types not loaded: %v", err)
			}

			horizon := plan.Horizon{Start: t0, End: t0.Add(24 * time.Hour)}
			if err := services.Plans.SavePlan(&planning.Document{Horizon: horizon}); err != nil {
				t.Fatalf("save empty plan: %v", err)
			}

			var ids []directive.ID
			report, err := services.Scheduling.Run(context.Background(),
				application.CreateGoal(&ids, directive.NewDirective{
					Type:  "BiteBanana",
					Start: directive.Absolute(t0.Add(time.Hour)),
				}),
			)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if !report.Saved || len(ids) != 1 {
				t.Fatalf("expected one saved directive, got %+v", report)
			}

			doc, err := services.Plans.LoadPlan()
			if err != nil {
				t.Fatalf("load plan: %v", err)
			}
			if len(doc.Directives) != 1 || doc.Directives[0].ID != ids[0] {
				t.Errorf("expected created directive to be persisted, got %v", doc.Directives)
			}

			entries, err := services.Journal.LoadAll()
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				t.Errorf("expected one journal entry, got %d", len(entries))
			}
		})
	}
}
