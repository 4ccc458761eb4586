package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

var t0 = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithBackend(t, config.BackendYAML)
}

func newTestServerWithBackend(t *testing.T, backend string) *Server {
	t.Helper()
	ws, err := wiring.NewWorkspace(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.Repo.Initialize(); err != nil {
		t.Fatal(err)
	}
	ws.Config.Backend = backend
	types := []*activity.Type{
		{Name: "BiteBanana", Duration: activity.DurationRule{Kind: activity.DurationFixed, Fixed: time.Hour}},
		{Name: "PeelBanana", Duration: activity.DurationRule{Kind: activity.DurationFixed, Fixed: 30 * time.Minute}},
	}
	if err := ws.Repo.SaveActivityTypes(types); err != nil {
		t.Fatal(err)
	}
	services, err := wiring.BuildAppServices(ws)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = services.Close() })
	if err := services.Plans.SavePlan(&planning.Document{Horizon: plan.Horizon{Start: t0, End: t0.Add(24 * time.Hour)}}); err != nil {
		t.Fatal(err)
	}
	return NewServer(services)
}

func TestServerHandlersExercise(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	created, err := s.handleCreate(ctx, CreateArgs{Type: "BiteBanana", At: "2030-01-01T01:00:00Z"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r := created.(*EditResult); len(r.Created) != 1 || r.Created[0].ID != 1 {
		t.Fatalf("unexpected create result %+v", r)
	}

	if _, err := s.handleCreate(ctx, CreateArgs{Type: "PeelBanana", Anchor: 1, Point: "end", Offset: "10m"}); err != nil {
		t.Fatalf("create anchored: %v", err)
	}

	got, err := s.handleGetPlan(ctx, struct{}{})
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if doc := got.(*planning.Document); len(doc.Directives) != 2 {
		t.Fatalf("expected two directives, got %v", doc.Directives)
	}

	spans, err := s.handleSimulate(ctx, SimulateArgs{})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	layout := spans.([]simulation.Span)
	if len(layout) != 2 || !layout[1].Start.Equal(t0.Add(2*time.Hour+10*time.Minute)) {
		t.Fatalf("unexpected layout %v", layout)
	}

	_, err = s.handleDelete(ctx, DeleteArgs{ID: 1})
	if err == nil || !strings.Contains(err.Error(), "anchored by 2") {
		t.Fatalf("expected conflict with default strategy, got %v", err)
	}

	deleted, err := s.handleDelete(ctx, DeleteArgs{ID: 1, Strategy: "cascade"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if r := deleted.(*EditResult); len(r.Deleted) != 2 || len(r.Created) != 0 {
		t.Fatalf("expected cascade of two, got %+v", r)
	}

	entries, err := s.handleJournal(ctx, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(entries.([]*storage.JournalEntry)); n != 3 {
		t.Errorf("expected three journal entries, got %d", n)
	}
}

func TestServerConcurrentCallsOnSQLite(t *testing.T) {
	s := newTestServerWithBackend(t, config.BackendSQLite)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, 3*workers)
	for i := 0; i < workers; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			at := t0.Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
			if _, err := s.handleCreate(ctx, CreateArgs{Type: "BiteBanana", At: at}); err != nil {
				errs <- fmt.Errorf("create %d: %w", i, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := s.handleGetPlan(ctx, struct{}{}); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.handleJournal(ctx, struct{}{}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	got, err := s.handleGetPlan(ctx, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	if doc := got.(*planning.Document); len(doc.Directives) != workers {
		t.Errorf("expected %d directives, got %d", workers, len(doc.Directives))
	}
}

func TestServerRejectsBadArgs(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"missing type", func() error { _, err := s.handleCreate(ctx, CreateArgs{At: "2030-01-01T01:00:00Z"}); return err }},
		{"both starts", func() error {
			_, err := s.handleCreate(ctx, CreateArgs{Type: "PeelBanana", At: "2030-01-01T01:00:00Z", Anchor: 1})
			return err
		}},
		{"bad offset", func() error {
			_, err := s.handleCreate(ctx, CreateArgs{Type: "PeelBanana", Anchor: 1, Offset: "soon"})
			return err
		}},
		{"unknown type", func() error {
			_, err := s.handleCreate(ctx, CreateArgs{Type: "EatApple", At: "2030-01-01T01:00:00Z"})
			return err
		}},
		{"unknown strategy", func() error { _, err := s.handleDelete(ctx, DeleteArgs{ID: 1, Strategy: "shrug"}); return err }},
		{"missing directive", func() error { _, err := s.handleDelete(ctx, DeleteArgs{ID: 42}); return err }},
		{"both pauses", func() error {
			_, err := s.handleSimulate(ctx, SimulateArgs{Until: "2030-01-01T01:00:00Z", After: "1h"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	got, err := s.handleGetPlan(ctx, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	if doc := got.(*planning.Document); doc.Version != 1 {
		t.Errorf("rejected calls must not save, got version %d", doc.Version)
	}
}

func TestListTypes(t *testing.T) {
	s := newTestServer(t)
	got, err := s.handleListTypes(context.Background(), struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	types := got.([]typeInfo)
	if len(types) != 2 || types[0].Name != "BiteBanana" || types[0].Duration != "1h0m0s" {
		t.Errorf("unexpected types %+v", types)
	}
}

func TestToolErrorKeepsMessage(t *testing.T) {
	err := toolError("simulate", errors.New("boom"))
	if err.Error() != "simulate failed: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
