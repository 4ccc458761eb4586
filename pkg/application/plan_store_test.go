package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
)

func TestDocumentStore_RoundTrip(t *testing.T) {
	repo := seededRepo()
	store := application.NewDocumentStore(repo)
	ctx := context.Background()

	view, err := store.Open(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(plan.Collect(view)); got != 2 {
		t.Fatalf("expected 2 directives, got %d", got)
	}

	extra := directive.Directive{ID: 9, Type: "PeelBanana", Start: directive.Absolute(t0.Add(time.Hour))}
	if err := view.Add(extra); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, view); err != nil {
		t.Fatal(err)
	}
	if repo.Doc.Version != 2 || len(repo.Doc.Directives) != 3 {
		t.Errorf("unexpected saved document %+v", repo.Doc)
	}

	// A second save continues from the bumped version.
	if err := store.Save(ctx, view); err != nil {
		t.Fatal(err)
	}
	if repo.Doc.Version != 3 {
		t.Errorf("expected version 3, got %d", repo.Doc.Version)
	}
}

func TestWriteThroughStore(t *testing.T) {
	view, _ := plan.NewInMemoryView(plan.Horizon{Start: t0, End: t0.Add(time.Hour)})
	store := application.NewWriteThroughStore(view)

	got, err := store.Open(context.Background())
	if err != nil || got != plan.View(view) {
		t.Fatalf("expected the wrapped view, got %v %v", got, err)
	}
	if err := store.Save(context.Background(), view); err != nil {
		t.Errorf("Save: %v", err)
	}
}
