package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

func TestInitCmd(t *testing.T) {
	dir := initWorkspace(t)

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Horizon != 24*time.Hour {
		t.Errorf("expected horizon flag to be saved, got %s", cfg.Horizon)
	}

	doc, err := storage.NewFilesystemRepository(dir).LoadPlan()
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if doc.Horizon.Start.Format(time.RFC3339) != horizonStart || doc.Horizon.Duration() != 24*time.Hour {
		t.Errorf("unexpected horizon %v", doc.Horizon)
	}

	// Double init should fail
	if _, err := runCLI(t, dir, "init"); err == nil {
		t.Error("expected error on re-init")
	}
}

func TestCommandsRequireInit(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "plan", "show")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || !strings.Contains(cliErr.Hint, "chronoplan init") {
		t.Fatalf("expected init hint, got %v", err)
	}
}

func TestPlanCreateShowDelete(t *testing.T) {
	dir := initWorkspace(t)

	out := mustRun(t, dir, "plan", "create", "--type", "BiteBanana", "--name", "breakfast",
		"--at", "2030-01-01T01:00:00Z", "--arg", "biteSize=2")
	if !strings.Contains(out, "Created directive 1") {
		t.Errorf("unexpected output: %s", out)
	}
	out = mustRun(t, dir, "plan", "create", "--type", "PeelBanana",
		"--anchor", "1", "--point", "end", "--offset", "15m")
	if !strings.Contains(out, "Created directive 2") {
		t.Errorf("unexpected output: %s", out)
	}

	out = mustRun(t, dir, "plan", "show")
	for _, want := range []string{"breakfast", "PeelBanana", "Plan v3"} {
		if !strings.Contains(out, want) {
			t.Errorf("plan show missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, dir, "plan", "show", "--json")
	var doc planning.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(doc.Directives) != 2 {
		t.Fatalf("expected two directives, got %v", doc.Directives)
	}
	for _, d := range doc.Directives {
		if d.ID == 2 && !d.Start.EstimatedStart.Equal(time.Date(2030, 1, 1, 2, 15, 0, 0, time.UTC)) {
			t.Errorf("anchored estimate = %v, want 02:15", d.Start.EstimatedStart)
		}
	}

	_, err := runCLI(t, dir, "plan", "delete", "1")
	if !errors.Is(err, planning.ErrConflict) {
		t.Fatalf("expected conflict with default strategy, got %v", err)
	}

	out = mustRun(t, dir, "plan", "delete", "1", "--strategy", "anchor_to_plan")
	if !strings.Contains(out, "- 1 BiteBanana") {
		t.Errorf("expected deletion in diff:\n%s", out)
	}

	loaded, err := storage.NewFilesystemRepository(dir).LoadPlan()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Directives) != 1 || loaded.Directives[0].IsAnchored() {
		t.Errorf("expected one absolute directive left, got %v", loaded.Directives)
	}
}

func TestPlanCreate_Rejected(t *testing.T) {
	dir := initWorkspace(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown type", []string{"--type", "EatApple", "--at", "2030-01-01T01:00:00Z"}, nil},
		{"schema", []string{"--type", "BiteBanana", "--at", "2030-01-01T01:00:00Z"}, nil},
		{"missing parent", []string{"--type", "PeelBanana", "--anchor", "9"}, planning.ErrResolution},
		{"no start", []string{"--type", "PeelBanana"}, nil},
		{"bad arg", []string{"--type", "PeelBanana", "--at", "2030-01-01T01:00:00Z", "--arg", "oops"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, dir, append([]string{"plan", "create"}, tt.args...)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	doc, err := storage.NewFilesystemRepository(dir).LoadPlan()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != 1 || len(doc.Directives) != 0 {
		t.Errorf("rejected creates must not change the plan, got v%d %v", doc.Version, doc.Directives)
	}
}

func TestSimulateCmd(t *testing.T) {
	dir := initWorkspace(t)
	mustRun(t, dir, "plan", "create", "--type", "BiteBanana", "--at", "2030-01-01T01:00:00Z", "--arg", "biteSize=1")
	mustRun(t, dir, "plan", "create", "--type", "PeelBanana", "--anchor", "1", "--point", "end")

	out := mustRun(t, dir, "simulate", "--json")
	var spans []simulation.Span
	if err := json.Unmarshal([]byte(out), &spans); err != nil {
		t.Fatalf("decode spans: %v\n%s", err, out)
	}
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %v", spans)
	}
	if !spans[1].Start.Equal(time.Date(2030, 1, 1, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("peel should start when the bite ends, got %v", spans[1].Start)
	}

	out = mustRun(t, dir, "simulate", "--after", "90m")
	if !strings.Contains(out, "2030-01-01 01:30") {
		t.Errorf("expected pause time in output:\n%s", out)
	}

	if _, err := runCLI(t, dir, "simulate", "--after", "1h", "--until", horizonStart); err == nil {
		t.Error("expected error for conflicting pause flags")
	}
}

func TestTypesCmd(t *testing.T) {
	dir := initWorkspace(t)
	out := mustRun(t, dir, "types")
	if !strings.Contains(out, "BiteBanana") || !strings.Contains(out, "fixed 30m0s") {
		t.Errorf("unexpected types output:\n%s", out)
	}
}

func TestJournalCmd(t *testing.T) {
	dir := initWorkspace(t)
	out := mustRun(t, dir, "journal")
	if !strings.Contains(out, "Journal is empty") {
		t.Errorf("unexpected output: %s", out)
	}

	mustRun(t, dir, "plan", "create", "--type", "PeelBanana", "--at", "2030-01-01T01:00:00Z")
	out = mustRun(t, dir, "journal", "--verify")
	if !strings.Contains(out, "integrity OK") {
		t.Errorf("expected clean journal:\n%s", out)
	}
}

func TestSQLiteBackend(t *testing.T) {
	dir := initWorkspace(t, "--backend", "sqlite")

	mustRun(t, dir, "plan", "create", "--type", "PeelBanana", "--at", "2030-01-01T03:00:00Z")
	out := mustRun(t, dir, "plan", "show", "--json")
	var doc planning.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if len(doc.Directives) != 1 || doc.Directives[0].Type != "PeelBanana" {
		t.Errorf("expected directive to persist in sqlite, got %v", doc.Directives)
	}

	if _, err := storage.NewFilesystemRepository(dir).LoadPlan(); !errors.Is(err, storage.ErrPlanNotFound) {
		t.Errorf("sqlite workspace should not write plan.yaml, got %v", err)
	}
}

func TestDashboardCmd(t *testing.T) {
	dir := initWorkspace(t)
	mustRun(t, dir, "plan", "create", "--type", "PeelBanana", "--at", "2030-01-01T01:00:00Z")

	t.Setenv("CHRONOPLAN_SKIP_DASHBOARD_RUN", "true")
	mustRun(t, dir, "dashboard")
}

func TestParseArguments(t *testing.T) {
	args, err := parseArguments([]string{"biteSize=2", "ripe=true", "note=two bites", "growingDuration=2h", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	if args["biteSize"] != 2 || args["ripe"] != true || args["note"] != "two bites" ||
		args["growingDuration"] != "2h" || args["empty"] != "" {
		t.Errorf("unexpected arguments %#v", args)
	}

	if _, err := parseArguments([]string{"=1"}); err == nil {
		t.Error("expected error for empty key")
	}
	if args, _ := parseArguments(nil); args != nil {
		t.Error("expected nil map for no arguments")
	}
}

func TestMCPCmd_UnknownTransport(t *testing.T) {
	dir := initWorkspace(t)
	if _, err := runCLI(t, dir, "mcp", "--transport", "carrier-pigeon"); err == nil {
		t.Fatal("expected error for unknown transport")
	}
}
