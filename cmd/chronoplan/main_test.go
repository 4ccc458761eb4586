package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/cli"
)

func TestRun_PrintsHint(t *testing.T) {
	cli.RootCmd.SetArgs([]string{"-C", t.TempDir(), "plan", "show"})
	var stderr bytes.Buffer
	if code := run(&stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Hint: Run 'chronoplan init'") {
		t.Errorf("expected init hint, got %q", stderr.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	cli.RootCmd.SetArgs([]string{"invalid-cmd-999"})
	var stderr bytes.Buffer
	if code := run(&stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestRun_Help(t *testing.T) {
	cli.RootCmd.SetArgs([]string{"--help"})
	var stderr bytes.Buffer
	if code := run(&stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
}
