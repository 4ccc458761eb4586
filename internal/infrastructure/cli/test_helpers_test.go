package cli

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

const horizonStart = "2030-01-01T00:00:00Z"

// resetFlags restores every flag to its default so commands can be executed
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command against the workspace in dir.
func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()

	resetFlags(RootCmd)
	old := logOutput
	logOutput = io.Discard
	defer func() { logOutput = old }()

	buf := new(bytes.Buffer)
	RootCmd.SetOut(buf)
	RootCmd.SetErr(buf)
	RootCmd.SetArgs(append([]string{"-C", dir}, args...))
	err := RootCmd.Execute()
	return buf.String(), err
}

// initWorkspace runs init in a fresh directory and registers banana types.
func initWorkspace(t *testing.T, extra ...string) string {
	t.Helper()
	dir := t.TempDir()

	args := append([]string{"init", "--start", horizonStart, "--horizon", "24h"}, extra...)
	if out, err := runCLI(t, dir, args...); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}

	types := []*activity.Type{
		{
			Name:     "BiteBanana",
			Duration: activity.DurationRule{Kind: activity.DurationFixed, Fixed: time.Hour},
			Schema: map[string]any{
				"type":       "object",
				"required":   []any{"biteSize"},
				"properties": map[string]any{"biteSize": map[string]any{"type": "integer"}},
			},
		},
		{Name: "PeelBanana", Duration: activity.DurationRule{Kind: activity.DurationFixed, Fixed: 30 * time.Minute}},
	}
	if err := storage.NewFilesystemRepository(dir).SaveActivityTypes(types); err != nil {
		t.Fatal(err)
	}
	return dir
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dir, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}
