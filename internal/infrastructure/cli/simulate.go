package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/watch"
	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
	"github.com/felixgeelhaar/chronoplan/pkg/storage"
)

var (
	simulateUntil string
	simulateAfter time.Duration
	simulateJSON  bool
	simulateWatch bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate the plan and show when each directive runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := simulationOptionsFromFlags()
		if err != nil {
			return err
		}
		if err := simulateOnce(cmd.Context(), cmd.OutOrStdout(), opts); err != nil {
			return err
		}
		if !simulateWatch {
			return nil
		}
		return watchAndSimulate(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

// simulateOnce wires fresh services so edits to the types file are picked up.
func simulateOnce(ctx context.Context, out io.Writer, opts simulation.Options) error {
	services, err := loadServicesForCurrentDir()
	if err != nil {
		return err
	}
	defer services.Close()

	var results *simulation.Results
	report, err := services.Scheduling.Run(ctx, application.SimulateGoal(opts, &results))
	if err := runError(report, err); err != nil {
		return err
	}

	spans, ok := simulation.Spans(results)
	if !ok {
		return MapError(errors.New("simulator returned no span layout"))
	}

	if simulateJSON {
		return writeJSON(out, spans)
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Simulated until %s", formatTime(results.SimulatedUntil()))))
	if len(spans) == 0 {
		fmt.Fprintln(out, "Nothing scheduled in this window.")
		return nil
	}
	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Type", Width: 18},
		{Title: "Start", Width: 17},
		{Title: "End", Width: 17},
		{Title: "Duration", Width: 10},
	}
	rows := make([]table.Row, 0, len(spans))
	for _, s := range spans {
		rows = append(rows, table.Row{
			s.ID.String(),
			s.Type,
			formatTime(s.Start),
			formatTime(s.End),
			s.End.Sub(s.Start).String(),
		})
	}
	fmt.Fprintln(out, staticTable(columns, rows))
	return nil
}

// watchAndSimulate re-simulates whenever the plan, types or config change,
// until interrupted.
func watchAndSimulate(ctx context.Context, out io.Writer, opts simulation.Options) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	files := []string{
		storage.PlanFile,
		ws.Config.TypesFile,
		config.File,
		storage.DatabaseFile,
		storage.DatabaseFile + "-wal",
	}
	w, err := watch.New(ws.Repo.Dir(), files, 0, ws.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(out, statusWarn.Render("Watching for changes. Press Ctrl+C to stop."))
	err = w.Run(ctx, func(ctx context.Context, batch []watch.Change) error {
		fmt.Fprintf(out, "\n%d file(s) changed\n", len(batch))
		return simulateOnce(ctx, out, opts)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func simulationOptionsFromFlags() (simulation.Options, error) {
	switch {
	case simulateUntil != "" && simulateAfter > 0:
		return simulation.Options{}, errors.New("--until and --after are mutually exclusive")
	case simulateUntil != "":
		until, err := time.Parse(time.RFC3339, simulateUntil)
		if err != nil {
			return simulation.Options{}, fmt.Errorf("invalid --until: %w", err)
		}
		return simulation.Options{Pause: simulation.PauseAt(until)}, nil
	case simulateAfter > 0:
		return simulation.Options{Pause: simulation.PauseAfter(simulateAfter)}, nil
	default:
		return simulation.DefaultOptions(), nil
	}
}

func init() {
	simulateCmd.Flags().StringVar(&simulateUntil, "until", "", "Stop at this instant (RFC 3339)")
	simulateCmd.Flags().DurationVar(&simulateAfter, "after", 0, "Stop this long after the horizon start")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "Output in JSON format")
	simulateCmd.Flags().BoolVar(&simulateWatch, "watch", false, "Simulate again whenever the plan, types or config change")
	RootCmd.AddCommand(simulateCmd)
}
