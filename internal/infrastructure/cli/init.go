package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/config"
	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/plan"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

var (
	initStart   string
	initHorizon time.Duration
	initBackend string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new chronoplan workspace with an empty plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := loadWorkspace()
		if err != nil {
			return err
		}
		if ws.Repo.IsInitialized() {
			return NewCLIError("workspace already initialized", "Edit the existing plan with 'chronoplan plan'", nil)
		}

		cfg := config.Default()
		if initBackend != "" {
			cfg.Backend = initBackend
		}
		if initHorizon > 0 {
			cfg.Horizon = initHorizon
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		start := time.Now().UTC().Truncate(time.Hour)
		if initStart != "" {
			start, err = time.Parse(time.RFC3339, initStart)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		}
		horizon, err := plan.NewHorizon(start, start.Add(cfg.Horizon))
		if err != nil {
			return err
		}

		if err := ws.Repo.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}
		if err := config.Save(ws.Repo.Root(), cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		if err := ws.Repo.SaveActivityTypes(nil); err != nil {
			return fmt.Errorf("failed to write activity types: %w", err)
		}
		ws.Config = cfg

		services, err := wiring.BuildAppServices(ws)
		if err != nil {
			return MapError(err)
		}
		defer services.Close()

		if err := services.Plans.SavePlan(&planning.Document{Horizon: horizon}); err != nil {
			return MapError(fmt.Errorf("failed to save plan: %w", err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized chronoplan workspace in %s\n", ws.Repo.Dir())
		fmt.Fprintf(cmd.OutOrStdout(), "Horizon: %s to %s (%s backend)\n",
			horizon.Start.Format(time.RFC3339), horizon.End.Format(time.RFC3339), cfg.Backend)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initStart, "start", "", "Horizon start (RFC 3339); defaults to the current hour")
	initCmd.Flags().DurationVar(&initHorizon, "horizon", 0, "Horizon length; defaults to the configured horizon")
	initCmd.Flags().StringVar(&initBackend, "backend", "", "Storage backend (yaml or sqlite)")
	RootCmd.AddCommand(initCmd)
}
