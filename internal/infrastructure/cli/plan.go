package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/planning"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show and edit the plan",
}

var planJSONOutput bool

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the directives in the plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		doc, err := services.Plans.LoadPlan()
		if err != nil {
			return MapError(err)
		}

		out := cmd.OutOrStdout()
		if planJSONOutput {
			return writeJSON(out, doc)
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Plan v%d  %s to %s",
			doc.Version, formatTime(doc.Horizon.Start), formatTime(doc.Horizon.End))))
		if len(doc.Directives) == 0 {
			fmt.Fprintln(out, "No directives.")
			return nil
		}

		columns := []table.Column{
			{Title: "ID", Width: 6},
			{Title: "Type", Width: 18},
			{Title: "Name", Width: 20},
			{Title: "Start", Width: 36},
			{Title: "Estimated", Width: 17},
		}
		rows := make([]table.Row, 0, len(doc.Directives))
		for _, d := range doc.Directives {
			rows = append(rows, table.Row{
				d.ID.String(),
				d.Type,
				d.Name,
				d.Start.String(),
				formatTime(d.Start.Estimate()),
			})
		}
		fmt.Fprintln(out, staticTable(columns, rows))
		return nil
	},
}

var (
	createType   string
	createName   string
	createAt     string
	createAnchor string
	createOffset time.Duration
	createPoint  string
	createArgs   []string
)

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a directive to the plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nd, err := newDirectiveFromFlags()
		if err != nil {
			return err
		}

		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		var ids []directive.ID
		report, err := services.Scheduling.Run(cmd.Context(), application.CreateGoal(&ids, nd))
		if err := runError(report, err); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created directive %s (%s)\n", ids[0], nd.Type)
		return nil
	},
}

var deleteStrategy string

var planDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a directive, handling the directives anchored to it",
	Long: `Remove a directive from the plan. Directives anchored to it are handled
by the deleted anchor strategy:

  error             refuse to delete while children exist
  cascade           delete every transitive child too
  anchor_to_parent  re-anchor children to the deleted directive's own anchor
  anchor_to_plan    give children absolute starts at their resolved times`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := directive.ParseID(args[0])
		if err != nil {
			return err
		}

		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		strategy, err := resolveStrategy(services)
		if err != nil {
			return MapError(err)
		}

		report, err := services.Scheduling.Run(cmd.Context(), application.DeleteGoal(id, strategy))
		if err := runError(report, err); err != nil {
			return err
		}

		printDiff(cmd.OutOrStdout(), report.Diff)
		return nil
	},
}

func resolveStrategy(services *wiring.AppServices) (planning.DeletedAnchorStrategy, error) {
	if deleteStrategy == "" {
		return services.Workspace.Config.Strategy()
	}
	return planning.ParseDeletedAnchorStrategy(deleteStrategy)
}

// runError reports the first failed goal of a single-goal run as the
// command's error.
func runError(report *application.RunReport, err error) error {
	if err != nil {
		return MapError(err)
	}
	if len(report.Failures) > 0 {
		return MapError(report.Failures[0].Err)
	}
	return nil
}

func printDiff(out io.Writer, diff []edit.Edit) {
	if len(diff) == 0 {
		fmt.Fprintln(out, "Plan unchanged.")
		return
	}
	for _, e := range diff {
		marker := statusOK.Render("+")
		if e.Kind == edit.KindDelete {
			marker = statusErr.Render("-")
		}
		fmt.Fprintf(out, "%s %s %s %s\n", marker, e.Directive.ID, e.Directive.Type, e.Directive.Start)
	}
}

func newDirectiveFromFlags() (directive.NewDirective, error) {
	nd := directive.NewDirective{Type: createType, Name: createName}
	if createType == "" {
		return nd, errors.New("--type is required")
	}

	switch {
	case createAt != "" && createAnchor != "":
		return nd, errors.New("--at and --anchor are mutually exclusive")
	case createAt != "":
		at, err := time.Parse(time.RFC3339, createAt)
		if err != nil {
			return nd, fmt.Errorf("invalid --at: %w", err)
		}
		nd.Start = directive.Absolute(at)
	case createAnchor != "":
		parent, err := directive.ParseID(createAnchor)
		if err != nil {
			return nd, fmt.Errorf("invalid --anchor: %w", err)
		}
		nd.Start = directive.Anchor(parent, createOffset, directive.AnchorPoint(createPoint), time.Time{})
	default:
		return nd, errors.New("one of --at or --anchor is required")
	}

	args, err := parseArguments(createArgs)
	if err != nil {
		return nd, err
	}
	nd.Arguments = args
	return nd, nil
}

// parseArguments turns key=value pairs into an argument map. Values are
// decoded as YAML scalars so numbers and booleans keep their types.
func parseArguments(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: want key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		args[key] = value
	}
	return args, nil
}

func init() {
	planShowCmd.Flags().BoolVar(&planJSONOutput, "json", false, "Output in JSON format")

	planCreateCmd.Flags().StringVar(&createType, "type", "", "Activity type")
	planCreateCmd.Flags().StringVar(&createName, "name", "", "Directive name")
	planCreateCmd.Flags().StringVar(&createAt, "at", "", "Absolute start (RFC 3339)")
	planCreateCmd.Flags().StringVar(&createAnchor, "anchor", "", "ID of the directive to anchor to")
	planCreateCmd.Flags().DurationVar(&createOffset, "offset", 0, "Offset from the anchor point")
	planCreateCmd.Flags().StringVar(&createPoint, "point", string(directive.AnchorStart), "Anchor point (start or end)")
	planCreateCmd.Flags().StringArrayVar(&createArgs, "arg", nil, "Activity argument as key=value (repeatable)")

	planDeleteCmd.Flags().StringVar(&deleteStrategy, "strategy", "", "Deleted anchor strategy; defaults to the configured strategy")

	planCmd.AddCommand(planShowCmd)
	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planDeleteCmd)
	RootCmd.AddCommand(planCmd)
}
