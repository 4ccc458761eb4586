package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/activity"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the registered activity types",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		out := cmd.OutOrStdout()
		types := services.Types.Types()
		if len(types) == 0 {
			fmt.Fprintf(out, "No activity types registered. Add them to %s.\n", services.Workspace.Config.TypesFile)
			return nil
		}

		columns := []table.Column{
			{Title: "Type", Width: 20},
			{Title: "Duration", Width: 32},
			{Title: "Schema", Width: 8},
		}
		rows := make([]table.Row, 0, len(types))
		for _, t := range types {
			schema := "-"
			if t.Schema != nil {
				schema = "yes"
			}
			rows = append(rows, table.Row{t.Name, describeDuration(t.Duration), schema})
		}
		fmt.Fprintln(out, staticTable(columns, rows))
		return nil
	},
}

func describeDuration(rule activity.DurationRule) string {
	switch rule.Kind {
	case activity.DurationFixed:
		return fmt.Sprintf("fixed %s", rule.Fixed)
	case activity.DurationControllable:
		return fmt.Sprintf("controllable by %q", rule.Parameter)
	default:
		return string(rule.Kind)
	}
}

func init() {
	RootCmd.AddCommand(typesCmd)
}
