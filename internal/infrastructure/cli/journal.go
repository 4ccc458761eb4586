package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chronoplan/pkg/domain/edit"
)

var journalVerify bool

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the commit journal of saved scheduling runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		out := cmd.OutOrStdout()
		if journalVerify {
			violations, err := services.Journal.VerifyIntegrity()
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				fmt.Fprintln(out, statusOK.Render("Journal integrity OK"))
				return nil
			}
			fmt.Fprintln(out, statusErr.Render("Journal integrity violations:"))
			for _, v := range violations {
				fmt.Fprintf(out, "- %s\n", v)
			}
			return NewCLIError(fmt.Sprintf("%d journal violations", len(violations)), "The journal was edited outside chronoplan", nil)
		}

		entries, err := services.Journal.LoadAll()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "Journal is empty.")
			return nil
		}

		columns := []table.Column{
			{Title: "When", Width: 17},
			{Title: "Session", Width: 10},
			{Title: "Commits", Width: 8},
			{Title: "Created", Width: 8},
			{Title: "Deleted", Width: 8},
		}
		rows := make([]table.Row, 0, len(entries))
		for _, e := range entries {
			created, deleted := 0, 0
			for _, d := range e.Diff {
				if d.Kind == edit.KindCreate {
					created++
				} else {
					deleted++
				}
			}
			session := e.SessionID
			if len(session) > 8 {
				session = session[:8]
			}
			rows = append(rows, table.Row{
				formatTime(e.Timestamp),
				session,
				fmt.Sprintf("%d", e.Commits),
				fmt.Sprintf("%d", created),
				fmt.Sprintf("%d", deleted),
			})
		}
		fmt.Fprintln(out, staticTable(columns, rows))
		return nil
	},
}

func init() {
	journalCmd.Flags().BoolVar(&journalVerify, "verify", false, "Check the hash chain for tampering")
	RootCmd.AddCommand(journalCmd)
}
