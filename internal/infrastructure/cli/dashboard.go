package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chronoplan/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/chronoplan/pkg/application"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/directive"
	"github.com/felixgeelhaar/chronoplan/pkg/domain/simulation"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI of the plan and its simulated timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		defer services.Close()

		m := initialModel(cmd.Context(), services)
		if os.Getenv("CHRONOPLAN_SKIP_DASHBOARD_RUN") == "true" {
			if m.err != nil {
				return MapError(m.err)
			}
			return nil
		}
		p := tea.NewProgram(m)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("dashboard run failed: %w", err)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(dashboardCmd)
}

var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

type model struct {
	table    table.Model
	version  int
	horizon  string
	backend  string
	unplaced []directive.ID
	err      error
}

// initialModel loads the plan and lays it out with one simulation run.
// Simulating does not edit the plan, so nothing is saved.
func initialModel(ctx context.Context, services *wiring.AppServices) model {
	doc, err := services.Plans.LoadPlan()
	if err != nil {
		return model{err: err}
	}

	var results *simulation.Results
	report, err := services.Scheduling.Run(ctx, application.SimulateGoal(simulation.DefaultOptions(), &results))
	if err := runError(report, err); err != nil {
		return model{err: err}
	}
	spans, _ := simulation.Spans(results)
	byID := make(map[directive.ID]simulation.Span, len(spans))
	for _, s := range spans {
		byID[s.ID] = s
	}

	columns := []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Type", Width: 18},
		{Title: "Name", Width: 20},
		{Title: "Start", Width: 17},
		{Title: "End", Width: 17},
		{Title: "Anchor", Width: 30},
	}

	var unplaced []directive.ID
	rows := make([]table.Row, 0, len(doc.Directives))
	for _, d := range doc.Directives {
		anchor := "-"
		if d.IsAnchored() {
			anchor = d.Start.String()
		}
		s, ok := byID[d.ID]
		if !ok {
			unplaced = append(unplaced, d.ID)
		}
		rows = append(rows, table.Row{
			d.ID.String(), d.Type, d.Name, formatTime(s.Start), formatTime(s.End), anchor,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))
	t.SetStyles(s)

	return model{
		table:    t,
		version:  doc.Version,
		horizon:  fmt.Sprintf("%s to %s", formatTime(doc.Horizon.Start), formatTime(doc.Horizon.End)),
		backend:  services.Workspace.Config.Backend,
		unplaced: unplaced,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error loading dashboard: %v\nPress q to quit.", m.err)
	}

	header := headerStyle.Render(fmt.Sprintf("Plan v%d  %s", m.version, m.horizon))

	status := statusOK.Render("\nEvery directive placed on the timeline")
	if len(m.unplaced) > 0 {
		status = statusWarn.Render(fmt.Sprintf("\n%d directives fall outside the horizon: %v", len(m.unplaced), m.unplaced))
	}

	return baseStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header,
			fmt.Sprintf("Backend: %s", m.backend),
			"\nDirectives:",
			m.table.View(),
			status,
			"\nPress q to quit.",
		),
	) + "\n"
}
