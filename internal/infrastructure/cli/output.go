package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var (
	statusOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	statusErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const timeLayout = "2006-01-02 15:04"

// staticTable renders rows once, without selection highlighting.
func staticTable(columns []table.Column, rows []table.Row) string {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	t.SetStyles(s)
	return t.View()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
