package output

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Field is one labelled row in a panel.
type Field struct {
	Label string
	Value string
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

// Panel renders a titled block of aligned label/value rows. With colors
// disabled it falls back to plain indented text.
func Panel(title string, fields []Field) string {
	width := 0
	for _, f := range fields {
		if w := lipgloss.Width(f.Label); w > width {
			width = w
		}
	}

	rows := make([]string, 0, len(fields)+1)
	rows = append(rows, Heading(title))
	for _, f := range fields {
		label := f.Label + ":" + strings.Repeat(" ", width-lipgloss.Width(f.Label)+1)
		rows = append(rows, render(labelStyle, label)+f.Value)
	}

	if !enabled {
		return strings.Join(rows, "\n  ")
	}
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// Presence renders "Set" in green and anything else dimmed.
func Presence(value string) string {
	if value == "Set" {
		return Success(value)
	}
	return Dim(value)
}
