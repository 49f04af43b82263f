package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var palette = struct {
	text, textMuted, border, selection lipgloss.Color
	ok, info, err                      lipgloss.Color
}{
	text:      lipgloss.Color("252"),
	textMuted: lipgloss.Color("245"),
	border:    lipgloss.Color("240"),
	selection: lipgloss.Color("24"),
	ok:        lipgloss.Color("42"),
	info:      lipgloss.Color("33"),
	err:       lipgloss.Color("196"),
}

type styles struct {
	title, panel, label, value lipgloss.Style
	statusBar, statusSeg, hint lipgloss.Style
	modal, modalTitle          lipgloss.Style
	ok, info, err              lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()

	return styles{
		title:      base.Bold(true).Padding(0, 1),
		panel:      base.BorderStyle(lipgloss.NormalBorder()).BorderForeground(palette.border).Padding(0, 1),
		label:      base.Foreground(palette.textMuted).Width(12),
		value:      base.Foreground(palette.text),
		statusBar:  base.Padding(0, 1),
		statusSeg:  base.MarginRight(2),
		hint:       base.Faint(true).Padding(0, 1),
		modal:      base.Border(lipgloss.RoundedBorder()).BorderForeground(palette.info).Padding(1, 2),
		modalTitle: base.Bold(true).MarginBottom(1),
		ok:         base.Foreground(palette.ok),
		info:       base.Foreground(palette.info),
		err:        base.Foreground(palette.err),
	}
}

func tableStyles() table.Styles {
	tStyles := table.DefaultStyles()
	tStyles.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(palette.textMuted).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.border).
		BorderBottom(true).
		Padding(0, 1)
	tStyles.Cell = lipgloss.NewStyle().
		Padding(0, 1)
	tStyles.Selected = lipgloss.NewStyle().
		Foreground(palette.text).
		Background(palette.selection)
	return tStyles
}
