package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethan/hsm"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	logHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	logRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// renderBanner prints the machine's current state path, the one-shot
// terminal report fatflowers-gar's tui package renders for a status
// pane, adapted here since the engine itself has no interactive UI.
func renderBanner(m *hsm.Machine) {
	names := make([]string, 0)
	for _, s := range m.CurrentPath() {
		names = append(names, s.Name())
	}
	path := strings.Join(names, " > ")
	if path == "" {
		path = "(null)"
	}
	fmt.Println(bannerStyle.Render(m.String()))
	fmt.Println(pathStyle.Render("path: " + path))
}

// renderLogRing prints the machine's log ring as a small table.
func renderLogRing(m *hsm.Machine) {
	fmt.Println(logHeaderStyle.Render(fmt.Sprintf("log ring (%d entries, %d total recorded)", m.GetLogRecSize(), m.GetLogRecCount())))
	for _, rec := range m.CopyLogRecs() {
		row := fmt.Sprintf("#%-4d %-10s what=%-3d origin=%-10s handler=%-10s dest=%-10s",
			rec.Seq, rec.Kind, rec.What, rec.Origin, rec.Handler, rec.Dest)
		fmt.Println(logRowStyle.Render(row))
	}
}
