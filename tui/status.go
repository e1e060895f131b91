package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/osric"
)

// renderStatusBar produces a full-width inverted status line showing the
// scenario, the creatures still standing, and the engine metrics.
func (m Model) renderStatusBar() string {
	title := m.session.Title()
	if title == "" {
		title = "osricore"
	}

	standing, total := m.headcount()
	left := fmt.Sprintf(" %s | Standing: %d/%d", title, standing, total)

	met := m.session.Metrics()
	right := fmt.Sprintf("Cmds:%d ", met.CommandsProcessed)
	candidate := fmt.Sprintf("Cmds:%d OK:%.0f%% Avg:%s ",
		met.CommandsProcessed, met.SuccessRate*100, met.AverageExecutionTime.Round(1000))
	if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
		right = candidate
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}

// headcount counts creatures (entities tracking hit points) and how many of
// them are conscious.
func (m Model) headcount() (standing, total int) {
	ents := m.session.Context().Entities()
	for _, id := range ents.IDs() {
		ent, _ := ents.Get(id)
		if _, ok := state.IntProp(ent, "hp"); !ok {
			continue
		}
		total++
		if osric.Conscious(ent) {
			standing++
		}
	}
	return standing, total
}
