package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/osricore/osric"
	"github.com/nathoo/osricore/session"
	"github.com/nathoo/osricore/types"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindNarrative lineKind = iota
	kindInput
	kindSystem
	kindError
	kindTrace
	kindHit
	kindMiss
	kindFailure
	kindDamage
	kindDown
	kindDeath
	kindCritical
)

var lineStyles = map[lineKind]lipgloss.Style{
	kindNarrative: lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	kindInput:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	kindSystem:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	kindError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	kindTrace:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	kindHit:       lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true),
	kindMiss:      lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
	kindFailure:   lipgloss.NewStyle().Foreground(lipgloss.Color("180")),
	kindDamage:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
	kindDown:      lipgloss.NewStyle().Foreground(lipgloss.Color("166")).Bold(true),
	kindDeath:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	kindCritical: lipgloss.NewStyle().
		Foreground(lipgloss.Color("231")).
		Background(lipgloss.Color("124")).
		Bold(true),
}

// render styles one wrapped line. System lines are bracketed.
func (k lineKind) render(text string) string {
	if k == kindSystem {
		text = "[" + text + "]"
	}
	return lineStyles[k].Render(text)
}

// messageKind picks the style of a result's message line from its outcome,
// most severe first.
func messageKind(res types.Result) lineKind {
	has := func(tag string) bool { return slices.Contains(res.Effects, tag) }
	switch {
	case res.Critical:
		return kindCritical
	case has(osric.EffectDeath):
		return kindDeath
	case has(osric.EffectUnconscious):
		return kindDown
	case has(osric.EffectDamage):
		return kindDamage
	case has(osric.EffectMiss):
		return kindMiss
	case has(osric.EffectHit):
		return kindHit
	case res.Kind == types.KindFailure:
		return kindFailure
	default:
		return kindNarrative
	}
}

// outputLines turns one step's output into classified lines: the message,
// the damage summary, the critical marker, then trace lines when enabled.
func outputLines(out session.Output, trace []string) []rawLine {
	res := out.Result
	var lines []rawLine
	for _, text := range session.Format(res) {
		kind := kindNarrative
		switch {
		case text == res.Message:
			kind = messageKind(res)
		case strings.HasPrefix(text, "Damage:"):
			kind = kindDamage
		case res.Critical:
			kind = kindCritical
		}
		lines = append(lines, rawLine{text: text, kind: kind})
	}
	for _, text := range trace {
		lines = append(lines, rawLine{text: text, kind: kindTrace})
	}
	return lines
}
