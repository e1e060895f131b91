package tui

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/osricore/config"
	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/osric"
	"github.com/nathoo/osricore/session"
	"github.com/nathoo/osricore/types"
)

func TestMessageKind(t *testing.T) {
	tests := []struct {
		name string
		res  types.Result
		want lineKind
	}{
		{"hit", types.Result{Kind: types.KindSuccess, Effects: []string{"hit"}}, kindHit},
		{"miss", types.Result{Kind: types.KindFailure, Effects: []string{"miss"}}, kindMiss},
		{"wound", types.Result{Kind: types.KindSuccess, Effects: []string{"hit", "damage"}}, kindDamage},
		{"knocked out", types.Result{Kind: types.KindSuccess, Effects: []string{"hit", "damage", "unconscious"}}, kindDown},
		{"killed", types.Result{Kind: types.KindSuccess, Effects: []string{"hit", "damage", "death"}}, kindDeath},
		{"critical", types.Result{Kind: types.KindFailure, Critical: true, Effects: []string{"death"}}, kindCritical},
		{"plain failure", types.Result{Kind: types.KindFailure}, kindFailure},
		{"move", types.Result{Kind: types.KindSuccess, Effects: []string{"move"}}, kindNarrative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageKind(tt.res); got != tt.want {
				t.Errorf("messageKind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputLines(t *testing.T) {
	out := session.Output{Result: types.Result{
		Kind:     types.KindFailure,
		Message:  "Aldric fails the death-save and dies",
		Damage:   []int{3},
		Critical: true,
	}}
	got := outputLines(out, []string{"[trace] death-save"})
	want := []rawLine{
		{text: "Aldric fails the death-save and dies", kind: kindCritical},
		{text: "Damage: 3", kind: kindDamage},
		{text: "Critical failure.", kind: kindCritical},
		{text: "[trace] death-save", kind: kindTrace},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(rawLine{})); diff != "" {
		t.Errorf("outputLines (-want +got):\n%s", diff)
	}
}

func TestWordWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"short", 80, "short"},
		{"hello world", 5, "hello\nworld"},
		{"The great hall stretches before you with its vaulted ceiling.", 30,
			"The great hall stretches\nbefore you with its vaulted\nceiling."},
		{"", 80, ""},
		{"one", 80, "one"},
		{"a b c d e", 3, "a b\nc d\ne"},
	}
	for _, tt := range tests {
		got := wordWrap(tt.text, tt.width)
		if got != tt.want {
			t.Errorf("wordWrap(%q, %d) =\n  %q\nwant:\n  %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")
	h.Push("take key")

	prev, ok := h.Prev()
	if !ok || prev != "take key" {
		t.Errorf("expected 'take key', got %q (ok=%v)", prev, ok)
	}

	prev, ok = h.Prev()
	if !ok || prev != "go north" {
		t.Errorf("expected 'go north', got %q (ok=%v)", prev, ok)
	}

	prev, ok = h.Prev()
	if !ok || prev != "look" {
		t.Errorf("expected 'look', got %q (ok=%v)", prev, ok)
	}

	// At oldest, stays there.
	prev, ok = h.Prev()
	if !ok || prev != "look" {
		t.Errorf("expected 'look' at boundary, got %q (ok=%v)", prev, ok)
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")

	h.Prev() // "go north"
	h.Prev() // "look"

	next, ok := h.Next()
	if !ok || next != "go north" {
		t.Errorf("expected 'go north', got %q (ok=%v)", next, ok)
	}

	_, ok = h.Next()
	if ok {
		t.Error("expected false when past newest entry")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	_, ok := h.Prev()
	if ok {
		t.Error("expected false on empty history")
	}
	_, ok = h.Next()
	if ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("c") // "a" evicted

	prev, _ := h.Prev()
	if prev != "c" {
		t.Errorf("expected 'c', got %q", prev)
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b', got %q", prev)
	}
	// "a" is gone.
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b' at boundary, got %q", prev)
	}
}

func TestHistory_NoDuplicates(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("look") // skipped
	h.Push("look") // skipped

	if len(h.entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(h.entries))
	}
}

func TestHistory_ResetCursor(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")

	h.Prev() // "go north"
	h.ResetCursor()

	// After reset, Prev starts from the end again.
	prev, ok := h.Prev()
	if !ok || prev != "go north" {
		t.Errorf("expected 'go north' after reset, got %q", prev)
	}
}

func newModel(t *testing.T, rolls ...int) Model {
	t.Helper()
	cfg := config.Default()
	cfg.Engine.EnableLogging = false
	s, err := session.New(&cfg,
		session.WithLogger(slog.New(slog.DiscardHandler)),
		session.WithRoller(dice.NewFixed(rolls...)),
		session.WithScenario(&types.Scenario{
			Title: "Test Skirmish",
			Entities: []types.Entity{
				{ID: "fighter", Kind: "character", Name: "Aldric", Props: map[string]any{"hp": 10, "thac0": 17}},
				{ID: "goblin", Kind: "monster", Name: "Goblin", Props: map[string]any{"hp": 2, "ac": 6}},
				{ID: "torch", Kind: "item", Name: "Torch"},
			},
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return New(context.Background(), s, nil)
}

func TestHandleMeta_Quit(t *testing.T) {
	m := newModel(t)

	_, quit := m.handleMeta("/quit")
	if !quit {
		t.Error("expected quit=true for /quit")
	}

	_, quit = m.handleMeta("/exit")
	if !quit {
		t.Error("expected quit=true for /exit")
	}
}

func TestHandleMeta_Help(t *testing.T) {
	m := newModel(t)

	output, quit := m.handleMeta("/help")
	if quit {
		t.Error("help should not quit")
	}

	joined := strings.Join(output, "\n")
	for _, expected := range []string{"/metrics", "/validate", "/quit", "attack", "PgUp/PgDn"} {
		if !strings.Contains(joined, expected) {
			t.Errorf("expected %q in help output", expected)
		}
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := newModel(t)

	output, _ := m.handleMeta("/trace")
	if !m.trace {
		t.Error("expected trace to be enabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected enabled message, got %v", output)
	}

	output, _ = m.handleMeta("/trace")
	if m.trace {
		t.Error("expected trace to be disabled")
	}
	if len(output) == 0 || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected disabled message, got %v", output)
	}
}

func TestHandleMeta_Unknown(t *testing.T) {
	m := newModel(t)

	output, quit := m.handleMeta("/bogus")
	if quit {
		t.Error("unknown command should not quit")
	}
	if len(output) == 0 || !strings.Contains(output[0], "Unknown command") {
		t.Errorf("expected unknown command message, got %v", output)
	}
}

func TestHandleMeta_StateAndMetrics(t *testing.T) {
	m := newModel(t)

	output, _ := m.handleMeta("/state fighter")
	if len(output) != 1 || !strings.Contains(output[0], `fighter (character) "Aldric"`) {
		t.Errorf("unexpected state output %v", output)
	}

	output, _ = m.handleMeta("/metrics")
	if len(output) == 0 || output[0] != "Commands: 0" {
		t.Errorf("unexpected metrics output %v", output)
	}

	output, _ = m.handleMeta("/validate")
	if len(output) != 1 || output[0] != "Rule engine is valid." {
		t.Errorf("unexpected validate output %v", output)
	}
}

func submit(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model)
}

func TestEnter_RunsCommandAndUpdatesStatus(t *testing.T) {
	m := newModel(t, 15, 2)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	m = next.(Model)

	m = submit(t, m, "attack aldric goblin")

	var texts []string
	for _, rl := range m.transcript {
		texts = append(texts, rl.text)
	}
	joined := strings.Join(texts, "\n")
	if !strings.Contains(joined, "> attack aldric goblin") {
		t.Error("expected echoed input")
	}
	if !strings.Contains(joined, "Goblin takes 2 damage and falls unconscious") {
		t.Errorf("expected attack outcome, got:\n%s", joined)
	}

	bar := m.renderStatusBar()
	if !strings.Contains(bar, "Standing: 1/2") {
		t.Errorf("status bar = %q, want one of two standing", bar)
	}
	if !strings.Contains(bar, "Cmds:1") {
		t.Errorf("status bar = %q, want one command", bar)
	}
}

func TestEnter_InputErrorIsStyledAsError(t *testing.T) {
	m := newModel(t)
	m = submit(t, m, "attack aldric dragon")

	var found bool
	for _, rl := range m.transcript {
		if rl.kind == kindError && strings.Contains(rl.text, "dragon") {
			found = true
		}
	}
	if !found {
		t.Error("expected an error line naming the unknown target")
	}
}

func TestEnter_AgainWithoutHistory(t *testing.T) {
	m := newModel(t)
	m = submit(t, m, "again")

	last := m.transcript[len(m.transcript)-2]
	if last.text != "Nothing to repeat." || last.kind != kindSystem {
		t.Errorf("last line = %+v", last)
	}
}

func TestEnter_FailedDeathSaveIsCritical(t *testing.T) {
	m := newModel(t, 3)
	m = submit(t, m, "death save aldric")

	var kinds []lineKind
	for _, rl := range m.transcript {
		if rl.kind == kindCritical {
			kinds = append(kinds, rl.kind)
		}
	}
	if len(kinds) != 2 {
		t.Errorf("critical lines = %d, want the message and the marker:\n%+v", len(kinds), m.transcript)
	}
	fighter, _ := m.session.Context().Entity("fighter")
	if osric.Status(fighter) != osric.StatusDead {
		t.Errorf("status = %q, want dead", osric.Status(fighter))
	}
}
