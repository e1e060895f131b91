package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nathoo/osricore/cli"
	"github.com/nathoo/osricore/observe"
	"github.com/nathoo/osricore/session"
)

// rawLine is an unstyled transcript line. Lines are kept raw so they can be
// re-wrapped when the terminal is resized.
type rawLine struct {
	text string
	kind lineKind
}

// Model is the Bubble Tea model for the osricore TUI.
type Model struct {
	ctx     context.Context
	session *session.Session
	reader  *sdkmetric.ManualReader

	viewport viewport.Model
	input    textinput.Model
	history  *History

	transcript []rawLine

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	lastCmd  string
}

// bannerMsg carries the opening lines into the Update loop.
type bannerMsg []string

// New creates a TUI model wired to the given session. reader may be nil;
// when set, /metrics also reports the recorded instruments.
func New(ctx context.Context, s *session.Session, reader *sdkmetric.ManualReader) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	return Model{
		ctx:     ctx,
		session: s,
		reader:  reader,
		input:   ti,
		history: NewHistory(100),
	}
}

// Run starts the Bubble Tea program and blocks until it exits or ctx ends.
func Run(ctx context.Context, s *session.Session, reader *sdkmetric.ManualReader) error {
	p := tea.NewProgram(New(ctx, s, reader), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	title := m.session.Title()
	if title == "" {
		title = "osricore"
	}
	banner := bannerMsg{title, "", "Type /help for commands."}
	return tea.Batch(textinput.Blink, func() tea.Msg { return banner })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			next, ok := m.history.Next()
			if !ok {
				m.history.ResetCursor()
			}
			m.input.SetValue(next)
			m.input.CursorEnd()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case bannerMsg:
		m.appendTurn("", linesOf(msg, kindNarrative))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize fits the viewport above the status bar and input line.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := max(height-2, 1)
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.refreshViewport()
}

// submit runs the line in the input box: a repeat, a meta-command, or a
// game command through the session.
func (m Model) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}
	m.history.Push(input)
	m.history.ResetCursor()

	switch strings.ToLower(input) {
	case "again", "g":
		if m.lastCmd == "" {
			m.appendTurn(input, linesOf([]string{"Nothing to repeat."}, kindSystem))
			return m, nil
		}
		input = m.lastCmd
	default:
		m.lastCmd = input
	}

	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m.appendTurn(input, linesOf(output, kindSystem))
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	out, err := m.session.Step(m.ctx, input)
	if err != nil {
		m.appendTurn(input, linesOf(strings.Split(err.Error(), "\n"), kindError))
		return m, nil
	}
	var trace []string
	if m.trace {
		trace = cli.TraceLines(out)
	}
	m.appendTurn(input, outputLines(out, trace))
	return m, nil
}

func linesOf(texts []string, kind lineKind) []rawLine {
	out := make([]rawLine, len(texts))
	for i, t := range texts {
		out[i] = rawLine{text: t, kind: kind}
	}
	return out
}

// appendTurn records the echoed input, its output and a blank separator.
func (m *Model) appendTurn(input string, lines []rawLine) {
	if input != "" {
		m.transcript = append(m.transcript, rawLine{text: "> " + input, kind: kindInput})
	}
	m.transcript = append(m.transcript, lines...)
	m.transcript = append(m.transcript, rawLine{})
	m.refreshViewport()
}

// refreshViewport re-wraps and re-styles the transcript at the current
// width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := max(m.width, 10)
	styled := make([]string, len(m.transcript))
	for i, rl := range m.transcript {
		if rl.text == "" {
			continue
		}
		styled[i] = rl.kind.render(wordWrap(rl.text, width))
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// wordWrap breaks text at spaces so no line exceeds width. A single word
// longer than width stays whole.
func wordWrap(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		switch {
		case i == 0:
		case lineLen+1+len(word) > width:
			b.WriteByte('\n')
			lineLen = 0
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. It returns output lines and whether
// to quit.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch parts[0] {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true
	case "/help":
		return append(append([]string(nil), cli.HelpLines...),
			"", "Navigation: PgUp/PgDn to scroll, Up/Down for command history"), false
	case "/state":
		return cli.StateLines(m.session, arg), false
	case "/metrics":
		return m.cmdMetrics(arg), false
	case "/validate":
		if err := m.session.Engine().Validate(); err != nil {
			return strings.Split(err.Error(), "\n"), false
		}
		return []string{"Rule engine is valid."}, false
	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false
	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", parts[0])}, false
	}
}

func (m *Model) cmdMetrics(arg string) []string {
	if arg == "reset" {
		m.session.Engine().ResetMetrics()
		return []string{"Metrics reset."}
	}
	lines := cli.MetricsLines(m.session.Metrics())
	if m.reader == nil {
		return lines
	}
	report, err := observe.Report(m.ctx, m.reader)
	if err != nil {
		return append(lines, fmt.Sprintf("Metrics report failed: %v", err))
	}
	return append(lines, report...)
}

// viewportKeyMap disables Up/Down on the viewport; they browse input
// history instead.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
