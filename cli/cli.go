// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for an osricore session.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/nathoo/osricore/observe"
	"github.com/nathoo/osricore/session"
	"github.com/nathoo/osricore/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Session   *session.Session
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)
	// Reader, when set, backs /metrics with the recorded instruments.
	Reader  *sdkmetric.ManualReader
	lastCmd string // for "again"/"g" repeat
}

// New creates a CLI wired to the given session.
func New(s *session.Session) *CLI {
	return &CLI{
		Session: s,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run starts the input loop: prompt → input → dispatch → output. It returns
// when input ends, on /quit, or when ctx is done.
func (c *CLI) Run(ctx context.Context) {
	if title := c.Session.Title(); title != "" {
		c.printLine(title)
		c.printLine("")
	}

	scanner := bufio.NewScanner(c.In)
	for ctx.Err() == nil {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if session.IsComment(input) {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		// Meta-commands start with '/'.
		if strings.HasPrefix(input, "/") {
			if c.handleMeta(ctx, input) {
				return // /quit
			}
			continue
		}

		// "again" / "g" repeats the last command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		out, err := c.Session.Step(ctx, input)
		if err != nil {
			c.printSystem(err.Error())
			continue
		}
		for _, line := range out.Lines() {
			c.printLine(line)
		}
		if c.Trace {
			c.printTrace(out)
		}
	}
}

// handleMeta dispatches meta-commands. Returns true if the session should exit.
func (c *CLI) handleMeta(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState(arg)

	case "/metrics":
		c.cmdMetrics(ctx, arg)

	case "/validate":
		if err := c.Session.Engine().Validate(); err != nil {
			c.printSystem(err.Error())
		} else {
			c.printSystem("Rule engine is valid.")
		}

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

// HelpLines is the /help text, shared with the TUI.
var HelpLines = []string{
	"System:",
	"  /quit            Exit",
	"  /help            Show this help",
	"  /state [id]      Dump entities, or one entity",
	"  /metrics [reset] Show or reset engine metrics",
	"  /validate        Check rule chain wiring",
	"  /trace           Toggle rule trace output",
	"",
	"Commands:",
	"  attack <actor> <target> [with <weapon>] [bonus=N]",
	"  move <actor> <feet>",
	"  system shock <subject> [reason=...]",
	"  death save <subject> [reason=...]",
	"  again (g)        Repeat the last command",
}

func (c *CLI) cmdHelp() {
	for _, line := range HelpLines {
		c.printLine(line)
	}
}

func (c *CLI) cmdState(id string) {
	for _, line := range StateLines(c.Session, id) {
		c.printSystem(line)
	}
}

func (c *CLI) cmdMetrics(ctx context.Context, arg string) {
	if arg == "reset" {
		c.Session.Engine().ResetMetrics()
		c.printSystem("Metrics reset.")
		return
	}
	for _, line := range MetricsLines(c.Session.Metrics()) {
		c.printSystem(line)
	}
	if c.Reader == nil {
		return
	}
	lines, err := observe.Report(ctx, c.Reader)
	if err != nil {
		c.printSystem(fmt.Sprintf("Metrics report failed: %v", err))
		return
	}
	for _, line := range lines {
		c.printSystem(line)
	}
}

// StateLines describes every entity, or only id when it is set.
func StateLines(s *session.Session, id string) []string {
	ents := s.Context().Entities()
	ids := ents.IDs()
	if id != "" {
		if !ents.Has(id) {
			return []string{fmt.Sprintf("No entity %q.", id)}
		}
		ids = []string{id}
	}
	if len(ids) == 0 {
		return []string{"No entities."}
	}
	lines := make([]string, 0, len(ids))
	for _, eid := range ids {
		ent, _ := ents.Get(eid)
		lines = append(lines, fmt.Sprintf("%s (%s) %q %s", eid, ent.Kind, ent.Name, formatProps(ent.Props)))
	}
	return lines
}

// MetricsLines formats an engine metrics snapshot.
func MetricsLines(m types.Metrics) []string {
	lines := []string{
		fmt.Sprintf("Commands: %d", m.CommandsProcessed),
		fmt.Sprintf("Success rate: %.0f%%", m.SuccessRate*100),
		fmt.Sprintf("Average time: %s", m.AverageExecutionTime),
	}
	names := make([]string, 0, len(m.RuleChainUsage))
	for name := range m.RuleChainUsage {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("Chain %s: %d", name, m.RuleChainUsage[name]))
	}
	return lines
}

// TraceLines lists the command id, effects and per-rule data of an output.
func TraceLines(out session.Output) []string {
	lines := []string{fmt.Sprintf("[trace] %s %s (%s)", out.Request.Verb, out.CommandID, out.Result.Kind)}
	if len(out.Result.Effects) > 0 {
		lines = append(lines, fmt.Sprintf("[trace] Effects: %s", strings.Join(out.Result.Effects, ", ")))
	}
	rules := make([]string, 0, len(out.Result.Data))
	for name := range out.Result.Data {
		rules = append(rules, name)
	}
	sort.Strings(rules)
	for _, name := range rules {
		lines = append(lines, fmt.Sprintf("[trace]   %s %v", name, out.Result.Data[name]))
	}
	return lines
}

func (c *CLI) printTrace(out session.Output) {
	for _, line := range TraceLines(out) {
		c.printLine(line)
	}
}

func formatProps(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, props[k])
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
