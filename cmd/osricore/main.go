// osricore runs OSRIC-style combat, movement and survival commands through a
// rule engine, interactively or from script files.
// Usage: osricore [--version] [--plain] [--trace] [--config <file>] [--script <file>]... [scenario_directory]
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nathoo/osricore/cli"
	"github.com/nathoo/osricore/config"
	"github.com/nathoo/osricore/observe"
	"github.com/nathoo/osricore/session"
	"github.com/nathoo/osricore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: osricore [--version] [--plain] [--trace] [--config <file>] [--script <file>]... [scenario_directory]\n"

func main() {
	plain := false
	trace := false
	var configFile, scenarioDir string
	var scripts []string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("osricore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--config", "--script":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a file path\n", args[i])
				os.Exit(1)
			}
			if args[i] == "--config" {
				configFile = args[i+1]
			} else {
				scripts = append(scripts, args[i+1])
			}
			i++
		case "--help", "-h":
			fmt.Print(usage)
			return
		default:
			if scenarioDir == "" {
				scenarioDir = args[i]
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, configFile, scenarioDir, scripts, plain, trace); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, scenarioDir string, scripts []string, plain, trace bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if scenarioDir != "" {
		if err := cfg.SetScripts(scenarioDir); err != nil {
			return err
		}
	}

	level, err := observe.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := observe.NewLogger(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)

	mp, reader := observe.NewManualProvider()
	defer mp.Shutdown(context.Background())
	inst, err := observe.NewMetrics(mp)
	if err != nil {
		return err
	}
	opts := []session.Option{session.WithLogger(logger), session.WithInstruments(inst)}

	// Several scripts: play them side by side, one session each.
	if len(scripts) > 1 {
		return playAll(ctx, cfg, scripts, opts)
	}

	s, err := session.New(cfg, opts...)
	if err != nil {
		return err
	}

	// Script mode: open file, force plain, echo commands.
	if len(scripts) == 1 {
		f, err := os.Open(scripts[0])
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(s)
		c.In = f
		c.EchoInput = true
		c.Trace = trace
		c.Reader = reader
		c.Run(ctx)
		return nil
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		c := cli.New(s)
		c.Trace = trace
		c.Reader = reader
		c.Run(ctx)
		return nil
	}

	return tui.Run(ctx, s, reader)
}

func playAll(ctx context.Context, cfg *config.Config, paths []string, opts []session.Option) error {
	scripts := make([]session.Script, 0, len(paths))
	for _, path := range paths {
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		scripts = append(scripts, session.Script{Name: path, Lines: lines})
	}

	transcripts, err := session.NewManager(cfg, 0, opts...).RunScripts(ctx, scripts)
	if err != nil {
		return err
	}
	for _, t := range transcripts {
		fmt.Printf("== %s (session %s, seed %d, %d rolls)\n", t.Name, t.SessionID, t.Seed, t.Rolls)
		for _, st := range t.Steps {
			fmt.Printf("> %s\n", st.Line)
			if st.Err != nil {
				fmt.Printf("[%v]\n", st.Err)
				continue
			}
			for _, line := range st.Output.Lines() {
				fmt.Println(line)
			}
		}
		for _, line := range cli.MetricsLines(t.Metrics) {
			fmt.Printf("[%s]\n", line)
		}
		fmt.Println()
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	return lines, nil
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
