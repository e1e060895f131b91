package session

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nathoo/osricore/config"
	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/types"
)

// Script is a named list of input lines played through one session.
type Script struct {
	Name  string
	Lines []string
}

// Step is one played line and what it produced.
type Step struct {
	Line   string
	Output Output
	Err    error
}

// Transcript is the record of one played script.
type Transcript struct {
	Name      string
	SessionID string
	Steps     []Step
	Metrics   types.Metrics
	// Seed and Rolls locate the session's dice; both are zero for a
	// session built with WithRoller.
	Seed  int64
	Rolls int64
}

// Manager plays scripts through independent sessions. Each session owns its
// engine, game context and dice; only the scenario definition and the
// instruments are shared.
type Manager struct {
	cfg   *config.Config
	opts  []Option
	limit int
}

// NewManager creates a manager building sessions from cfg and opts. Options
// must not carry a roller, since sessions run concurrently.
func NewManager(cfg *config.Config, limit int, opts ...Option) *Manager {
	return &Manager{cfg: cfg, opts: opts, limit: limit}
}

// RunScripts plays every script in its own session, concurrently, and
// returns the transcripts in input order. Input errors are recorded in the
// transcript; configuration errors abort every script.
func (m *Manager) RunScripts(ctx context.Context, scripts []Script) ([]Transcript, error) {
	out := make([]Transcript, len(scripts))

	g, gctx := errgroup.WithContext(ctx)
	if m.limit > 0 {
		g.SetLimit(m.limit)
	}
	for i, sc := range scripts {
		g.Go(func() error {
			t, err := m.play(gctx, sc)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) play(ctx context.Context, sc Script) (Transcript, error) {
	s, err := New(m.cfg, m.opts...)
	if err != nil {
		return Transcript{}, err
	}
	s.logger.Debug("playing script", slog.String("script", sc.Name), slog.Int("lines", len(sc.Lines)))

	t := Transcript{Name: sc.Name, SessionID: s.ID()}
	for _, line := range sc.Lines {
		if err := ctx.Err(); err != nil {
			return Transcript{}, err
		}
		if IsComment(line) {
			continue
		}
		o, err := s.Step(ctx, line)
		if err != nil && isFatal(err) {
			return Transcript{}, err
		}
		t.Steps = append(t.Steps, Step{Line: line, Output: o, Err: err})
	}
	t.Metrics = s.Metrics()
	t.Seed, t.Rolls, _ = s.Dice()
	return t, nil
}

// IsComment reports whether a script line is blank or a # comment.
func IsComment(line string) bool {
	for _, r := range line {
		switch r {
		case ' ', '\t':
			continue
		case '#':
			return true
		default:
			return false
		}
	}
	return true
}

func isFatal(err error) bool {
	return engine.IsConfigError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
