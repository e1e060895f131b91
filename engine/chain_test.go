package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

var mergeAll = types.ChainConfig{MergeResults: true}

func mustChain(t *testing.T, cfg types.ChainConfig, rules ...Rule) *RuleChain {
	t.Helper()
	c, err := NewRuleChain(cfg, rules...)
	if err != nil {
		t.Fatalf("NewRuleChain: %v", err)
	}
	return c
}

func TestRun_OrdersByPriority(t *testing.T) {
	var log []string
	c := mustChain(t, mergeAll,
		okRule("thirty", 30, &log),
		okRule("ten", 10, &log),
		okRule("twenty", 20, &log),
	)

	run, err := c.Run(context.Background(), NewGameContext(nil), newTestCommand("attack", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"ten", "twenty", "thirty"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("execution order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, run.Executed()); diff != "" {
		t.Errorf("run steps (-want +got):\n%s", diff)
	}
}

func TestRun_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	var log []string
	c := mustChain(t, mergeAll,
		okRule("b", 50, &log),
		okRule("a", 50, &log),
		okRule("c", 50, &log),
	)
	if _, err := c.Execute(context.Background(), NewGameContext(nil), newTestCommand("x", true)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, log); diff != "" {
		t.Errorf("tie order (-want +got):\n%s", diff)
	}
}

func TestRun_SkipsRulesThatDoNotApply(t *testing.T) {
	var log []string
	skip := okRule("skip", 1, &log)
	skip.applies = false
	c := mustChain(t, mergeAll, skip, okRule("run", 2, &log))

	run, err := c.Run(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"run"}, log); diff != "" {
		t.Errorf("executed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"skip"}, run.Skipped); diff != "" {
		t.Errorf("skipped (-want +got):\n%s", diff)
	}
}

func TestRun_NoApplicableRulesIsSuccess(t *testing.T) {
	r := okRule("never", 1, nil)
	r.applies = false
	c := mustChain(t, mergeAll, r)

	res, err := c.Execute(context.Background(), NewGameContext(nil), newTestCommand("search", true))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != types.KindSuccess {
		t.Errorf("kind = %s, want success", res.Kind)
	}
	if res.Message != "no applicable rules for search" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestRun_FailureWithoutStopContinuesAndMerges(t *testing.T) {
	var log []string
	a := okRule("a", 1, &log)
	a.result = Success("a ok", WithData(map[string]any{"x": 1}), WithEffects("hit"), WithDamage(3))
	b := okRule("b", 2, &log)
	b.result = Failure("nope", WithEffects("miss"))
	c := okRule("c", 3, &log)
	c.result = Success("c ok", WithDamage(2))

	chain := mustChain(t, types.ChainConfig{MergeResults: true, StopOnFailure: false}, a, b, c)
	res, err := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("attack", true))
	if err != nil {
		t.Fatal(err)
	}

	want := types.Result{
		Kind:    types.KindFailure,
		Message: "nope",
		Data:    map[string]any{"a": map[string]any{"x": 1}},
		Effects: []string{"hit", "miss"},
		Damage:  []int{3, 2},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("merged result (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, log); diff != "" {
		t.Errorf("executed (-want +got):\n%s", diff)
	}
}

func TestRun_LatestFailureMessageWins(t *testing.T) {
	first := okRule("first", 1, nil)
	first.result = Failure("first failure")
	second := okRule("second", 2, nil)
	second.result = Failure("second failure")
	chain := mustChain(t, mergeAll, first, second, okRule("after", 3, nil))

	res, _ := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if res.Message != "second failure" {
		t.Errorf("message = %q, want %q", res.Message, "second failure")
	}
	if res.Kind != types.KindFailure {
		t.Errorf("kind = %s, want failure", res.Kind)
	}
}

func TestRun_StopOnFailureHalts(t *testing.T) {
	var log []string
	fail := okRule("fail", 1, &log)
	fail.result = Failure("blocked")
	chain := mustChain(t, types.ChainConfig{MergeResults: true, StopOnFailure: true}, fail, okRule("later", 2, &log))

	run, err := chain.Run(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"fail"}, log); diff != "" {
		t.Errorf("executed (-want +got):\n%s", diff)
	}
	if !run.Stopped || !run.Result.StopChain {
		t.Errorf("expected stopped run, got Stopped=%v StopChain=%v", run.Stopped, run.Result.StopChain)
	}
}

func TestRun_CriticalFailureHaltsRegardlessOfConfig(t *testing.T) {
	var log []string
	crit := okRule("shock", 1, &log)
	crit.result = Failure("system shock failed", Critical())
	chain := mustChain(t, mergeAll, crit, okRule("later", 2, &log))

	res, err := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("system-shock", true))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"shock"}, log); diff != "" {
		t.Errorf("executed (-want +got):\n%s", diff)
	}
	if !res.Critical || !res.StopChain || res.Kind != types.KindFailure {
		t.Errorf("want critical stopped failure, got %+v", res)
	}
}

func TestRun_StopChainOnSuccessHalts(t *testing.T) {
	var log []string
	stop := okRule("stop", 1, &log)
	stop.result = Success("done", StopChain())
	chain := mustChain(t, mergeAll, stop, okRule("later", 2, &log))

	res, _ := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if len(log) != 1 {
		t.Errorf("executed %v, want only stop", log)
	}
	if res.Kind != types.KindSuccess || !res.StopChain {
		t.Errorf("got %+v", res)
	}
}

func TestRun_RuleErrorBecomesCriticalFailure(t *testing.T) {
	var log []string
	bad := okRule("bad", 1, &log)
	bad.err = errors.New("boom")
	chain := mustChain(t, mergeAll, bad, okRule("later", 2, &log))

	run, err := chain.Run(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if err != nil {
		t.Fatalf("rule error must not propagate: %v", err)
	}
	if run.Result.Message != "rule bad: boom" || !run.Result.Critical {
		t.Errorf("got %+v", run.Result)
	}
	if len(log) != 1 {
		t.Errorf("executed %v, want only bad", log)
	}
	if run.Steps[0].Err == nil {
		t.Error("step should record the error")
	}
}

func TestRun_RulePanicIsRecovered(t *testing.T) {
	bad := okRule("bad", 1, nil)
	bad.panicVal = "nil map"
	chain := mustChain(t, mergeAll, bad)

	res, err := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if err != nil {
		t.Fatal(err)
	}
	if res.Kind != types.KindFailure || !res.Critical {
		t.Errorf("got %+v", res)
	}
}

func TestRun_MissingTemporaryValueIsCriticalFailure(t *testing.T) {
	roll := state.NewKey[int]("attack-roll")
	needs := NewRule(Stage{
		Name: "needs-roll",
		Do: func(_ context.Context, gc *GameContext, _ Command) (types.Result, error) {
			v, err := RequireTemporary(gc, roll)
			if err != nil {
				return types.Result{}, err
			}
			return Success("rolled", WithData(map[string]any{"roll": v})), nil
		},
	})
	chain := mustChain(t, mergeAll, needs)

	res, err := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("attack", true))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Critical {
		t.Errorf("expected critical failure, got %+v", res)
	}
}

func TestRun_ConfigErrorPropagates(t *testing.T) {
	bad := okRule("nested", 1, nil)
	bad.err = &ConfigError{CommandType: "inner", Err: ErrNoChain}
	chain := mustChain(t, mergeAll, bad)

	_, err := chain.Execute(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if !errors.Is(err, ErrNoChain) {
		t.Errorf("err = %v, want ErrNoChain", err)
	}
}

func TestRun_FirstResultWhenNotMerging(t *testing.T) {
	var log []string
	a := okRule("a", 1, &log)
	a.result = Success("first", WithData(map[string]any{"x": 1}))
	chain := mustChain(t, types.ChainConfig{MergeResults: false}, a, okRule("b", 2, &log))

	run, err := chain.Run(context.Background(), NewGameContext(nil), newTestCommand("x", true))
	if err != nil {
		t.Fatal(err)
	}
	if run.Result.Message != "first" {
		t.Errorf("message = %q", run.Result.Message)
	}
	if diff := cmp.Diff(map[string]any{"a": map[string]any{"x": 1}}, run.Result.Data); diff != "" {
		t.Errorf("data (-want +got):\n%s", diff)
	}
	if !run.Stopped {
		t.Error("expected remaining rules to be reported as not run")
	}
}

func TestRun_ClearTemporaryAfterChain(t *testing.T) {
	key := state.NewKey[int]("roll")
	write := NewRule(Stage{
		Name: "write",
		Do: func(_ context.Context, gc *GameContext, _ Command) (types.Result, error) {
			SetTemporary(gc, key, 7)
			return Success("wrote"), nil
		},
	})
	gc := NewGameContext(nil)
	chain := mustChain(t, types.ChainConfig{MergeResults: true, ClearTemporary: true}, write)
	if _, err := chain.Execute(context.Background(), gc, newTestCommand("x", true)); err != nil {
		t.Fatal(err)
	}
	if _, ok := GetTemporary(gc, key); ok {
		t.Error("temporary store should be cleared")
	}

	keep := mustChain(t, mergeAll, NewRule(Stage{Name: "write", Do: func(_ context.Context, gc *GameContext, _ Command) (types.Result, error) {
		SetTemporary(gc, key, 9)
		return Success("wrote"), nil
	}}))
	if _, err := keep.Execute(context.Background(), gc, newTestCommand("x", true)); err != nil {
		t.Fatal(err)
	}
	if v, ok := GetTemporary(gc, key); !ok || v != 9 {
		t.Errorf("temporary = %v, %v; want 9, true", v, ok)
	}
}

func TestAddRule_RejectsDuplicatesAndNil(t *testing.T) {
	c := mustChain(t, mergeAll, okRule("a", 1, nil))
	if err := c.AddRule(okRule("a", 2, nil)); err == nil {
		t.Error("expected duplicate name error")
	}
	if err := c.AddRule(nil); err == nil {
		t.Error("expected nil rule error")
	}
	if !c.removeRule("a") || c.Len() != 0 {
		t.Error("expected a to be removed")
	}
}

func TestNewRule_Defaults(t *testing.T) {
	r := NewRule(Stage{Name: "plain"})
	if r.Priority() != DefaultPriority {
		t.Errorf("priority = %d, want %d", r.Priority(), DefaultPriority)
	}
	if !r.CanApply(nil, nil) {
		t.Error("stage without When should always apply")
	}
}
