package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/osricore/config"
	"github.com/nathoo/osricore/types"
)

func TestLoadFromReader_Empty_UsesDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(config.Default(), *cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	yaml := `
engine:
  default_chain:
    stop_on_failure: true
  enable_metrics: false
  critical_commands: [death-save]
chains:
  move:
    merge_results: false
log:
  level: debug
  format: json
session:
  seed: 42
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatal(err)
	}

	want := types.EngineConfig{
		DefaultChain:     types.ChainConfig{StopOnFailure: true, MergeResults: true},
		EnableLogging:    true,
		EnableMetrics:    false,
		CriticalCommands: []string{"death-save"},
	}
	if diff := cmp.Diff(want, cfg.ToEngineConfig()); diff != "" {
		t.Errorf("engine config (-want +got):\n%s", diff)
	}
	base := types.ChainConfig{StopOnFailure: true, MergeResults: true, ClearTemporary: true}
	move, ok := cfg.ChainOverride("move", base)
	wantMove := types.ChainConfig{StopOnFailure: true, ClearTemporary: true}
	if !ok {
		t.Fatal("move has an override")
	}
	if diff := cmp.Diff(wantMove, move); diff != "" {
		t.Errorf("move override (-want +got):\n%s", diff)
	}
	if _, ok := cfg.ChainOverride("attack", base); ok {
		t.Error("attack has no override")
	}
	if cfg.Session.Seed != 42 || cfg.Log.Format != "json" {
		t.Errorf("session/log = %+v %+v", cfg.Session, cfg.Log)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("engine:\n  turbo: true\n"))
	if err == nil {
		t.Fatal("expected an error for an unknown field")
	}
}

func TestValidate_JoinsProblems(t *testing.T) {
	yaml := `
engine:
  critical_commands: [attack, attack, ""]
log:
  level: loud
  format: xml
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected a validation error")
	}
	for _, want := range []string{"log.level", "log.format", "duplicate \"attack\"", "critical_commands[2]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_ScriptsMustBeDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scenario.lua")
	if err := os.WriteFile(file, []byte("-- empty"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Session.Scripts = dir
	if err := config.Validate(&cfg); err != nil {
		t.Errorf("directory rejected: %v", err)
	}
	cfg.Session.Scripts = file
	if err := config.Validate(&cfg); err == nil {
		t.Error("expected an error for a file")
	}
}

func TestSetScripts_Validates(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "scenario.lua")
	if err := os.WriteFile(file, []byte("-- empty"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	if err := cfg.SetScripts(dir); err != nil {
		t.Errorf("directory rejected: %v", err)
	}
	if err := cfg.SetScripts(file); err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("err = %v, want a not-a-directory error", err)
	}
	if err := cfg.SetScripts(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osricore.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\nsession:\n  seed: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OSRICORE_LOG_LEVEL", "debug")
	t.Setenv("OSRICORE_ENGINE_ENABLE_LOGGING", "false")
	t.Setenv("OSRICORE_ENGINE_CHAIN_STOP_ON_FAILURE", "true")
	t.Setenv("OSRICORE_ENGINE_CRITICAL_COMMANDS", "system-shock,attack")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Session.Seed != 7 {
		t.Errorf("seed = %d, want 7 from the file", cfg.Session.Seed)
	}
	if cfg.Engine.EnableLogging {
		t.Error("enable_logging should be overridden to false")
	}
	if !cfg.Engine.DefaultChain.StopOnFailure {
		t.Error("default chain stop_on_failure should be overridden to true")
	}
	if diff := cmp.Diff([]string{"system-shock", "attack"}, cfg.Engine.CriticalCommands); diff != "" {
		t.Errorf("critical commands (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestChainTypes_Sorted(t *testing.T) {
	cfg := config.Default()
	cfg.Chains = map[string]config.ChainPatch{"move": {}, "attack": {}}
	if diff := cmp.Diff([]string{"attack", "move"}, cfg.ChainTypes()); diff != "" {
		t.Errorf("chain types (-want +got):\n%s", diff)
	}
}

func TestChainPatch_KeepsUnsetFields(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader("chains:\n  attack:\n    stop_on_failure: false\n"))
	if err != nil {
		t.Fatal(err)
	}
	base := types.ChainConfig{StopOnFailure: true, MergeResults: true, ClearTemporary: true}
	got, ok := cfg.ChainOverride("attack", base)
	if !ok {
		t.Fatal("attack has an override")
	}
	want := types.ChainConfig{MergeResults: true, ClearTemporary: true}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("attack chain (-want +got):\n%s", diff)
	}
}
