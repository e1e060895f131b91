package loader

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScenario(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func quiet() Options {
	return Options{Logger: slog.New(slog.DiscardHandler)}
}

const arenaScenario = `
Scenario { title = "Goblin Arena" }

Character "fighter" { name = "Brannoc", hp = 12, ac = 4 }
Monster "goblin" { name = "Goblin", hp = 5, ac = 6 }

Chain "bash" { stop_on_failure = true }

Rule("bash-announce", When { command = "bash", priority = 10 },
	Then { Say("{actor.name} lowers a shoulder.") })

Rule("bash-damage", When { command = "bash", priority = 20, requires = { "bash-announce" } },
	{ TargetProp("hp", ">", 0) },
	Then { Damage("target", "1d2"), Tag("bash") })
`

func TestLoad_Scenario(t *testing.T) {
	dir := writeScenario(t, map[string]string{"scenario.lua": arenaScenario})
	sc, err := Load(dir, quiet())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sc.Title != "Goblin Arena" {
		t.Errorf("Title = %q", sc.Title)
	}
	if len(sc.Entities) != 2 || len(sc.Rules) != 2 {
		t.Errorf("entities = %d, rules = %d", len(sc.Entities), len(sc.Rules))
	}
	if !sc.Chains["bash"].StopOnFailure {
		t.Error("bash chain should stop on failure")
	}
}

func TestLoad_FileOrdering(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		"scenario.lua": `Scenario { title = "Split" } Character "fighter" { name = "Brannoc", hp = 8 }`,
		"b_rules.lua":  `Rule("second", When { command = "bash" }, Then { Say("2") })`,
		"a_rules.lua":  `Rule("first", When { command = "bash" }, Then { Say("1") })`,
	})
	sc, err := Load(dir, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if sc.Rules[0].ID != "first" || sc.Rules[1].ID != "second" {
		t.Errorf("rule order = %s, %s", sc.Rules[0].ID, sc.Rules[1].ID)
	}
}

func TestLoad_KnownRulesSatisfyRequires(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		"scenario.lua": `Rule("cleave", When { command = "attack", priority = 35, requires = { "attack-roll" } }, Then { Tag("cleave") })`,
	})
	if _, err := Load(dir, quiet()); err == nil {
		t.Fatal("expected missing prerequisite error")
	}
	opts := quiet()
	opts.KnownRules = []string{"attack-roll"}
	if _, err := Load(dir, opts); err != nil {
		t.Errorf("Load with known rules: %v", err)
	}
}

func TestLoad_InvalidRefs_Fails(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		"scenario.lua": `
			Rule("bad", When { command = "bash" }, { HasEntity("dragon") },
				Then { Damage("dragon", "2x6"), AddProp("actor", "hp", true) })
		`,
	})
	_, err := Load(dir, quiet())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	joined := strings.Join(ve.Errors, "\n")
	for _, want := range []string{
		`condition has_entity references undefined entity "dragon"`,
		`effect damage references undefined entity "dragon"`,
		"invalid dice notation",
		"effect add_prop has no amount",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("errors missing %q:\n%s", want, joined)
		}
	}
}

func TestLoad_DuplicateIDs_Fails(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		"scenario.lua": `
			Character "fighter" { hp = 1 }
			Monster "fighter" { hp = 1 }
			Rule("r", When { command = "bash" }, Then { Say("a") })
			Rule("r", When { command = "bash" }, Then { Say("b") })
		`,
	})
	_, err := Load(dir, quiet())
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Errors) != 2 {
		t.Fatalf("err = %v, want two duplicate errors", err)
	}
}

func TestLoad_Warnings(t *testing.T) {
	dir := writeScenario(t, map[string]string{
		"scenario.lua": `Monster "rat" { name = "Rat" } Chain "dance" {}`,
	})
	var buf strings.Builder
	opts := Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	if _, err := Load(dir, opts); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `monster \"rat\" has no hp`) {
		t.Errorf("missing hp warning:\n%s", out)
	}
	if !strings.Contains(out, `chain config for \"dance\" has no rules`) {
		t.Errorf("missing chain warning:\n%s", out)
	}
}

func TestLoad_BadLuaSyntax_Fails(t *testing.T) {
	dir := writeScenario(t, map[string]string{"scenario.lua": `Character "x" {`})
	if _, err := Load(dir, quiet()); err == nil {
		t.Error("expected syntax error")
	}
}

func TestLoad_EmptyDir_Fails(t *testing.T) {
	if _, err := Load(t.TempDir(), quiet()); err == nil {
		t.Error("expected error for a directory without scripts")
	}
}

func TestLoad_SandboxEnforced(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`os.execute("echo pwned")`); err == nil {
		t.Error("expected sandbox to block os.execute")
	}
	if err := L.DoString(`return math.random(6)`); err == nil {
		t.Error("expected sandbox to block math.random")
	}
}
