// Package config loads osricore settings from a YAML file with environment
// overrides.
//
// Precedence, lowest first: [Default], the YAML file, OSRICORE_* variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nathoo/osricore/observe"
	"github.com/nathoo/osricore/types"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "OSRICORE_"

// Config is the root configuration document.
type Config struct {
	Engine  EngineConfig           `yaml:"engine"  envPrefix:"ENGINE_"`
	Chains  map[string]ChainPatch `yaml:"chains"`
	Log     LogConfig             `yaml:"log"     envPrefix:"LOG_"`
	Session SessionConfig         `yaml:"session" envPrefix:"SESSION_"`
}

// EngineConfig mirrors types.EngineConfig.
type EngineConfig struct {
	DefaultChain     ChainConfig `yaml:"default_chain"     envPrefix:"CHAIN_"`
	EnableLogging    bool        `yaml:"enable_logging"    env:"ENABLE_LOGGING"`
	EnableMetrics    bool        `yaml:"enable_metrics"    env:"ENABLE_METRICS"`
	CriticalCommands []string    `yaml:"critical_commands" env:"CRITICAL_COMMANDS" envSeparator:","`
}

// ChainConfig mirrors types.ChainConfig.
type ChainConfig struct {
	StopOnFailure  bool `yaml:"stop_on_failure" env:"STOP_ON_FAILURE"`
	MergeResults   bool `yaml:"merge_results"   env:"MERGE_RESULTS"`
	ClearTemporary bool `yaml:"clear_temporary" env:"CLEAR_TEMPORARY"`
}

// ChainPatch overrides selected settings of one command type's chain.
// Fields left unset keep the chain's own value.
type ChainPatch struct {
	StopOnFailure  *bool `yaml:"stop_on_failure"`
	MergeResults   *bool `yaml:"merge_results"`
	ClearTemporary *bool `yaml:"clear_temporary"`
}

// Apply returns base with every set field replaced.
func (p ChainPatch) Apply(base types.ChainConfig) types.ChainConfig {
	if p.StopOnFailure != nil {
		base.StopOnFailure = *p.StopOnFailure
	}
	if p.MergeResults != nil {
		base.MergeResults = *p.MergeResults
	}
	if p.ClearTemporary != nil {
		base.ClearTemporary = *p.ClearTemporary
	}
	return base
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// SessionConfig holds per-session settings.
type SessionConfig struct {
	// Seed for the dice RNG. Zero picks a seed from the clock.
	Seed int64 `yaml:"seed" env:"SEED"`
	// Scripts is a directory of Lua scenario files; empty loads none.
	Scripts string `yaml:"scripts" env:"SCRIPTS"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			DefaultChain:     ChainConfig{MergeResults: true},
			EnableLogging:    true,
			EnableMetrics:    true,
			CriticalCommands: []string{"system-shock", "death-save"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decode(f, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader decodes YAML from r onto the defaults and validates the
// result. It ignores the environment.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// ApplyEnv overwrites fields whose OSRICORE_* variable is set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Validate checks that cfg is coherent. It returns a joined error listing
// every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := observe.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	seen := make(map[string]bool)
	for i, name := range cfg.Engine.CriticalCommands {
		if name == "" {
			errs = append(errs, fmt.Errorf("engine.critical_commands[%d] is empty", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("engine.critical_commands: duplicate %q", name))
		}
		seen[name] = true
	}

	for name := range cfg.Chains {
		if name == "" {
			errs = append(errs, errors.New("chains: command type must not be empty"))
		}
	}

	if cfg.Session.Scripts != "" {
		info, err := os.Stat(cfg.Session.Scripts)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("session.scripts: %w", err))
		case !info.IsDir():
			errs = append(errs, fmt.Errorf("session.scripts %q is not a directory", cfg.Session.Scripts))
		}
	}

	return errors.Join(errs...)
}

// SetScripts points the session at a scenario directory given outside the
// config file and validates the result.
func (c *Config) SetScripts(dir string) error {
	c.Session.Scripts = dir
	return Validate(c)
}

// ToEngineConfig converts the engine section.
func (c *Config) ToEngineConfig() types.EngineConfig {
	return types.EngineConfig{
		DefaultChain:     c.Engine.DefaultChain.chainConfig(),
		EnableLogging:    c.Engine.EnableLogging,
		EnableMetrics:    c.Engine.EnableMetrics,
		CriticalCommands: append([]string(nil), c.Engine.CriticalCommands...),
	}
}

// ChainOverride applies the chains entry for commandType to base, the
// settings the chain would otherwise run with. The bool is false when the type
// has no entry.
func (c *Config) ChainOverride(commandType string, base types.ChainConfig) (types.ChainConfig, bool) {
	p, ok := c.Chains[commandType]
	if !ok {
		return base, false
	}
	return p.Apply(base), true
}

// ChainTypes lists the command types with chain overrides, sorted.
func (c *Config) ChainTypes() []string {
	out := make([]string, 0, len(c.Chains))
	for name := range c.Chains {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c ChainConfig) chainConfig() types.ChainConfig {
	return types.ChainConfig{
		StopOnFailure:  c.StopOnFailure,
		MergeResults:   c.MergeResults,
		ClearTemporary: c.ClearTemporary,
	}
}
