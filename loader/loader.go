// Package loader loads Lua scenario content into Go structs at load time.
// The Lua VM is discarded after loading; scripted rules run as Go.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/osricore/types"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	scenario *lua.LTable
	entities []rawEntity
	rules    []rawRule
	chains   []rawChain
	order    int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Options tunes validation. Known lists the command types and rule names
// already provided by Go content, so scripts may extend them.
type Options struct {
	KnownCommands []string
	KnownRules    []string
	Logger        *slog.Logger
}

// Load reads all .lua files from dir, compiles them into a Scenario, and
// validates it. Warnings are logged; errors are returned as a
// *ValidationError.
func Load(dir string, opts Options) (*types.Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading scenario directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		if err := L.DoFile(filepath.Join(dir, f)); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	sc, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling scenario: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := validate(sc, opts, logger); err != nil {
		return nil, err
	}

	logger.Debug("scenario loaded",
		slog.String("dir", dir),
		slog.String("title", sc.Title),
		slog.Int("entities", len(sc.Entities)),
		slog.Int("rules", len(sc.Rules)),
	)
	return sc, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Dice come from the session RNG, never from Lua.
	if tbl, ok := L.GetGlobal("math").(*lua.LTable); ok {
		tbl.RawSetString("random", lua.LNil)
		tbl.RawSetString("randomseed", lua.LNil)
	}
}
