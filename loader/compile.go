package loader

import (
	"fmt"
	"sort"

	"github.com/nathoo/osricore/types"
	lua "github.com/yuin/gopher-lua"
)

// rawEntity holds an entity table before compilation.
type rawEntity struct {
	id    string
	kind  string
	table *lua.LTable
}

// rawRule holds a rule before compilation.
type rawRule struct {
	id         string
	when       *lua.LTable
	conditions *lua.LTable // may be nil
	then       *lua.LTable
	order      int
}

// rawChain holds a chain config table before compilation.
type rawChain struct {
	command string
	table   *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	v := tbl.RawGetString(key)
	if b, ok := v.(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return int(n)
	}
	return 0
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the string elements of an array field.
func getStrings(tbl *lua.LTable, key string) []string {
	arr := getTable(tbl, key)
	if arr == nil {
		return nil
	}
	var out []string
	for i := 1; i <= arr.MaxN(); i++ {
		if s, ok := arr.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// toGoValue converts a Lua value to a Go value recursively. Whole numbers
// become int.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LNilType:
		return nil
	case lua.LString:
		return string(val)
	case *lua.LTable:
		// Sequential integer keys starting at 1 make an array.
		maxN := val.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, toGoValue(val.RawGetInt(i)))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, v lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				m[string(ks)] = toGoValue(v)
			}
		})
		return m
	default:
		return nil
	}
}

// compile converts all collected Lua data into a Scenario.
func compile(coll *collector) (*types.Scenario, error) {
	sc := &types.Scenario{Chains: map[string]types.ChainConfig{}}

	if coll.scenario != nil {
		sc.Title = getString(coll.scenario, "title")
	}

	for _, raw := range coll.entities {
		sc.Entities = append(sc.Entities, compileEntity(raw))
	}

	for _, raw := range coll.chains {
		if _, dup := sc.Chains[raw.command]; dup {
			return nil, fmt.Errorf("chain %q declared twice", raw.command)
		}
		sc.Chains[raw.command] = compileChain(raw.table)
	}

	sort.SliceStable(coll.rules, func(i, j int) bool {
		return coll.rules[i].order < coll.rules[j].order
	})
	for _, raw := range coll.rules {
		rule, err := compileRule(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling rule %s: %w", raw.id, err)
		}
		sc.Rules = append(sc.Rules, rule)
	}

	return sc, nil
}

// compileEntity compiles a raw entity. "name" becomes Entity.Name; every
// other field goes into Props.
func compileEntity(raw rawEntity) types.Entity {
	ent := types.Entity{
		ID:    raw.id,
		Kind:  raw.kind,
		Name:  getString(raw.table, "name"),
		Props: map[string]any{},
	}
	raw.table.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && string(ks) != "name" {
			ent.Props[string(ks)] = toGoValue(v)
		}
	})

	// Creatures start alive and at full hit points.
	if raw.kind != "item" {
		if _, ok := ent.Props["status"]; !ok {
			ent.Props["status"] = "alive"
		}
		if hp, ok := ent.Props["hp"]; ok {
			if _, ok := ent.Props["max_hp"]; !ok {
				ent.Props["max_hp"] = hp
			}
		}
	}
	return ent
}

func compileChain(tbl *lua.LTable) types.ChainConfig {
	return types.ChainConfig{
		StopOnFailure:  getBool(tbl, "stop_on_failure", false),
		MergeResults:   getBool(tbl, "merge_results", true),
		ClearTemporary: getBool(tbl, "clear_temporary", false),
	}
}

func compileRule(raw rawRule) (types.RuleDef, error) {
	rule := types.RuleDef{
		ID:          raw.id,
		Command:     getString(raw.when, "command"),
		Priority:    getInt(raw.when, "priority"),
		Requires:    getStrings(raw.when, "requires"),
		Effects:     compileEffects(raw.then),
		SourceOrder: raw.order,
	}
	if rule.Command == "" {
		return rule, fmt.Errorf("When{} has no command")
	}
	if raw.conditions != nil {
		rule.Conditions = compileConditions(raw.conditions)
	}
	return rule, nil
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	for i := 1; i <= tbl.MaxN(); i++ {
		if condTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			conditions = append(conditions, compileCondition(condTbl))
		}
	}
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	condType := getString(tbl, "type")

	if condType == "not" {
		if innerTbl := getTable(tbl, "inner"); innerTbl != nil {
			inner := compileCondition(innerTbl)
			return types.Condition{Type: "not", Inner: &inner}
		}
	}

	return types.Condition{
		Type:   condType,
		Params: paramsOf(tbl),
	}
}

func compileEffects(tbl *lua.LTable) []types.Effect {
	var effects []types.Effect
	for i := 1; i <= tbl.MaxN(); i++ {
		if effTbl, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			effects = append(effects, types.Effect{
				Type:   getString(effTbl, "type"),
				Params: paramsOf(effTbl),
			})
		}
	}
	return effects
}

// paramsOf collects every string-keyed field except "type".
func paramsOf(tbl *lua.LTable) map[string]any {
	params := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok && string(ks) != "type" {
			params[string(ks)] = toGoValue(v)
		}
	})
	return params
}

// sortedLuaFiles returns .lua files with scenario.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var first string
	var others []string
	for _, f := range files {
		if f == "scenario.lua" {
			first = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if first != "" {
		return append([]string{first}, others...)
	}
	return others
}
