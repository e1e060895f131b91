package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerEffectHelpers(L)
}

// entityConstructor returns a curried constructor: Kind "id" { ... }.
func entityConstructor(L *lua.LState, coll *collector, kind string) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.entities = append(coll.entities, rawEntity{id: id, kind: kind, table: tbl})
			return 0
		}))
		return 1
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Scenario { title = "..." }
	L.SetGlobal("Scenario", L.NewFunction(func(L *lua.LState) int {
		coll.scenario = L.CheckTable(1)
		return 0
	}))

	L.SetGlobal("Character", entityConstructor(L, coll, "character"))
	L.SetGlobal("Monster", entityConstructor(L, coll, "monster"))
	L.SetGlobal("Item", entityConstructor(L, coll, "item"))

	// Chain "command" { stop_on_failure = true, ... }
	L.SetGlobal("Chain", L.NewFunction(func(L *lua.LState) int {
		command := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.chains = append(coll.chains, rawChain{command: command, table: tbl})
			return 0
		}))
		return 1
	}))

	// Rule("id", When{...}, {conditions}, Then{...}) or Rule("id", When{...}, Then{...})
	L.SetGlobal("Rule", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		when := L.CheckTable(2)

		var conditions *lua.LTable
		var thenTbl *lua.LTable
		if L.Get(4) != lua.LNil {
			if t, ok := L.Get(3).(*lua.LTable); ok {
				conditions = t
			}
			thenTbl = L.CheckTable(4)
		} else {
			thenTbl = L.CheckTable(3)
		}

		coll.rules = append(coll.rules, rawRule{
			id:         id,
			when:       when,
			conditions: conditions,
			then:       thenTbl,
			order:      coll.nextSourceOrder(),
		})
		return 0
	}))

	// When { command = "...", priority = n, requires = {...} } and Then { ... }
	// are pass-throughs that make scripts read naturally.
	passThrough := L.NewFunction(func(L *lua.LState) int {
		L.Push(L.CheckTable(1))
		return 1
	})
	L.SetGlobal("When", passThrough)
	L.SetGlobal("Then", passThrough)
}

// newTyped builds a {type = typ} table for a condition or effect helper.
func newTyped(L *lua.LState, typ string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(typ))
	return tbl
}

// propHelper implements ActorProp/TargetProp: (prop, value) or (prop, op, value).
func propHelper(typ string) lua.LGFunction {
	return func(L *lua.LState) int {
		tbl := newTyped(L, typ)
		tbl.RawSetString("prop", lua.LString(L.CheckString(1)))
		if L.GetTop() >= 3 {
			tbl.RawSetString("op", lua.LString(L.CheckString(2)))
			tbl.RawSetString("value", L.Get(3))
		} else {
			tbl.RawSetString("value", L.Get(2))
		}
		L.Push(tbl)
		return 1
	}
}

func registerConditionHelpers(L *lua.LState) {
	L.SetGlobal("ActorProp", L.NewFunction(propHelper("actor_prop")))
	L.SetGlobal("TargetProp", L.NewFunction(propHelper("target_prop")))

	// TempSet("key")
	L.SetGlobal("TempSet", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "temp_set")
		tbl.RawSetString("key", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// TempNot("key")
	L.SetGlobal("TempNot", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "temp_not")
		tbl.RawSetString("key", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// HasEntity("target")
	L.SetGlobal("HasEntity", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "has_entity")
		tbl.RawSetString("entity", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "not")
		tbl.RawSetString("inner", L.CheckTable(1))
		L.Push(tbl)
		return 1
	}))
}

func registerEffectHelpers(L *lua.LState) {
	// Say("text")
	L.SetGlobal("Say", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "say")
		tbl.RawSetString("text", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Tag("effect")
	L.SetGlobal("Tag", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "tag")
		tbl.RawSetString("tag", lua.LString(L.CheckString(1)))
		L.Push(tbl)
		return 1
	}))

	// Damage("target", 3) or Damage("target", "1d6+1")
	L.SetGlobal("Damage", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "damage")
		tbl.RawSetString("target", lua.LString(L.CheckString(1)))
		tbl.RawSetString("amount", L.CheckAny(2))
		L.Push(tbl)
		return 1
	}))

	// SetTemp("key", value)
	L.SetGlobal("SetTemp", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "set_temp")
		tbl.RawSetString("key", lua.LString(L.CheckString(1)))
		tbl.RawSetString("value", L.Get(2))
		L.Push(tbl)
		return 1
	}))

	// SetProp("entity", "prop", value)
	L.SetGlobal("SetProp", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "set_prop")
		tbl.RawSetString("entity", lua.LString(L.CheckString(1)))
		tbl.RawSetString("prop", lua.LString(L.CheckString(2)))
		tbl.RawSetString("value", L.Get(3))
		L.Push(tbl)
		return 1
	}))

	// AddProp("entity", "prop", amount)
	L.SetGlobal("AddProp", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "add_prop")
		tbl.RawSetString("entity", lua.LString(L.CheckString(1)))
		tbl.RawSetString("prop", lua.LString(L.CheckString(2)))
		tbl.RawSetString("amount", L.CheckAny(3))
		L.Push(tbl)
		return 1
	}))

	// Fail("message") or Fail("message", true) for a critical failure.
	L.SetGlobal("Fail", L.NewFunction(func(L *lua.LState) int {
		tbl := newTyped(L, "fail")
		tbl.RawSetString("message", lua.LString(L.CheckString(1)))
		tbl.RawSetString("critical", lua.LBool(L.OptBool(2, false)))
		L.Push(tbl)
		return 1
	}))

	// Stop()
	L.SetGlobal("Stop", L.NewFunction(func(L *lua.LState) int {
		L.Push(newTyped(L, "stop"))
		return 1
	}))
}
