package engine

import (
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// GameContext is the session-scoped substrate commands and rules share:
// an entity store, a temporary store, and the rule engine that processes
// commands against them. It assumes a single writer; callers that process
// several sessions concurrently must give each its own GameContext.
type GameContext struct {
	entities *state.Entities
	scratch  *state.Scratch
	engine   *RuleEngine
}

// NewGameContext creates an empty context bound to eng. eng may be nil for
// contexts that only exercise rules directly.
func NewGameContext(eng *RuleEngine) *GameContext {
	return &GameContext{
		entities: state.NewEntities(),
		scratch:  state.NewScratch(),
		engine:   eng,
	}
}

// RuleEngine returns the engine commands delegate to.
func (g *GameContext) RuleEngine() *RuleEngine {
	return g.engine
}

// Entity returns a copy of the snapshot stored under id.
func (g *GameContext) Entity(id string) (types.Entity, bool) {
	return g.entities.Get(id)
}

// SetEntity replaces the whole snapshot under id.
func (g *GameContext) SetEntity(id string, ent types.Entity) {
	g.entities.Set(id, ent)
}

// HasEntity reports whether id is stored.
func (g *GameContext) HasEntity(id string) bool {
	return g.entities.Has(id)
}

// UpdateEntity replaces the snapshot under id with fn(old).
func (g *GameContext) UpdateEntity(id string, fn func(types.Entity) types.Entity) error {
	return g.entities.Update(id, fn)
}

// Entities exposes the entity store.
func (g *GameContext) Entities() *state.Entities {
	return g.entities
}

// Temporary exposes the temporary store.
func (g *GameContext) Temporary() *state.Scratch {
	return g.scratch
}

// GetTemporary reads a typed temporary value; absent values report false.
func GetTemporary[T any](g *GameContext, k state.Key[T]) (T, bool) {
	return state.Lookup(g.scratch, k)
}

// SetTemporary writes a typed temporary value.
func SetTemporary[T any](g *GameContext, k state.Key[T], v T) {
	state.Store(g.scratch, k, v)
}

// RequireTemporary reads a typed temporary value a rule cannot run without.
func RequireTemporary[T any](g *GameContext, k state.Key[T]) (T, error) {
	return state.Require(g.scratch, k)
}
