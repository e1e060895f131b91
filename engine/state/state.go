// Package state holds the two stores shared by commands and rules: a
// copy-on-write entity store and a temporary scratch store keyed by typed keys.
package state

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/nathoo/osricore/types"
)

// ErrUnknownEntity is returned when an update targets an id that is not stored.
var ErrUnknownEntity = errors.New("unknown entity")

// Entities maps entity ids to snapshots. Values are cloned on the way in and
// on the way out, so callers never hold a live reference into the store.
type Entities struct {
	m map[string]types.Entity
}

// NewEntities creates an empty entity store.
func NewEntities() *Entities {
	return &Entities{m: map[string]types.Entity{}}
}

// Get returns a copy of the snapshot stored under id.
func (e *Entities) Get(id string) (types.Entity, bool) {
	ent, ok := e.m[id]
	if !ok {
		return types.Entity{}, false
	}
	return CloneEntity(ent), true
}

// Set replaces the whole snapshot stored under id. The snapshot's ID field
// is forced to id.
func (e *Entities) Set(id string, ent types.Entity) {
	ent = CloneEntity(ent)
	ent.ID = id
	e.m[id] = ent
}

// Has reports whether id is stored.
func (e *Entities) Has(id string) bool {
	_, ok := e.m[id]
	return ok
}

// Delete removes id from the store.
func (e *Entities) Delete(id string) {
	delete(e.m, id)
}

// Update applies fn to a copy of the current snapshot and stores the result
// under the same id.
func (e *Entities) Update(id string, fn func(types.Entity) types.Entity) error {
	cur, ok := e.Get(id)
	if !ok {
		return fmt.Errorf("update %q: %w", id, ErrUnknownEntity)
	}
	e.Set(id, fn(cur))
	return nil
}

// IDs returns all stored ids in sorted order.
func (e *Entities) IDs() []string {
	ids := make([]string, 0, len(e.m))
	for id := range e.m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored entities.
func (e *Entities) Len() int {
	return len(e.m)
}

// CloneEntity deep-copies an entity, including nested maps and slices in Props.
func CloneEntity(ent types.Entity) types.Entity {
	out := ent
	if ent.Props != nil {
		out.Props = cloneMap(ent.Props)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int, int64, float64, string:
		return v
	case map[string]any:
		return cloneMap(val)
	}
	return deepCopy(reflect.ValueOf(v)).Interface()
}

// deepCopy copies maps, slices, arrays, pointers and exported struct fields
// recursively. Unexported struct fields are copied shallowly.
func deepCopy(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := range v.Len() {
			out.Index(i).Set(deepCopy(v.Index(i)))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(deepCopy(v.Elem()))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(deepCopy(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := range v.NumField() {
			if out.Field(i).CanSet() {
				out.Field(i).Set(deepCopy(v.Field(i)))
			}
		}
		return out
	default:
		return v
	}
}

// IntProp returns an integer property, accepting the numeric types produced
// by Lua and JSON decoding. Missing or non-numeric props return (0, false).
func IntProp(ent types.Entity, prop string) (int, bool) {
	switch n := ent.Props[prop].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// StringProp returns a string property. Missing or non-string props return ("", false).
func StringProp(ent types.Entity, prop string) (string, bool) {
	s, ok := ent.Props[prop].(string)
	return s, ok
}

// WithProp returns a copy of ent with prop set to value.
func WithProp(ent types.Entity, prop string, value any) types.Entity {
	out := CloneEntity(ent)
	if out.Props == nil {
		out.Props = map[string]any{}
	}
	out.Props[prop] = value
	return out
}
