package state

import (
	"fmt"
	"sort"
)

// Key names a temporary value and fixes its Go type. Content packages
// declare their keys in one place so producers and consumers agree.
type Key[T any] struct {
	name string
}

// NewKey declares a typed temporary key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string the value is stored under.
func (k Key[T]) Name() string {
	return k.name
}

// MissingKeyError reports a required temporary value that was never written.
// It signals a wiring bug between rules, not a gameplay outcome.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required temporary value %q is not set", e.Key)
}

// KeyTypeError reports a temporary value stored with a different type than
// the key declares.
type KeyTypeError struct {
	Key  string
	Want string
	Got  string
}

func (e *KeyTypeError) Error() string {
	return fmt.Sprintf("temporary value %q has type %s, want %s", e.Key, e.Got, e.Want)
}

// Scratch is the temporary store used to pass intermediate results between
// rules processing the same command. Nothing clears it automatically except
// a chain configured with ClearTemporary.
type Scratch struct {
	m map[string]any
}

// NewScratch creates an empty temporary store.
func NewScratch() *Scratch {
	return &Scratch{m: map[string]any{}}
}

// Lookup returns the value stored under k. A missing value or one of the
// wrong type yields (zero, false).
func Lookup[T any](s *Scratch, k Key[T]) (T, bool) {
	v, ok := s.m[k.name].(T)
	return v, ok
}

// Store writes v under k, replacing any previous value.
func Store[T any](s *Scratch, k Key[T], v T) {
	s.m[k.name] = v
}

// Require is Lookup for values a rule cannot work without.
func Require[T any](s *Scratch, k Key[T]) (T, error) {
	var zero T
	raw, ok := s.m[k.name]
	if !ok {
		return zero, &MissingKeyError{Key: k.name}
	}
	v, ok := raw.(T)
	if !ok {
		return zero, &KeyTypeError{Key: k.name, Want: fmt.Sprintf("%T", zero), Got: fmt.Sprintf("%T", raw)}
	}
	return v, nil
}

// Value returns the untyped value stored under name.
func (s *Scratch) Value(name string) (any, bool) {
	v, ok := s.m[name]
	return v, ok
}

// SetValue writes an untyped value. Scripted rules use this; Go content
// should prefer Store with a declared Key.
func (s *Scratch) SetValue(name string, v any) {
	s.m[name] = v
}

// Has reports whether name is set.
func (s *Scratch) Has(name string) bool {
	_, ok := s.m[name]
	return ok
}

// Delete removes name.
func (s *Scratch) Delete(name string) {
	delete(s.m, name)
}

// Clear removes every temporary value.
func (s *Scratch) Clear() {
	clear(s.m)
}

// Keys returns the names currently set, sorted.
func (s *Scratch) Keys() []string {
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of values set.
func (s *Scratch) Len() int {
	return len(s.m)
}
