package resources

import (
	"github.com/wippyai/resources/errors"
)

// Ref is a read guard over the stored value of type T. It holds the slot's
// lock in shared mode from acquisition until Release, so any number of Refs
// for the same type may coexist, but no RefMut can be acquired while one is
// outstanding.
//
// A Ref belongs to the goroutine that acquired it and must not be shared.
// Callers must Release it; the usual shape is
//
//	ref, err := resources.Get[Config](c)
//	if err != nil { ... }
//	defer ref.Release()
type Ref[T any] struct {
	slot     *slot
	value    *T
	released bool
}

// Value returns a copy of the guarded value.
func (g *Ref[T]) Value() T {
	if g.released {
		panic("resources: Ref used after Release")
	}
	return *g.value
}

// Release unlocks the slot. Safe to call more than once.
func (g *Ref[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.slot.mu.RUnlock()
}

// RefMut is a write guard over the stored value of type T. It holds the
// slot's lock exclusively from acquisition until Release: while it is
// outstanding no other guard, read or write, can be acquired for T. Guards
// for other types are unaffected.
//
// Like Ref, a RefMut belongs to the acquiring goroutine and must be
// Released, typically via defer.
type RefMut[T any] struct {
	slot     *slot
	value    *T
	released bool
}

// Value returns a pointer to the guarded value for in-place mutation.
// The pointer must not outlive the guard.
func (g *RefMut[T]) Value() *T {
	if g.released {
		panic("resources: RefMut used after Release")
	}
	return g.value
}

// Set replaces the guarded value.
func (g *RefMut[T]) Set(v T) {
	if g.released {
		panic("resources: RefMut used after Release")
	}
	*g.value = v
}

// Release unlocks the slot. Safe to call more than once.
func (g *RefMut[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.slot.mu.Unlock()
}

// mustUnbox recovers the concrete payload pointer from a slot's erased
// value. The table never stores a payload under a foreign key, so failure
// here is an internal invariant breach, not a caller error.
func mustUnbox[T any](op errors.Op, v any) *T {
	p, ok := v.(*T)
	if !ok {
		panic(errors.Erasure(op, typeName[T](), describe(v)))
	}
	return p
}

func describe(v any) string {
	if v == nil {
		return "nil"
	}
	return typeNameOf(v)
}
