package resources

import (
	"reflect"

	"github.com/wippyai/resources/errors"
)

// Entry-style helpers: conditionally insert and immediately acquire, in one
// call. They save the insert-then-get dance when a subsystem wants "the
// value of type T, creating it if nobody has yet".

// OrInsert returns a write guard for the value of type T, storing def first
// if no value of type T is present. Panics if the container is closed.
func OrInsert[T any](r *Resources, def T) *RefMut[T] {
	return OrInsertWith(r, func() T { return def })
}

// OrInsertWith is OrInsert with a lazily evaluated default: f runs only if
// type T is vacant, and always outside the container's locks, so it may
// call back into the container. If several goroutines race the same vacant
// type, more than one f may run and all but the attached result are
// discarded.
func OrInsertWith[T any](r *Resources, f func() T) *RefMut[T] {
	id := TypeOf[T]()
	for {
		s := r.tab.lookup(id)
		if s == nil {
			v := f()
			attached, created, ok := r.tab.attach(id, reflect.TypeOf((*T)(nil)).Elem(), &v)
			if !ok {
				panic(errors.Closed(errors.OpEntry))
			}
			if created {
				r.notify(Event{Type: EventCreated, ID: id, Resource: typeName[T]()})
			}
			s = attached
		}
		s.mu.Lock()
		if s.value == nil {
			// Removed before we could lock; try again.
			s.mu.Unlock()
			continue
		}
		return &RefMut[T]{slot: s, value: mustUnbox[T](errors.OpEntry, s.value)}
	}
}

// OrDefault is OrInsert with the zero value of T.
func OrDefault[T any](r *Resources) *RefMut[T] {
	return OrInsertWith(r, func() T {
		var zero T
		return zero
	})
}

// AndModify applies f to the value of type T under a write guard, if one is
// present, and reports whether it ran. Absence is not an error here; the
// caller asked for a conditional update.
func AndModify[T any](r *Resources, f func(*T)) bool {
	g, err := GetMut[T](r)
	if err != nil {
		return false
	}
	defer g.Release()
	f(g.Value())
	return true
}
