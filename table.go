package resources

import (
	"reflect"
	"sync"
)

// slot owns one type-erased value and the read-write lock guarding it.
// The value is always a *T boxed as any, where T is the type the slot's
// table key was derived from; it is nil only after the slot has been
// detached from the table. A detached slot is never reattached.
type slot struct {
	value any
	typ   reflect.Type
	mu    sync.RWMutex
}

// table maps TypeID to slot. The table's own lock guards only the shape of
// the map: structural operations take it exclusively, lookups take it
// shared. Slot payloads are guarded by each slot's lock, never by the
// table's, which is what lets value access for different types proceed
// concurrently.
//
// The table lock is never held while waiting on a slot lock. Structural
// operations resolve or detach the slot under t.mu, release it, and only
// then block on the slot: a guard held for one type must not stall access
// to any other type, and a guard holder is allowed to call back into the
// container while a structural op waits on it.
type table struct {
	slots  map[TypeID]*slot
	mu     sync.RWMutex
	closed bool
}

type dropped struct {
	value any
	typ   reflect.Type
	id    TypeID
}

// insert stores boxed under id, replacing and returning any prior payload.
// ok is false if the table is closed. Blocks until all guards for this
// type are released, without holding the table lock while waiting.
func (t *table) insert(id TypeID, typ reflect.Type, boxed any) (prev any, replaced, ok bool) {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return nil, false, false
		}
		if t.slots == nil {
			t.slots = make(map[TypeID]*slot)
		}

		s, exists := t.slots[id]
		if !exists {
			t.slots[id] = &slot{typ: typ, value: boxed}
			t.mu.Unlock()
			return nil, false, true
		}
		t.mu.Unlock()

		// Swap the payload in place under the slot lock so outstanding
		// guards and waiters keep a valid slot.
		s.mu.Lock()
		if s.value == nil {
			// Detached while we waited; re-resolve.
			s.mu.Unlock()
			continue
		}
		prev = s.value
		s.value = boxed
		s.mu.Unlock()
		return prev, true, true
	}
}

// attach stores boxed under id only if the id is vacant, returning the
// occupying slot either way. ok is false if the table is closed. Never
// touches slot locks.
func (t *table) attach(id TypeID, typ reflect.Type, boxed any) (s *slot, created, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false, false
	}
	if t.slots == nil {
		t.slots = make(map[TypeID]*slot)
	}

	if s, exists := t.slots[id]; exists {
		return s, false, true
	}
	s = &slot{typ: typ, value: boxed}
	t.slots[id] = s
	return s, true, true
}

// remove detaches the slot for id and returns its payload. Blocks until
// all guards for this type are released, with the table lock released
// first: the slot is already out of the map, so only this call can clear
// its payload.
func (t *table) remove(id TypeID) (any, bool) {
	t.mu.Lock()
	s, exists := t.slots[id]
	if !exists {
		t.mu.Unlock()
		return nil, false
	}
	delete(t.slots, id)
	t.mu.Unlock()

	s.mu.Lock()
	v := s.value
	s.value = nil
	s.mu.Unlock()
	return v, true
}

// contains reports whether a slot for id exists. Shape lookup only; the
// slot lock is not touched.
func (t *table) contains(id TypeID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.slots[id]
	return ok
}

// lookup returns the slot for id without touching its lock, or nil.
func (t *table) lookup(id TypeID) *slot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slots[id]
}

func (t *table) length() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// drain marks the table closed and detaches every slot, returning the
// payloads for the caller to drop. Idempotent: a second drain returns nil.
// Blocks until outstanding guards release, one slot at a time, after the
// table lock is released.
func (t *table) drain() []dropped {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	type detached struct {
		s  *slot
		id TypeID
	}
	all := make([]detached, 0, len(t.slots))
	for id, s := range t.slots {
		all = append(all, detached{s: s, id: id})
	}
	t.slots = nil
	t.mu.Unlock()

	out := make([]dropped, 0, len(all))
	for _, d := range all {
		d.s.mu.Lock()
		out = append(out, dropped{value: d.s.value, typ: d.s.typ, id: d.id})
		d.s.value = nil
		d.s.mu.Unlock()
	}
	return out
}
