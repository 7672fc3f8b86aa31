package resources

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/wippyai/resources/errors"
)

// MaxFetch is the ceiling on the number of requests in one Fetch call. It
// is an ergonomic limit, not a structural one: batches this large are a
// sign the call site should be split.
const MaxFetch = 16

// Mode selects read or write access for one request in a Fetch call.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

// Request names one type and access mode for Fetch. Build requests with
// Read and Write.
type Request struct {
	typ  reflect.Type
	id   TypeID
	mode Mode
}

// Read requests a read guard for T in a Fetch call.
func Read[T any]() Request {
	return Request{id: TypeOf[T](), typ: reflect.TypeOf((*T)(nil)).Elem(), mode: ModeRead}
}

// Write requests a write guard for T in a Fetch call.
func Write[T any]() Request {
	return Request{id: TypeOf[T](), typ: reflect.TypeOf((*T)(nil)).Elem(), mode: ModeWrite}
}

type heldSlot struct {
	slot  *slot
	value any
	typ   reflect.Type
	id    TypeID
	mode  Mode
}

// Batch holds the guards acquired by one Fetch call. Access the guarded
// values with View and Mut; Release unlocks everything.
//
// Like the single guards, a Batch belongs to the goroutine that fetched it.
type Batch struct {
	held     []heldSlot
	released bool
}

// Fetch acquires one guard per request in a single call. Each request
// independently names read or write access:
//
//	b, err := resources.Fetch(c,
//	    resources.Write[Counter](),
//	    resources.Read[Name](),
//	)
//	if err != nil { ... }
//	defer b.Release()
//	resources.Mut[Counter](b).Value++
//
// Locks are acquired in ascending TypeID order regardless of argument
// order, so two concurrent Fetch calls over overlapping type sets cannot
// deadlock against each other. Requesting the same type twice in one call
// panics: such a call would wait on a lock it already holds.
//
// If any requested type is absent, everything already acquired is released
// and a not-present error naming the type is returned.
func Fetch(r *Resources, reqs ...Request) (*Batch, error) {
	if len(reqs) > MaxFetch {
		panic(fmt.Sprintf("resources: Fetch: %d requests exceeds the ceiling of %d", len(reqs), MaxFetch))
	}

	sorted := make([]Request, len(reqs))
	copy(sorted, reqs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].id == sorted[i-1].id {
			panic(errors.DuplicateType(sorted[i].typ.String()))
		}
	}

	// Resolve every slot before taking any lock, so the common absent case
	// costs nothing to other accessors.
	held := make([]heldSlot, 0, len(sorted))
	for _, q := range sorted {
		s := r.tab.lookup(q.id)
		if s == nil {
			return nil, errors.NotPresent(errors.OpFetch, q.typ.String())
		}
		held = append(held, heldSlot{slot: s, typ: q.typ, id: q.id, mode: q.mode})
	}

	for i := range held {
		h := &held[i]
		if h.mode == ModeWrite {
			h.slot.mu.Lock()
		} else {
			h.slot.mu.RLock()
		}
		if h.slot.value == nil {
			// Detached between resolve and acquire.
			releaseHeld(held[:i+1])
			return nil, errors.NotPresent(errors.OpFetch, h.typ.String())
		}
		h.value = h.slot.value
	}

	return &Batch{held: held}, nil
}

// Release unlocks every guard in the batch, in reverse acquisition order.
// Safe to call more than once.
func (b *Batch) Release() {
	if b.released {
		return
	}
	b.released = true
	releaseHeld(b.held)
}

func releaseHeld(held []heldSlot) {
	for i := len(held) - 1; i >= 0; i-- {
		if held[i].mode == ModeWrite {
			held[i].slot.mu.Unlock()
		} else {
			held[i].slot.mu.RUnlock()
		}
	}
}

// View returns a copy of the batch's value of type T. T must have been
// requested (in either mode); anything else is programmer error and panics.
func View[T any](b *Batch) T {
	h := b.find(TypeOf[T]())
	return *mustUnbox[T](errors.OpFetch, h.value)
}

// Mut returns a pointer to the batch's value of type T for in-place
// mutation. T must have been requested with Write; Mut through a read
// request panics.
func Mut[T any](b *Batch) *T {
	h := b.find(TypeOf[T]())
	if h.mode != ModeWrite {
		panic("resources: Mut on a type requested with Read")
	}
	return mustUnbox[T](errors.OpFetch, h.value)
}

func (b *Batch) find(id TypeID) *heldSlot {
	if b.released {
		panic("resources: Batch used after Release")
	}
	for i := range b.held {
		if b.held[i].id == id {
			return &b.held[i]
		}
	}
	panic("resources: type was not requested in this Fetch")
}
