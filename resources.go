package resources

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/resources/errors"
)

// Resources is a container holding at most one value of each distinct type.
//
// Structural operations (Insert, Remove, Close) serialize on the table;
// value access (Get, GetMut, Fetch) only takes the table lock for the slot
// lookup and then synchronizes on the slot's own read-write lock, so
// accesses to different types proceed fully in parallel.
//
// The zero value is an empty, usable container.
type Resources struct {
	tab       table
	observers []Observer
	obsMu     sync.RWMutex
}

// New creates an empty container. Functionally identical to the zero value.
func New() *Resources {
	return &Resources{}
}

// Insert stores value keyed by its type, displacing any prior value of the
// same type. The displaced value, if any, is returned with replaced true;
// it is the caller's to clean up. Panics if the container is closed.
//
// Insert blocks until outstanding guards for T release, then swaps the
// payload in place: readers waiting on the slot observe the new value.
func Insert[T any](r *Resources, value T) (prev T, replaced bool) {
	id := TypeOf[T]()
	boxed := &value
	old, replaced, ok := r.tab.insert(id, reflect.TypeOf((*T)(nil)).Elem(), boxed)
	if !ok {
		panic(errors.Closed(errors.OpInsert))
	}

	ev := EventCreated
	if replaced {
		ev = EventReplaced
	}
	r.notify(Event{Type: ev, ID: id, Resource: typeName[T]()})

	if !replaced {
		var zero T
		return zero, false
	}
	return *mustUnbox[T](errors.OpInsert, old), true
}

// Remove takes the value of type T out of the container and returns it.
// The second result is false if no value of type T was stored. Remove does
// not call Drop; ownership returns to the caller. Blocks until outstanding
// guards for T release.
func Remove[T any](r *Resources) (T, bool) {
	id := TypeOf[T]()
	v, ok := r.tab.remove(id)
	if !ok {
		var zero T
		return zero, false
	}
	r.notify(Event{Type: EventRemoved, ID: id, Resource: typeName[T]()})
	return *mustUnbox[T](errors.OpRemove, v), true
}

// Contains reports whether a value of type T is currently stored. Pure
// shape lookup: never blocks on slot locks.
func Contains[T any](r *Resources) bool {
	return r.tab.contains(TypeOf[T]())
}

// Get acquires a read guard for the stored value of type T. It blocks while
// a write guard for T is outstanding and returns a not-present error if no
// value of type T is stored.
func Get[T any](r *Resources) (*Ref[T], error) {
	s := r.tab.lookup(TypeOf[T]())
	if s == nil {
		return nil, errors.NotPresent(errors.OpGet, typeName[T]())
	}
	s.mu.RLock()
	if s.value == nil {
		// Slot was detached between lookup and acquire.
		s.mu.RUnlock()
		return nil, errors.NotPresent(errors.OpGet, typeName[T]())
	}
	return &Ref[T]{slot: s, value: mustUnbox[T](errors.OpGet, s.value)}, nil
}

// GetMut acquires a write guard for the stored value of type T. It blocks
// while any guard for T is outstanding and returns a not-present error if
// no value of type T is stored.
func GetMut[T any](r *Resources) (*RefMut[T], error) {
	s := r.tab.lookup(TypeOf[T]())
	if s == nil {
		return nil, errors.NotPresent(errors.OpGetMut, typeName[T]())
	}
	s.mu.Lock()
	if s.value == nil {
		s.mu.Unlock()
		return nil, errors.NotPresent(errors.OpGetMut, typeName[T]())
	}
	return &RefMut[T]{slot: s, value: mustUnbox[T](errors.OpGetMut, s.value)}, nil
}

// TryGet is the non-blocking Get: if a write guard for T is outstanding it
// returns a busy error instead of waiting.
func TryGet[T any](r *Resources) (*Ref[T], error) {
	s := r.tab.lookup(TypeOf[T]())
	if s == nil {
		return nil, errors.NotPresent(errors.OpTryGet, typeName[T]())
	}
	if !s.mu.TryRLock() {
		return nil, errors.Busy(errors.OpTryGet, typeName[T]())
	}
	if s.value == nil {
		s.mu.RUnlock()
		return nil, errors.NotPresent(errors.OpTryGet, typeName[T]())
	}
	return &Ref[T]{slot: s, value: mustUnbox[T](errors.OpTryGet, s.value)}, nil
}

// TryGetMut is the non-blocking GetMut: if any guard for T is outstanding
// it returns a busy error instead of waiting.
func TryGetMut[T any](r *Resources) (*RefMut[T], error) {
	s := r.tab.lookup(TypeOf[T]())
	if s == nil {
		return nil, errors.NotPresent(errors.OpTryGetMut, typeName[T]())
	}
	if !s.mu.TryLock() {
		return nil, errors.Busy(errors.OpTryGetMut, typeName[T]())
	}
	if s.value == nil {
		s.mu.Unlock()
		return nil, errors.NotPresent(errors.OpTryGetMut, typeName[T]())
	}
	return &RefMut[T]{slot: s, value: mustUnbox[T](errors.OpTryGetMut, s.value)}, nil
}

// Len returns the number of distinct types currently stored.
func (r *Resources) Len() int {
	return r.tab.length()
}

// Close tears the container down: every stored value is detached and, if it
// implements Dropper, dropped exactly once. Values previously handed back
// by Insert or Remove are not affected. Close blocks until outstanding
// guards release, and a second Close is a no-op.
func (r *Resources) Close() error {
	for _, d := range r.tab.drain() {
		if dr, ok := d.value.(Dropper); ok {
			dr.Drop()
		}
		r.notify(Event{Type: EventDropped, ID: d.id, Resource: d.typ.String()})
	}
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (r *Resources) Subscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Resources) Unsubscribe(o Observer) {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Resources) notify(e Event) {
	r.obsMu.RLock()
	defer r.obsMu.RUnlock()
	for _, o := range r.observers {
		o.OnResourceEvent(e)
	}
}

// LogObserver adapts a zap logger into an Observer, emitting one debug
// record per lifecycle event.
type LogObserver struct {
	log *zap.Logger
}

// NewLogObserver creates a LogObserver. A nil logger falls back to the
// package logger.
func NewLogObserver(log *zap.Logger) *LogObserver {
	if log == nil {
		log = Logger()
	}
	return &LogObserver{log: log}
}

// OnResourceEvent implements Observer.
func (o *LogObserver) OnResourceEvent(e Event) {
	o.log.Debug("resource event",
		zap.String("op", eventName(e.Type)),
		zap.String("type", e.Resource),
		zap.Uint32("type_id", uint32(e.ID)),
	)
}

func eventName(t EventType) string {
	switch t {
	case EventCreated:
		return "created"
	case EventReplaced:
		return "replaced"
	case EventRemoved:
		return "removed"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}
