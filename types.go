package resources

// TypeID is a process-stable identifier for a stored type.
// ID 0 is reserved and never assigned.
//
// IDs are assigned by a global registry the first time a type is used with
// any container, so they are unique per concrete type and stable for the
// lifetime of the process. They are not stable across processes or builds.
// The total order over IDs is what Fetch uses to acquire slot locks in a
// canonical order.
type TypeID uint32

// Dropper is optionally implemented by stored values that need cleanup.
// Close calls Drop exactly once for every value still in the container.
// Values handed back to the caller by Insert (the displaced value) or
// Remove are not dropped; ownership returns to the caller.
type Dropper interface {
	Drop()
}

// EventType identifies a container lifecycle event.
type EventType uint8

const (
	EventCreated  EventType = iota // first value stored for a type
	EventReplaced                  // existing value displaced by Insert
	EventRemoved                   // value removed and returned to caller
	EventDropped                   // value dropped by Close
)

// Event describes a structural change to the container.
type Event struct {
	Resource string // Go name of the stored type
	ID       TypeID
	Type     EventType
}

// Observer receives notifications about container lifecycle events.
// Observers are called after the table mutation completes and outside any
// slot lock, so they may call back into the container.
type Observer interface {
	OnResourceEvent(Event)
}
