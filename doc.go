// Package resources provides a type-indexed container holding at most one
// value of each distinct Go type, with per-type locking.
//
// Many independent subsystems often need shared, type-safe access to a
// small set of singleton-per-type values: configuration, counters, caches,
// plugin state. Resources stores each such value in its own slot, keyed by
// a process-stable TypeID and guarded by its own read-write lock, so
// accesses to different types never contend and accesses to the same type
// follow the usual many-readers-or-one-writer discipline.
//
// # Quick Start
//
//	c := resources.New()
//	defer c.Close()
//
//	resources.Insert(c, Counter{})
//	resources.Insert(c, Name{Value: "x"})
//
//	ref, err := resources.Get[Name](c)
//	if err != nil {
//	    // errors.IsNotPresent(err): nothing of type Name stored
//	}
//	defer ref.Release()
//	fmt.Println(ref.Value().Value)
//
//	mut, err := resources.GetMut[Counter](c)
//	if err != nil { ... }
//	mut.Value().N++
//	mut.Release()
//
// Go methods cannot introduce type parameters, so the typed operations are
// package-level generic functions taking the container as their first
// argument.
//
// # Structural vs Value Access
//
// Insert, Remove and Close change which types the container holds. They
// serialize on the table and block until outstanding guards for the
// affected type release. They are meant to be rare: populate the container
// at startup, tear it down at shutdown.
//
// Get, GetMut, TryGet, TryGetMut and Fetch access an already-stored value.
// They touch the table only to find the slot, then synchronize purely on
// that slot's lock. Guard acquisition blocks per the read-write discipline;
// the Try variants return a busy error instead of waiting.
//
// # Batched Access
//
// Fetch acquires several guards in one call, each independently read or
// write:
//
//	b, err := resources.Fetch(c,
//	    resources.Write[Counter](),
//	    resources.Read[Name](),
//	)
//	if err != nil { ... }
//	defer b.Release()
//
//	resources.Mut[Counter](b).N++
//	name := resources.View[Name](b)
//
// Locks are always taken in ascending TypeID order, never argument order,
// so concurrent Fetch calls over overlapping type sets cannot deadlock.
// Naming the same type twice in one call panics.
//
// # Lifecycle
//
// Close detaches every stored value and calls Drop on those implementing
// Dropper, exactly once each. Subscribe registers an Observer for
// created/replaced/removed/dropped events; NewLogObserver adapts a
// zap.Logger into one.
//
// # Errors
//
// Absent types and would-block try calls come back as structured errors
// (see the errors subpackage). Misuse - a duplicate type in one Fetch,
// structural operations on a closed container, a guard used after release -
// panics.
package resources
