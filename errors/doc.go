// Package errors provides structured error types for the resources container.
//
// Every error carries the operation that produced it and a kind that
// categorizes it:
//
//	_, err := resources.Get[Config](c)
//	if errors.IsNotPresent(err) {
//	    // expected: nothing of type Config stored
//	}
//
// Only two kinds are returned as values: KindNotPresent (value access on an
// absent type) and KindBusy (a try variant that would have blocked). Both are
// recoverable conditions the caller is expected to handle.
//
// The remaining kinds describe programmer error and arrive via panic:
// KindDuplicateType (one Fetch call naming a type twice), KindClosed
// (structural use of a closed container), and KindErasure (a slot payload
// that does not match its key type, which indicates a broken internal
// invariant and is never recoverable).
//
// Errors compose with the standard library: they support errors.Is/As via
// Is and Unwrap, and match on kind with an optionally empty Op wildcard.
package errors
