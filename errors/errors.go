package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Op identifies the container operation that produced the error
type Op string

const (
	OpInsert    Op = "insert"
	OpRemove    Op = "remove"
	OpGet       Op = "get"
	OpGetMut    Op = "get_mut"
	OpTryGet    Op = "try_get"
	OpTryGetMut Op = "try_get_mut"
	OpFetch     Op = "fetch"
	OpEntry     Op = "entry"
	OpClose     Op = "close"
)

// Kind categorizes the error
type Kind string

const (
	// KindNotPresent is the expected, recoverable condition for value access
	// on a type the container does not hold.
	KindNotPresent Kind = "not_present"

	// KindBusy is returned by the non-blocking try variants when the slot
	// lock cannot be taken immediately.
	KindBusy Kind = "busy"

	// KindClosed marks structural use of a container after Close. Surfaced
	// via panic: use after close is programmer error.
	KindClosed Kind = "closed"

	// KindDuplicateType marks a Fetch call that names the same type twice.
	// Surfaced via panic: proceeding would self-deadlock.
	KindDuplicateType Kind = "duplicate_type"

	// KindErasure marks a slot payload that failed its key-type assertion.
	// Structurally unreachable; surfaced via panic if ever observed.
	KindErasure Kind = "erasure"
)

// Error is the structured error type used throughout the container
type Error struct {
	Cause  error
	Op     Op
	Kind   Kind
	Type   string
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Type != "" {
		b.WriteString(": type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target with an empty Op
// matches any operation of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Op != "" && e.Op != t.Op {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(op Op, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Op:   op,
			Kind: kind,
		},
	}
}

// Type sets the Go type name the operation targeted
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotPresent creates the absent-type error for a value-access operation
func NotPresent(op Op, typeName string) *Error {
	return &Error{
		Op:   op,
		Kind: KindNotPresent,
		Type: typeName,
	}
}

// Busy creates the would-block error for a try operation
func Busy(op Op, typeName string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindBusy,
		Type:   typeName,
		Detail: "slot lock held elsewhere",
	}
}

// Closed creates the use-after-close error
func Closed(op Op) *Error {
	return &Error{
		Op:     op,
		Kind:   KindClosed,
		Detail: "container is closed",
	}
}

// DuplicateType creates the same-type-twice error for a Fetch call
func DuplicateType(typeName string) *Error {
	return &Error{
		Op:     OpFetch,
		Kind:   KindDuplicateType,
		Type:   typeName,
		Detail: "requested twice in one call; this would self-deadlock",
	}
}

// Erasure creates the invariant-breach error for a failed downcast
func Erasure(op Op, typeName, got string) *Error {
	return &Error{
		Op:     op,
		Kind:   KindErasure,
		Type:   typeName,
		Detail: fmt.Sprintf("slot payload is %s; key/payload invariant broken", got),
	}
}

// IsNotPresent reports whether err is a not-present error
func IsNotPresent(err error) bool {
	return hasKind(err, KindNotPresent)
}

// IsBusy reports whether err is a would-block error from a try variant
func IsBusy(err error) bool {
	return hasKind(err, KindBusy)
}

// IsClosed reports whether err is a use-after-close error
func IsClosed(err error) bool {
	return hasKind(err, KindClosed)
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
