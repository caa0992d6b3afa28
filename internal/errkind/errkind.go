// Package errkind defines the closed error taxonomy shared by the
// allocator, event loop, and TCP packages, along with the four-band
// propagation policy described for the library: argument/state errors
// returned synchronously, transient backend conditions absorbed locally,
// operational failures surfaced to observers, and fatal platform
// violations that abort the process.
package errkind

import "fmt"

// Kind is a closed enumeration of portable error conditions, scoped to
// POSIX-equivalent asynchronous-I/O semantics.
type Kind int

const (
	OK Kind = iota
	InvalidArg
	BadState
	Cancelled
	EOF
	InProgress
	Already
	WouldBlock
	Interrupted
	AddressInUse
	AddressNotAvailable
	ConnectionRefused
	ConnectionReset
	ConnectionAborted
	HostUnreachable
	NetworkUnreachable
	NetworkDown
	NoBuffers
	OutOfMemory
	Overflow
	Range
	TimedOut
	NotConnected
	NotSupported
	PermissionDenied
	DescriptorTableFull
	SystemTableFull
	PlatformDependency
	Internal
	Syntax
)

//nolint:gochecknoglobals // read-only lookup table, not mutated after init.
var names = map[Kind]string{
	OK:                  "ok",
	InvalidArg:          "invalid-arg",
	BadState:            "bad-state",
	Cancelled:           "cancelled",
	EOF:                 "eof",
	InProgress:          "in-progress",
	Already:             "already",
	WouldBlock:          "would-block",
	Interrupted:         "interrupted",
	AddressInUse:        "address-in-use",
	AddressNotAvailable: "address-not-available",
	ConnectionRefused:   "connection-refused",
	ConnectionReset:     "connection-reset",
	ConnectionAborted:   "connection-aborted",
	HostUnreachable:     "host-unreachable",
	NetworkUnreachable:  "network-unreachable",
	NetworkDown:         "network-down",
	NoBuffers:           "no-buffers",
	OutOfMemory:         "out-of-memory",
	Overflow:            "overflow",
	Range:               "range",
	TimedOut:            "timed-out",
	NotConnected:        "not-connected",
	NotSupported:        "not-supported",
	PermissionDenied:    "permission-denied",
	DescriptorTableFull: "descriptor-table-full",
	SystemTableFull:     "system-table-full",
	PlatformDependency:  "platform-dependency",
	Internal:            "internal",
	Syntax:              "syntax",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// Error wraps a Kind with an operation name and, for PlatformDependency,
// the native platform error code that had no portable mapping.
type Error struct {
	Kind     Kind
	Op       string
	Native   int // valid when Kind == PlatformDependency
	wrapped  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == PlatformDependency {
		return fmt.Sprintf("%s: %s (native code %d)", e.Op, e.Kind, e.Native)
	}

	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.wrapped)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap exposes the underlying platform error, if any, for errors.Is/As.
func (e *Error) Unwrap() error { return e.wrapped }

// New builds an *Error for the given kind and operation.
func New(op string, kind Kind) *Error {
	return &Error{Op: op, Kind: kind}
}

// Wrap builds a PlatformDependency error that folds an unrecognized native
// error into the portable taxonomy, retaining the original for Unwrap and
// the native code for diagnostics.
func Wrap(op string, native int, err error) *Error {
	return &Error{Op: op, Kind: PlatformDependency, Native: native, wrapped: err}
}

// Of extracts the Kind from err if it is (or wraps) an *Error, otherwise
// returns Internal — every non-taxonomy error reaching this boundary is a
// programming error, not a recoverable I/O condition.
func Of(err error) Kind {
	if err == nil {
		return OK
	}

	var e *Error
	if asError(err, &e) {
		return e.Kind
	}

	return Internal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e

			return true
		}

		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}

		err = u.Unwrap()
	}

	return false
}

// Transient reports whether kind belongs to band (2) of the propagation
// policy: conditions absorbed locally and translated into a normal
// continuation rather than surfaced to an observer.
func Transient(kind Kind) bool {
	switch kind {
	case WouldBlock, Interrupted, InProgress, Already:
		return true
	default:
		return false
	}
}

// Synchronous reports whether kind belongs to band (1): argument or state
// errors that are always returned directly from the issuing call and never
// reach an observer callback.
func Synchronous(kind Kind) bool {
	switch kind {
	case InvalidArg, BadState:
		return true
	default:
		return false
	}
}
