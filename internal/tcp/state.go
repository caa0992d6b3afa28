// Package tcp implements the TCP connection and listener state machines,
// their buffering discipline, and the pluggable transport vtable that
// lets callers stack behavior (rate limiting, TLS, metrics) over the
// default OS-backed transport.
package tcp

// ConnState is the per-connection lifecycle state. The eight-state form
// (as opposed to a leaner five/six-state variant) models initialised,
// closing, and terminated explicitly so every resource-acquisition step
// has a matching release step to pair against.
type ConnState int

const (
	ConnTerminated ConnState = iota
	ConnInitialised
	ConnClosing
	ConnClosed
	ConnOpen
	ConnConnecting
	ConnConnected
	ConnReading
)

func (s ConnState) String() string {
	switch s {
	case ConnTerminated:
		return "terminated"
	case ConnInitialised:
		return "initialised"
	case ConnClosing:
		return "closing"
	case ConnClosed:
		return "closed"
	case ConnOpen:
		return "open"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnReading:
		return "reading"
	default:
		return "unknown"
	}
}

// ListenerState mirrors the connection's lifecycle, minus the
// connect/read substates a listener never enters.
type ListenerState int

const (
	ListenerTerminated ListenerState = iota
	ListenerInitialised
	ListenerClosing
	ListenerClosed
	ListenerOpen
	ListenerListening
)

func (s ListenerState) String() string {
	switch s {
	case ListenerTerminated:
		return "terminated"
	case ListenerInitialised:
		return "initialised"
	case ListenerClosing:
		return "closing"
	case ListenerClosed:
		return "closed"
	case ListenerOpen:
		return "open"
	case ListenerListening:
		return "listening"
	default:
		return "unknown"
	}
}

// ShutFlags combines independent shutdown directions.
type ShutFlags uint8

const (
	ShutRead ShutFlags = 1 << iota
	ShutWrite
)

func (f ShutFlags) Read() bool  { return f&ShutRead != 0 }
func (f ShutFlags) Write() bool { return f&ShutWrite != 0 }

// Family is the socket address family, compile-time defaulted to IPv4
// per the library's address union.
type Family uint8

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)
