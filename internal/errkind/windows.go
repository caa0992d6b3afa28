//go:build windows

package errkind

import "golang.org/x/sys/windows"

// FromWinsockErrno maps a Winsock error code to a portable Kind, mirroring
// FromErrno's POSIX table.
func FromWinsockErrno(op string, errno windows.Errno) *Error {
	switch errno {
	case 0:
		return nil
	case windows.WSAEWOULDBLOCK:
		return New(op, WouldBlock)
	case windows.WSAEINTR:
		return New(op, Interrupted)
	case windows.WSAEINPROGRESS:
		return New(op, InProgress)
	case windows.WSAEALREADY:
		return New(op, Already)
	case windows.WSAEADDRINUSE:
		return New(op, AddressInUse)
	case windows.WSAEADDRNOTAVAIL:
		return New(op, AddressNotAvailable)
	case windows.WSAECONNREFUSED:
		return New(op, ConnectionRefused)
	case windows.WSAECONNRESET:
		return New(op, ConnectionReset)
	case windows.WSAECONNABORTED:
		return New(op, ConnectionAborted)
	case windows.WSAEHOSTUNREACH:
		return New(op, HostUnreachable)
	case windows.WSAENETUNREACH:
		return New(op, NetworkUnreachable)
	case windows.WSAENETDOWN:
		return New(op, NetworkDown)
	case windows.WSAETIMEDOUT:
		return New(op, TimedOut)
	case windows.WSAENOTCONN:
		return New(op, NotConnected)
	case windows.WSAEACCES:
		return New(op, PermissionDenied)
	case windows.WSAEINVAL:
		return New(op, InvalidArg)
	case windows.WSAEMFILE:
		return New(op, DescriptorTableFull)
	default:
		return Wrap(op, int(errno), errno)
	}
}
