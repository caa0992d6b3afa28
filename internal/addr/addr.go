// Package addr provides the address union used throughout the loop and TCP
// packages: untyped, IPv4, and IPv6 socket addresses, plus textual
// rendering matching the library's canonical forms.
package addr

import (
	"fmt"
	"net"
	"strconv"
)

// Family identifies an address family.
type Family uint8

const (
	Untyped Family = iota
	IPv4
	IPv6
)

// DefaultFamily is the compile-time default socket family used when a
// caller supplies a wildcard address without specifying one.
const DefaultFamily = IPv4

// Addr is the address union described in the spec: a family tag plus the
// fields relevant to that family. The zero value is Untyped.
type Addr struct {
	Family Family
	Port   uint16
	IPv4   [4]byte
	IPv6   [16]byte
	Flow   uint32 // IPv6 flow info
	Zone   string // IPv6 zone id
}

// FromTCPAddr converts a net.TCPAddr into the union form, choosing IPv4 or
// IPv6 based on the address's byte length.
func FromTCPAddr(a *net.TCPAddr) Addr {
	if a == nil {
		return Addr{}
	}

	if ip4 := a.IP.To4(); ip4 != nil {
		var out Addr
		out.Family = IPv4
		out.Port = uint16(a.Port)
		copy(out.IPv4[:], ip4)

		return out
	}

	var out Addr
	out.Family = IPv6
	out.Port = uint16(a.Port)

	ip16 := a.IP.To16()
	if ip16 != nil {
		copy(out.IPv6[:], ip16)
	}

	out.Zone = a.Zone

	return out
}

// TCPAddr converts the union back into a net.TCPAddr for use with
// resolution and diagnostic helpers that are out of this library's scope.
func (a Addr) TCPAddr() *net.TCPAddr {
	switch a.Family {
	case IPv4:
		ip := make(net.IP, 4)
		copy(ip, a.IPv4[:])

		return &net.TCPAddr{IP: ip, Port: int(a.Port)}
	case IPv6:
		ip := make(net.IP, 16)
		copy(ip, a.IPv6[:])

		return &net.TCPAddr{IP: ip, Port: int(a.Port), Zone: a.Zone}
	default:
		return &net.TCPAddr{Port: int(a.Port)}
	}
}

// String renders the canonical textual form: "ddd.ddd.ddd.ddd:ppppp" for
// IPv4, "[h...h%zone]:ppppp" for IPv6.
func (a Addr) String() string {
	switch a.Family {
	case IPv4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.IPv4[0], a.IPv4[1], a.IPv4[2], a.IPv4[3], a.Port)
	case IPv6:
		ip := net.IP(a.IPv6[:]).String()
		if a.Zone != "" {
			ip += "%" + a.Zone
		}

		return "[" + ip + "]:" + strconv.Itoa(int(a.Port))
	default:
		return "<untyped>:" + strconv.Itoa(int(a.Port))
	}
}

// IsWildcard reports whether the address's IP portion is the unspecified
// address (0.0.0.0 or ::), which is valid for Open to mean "any interface".
func (a Addr) IsWildcard() bool {
	switch a.Family {
	case IPv4:
		return a.IPv4 == [4]byte{}
	case IPv6:
		return a.IPv6 == [16]byte{}
	default:
		return true
	}
}
