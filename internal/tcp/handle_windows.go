//go:build windows

package tcp

import "golang.org/x/sys/windows"

// Handle is the OS socket handle type: a Winsock SOCKET on Windows.
type Handle = windows.Handle
