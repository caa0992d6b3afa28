//go:build windows

package allocator

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

func platformPageSize() int {
	var info windows.SystemInfo

	windows.GetSystemInfo(&info)

	if info.PageSize == 0 {
		return 4096
	}

	return int(info.PageSize)
}

// platformPageAlloc reserves and commits memory in one step via
// VirtualAlloc, the Windows equivalent of an anonymous mmap.
func platformPageAlloc(size int) ([]byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

func platformPageFree(mem []byte) error {
	addr := uintptr(unsafe.Pointer(&mem[0]))

	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

func isOutOfMemory(err error) bool {
	return errors.Is(err, windows.ERROR_NOT_ENOUGH_MEMORY) || errors.Is(err, windows.ERROR_OUTOFMEMORY)
}
