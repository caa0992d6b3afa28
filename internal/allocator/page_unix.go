//go:build linux || darwin || freebsd || netbsd || openbsd

package allocator

import (
	"errors"

	"golang.org/x/sys/unix"
)

func platformPageSize() int {
	return unix.Getpagesize()
}

// platformPageAlloc wraps an anonymous private read/write mapping, mirroring
// the mmap(MAP_ANON|MAP_PRIVATE) calls used by the pack's io_uring and
// provided-buffer code for page-backed memory.
func platformPageAlloc(size int) ([]byte, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}

	return mem, nil
}

func platformPageFree(mem []byte) error {
	return unix.Munmap(mem)
}

func isOutOfMemory(err error) bool {
	return errors.Is(err, unix.ENOMEM)
}
