//go:build linux && amd64

package x86

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ExecutableMemory is an mmap'd read-write-execute region carved up by a
// bump allocator.
type ExecutableMemory struct {
	buffer []byte
	used   int
}

// NewExecutableMemory maps size bytes of executable memory.
func NewExecutableMemory(size int) (*ExecutableMemory, error) {
	if size <= 0 {
		size = DefaultRegionSize
	}

	buffer, err := unix.Mmap(
		-1, 0,
		size,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap executable memory: %w", err)
	}

	return &ExecutableMemory{buffer: buffer}, nil
}

// Allocate reserves size bytes aligned to 16 and returns their address and
// backing slice.
func (em *ExecutableMemory) Allocate(size int) (uintptr, []byte, error) {
	start := (em.used + 15) &^ 15
	if start+size > len(em.buffer) {
		return 0, nil, fmt.Errorf("out of executable memory: need %d, have %d",
			size, len(em.buffer)-start)
	}

	slice := em.buffer[start : start+size : start+size]
	em.used = start + size

	return em.BaseAddress() + uintptr(start), slice, nil
}

// Rewind releases everything allocated since Used returned mark.
func (em *ExecutableMemory) Rewind(mark int) {
	if mark >= 0 && mark < em.used {
		em.used = mark
	}
}

// BaseAddress returns the address of the region.
func (em *ExecutableMemory) BaseAddress() uintptr {
	if len(em.buffer) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&em.buffer[0]))
}

// Used returns the number of bytes allocated so far.
func (em *ExecutableMemory) Used() int {
	return em.used
}

// Free unmaps the region. Code allocated from it must not run afterwards.
func (em *ExecutableMemory) Free() error {
	if em.buffer == nil {
		return nil
	}

	err := unix.Munmap(em.buffer)
	em.buffer = nil
	em.used = 0
	return err
}
