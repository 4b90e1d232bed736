//go:build linux && amd64

package x86

import "unsafe"

// callBlock calls generated code at entry with state in RDI and returns RAX.
func callBlock(entry uintptr, state unsafe.Pointer) uint64
