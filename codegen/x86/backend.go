//go:build linux && amd64

package x86

import (
	"fmt"
	"unsafe"

	"github.com/sarchlab/rvjit/codegen"
)

// Backend compiles functions to x86-64 machine code placed in an executable
// region. A compiled block uses a fixed spill area, so it must not be
// re-entered while running.
type Backend struct {
	mem *ExecutableMemory
	asm *Assembler
}

// New maps the executable region and creates the backend.
func New(opts ...Option) (*Backend, error) {
	o := buildOptions(opts)

	mem, err := NewExecutableMemory(o.regionSize)
	if err != nil {
		return nil, err
	}

	return &Backend{mem: mem, asm: NewAssembler()}, nil
}

// Name returns "x86".
func (b *Backend) Name() string {
	return Name
}

// Compile lowers fn into the executable region.
func (b *Backend) Compile(fn *codegen.Function) (codegen.Entry, codegen.CodeInfo, error) {
	if b.mem == nil {
		return nil, codegen.CodeInfo{}, fmt.Errorf("x86 backend is closed")
	}

	mark := b.mem.Used()
	spill, _, err := b.mem.Allocate(SpillSize(fn))
	if err != nil {
		return nil, codegen.CodeInfo{}, err
	}

	b.asm.Reset()
	if err := Lower(b.asm, fn, uint64(spill)); err != nil {
		b.mem.Rewind(mark)
		return nil, codegen.CodeInfo{}, err
	}

	code := b.asm.Bytes()
	addr, buf, err := b.mem.Allocate(len(code))
	if err != nil {
		b.mem.Rewind(mark)
		return nil, codegen.CodeInfo{}, err
	}
	copy(buf, code)

	entry := func(state unsafe.Pointer) uint64 {
		return callBlock(addr, state)
	}

	return entry, codegen.CodeInfo{Size: len(code)}, nil
}

// Used reports the bytes of the executable region in use.
func (b *Backend) Used() int {
	if b.mem == nil {
		return 0
	}
	return b.mem.Used()
}

// Close frees the executable region. Entries returned by Compile must not
// be called afterwards.
func (b *Backend) Close() error {
	if b.mem == nil {
		return nil
	}
	err := b.mem.Free()
	b.mem = nil
	return err
}
