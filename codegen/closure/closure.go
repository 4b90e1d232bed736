// Package closure implements a portable codegen.Backend that lowers each IR
// instruction into a Go closure over a value frame.
package closure

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/sarchlab/rvjit/codegen"
)

// Name is the backend name.
const Name = "closure"

// frame holds the values of one invocation. Integer and pointer values live
// in separate slices so pointers stay visible to the garbage collector.
type frame struct {
	ints []uint64
	ptrs []unsafe.Pointer
}

type op func(fr *frame)

// term returns the next block, or done with the returned value.
type term func(fr *frame) (next int32, ret uint64, done bool)

type block struct {
	ops  []op
	term term
}

// Backend compiles functions into closures.
type Backend struct{}

// New creates a closure backend.
func New() *Backend {
	return &Backend{}
}

// Name returns "closure".
func (b *Backend) Name() string {
	return Name
}

// Compile lowers fn. fn must have codegen.BlockSignature.
func (b *Backend) Compile(fn *codegen.Function) (codegen.Entry, codegen.CodeInfo, error) {
	if !fn.Sig.IsBlockSignature() {
		return nil, codegen.CodeInfo{}, codegen.ErrUnsupportedSignature
	}

	blocks := make([]block, len(fn.Blocks))
	size := 0
	for bi, bd := range fn.Blocks {
		for _, inst := range bd.Insts {
			if inst.Op.IsTerminator() {
				t, err := lowerTerm(inst)
				if err != nil {
					return nil, codegen.CodeInfo{}, fmt.Errorf("block%d: %w", bi, err)
				}
				blocks[bi].term = t
				size++
				continue
			}

			o, err := lowerOp(inst)
			if err != nil {
				return nil, codegen.CodeInfo{}, fmt.Errorf("block%d: %w", bi, err)
			}
			blocks[bi].ops = append(blocks[bi].ops, o)
			size++
		}

		if blocks[bi].term == nil {
			return nil, codegen.CodeInfo{}, fmt.Errorf("block%d is not terminated", bi)
		}
	}

	numValues := len(fn.Values)
	pool := &sync.Pool{
		New: func() any {
			return &frame{
				ints: make([]uint64, numValues),
				ptrs: make([]unsafe.Pointer, numValues),
			}
		},
	}

	entry := func(state unsafe.Pointer) uint64 {
		fr := pool.Get().(*frame)
		fr.ptrs[0] = state
		defer func() {
			fr.ptrs[0] = nil
			pool.Put(fr)
		}()

		cur := int32(0)
		for {
			blk := &blocks[cur]
			for _, o := range blk.ops {
				o(fr)
			}

			next, ret, done := blk.term(fr)
			if done {
				return ret
			}
			cur = next
		}
	}

	return entry, codegen.CodeInfo{Size: size}, nil
}

func lowerOp(inst codegen.Inst) (op, error) {
	r := inst.Result
	a, b := inst.Args[0], inst.Args[1]

	switch inst.Op {
	case codegen.OpIconst:
		imm := uint64(inst.Imm)
		return func(fr *frame) { fr.ints[r] = imm }, nil
	case codegen.OpLoad:
		off := uintptr(inst.Imm)
		return func(fr *frame) {
			fr.ints[r] = *(*uint64)(unsafe.Add(fr.ptrs[a], off))
		}, nil
	case codegen.OpStore:
		off := uintptr(inst.Imm)
		return func(fr *frame) {
			*(*uint64)(unsafe.Add(fr.ptrs[b], off)) = fr.ints[a]
		}, nil
	case codegen.OpIadd:
		return func(fr *frame) { fr.ints[r] = fr.ints[a] + fr.ints[b] }, nil
	case codegen.OpIsub:
		return func(fr *frame) { fr.ints[r] = fr.ints[a] - fr.ints[b] }, nil
	case codegen.OpBand:
		return func(fr *frame) { fr.ints[r] = fr.ints[a] & fr.ints[b] }, nil
	case codegen.OpBor:
		return func(fr *frame) { fr.ints[r] = fr.ints[a] | fr.ints[b] }, nil
	case codegen.OpBxor:
		return func(fr *frame) { fr.ints[r] = fr.ints[a] ^ fr.ints[b] }, nil
	case codegen.OpIshl:
		return func(fr *frame) { fr.ints[r] = fr.ints[a] << (fr.ints[b] & 63) }, nil
	case codegen.OpIcmp:
		cc := inst.Cond
		return func(fr *frame) {
			if cc.Eval(fr.ints[a], fr.ints[b]) {
				fr.ints[r] = 1
			} else {
				fr.ints[r] = 0
			}
		}, nil
	}

	return nil, fmt.Errorf("unsupported opcode %v", inst.Op)
}

func lowerTerm(inst codegen.Inst) (term, error) {
	a := inst.Args[0]

	switch inst.Op {
	case codegen.OpReturn:
		return func(fr *frame) (int32, uint64, bool) {
			return 0, fr.ints[a], true
		}, nil
	case codegen.OpBrif:
		then, els := int32(inst.Then), int32(inst.Else)
		return func(fr *frame) (int32, uint64, bool) {
			if fr.ints[a] != 0 {
				return then, 0, false
			}
			return els, 0, false
		}, nil
	}

	return nil, fmt.Errorf("unsupported terminator %v", inst.Op)
}
