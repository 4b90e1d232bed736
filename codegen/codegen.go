// Package codegen defines a small target-independent IR for compiled blocks
// and the Backend capability that turns it into callable code.
//
// A Function is built through a FunctionBuilder:
//
//	fn := codegen.NewFunction()
//	fn.Reset(codegen.BlockSignature)
//	fb := codegen.NewFunctionBuilder(fn)
//	entry := fb.CreateBlock()
//	fb.SwitchToBlock(entry)
//	fb.Return(fb.Iconst(0x1000))
//
// and then checked with Verify before being handed to a Backend.
package codegen

import (
	"errors"
	"unsafe"
)

// Type is the type of an IR value.
type Type uint8

// Value types.
const (
	TypeInvalid Type = iota
	I64              // 64-bit integer
	Ptr              // Host pointer
)

func (t Type) String() string {
	switch t {
	case I64:
		return "i64"
	case Ptr:
		return "ptr"
	}
	return "invalid"
}

// Signature declares the parameters and results of a Function.
type Signature struct {
	Params  []Type
	Returns []Type
}

// BlockSignature is the calling contract of every compiled block: a pointer
// to the machine state in, the next program counter out.
var BlockSignature = Signature{
	Params:  []Type{Ptr},
	Returns: []Type{I64},
}

// IsBlockSignature reports whether sig is BlockSignature.
func (sig Signature) IsBlockSignature() bool {
	return len(sig.Params) == 1 && sig.Params[0] == Ptr &&
		len(sig.Returns) == 1 && sig.Returns[0] == I64
}

// Entry is a finalized function with BlockSignature.
type Entry func(state unsafe.Pointer) uint64

// CodeInfo describes the output of a compilation.
type CodeInfo struct {
	// Size is the size of the generated code in bytes, or the number of
	// operations for backends that do not emit machine code.
	Size int
}

// Backend finalizes verified functions into callable entry points.
type Backend interface {
	// Name identifies the backend in logs and statistics.
	Name() string

	// Compile lowers fn. The function is not retained, so the caller may
	// reset and reuse it afterwards.
	Compile(fn *Function) (Entry, CodeInfo, error)
}

// ErrUnsupportedSignature is returned by backends that only accept
// BlockSignature.
var ErrUnsupportedSignature = errors.New("unsupported function signature")
