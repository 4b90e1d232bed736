package jit

import (
	"fmt"

	"github.com/sarchlab/rvjit/codegen"
)

// Kind classifies how an instruction affects control flow.
type Kind uint8

// Outcome kinds.
const (
	// KindSequential continues decoding at Next.
	KindSequential Kind = iota
	// KindBranch ends the block with two exits selected at run time.
	KindBranch
	// KindEnd ends the block at the edge of instruction memory.
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindSequential:
		return "sequential"
	case KindBranch:
		return "branch"
	case KindEnd:
		return "end"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Outcome is the result of translating one instruction.
type Outcome struct {
	Kind Kind

	// Next is the following decode address of a sequential instruction.
	Next uint64

	// Address is returned unchanged by a block that ends here.
	Address uint64

	// Taken and NotTaken are the successor addresses of a branch.
	Taken    uint64
	NotTaken uint64

	// TakenExit and NotTakenExit are the open IR blocks of a branch. The
	// Builder terminates them.
	TakenExit    codegen.Block
	NotTakenExit codegen.Block
}

// Sequential returns an outcome that continues at next.
func Sequential(next uint64) Outcome {
	return Outcome{Kind: KindSequential, Next: next}
}

// End returns an outcome that stops the block and returns addr.
func End(addr uint64) Outcome {
	return Outcome{Kind: KindEnd, Address: addr}
}

// Branch returns an outcome with two exits.
func Branch(taken, notTaken uint64, takenExit, notTakenExit codegen.Block) Outcome {
	return Outcome{
		Kind:         KindBranch,
		Taken:        taken,
		NotTaken:     notTaken,
		TakenExit:    takenExit,
		NotTakenExit: notTakenExit,
	}
}
