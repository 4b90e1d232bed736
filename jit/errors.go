package jit

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvjit/insts"
)

// ErrUnknownOpcode is wrapped by UnknownOpcodeError.
var ErrUnknownOpcode = errors.New("unknown opcode")

// UnknownOpcodeError reports a word that matches no translation rule.
type UnknownOpcodeError struct {
	PC   uint64
	Word insts.Word
}

func (e *UnknownOpcodeError) Error() string {
	if e.Word.IsLong() {
		return fmt.Sprintf("unknown opcode 0x%08x at pc 0x%x", uint32(e.Word), e.PC)
	}
	return fmt.Sprintf("unknown opcode 0x%04x at pc 0x%x", uint32(e.Word), e.PC)
}

func (e *UnknownOpcodeError) Unwrap() error {
	return ErrUnknownOpcode
}

// Stage names the step of a block build that failed.
type Stage uint8

// Build stages.
const (
	StageTranslate Stage = iota
	StageVerify
	StageFinalize
)

func (s Stage) String() string {
	switch s {
	case StageTranslate:
		return "translate"
	case StageVerify:
		return "verify"
	case StageFinalize:
		return "finalize"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// BuildError reports a failed block build. Builds are deterministic, so the
// same start address fails the same way again.
type BuildError struct {
	Start uint64
	Stage Stage
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build block at 0x%x: %v: %v", e.Start, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
