// Package emu provides the RISC-V machine state, instruction memory and a
// reference interpreter.
package emu

import "unsafe"

// NumRegs is the number of general-purpose integer registers.
const NumRegs = 32

// State is the architectural state visible to compiled blocks. Compiled code
// addresses its fields by the fixed byte offsets RegOffset and PCOffset, so
// the layout must not change.
type State struct {
	// Regs holds x0-x31. Regs[0] is the zero register and is never written.
	Regs [NumRegs]uint64

	// PC is the program counter.
	PC uint64
}

const regsOffset = int32(unsafe.Offsetof(State{}.Regs))

// PCOffset is the byte offset of PC within State.
const PCOffset = int32(unsafe.Offsetof(State{}.PC))

// RegOffset returns the byte offset of register reg within State.
func RegOffset(reg uint8) int32 {
	return regsOffset + int32(reg)*8
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (s *State) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}
	return s.Regs[reg]
}

// WriteReg writes a register value. Writes to register 0 are ignored.
func (s *State) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	s.Regs[reg] = value
}

// Pointer returns the address handed to compiled blocks.
func (s *State) Pointer() unsafe.Pointer {
	return unsafe.Pointer(s)
}
