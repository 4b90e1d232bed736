package emu

// BranchUnit implements the conditional branches. Each method updates PC to
// the taken or fall-through address and reports whether the branch was
// taken.
type BranchUnit struct {
	state *State
}

// NewBranchUnit creates a new BranchUnit connected to the given state.
func NewBranchUnit(state *State) *BranchUnit {
	return &BranchUnit{state: state}
}

// BEQ branches to PC + offset if rs1 == rs2.
func (b *BranchUnit) BEQ(rs1, rs2 uint8, offset int64, length uint64) bool {
	return b.cond(b.state.ReadReg(rs1) == b.state.ReadReg(rs2), offset, length)
}

// BNE branches to PC + offset if rs1 != rs2.
func (b *BranchUnit) BNE(rs1, rs2 uint8, offset int64, length uint64) bool {
	return b.cond(b.state.ReadReg(rs1) != b.state.ReadReg(rs2), offset, length)
}

func (b *BranchUnit) cond(taken bool, offset int64, length uint64) bool {
	if taken {
		b.state.PC = uint64(int64(b.state.PC) + offset)
	} else {
		b.state.PC += length
	}
	return taken
}
