package emu

// ALU implements the integer register-register and register-immediate
// operations.
type ALU struct {
	state *State
}

// NewALU creates a new ALU connected to the given state.
func NewALU(state *State) *ALU {
	return &ALU{state: state}
}

// ADD performs rd = rs1 + rs2, wrapping modulo 2^64.
func (a *ALU) ADD(rd, rs1, rs2 uint8) {
	a.state.WriteReg(rd, a.state.ReadReg(rs1)+a.state.ReadReg(rs2))
}

// SUB performs rd = rs1 - rs2.
func (a *ALU) SUB(rd, rs1, rs2 uint8) {
	a.state.WriteReg(rd, a.state.ReadReg(rs1)-a.state.ReadReg(rs2))
}

// SLL performs rd = rs1 << (rs2 & 63).
func (a *ALU) SLL(rd, rs1, rs2 uint8) {
	shift := a.state.ReadReg(rs2) & 63
	a.state.WriteReg(rd, a.state.ReadReg(rs1)<<shift)
}

// XOR performs rd = rs1 ^ rs2.
func (a *ALU) XOR(rd, rs1, rs2 uint8) {
	a.state.WriteReg(rd, a.state.ReadReg(rs1)^a.state.ReadReg(rs2))
}

// OR performs rd = rs1 | rs2.
func (a *ALU) OR(rd, rs1, rs2 uint8) {
	a.state.WriteReg(rd, a.state.ReadReg(rs1)|a.state.ReadReg(rs2))
}

// AND performs rd = rs1 & rs2.
func (a *ALU) AND(rd, rs1, rs2 uint8) {
	a.state.WriteReg(rd, a.state.ReadReg(rs1)&a.state.ReadReg(rs2))
}

// ADDI performs rd = rs1 + imm.
func (a *ALU) ADDI(rd, rs1 uint8, imm int64) {
	a.state.WriteReg(rd, a.state.ReadReg(rs1)+uint64(imm))
}
