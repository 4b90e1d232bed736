package insts

// EncodeR builds an R-type word: funct7 | rs2 | rs1 | funct3 | rd | opcode.
func EncodeR(opcode, funct3, funct7 uint32, rd, rs1, rs2 uint8) uint32 {
	return (funct7&0x7f)<<25 |
		(uint32(rs2)&0x1f)<<20 |
		(uint32(rs1)&0x1f)<<15 |
		(funct3&0x7)<<12 |
		(uint32(rd)&0x1f)<<7 |
		opcode&0x7f
}

// EncodeI builds an I-type word: imm[11:0] | rs1 | funct3 | rd | opcode.
func EncodeI(opcode, funct3 uint32, rd, rs1 uint8, imm int32) uint32 {
	return (uint32(imm)&0xfff)<<20 |
		(uint32(rs1)&0x1f)<<15 |
		(funct3&0x7)<<12 |
		(uint32(rd)&0x1f)<<7 |
		opcode&0x7f
}

// EncodeB builds a B-type word for an even byte offset in [-4096, 4094].
func EncodeB(opcode, funct3 uint32, rs1, rs2 uint8, offset int32) uint32 {
	imm := uint32(offset)
	hi := (imm>>12&0x1)<<6 | (imm >> 5 & 0x3f)
	lo := (imm>>1&0xf)<<1 | (imm >> 11 & 0x1)
	return hi<<25 |
		(uint32(rs2)&0x1f)<<20 |
		(uint32(rs1)&0x1f)<<15 |
		(funct3&0x7)<<12 |
		lo<<7 |
		opcode&0x7f
}

const (
	opcodeOp     = 0x33
	opcodeOpImm  = 0x13
	opcodeBranch = 0x63
)

// EncodeADD encodes add rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint8) uint32 { return EncodeR(opcodeOp, 0, 0x00, rd, rs1, rs2) }

// EncodeSUB encodes sub rd, rs1, rs2.
func EncodeSUB(rd, rs1, rs2 uint8) uint32 { return EncodeR(opcodeOp, 0, 0x20, rd, rs1, rs2) }

// EncodeSLL encodes sll rd, rs1, rs2.
func EncodeSLL(rd, rs1, rs2 uint8) uint32 { return EncodeR(opcodeOp, 1, 0x00, rd, rs1, rs2) }

// EncodeXOR encodes xor rd, rs1, rs2.
func EncodeXOR(rd, rs1, rs2 uint8) uint32 { return EncodeR(opcodeOp, 4, 0x00, rd, rs1, rs2) }

// EncodeOR encodes or rd, rs1, rs2.
func EncodeOR(rd, rs1, rs2 uint8) uint32 { return EncodeR(opcodeOp, 6, 0x00, rd, rs1, rs2) }

// EncodeAND encodes and rd, rs1, rs2.
func EncodeAND(rd, rs1, rs2 uint8) uint32 { return EncodeR(opcodeOp, 7, 0x00, rd, rs1, rs2) }

// EncodeADDI encodes addi rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 { return EncodeI(opcodeOpImm, 0, rd, rs1, imm) }

// EncodeBEQ encodes beq rs1, rs2, offset.
func EncodeBEQ(rs1, rs2 uint8, offset int32) uint32 {
	return EncodeB(opcodeBranch, 0, rs1, rs2, offset)
}

// EncodeBNE encodes bne rs1, rs2, offset.
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	return EncodeB(opcodeBranch, 1, rs1, rs2, offset)
}
