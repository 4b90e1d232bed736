package insts

// Word is a raw instruction word. Compressed (16-bit) encodings occupy the
// low half.
type Word uint32

// LongFormMarker is the value of the two low-order bits that marks a
// 32-bit encoding. Any other value marks a 16-bit encoding.
const LongFormMarker = 0b11

// Field describes a named bit-field of an instruction word.
type Field struct {
	Name   string
	Offset uint
	Length uint
}

// Named fields of the RV64 encoding.
var (
	FieldOpcode   = Field{"opcode", 0, 7}
	FieldRd       = Field{"rd", 7, 5}
	FieldFunct3   = Field{"funct3", 12, 3}
	FieldRs1      = Field{"rs1", 15, 5}
	FieldRs2      = Field{"rs2", 20, 5}
	FieldRs3      = Field{"rs3", 27, 5}
	FieldFunct2   = Field{"funct2", 25, 2}
	FieldFunct7   = Field{"funct7", 25, 7}
	FieldImm12    = Field{"imm12", 20, 12}
	FieldImm20    = Field{"imm20", 12, 20}
	FieldImm12Hi  = Field{"imm12hi", 25, 7}
	FieldImm12Lo  = Field{"imm12lo", 7, 5}
	FieldBImm12Hi = Field{"bimm12hi", 25, 7}
	FieldBImm12Lo = Field{"bimm12lo", 7, 5}
	FieldShamtD   = Field{"shamtd", 20, 6}
	FieldShamtW   = Field{"shamtw", 20, 5}
	FieldCSR      = Field{"csr", 20, 12}

	// Compressed encodings.
	FieldCOp      = Field{"c_op", 0, 2}
	FieldCRs2     = Field{"c_rs2", 2, 5}
	FieldCRdRs1   = Field{"c_rd_rs1", 7, 5}
	FieldCRs1P    = Field{"rs1_p", 7, 3}
	FieldCRs2P    = Field{"rs2_p", 2, 3}
	FieldCImm6Lo  = Field{"c_imm6lo", 2, 5}
	FieldCImm6Hi  = Field{"c_imm6hi", 12, 1}
	FieldCImm12   = Field{"c_imm12", 2, 11}
	FieldCBImm9Lo = Field{"c_bimm9lo", 2, 5}
	FieldCBImm9Hi = Field{"c_bimm9hi", 10, 3}
)

// Fields lists every named field, for tooling and tests.
var Fields = []Field{
	FieldOpcode, FieldRd, FieldFunct3, FieldRs1, FieldRs2, FieldRs3,
	FieldFunct2, FieldFunct7, FieldImm12, FieldImm20, FieldImm12Hi,
	FieldImm12Lo, FieldBImm12Hi, FieldBImm12Lo, FieldShamtD, FieldShamtW,
	FieldCSR, FieldCOp, FieldCRs2, FieldCRdRs1, FieldCRs1P, FieldCRs2P,
	FieldCImm6Lo, FieldCImm6Hi, FieldCImm12, FieldCBImm9Lo, FieldCBImm9Hi,
}

// Field extracts length bits starting at offset.
func (w Word) Field(offset, length uint) uint64 {
	return (uint64(w) >> offset) & ((1 << length) - 1)
}

// FieldSigned extracts length bits starting at offset and sign-extends
// them over the full 64 bits.
func (w Word) FieldSigned(offset, length uint) int64 {
	return int64(uint64(w)<<(64-offset-length)) >> (64 - length)
}

// Get extracts the named field.
func (w Word) Get(f Field) uint64 {
	return w.Field(f.Offset, f.Length)
}

// GetSigned extracts the named field sign-extended.
func (w Word) GetSigned(f Field) int64 {
	return w.FieldSigned(f.Offset, f.Length)
}

// SignExtend treats the low length bits of value as a two's complement
// number.
func SignExtend(value uint64, length uint) int64 {
	shift := 64 - length
	return int64(value<<shift) >> shift
}

// IsLong reports whether the word is a 32-bit encoding.
func (w Word) IsLong() bool {
	return w&0b11 == LongFormMarker
}

// Length returns the instruction length in bytes.
func (w Word) Length() uint64 {
	if w.IsLong() {
		return 4
	}
	return 2
}

// Rd returns the destination register index.
func (w Word) Rd() uint8 { return uint8(w.Get(FieldRd)) }

// Rs1 returns the first source register index.
func (w Word) Rs1() uint8 { return uint8(w.Get(FieldRs1)) }

// Rs2 returns the second source register index.
func (w Word) Rs2() uint8 { return uint8(w.Get(FieldRs2)) }

// ITypeImm returns the sign-extended 12-bit I-type immediate.
func (w Word) ITypeImm() int64 {
	return w.GetSigned(FieldImm12)
}

// BranchOffset reassembles the B-type displacement. The encoding splits an
// even 13-bit offset across bimm12hi and bimm12lo:
//
//	imm[12]   = bimm12hi[6]
//	imm[11]   = bimm12lo[0]
//	imm[10:5] = bimm12hi[5:0]
//	imm[4:1]  = bimm12lo[4:1]
func (w Word) BranchOffset() int64 {
	hi := w.Get(FieldBImm12Hi)
	lo := w.Get(FieldBImm12Lo)
	imm := (hi&0x40)<<6 |
		(lo&0x01)<<11 |
		(hi&0x3f)<<5 |
		lo&0x1e
	return SignExtend(imm, 13)
}
