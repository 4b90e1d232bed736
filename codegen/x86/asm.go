// Package x86 implements a native codegen.Backend for x86-64. Code runs on
// linux/amd64 only; elsewhere New returns ErrUnsupported. The encoder and the
// IR lowering are portable so they can be tested on any host.
package x86

import (
	"encoding/binary"
)

// Reg is an x86-64 general-purpose register number.
type Reg byte

// Registers.
const (
	RAX Reg = 0
	RCX Reg = 1
	RDX Reg = 2
	RBX Reg = 3
	RSP Reg = 4
	RBP Reg = 5
	RSI Reg = 6
	RDI Reg = 7
	R8  Reg = 8
	R9  Reg = 9
	R10 Reg = 10
	R11 Reg = 11
	R12 Reg = 12
	R13 Reg = 13
	R14 Reg = 14
	R15 Reg = 15
)

// Cond is the low nibble of the setcc/jcc opcodes.
type Cond byte

// Condition codes.
const (
	CondB  Cond = 0x2 // Below (unsigned <)
	CondAE Cond = 0x3 // Above or equal (unsigned >=)
	CondE  Cond = 0x4 // Equal
	CondNE Cond = 0x5 // Not equal
	CondL  Cond = 0xC // Less (signed <)
	CondGE Cond = 0xD // Greater or equal (signed >=)
)

// Assembler emits x86-64 machine code into a growing buffer.
type Assembler struct {
	buf []byte
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Offset returns the current write position.
func (a *Assembler) Offset() int {
	return len(a.buf)
}

// Bytes returns the assembled code.
func (a *Assembler) Bytes() []byte {
	return a.buf
}

// Reset discards the assembled code, keeping the buffer.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}

func (a *Assembler) emit(bytes ...byte) {
	a.buf = append(a.buf, bytes...)
}

func (a *Assembler) emitUint64(v uint64) {
	a.buf = binary.LittleEndian.AppendUint64(a.buf, v)
}

func (a *Assembler) emitInt32(v int32) {
	a.buf = binary.LittleEndian.AppendUint32(a.buf, uint32(v))
}

// PatchRel32 overwrites the rel32 field at pos so it reaches target. The
// displacement is relative to the end of the field.
func (a *Assembler) PatchRel32(pos, target int) {
	binary.LittleEndian.PutUint32(a.buf[pos:], uint32(int32(target-(pos+4))))
}

// rex builds the REX prefix 0100WRXB.
func rex(w, r, x, b bool) byte {
	var prefix byte = 0x40
	if w {
		prefix |= 0x08
	}
	if r {
		prefix |= 0x04
	}
	if x {
		prefix |= 0x02
	}
	if b {
		prefix |= 0x01
	}
	return prefix
}

// rexW returns the REX.W prefix for a 64-bit operation.
func rexW(reg, rm Reg) byte {
	return rex(true, reg >= 8, false, rm >= 8)
}

// modRM builds the ModR/M byte. mod is pre-shifted: 0x00 no displacement,
// 0x40 disp8, 0x80 disp32, 0xC0 register.
func modRM(mod byte, reg, rm Reg) byte {
	return mod | ((byte(reg) & 7) << 3) | (byte(rm) & 7)
}

func (a *Assembler) emitMemOperand(reg, base Reg, disp int32) {
	switch {
	case base == RSP || base == R12:
		if disp == 0 {
			a.emit(modRM(0x00, reg, RSP), 0x24)
		} else if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, RSP), 0x24, byte(disp))
		} else {
			a.emit(modRM(0x80, reg, RSP), 0x24)
			a.emitInt32(disp)
		}
	case base == RBP || base == R13:
		if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, base), byte(disp))
		} else {
			a.emit(modRM(0x80, reg, base))
			a.emitInt32(disp)
		}
	case disp == 0:
		a.emit(modRM(0x00, reg, base))
	case disp >= -128 && disp <= 127:
		a.emit(modRM(0x40, reg, base), byte(disp))
	default:
		a.emit(modRM(0x80, reg, base))
		a.emitInt32(disp)
	}
}

// MovRegImm64 emits mov reg, imm64. Immediates that fit a sign-extended
// imm32 use the shorter form.
func (a *Assembler) MovRegImm64(reg Reg, imm uint64) {
	if v := int64(imm); v >= -1<<31 && v < 1<<31 {
		a.emit(rex(true, false, false, reg >= 8), 0xC7, modRM(0xC0, 0, reg))
		a.emitInt32(int32(v))
		return
	}
	a.emit(rex(true, false, false, reg >= 8), 0xB8|byte(reg&7))
	a.emitUint64(imm)
}

// MovRegMem64 emits mov reg, [base+disp].
func (a *Assembler) MovRegMem64(reg, base Reg, disp int32) {
	a.emit(rexW(reg, base), 0x8B)
	a.emitMemOperand(reg, base, disp)
}

// MovMemReg64 emits mov [base+disp], reg.
func (a *Assembler) MovMemReg64(base Reg, disp int32, reg Reg) {
	a.emit(rexW(reg, base), 0x89)
	a.emitMemOperand(reg, base, disp)
}

// AddRegReg emits add dst, src.
func (a *Assembler) AddRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x01, modRM(0xC0, src, dst))
}

// SubRegReg emits sub dst, src.
func (a *Assembler) SubRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x29, modRM(0xC0, src, dst))
}

// AndRegReg emits and dst, src.
func (a *Assembler) AndRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x21, modRM(0xC0, src, dst))
}

// OrRegReg emits or dst, src.
func (a *Assembler) OrRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x09, modRM(0xC0, src, dst))
}

// XorRegReg emits xor dst, src.
func (a *Assembler) XorRegReg(dst, src Reg) {
	a.emit(rexW(src, dst), 0x31, modRM(0xC0, src, dst))
}

// ShlRegCL emits shl reg, cl. The hardware masks the count to 6 bits.
func (a *Assembler) ShlRegCL(reg Reg) {
	a.emit(rexW(0, reg), 0xD3, modRM(0xC0, 4, reg))
}

// CmpRegReg emits cmp left, right.
func (a *Assembler) CmpRegReg(left, right Reg) {
	a.emit(rexW(right, left), 0x39, modRM(0xC0, right, left))
}

// TestRegReg emits test left, right.
func (a *Assembler) TestRegReg(left, right Reg) {
	a.emit(rexW(right, left), 0x85, modRM(0xC0, right, left))
}

// Setcc emits setcc reg8.
func (a *Assembler) Setcc(cc Cond, reg Reg) {
	if reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, 0x90|byte(cc), modRM(0xC0, 0, reg))
}

// MovzxRegReg8 emits movzx dst, src8.
func (a *Assembler) MovzxRegReg8(dst, src Reg) {
	a.emit(rexW(dst, src), 0x0F, 0xB6, modRM(0xC0, dst, src))
}

// JccRel32 emits a near conditional jump and returns the position of its
// rel32 field.
func (a *Assembler) JccRel32(cc Cond, rel32 int32) int {
	a.emit(0x0F, 0x80|byte(cc))
	pos := a.Offset()
	a.emitInt32(rel32)
	return pos
}

// JmpRel32 emits jmp rel32 and returns the position of its rel32 field.
func (a *Assembler) JmpRel32(rel32 int32) int {
	a.emit(0xE9)
	pos := a.Offset()
	a.emitInt32(rel32)
	return pos
}

// Ret emits ret.
func (a *Assembler) Ret() {
	a.emit(0xC3)
}
