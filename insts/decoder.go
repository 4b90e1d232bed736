package insts

import "fmt"

// Op represents a RISC-V operation.
type Op uint16

// RISC-V operations.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpSLL
	OpXOR
	OpOR
	OpAND
	OpADDI
	OpBEQ
	OpBNE
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSLL:     "sll",
	OpXOR:     "xor",
	OpOR:      "or",
	OpAND:     "and",
	OpADDI:    "addi",
	OpBEQ:     "beq",
	OpBNE:     "bne",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint16(op))
}

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // Register-register
	FormatI              // Register-immediate
	FormatB              // Conditional branch
)

// Pattern recognizes an operation: a word belongs to the pattern when
// word&Mask == Match.
type Pattern struct {
	Op     Op
	Format Format
	Mask   Word
	Match  Word
}

// Matches reports whether w is recognized by p.
func (p Pattern) Matches(w Word) bool {
	return w&p.Mask == p.Match
}

// Opcode patterns of the implemented subset.
var (
	PatternADD  = Pattern{OpADD, FormatR, 0xfe00707f, 0x00000033}
	PatternSUB  = Pattern{OpSUB, FormatR, 0xfe00707f, 0x40000033}
	PatternSLL  = Pattern{OpSLL, FormatR, 0xfe00707f, 0x00001033}
	PatternXOR  = Pattern{OpXOR, FormatR, 0xfe00707f, 0x00004033}
	PatternOR   = Pattern{OpOR, FormatR, 0xfe00707f, 0x00006033}
	PatternAND  = Pattern{OpAND, FormatR, 0xfe00707f, 0x00007033}
	PatternADDI = Pattern{OpADDI, FormatI, 0x0000707f, 0x00000013}
	PatternBEQ  = Pattern{OpBEQ, FormatB, 0x0000707f, 0x00000063}
	PatternBNE  = Pattern{OpBNE, FormatB, 0x0000707f, 0x00001063}
)

// Patterns lists the implemented patterns in match priority order.
var Patterns = []Pattern{
	PatternADD,
	PatternSUB,
	PatternSLL,
	PatternXOR,
	PatternOR,
	PatternAND,
	PatternADDI,
	PatternBEQ,
	PatternBNE,
}

// Instruction represents a decoded RISC-V instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format
	Word   Word   // Raw encoding
	Length uint64 // Length in bytes (2 or 4)

	Rd  uint8 // Destination register
	Rs1 uint8 // First source register
	Rs2 uint8 // Second source register

	// Imm is the sign-extended immediate for I-type instructions and the
	// byte displacement for branches.
	Imm int64
}

// IsBranch reports whether the instruction may transfer control.
func (inst *Instruction) IsBranch() bool {
	return inst.Format == FormatB
}

// String renders the instruction in assembly syntax.
func (inst *Instruction) String() string {
	switch inst.Format {
	case FormatR:
		return fmt.Sprintf("%v x%d, x%d, x%d", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	case FormatI:
		return fmt.Sprintf("%v x%d, x%d, %d", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
	case FormatB:
		return fmt.Sprintf("%v x%d, x%d, %d", inst.Op, inst.Rs1, inst.Rs2, inst.Imm)
	}
	if inst.Length == 2 {
		return fmt.Sprintf(".half 0x%04x", uint32(inst.Word)&0xffff)
	}
	return fmt.Sprintf(".word 0x%08x", uint32(inst.Word))
}

// Decoder decodes RISC-V machine code into instructions.
type Decoder struct {
	patterns []Pattern
}

// NewDecoder creates a new decoder over the implemented patterns.
func NewDecoder() *Decoder {
	return &Decoder{patterns: Patterns}
}

// Lookup returns the first pattern, in priority order, that recognizes w.
func (d *Decoder) Lookup(w Word) (Pattern, bool) {
	for _, p := range d.patterns {
		if p.Matches(w) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Decode decodes an instruction word. Words outside the implemented subset
// decode with Op set to OpUnknown.
func (d *Decoder) Decode(w Word) *Instruction {
	inst := &Instruction{
		Op:     OpUnknown,
		Format: FormatUnknown,
		Word:   w,
		Length: w.Length(),
	}

	p, ok := d.Lookup(w)
	if !ok {
		return inst
	}

	inst.Op = p.Op
	inst.Format = p.Format

	switch p.Format {
	case FormatR:
		inst.Rd = w.Rd()
		inst.Rs1 = w.Rs1()
		inst.Rs2 = w.Rs2()
	case FormatI:
		inst.Rd = w.Rd()
		inst.Rs1 = w.Rs1()
		inst.Imm = w.ITypeImm()
	case FormatB:
		inst.Rs1 = w.Rs1()
		inst.Rs2 = w.Rs2()
		inst.Imm = w.BranchOffset()
	}

	return inst
}
