package x86

import (
	"fmt"
	"math"

	"github.com/sarchlab/rvjit/codegen"
)

// Register roles in generated code. The state pointer arrives in RDI and
// stays there; values live in 8-byte spill slots addressed from R11.
const (
	stateReg   = RDI
	spillReg   = R11
	scratchReg = RAX
	operandReg = RCX
)

var condCodes = map[codegen.IntCC]Cond{
	codegen.CondEQ:  CondE,
	codegen.CondNE:  CondNE,
	codegen.CondULT: CondB,
	codegen.CondUGE: CondAE,
	codegen.CondSLT: CondL,
	codegen.CondSGE: CondGE,
}

// SpillSize returns the number of bytes of spill area fn needs.
func SpillSize(fn *codegen.Function) int {
	return 8 * len(fn.Values)
}

type fixup struct {
	pos    int
	target codegen.Block
}

type lowering struct {
	asm    *Assembler
	fn     *codegen.Function
	fixups []fixup
}

// Lower appends code for fn to asm. spill is the address of a SpillSize(fn)
// byte area, embedded as an absolute constant.
func Lower(asm *Assembler, fn *codegen.Function, spill uint64) error {
	if !fn.Sig.IsBlockSignature() {
		return codegen.ErrUnsupportedSignature
	}
	if SpillSize(fn) > math.MaxInt32 {
		return fmt.Errorf("function has too many values: %d", len(fn.Values))
	}

	l := &lowering{asm: asm, fn: fn}
	start := asm.Offset()
	blockOffsets := make([]int, len(fn.Blocks))

	asm.MovRegImm64(spillReg, spill)

	for bi, bd := range fn.Blocks {
		blockOffsets[bi] = asm.Offset() - start
		for _, inst := range bd.Insts {
			if err := l.lowerInst(inst); err != nil {
				return fmt.Errorf("block%d: %w", bi, err)
			}
		}
	}

	for _, f := range l.fixups {
		if int(f.target) >= len(blockOffsets) || f.target < 0 {
			return fmt.Errorf("branch to missing block%d", f.target)
		}
		asm.PatchRel32(f.pos, start+blockOffsets[f.target])
	}

	return nil
}

func (l *lowering) slot(v codegen.Value) int32 {
	return int32(8 * v)
}

func (l *lowering) load(reg Reg, v codegen.Value) {
	l.asm.MovRegMem64(reg, spillReg, l.slot(v))
}

func (l *lowering) spill(v codegen.Value, reg Reg) {
	l.asm.MovMemReg64(spillReg, l.slot(v), reg)
}

func (l *lowering) checkBase(v codegen.Value) error {
	if v != 0 {
		return fmt.Errorf("memory access through v%d: only the state parameter can be a base", v)
	}
	return nil
}

func (l *lowering) lowerInst(inst codegen.Inst) error {
	a := l.asm

	switch inst.Op {
	case codegen.OpIconst:
		a.MovRegImm64(scratchReg, uint64(inst.Imm))
		l.spill(inst.Result, scratchReg)

	case codegen.OpLoad:
		if err := l.checkBase(inst.Args[0]); err != nil {
			return err
		}
		a.MovRegMem64(scratchReg, stateReg, int32(inst.Imm))
		l.spill(inst.Result, scratchReg)

	case codegen.OpStore:
		if err := l.checkBase(inst.Args[1]); err != nil {
			return err
		}
		l.load(scratchReg, inst.Args[0])
		a.MovMemReg64(stateReg, int32(inst.Imm), scratchReg)

	case codegen.OpIadd, codegen.OpIsub, codegen.OpBand, codegen.OpBor,
		codegen.OpBxor, codegen.OpIshl:
		l.load(scratchReg, inst.Args[0])
		l.load(operandReg, inst.Args[1])
		switch inst.Op {
		case codegen.OpIadd:
			a.AddRegReg(scratchReg, operandReg)
		case codegen.OpIsub:
			a.SubRegReg(scratchReg, operandReg)
		case codegen.OpBand:
			a.AndRegReg(scratchReg, operandReg)
		case codegen.OpBor:
			a.OrRegReg(scratchReg, operandReg)
		case codegen.OpBxor:
			a.XorRegReg(scratchReg, operandReg)
		case codegen.OpIshl:
			a.ShlRegCL(scratchReg)
		}
		l.spill(inst.Result, scratchReg)

	case codegen.OpIcmp:
		cc, ok := condCodes[inst.Cond]
		if !ok {
			return fmt.Errorf("unsupported condition %v", inst.Cond)
		}
		l.load(scratchReg, inst.Args[0])
		l.load(operandReg, inst.Args[1])
		a.CmpRegReg(scratchReg, operandReg)
		a.Setcc(cc, scratchReg)
		a.MovzxRegReg8(scratchReg, scratchReg)
		l.spill(inst.Result, scratchReg)

	case codegen.OpBrif:
		l.load(scratchReg, inst.Args[0])
		a.TestRegReg(scratchReg, scratchReg)
		l.fixups = append(l.fixups,
			fixup{pos: a.JccRel32(CondNE, 0), target: inst.Then},
			fixup{pos: a.JmpRel32(0), target: inst.Else},
		)

	case codegen.OpReturn:
		l.load(scratchReg, inst.Args[0])
		a.Ret()

	default:
		return fmt.Errorf("unsupported opcode %v", inst.Op)
	}

	return nil
}
