package jit

import (
	"github.com/sarchlab/rvjit/codegen"
	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/insts"
)

// LowerFunc appends IR for the instruction w at pc and reports its control
// flow.
type LowerFunc func(fb *codegen.FunctionBuilder, w insts.Word, pc uint64) Outcome

// Rule binds an opcode pattern to its lowering.
type Rule struct {
	Pattern insts.Pattern
	Lower   LowerFunc
}

// DefaultRules returns the rules of the implemented subset in priority
// order.
func DefaultRules() []Rule {
	return []Rule{
		{insts.PatternADD, lowerRegReg((*codegen.FunctionBuilder).Iadd)},
		{insts.PatternSUB, lowerRegReg((*codegen.FunctionBuilder).Isub)},
		{insts.PatternSLL, lowerRegReg((*codegen.FunctionBuilder).Ishl)},
		{insts.PatternXOR, lowerRegReg((*codegen.FunctionBuilder).Bxor)},
		{insts.PatternOR, lowerRegReg((*codegen.FunctionBuilder).Bor)},
		{insts.PatternAND, lowerRegReg((*codegen.FunctionBuilder).Band)},
		{insts.PatternADDI, lowerADDI},
		{insts.PatternBEQ, lowerBranch(codegen.CondEQ)},
		{insts.PatternBNE, lowerBranch(codegen.CondNE)},
	}
}

// Translator lowers single instructions into IR against the emu.State
// layout.
type Translator struct {
	rules []Rule
}

// NewTranslator creates a translator over DefaultRules.
func NewTranslator() *Translator {
	return NewTranslatorWithRules(DefaultRules())
}

// NewTranslatorWithRules creates a translator over rules, checked in order.
func NewTranslatorWithRules(rules []Rule) *Translator {
	return &Translator{rules: rules}
}

// Patterns returns the patterns of the translator's rules in priority order.
func (t *Translator) Patterns() []insts.Pattern {
	patterns := make([]insts.Pattern, len(t.rules))
	for i, r := range t.rules {
		patterns[i] = r.Pattern
	}
	return patterns
}

// Translate appends IR for the instruction at pc to the current block of fb.
// An instruction that does not lie entirely in mem yields End(pc) and emits
// nothing. A word no rule recognizes yields an *UnknownOpcodeError.
func (t *Translator) Translate(
	fb *codegen.FunctionBuilder,
	mem *emu.Memory,
	pc uint64,
) (Outcome, error) {
	w, ok := mem.Fetch(pc)
	if !ok {
		return End(pc), nil
	}

	for _, r := range t.rules {
		if r.Pattern.Matches(w) {
			return r.Lower(fb, w, pc), nil
		}
	}

	return Outcome{}, &UnknownOpcodeError{PC: pc, Word: w}
}

// readReg loads a register. x0 is materialized as a constant and never
// loaded.
func readReg(fb *codegen.FunctionBuilder, reg uint8) codegen.Value {
	if reg == 0 {
		return fb.Iconst(0)
	}
	return fb.Load(fb.Param(0), emu.RegOffset(reg))
}

// writeReg stores a register. Writes to x0 are dropped.
func writeReg(fb *codegen.FunctionBuilder, reg uint8, v codegen.Value) {
	if reg == 0 {
		return
	}
	fb.Store(v, fb.Param(0), emu.RegOffset(reg))
}

type binaryOp func(fb *codegen.FunctionBuilder, a, b codegen.Value) codegen.Value

func lowerRegReg(op binaryOp) LowerFunc {
	return func(fb *codegen.FunctionBuilder, w insts.Word, pc uint64) Outcome {
		a := readReg(fb, w.Rs1())
		b := readReg(fb, w.Rs2())
		writeReg(fb, w.Rd(), op(fb, a, b))
		return Sequential(pc + w.Length())
	}
}

func lowerADDI(fb *codegen.FunctionBuilder, w insts.Word, pc uint64) Outcome {
	a := readReg(fb, w.Rs1())
	writeReg(fb, w.Rd(), fb.Iadd(a, fb.Iconst(w.ITypeImm())))
	return Sequential(pc + w.Length())
}

func lowerBranch(cc codegen.IntCC) LowerFunc {
	return func(fb *codegen.FunctionBuilder, w insts.Word, pc uint64) Outcome {
		a := readReg(fb, w.Rs1())
		b := readReg(fb, w.Rs2())

		taken := fb.CreateBlock()
		notTaken := fb.CreateBlock()
		fb.Brif(fb.Icmp(cc, a, b), taken, notTaken)

		return Branch(
			uint64(int64(pc)+w.BranchOffset()),
			pc+w.Length(),
			taken,
			notTaken,
		)
	}
}
