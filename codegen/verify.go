package codegen

import (
	"errors"
	"fmt"
)

// ErrInvalidFunction is wrapped by every verification failure.
var ErrInvalidFunction = errors.New("invalid function")

// VerifyError locates a verification failure. Inst is -1 for block-level
// failures. For "instruction after terminator" it is the first trailing
// instruction.
type VerifyError struct {
	Block Block
	Inst  int
	Msg   string
}

func (e *VerifyError) Error() string {
	switch {
	case e.Block < 0:
		return fmt.Sprintf("function: %s", e.Msg)
	case e.Inst < 0:
		return fmt.Sprintf("block%d: %s", e.Block, e.Msg)
	}
	return fmt.Sprintf("block%d inst %d: %s", e.Block, e.Inst, e.Msg)
}

func (e *VerifyError) Unwrap() error {
	return ErrInvalidFunction
}

// Verify checks the structural invariants backends rely on:
//   - every block ends in exactly one terminator with nothing after it,
//   - branch targets exist,
//   - every operand is defined before use on every path,
//   - operand and result types match.
func (fn *Function) Verify() error {
	if len(fn.Blocks) == 0 {
		return &VerifyError{Block: -1, Inst: -1, Msg: "no blocks"}
	}

	if err := fn.verifyTerminators(); err != nil {
		return err
	}

	defBlock, defPos, err := fn.collectDefs()
	if err != nil {
		return err
	}

	dom := fn.dominators()

	for bi := range fn.Blocks {
		b := Block(bi)
		for pos, inst := range fn.Blocks[bi].Insts {
			fail := func(format string, args ...any) error {
				return &VerifyError{Block: b, Inst: pos, Msg: fmt.Sprintf(format, args...)}
			}

			for _, arg := range fn.operands(inst) {
				if arg < 0 || int(arg) >= len(fn.Values) {
					return fail("operand v%d out of range", arg)
				}
				db := defBlock[arg]
				switch {
				case db == noDef:
					return fail("operand v%d is never defined", arg)
				case db == paramDef:
				case db == b:
					if defPos[arg] >= pos {
						return fail("operand v%d used before definition", arg)
					}
				case !dom[b][db]:
					return fail("definition of v%d in block%d does not dominate use", arg, db)
				}
			}

			if err := fn.checkTypes(inst); err != "" {
				return fail("%s", err)
			}
		}
	}

	return nil
}

func (fn *Function) verifyTerminators() error {
	for bi, bd := range fn.Blocks {
		b := Block(bi)
		if len(bd.Insts) == 0 {
			return &VerifyError{Block: b, Inst: -1, Msg: "empty block"}
		}

		last := len(bd.Insts) - 1
		for pos, inst := range bd.Insts {
			if inst.Op.IsTerminator() && pos != last {
				return &VerifyError{Block: b, Inst: pos + 1, Msg: "instruction after terminator"}
			}
		}

		term := bd.Insts[last]
		if !term.Op.IsTerminator() {
			return &VerifyError{Block: b, Inst: -1, Msg: "block is not terminated"}
		}

		if term.Op == OpBrif {
			for _, target := range []Block{term.Then, term.Else} {
				if target < 0 || int(target) >= len(fn.Blocks) {
					return &VerifyError{Block: b, Inst: last, Msg: fmt.Sprintf("branch to missing block%d", target)}
				}
			}
		}
	}
	return nil
}

const (
	noDef    Block = -2
	paramDef Block = -1
)

func (fn *Function) collectDefs() ([]Block, []int, error) {
	defBlock := make([]Block, len(fn.Values))
	defPos := make([]int, len(fn.Values))
	for i := range defBlock {
		defBlock[i] = noDef
	}
	for i := range fn.Sig.Params {
		if i < len(defBlock) {
			defBlock[i] = paramDef
		}
	}

	for bi, bd := range fn.Blocks {
		for pos, inst := range bd.Insts {
			if inst.Result == NoValue {
				continue
			}
			r := inst.Result
			if r < 0 || int(r) >= len(fn.Values) {
				return nil, nil, &VerifyError{Block: Block(bi), Inst: pos, Msg: fmt.Sprintf("result v%d out of range", r)}
			}
			if defBlock[r] != noDef {
				return nil, nil, &VerifyError{Block: Block(bi), Inst: pos, Msg: fmt.Sprintf("v%d defined twice", r)}
			}
			defBlock[r] = Block(bi)
			defPos[r] = pos
		}
	}

	return defBlock, defPos, nil
}

// dominators returns dom where dom[b][d] reports whether d dominates b.
// Unreachable blocks are dominated only by themselves.
func (fn *Function) dominators() [][]bool {
	n := len(fn.Blocks)
	preds := make([][]Block, n)
	for bi, bd := range fn.Blocks {
		term := bd.Insts[len(bd.Insts)-1]
		if term.Op == OpBrif {
			preds[term.Then] = append(preds[term.Then], Block(bi))
			if term.Else != term.Then {
				preds[term.Else] = append(preds[term.Else], Block(bi))
			}
		}
	}

	reachable := make([]bool, n)
	stack := []Block{0}
	reachable[0] = true
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		term := fn.Blocks[b].Insts[len(fn.Blocks[b].Insts)-1]
		if term.Op != OpBrif {
			continue
		}
		for _, s := range []Block{term.Then, term.Else} {
			if !reachable[s] {
				reachable[s] = true
				stack = append(stack, s)
			}
		}
	}

	dom := make([][]bool, n)
	for b := range dom {
		dom[b] = make([]bool, n)
		if b == 0 || !reachable[b] {
			dom[b][b] = true
			continue
		}
		for d := range dom[b] {
			dom[b][d] = reachable[d]
		}
	}

	for changed := true; changed; {
		changed = false
		for b := 1; b < n; b++ {
			if !reachable[b] {
				continue
			}
			for d := 0; d < n; d++ {
				if d == b || !dom[b][d] {
					continue
				}
				for _, p := range preds[b] {
					if reachable[p] && !dom[p][d] {
						dom[b][d] = false
						changed = true
						break
					}
				}
			}
		}
	}

	return dom
}

func (fn *Function) operands(inst Inst) []Value {
	switch inst.Op {
	case OpLoad, OpBrif, OpReturn:
		return inst.Args[:1]
	case OpStore:
		return inst.Args[:2]
	}
	if inst.Op.IsBinary() {
		return inst.Args[:2]
	}
	return nil
}

func (fn *Function) checkTypes(inst Inst) string {
	typ := func(v Value) Type { return fn.Values[v] }

	switch inst.Op {
	case OpIconst:
		if typ(inst.Result) != I64 {
			return "iconst result must be i64"
		}
	case OpLoad:
		if typ(inst.Args[0]) != Ptr {
			return "load base must be ptr"
		}
	case OpStore:
		if typ(inst.Args[0]) != I64 {
			return "stored value must be i64"
		}
		if typ(inst.Args[1]) != Ptr {
			return "store base must be ptr"
		}
	case OpBrif:
		if typ(inst.Args[0]) != I64 {
			return "branch condition must be i64"
		}
	case OpReturn:
		if len(fn.Sig.Returns) != 1 {
			return fmt.Sprintf("return of one value from a function with %d results", len(fn.Sig.Returns))
		}
		if typ(inst.Args[0]) != fn.Sig.Returns[0] {
			return fmt.Sprintf("return type %v does not match signature %v", typ(inst.Args[0]), fn.Sig.Returns[0])
		}
	default:
		if !inst.Op.IsBinary() {
			return fmt.Sprintf("invalid opcode %d", inst.Op)
		}
		if typ(inst.Args[0]) != I64 || typ(inst.Args[1]) != I64 {
			return fmt.Sprintf("%v operands must be i64", inst.Op)
		}
	}
	return ""
}
