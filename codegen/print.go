package codegen

import (
	"fmt"
	"strings"
)

// String renders the function as text, one instruction per line.
func (fn *Function) String() string {
	var sb strings.Builder

	params := make([]string, len(fn.Sig.Params))
	for i, t := range fn.Sig.Params {
		params[i] = fmt.Sprintf("v%d: %v", i, t)
	}
	returns := make([]string, len(fn.Sig.Returns))
	for i, t := range fn.Sig.Returns {
		returns[i] = t.String()
	}
	fmt.Fprintf(&sb, "function(%s) -> %s {\n",
		strings.Join(params, ", "), strings.Join(returns, ", "))

	for bi, bd := range fn.Blocks {
		fmt.Fprintf(&sb, "block%d:\n", bi)
		for _, inst := range bd.Insts {
			sb.WriteString("    ")
			sb.WriteString(inst.String())
			sb.WriteByte('\n')
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (inst Inst) String() string {
	switch inst.Op {
	case OpIconst:
		return fmt.Sprintf("v%d = iconst %#x", inst.Result, uint64(inst.Imm))
	case OpLoad:
		return fmt.Sprintf("v%d = load.i64 v%d%+d", inst.Result, inst.Args[0], inst.Imm)
	case OpStore:
		return fmt.Sprintf("store v%d, v%d%+d", inst.Args[0], inst.Args[1], inst.Imm)
	case OpIcmp:
		return fmt.Sprintf("v%d = icmp %v v%d, v%d", inst.Result, inst.Cond, inst.Args[0], inst.Args[1])
	case OpBrif:
		return fmt.Sprintf("brif v%d, block%d, block%d", inst.Args[0], inst.Then, inst.Else)
	case OpReturn:
		return fmt.Sprintf("return v%d", inst.Args[0])
	}
	if inst.Op.IsBinary() {
		return fmt.Sprintf("v%d = %v v%d, v%d", inst.Result, inst.Op, inst.Args[0], inst.Args[1])
	}
	return inst.Op.String()
}
