package codegen

// Value names the result of an IR instruction or a function parameter.
type Value int32

// NoValue marks an instruction without a result.
const NoValue Value = -1

// Block names a basic block within a Function.
type Block int32

// Opcode identifies an IR instruction.
type Opcode uint8

// IR opcodes.
const (
	OpInvalid Opcode = iota
	OpIconst
	OpLoad
	OpStore
	OpIadd
	OpIsub
	OpBand
	OpBor
	OpBxor
	OpIshl
	OpIcmp
	OpBrif
	OpReturn
)

var opcodeNames = [...]string{
	OpInvalid: "invalid",
	OpIconst:  "iconst",
	OpLoad:    "load",
	OpStore:   "store",
	OpIadd:    "iadd",
	OpIsub:    "isub",
	OpBand:    "band",
	OpBor:     "bor",
	OpBxor:    "bxor",
	OpIshl:    "ishl",
	OpIcmp:    "icmp",
	OpBrif:    "brif",
	OpReturn:  "return",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "invalid"
}

// IsTerminator reports whether op ends a block.
func (op Opcode) IsTerminator() bool {
	return op == OpBrif || op == OpReturn
}

// IsBinary reports whether op is a two-operand integer operation.
func (op Opcode) IsBinary() bool {
	switch op {
	case OpIadd, OpIsub, OpBand, OpBor, OpBxor, OpIshl, OpIcmp:
		return true
	}
	return false
}

// IntCC is an integer comparison condition.
type IntCC uint8

// Comparison conditions.
const (
	CondEQ  IntCC = iota // Equal
	CondNE               // Not equal
	CondULT              // Unsigned less than
	CondUGE              // Unsigned greater or equal
	CondSLT              // Signed less than
	CondSGE              // Signed greater or equal
)

var condNames = [...]string{
	CondEQ:  "eq",
	CondNE:  "ne",
	CondULT: "ult",
	CondUGE: "uge",
	CondSLT: "slt",
	CondSGE: "sge",
}

func (cc IntCC) String() string {
	if int(cc) < len(condNames) {
		return condNames[cc]
	}
	return "invalid"
}

// Eval applies the condition to a and b.
func (cc IntCC) Eval(a, b uint64) bool {
	switch cc {
	case CondEQ:
		return a == b
	case CondNE:
		return a != b
	case CondULT:
		return a < b
	case CondUGE:
		return a >= b
	case CondSLT:
		return int64(a) < int64(b)
	case CondSGE:
		return int64(a) >= int64(b)
	}
	return false
}

// Inst is one IR instruction.
//
// Operand use by opcode:
//
//	iconst  Imm
//	load    Args[0]=base, Imm=offset
//	store   Args[0]=value, Args[1]=base, Imm=offset
//	binary  Args[0], Args[1] (icmp also Cond)
//	brif    Args[0]=condition, Then, Else
//	return  Args[0]
type Inst struct {
	Op     Opcode
	Result Value
	Args   [2]Value
	Imm    int64
	Cond   IntCC
	Then   Block
	Else   Block
}

// BlockData holds the instructions of one basic block.
type BlockData struct {
	Insts []Inst
}

// Function is a compilation unit. It is a reusable scratch context: Reset
// clears it for the next build while keeping allocated storage.
type Function struct {
	Sig    Signature
	Blocks []BlockData

	// Values holds the type of every value. Parameters occupy the first
	// len(Sig.Params) entries.
	Values []Type
}

// NewFunction creates an empty function.
func NewFunction() *Function {
	return &Function{}
}

// Reset clears the function and declares sig.
func (fn *Function) Reset(sig Signature) {
	for i := range fn.Blocks {
		fn.Blocks[i].Insts = fn.Blocks[i].Insts[:0]
	}
	fn.Blocks = fn.Blocks[:0]
	fn.Values = append(fn.Values[:0], sig.Params...)
	fn.Sig = sig
}

// Param returns the value of parameter i.
func (fn *Function) Param(i int) Value {
	return Value(i)
}

// NumInsts returns the total number of instructions.
func (fn *Function) NumInsts() int {
	n := 0
	for _, b := range fn.Blocks {
		n += len(b.Insts)
	}
	return n
}
