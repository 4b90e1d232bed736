package codegen

// FunctionBuilder appends instructions to a Function. Instructions go to the
// current block, selected with SwitchToBlock.
type FunctionBuilder struct {
	fn  *Function
	cur Block
}

// NewFunctionBuilder creates a builder over fn.
func NewFunctionBuilder(fn *Function) *FunctionBuilder {
	return &FunctionBuilder{fn: fn, cur: -1}
}

// Func returns the function under construction.
func (fb *FunctionBuilder) Func() *Function {
	return fb.fn
}

// CreateBlock adds an empty block. The first block created is the entry.
func (fb *FunctionBuilder) CreateBlock() Block {
	fn := fb.fn
	n := len(fn.Blocks)
	if n < cap(fn.Blocks) {
		fn.Blocks = fn.Blocks[:n+1]
		fn.Blocks[n].Insts = fn.Blocks[n].Insts[:0]
	} else {
		fn.Blocks = append(fn.Blocks, BlockData{})
	}
	return Block(n)
}

// SwitchToBlock makes b the current block.
func (fb *FunctionBuilder) SwitchToBlock(b Block) {
	fb.cur = b
}

// CurrentBlock returns the block instructions are appended to.
func (fb *FunctionBuilder) CurrentBlock() Block {
	return fb.cur
}

// IsTerminated reports whether b already ends in a terminator.
func (fb *FunctionBuilder) IsTerminated(b Block) bool {
	insts := fb.fn.Blocks[b].Insts
	return len(insts) > 0 && insts[len(insts)-1].Op.IsTerminator()
}

// Param returns the value of parameter i.
func (fb *FunctionBuilder) Param(i int) Value {
	return fb.fn.Param(i)
}

func (fb *FunctionBuilder) newValue(t Type) Value {
	fb.fn.Values = append(fb.fn.Values, t)
	return Value(len(fb.fn.Values) - 1)
}

func (fb *FunctionBuilder) append(inst Inst) {
	b := &fb.fn.Blocks[fb.cur]
	b.Insts = append(b.Insts, inst)
}

// Iconst materializes a 64-bit constant.
func (fb *FunctionBuilder) Iconst(imm int64) Value {
	v := fb.newValue(I64)
	fb.append(Inst{Op: OpIconst, Result: v, Args: [2]Value{NoValue, NoValue}, Imm: imm})
	return v
}

// Load reads a 64-bit integer from base+offset.
func (fb *FunctionBuilder) Load(base Value, offset int32) Value {
	v := fb.newValue(I64)
	fb.append(Inst{Op: OpLoad, Result: v, Args: [2]Value{base, NoValue}, Imm: int64(offset)})
	return v
}

// Store writes value to base+offset.
func (fb *FunctionBuilder) Store(value, base Value, offset int32) {
	fb.append(Inst{Op: OpStore, Result: NoValue, Args: [2]Value{value, base}, Imm: int64(offset)})
}

func (fb *FunctionBuilder) binary(op Opcode, a, b Value) Value {
	v := fb.newValue(I64)
	fb.append(Inst{Op: op, Result: v, Args: [2]Value{a, b}})
	return v
}

// Iadd returns a + b, wrapping.
func (fb *FunctionBuilder) Iadd(a, b Value) Value { return fb.binary(OpIadd, a, b) }

// Isub returns a - b, wrapping.
func (fb *FunctionBuilder) Isub(a, b Value) Value { return fb.binary(OpIsub, a, b) }

// Band returns a & b.
func (fb *FunctionBuilder) Band(a, b Value) Value { return fb.binary(OpBand, a, b) }

// Bor returns a | b.
func (fb *FunctionBuilder) Bor(a, b Value) Value { return fb.binary(OpBor, a, b) }

// Bxor returns a ^ b.
func (fb *FunctionBuilder) Bxor(a, b Value) Value { return fb.binary(OpBxor, a, b) }

// Ishl returns a << (b & 63).
func (fb *FunctionBuilder) Ishl(a, b Value) Value { return fb.binary(OpIshl, a, b) }

// Icmp returns 1 if cc holds for a and b, otherwise 0.
func (fb *FunctionBuilder) Icmp(cc IntCC, a, b Value) Value {
	v := fb.newValue(I64)
	fb.append(Inst{Op: OpIcmp, Result: v, Args: [2]Value{a, b}, Cond: cc})
	return v
}

// Brif ends the current block, continuing at then when c is non-zero and at
// els otherwise.
func (fb *FunctionBuilder) Brif(c Value, then, els Block) {
	fb.append(Inst{Op: OpBrif, Result: NoValue, Args: [2]Value{c, NoValue}, Then: then, Else: els})
}

// Return ends the current block, returning v.
func (fb *FunctionBuilder) Return(v Value) {
	fb.append(Inst{Op: OpReturn, Result: NoValue, Args: [2]Value{v, NoValue}})
}
