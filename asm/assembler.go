// Package asm is a small assembler for the RV64 subset the translator
// understands.
package asm

import (
	"bufio"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/sarchlab/rvjit/insts"
)

// Predefined system equates.
var sysEquate = map[string]string{
	"LINENO": "0",
	"XLEN":   "64",
}

var (
	reExpr  = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
)

// Assembler is a single pass assembler with a final label linking step.
type Assembler struct {
	Base   uint64      // Address of the first word.
	Logger logr.Logger // V(1) logs each source line.

	Statements []Statement       // Generated statements.
	Label      map[string]uint64 // Map of labels to addresses.
	Equate     map[string]string // Map of equates.
	predefine  map[string]string
}

// Predefine defines an equate available to every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a numeric word.
func (asm *Assembler) valueOf(word string) (int64, error) {
	v, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		return 0, ErrParseNumber(word)
	}
	return v, nil
}

// parenEval does compile-time $(...) evaluations over the numeric equates.
func (asm *Assembler) parenEval(expr string) (int64, error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, err := asm.valueOf(str)
		if err != nil {
			// Registers and other non-numeric equates.
			continue
		}
		pred[key] = starlark.MakeInt64(v)
	}

	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", "rc = "+expr+"\n", pred)
	if err != nil {
		return 0, ErrParseExpression(expr)
	}

	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, ErrParseExpression(expr)
	}

	v, ok := rc.Int64()
	if !ok {
		return 0, ErrParseExpression(expr)
	}

	return v, nil
}

func (asm *Assembler) currentAddr() uint64 {
	if len(asm.Statements) == 0 {
		return asm.Base
	}

	last := asm.Statements[len(asm.Statements)-1]
	return last.Addr + 4*uint64(len(last.Code))
}

// parseLine expands a line into words, recording equates and labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	line = reExpr.ReplaceAllStringFunc(line, func(str string) string {
		value, evalErr := asm.parenEval(str[2 : len(str)-1])
		if evalErr != nil && err == nil {
			err = evalErr
		}
		return strconv.FormatInt(value, 10)
	})
	if err != nil {
		return nil, err
	}

	words = strings.FieldsFunc(line, func(c rune) bool {
		return c == ' ' || c == '\t' || c == ','
	})

	if len(words) > 0 && words[0] == ".equ" {
		if len(words) != 3 {
			return nil, ErrEquateSyntax
		}
		if _, ok := asm.Equate[words[1]]; ok {
			return nil, ErrEquateDuplicate
		}
		asm.Equate[words[1]] = words[2]
		return nil, nil
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := strings.TrimSuffix(words[0], ":")
		if !reLabel.MatchString(label) {
			return nil, ErrLabelSyntax
		}
		if _, ok := asm.Label[label]; ok {
			return nil, ErrLabelDuplicate
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
	}

	for n := 1; n < len(words); n++ {
		if equate, ok := asm.Equate[words[n]]; ok {
			words[n] = equate
		}
	}

	return words, nil
}

// Parse assembles an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Statements = asm.Statements[:0]
	asm.Label = make(map[string]uint64)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno++

		asm.Logger.V(1).Info("assembling", "line", lineno, "text", text)

		if i := strings.IndexAny(text, "#;"); i >= 0 {
			text = text[:i]
		}
		line = strings.TrimSpace(text)

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return nil, err
		}

		if len(words) == 0 {
			continue
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return nil, err
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, err
	}

	// Final linking of branch targets.
	for n := range asm.Statements {
		st := &asm.Statements[n]
		if len(st.LinkLabel) == 0 {
			continue
		}

		target, ok := asm.Label[st.LinkLabel]
		if !ok {
			lineno, line = st.LineNo, strings.Join(st.Words, " ")
			return nil, ErrLabelMissing(st.LinkLabel)
		}

		var bits uint32
		bits, err = branchBits(int64(target - st.Addr))
		if err != nil {
			lineno, line = st.LineNo, strings.Join(st.Words, " ")
			return nil, err
		}
		st.Code[0] |= bits
	}

	prog = &Program{
		Base:       asm.Base,
		Statements: slices.Clone(asm.Statements),
		Labels:     maps.Clone(asm.Label),
	}

	return prog, nil
}

// branchBits returns the B-type immediate bits of offset.
func branchBits(offset int64) (uint32, error) {
	if offset < -4096 || offset > 4094 {
		return 0, ErrTargetRange
	}
	if offset%2 != 0 {
		return 0, ErrTargetAlignment
	}
	return insts.EncodeB(0, 0, 0, 0, int32(offset)), nil
}

func (asm *Assembler) register(word string) (uint8, error) {
	reg, ok := insts.ParseRegister(word)
	if !ok {
		return 0, ErrRegisterInvalid
	}
	return reg, nil
}

func (asm *Assembler) registers(words []string) (regs []uint8, err error) {
	for _, word := range words {
		var reg uint8
		reg, err = asm.register(word)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (asm *Assembler) immediate12(word string) (int32, error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return 0, err
	}
	if v < -2048 || v > 2047 {
		return 0, ErrImmediateRange
	}
	return int32(v), nil
}

// operands checks the operand count of an instruction.
func operands(words []string, n int) error {
	switch {
	case len(words)-1 < n:
		return ErrOpcodeMissing
	case len(words)-1 > n:
		return ErrOpcodeExtraArgs
	}
	return nil
}

// rTypeMap maps register-register mnemonics to their encoders.
var rTypeMap = map[string]func(rd, rs1, rs2 uint8) uint32{
	"add": insts.EncodeADD,
	"sub": insts.EncodeSUB,
	"sll": insts.EncodeSLL,
	"xor": insts.EncodeXOR,
	"or":  insts.EncodeOR,
	"and": insts.EncodeAND,
}

// branchMap maps branch mnemonics to their encoders.
var branchMap = map[string]func(rs1, rs2 uint8, offset int32) uint32{
	"beq": insts.EncodeBEQ,
	"bne": insts.EncodeBNE,
}

// parseWords encodes one statement.
func (asm *Assembler) parseWords(words []string, lineno int) error {
	st := Statement{
		LineNo: lineno,
		Addr:   asm.currentAddr(),
		Words:  words,
	}

	mnemonic := strings.ToLower(words[0])
	args := words[1:]

	switch mnemonic {
	case ".word":
		if len(args) == 0 {
			return ErrOpcodeMissing
		}
		for _, word := range args {
			v, err := asm.valueOf(word)
			if err != nil {
				return err
			}
			if v < -(1<<31) || v > 0xffffffff {
				return ErrImmediateRange
			}
			st.Code = append(st.Code, uint32(v))
		}
	case "add", "sub", "sll", "xor", "or", "and":
		if err := operands(words, 3); err != nil {
			return err
		}
		regs, err := asm.registers(args)
		if err != nil {
			return err
		}
		st.Code = []uint32{rTypeMap[mnemonic](regs[0], regs[1], regs[2])}
	case "neg":
		if err := operands(words, 2); err != nil {
			return err
		}
		regs, err := asm.registers(args)
		if err != nil {
			return err
		}
		st.Code = []uint32{insts.EncodeSUB(regs[0], 0, regs[1])}
	case "addi":
		if err := operands(words, 3); err != nil {
			return err
		}
		regs, err := asm.registers(args[:2])
		if err != nil {
			return err
		}
		imm, err := asm.immediate12(args[2])
		if err != nil {
			return err
		}
		st.Code = []uint32{insts.EncodeADDI(regs[0], regs[1], imm)}
	case "li":
		if err := operands(words, 2); err != nil {
			return err
		}
		rd, err := asm.register(args[0])
		if err != nil {
			return err
		}
		imm, err := asm.immediate12(args[1])
		if err != nil {
			return err
		}
		st.Code = []uint32{insts.EncodeADDI(rd, 0, imm)}
	case "mv":
		if err := operands(words, 2); err != nil {
			return err
		}
		regs, err := asm.registers(args)
		if err != nil {
			return err
		}
		st.Code = []uint32{insts.EncodeADDI(regs[0], regs[1], 0)}
	case "nop":
		if err := operands(words, 0); err != nil {
			return err
		}
		st.Code = []uint32{insts.EncodeADDI(0, 0, 0)}
	case "beq", "bne":
		if err := operands(words, 3); err != nil {
			return err
		}
		regs, err := asm.registers(args[:2])
		if err != nil {
			return err
		}
		code, label, err := asm.branch(branchMap[mnemonic], regs[0], regs[1], args[2])
		if err != nil {
			return err
		}
		st.Code, st.LinkLabel = []uint32{code}, label
	case "beqz", "bnez":
		if err := operands(words, 2); err != nil {
			return err
		}
		rs, err := asm.register(args[0])
		if err != nil {
			return err
		}
		code, label, err := asm.branch(branchMap[mnemonic[:3]], rs, 0, args[1])
		if err != nil {
			return err
		}
		st.Code, st.LinkLabel = []uint32{code}, label
	default:
		return ErrInstructionInvalid
	}

	asm.Statements = append(asm.Statements, st)
	return nil
}

// branch encodes a branch to a numeric offset, or to a label linked later.
func (asm *Assembler) branch(
	encode func(rs1, rs2 uint8, offset int32) uint32,
	rs1, rs2 uint8,
	target string,
) (code uint32, label string, err error) {
	if reLabel.MatchString(target) {
		return encode(rs1, rs2, 0), target, nil
	}

	offset, err := asm.valueOf(target)
	if err != nil {
		return 0, "", err
	}

	if _, err = branchBits(offset); err != nil {
		return 0, "", err
	}

	return encode(rs1, rs2, int32(offset)), "", nil
}
