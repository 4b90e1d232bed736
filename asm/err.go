package asm

import (
	"errors"

	"github.com/sarchlab/rvjit/translate"
)

var f = translate.From

var (
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelSyntax        = errors.New(f("label syntax"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeMissing      = errors.New(f("operand missing"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrTargetRange        = errors.New(f("branch target out of range"))
	ErrTargetAlignment    = errors.New(f("branch target not halfword aligned"))
)

// ErrLabelMissing names a branch target that is never defined.
type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrSyntax locates an error in the source text.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
