package asm

import (
	"encoding/binary"
	"iter"
)

// Statement is a source line that produced code.
type Statement struct {
	LineNo    int      // Line number in the source.
	Addr      uint64   // Address of the first word.
	Words     []string // Tokens after label and equate processing.
	Code      []uint32 // Encoded words.
	LinkLabel string   // Branch target resolved after the last line.
}

// Program is an assembled program image.
type Program struct {
	Base       uint64
	Statements []Statement
	Labels     map[string]uint64
}

// Codes yields every encoded word with its address.
func (prog *Program) Codes() iter.Seq2[uint64, uint32] {
	return func(yield func(addr uint64, code uint32) bool) {
		for _, st := range prog.Statements {
			for n, code := range st.Code {
				if !yield(st.Addr+4*uint64(n), code) {
					return
				}
			}
		}
	}
}

// Words returns the encoded words in address order.
func (prog *Program) Words() (words []uint32) {
	for _, code := range prog.Codes() {
		words = append(words, code)
	}
	return
}

// Bytes returns the little-endian image.
func (prog *Program) Bytes() []byte {
	words := prog.Words()
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[4*i:], w)
	}
	return data
}

// Statement returns the statement whose code covers addr.
func (prog *Program) Statement(addr uint64) (*Statement, bool) {
	for n, st := range prog.Statements {
		if addr >= st.Addr && addr < st.Addr+4*uint64(len(st.Code)) {
			return &prog.Statements[n], true
		}
	}
	return nil, false
}
