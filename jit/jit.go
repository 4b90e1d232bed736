// Package jit translates RISC-V instruction runs into compiled blocks.
//
// A Translator lowers one instruction at a time into codegen IR. A Builder
// drives the Translator from a start address to the next control-flow
// boundary, terminates every exit of the block and finalizes it through a
// codegen.Backend. A Cache memoizes compiled blocks by start address so each
// address is compiled at most once.
package jit
