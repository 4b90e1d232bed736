// Package insts provides RISC-V instruction definitions and decoding.
//
// This package implements decoding of RV64 machine code into structured
// instruction representations. It supports:
//   - Field extraction by (offset, length), with sign extension
//   - Instruction length from the two low-order bits (2 or 4 bytes)
//   - Integer register-register ALU ops: ADD, SUB, SLL, XOR, OR, AND
//   - Integer register-immediate ALU ops: ADDI
//   - Conditional branches: BEQ, BNE
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x001100b3) // add x1, x2, x1
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Rs2: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
