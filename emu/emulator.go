package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rvjit/insts"
)

var (
	// ErrUnknownInstruction is returned when the interpreter meets a word
	// outside the implemented subset.
	ErrUnknownInstruction = errors.New("unknown instruction")

	// ErrMaxInstructions is returned once the instruction limit is reached.
	ErrMaxInstructions = errors.New("max instructions reached")
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if PC is outside instruction memory. Nothing was
	// executed.
	Halted bool

	// Branched is true if the instruction was a conditional branch.
	Branched bool

	// Taken is true if the branch was taken.
	Taken bool

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator interprets RISC-V instructions one at a time. It shares State and
// Memory with compiled code and produces the same results.
type Emulator struct {
	state   *State
	memory  *Memory
	decoder *insts.Decoder

	// Execution units
	alu        *ALU
	branchUnit *BranchUnit

	// Execution state
	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	entry            *uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithState runs the emulator on an existing state instead of a fresh one.
func WithState(state *State) EmulatorOption {
	return func(e *Emulator) {
		e.state = state
	}
}

// WithEntry sets the initial program counter. It applies after WithState
// regardless of option order.
func WithEntry(pc uint64) EmulatorOption {
	return func(e *Emulator) {
		e.entry = &pc
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new emulator over memory.
func NewEmulator(memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		state:   &State{},
		memory:  memory,
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.entry != nil {
		e.state.PC = *e.entry
	}

	e.alu = NewALU(e.state)
	e.branchUnit = NewBranchUnit(e.state)

	return e
}

// State returns the emulator's machine state.
func (e *Emulator) State() *State {
	return e.state
}

// Memory returns the emulator's instruction memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: ErrMaxInstructions}
	}

	word, ok := e.memory.Fetch(e.state.PC)
	if !ok {
		return StepResult{Halted: true}
	}

	inst := e.decoder.Decode(word)
	result := e.execute(inst)
	if result.Err == nil {
		e.instructionCount++
	}

	return result
}

// Run executes instructions until PC leaves instruction memory or an error
// occurs.
func (e *Emulator) Run() StepResult {
	for {
		result := e.Step()
		if result.Halted || result.Err != nil {
			return result
		}
	}
}

// RunBlock executes instructions up to and including the next branch. It
// stops early when PC leaves instruction memory or an error occurs.
func (e *Emulator) RunBlock() StepResult {
	for {
		result := e.Step()
		if result.Halted || result.Branched || result.Err != nil {
			return result
		}
	}
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	pc := e.state.PC

	switch inst.Op {
	case insts.OpADD:
		e.alu.ADD(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSUB:
		e.alu.SUB(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpSLL:
		e.alu.SLL(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpXOR:
		e.alu.XOR(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpOR:
		e.alu.OR(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpAND:
		e.alu.AND(inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpADDI:
		e.alu.ADDI(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpBEQ:
		taken := e.branchUnit.BEQ(inst.Rs1, inst.Rs2, inst.Imm, inst.Length)
		return StepResult{Branched: true, Taken: taken}
	case insts.OpBNE:
		taken := e.branchUnit.BNE(inst.Rs1, inst.Rs2, inst.Imm, inst.Length)
		return StepResult{Branched: true, Taken: taken}
	default:
		return StepResult{
			Err: fmt.Errorf("%w 0x%08X at PC=0x%X", ErrUnknownInstruction, uint32(inst.Word), pc),
		}
	}

	e.state.PC = pc + inst.Length
	return StepResult{}
}
