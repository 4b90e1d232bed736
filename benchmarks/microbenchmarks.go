package benchmarks

import (
	"fmt"
	"strings"

	"github.com/sarchlab/rvjit/asm"
	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/insts"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// stresses a different part of the translator.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		dependencyChain(),
		independentAdds(),
		countdownLoop(1000),
		shiftMaskLoop(100),
		nestedLoops(10, 50),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: straight
// line code, a hot loop and a loop nest.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		dependencyChain(),
		countdownLoop(1000),
		nestedLoops(10, 50),
	}
}

// mustAssemble assembles source at ProgramAddr. The sources are fixed, so
// a failure is a bug in this file.
func mustAssemble(lines ...string) []byte {
	a := &asm.Assembler{Base: ProgramAddr}
	prog, err := a.Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		panic(err)
	}
	return prog.Bytes()
}

// 1. Dependency Chain - one long block of dependent adds
func dependencyChain() Benchmark {
	const n = 20

	words := make([]uint32, 0, n)
	for range n {
		words = append(words, insts.EncodeADD(1, 1, 2))
	}

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDs (x1 = x1 + x2) in one block",
		Setup: func(state *emu.State) {
			state.WriteReg(2, 1)
		},
		Program:  BuildProgram(words...),
		Expected: map[uint8]uint64{1: n},
	}
}

// 2. Independent Adds - register traffic across five destinations
func independentAdds() Benchmark {
	var lines []string
	for range 4 {
		for reg := 5; reg <= 9; reg++ {
			lines = append(lines, fmt.Sprintf("addi x%d, x%d, 1", reg, reg))
		}
	}

	return Benchmark{
		Name:        "independent_adds",
		Description: "20 ADDIs spread over x5..x9",
		Program:     mustAssemble(lines...),
		Expected:    map[uint8]uint64{5: 4, 6: 4, 7: 4, 8: 4, 9: 4},
	}
}

// 3. Countdown Loop - one hot block re-entered through the cache. n must
// fit an addi immediate.
func countdownLoop(n int) Benchmark {
	return Benchmark{
		Name:        "countdown_loop",
		Description: fmt.Sprintf("%d iterations of add/addi/bne", n),
		Setup: func(state *emu.State) {
			state.WriteReg(2, 3)
		},
		Program: mustAssemble(
			fmt.Sprintf(".equ COUNT %d", n),
			"      li x3, COUNT",
			"loop: add x1, x1, x2",
			"      addi x3, x3, -1",
			"      bnez x3, loop",
		),
		Expected: map[uint8]uint64{1: uint64(3 * n), 3: 0},
	}
}

// 4. Shift/Mask Loop - every register-register operation in a loop body
func shiftMaskLoop(n int) Benchmark {
	var x6, x10 uint64
	for i := uint64(n); i > 0; i-- {
		x6 ^= i
		x10 |= (i << 2) & 0xff
	}

	return Benchmark{
		Name:        "shift_mask_loop",
		Description: fmt.Sprintf("%d iterations of xor/sll/and/or/sub", n),
		Program: mustAssemble(
			fmt.Sprintf("      li t0, %d", n),
			"      li t3, 2",
			"      li s1, 0xff",
			"loop: xor t1, t1, t0",
			"      sll t2, t0, t3",
			"      and t2, t2, s1",
			"      or a0, a0, t2",
			"      sub a1, a1, t0",
			"      addi t0, t0, -1",
			"      bne t0, zero, loop",
		),
		Expected: map[uint8]uint64{
			6:  x6,
			10: x10,
			11: -uint64(n * (n + 1) / 2),
		},
	}
}

// 5. Nested Loops - taken and fall-through exits of both branch kinds
func nestedLoops(outer, inner int) Benchmark {
	return Benchmark{
		Name:        "nested_loops",
		Description: fmt.Sprintf("%dx%d loop nest using beq and bne", outer, inner),
		Program: mustAssemble(
			fmt.Sprintf("       li t0, %d", outer),
			fmt.Sprintf("outer: li t1, %d", inner),
			"inner: addi t2, t2, 1",
			"       addi t1, t1, -1",
			"       bnez t1, inner",
			"       addi t0, t0, -1",
			"       beqz t0, done",
			"       beq zero, zero, outer",
			"done:  mv a0, t2",
		),
		Expected: map[uint8]uint64{7: uint64(outer * inner), 10: uint64(outer * inner)},
	}
}
