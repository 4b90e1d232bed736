package jit_test

import (
	"errors"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen"
	"github.com/sarchlab/rvjit/codegen/closure"
	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/insts"
	"github.com/sarchlab/rvjit/jit"
)

type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }

func (failingBackend) Compile(*codegen.Function) (codegen.Entry, codegen.CodeInfo, error) {
	return nil, codegen.CodeInfo{}, errors.New("definition rejected")
}

var _ = Describe("Builder", func() {
	for _, factory := range backends() {
		factory := factory

		Describe(factory.name, func() {
			var (
				builder *jit.Builder
				state   *emu.State
			)

			BeforeEach(func() {
				builder = jit.NewBuilder(factory.new(), jit.WithLogger(GinkgoLogr))
				state = &emu.State{}
			})

			build := func(mem *emu.Memory, start uint64) *jit.CompiledBlock {
				block, err := builder.Build(mem, start)
				Expect(err).NotTo(HaveOccurred())
				Expect(builder.Phase()).To(Equal(jit.PhaseFinalized))
				return block
			}

			It("should run a chain of N adds", func() {
				const n = 10
				mem := loadWords(0, repeat(insts.EncodeADD(1, 1, 2), n)...)
				state.Regs[2] = 1

				block := build(mem, 0)

				Expect(block.Instructions).To(Equal(n))
				Expect(block.Start).To(Equal(uint64(0)))
				Expect(block.End).To(Equal(uint64(4 * n)))
				Expect(block.Backend).To(Equal(factory.name))
				Expect(block.CodeSize).To(BeNumerically(">", 0))

				Expect(block.Run(state)).To(Equal(uint64(4 * n)))
				Expect(state.Regs[1]).To(Equal(uint64(n)))
			})

			It("should wrap additions modulo 2^64", func() {
				mem := loadWords(0, insts.EncodeADD(3, 1, 2))
				state.Regs[1] = ^uint64(0)
				state.Regs[2] = 5

				build(mem, 0).Run(state)

				Expect(state.Regs[3]).To(Equal(uint64(4)))
			})

			It("should apply and and sll with 64-bit semantics", func() {
				mem := loadWords(0,
					insts.EncodeAND(3, 1, 2),
					insts.EncodeSLL(4, 1, 2),
				)
				state.Regs[1] = 0xff00_0000_0000_00ff
				state.Regs[2] = 0x0f00_0000_0000_0044

				build(mem, 0).Run(state)

				Expect(state.Regs[3]).To(Equal(uint64(0x0f00_0000_0000_0044)))
				Expect(state.Regs[4]).To(Equal(uint64(0xf000_0000_0000_0ff0)))
			})

			Describe("branches", func() {
				const base = 0x1000
				var mem *emu.Memory

				BeforeEach(func() {
					mem = loadWords(base,
						insts.EncodeADD(3, 3, 4),
						insts.EncodeBNE(1, 2, -4),
						insts.EncodeADD(3, 3, 4),
					)
				})

				It("should stop at the branch", func() {
					block := build(mem, base)
					Expect(block.Instructions).To(Equal(2))
					Expect(block.End).To(Equal(uint64(base + 8)))
				})

				It("should return the branch target when the registers differ", func() {
					state.Regs[1] = 1
					Expect(build(mem, base).Run(state)).To(Equal(uint64(base + 4 - 4)))
				})

				It("should return the fall-through address when the registers are equal", func() {
					Expect(build(mem, base).Run(state)).To(Equal(uint64(base + 8)))
				})

				It("should terminate both exits", func() {
					block := build(mem, base)
					state.Regs[1] = 1
					Expect(block.Run(state)).To(Equal(uint64(base)))
					state.Regs[1] = 0
					Expect(block.Run(state)).To(Equal(uint64(base + 8)))
				})

				It("should lower beq with the opposite condition", func() {
					mem := loadWords(0, insts.EncodeBEQ(1, 2, 64))
					block := build(mem, 0)
					Expect(block.Run(state)).To(Equal(uint64(64)))
					state.Regs[1] = 1
					Expect(block.Run(state)).To(Equal(uint64(4)))
				})
			})

			Describe("end of memory", func() {
				It("should return the start address from a block at the limit", func() {
					mem := loadWords(0, insts.EncodeADD(1, 1, 2))

					block := build(mem, 4)

					Expect(block.Instructions).To(Equal(0))
					Expect(block.End).To(Equal(uint64(4)))
					Expect(block.Run(state)).To(Equal(uint64(4)))
				})

				It("should return the start address from a block past the limit", func() {
					mem := loadWords(0, insts.EncodeADD(1, 1, 2))
					Expect(build(mem, 0x8000).Run(state)).To(Equal(uint64(0x8000)))
				})

				It("should return the limit after running off the end", func() {
					mem := loadWords(0, insts.EncodeADD(1, 1, 2))
					state.Regs[2] = 1
					Expect(build(mem, 0).Run(state)).To(Equal(uint64(4)))
					Expect(state.Regs[1]).To(Equal(uint64(1)))
				})
			})

			It("should end a block at the instruction cap with the next address", func() {
				builder = jit.NewBuilder(factory.new(), jit.WithMaxInstructions(3))
				mem := loadWords(0, repeat(insts.EncodeADD(1, 1, 2), 10)...)
				state.Regs[2] = 1

				block := build(mem, 0)

				Expect(block.Instructions).To(Equal(3))
				Expect(block.Run(state)).To(Equal(uint64(12)))
				Expect(state.Regs[1]).To(Equal(uint64(3)))
			})

			It("should discard writes to x0", func() {
				mem := loadWords(0,
					insts.EncodeADDI(0, 0, 5),
					insts.EncodeADD(1, 0, 0),
					insts.EncodeADDI(2, 0, 7),
				)
				state.Regs[1] = 99

				build(mem, 0).Run(state)

				Expect(state.Regs[0]).To(Equal(uint64(0)))
				Expect(state.Regs[1]).To(Equal(uint64(0)))
				Expect(state.Regs[2]).To(Equal(uint64(7)))
			})

			It("should keep earlier blocks valid across builds", func() {
				mem := loadWords(0,
					insts.EncodeADDI(1, 1, 1),
					insts.EncodeBNE(0, 0, 0),
					insts.EncodeADDI(2, 2, 2),
				)

				first := build(mem, 0)
				second := build(mem, 8)

				Expect(first.Run(state)).To(Equal(uint64(8)))
				Expect(second.Run(state)).To(Equal(uint64(12)))
				Expect(state.Regs[1]).To(Equal(uint64(1)))
				Expect(state.Regs[2]).To(Equal(uint64(2)))
			})

			It("should match the interpreter on a mixed block", func() {
				mem := loadWords(0x400,
					insts.EncodeADDI(1, 1, 100),
					insts.EncodeSUB(2, 2, 1),
					insts.EncodeXOR(3, 1, 2),
					insts.EncodeOR(4, 3, 5),
					insts.EncodeSLL(5, 4, 6),
					insts.EncodeAND(6, 5, 3),
					insts.EncodeADD(7, 6, 1),
					insts.EncodeBNE(7, 0, -28),
				)
				initial := emu.State{PC: 0x400}
				for i := 1; i < emu.NumRegs; i++ {
					initial.Regs[i] = uint64(i) * 0x9e37_79b9_7f4a_7c15
				}

				interp := initial
				e := emu.NewEmulator(mem, emu.WithState(&interp))
				Expect(e.RunBlock().Err).NotTo(HaveOccurred())

				compiled := initial
				compiled.PC = build(mem, 0x400).Run(&compiled)

				Expect(cmp.Diff(interp, compiled)).To(BeEmpty())
			})
		})
	}

	Describe("failures", func() {
		var backend codegen.Backend

		BeforeEach(func() {
			backend = closure.New()
		})

		It("should report unknown opcodes from the translate stage", func() {
			builder := jit.NewBuilder(backend)
			mem := loadWords(0x40, insts.EncodeADD(1, 1, 2), 0x023100b3)

			_, err := builder.Build(mem, 0x40)

			var berr *jit.BuildError
			Expect(errors.As(err, &berr)).To(BeTrue())
			Expect(berr.Stage).To(Equal(jit.StageTranslate))
			Expect(berr.Start).To(Equal(uint64(0x40)))
			Expect(err).To(MatchError(jit.ErrUnknownOpcode))
			Expect(builder.Phase()).To(Equal(jit.PhaseFailed))
		})

		It("should reject a block with a dangling exit before finalizing", func() {
			rules := append([]jit.Rule{{
				Pattern: insts.PatternADD,
				Lower: func(fb *codegen.FunctionBuilder, w insts.Word, pc uint64) jit.Outcome {
					fb.CreateBlock()
					return jit.Sequential(pc + w.Length())
				},
			}}, jit.DefaultRules()...)
			builder := jit.NewBuilder(backend, jit.WithTranslator(jit.NewTranslatorWithRules(rules)))
			mem := loadWords(0, insts.EncodeADD(1, 1, 2))

			_, err := builder.Build(mem, 0)

			var berr *jit.BuildError
			Expect(errors.As(err, &berr)).To(BeTrue())
			Expect(berr.Stage).To(Equal(jit.StageVerify))
			Expect(err).To(MatchError(codegen.ErrInvalidFunction))
		})

		It("should propagate backend failures from the finalize stage", func() {
			builder := jit.NewBuilder(failingBackend{})
			mem := loadWords(0, insts.EncodeADD(1, 1, 2))

			_, err := builder.Build(mem, 0)

			var berr *jit.BuildError
			Expect(errors.As(err, &berr)).To(BeTrue())
			Expect(berr.Stage).To(Equal(jit.StageFinalize))
			Expect(err).To(MatchError(ContainSubstring("definition rejected")))
			Expect(err.Error()).To(Equal("failed to build block at 0x0: finalize: definition rejected"))
		})

		It("should recover after a failed build", func() {
			builder := jit.NewBuilder(backend)
			mem := loadWords(0, 0x023100b3, insts.EncodeADD(1, 1, 2))

			_, err := builder.Build(mem, 0)
			Expect(err).To(HaveOccurred())

			block, err := builder.Build(mem, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(block.Instructions).To(Equal(1))
			Expect(builder.Phase()).To(Equal(jit.PhaseFinalized))
		})
	})
})
