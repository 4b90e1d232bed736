// Package backendtest provides conformance specs shared by every
// codegen.Backend.
package backendtest

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen"
	"github.com/sarchlab/rvjit/emu"
)

// Compile verifies and compiles the function produced by build.
func Compile(backend codegen.Backend, build func(fb *codegen.FunctionBuilder)) codegen.Entry {
	fn := codegen.NewFunction()
	fn.Reset(codegen.BlockSignature)
	fb := codegen.NewFunctionBuilder(fn)
	entry := fb.CreateBlock()
	fb.SwitchToBlock(entry)

	build(fb)

	Expect(fn.Verify()).To(Succeed())
	code, _, err := backend.Compile(fn)
	Expect(err).NotTo(HaveOccurred())
	return code
}

// DescribeBackend registers the conformance specs for the backend returned
// by newBackend. newBackend runs before every spec.
func DescribeBackend(name string, newBackend func() codegen.Backend) bool {
	return Describe(name+" conformance", func() {
		var (
			backend codegen.Backend
			state   *emu.State
		)

		BeforeEach(func() {
			backend = newBackend()
			state = &emu.State{}
		})

		It("should return a constant", func() {
			code := Compile(backend, func(fb *codegen.FunctionBuilder) {
				fb.Return(fb.Iconst(0x1234_5678_9abc))
			})
			Expect(code(state.Pointer())).To(Equal(uint64(0x1234_5678_9abc)))
		})

		It("should return negative constants as two's complement", func() {
			code := Compile(backend, func(fb *codegen.FunctionBuilder) {
				fb.Return(fb.Iconst(-8))
			})
			Expect(code(state.Pointer())).To(Equal(^uint64(7)))
		})

		It("should load and store state fields", func() {
			state.Regs[2] = 40
			state.Regs[3] = 2

			code := Compile(backend, func(fb *codegen.FunctionBuilder) {
				base := fb.Param(0)
				sum := fb.Iadd(fb.Load(base, emu.RegOffset(2)), fb.Load(base, emu.RegOffset(3)))
				fb.Store(sum, base, emu.RegOffset(1))
				fb.Store(sum, base, emu.PCOffset)
				fb.Return(fb.Iconst(0))
			})

			Expect(code(state.Pointer())).To(Equal(uint64(0)))
			Expect(state.Regs[1]).To(Equal(uint64(42)))
			Expect(state.PC).To(Equal(uint64(42)))
		})

		DescribeTable("binary operations",
			func(op func(fb *codegen.FunctionBuilder, a, b codegen.Value) codegen.Value, a, b, want uint64) {
				state.Regs[1] = a
				state.Regs[2] = b

				code := Compile(backend, func(fb *codegen.FunctionBuilder) {
					base := fb.Param(0)
					x := fb.Load(base, emu.RegOffset(1))
					y := fb.Load(base, emu.RegOffset(2))
					fb.Return(op(fb, x, y))
				})

				Expect(code(state.Pointer())).To(Equal(want))
			},
			Entry("iadd", (*codegen.FunctionBuilder).Iadd, uint64(5), uint64(7), uint64(12)),
			Entry("iadd wraps", (*codegen.FunctionBuilder).Iadd, ^uint64(0), uint64(2), uint64(1)),
			Entry("isub", (*codegen.FunctionBuilder).Isub, uint64(5), uint64(7), ^uint64(1)),
			Entry("band", (*codegen.FunctionBuilder).Band, uint64(0b1100), uint64(0b1010), uint64(0b1000)),
			Entry("bor", (*codegen.FunctionBuilder).Bor, uint64(0b1100), uint64(0b1010), uint64(0b1110)),
			Entry("bxor", (*codegen.FunctionBuilder).Bxor, uint64(0b1100), uint64(0b1010), uint64(0b0110)),
			Entry("ishl", (*codegen.FunctionBuilder).Ishl, uint64(3), uint64(4), uint64(48)),
			Entry("ishl by 63", (*codegen.FunctionBuilder).Ishl, uint64(1), uint64(63), uint64(1)<<63),
			Entry("ishl masks the count", (*codegen.FunctionBuilder).Ishl, uint64(1), uint64(64), uint64(1)),
		)

		DescribeTable("comparisons",
			func(cc codegen.IntCC, a, b uint64) {
				state.Regs[1] = a
				state.Regs[2] = b

				code := Compile(backend, func(fb *codegen.FunctionBuilder) {
					base := fb.Param(0)
					x := fb.Load(base, emu.RegOffset(1))
					y := fb.Load(base, emu.RegOffset(2))
					fb.Return(fb.Icmp(cc, x, y))
				})

				want := uint64(0)
				if cc.Eval(a, b) {
					want = 1
				}
				Expect(code(state.Pointer())).To(Equal(want))
			},
			Entry("eq true", codegen.CondEQ, uint64(3), uint64(3)),
			Entry("eq false", codegen.CondEQ, uint64(3), uint64(4)),
			Entry("ne true", codegen.CondNE, uint64(3), uint64(4)),
			Entry("ne false", codegen.CondNE, uint64(3), uint64(3)),
			Entry("ult", codegen.CondULT, uint64(1), ^uint64(0)),
			Entry("uge", codegen.CondUGE, uint64(1), ^uint64(0)),
			Entry("slt", codegen.CondSLT, ^uint64(0), uint64(1)),
			Entry("sge", codegen.CondSGE, ^uint64(0), uint64(1)),
		)

		Describe("brif", func() {
			var code codegen.Entry

			BeforeEach(func() {
				code = Compile(backend, func(fb *codegen.FunctionBuilder) {
					base := fb.Param(0)
					taken := fb.CreateBlock()
					notTaken := fb.CreateBlock()

					x := fb.Load(base, emu.RegOffset(1))
					y := fb.Load(base, emu.RegOffset(2))
					fb.Brif(fb.Icmp(codegen.CondNE, x, y), taken, notTaken)

					fb.SwitchToBlock(taken)
					fb.Return(fb.Iconst(0x2000))

					fb.SwitchToBlock(notTaken)
					fb.Return(fb.Iconst(0x1004))
				})
			})

			It("should take the then block when the condition is non-zero", func() {
				state.Regs[1] = 1
				Expect(code(state.Pointer())).To(Equal(uint64(0x2000)))
			})

			It("should take the else block when the condition is zero", func() {
				Expect(code(state.Pointer())).To(Equal(uint64(0x1004)))
			})

			It("should be callable repeatedly", func() {
				for i := 0; i < 100; i++ {
					state.Regs[1] = uint64(i % 2)
					want := uint64(0x1004)
					if i%2 == 1 {
						want = 0x2000
					}
					Expect(code(state.Pointer())).To(Equal(want))
				}
			})
		})

		It("should handle long value chains", func() {
			const n = 300
			state.Regs[2] = 1

			code := Compile(backend, func(fb *codegen.FunctionBuilder) {
				base := fb.Param(0)
				for i := 0; i < n; i++ {
					x := fb.Load(base, emu.RegOffset(1))
					y := fb.Load(base, emu.RegOffset(2))
					fb.Store(fb.Iadd(x, y), base, emu.RegOffset(1))
				}
				fb.Return(fb.Load(base, emu.RegOffset(1)))
			})

			Expect(code(state.Pointer())).To(Equal(uint64(n)))
			Expect(state.Regs[1]).To(Equal(uint64(n)))
		})

		It("should reject other signatures", func() {
			fn := codegen.NewFunction()
			fn.Reset(codegen.Signature{Returns: []codegen.Type{codegen.I64}})
			fb := codegen.NewFunctionBuilder(fn)
			fb.SwitchToBlock(fb.CreateBlock())
			fb.Return(fb.Iconst(0))

			_, _, err := backend.Compile(fn)
			Expect(err).To(MatchError(codegen.ErrUnsupportedSignature))
		})

		It("should report a non-zero code size", func() {
			fn := codegen.NewFunction()
			fn.Reset(codegen.BlockSignature)
			fb := codegen.NewFunctionBuilder(fn)
			fb.SwitchToBlock(fb.CreateBlock())
			fb.Return(fb.Iconst(0))

			_, info, err := backend.Compile(fn)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Size).To(BeNumerically(">", 0))
		})
	})
}
