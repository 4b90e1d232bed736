package codegen_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen"
)

var _ = Describe("FunctionBuilder", func() {
	var (
		fn *codegen.Function
		fb *codegen.FunctionBuilder
	)

	BeforeEach(func() {
		fn = codegen.NewFunction()
		fn.Reset(codegen.BlockSignature)
		fb = codegen.NewFunctionBuilder(fn)
	})

	It("should declare parameters as the first values", func() {
		Expect(fb.Param(0)).To(Equal(codegen.Value(0)))
		Expect(fn.Values).To(Equal([]codegen.Type{codegen.Ptr}))
	})

	It("should append to the current block", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		Expect(fb.CurrentBlock()).To(Equal(entry))

		x := fb.Load(fb.Param(0), 8)
		y := fb.Iconst(3)
		fb.Store(fb.Iadd(x, y), fb.Param(0), 8)

		Expect(fn.Blocks[entry].Insts).To(HaveLen(4))
		Expect(fn.Blocks[entry].Insts[3].Op).To(Equal(codegen.OpStore))
		Expect(fb.IsTerminated(entry)).To(BeFalse())
	})

	It("should mark blocks terminated by return and brif", func() {
		entry := fb.CreateBlock()
		then := fb.CreateBlock()
		els := fb.CreateBlock()

		fb.SwitchToBlock(entry)
		fb.Brif(fb.Iconst(1), then, els)

		Expect(fb.IsTerminated(entry)).To(BeTrue())
		Expect(fb.IsTerminated(then)).To(BeFalse())

		fb.SwitchToBlock(then)
		fb.Return(fb.Iconst(4))
		Expect(fb.IsTerminated(then)).To(BeTrue())
	})

	It("should record the comparison condition", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Icmp(codegen.CondSLT, fb.Iconst(1), fb.Iconst(2))

		Expect(fn.Blocks[entry].Insts[2].Cond).To(Equal(codegen.CondSLT))
	})

	Describe("Reset", func() {
		It("should clear blocks and values for the next build", func() {
			entry := fb.CreateBlock()
			fb.SwitchToBlock(entry)
			fb.Return(fb.Iconst(1))
			fb.CreateBlock()

			fn.Reset(codegen.BlockSignature)

			Expect(fn.Blocks).To(BeEmpty())
			Expect(fn.Values).To(HaveLen(1))
			Expect(fn.NumInsts()).To(Equal(0))

			fb = codegen.NewFunctionBuilder(fn)
			entry = fb.CreateBlock()
			Expect(entry).To(Equal(codegen.Block(0)))
			Expect(fn.Blocks[entry].Insts).To(BeEmpty())
		})
	})
})

var _ = Describe("IntCC", func() {
	DescribeTable("Eval",
		func(cc codegen.IntCC, a, b uint64, want bool) {
			Expect(cc.Eval(a, b)).To(Equal(want))
		},
		Entry("eq", codegen.CondEQ, uint64(3), uint64(3), true),
		Entry("ne", codegen.CondNE, uint64(3), uint64(3), false),
		Entry("ult", codegen.CondULT, uint64(1), ^uint64(0), true),
		Entry("uge", codegen.CondUGE, uint64(1), ^uint64(0), false),
		Entry("slt", codegen.CondSLT, ^uint64(0), uint64(1), true),
		Entry("sge", codegen.CondSGE, ^uint64(0), uint64(1), false),
	)
})
