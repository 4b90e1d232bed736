package codegen_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen"
)

var _ = Describe("Verify", func() {
	var (
		fn *codegen.Function
		fb *codegen.FunctionBuilder
	)

	BeforeEach(func() {
		fn = codegen.NewFunction()
		fn.Reset(codegen.BlockSignature)
		fb = codegen.NewFunctionBuilder(fn)
	})

	verifyError := func() *codegen.VerifyError {
		err := fn.Verify()
		Expect(err).To(MatchError(codegen.ErrInvalidFunction))
		var verr *codegen.VerifyError
		Expect(errors.As(err, &verr)).To(BeTrue())
		return verr
	}

	It("should accept a branch with both exits terminated", func() {
		entry := fb.CreateBlock()
		taken := fb.CreateBlock()
		notTaken := fb.CreateBlock()

		fb.SwitchToBlock(entry)
		a := fb.Load(fb.Param(0), 8)
		b := fb.Load(fb.Param(0), 16)
		fb.Brif(fb.Icmp(codegen.CondNE, a, b), taken, notTaken)

		fb.SwitchToBlock(taken)
		fb.Return(fb.Iconst(0x100))
		fb.SwitchToBlock(notTaken)
		fb.Return(fb.Iconst(0x104))

		Expect(fn.Verify()).To(Succeed())
	})

	It("should allow a successor to use values of its dominator", func() {
		entry := fb.CreateBlock()
		exit := fb.CreateBlock()

		fb.SwitchToBlock(entry)
		c := fb.Iconst(7)
		fb.Brif(c, exit, exit)

		fb.SwitchToBlock(exit)
		fb.Return(c)

		Expect(fn.Verify()).To(Succeed())
	})

	It("should reject a function without blocks", func() {
		Expect(verifyError().Block).To(Equal(codegen.Block(-1)))
	})

	It("should reject a dangling branch successor", func() {
		entry := fb.CreateBlock()
		taken := fb.CreateBlock()
		notTaken := fb.CreateBlock()

		fb.SwitchToBlock(entry)
		fb.Brif(fb.Iconst(1), taken, notTaken)
		fb.SwitchToBlock(notTaken)
		fb.Return(fb.Iconst(4))

		verr := verifyError()
		Expect(verr.Block).To(Equal(taken))
		Expect(verr.Msg).To(Equal("empty block"))
	})

	It("should reject a block without a terminator", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Iconst(1)

		Expect(verifyError().Msg).To(Equal("block is not terminated"))
	})

	It("should reject instructions after a terminator", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Return(fb.Iconst(1))
		fb.Return(fb.Iconst(2))

		verr := verifyError()
		Expect(verr.Msg).To(Equal("instruction after terminator"))
		Expect(verr.Inst).To(Equal(2))
	})

	It("should point at the first instruction after the terminator", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Return(fb.Iconst(1))
		fb.Iconst(7)
		fb.Iconst(8)

		verr := verifyError()
		Expect(verr.Msg).To(Equal("instruction after terminator"))
		Expect(verr.Inst).To(Equal(2))
		Expect(fn.Blocks[entry].Insts[verr.Inst].Op).To(Equal(codegen.OpIconst))
		Expect(fn.Blocks[entry].Insts[verr.Inst-1].Op.IsTerminator()).To(BeTrue())
	})

	It("should reject branches to missing blocks", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Brif(fb.Iconst(1), 5, 0)

		Expect(verifyError().Msg).To(ContainSubstring("missing block5"))
	})

	It("should reject values used outside their dominance", func() {
		entry := fb.CreateBlock()
		left := fb.CreateBlock()
		right := fb.CreateBlock()

		fb.SwitchToBlock(entry)
		fb.Brif(fb.Iconst(1), left, right)

		fb.SwitchToBlock(left)
		v := fb.Iconst(3)
		fb.Return(v)

		fb.SwitchToBlock(right)
		fb.Return(v)

		verr := verifyError()
		Expect(verr.Block).To(Equal(right))
		Expect(verr.Msg).To(ContainSubstring("does not dominate"))
	})

	It("should reject loads through integer bases", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Return(fb.Load(fb.Iconst(0x1000), 0))

		Expect(verifyError().Msg).To(Equal("load base must be ptr"))
	})

	It("should reject returning a pointer", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Return(fb.Param(0))

		Expect(verifyError().Msg).To(ContainSubstring("return type ptr"))
	})

	It("should reject undefined operands", func() {
		entry := fb.CreateBlock()
		fb.SwitchToBlock(entry)
		fb.Return(codegen.Value(42))

		Expect(verifyError().Msg).To(ContainSubstring("out of range"))
	})
})

var _ = Describe("Function.String", func() {
	It("should render every instruction", func() {
		fn := codegen.NewFunction()
		fn.Reset(codegen.BlockSignature)
		fb := codegen.NewFunctionBuilder(fn)

		entry := fb.CreateBlock()
		taken := fb.CreateBlock()
		notTaken := fb.CreateBlock()

		fb.SwitchToBlock(entry)
		a := fb.Load(fb.Param(0), 8)
		fb.Store(fb.Iadd(a, a), fb.Param(0), 8)
		fb.Brif(fb.Icmp(codegen.CondNE, a, fb.Iconst(0)), taken, notTaken)
		fb.SwitchToBlock(taken)
		fb.Return(fb.Iconst(0x100))
		fb.SwitchToBlock(notTaken)
		fb.Return(fb.Iconst(0x104))

		Expect(fn.String()).To(Equal(`function(v0: ptr) -> i64 {
block0:
    v1 = load.i64 v0+8
    v2 = iadd v1, v1
    store v2, v0+8
    v3 = iconst 0x0
    v4 = icmp ne v1, v3
    brif v4, block1, block2
block1:
    v5 = iconst 0x100
    return v5
block2:
    v6 = iconst 0x104
    return v6
}
`))
	})
})
