package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Patterns", func() {
		It("should not overlap", func() {
			for i, p := range insts.Patterns {
				for j, q := range insts.Patterns {
					if i == j {
						continue
					}
					Expect(q.Matches(p.Match)).To(BeFalse(), "%v matches %v", q.Op, p.Op)
				}
			}
		})

		It("should each recognize their own match value", func() {
			for _, p := range insts.Patterns {
				Expect(p.Matches(p.Match)).To(BeTrue(), "%v", p.Op)
				found, ok := decoder.Lookup(p.Match)
				Expect(ok).To(BeTrue())
				Expect(found.Op).To(Equal(p.Op))
			}
		})
	})

	Describe("Register-register", func() {
		// add x1, x2, x1 -> 0x001100b3
		It("should decode add x1, x2, x1", func() {
			inst := decoder.Decode(0x001100b3)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Rs1).To(Equal(uint8(2)))
			Expect(inst.Rs2).To(Equal(uint8(1)))
			Expect(inst.Length).To(Equal(uint64(4)))
		})

		DescribeTable("should decode encoded R-type ops",
			func(word uint32, op insts.Op) {
				inst := decoder.Decode(insts.Word(word))
				Expect(inst.Op).To(Equal(op))
				Expect(inst.Rd).To(Equal(uint8(5)))
				Expect(inst.Rs1).To(Equal(uint8(6)))
				Expect(inst.Rs2).To(Equal(uint8(7)))
			},
			Entry("add", insts.EncodeADD(5, 6, 7), insts.OpADD),
			Entry("sub", insts.EncodeSUB(5, 6, 7), insts.OpSUB),
			Entry("sll", insts.EncodeSLL(5, 6, 7), insts.OpSLL),
			Entry("xor", insts.EncodeXOR(5, 6, 7), insts.OpXOR),
			Entry("or", insts.EncodeOR(5, 6, 7), insts.OpOR),
			Entry("and", insts.EncodeAND(5, 6, 7), insts.OpAND),
		)

		It("should decode the and and sll words of the reference program", func() {
			Expect(decoder.Decode(0x0020f1b3).Op).To(Equal(insts.OpAND))
			Expect(decoder.Decode(0x002091b3).Op).To(Equal(insts.OpSLL))
		})
	})

	Describe("Register-immediate", func() {
		It("should decode addi x3, x3, -1", func() {
			inst := decoder.Decode(insts.Word(insts.EncodeADDI(3, 3, -1)))

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(3)))
			Expect(inst.Imm).To(Equal(int64(-1)))
		})
	})

	Describe("Branch", func() {
		It("should decode bne x1, x2, -4", func() {
			inst := decoder.Decode(0xfe209ee3)

			Expect(inst.Op).To(Equal(insts.OpBNE))
			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Imm).To(Equal(int64(-4)))
			Expect(inst.IsBranch()).To(BeTrue())
		})

		It("should decode beq with a forward offset", func() {
			inst := decoder.Decode(insts.Word(insts.EncodeBEQ(4, 0, 16)))

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Rs1).To(Equal(uint8(4)))
			Expect(inst.Rs2).To(Equal(uint8(0)))
			Expect(inst.Imm).To(Equal(int64(16)))
		})
	})

	Describe("Unknown Instructions", func() {
		It("should return OpUnknown for unimplemented long-form words", func() {
			// mul x1, x2, x3
			inst := decoder.Decode(0x023100b3)
			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Format).To(Equal(insts.FormatUnknown))
		})

		It("should return OpUnknown for compressed words", func() {
			inst := decoder.Decode(0x4505)
			Expect(inst.Op).To(Equal(insts.OpUnknown))
			Expect(inst.Length).To(Equal(uint64(2)))
		})
	})

	Describe("String", func() {
		It("should render assembly text", func() {
			Expect(decoder.Decode(0x001100b3).String()).To(Equal("add x1, x2, x1"))
			Expect(decoder.Decode(0xfe209ee3).String()).To(Equal("bne x1, x2, -4"))
			Expect(decoder.Decode(insts.Word(insts.EncodeADDI(1, 0, 7))).String()).To(Equal("addi x1, x0, 7"))
			Expect(decoder.Decode(0x4505).String()).To(Equal(".half 0x4505"))
			Expect(decoder.Decode(0x023100b3).String()).To(Equal(".word 0x023100b3"))
		})
	})
})
