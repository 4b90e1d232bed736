package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/insts"
)

var _ = Describe("Word", func() {
	Describe("Field", func() {
		It("should match the reference bit slicing formula for every named field", func() {
			words := []insts.Word{0, 0xffffffff, 0x001100b3, 0xfe209ee3, 0x12345678, 0x8000_0001}
			for _, w := range words {
				for _, f := range insts.Fields {
					want := (uint64(w) >> f.Offset) & ((1 << f.Length) - 1)
					Expect(w.Get(f)).To(Equal(want), "%s of 0x%08x", f.Name, uint32(w))
				}
			}
		})

		It("should extract rd, rs1 and rs2 of add x1, x2, x1", func() {
			w := insts.Word(0x001100b3)
			Expect(w.Rd()).To(Equal(uint8(1)))
			Expect(w.Rs1()).To(Equal(uint8(2)))
			Expect(w.Rs2()).To(Equal(uint8(1)))
			Expect(w.Get(insts.FieldOpcode)).To(Equal(uint64(0x33)))
		})
	})

	Describe("SignExtend", func() {
		It("should extend at the 3-bit boundary", func() {
			Expect(insts.SignExtend(0b111, 3)).To(Equal(int64(-1)))
			Expect(insts.SignExtend(0b011, 3)).To(Equal(int64(3)))
			Expect(insts.SignExtend(0b100, 3)).To(Equal(int64(-4)))
		})

		It("should ignore bits above the length", func() {
			Expect(insts.SignExtend(0xf0, 4)).To(Equal(int64(0)))
			Expect(insts.SignExtend(0x1fff, 13)).To(Equal(int64(-1)))
		})
	})

	Describe("FieldSigned", func() {
		It("should agree with SignExtend over Field", func() {
			words := []insts.Word{0xfff00093, 0x7ff00093, 0x80000000, 0x0000f000}
			for _, w := range words {
				for _, f := range insts.Fields {
					want := insts.SignExtend(w.Get(f), f.Length)
					Expect(w.GetSigned(f)).To(Equal(want), "%s of 0x%08x", f.Name, uint32(w))
				}
			}
		})

		It("should decode a negative I-type immediate", func() {
			// addi x1, x0, -1
			Expect(insts.Word(0xfff00093).ITypeImm()).To(Equal(int64(-1)))
		})
	})

	Describe("Length", func() {
		It("should be 4 bytes when the low bits equal the long-form marker", func() {
			Expect(insts.Word(0x001100b3).Length()).To(Equal(uint64(4)))
			Expect(insts.Word(0b11).Length()).To(Equal(uint64(4)))
		})

		It("should be 2 bytes otherwise", func() {
			Expect(insts.Word(0x4505).Length()).To(Equal(uint64(2)))
			Expect(insts.Word(0b10).Length()).To(Equal(uint64(2)))
			Expect(insts.Word(0b01).Length()).To(Equal(uint64(2)))
			Expect(insts.Word(0).Length()).To(Equal(uint64(2)))
		})
	})

	Describe("BranchOffset", func() {
		It("should reassemble the split displacement", func() {
			for _, off := range []int32{-4096, -8, -2, 0, 2, 4, 8, 2046, 2048, 4094} {
				w := insts.Word(insts.EncodeBNE(1, 2, off))
				Expect(w.BranchOffset()).To(Equal(int64(off)), "offset %d", off)
			}
		})

		It("should decode a known encoding", func() {
			// bne x1, x2, -4
			Expect(insts.Word(0xfe209ee3).BranchOffset()).To(Equal(int64(-4)))
		})
	})
})
