package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/emu"
)

var _ = Describe("BranchUnit", func() {
	var (
		s *emu.State
		b *emu.BranchUnit
	)

	BeforeEach(func() {
		s = &emu.State{PC: 0x100}
		b = emu.NewBranchUnit(s)
	})

	Describe("BNE", func() {
		It("should branch when registers differ", func() {
			s.Regs[1] = 1
			Expect(b.BNE(1, 2, -8, 4)).To(BeTrue())
			Expect(s.PC).To(Equal(uint64(0xF8)))
		})

		It("should fall through when registers are equal", func() {
			Expect(b.BNE(1, 2, -8, 4)).To(BeFalse())
			Expect(s.PC).To(Equal(uint64(0x104)))
		})
	})

	Describe("BEQ", func() {
		It("should branch when registers are equal", func() {
			Expect(b.BEQ(1, 0, 16, 4)).To(BeTrue())
			Expect(s.PC).To(Equal(uint64(0x110)))
		})

		It("should treat x0 as zero", func() {
			s.Regs[0] = 9
			s.Regs[1] = 0
			Expect(b.BEQ(0, 1, 16, 4)).To(BeTrue())
		})

		It("should fall through when registers differ", func() {
			s.Regs[1] = 3
			Expect(b.BEQ(1, 0, 16, 4)).To(BeFalse())
			Expect(s.PC).To(Equal(uint64(0x104)))
		})
	})
})
