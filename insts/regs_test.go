package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/insts"
)

var _ = Describe("ParseRegister", func() {
	DescribeTable("known names",
		func(name string, want uint8) {
			reg, ok := insts.ParseRegister(name)
			Expect(ok).To(BeTrue())
			Expect(reg).To(Equal(want))
		},
		Entry("x0", "x0", uint8(0)),
		Entry("x31", "x31", uint8(31)),
		Entry("zero", "zero", uint8(0)),
		Entry("sp", "sp", uint8(2)),
		Entry("fp aliases s0", "fp", uint8(8)),
		Entry("a0", "a0", uint8(10)),
		Entry("s11", "s11", uint8(27)),
		Entry("t6", "t6", uint8(31)),
		Entry("upper case", "T3", uint8(28)),
	)

	It("should reject unknown names", func() {
		for _, name := range []string{"x32", "pc", "", "x-1", "a8"} {
			_, ok := insts.ParseRegister(name)
			Expect(ok).To(BeFalse(), name)
		}
	})
})
