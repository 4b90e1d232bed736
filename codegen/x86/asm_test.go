package x86_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen/x86"
)

var _ = Describe("Assembler", func() {
	var a *x86.Assembler

	BeforeEach(func() {
		a = x86.NewAssembler()
	})

	DescribeTable("encodings",
		func(emit func(a *x86.Assembler), want []byte) {
			emit(a)
			Expect(a.Bytes()).To(Equal(want))
		},
		Entry("mov rax, imm32", func(a *x86.Assembler) { a.MovRegImm64(x86.RAX, 0x1234) },
			[]byte{0x48, 0xC7, 0xC0, 0x34, 0x12, 0x00, 0x00}),
		Entry("mov rax, -1", func(a *x86.Assembler) { a.MovRegImm64(x86.RAX, ^uint64(0)) },
			[]byte{0x48, 0xC7, 0xC0, 0xFF, 0xFF, 0xFF, 0xFF}),
		Entry("mov r11, imm64", func(a *x86.Assembler) { a.MovRegImm64(x86.R11, 0x1122334455667788) },
			[]byte{0x49, 0xBB, 0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11}),
		Entry("mov rax, [rdi+8]", func(a *x86.Assembler) { a.MovRegMem64(x86.RAX, x86.RDI, 8) },
			[]byte{0x48, 0x8B, 0x47, 0x08}),
		Entry("mov rax, [r11]", func(a *x86.Assembler) { a.MovRegMem64(x86.RAX, x86.R11, 0) },
			[]byte{0x49, 0x8B, 0x03}),
		Entry("mov rcx, [r11+256]", func(a *x86.Assembler) { a.MovRegMem64(x86.RCX, x86.R11, 256) },
			[]byte{0x49, 0x8B, 0x8B, 0x00, 0x01, 0x00, 0x00}),
		Entry("mov [rdi+256], rax", func(a *x86.Assembler) { a.MovMemReg64(x86.RDI, 256, x86.RAX) },
			[]byte{0x48, 0x89, 0x87, 0x00, 0x01, 0x00, 0x00}),
		Entry("mov [rsp+8], rax", func(a *x86.Assembler) { a.MovMemReg64(x86.RSP, 8, x86.RAX) },
			[]byte{0x48, 0x89, 0x44, 0x24, 0x08}),
		Entry("add rax, rcx", func(a *x86.Assembler) { a.AddRegReg(x86.RAX, x86.RCX) },
			[]byte{0x48, 0x01, 0xC8}),
		Entry("sub rax, rcx", func(a *x86.Assembler) { a.SubRegReg(x86.RAX, x86.RCX) },
			[]byte{0x48, 0x29, 0xC8}),
		Entry("and rax, rcx", func(a *x86.Assembler) { a.AndRegReg(x86.RAX, x86.RCX) },
			[]byte{0x48, 0x21, 0xC8}),
		Entry("or rax, rcx", func(a *x86.Assembler) { a.OrRegReg(x86.RAX, x86.RCX) },
			[]byte{0x48, 0x09, 0xC8}),
		Entry("xor rax, rcx", func(a *x86.Assembler) { a.XorRegReg(x86.RAX, x86.RCX) },
			[]byte{0x48, 0x31, 0xC8}),
		Entry("shl rax, cl", func(a *x86.Assembler) { a.ShlRegCL(x86.RAX) },
			[]byte{0x48, 0xD3, 0xE0}),
		Entry("cmp rax, rcx", func(a *x86.Assembler) { a.CmpRegReg(x86.RAX, x86.RCX) },
			[]byte{0x48, 0x39, 0xC8}),
		Entry("test rax, rax", func(a *x86.Assembler) { a.TestRegReg(x86.RAX, x86.RAX) },
			[]byte{0x48, 0x85, 0xC0}),
		Entry("setne al", func(a *x86.Assembler) { a.Setcc(x86.CondNE, x86.RAX) },
			[]byte{0x0F, 0x95, 0xC0}),
		Entry("sete sil", func(a *x86.Assembler) { a.Setcc(x86.CondE, x86.RSI) },
			[]byte{0x40, 0x0F, 0x94, 0xC6}),
		Entry("setl r9b", func(a *x86.Assembler) { a.Setcc(x86.CondL, x86.R9) },
			[]byte{0x41, 0x0F, 0x9C, 0xC1}),
		Entry("movzx rax, al", func(a *x86.Assembler) { a.MovzxRegReg8(x86.RAX, x86.RAX) },
			[]byte{0x48, 0x0F, 0xB6, 0xC0}),
		Entry("ret", func(a *x86.Assembler) { a.Ret() },
			[]byte{0xC3}),
	)

	It("should return the position of jump displacements", func() {
		Expect(a.JccRel32(x86.CondNE, 0)).To(Equal(2))
		Expect(a.JmpRel32(0)).To(Equal(7))
		Expect(a.Bytes()).To(Equal([]byte{
			0x0F, 0x85, 0x00, 0x00, 0x00, 0x00,
			0xE9, 0x00, 0x00, 0x00, 0x00,
		}))
	})

	It("should patch displacements relative to the end of the field", func() {
		pos := a.JmpRel32(0)
		a.Ret()
		a.PatchRel32(pos, 0)
		Expect(a.Bytes()).To(Equal([]byte{0xE9, 0xFB, 0xFF, 0xFF, 0xFF, 0xC3}))
	})

	It("should reset the buffer", func() {
		a.Ret()
		a.Reset()
		Expect(a.Offset()).To(Equal(0))
	})
})
