//go:build linux && amd64

package x86_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen"
	"github.com/sarchlab/rvjit/codegen/backendtest"
	"github.com/sarchlab/rvjit/codegen/x86"
	"github.com/sarchlab/rvjit/emu"
)

var _ = backendtest.DescribeBackend("x86", func() codegen.Backend {
	b, err := x86.New(x86.WithRegionSize(1 << 20))
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(b.Close)
	return b
})

var _ = Describe("Backend", func() {
	It("should fail once the region is exhausted", func() {
		b, err := x86.New(x86.WithRegionSize(4096))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(b.Close)

		fn := codegen.NewFunction()
		fn.Reset(codegen.BlockSignature)
		fb := codegen.NewFunctionBuilder(fn)
		fb.SwitchToBlock(fb.CreateBlock())
		for i := 0; i < 1000; i++ {
			fb.Iconst(int64(i))
		}
		fb.Return(fb.Iconst(0))

		_, _, err = b.Compile(fn)
		Expect(err).To(MatchError(ContainSubstring("out of executable memory")))
	})

	It("should release the region when lowering fails", func() {
		b, err := x86.New(x86.WithRegionSize(1 << 16))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(b.Close)

		backendtest.Compile(b, func(fb *codegen.FunctionBuilder) {
			fb.Return(fb.Iconst(1))
		})
		used := b.Used()
		Expect(used).To(BeNumerically(">", 0))

		fn := codegen.NewFunction()
		fn.Reset(codegen.BlockSignature)
		fb := codegen.NewFunctionBuilder(fn)
		fb.SwitchToBlock(fb.CreateBlock())
		fb.Return(fb.Load(fb.Iconst(0x1000), 0))

		_, _, err = b.Compile(fn)
		Expect(err).To(MatchError(ContainSubstring("only the state parameter")))
		Expect(b.Used()).To(Equal(used))
	})

	It("should keep earlier blocks callable after compiling more", func() {
		b, err := x86.New(x86.WithRegionSize(1 << 16))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(b.Close)

		compile := func(v int64) codegen.Entry {
			return backendtest.Compile(b, func(fb *codegen.FunctionBuilder) {
				fb.Return(fb.Iconst(v))
			})
		}

		first := compile(1)
		second := compile(2)
		state := &emu.State{}

		Expect(first(state.Pointer())).To(Equal(uint64(1)))
		Expect(second(state.Pointer())).To(Equal(uint64(2)))
	})

	It("should refuse to compile after Close", func() {
		b, err := x86.New(x86.WithRegionSize(4096))
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Close()).To(Succeed())

		fn := codegen.NewFunction()
		fn.Reset(codegen.BlockSignature)
		_, _, err = b.Compile(fn)
		Expect(err).To(HaveOccurred())
	})
})
