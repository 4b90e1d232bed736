package backends_test

import (
	"runtime"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen/backends"
	"github.com/sarchlab/rvjit/codegen/x86"
)

var _ = Describe("Open", func() {
	It("should open the closure backend", func() {
		b, err := backends.Open("closure", 0)

		Expect(err).NotTo(HaveOccurred())
		Expect(b.Name()).To(Equal("closure"))
		Expect(backends.Close(b)).To(Succeed())
	})

	It("should open the x86 backend where it is supported", func() {
		b, err := backends.Open("x86", 1<<16)

		if runtime.GOOS == "linux" && runtime.GOARCH == "amd64" {
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name()).To(Equal("x86"))
			Expect(backends.Close(b)).To(Succeed())
		} else {
			Expect(err).To(MatchError(x86.ErrUnsupported))
		}
	})

	It("should reject unknown names", func() {
		_, err := backends.Open("llvm", 0)
		Expect(err).To(MatchError(backends.ErrUnknownBackend))
		Expect(err.Error()).To(ContainSubstring(`"llvm"`))
	})
})

var _ = Describe("Available", func() {
	It("should always include the closure backend first", func() {
		Expect(backends.Available()).NotTo(BeEmpty())
		Expect(backends.Available()[0]).To(Equal("closure"))
	})

	It("should include x86 only where it is supported", func() {
		supported := runtime.GOOS == "linux" && runtime.GOARCH == "amd64"
		Expect(slices.Contains(backends.Available(), "x86")).To(Equal(supported))
	})
})
