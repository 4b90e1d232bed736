//go:build !linux || !amd64

package x86_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvjit/codegen/x86"
)

var _ = Describe("Backend", func() {
	It("should be unsupported on this platform", func() {
		_, err := x86.New()
		Expect(err).To(MatchError(x86.ErrUnsupported))
	})
})
