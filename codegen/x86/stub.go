//go:build !linux || !amd64

package x86

import "github.com/sarchlab/rvjit/codegen"

// Backend is unavailable on this platform.
type Backend struct{}

// New returns ErrUnsupported.
func New(opts ...Option) (*Backend, error) {
	_ = buildOptions(opts)
	return nil, ErrUnsupported
}

// Name returns "x86".
func (b *Backend) Name() string {
	return Name
}

// Compile returns ErrUnsupported.
func (b *Backend) Compile(fn *codegen.Function) (codegen.Entry, codegen.CodeInfo, error) {
	return nil, codegen.CodeInfo{}, ErrUnsupported
}

// Used returns 0.
func (b *Backend) Used() int {
	return 0
}

// Close does nothing.
func (b *Backend) Close() error {
	return nil
}
