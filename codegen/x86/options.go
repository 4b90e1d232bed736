package x86

import "errors"

// Name is the backend name.
const Name = "x86"

// DefaultRegionSize is the default size of the executable region.
const DefaultRegionSize = 16 * 1024 * 1024

// ErrUnsupported is returned by New on hosts other than linux/amd64.
var ErrUnsupported = errors.New("x86 backend is only available on linux/amd64")

type options struct {
	regionSize int
}

// Option configures a Backend.
type Option func(*options)

// WithRegionSize sets the size of the executable region shared by code and
// spill slots of all compiled blocks.
func WithRegionSize(size int) Option {
	return func(o *options) {
		o.regionSize = size
	}
}

func buildOptions(opts []Option) options {
	o := options{regionSize: DefaultRegionSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
