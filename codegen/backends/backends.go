// Package backends opens code generation backends by name.
package backends

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/rvjit/codegen"
	"github.com/sarchlab/rvjit/codegen/closure"
	"github.com/sarchlab/rvjit/codegen/x86"
)

// ErrUnknownBackend is returned for a name no backend answers to.
var ErrUnknownBackend = errors.New("unknown backend")

// Names lists the available backends, portable first.
var Names = []string{closure.Name, x86.Name}

// Open creates the backend called name. regionSize sizes the executable
// region of native backends; 0 keeps their default.
func Open(name string, regionSize int) (codegen.Backend, error) {
	switch name {
	case closure.Name:
		return closure.New(), nil
	case x86.Name:
		var opts []x86.Option
		if regionSize > 0 {
			opts = append(opts, x86.WithRegionSize(regionSize))
		}
		b, err := x86.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s backend: %w", name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
}

// Close releases the resources held by b, if any.
func Close(b codegen.Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Available lists the backends that open on this host.
func Available() []string {
	var names []string
	for _, name := range Names {
		b, err := Open(name, 0)
		if err != nil {
			continue
		}
		_ = Close(b)
		names = append(names, name)
	}
	return names
}
