// Package dispatch runs programs by repeatedly fetching or building the
// compiled block at the current program counter and invoking it.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/jit"
)

// ErrMaxBlocks is returned when the block limit is reached before the
// program leaves instruction memory.
var ErrMaxBlocks = errors.New("max blocks reached")

// Result summarizes a run.
type Result struct {
	// Blocks is the number of compiled blocks executed.
	Blocks uint64

	// Interpreted is the number of blocks executed by the interpreter
	// after a failed build.
	Interpreted uint64

	// PC is the final program counter.
	PC uint64
}

// Loop owns the machine state of one run.
type Loop struct {
	mem    *emu.Memory
	state  *emu.State
	cache  *jit.Cache
	interp *emu.Emulator
	log    logr.Logger

	maxBlocks uint64 // 0 means no limit
	fallback  bool
	result    Result
}

// Option is a functional option for configuring the Loop.
type Option func(*Loop)

// WithLogger sets the logger. V(1) logs interpreter fallbacks.
func WithLogger(log logr.Logger) Option {
	return func(l *Loop) {
		l.log = log
	}
}

// WithMaxBlocks limits the number of blocks executed. 0 means no limit.
func WithMaxBlocks(n uint64) Option {
	return func(l *Loop) {
		l.maxBlocks = n
	}
}

// WithInterpreterFallback interprets up to the next branch when a block
// cannot be built. Words the interpreter does not know still fail the run.
func WithInterpreterFallback() Option {
	return func(l *Loop) {
		l.fallback = true
	}
}

// WithCache reuses blocks compiled by an earlier loop over the same memory.
func WithCache(cache *jit.Cache) Option {
	return func(l *Loop) {
		l.cache = cache
	}
}

// New creates a loop that runs mem on state, building blocks with builder.
func New(mem *emu.Memory, state *emu.State, builder jit.BlockBuilder, opts ...Option) *Loop {
	l := &Loop{
		mem:   mem,
		state: state,
		log:   logr.Discard(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.cache == nil {
		l.cache = jit.NewCache(builder, mem, jit.WithCacheLogger(l.log))
	}
	l.interp = emu.NewEmulator(mem, emu.WithState(state))

	return l
}

// Cache returns the block cache.
func (l *Loop) Cache() *jit.Cache {
	return l.cache
}

// State returns the machine state.
func (l *Loop) State() *emu.State {
	return l.state
}

// Result returns the progress so far.
func (l *Loop) Result() Result {
	r := l.result
	r.PC = l.state.PC
	return r
}

// Step executes one block at the current PC. It returns false once the PC
// is outside instruction memory or no further progress is possible.
func (l *Loop) Step() (bool, error) {
	pc := l.state.PC
	if !l.mem.Contains(pc) {
		return false, nil
	}

	if l.maxBlocks > 0 && l.result.Blocks+l.result.Interpreted >= l.maxBlocks {
		return false, fmt.Errorf("%w at pc 0x%x after %d blocks", ErrMaxBlocks, pc, l.maxBlocks)
	}

	block, err := l.cache.GetOrBuild(pc)
	if err != nil {
		if !l.fallback {
			return false, err
		}
		return l.interpret(err)
	}

	l.state.PC = block.Run(l.state)
	l.result.Blocks++

	// An empty block returns its own start: the instruction at pc runs past
	// the end of memory.
	return block.Instructions > 0, nil
}

func (l *Loop) interpret(buildErr error) (bool, error) {
	pc := l.state.PC
	l.log.V(1).Info("interpreting block", "pc", fmt.Sprintf("0x%x", pc), "reason", buildErr.Error())

	res := l.interp.RunBlock()
	if res.Err != nil {
		return false, buildErr
	}

	l.result.Interpreted++
	return !res.Halted || l.state.PC != pc, nil
}

// Run steps until the PC leaves instruction memory or an error occurs.
func (l *Loop) Run() (Result, error) {
	for {
		more, err := l.Step()
		if err != nil {
			return l.Result(), err
		}
		if !more {
			return l.Result(), nil
		}
	}
}
