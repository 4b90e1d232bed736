package jit

import (
	"fmt"
	"unsafe"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rvjit/codegen"
	"github.com/sarchlab/rvjit/emu"
)

// DefaultMaxInstructions caps the number of instructions in one block.
const DefaultMaxInstructions = 64

// CompiledBlock is a finalized block. It is never mutated after Build
// returns it.
type CompiledBlock struct {
	// Start is the address the block was built at.
	Start uint64

	// End is the address after the last translated instruction.
	End uint64

	// Instructions is the number of translated instructions.
	Instructions int

	// Entry runs the block on a *emu.State and returns the next PC.
	Entry codegen.Entry

	// Backend names the backend that compiled the block.
	Backend string

	// CodeSize is reported by the backend.
	CodeSize int
}

// Run executes the block on state and returns the next PC.
func (b *CompiledBlock) Run(state *emu.State) uint64 {
	return b.Entry(unsafe.Pointer(state))
}

// BlockBuilder builds compiled blocks.
type BlockBuilder interface {
	Build(mem *emu.Memory, start uint64) (*CompiledBlock, error)
}

// Phase is the position of a Builder in its per-build state machine.
type Phase uint8

// Builder phases.
const (
	PhaseIdle Phase = iota
	PhaseCollecting
	PhaseTerminated
	PhaseFinalized
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollecting:
		return "collecting"
	case PhaseTerminated:
		return "terminated"
	case PhaseFinalized:
		return "finalized"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Builder assembles blocks from consecutive instructions. It owns one
// scratch codegen.Function that is reset for every build, so a Builder must
// not be used from multiple goroutines.
type Builder struct {
	backend         codegen.Backend
	translator      *Translator
	fn              *codegen.Function
	log             logr.Logger
	maxInstructions int
	phase           Phase
}

// BuilderOption is a functional option for configuring the Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger. V(1) logs compiled blocks, V(2) dumps IR.
func WithLogger(log logr.Logger) BuilderOption {
	return func(b *Builder) {
		b.log = log
	}
}

// WithMaxInstructions caps the instructions per block. A block that reaches
// the cap returns the next sequential address.
func WithMaxInstructions(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.maxInstructions = n
		}
	}
}

// WithTranslator replaces the default translator.
func WithTranslator(t *Translator) BuilderOption {
	return func(b *Builder) {
		b.translator = t
	}
}

// NewBuilder creates a builder that finalizes blocks with backend.
func NewBuilder(backend codegen.Backend, opts ...BuilderOption) *Builder {
	b := &Builder{
		backend:         backend,
		translator:      NewTranslator(),
		fn:              codegen.NewFunction(),
		log:             logr.Discard(),
		maxInstructions: DefaultMaxInstructions,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Phase returns the phase reached by the last build.
func (b *Builder) Phase() Phase {
	return b.phase
}

// Backend returns the backend blocks are finalized with.
func (b *Builder) Backend() codegen.Backend {
	return b.backend
}

// Build translates from start up to the first branch, the end of mem or the
// instruction cap, and finalizes the result.
func (b *Builder) Build(mem *emu.Memory, start uint64) (*CompiledBlock, error) {
	b.phase = PhaseCollecting
	b.fn.Reset(codegen.BlockSignature)

	fb := codegen.NewFunctionBuilder(b.fn)
	fb.SwitchToBlock(fb.CreateBlock())

	out, count, err := b.collect(fb, mem, start)
	if err != nil {
		return nil, b.fail(start, StageTranslate, err)
	}

	b.phase = PhaseTerminated
	end := b.terminate(fb, out)

	if err := b.fn.Verify(); err != nil {
		return nil, b.fail(start, StageVerify, err)
	}

	if b.log.V(2).Enabled() {
		b.log.V(2).Info("block ir", "start", hex(start), "ir", b.fn.String())
	}

	entry, info, err := b.backend.Compile(b.fn)
	if err != nil {
		return nil, b.fail(start, StageFinalize, err)
	}

	b.phase = PhaseFinalized
	block := &CompiledBlock{
		Start:        start,
		End:          end,
		Instructions: count,
		Entry:        entry,
		Backend:      b.backend.Name(),
		CodeSize:     info.Size,
	}

	b.log.V(1).Info("compiled block",
		"start", hex(start),
		"end", hex(end),
		"instructions", count,
		"exit", out.Kind.String(),
		"backend", block.Backend,
		"size", block.CodeSize)

	return block, nil
}

func (b *Builder) collect(
	fb *codegen.FunctionBuilder,
	mem *emu.Memory,
	start uint64,
) (Outcome, int, error) {
	pc := start
	for count := 0; ; {
		if count >= b.maxInstructions {
			return End(pc), count, nil
		}

		out, err := b.translator.Translate(fb, mem, pc)
		if err != nil {
			return Outcome{}, count, err
		}

		switch out.Kind {
		case KindSequential:
			count++
			pc = out.Next
		case KindBranch:
			return out, count + 1, nil
		default:
			return out, count, nil
		}
	}
}

// terminate closes every open exit with a return of its next address and
// returns the address after the last translated instruction.
func (b *Builder) terminate(fb *codegen.FunctionBuilder, out Outcome) uint64 {
	if out.Kind == KindBranch {
		ret(fb, out.TakenExit, out.Taken)
		ret(fb, out.NotTakenExit, out.NotTaken)
		return out.NotTaken
	}

	ret(fb, fb.CurrentBlock(), out.Address)
	return out.Address
}

func ret(fb *codegen.FunctionBuilder, blk codegen.Block, addr uint64) {
	fb.SwitchToBlock(blk)
	fb.Return(fb.Iconst(int64(addr)))
}

func (b *Builder) fail(start uint64, stage Stage, err error) error {
	b.phase = PhaseFailed
	b.log.V(1).Info("block build failed", "start", hex(start), "stage", stage.String(), "error", err.Error())
	return &BuildError{Start: start, Stage: stage, Err: err}
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
