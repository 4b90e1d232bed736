// Command rvjit runs a RISC-V program through the block translator.
//
// Usage:
//
//	rvjit [flags] <image>
//
// The image is an ELF executable, a flat binary, a hex word listing or
// assembly source; -format overrides the guess from the file extension.
// After the run the registers, the pc and the block cache statistics are
// printed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/rvjit/codegen/backends"
	"github.com/sarchlab/rvjit/config"
	"github.com/sarchlab/rvjit/dispatch"
	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/insts"
	"github.com/sarchlab/rvjit/jit"
	"github.com/sarchlab/rvjit/loader"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// regFlags collects repeated -reg name=value flags.
type regFlags map[string]uint64

func (r regFlags) String() string {
	parts := make([]string, 0, len(r))
	for name, v := range r {
		parts = append(parts, fmt.Sprintf("%s=%d", name, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (r regFlags) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	if _, ok := insts.ParseRegister(name); !ok {
		return fmt.Errorf("unknown register %q", name)
	}
	v, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		n, serr := strconv.ParseInt(value, 0, 64)
		if serr != nil {
			return fmt.Errorf("invalid value for %s: %w", name, err)
		}
		v = uint64(n)
	}
	r[name] = v
	return nil
}

// options are the parsed command line.
type options struct {
	config *config.Config
	image  string
	dump   string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("rvjit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: rvjit [options] <image>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	defaults := config.DefaultConfig()
	regs := regFlags{}

	configPath := fs.String("config", "", "Path to run configuration JSON file")
	backend := fs.String("backend", defaults.Backend, "Code generator: "+strings.Join(backends.Names, ", "))
	format := fs.String("format", defaults.Format, "Image format: elf, raw, hex or asm (default: from extension)")
	base := fs.Uint64("base", defaults.LoadAddress, "Load address of raw, hex and asm images")
	maxBlocks := fs.Uint64("max-blocks", defaults.MaxBlocks, "Stop after this many blocks (0 = unlimited)")
	maxInsts := fs.Int("max-block-insts", defaults.MaxBlockInstructions, "Instructions per block")
	fallback := fs.Bool("fallback", defaults.InterpreterFallback, "Interpret blocks that fail to build")
	verbosity := fs.Int("v", defaults.Verbosity, "Log verbosity (1: blocks, 2: IR and cache hits)")
	dump := fs.String("dump-config", "", "Write the effective configuration to this file")
	fs.Var(regs, "reg", "Initial register value, name=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one image")
	}

	cfg := defaults
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	// Flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = *backend
		case "format":
			cfg.Format = *format
		case "base":
			cfg.LoadAddress = *base
		case "max-blocks":
			cfg.MaxBlocks = *maxBlocks
		case "max-block-insts":
			cfg.MaxBlockInstructions = *maxInsts
		case "fallback":
			cfg.InterpreterFallback = *fallback
		case "v":
			cfg.Verbosity = *verbosity
		case "reg":
			if cfg.Registers == nil {
				cfg.Registers = map[string]uint64{}
			}
			for name, v := range regs {
				cfg.Registers[name] = v
			}
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &options{config: cfg, image: fs.Arg(0), dump: *dump}, nil
}

func newLogger(stderr io.Writer, verbosity int) logr.Logger {
	if verbosity == 0 {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
		} else {
			_, _ = fmt.Fprintln(stderr, args)
		}
	}, funcr.Options{Verbosity: verbosity})
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 2
	}
	cfg := opts.config

	if opts.dump != "" {
		if err := cfg.SaveConfig(opts.dump); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	log := newLogger(stderr, cfg.Verbosity).WithName("rvjit")

	prog, err := loader.LoadFile(opts.image, cfg.Format, cfg.LoadAddress)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	mem, err := prog.Memory()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	state := &emu.State{PC: prog.EntryPoint}
	for reg, v := range cfg.InitialRegisters() {
		state.WriteReg(reg, v)
	}

	backend, err := backends.Open(cfg.Backend, cfg.CodeRegionSize)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = backends.Close(backend) }()

	log.V(1).Info("loaded", "image", opts.image, "entry", fmt.Sprintf("0x%x", prog.EntryPoint),
		"limit", fmt.Sprintf("0x%x", mem.Limit()), "backend", backend.Name())

	builder := jit.NewBuilder(backend,
		jit.WithLogger(log.WithName("jit")),
		jit.WithMaxInstructions(cfg.MaxBlockInstructions))

	loopOpts := []dispatch.Option{
		dispatch.WithLogger(log.WithName("dispatch")),
		dispatch.WithMaxBlocks(cfg.MaxBlocks),
	}
	if cfg.InterpreterFallback {
		loopOpts = append(loopOpts, dispatch.WithInterpreterFallback())
	}
	loop := dispatch.New(mem, state, builder, loopOpts...)

	result, runErr := loop.Run()

	printState(stdout, state)
	printStats(stdout, result, loop.Cache().Stats())

	if runErr != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", runErr)
		if line, ok := sourceLine(prog, runErr); ok {
			_, _ = fmt.Fprintf(stderr, "  at %s\n", line)
		}
		return 1
	}

	return 0
}

// sourceLine finds the assembly statement a build failure points at.
func sourceLine(prog *loader.Program, err error) (string, bool) {
	if prog.Source == nil {
		return "", false
	}

	var addr uint64
	var unknown *jit.UnknownOpcodeError
	var build *jit.BuildError
	switch {
	case errors.As(err, &unknown):
		addr = unknown.PC
	case errors.As(err, &build):
		addr = build.Start
	default:
		return "", false
	}

	st, ok := prog.Source.Statement(addr)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("line %d: %s", st.LineNo, strings.Join(st.Words, " ")), true
}

func printState(out io.Writer, state *emu.State) {
	_, _ = fmt.Fprintf(out, "pc   0x%016x\n", state.PC)
	for n := 0; n < emu.NumRegs; n++ {
		sep := "  "
		if n%4 == 3 {
			sep = "\n"
		}
		_, _ = fmt.Fprintf(out, "x%-2d %-4s 0x%016x%s", n, insts.ABINames[n], state.Regs[n], sep)
	}
}

func printStats(out io.Writer, result dispatch.Result, stats jit.Stats) {
	_, _ = fmt.Fprintf(out, "blocks: %d executed, %d interpreted\n", result.Blocks, result.Interpreted)
	_, _ = fmt.Fprintf(out, "cache: %d built, %d hits, %d misses, %d failures\n",
		stats.Builds, stats.Hits, stats.Misses, stats.Failures)
}
