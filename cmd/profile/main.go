// Package main provides a profiling wrapper for rvjit to find where
// translation and execution time goes.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sarchlab/rvjit/codegen/backends"
	"github.com/sarchlab/rvjit/dispatch"
	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/jit"
	"github.com/sarchlab/rvjit/loader"
)

var (
	interp     = flag.Bool("interp", false, "Run the reference interpreter instead of compiled blocks")
	backend    = flag.String("backend", "closure", "Code generator for compiled runs")
	format     = flag.String("format", "", "Image format: elf, raw, hex or asm (default: from extension)")
	base       = flag.Uint64("base", 0, "Load address of raw, hex and asm images")
	repeat     = flag.Int("repeat", 100, "Number of runs; compiled runs share one block cache")
	cpuProfile = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile = flag.String("memprofile", "", "write memory profile to file")
	duration   = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	maxInstr   = flag.Uint64("max-instr", 1000000, "max instructions per interpreted run (0 = unlimited)")
	maxBlocks  = flag.Uint64("max-blocks", 1000000, "max blocks per compiled run (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <image>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loader.LoadFile(programPath, *format, *base)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	mem, err := prog.Memory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var count uint64
	var unit string
	if *interp {
		count, err = profileInterpreter(mem, prog.EntryPoint)
		unit = "Instructions"
	} else {
		count, err = profileCompiled(mem, prog.EntryPoint)
		unit = "Blocks"
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, ferr := os.Create(*memProfile)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", ferr)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if werr := pprof.WriteHeapProfile(f); werr != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", werr)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	if err != nil {
		fmt.Printf("Stopped: %v\n", err)
	}
	fmt.Printf("Runs: %d\n", *repeat)
	fmt.Printf("%s executed: %d\n", unit, count)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if count > 0 {
		fmt.Printf("%s/second: %.0f\n", unit, float64(count)/elapsed.Seconds())
	}
}

// profileInterpreter runs the program repeat times on the interpreter.
func profileInterpreter(mem *emu.Memory, entry uint64) (uint64, error) {
	var total uint64
	for range *repeat {
		opts := []emu.EmulatorOption{emu.WithEntry(entry)}
		if *maxInstr > 0 {
			opts = append(opts, emu.WithMaxInstructions(*maxInstr))
		}

		e := emu.NewEmulator(mem, opts...)
		res := e.Run()
		total += e.InstructionCount()
		if res.Err != nil {
			return total, res.Err
		}
	}
	return total, nil
}

// profileCompiled runs the program repeat times; blocks compiled by the
// first run are reused by the later ones.
func profileCompiled(mem *emu.Memory, entry uint64) (uint64, error) {
	b, err := backends.Open(*backend, 0)
	if err != nil {
		return 0, err
	}
	defer func() { _ = backends.Close(b) }()

	builder := jit.NewBuilder(b)

	var cache *jit.Cache
	var total uint64
	for range *repeat {
		opts := []dispatch.Option{dispatch.WithMaxBlocks(*maxBlocks)}
		if cache != nil {
			opts = append(opts, dispatch.WithCache(cache))
		}

		loop := dispatch.New(mem, &emu.State{PC: entry}, builder, opts...)
		res, err := loop.Run()
		total += res.Blocks
		if err != nil {
			return total, err
		}
		cache = loop.Cache()
	}
	return total, nil
}
