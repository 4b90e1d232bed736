// Package benchmarks runs microbenchmarks on the interpreter and the code
// generation backends and checks that they agree.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"

	"github.com/sarchlab/rvjit/codegen/backends"
	"github.com/sarchlab/rvjit/dispatch"
	"github.com/sarchlab/rvjit/emu"
	"github.com/sarchlab/rvjit/jit"
)

// ProgramAddr is where benchmark programs are loaded.
const ProgramAddr uint64 = 0x1000

// EngineInterpreter names the reference interpreter.
const EngineInterpreter = "interpreter"

// BenchmarkResult holds the results of one benchmark on one engine.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Engine is the interpreter or the backend that ran it
	Engine string `json:"engine"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Instructions is the guest instruction count of the reference run
	Instructions uint64 `json:"instructions"`

	// Blocks is the number of compiled blocks executed
	Blocks uint64 `json:"blocks,omitempty"`

	// BlocksBuilt is the number of blocks translated and compiled
	BlocksBuilt uint64 `json:"blocks_built,omitempty"`

	// CacheHits is the number of block cache hits
	CacheHits uint64 `json:"cache_hits,omitempty"`

	// FinalPC is the program counter at exit
	FinalPC uint64 `json:"final_pc"`

	// Passed reports that the expected registers matched
	Passed bool `json:"passed"`

	// Mismatch is the state difference against the interpreter, if any
	Mismatch string `json:"mismatch,omitempty"`

	// Error is set when the engine could not run the program
	Error string `json:"error,omitempty"`

	// WallTime is the time taken to run the program
	WallTime time.Duration `json:"wall_time_ns"`
}

// NsPerInstruction is the wall time per guest instruction.
func (r BenchmarkResult) NsPerInstruction() float64 {
	if r.Instructions == 0 {
		return 0
	}
	return float64(r.WallTime.Nanoseconds()) / float64(r.Instructions)
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the initial register values
	Setup func(state *emu.State)

	// Program is the RISC-V machine code, loaded at ProgramAddr
	Program []byte

	// Expected lists register values checked after the run
	Expected map[uint8]uint64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Engines lists what to run: EngineInterpreter and backend names. The
	// interpreter always runs first as the reference. The default holds
	// the backends available on this host.
	Engines []string

	// MaxBlockInstructions caps the block size of the compiled engines
	MaxBlockInstructions int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives the translator and dispatch logs
	Logger logr.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Engines:              append([]string{EngineInterpreter}, backends.Available()...),
		MaxBlockInstructions: jit.DefaultMaxInstructions,
		Output:               os.Stdout,
		Logger:               logr.Discard(),
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.MaxBlockInstructions <= 0 {
		config.MaxBlockInstructions = jit.DefaultMaxInstructions
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes every benchmark on every engine.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks)*len(h.config.Engines))

	for _, bench := range h.benchmarks {
		ref, refState := h.runInterpreter(bench)

		for _, engine := range h.config.Engines {
			if engine == EngineInterpreter {
				results = append(results, ref)
				continue
			}

			r := h.runCompiled(bench, engine, refState)
			r.Instructions = ref.Instructions
			results = append(results, r)
		}
	}

	return results
}

// prepare builds fresh memory and state for bench.
func prepare(bench Benchmark) (*emu.Memory, *emu.State, error) {
	mem := emu.NewMemory()
	if err := mem.LoadProgram(ProgramAddr, bench.Program); err != nil {
		return nil, nil, err
	}

	state := &emu.State{PC: ProgramAddr}
	if bench.Setup != nil {
		bench.Setup(state)
	}

	return mem, state, nil
}

func newResult(bench Benchmark, engine string) BenchmarkResult {
	return BenchmarkResult{
		Name:        bench.Name,
		Engine:      engine,
		Description: bench.Description,
	}
}

// check compares the final state with the expected registers.
func check(bench Benchmark, state *emu.State) bool {
	for reg, want := range bench.Expected {
		if state.ReadReg(reg) != want {
			return false
		}
	}
	return true
}

func (h *Harness) runInterpreter(bench Benchmark) (BenchmarkResult, *emu.State) {
	result := newResult(bench, EngineInterpreter)

	mem, state, err := prepare(bench)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	e := emu.NewEmulator(mem, emu.WithState(state))

	start := time.Now()
	res := e.Run()
	result.WallTime = time.Since(start)

	result.Instructions = e.InstructionCount()
	result.FinalPC = state.PC
	if res.Err != nil {
		result.Error = res.Err.Error()
		return result, nil
	}

	result.Passed = check(bench, state)
	return result, state
}

func (h *Harness) runCompiled(bench Benchmark, engine string, ref *emu.State) BenchmarkResult {
	result := newResult(bench, engine)

	backend, err := backends.Open(engine, 0)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer func() { _ = backends.Close(backend) }()

	mem, state, err := prepare(bench)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	builder := jit.NewBuilder(backend,
		jit.WithLogger(h.config.Logger),
		jit.WithMaxInstructions(h.config.MaxBlockInstructions))
	loop := dispatch.New(mem, state, builder, dispatch.WithLogger(h.config.Logger))

	start := time.Now()
	res, err := loop.Run()
	result.WallTime = time.Since(start)

	stats := loop.Cache().Stats()
	result.Blocks = res.Blocks
	result.BlocksBuilt = stats.Builds
	result.CacheHits = stats.Hits
	result.FinalPC = res.PC

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Passed = check(bench, state)
	if ref != nil {
		result.Mismatch = cmp.Diff(*ref, *state)
		result.Passed = result.Passed && result.Mismatch == ""
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== rvjit Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s [%s]\n", r.Name, r.Engine)
		_, _ = fmt.Fprintf(out, "  Description:  %s\n", r.Description)
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "  Error:        %s\n", r.Error)
			_, _ = fmt.Fprintln(out, "")
			continue
		}
		_, _ = fmt.Fprintf(out, "  Instructions: %d\n", r.Instructions)
		if r.Engine != EngineInterpreter {
			_, _ = fmt.Fprintf(out, "  Blocks:       %d (%d built, %d cache hits)\n",
				r.Blocks, r.BlocksBuilt, r.CacheHits)
		}
		_, _ = fmt.Fprintf(out, "  Final PC:     0x%x\n", r.FinalPC)
		_, _ = fmt.Fprintf(out, "  Passed:       %v\n", r.Passed)
		if r.Mismatch != "" {
			_, _ = fmt.Fprintf(out, "  Mismatch (-interpreter +%s):\n%s", r.Engine, r.Mismatch)
		}
		_, _ = fmt.Fprintf(out, "  Wall Time:    %v (%.1f ns/inst)\n", r.WallTime, r.NsPerInstruction())
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,engine,instructions,blocks,blocks_built,cache_hits,final_pc,passed,wall_time_ns,error")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%d,%d,0x%x,%v,%d,%q\n",
			r.Name,
			r.Engine,
			r.Instructions,
			r.Blocks,
			r.BlocksBuilt,
			r.CacheHits,
			r.FinalPC,
			r.Passed,
			r.WallTime.Nanoseconds(),
			r.Error,
		)
	}
}

// BuildProgram assembles instruction words into a little-endian image.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics per engine
	Summary []EngineSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp            string   `json:"timestamp"`
	Engines              []string `json:"engines"`
	MaxBlockInstructions int      `json:"max_block_instructions"`
}

// EngineSummary aggregates the results of one engine.
type EngineSummary struct {
	Engine            string        `json:"engine"`
	Benchmarks        int           `json:"benchmarks"`
	Failed            int           `json:"failed"`
	TotalInstructions uint64        `json:"total_instructions"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
	NsPerInstruction  float64       `json:"ns_per_instruction"`
}

// Summarize aggregates results per engine, sorted by engine name.
func Summarize(results []BenchmarkResult) []EngineSummary {
	byEngine := map[string]*EngineSummary{}
	for _, r := range results {
		s, ok := byEngine[r.Engine]
		if !ok {
			s = &EngineSummary{Engine: r.Engine}
			byEngine[r.Engine] = s
		}
		s.Benchmarks++
		if !r.Passed {
			s.Failed++
		}
		s.TotalInstructions += r.Instructions
		s.TotalWallTime += r.WallTime
	}

	summary := make([]EngineSummary, 0, len(byEngine))
	for _, s := range byEngine {
		if s.TotalInstructions > 0 {
			s.NsPerInstruction = float64(s.TotalWallTime.Nanoseconds()) / float64(s.TotalInstructions)
		}
		summary = append(summary, *s)
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Engine < summary[j].Engine })

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:            time.Now().UTC().Format(time.RFC3339),
			Engines:              h.config.Engines,
			MaxBlockInstructions: h.config.MaxBlockInstructions,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
