// Command benchmark runs the rvjit microbenchmarks on the interpreter and
// every code generation backend.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv      Output results in CSV format (default: human-readable)
//	-json     Output results as a JSON report
//	-core     Run only the core benchmarks
//	-engines  Comma separated engines (default: interpreter and all backends)
//	-v        Log verbosity of the translator
//
// Example:
//
//	# Compare the closure backend against the interpreter
//	go run ./cmd/benchmark -engines interpreter,closure
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// Every compiled run is checked against the interpreter's final state.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr/funcr"

	"github.com/sarchlab/rvjit/benchmarks"
)

func main() {
	// Parse flags
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	core := flag.Bool("core", false, "Run only the core benchmarks")
	engines := flag.String("engines", "", "Comma separated engines to run")
	verbosity := flag.Int("v", 0, "Log verbosity of the translator")
	flag.Parse()

	// Configure harness
	config := benchmarks.DefaultConfig()
	config.Output = os.Stdout
	if *engines != "" {
		config.Engines = strings.Split(*engines, ",")
	}
	if *verbosity > 0 {
		config.Logger = funcr.New(func(prefix, args string) {
			fmt.Fprintln(os.Stderr, prefix, args)
		}, funcr.Options{Verbosity: *verbosity})
	}

	harness := benchmarks.NewHarness(config)
	if *core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results := harness.RunAll()

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		fmt.Println("rvjit Benchmark Harness")
		fmt.Println("=======================")
		fmt.Printf("Engines: %s\n", strings.Join(config.Engines, ", "))
		fmt.Println("")

		harness.PrintResults(results)

		fmt.Println("=== Summary ===")
		for _, s := range benchmarks.Summarize(results) {
			fmt.Printf("%-12s %d benchmarks, %d failed, %.1f ns/inst\n",
				s.Engine, s.Benchmarks, s.Failed, s.NsPerInstruction)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
