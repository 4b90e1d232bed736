// Package main provides the entry point for rvjit, a dynamic binary
// translator for a small RV64 subset.
//
// For the full CLI, use: go run ./cmd/rvjit
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/rvjit/codegen/backends"
)

func main() {
	fmt.Println("rvjit - RISC-V block translator")
	fmt.Println("")
	fmt.Println("Usage: rvjit [options] <image>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Printf("  -backend   Code generator (%s)\n", strings.Join(backends.Names, ", "))
	fmt.Println("  -config    Path to run configuration JSON file")
	fmt.Println("  -format    Image format: elf, raw, hex or asm")
	fmt.Println("  -reg       Initial register value, name=value")
	fmt.Println("  -fallback  Interpret blocks that fail to build")
	fmt.Println("  -v         Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvjit' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvjit' instead.")
	}
}
