// Package main provides the entry point for o3sim, a trace-driven simulator
// of an out-of-order RISC-V backend.
//
// For the full CLI, use: go run ./cmd/o3sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("o3sim - out-of-order RISC-V backend simulator")
	fmt.Println("")
	fmt.Println("Usage: o3sim [options] <trace.json>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to timing configuration JSON file")
	fmt.Println("  -max-cycles  Cycle budget before giving up")
	fmt.Println("  -icache      Model the L1 instruction cache")
	fmt.Println("  -dump        Dump architectural state after the run")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/o3sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/o3sim' instead.")
	}
}
