// Package main provides the o3sim command: a trace-driven simulator of an
// out-of-order RISC-V backend.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/loader"
	"github.com/rvlab/o3sim/timing/cache"
	"github.com/rvlab/o3sim/timing/core"
	"github.com/rvlab/o3sim/timing/latency"
)

var (
	configPath = flag.String("config", "", "path to timing configuration JSON file")
	maxCycles  = flag.Uint64("max-cycles", 1000000, "cycle budget before giving up")
	useICache  = flag.Bool("icache", false, "model the L1 instruction cache")
	dumpState  = flag.Bool("dump", false, "dump architectural state after the run")
	verbose    = flag.Bool("v", false, "verbose output")
)

func main() {
	flag.Parse()
	atexit.Exit(run())
}

func run() int {
	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: o3sim [options] <trace.json>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		return 1
	}
	tracePath := flag.Arg(0)

	trace, err := loader.Load(tracePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trace: %v\n", err)
		return 1
	}
	program, err := trace.Decode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding trace: %v\n", err)
		return 1
	}

	timingConfig := latency.DefaultTimingConfig()
	if *configPath != "" {
		timingConfig, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			return 1
		}
	}

	regs := &emu.RegFile{}
	memory := emu.NewMemory()
	if err := trace.Apply(regs, memory); err != nil {
		fmt.Fprintf(os.Stderr, "Error applying trace state: %v\n", err)
		return 1
	}

	c := core.NewCoreWithConfig(regs, memory, timingConfig)

	var icache *cache.Cache
	if *useICache {
		icache = cache.New(cache.DefaultL1IConfig(), cache.NewMemoryBacking(memory))
		c.SetICache(icache)
	}

	runID := xid.New().String()
	if *verbose {
		fmt.Printf("Run %s: %s (%d instructions)\n",
			runID, tracePath, len(program))
	}

	c.Feed(program...)
	drained := c.Run(*maxCycles)

	report(c, icache, trace.Name, runID, drained)

	if *dumpState {
		spew.Fdump(os.Stdout, regs)
	}

	if !drained {
		return 2
	}
	return 0
}

func report(c *core.Core, icache *cache.Cache, name, runID string, drained bool) {
	stats := c.Stats()

	heading := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgWhite)
	warn := color.New(color.FgYellow)

	heading.Printf("\n=== o3sim report ===\n")
	if name != "" {
		label.Printf("Trace:          %s\n", name)
	}
	label.Printf("Run ID:         %s\n", runID)
	if !drained {
		warn.Printf("Run did not drain within the cycle budget\n")
	}

	label.Printf("Cycles:         %d\n", stats.Cycles)
	label.Printf("Commits:        %d\n", stats.Commits)
	if stats.Commits > 0 {
		label.Printf("CPI:            %.2f\n",
			float64(stats.Cycles)/float64(stats.Commits))
	}
	label.Printf("Dispatched:     %d\n", stats.Dispatched)
	label.Printf("Broadcasts:     %d\n", stats.Broadcasts)

	heading.Printf("\nSpeculation:\n")
	label.Printf("Mispredictions: %d\n", c.ROBStats().Mispredictions)
	label.Printf("Partial flushes:%d\n", stats.PartialFlushes)
	label.Printf("Full flushes:   %d\n", stats.FullFlushes)
	label.Printf("Traps:          %d\n", stats.Traps)
	label.Printf("Redirects:      %d\n", stats.Redirects)

	heading.Printf("\nDispatch stalls:\n")
	label.Printf("Window full:    %d\n", stats.StallROBFull)
	label.Printf("Station full:   %d\n", stats.StallRSFull)
	label.Printf("No checkpoint:  %d\n", stats.StallNoCheckpoint)

	if icache != nil {
		cs := icache.Stats()
		heading.Printf("\nInstruction cache:\n")
		label.Printf("Fetches:        %d\n", cs.Fetches)
		label.Printf("Hits:           %d\n", cs.Hits)
		label.Printf("Misses:         %d\n", cs.Misses)
		label.Printf("Invalidations:  %d\n", cs.Invalidations)
	}
}
