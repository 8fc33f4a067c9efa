// Package benchmarks provides synthetic instruction streams for measuring
// the out-of-order backend: dependency chains, independent mixes, branchy
// code, and memory streams.
package benchmarks

import (
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/core"
)

// SerialChain returns n adds where each depends on the previous one. The
// stream exposes the broadcast-to-issue turnaround of the backend.
func SerialChain(n int) []core.Instruction {
	program := make([]core.Instruction, 0, n)
	for i := 0; i < n; i++ {
		program = append(program, core.Instruction{
			Op: insts.OpADD, PC: uint32(i) * 4,
			Rd: 1, Rs1: 1, Imm: 1, UseImm: true,
		})
	}
	return program
}

// ParallelMix returns n independent operations spread over eight registers
// and two functional-unit classes, leaving the backend free to overlap them.
func ParallelMix(n int) []core.Instruction {
	program := make([]core.Instruction, 0, n)
	for i := 0; i < n; i++ {
		rd := uint8(1 + i%8)
		if i%4 == 3 {
			program = append(program, core.Instruction{
				Op: insts.OpMUL, PC: uint32(i) * 4,
				Rd: rd, Rs1: 9, Rs2: 9,
			})
			continue
		}
		program = append(program, core.Instruction{
			Op: insts.OpADD, PC: uint32(i) * 4,
			Rd: rd, Rs1: 0, Imm: uint32(i), UseImm: true,
		})
	}
	return program
}

// BranchHeavy returns n always-taken branches, mispredicting every
// mispredictEvery-th one. A zero interval predicts everything correctly.
func BranchHeavy(n, mispredictEvery int) []core.Instruction {
	program := make([]core.Instruction, 0, n)
	for i := 0; i < n; i++ {
		pc := uint32(i) * 4
		branch := core.Instruction{
			Op: insts.OpBEQ, PC: pc,
			BranchTarget:    pc + 4,
			PredictedTaken:  true,
			PredictedTarget: pc + 4,
		}
		if mispredictEvery > 0 && i%mispredictEvery == 0 {
			branch.PredictedTaken = false
			branch.PredictedTarget = 0
		}
		program = append(program, branch)
	}
	return program
}

// MemoryStream returns n address-compute/store/load triples walking up a
// buffer, keeping the memory port and the store queue busy.
func MemoryStream(n int, base uint32) []core.Instruction {
	program := make([]core.Instruction, 0, 3*n)
	pc := uint32(0)
	for i := 0; i < n; i++ {
		addr := base + uint32(i)*4
		program = append(program,
			core.Instruction{
				Op: insts.OpADD, PC: pc,
				Rd: 1, Rs1: 0, Imm: addr, UseImm: true,
			},
			core.Instruction{
				Op: insts.OpSTORE, PC: pc + 4,
				Rs1: 1, Rs2: 2, MemSize: 2,
			},
			core.Instruction{
				Op: insts.OpLOAD, PC: pc + 8,
				Rd: 3, Rs1: 1, MemSize: 2,
			},
		)
		pc += 12
	}
	return program
}
