// Package loader reads dispatch traces: JSON files carrying a decoded
// instruction stream plus the initial machine state it runs against.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/core"
)

// TraceInstruction is the JSON form of one decoded instruction.
type TraceInstruction struct {
	Op string `json:"op"`
	PC uint32 `json:"pc"`

	Rd  uint8 `json:"rd,omitempty"`
	Rs1 uint8 `json:"rs1,omitempty"`
	Rs2 uint8 `json:"rs2,omitempty"`
	Rs3 uint8 `json:"rs3,omitempty"`

	Imm    uint32 `json:"imm,omitempty"`
	UseImm bool   `json:"use_imm,omitempty"`
	RM     uint8  `json:"rm,omitempty"`

	BranchTarget    uint32 `json:"branch_target,omitempty"`
	PredictedTaken  bool   `json:"predicted_taken,omitempty"`
	PredictedTarget uint32 `json:"predicted_target,omitempty"`
	Call            bool   `json:"call,omitempty"`
	Return          bool   `json:"return,omitempty"`

	FPMem     bool  `json:"fp_mem,omitempty"`
	MemSize   uint8 `json:"mem_size,omitempty"`
	MemSigned bool  `json:"mem_signed,omitempty"`

	CSRAddr uint16 `json:"csr_addr,omitempty"`
	CSRImm  uint8  `json:"csr_imm,omitempty"`
}

// MemoryImage is one contiguous run of initialized memory words.
type MemoryImage struct {
	Addr  uint32   `json:"addr"`
	Words []uint32 `json:"words"`
}

// Trace is a full dispatch trace.
type Trace struct {
	Name string `json:"name,omitempty"`

	// IntRegs and FPRegs hold initial register values keyed by register
	// name ("x5", "f3").
	IntRegs map[string]uint32 `json:"xregs,omitempty"`
	FPRegs  map[string]uint64 `json:"fregs,omitempty"`

	Memory []MemoryImage `json:"memory,omitempty"`

	Instructions []TraceInstruction `json:"instructions"`
}

// Load reads and validates a trace file.
func Load(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}

	var trace Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse trace file: %w", err)
	}

	if _, err := trace.Decode(); err != nil {
		return nil, err
	}
	return &trace, nil
}

// Decode converts the trace's instruction stream into the core's dispatch
// form.
func (t *Trace) Decode() ([]core.Instruction, error) {
	out := make([]core.Instruction, 0, len(t.Instructions))

	for i, ti := range t.Instructions {
		op, ok := insts.ParseOp(ti.Op)
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown op %q", i, ti.Op)
		}
		if ti.Rd >= 32 || ti.Rs1 >= 32 || ti.Rs2 >= 32 || ti.Rs3 >= 32 {
			return nil, fmt.Errorf("instruction %d: register out of range", i)
		}
		if ti.RM > 4 {
			return nil, fmt.Errorf("instruction %d: invalid rounding mode %d",
				i, ti.RM)
		}
		if op.IsMem() && ti.MemSize > 3 {
			return nil, fmt.Errorf("instruction %d: invalid access size %d",
				i, ti.MemSize)
		}

		out = append(out, core.Instruction{
			Op: op,
			PC: ti.PC,

			Rd:  ti.Rd,
			Rs1: ti.Rs1,
			Rs2: ti.Rs2,
			Rs3: ti.Rs3,

			Imm:    ti.Imm,
			UseImm: ti.UseImm,
			RM:     insts.RoundingMode(ti.RM),

			BranchTarget:    ti.BranchTarget,
			PredictedTaken:  ti.PredictedTaken,
			PredictedTarget: ti.PredictedTarget,
			IsCall:          ti.Call,
			IsReturn:        ti.Return,

			FPMem:     ti.FPMem,
			MemSize:   ti.MemSize,
			MemSigned: ti.MemSigned,

			CSRAddr: ti.CSRAddr,
			CSRImm:  ti.CSRImm,
		})
	}
	return out, nil
}

// Apply writes the trace's initial register and memory state.
func (t *Trace) Apply(regs *emu.RegFile, memory *emu.Memory) error {
	for name, value := range t.IntRegs {
		reg, err := parseReg(name, 'x')
		if err != nil {
			return err
		}
		regs.WriteInt(reg, value)
	}
	for name, value := range t.FPRegs {
		reg, err := parseReg(name, 'f')
		if err != nil {
			return err
		}
		regs.WriteFP(reg, value)
	}

	for _, img := range t.Memory {
		for i, word := range img.Words {
			memory.Write32(img.Addr+uint32(i)*4, word)
		}
	}
	return nil
}

func parseReg(name string, prefix byte) (uint8, error) {
	if len(name) < 2 || name[0] != prefix {
		return 0, fmt.Errorf("invalid register name %q", name)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, string(prefix)), 10, 8)
	if err != nil || n >= 32 {
		return 0, fmt.Errorf("invalid register name %q", name)
	}
	return uint8(n), nil
}
