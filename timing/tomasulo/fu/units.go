package fu

import (
	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// IntALUUnit executes single-cycle integer arithmetic and resolves
// conditional branches and JALR targets.
type IntALUUnit struct {
	Lat int
}

func (u *IntALUUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 1
}

func (u *IntALUUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpADD, insts.OpSUB, insts.OpSLL, insts.OpSLT, insts.OpSLTU,
		insts.OpXOR, insts.OpSRL, insts.OpSRA, insts.OpOR, insts.OpAND:
		return true
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE,
		insts.OpBLTU, insts.OpBGEU, insts.OpJALR:
		return true
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC:
		// CSR accesses only collect their write operand here; the access
		// itself runs at commit under the serializing state machine.
		return true
	}
	return false
}

func (u *IntALUUnit) Eval(rec tomasulo.IssueRecord) Result {
	if rec.Op.IsBranch() {
		return u.evalBranch(rec)
	}
	switch rec.Op {
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC:
		if rec.UseImm {
			return Result{Value: uint64(rec.CSRImm)}
		}
		return Result{Value: rec.Src1}
	}
	b := uint32(rec.Src2)
	if rec.UseImm {
		b = rec.Imm
	}
	return Result{Value: uint64(emu.EvalALU(rec.Op, uint32(rec.Src1), b))}
}

func (u *IntALUUnit) evalBranch(rec tomasulo.IssueRecord) Result {
	a, b := uint32(rec.Src1), uint32(rec.Src2)

	var taken bool
	var target uint32
	var value uint64

	switch rec.Op {
	case insts.OpJALR:
		// Target comes from the register operand; bit 0 is cleared per the
		// base ISA. The link value is the sequential PC.
		taken = true
		target = (a + rec.Imm) &^ 1
		value = uint64(rec.PC + 4)
	case insts.OpBEQ:
		taken = a == b
	case insts.OpBNE:
		taken = a != b
	case insts.OpBLT:
		taken = int32(a) < int32(b)
	case insts.OpBGE:
		taken = int32(a) >= int32(b)
	case insts.OpBLTU:
		taken = a < b
	case insts.OpBGEU:
		taken = a >= b
	}
	if rec.Op != insts.OpJALR {
		if taken {
			target = rec.BranchTarget
		} else {
			target = rec.PC + 4
		}
	}

	mispredicted := taken != rec.PredictedTaken ||
		(taken && target != rec.PredictedTarget)

	return Result{
		Value:        value,
		IsBranch:     true,
		Taken:        taken,
		Mispredicted: mispredicted,
		Target:       target,
	}
}

// IntMulUnit executes the M-extension multiply group.
type IntMulUnit struct {
	Lat int
}

func (u *IntMulUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 4
}

func (u *IntMulUnit) Accepts(op insts.Op) bool { return op.IsMul() }

func (u *IntMulUnit) Eval(rec tomasulo.IssueRecord) Result {
	return Result{
		Value: uint64(emu.EvalMul(rec.Op, uint32(rec.Src1), uint32(rec.Src2))),
	}
}

// IntDivUnit executes the M-extension divide group on an iterative core.
type IntDivUnit struct {
	Lat int
}

func (u *IntDivUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 17
}

func (u *IntDivUnit) Accepts(op insts.Op) bool { return op.IsDiv() }

func (u *IntDivUnit) Eval(rec tomasulo.IssueRecord) Result {
	return Result{
		Value: uint64(emu.EvalDiv(rec.Op, uint32(rec.Src1), uint32(rec.Src2))),
	}
}

// MemUnit executes loads and stores against a pluggable backing access
// function. Stores produce no value here; their data is forwarded to the
// store queue at issue and written at commit. AMOs return the loaded old
// value and store their source operand unmodified, i.e. swap semantics.
type MemUnit struct {
	Lat int

	// Load reads the backing memory. Size is the log2 access width in bytes;
	// signed selects sign extension. A nil hook makes every load return zero.
	Load func(addr uint32, size uint8, signed bool) uint64
}

func (u *MemUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 2
}

func (u *MemUnit) Accepts(op insts.Op) bool { return op.IsMem() }

func (u *MemUnit) Eval(rec tomasulo.IssueRecord) Result {
	addr := uint32(rec.Src1) + rec.Imm

	if addr&(1<<rec.MemSize-1) != 0 {
		cause := insts.ExcLoadAddrMisaligned
		if rec.Op == insts.OpSTORE || rec.Op == insts.OpAMO ||
			rec.Op == insts.OpSC {
			cause = insts.ExcStoreAddrMisaligned
		}
		return Result{Exception: true, ExcCause: cause}
	}

	switch rec.Op {
	case insts.OpLOAD, insts.OpLR, insts.OpAMO:
		if u.Load == nil {
			return Result{}
		}
		return Result{Value: u.Load(addr, rec.MemSize, rec.MemSigned)}
	case insts.OpSC:
		// Success; the store queue holds the conditional data.
		return Result{Value: 0}
	default:
		return Result{}
	}
}

// FPAddSubUnit executes FP add and subtract, both precisions.
type FPAddSubUnit struct {
	Lat int
}

func (u *FPAddSubUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 3
}

func (u *FPAddSubUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpFADDS, insts.OpFSUBS, insts.OpFADDD, insts.OpFSUBD:
		return true
	}
	return false
}

func (u *FPAddSubUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPAdd(rec.Op, rec.Src1, rec.Src2)
	return Result{Value: v, FPFlags: fl}
}

// FPMinMaxUnit executes FP min and max, both precisions.
type FPMinMaxUnit struct {
	Lat int
}

func (u *FPMinMaxUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 1
}

func (u *FPMinMaxUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpFMINS, insts.OpFMAXS, insts.OpFMIND, insts.OpFMAXD:
		return true
	}
	return false
}

func (u *FPMinMaxUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPAdd(rec.Op, rec.Src1, rec.Src2)
	return Result{Value: v, FPFlags: fl}
}

// FPCvtUnit executes int/FP conversions.
type FPCvtUnit struct {
	Lat int
}

func (u *FPCvtUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 2
}

func (u *FPCvtUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpFCVTSW, insts.OpFCVTDW, insts.OpFCVTWS, insts.OpFCVTWD:
		return true
	}
	return false
}

func (u *FPCvtUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPAdd(rec.Op, rec.Src1, rec.Src2)
	return Result{Value: v, FPFlags: fl}
}

// FPSgnjUnit executes FP sign-injection.
type FPSgnjUnit struct {
	Lat int
}

func (u *FPSgnjUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 1
}

func (u *FPSgnjUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpFSGNJS, insts.OpFSGNJD:
		return true
	}
	return false
}

func (u *FPSgnjUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPAdd(rec.Op, rec.Src1, rec.Src2)
	return Result{Value: v, FPFlags: fl}
}

// FPMulUnit executes FP multiply.
type FPMulUnit struct {
	Lat int
}

func (u *FPMulUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 4
}

func (u *FPMulUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpFMULS, insts.OpFMULD:
		return true
	}
	return false
}

func (u *FPMulUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPMul(rec.Op, rec.Src1, rec.Src2, rec.Src3)
	return Result{Value: v, FPFlags: fl}
}

// FMAUnit executes fused multiply-add.
type FMAUnit struct {
	Lat int
}

func (u *FMAUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 5
}

func (u *FMAUnit) Accepts(op insts.Op) bool {
	switch op {
	case insts.OpFMADDS, insts.OpFMADDD:
		return true
	}
	return false
}

func (u *FMAUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPMul(rec.Op, rec.Src1, rec.Src2, rec.Src3)
	return Result{Value: v, FPFlags: fl}
}

// FPDivUnit executes FP divide and square root on an iterative core.
type FPDivUnit struct {
	Lat int
}

func (u *FPDivUnit) Latency() int {
	if u.Lat > 0 {
		return u.Lat
	}
	return 20
}

func (u *FPDivUnit) Accepts(op insts.Op) bool { return op.IsFPDivClass() }

func (u *FPDivUnit) Eval(rec tomasulo.IssueRecord) Result {
	v, fl := emu.EvalFPDiv(rec.Op, rec.Src1, rec.Src2)
	return Result{Value: v, FPFlags: fl}
}
