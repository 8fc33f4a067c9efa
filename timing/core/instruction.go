package core

import (
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// Instruction is one decoded instruction entering the backend, as produced by
// the frontend or a dispatch trace.
type Instruction struct {
	Op insts.Op
	PC uint32

	Rd  uint8
	Rs1 uint8
	Rs2 uint8
	Rs3 uint8

	Imm    uint32
	UseImm bool
	RM     insts.RoundingMode

	BranchTarget    uint32
	PredictedTaken  bool
	PredictedTarget uint32
	IsCall          bool
	IsReturn        bool

	FPMem     bool
	MemSize   uint8
	MemSigned bool

	CSRAddr uint16
	CSRImm  uint8
}

// Station classes, matching the backend's reservation station instances.
const (
	stationNone = iota
	stationInt
	stationMul
	stationMem
	stationFP
	stationFMul
	stationFDiv
)

// stationFor returns the reservation station class an operation dispatches
// to. Operations that finish at allocation have no station.
func stationFor(op insts.Op) int {
	switch {
	case op.IsMul(), op.IsDiv():
		return stationMul
	case op.IsMem():
		return stationMem
	case op.IsFPAddClass():
		return stationFP
	case op.IsFPMulClass():
		return stationFMul
	case op.IsFPDivClass():
		return stationFDiv
	}
	switch op {
	case insts.OpJAL, insts.OpFENCE, insts.OpFENCEI, insts.OpWFI,
		insts.OpMRET, insts.OpECALL, insts.OpEBREAK:
		return stationNone
	}
	return stationInt
}

type srcKind uint8

const (
	srcNone srcKind = iota
	srcInt
	srcFP
)

// srcKinds returns which register file each source operand reads from.
func (in *Instruction) srcKinds() (s1, s2, s3 srcKind) {
	op := in.Op
	switch {
	case op.IsMul(), op.IsDiv():
		return srcInt, srcInt, srcNone

	case op.IsMem():
		switch op {
		case insts.OpLOAD:
			return srcInt, srcNone, srcNone
		case insts.OpSTORE:
			if in.FPMem {
				return srcInt, srcFP, srcNone
			}
			return srcInt, srcInt, srcNone
		case insts.OpLR:
			return srcInt, srcNone, srcNone
		default: // AMO, SC
			return srcInt, srcInt, srcNone
		}

	case op.IsFPAddClass():
		switch op {
		case insts.OpFCVTSW, insts.OpFCVTDW:
			return srcInt, srcNone, srcNone
		case insts.OpFCVTWS, insts.OpFCVTWD:
			return srcFP, srcNone, srcNone
		}
		return srcFP, srcFP, srcNone

	case op.IsFPMulClass():
		switch op {
		case insts.OpFMADDS, insts.OpFMADDD:
			return srcFP, srcFP, srcFP
		}
		return srcFP, srcFP, srcNone

	case op.IsFPDivClass():
		switch op {
		case insts.OpFSQRTS, insts.OpFSQRTD:
			return srcFP, srcNone, srcNone
		}
		return srcFP, srcFP, srcNone
	}

	switch op {
	case insts.OpJALR:
		return srcInt, srcNone, srcNone
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE,
		insts.OpBLTU, insts.OpBGEU:
		return srcInt, srcInt, srcNone
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC:
		if in.UseImm {
			return srcNone, srcNone, srcNone
		}
		return srcInt, srcNone, srcNone
	case insts.OpJAL, insts.OpFENCE, insts.OpFENCEI, insts.OpWFI,
		insts.OpMRET, insts.OpECALL, insts.OpEBREAK:
		return srcNone, srcNone, srcNone
	}
	// Integer ALU operation.
	if in.UseImm {
		return srcInt, srcNone, srcNone
	}
	return srcInt, srcInt, srcNone
}

// destInfo returns the destination register file and whether the instruction
// writes a destination at all.
func (in *Instruction) destInfo() (tomasulo.RegFileKind, bool) {
	op := in.Op
	switch {
	case op.IsMul(), op.IsDiv():
		return tomasulo.RegFileInt, true

	case op.IsMem():
		switch op {
		case insts.OpSTORE:
			return tomasulo.RegFileInt, false
		case insts.OpLOAD:
			if in.FPMem {
				return tomasulo.RegFileFP, true
			}
			return tomasulo.RegFileInt, true
		}
		// AMO, LR, SC write an integer result.
		return tomasulo.RegFileInt, true

	case op.IsFPAddClass():
		switch op {
		case insts.OpFCVTWS, insts.OpFCVTWD:
			return tomasulo.RegFileInt, true
		}
		return tomasulo.RegFileFP, true

	case op.IsFPMulClass(), op.IsFPDivClass():
		return tomasulo.RegFileFP, true
	}

	switch op {
	case insts.OpJAL, insts.OpJALR:
		return tomasulo.RegFileInt, true
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC:
		return tomasulo.RegFileInt, true
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE,
		insts.OpBLTU, insts.OpBGEU,
		insts.OpFENCE, insts.OpFENCEI, insts.OpWFI,
		insts.OpMRET, insts.OpECALL, insts.OpEBREAK:
		return tomasulo.RegFileInt, false
	}
	return tomasulo.RegFileInt, true
}

// isBranch reports whether the instruction resolves through the branch path.
func (in *Instruction) isBranch() bool {
	return in.Op.IsBranch()
}

// allocRequest builds the reorder-buffer allocation message.
func (in *Instruction) allocRequest() tomasulo.AllocRequest {
	destFile, destValid := in.destInfo()
	if destFile == tomasulo.RegFileInt && in.Rd == 0 {
		destValid = false
	}

	return tomasulo.AllocRequest{
		PC: in.PC,

		DestFile:  destFile,
		DestReg:   in.Rd,
		DestValid: destValid,

		IsStore:   in.Op == insts.OpSTORE && !in.FPMem,
		IsFPStore: in.Op == insts.OpSTORE && in.FPMem,

		IsBranch:        in.isBranch(),
		PredictedTaken:  in.PredictedTaken,
		PredictedTarget: in.PredictedTarget,
		IsCall:          in.IsCall,
		IsReturn:        in.IsReturn,
		IsJAL:           in.Op == insts.OpJAL,
		IsJALR:          in.Op == insts.OpJALR,
		LinkAddr:        uint64(in.PC + 4),

		IsCSR: in.Op == insts.OpCSRRW || in.Op == insts.OpCSRRS ||
			in.Op == insts.OpCSRRC,
		IsFence:  in.Op == insts.OpFENCE,
		IsFenceI: in.Op == insts.OpFENCEI,
		IsWFI:    in.Op == insts.OpWFI,
		IsMRET:   in.Op == insts.OpMRET,
		IsAMO:    in.Op == insts.OpAMO,
		IsLR:     in.Op == insts.OpLR,
		IsSC:     in.Op == insts.OpSC,
	}
}
