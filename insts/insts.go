// Package insts provides the RISC-V micro-operation vocabulary shared by the
// out-of-order backend.
//
// The backend does not decode machine code; dispatch delivers already-decoded
// micro-operations. This package defines the operation enum, the operation
// classes used for functional-unit routing, exception causes, and the IEEE 754
// accrued-exception flags.
package insts

// Op identifies a micro-operation.
type Op int

// Integer operations.
const (
	OpUnknown Op = iota

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	// M extension
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// Control transfer
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Memory
	OpLOAD
	OpSTORE
	OpAMO
	OpLR
	OpSC

	// F/D extension (operating on FLEN=64 NaN-boxed values)
	OpFADDS
	OpFSUBS
	OpFADDD
	OpFSUBD
	OpFMINS
	OpFMAXS
	OpFMIND
	OpFMAXD
	OpFCVTSW
	OpFCVTDW
	OpFCVTWS
	OpFCVTWD
	OpFSGNJS
	OpFSGNJD
	OpFMULS
	OpFMULD
	OpFMADDS
	OpFMADDD
	OpFDIVS
	OpFDIVD
	OpFSQRTS
	OpFSQRTD

	// System
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpFENCE
	OpFENCEI
	OpWFI
	OpMRET
	OpECALL
	OpEBREAK
)

var opNames = map[Op]string{
	OpUnknown: "unknown",
	OpADD:     "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpMUL: "mul", OpMULH: "mulh", OpMULHSU: "mulhsu", OpMULHU: "mulhu",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",
	OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge",
	OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLOAD: "load", OpSTORE: "store", OpAMO: "amo", OpLR: "lr", OpSC: "sc",
	OpFADDS: "fadd.s", OpFSUBS: "fsub.s", OpFADDD: "fadd.d", OpFSUBD: "fsub.d",
	OpFMINS: "fmin.s", OpFMAXS: "fmax.s", OpFMIND: "fmin.d", OpFMAXD: "fmax.d",
	OpFCVTSW: "fcvt.s.w", OpFCVTDW: "fcvt.d.w",
	OpFCVTWS: "fcvt.w.s", OpFCVTWD: "fcvt.w.d",
	OpFSGNJS: "fsgnj.s", OpFSGNJD: "fsgnj.d",
	OpFMULS: "fmul.s", OpFMULD: "fmul.d",
	OpFMADDS: "fmadd.s", OpFMADDD: "fmadd.d",
	OpFDIVS: "fdiv.s", OpFDIVD: "fdiv.d", OpFSQRTS: "fsqrt.s", OpFSQRTD: "fsqrt.d",
	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc",
	OpFENCE: "fence", OpFENCEI: "fence.i", OpWFI: "wfi", OpMRET: "mret",
	OpECALL: "ecall", OpEBREAK: "ebreak",
}

var opValues = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		m[name] = op
	}
	return m
}()

// String returns the assembler mnemonic for the operation.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "invalid"
}

// ParseOp returns the operation for an assembler mnemonic.
func ParseOp(name string) (Op, bool) {
	op, ok := opValues[name]
	return op, ok
}

// IsMul reports whether op belongs to the integer multiply class.
func (op Op) IsMul() bool {
	switch op {
	case OpMUL, OpMULH, OpMULHSU, OpMULHU:
		return true
	}
	return false
}

// IsDiv reports whether op belongs to the integer divide class.
func (op Op) IsDiv() bool {
	switch op {
	case OpDIV, OpDIVU, OpREM, OpREMU:
		return true
	}
	return false
}

// IsBranch reports whether op is a control-transfer operation.
func (op Op) IsBranch() bool {
	switch op {
	case OpJAL, OpJALR, OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		return true
	}
	return false
}

// IsMem reports whether op accesses memory.
func (op Op) IsMem() bool {
	switch op {
	case OpLOAD, OpSTORE, OpAMO, OpLR, OpSC:
		return true
	}
	return false
}

// IsFPAddClass reports whether op routes to the FP add/compare/convert adapter.
func (op Op) IsFPAddClass() bool {
	switch op {
	case OpFADDS, OpFSUBS, OpFADDD, OpFSUBD,
		OpFMINS, OpFMAXS, OpFMIND, OpFMAXD,
		OpFCVTSW, OpFCVTDW, OpFCVTWS, OpFCVTWD,
		OpFSGNJS, OpFSGNJD:
		return true
	}
	return false
}

// IsFPMulClass reports whether op routes to the FP multiply adapter.
func (op Op) IsFPMulClass() bool {
	switch op {
	case OpFMULS, OpFMULD, OpFMADDS, OpFMADDD:
		return true
	}
	return false
}

// IsFPDivClass reports whether op routes to the FP divide/sqrt adapter.
func (op Op) IsFPDivClass() bool {
	switch op {
	case OpFDIVS, OpFDIVD, OpFSQRTS, OpFSQRTD:
		return true
	}
	return false
}

// IsSingle reports whether an FP op operates on single-precision values.
func (op Op) IsSingle() bool {
	switch op {
	case OpFADDS, OpFSUBS, OpFMINS, OpFMAXS, OpFCVTSW, OpFCVTWS,
		OpFSGNJS, OpFMULS, OpFMADDS, OpFDIVS, OpFSQRTS:
		return true
	}
	return false
}
