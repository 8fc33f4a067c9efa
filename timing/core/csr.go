package core

import (
	"github.com/rvlab/o3sim/insts"
)

// Machine-mode CSR addresses used by the core.
const (
	CSRFFlags   uint16 = 0x001
	CSRFRM      uint16 = 0x002
	CSRFCSR     uint16 = 0x003
	CSRMStatus  uint16 = 0x300
	CSRMTVec    uint16 = 0x305
	CSRMScratch uint16 = 0x340
	CSRMEPC     uint16 = 0x341
	CSRMCause   uint16 = 0x342
	CSRMTVal    uint16 = 0x343
)

// mstatus bits.
const (
	mstatusMIE  = 1 << 3
	mstatusMPIE = 1 << 7
)

// CSRFile is the machine-mode control and status register file. CSR accesses
// execute here at commit, under the reorder buffer's serializing state
// machine, so they always see architectural state.
type CSRFile struct {
	regs map[uint16]uint32
}

// NewCSRFile creates a CSR file with all registers zero.
func NewCSRFile() *CSRFile {
	return &CSRFile{regs: make(map[uint16]uint32)}
}

// Read returns a CSR value. Unimplemented CSRs read as zero.
func (f *CSRFile) Read(addr uint16) uint32 {
	switch addr {
	case CSRFCSR:
		return f.regs[CSRFRM]<<5 | f.regs[CSRFFlags]&0x1F
	}
	return f.regs[addr]
}

// Write sets a CSR value.
func (f *CSRFile) Write(addr uint16, value uint32) {
	switch addr {
	case CSRFFlags:
		value &= 0x1F
	case CSRFRM:
		value &= 0x7
	case CSRFCSR:
		f.regs[CSRFFlags] = value & 0x1F
		f.regs[CSRFRM] = (value >> 5) & 0x7
		return
	case CSRMEPC:
		value &^= 1
	}
	f.regs[addr] = value
}

// Execute performs one CSR access and returns the old value the destination
// register receives.
func (f *CSRFile) Execute(op insts.Op, addr uint16, operand uint32) uint32 {
	old := f.Read(addr)
	switch op {
	case insts.OpCSRRW:
		f.Write(addr, operand)
	case insts.OpCSRRS:
		if operand != 0 {
			f.Write(addr, old|operand)
		}
	case insts.OpCSRRC:
		if operand != 0 {
			f.Write(addr, old&^operand)
		}
	}
	return old
}

// AccumulateFlags ORs retired FP exception flags into fflags.
func (f *CSRFile) AccumulateFlags(flags insts.FPFlags) {
	if flags == 0 {
		return
	}
	f.regs[CSRFFlags] |= uint32(flags) & 0x1F
}

// TakeTrap latches the trap state and returns the handler address.
// The interrupt flag sets the mcause top bit.
func (f *CSRFile) TakeTrap(pc uint32, cause insts.ExcCause, interrupt bool) uint32 {
	f.Write(CSRMEPC, pc)

	mcause := uint32(cause)
	if interrupt {
		mcause |= 1 << 31
	}
	f.regs[CSRMCause] = mcause

	// Stack the interrupt enable.
	status := f.regs[CSRMStatus]
	if status&mstatusMIE != 0 {
		status |= mstatusMPIE
	} else {
		status &^= mstatusMPIE
	}
	status &^= mstatusMIE
	f.regs[CSRMStatus] = status

	return f.regs[CSRMTVec] &^ 3
}

// Return unstacks the trap state and returns the resume address.
func (f *CSRFile) Return() uint32 {
	status := f.regs[CSRMStatus]
	if status&mstatusMPIE != 0 {
		status |= mstatusMIE
	} else {
		status &^= mstatusMIE
	}
	status |= mstatusMPIE
	f.regs[CSRMStatus] = status

	return f.regs[CSRMEPC]
}

// InterruptsEnabled reports whether machine interrupts are globally enabled.
func (f *CSRFile) InterruptsEnabled() bool {
	return f.regs[CSRMStatus]&mstatusMIE != 0
}

// Reset clears every register.
func (f *CSRFile) Reset() {
	f.regs = make(map[uint16]uint32)
}
