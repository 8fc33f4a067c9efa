// Package emu provides the architectural state and the arithmetic cores of the
// simulated RV32IMFD machine.
//
// The out-of-order backend updates architectural state only at commit; nothing
// in this package is speculative.
package emu

// RegFile holds the architectural integer and floating-point register files.
//
// Integer registers are XLEN=32 wide; x0 is hardwired to zero. FP registers
// are FLEN=64 wide, with single-precision values NaN-boxed in the upper bits.
type RegFile struct {
	// X holds integer registers x0-x31. X[0] always reads as 0.
	X [32]uint32

	// F holds floating-point registers f0-f31.
	F [32]uint64

	// PC is the architectural program counter (the next PC to commit).
	PC uint32

	// FFlags accumulates the fflags CSR bits raised by committed FP
	// instructions.
	FFlags uint8
}

// ReadInt reads an integer register. Register 0 returns 0.
func (r *RegFile) ReadInt(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteInt writes an integer register. Writes to register 0 are ignored.
func (r *RegFile) WriteInt(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// ReadFP reads a floating-point register.
func (r *RegFile) ReadFP(reg uint8) uint64 {
	if reg >= 32 {
		return 0
	}
	return r.F[reg]
}

// WriteFP writes a floating-point register.
func (r *RegFile) WriteFP(reg uint8, value uint64) {
	if reg >= 32 {
		return
	}
	r.F[reg] = value
}

// Reset clears all architectural state.
func (r *RegFile) Reset() {
	*r = RegFile{}
}
