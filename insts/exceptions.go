package insts

// ExcCause is a RISC-V synchronous exception cause code (mcause values for
// non-interrupt traps).
type ExcCause uint8

// Exception causes carried on completion messages and reorder-buffer entries.
const (
	ExcInstrAddrMisaligned ExcCause = 0
	ExcInstrAccessFault    ExcCause = 1
	ExcIllegalInstruction  ExcCause = 2
	ExcBreakpoint          ExcCause = 3
	ExcLoadAddrMisaligned  ExcCause = 4
	ExcLoadAccessFault     ExcCause = 5
	ExcStoreAddrMisaligned ExcCause = 6
	ExcStoreAccessFault    ExcCause = 7
	ExcEnvCallM            ExcCause = 11
)

// String returns a human-readable cause name.
func (c ExcCause) String() string {
	switch c {
	case ExcInstrAddrMisaligned:
		return "instruction address misaligned"
	case ExcInstrAccessFault:
		return "instruction access fault"
	case ExcIllegalInstruction:
		return "illegal instruction"
	case ExcBreakpoint:
		return "breakpoint"
	case ExcLoadAddrMisaligned:
		return "load address misaligned"
	case ExcLoadAccessFault:
		return "load access fault"
	case ExcStoreAddrMisaligned:
		return "store address misaligned"
	case ExcStoreAccessFault:
		return "store access fault"
	case ExcEnvCallM:
		return "environment call from M-mode"
	default:
		return "reserved"
	}
}

// FPFlags is the RISC-V fflags accrued-exception bit set.
type FPFlags uint8

// fflags bits, LSB first per the F extension.
const (
	FPFlagNX FPFlags = 1 << 0 // inexact
	FPFlagUF FPFlags = 1 << 1 // underflow
	FPFlagOF FPFlags = 1 << 2 // overflow
	FPFlagDZ FPFlags = 1 << 3 // divide by zero
	FPFlagNV FPFlags = 1 << 4 // invalid operation
)

// RoundingMode is the 3-bit FP rounding mode field.
type RoundingMode uint8

// Rounding modes (frm encoding). The simulator computes with the host's
// round-to-nearest and records the requested mode for completeness.
const (
	RoundNearestEven RoundingMode = 0
	RoundTowardZero  RoundingMode = 1
	RoundDown        RoundingMode = 2
	RoundUp          RoundingMode = 3
	RoundNearestMax  RoundingMode = 4
)
