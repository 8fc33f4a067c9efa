package emu

import (
	"math"

	"github.com/rvlab/o3sim/insts"
)

// nanBoxMask is the upper-half pattern required for a valid NaN-boxed
// single-precision value in an FLEN=64 register.
const nanBoxMask = 0xFFFF_FFFF_0000_0000

// canonicalNaN32 is the RISC-V canonical single-precision quiet NaN.
const canonicalNaN32 = 0x7FC0_0000

// NaNBox embeds a 32-bit single-precision pattern in a 64-bit FP register
// value with the upper half all-ones.
func NaNBox(bits uint32) uint64 {
	return nanBoxMask | uint64(bits)
}

// unboxS extracts a single-precision value. An improperly boxed input reads
// as the canonical NaN, as the F extension requires.
func unboxS(v uint64) float32 {
	if v&nanBoxMask != nanBoxMask {
		return math.Float32frombits(canonicalNaN32)
	}
	return math.Float32frombits(uint32(v))
}

func boxResultS(f float32) uint64 {
	bits := math.Float32bits(f)
	if f != f {
		bits = canonicalNaN32
	}
	return NaNBox(bits)
}

func resultD(f float64) uint64 {
	if f != f {
		return 0x7FF8_0000_0000_0000 // canonical double NaN
	}
	return math.Float64bits(f)
}

// EvalFPAdd evaluates the FP add/compare/convert/sign-injection class.
// It returns the FLEN-wide result and the raised fflags bits. Underflow and
// inexact detection follow the host arithmetic and are approximate; invalid,
// divide-by-zero, and overflow are exact.
func EvalFPAdd(op insts.Op, a, b uint64) (uint64, insts.FPFlags) {
	if op.IsSingle() {
		return evalFPAddS(op, a, b)
	}
	return evalFPAddD(op, a, b)
}

func evalFPAddS(op insts.Op, a, b uint64) (uint64, insts.FPFlags) {
	fa, fb := unboxS(a), unboxS(b)
	var flags insts.FPFlags
	var r float32

	switch op {
	case insts.OpFADDS:
		r = fa + fb
	case insts.OpFSUBS:
		r = fa - fb
	case insts.OpFMINS:
		r = float32(math.Min(float64(fa), float64(fb)))
	case insts.OpFMAXS:
		r = float32(math.Max(float64(fa), float64(fb)))
	case insts.OpFSGNJS:
		bits := math.Float32bits(fa)&0x7FFF_FFFF | math.Float32bits(fb)&0x8000_0000
		return NaNBox(bits), 0
	case insts.OpFCVTSW:
		return boxResultS(float32(int32(uint32(a)))), 0
	case insts.OpFCVTWS:
		return cvtToInt32(float64(fa))
	default:
		return 0, 0
	}

	if r != r && fa == fa && fb == fb {
		flags |= insts.FPFlagNV // inf - inf
	}
	if (fa != fa || fb != fb) && op != insts.OpFMINS && op != insts.OpFMAXS {
		flags |= insts.FPFlagNV
	}
	if math.IsInf(float64(r), 0) && !math.IsInf(float64(fa), 0) && !math.IsInf(float64(fb), 0) {
		flags |= insts.FPFlagOF | insts.FPFlagNX
	}
	return boxResultS(r), flags
}

func evalFPAddD(op insts.Op, a, b uint64) (uint64, insts.FPFlags) {
	fa, fb := math.Float64frombits(a), math.Float64frombits(b)
	var flags insts.FPFlags
	var r float64

	switch op {
	case insts.OpFADDD:
		r = fa + fb
	case insts.OpFSUBD:
		r = fa - fb
	case insts.OpFMIND:
		r = math.Min(fa, fb)
	case insts.OpFMAXD:
		r = math.Max(fa, fb)
	case insts.OpFSGNJD:
		return a&0x7FFF_FFFF_FFFF_FFFF | b&0x8000_0000_0000_0000, 0
	case insts.OpFCVTDW:
		return math.Float64bits(float64(int32(uint32(a)))), 0
	case insts.OpFCVTWD:
		return cvtToInt32(fa)
	default:
		return 0, 0
	}

	if r != r && fa == fa && fb == fb {
		flags |= insts.FPFlagNV
	}
	if (fa != fa || fb != fb) && op != insts.OpFMIND && op != insts.OpFMAXD {
		flags |= insts.FPFlagNV
	}
	if math.IsInf(r, 0) && !math.IsInf(fa, 0) && !math.IsInf(fb, 0) {
		flags |= insts.FPFlagOF | insts.FPFlagNX
	}
	return resultD(r), flags
}

// cvtToInt32 converts to a signed 32-bit integer with RISC-V saturation:
// NaN and +overflow give 2^31-1, -overflow gives -2^31, all with NV raised.
func cvtToInt32(f float64) (uint64, insts.FPFlags) {
	switch {
	case f != f:
		return uint64(uint32(0x7FFF_FFFF)), insts.FPFlagNV
	case f >= math.MaxInt32+1:
		return uint64(uint32(0x7FFF_FFFF)), insts.FPFlagNV
	case f < math.MinInt32:
		return uint64(uint32(0x8000_0000)), insts.FPFlagNV
	}
	i := int32(f)
	var flags insts.FPFlags
	if float64(i) != f {
		flags |= insts.FPFlagNX
	}
	return uint64(uint32(i)), flags
}

// EvalFPMul evaluates the FP multiply class, including fused multiply-add
// (c is the addend, ignored by plain multiplies).
func EvalFPMul(op insts.Op, a, b, c uint64) (uint64, insts.FPFlags) {
	var flags insts.FPFlags
	switch op {
	case insts.OpFMULS:
		fa, fb := unboxS(a), unboxS(b)
		r := fa * fb
		flags = mulFlags(float64(fa), float64(fb), float64(r))
		return boxResultS(r), flags
	case insts.OpFMULD:
		fa, fb := math.Float64frombits(a), math.Float64frombits(b)
		r := fa * fb
		flags = mulFlags(fa, fb, r)
		return resultD(r), flags
	case insts.OpFMADDS:
		fa, fb, fc := unboxS(a), unboxS(b), unboxS(c)
		r := float32(math.FMA(float64(fa), float64(fb), float64(fc)))
		flags = mulFlags(float64(fa), float64(fb), float64(r))
		return boxResultS(r), flags
	case insts.OpFMADDD:
		fa := math.Float64frombits(a)
		fb := math.Float64frombits(b)
		fc := math.Float64frombits(c)
		r := math.FMA(fa, fb, fc)
		flags = mulFlags(fa, fb, r)
		return resultD(r), flags
	default:
		return 0, 0
	}
}

func mulFlags(fa, fb, r float64) insts.FPFlags {
	var flags insts.FPFlags
	if fa != fa || fb != fb {
		flags |= insts.FPFlagNV
		return flags
	}
	// 0 * inf is invalid
	if (fa == 0 && math.IsInf(fb, 0)) || (fb == 0 && math.IsInf(fa, 0)) {
		flags |= insts.FPFlagNV
	}
	if math.IsInf(r, 0) && !math.IsInf(fa, 0) && !math.IsInf(fb, 0) {
		flags |= insts.FPFlagOF | insts.FPFlagNX
	}
	return flags
}

// EvalFPDiv evaluates the FP divide/sqrt class.
func EvalFPDiv(op insts.Op, a, b uint64) (uint64, insts.FPFlags) {
	switch op {
	case insts.OpFDIVS:
		fa, fb := unboxS(a), unboxS(b)
		r := fa / fb
		return boxResultS(r), divFlags(float64(fa), float64(fb), float64(r))
	case insts.OpFDIVD:
		fa, fb := math.Float64frombits(a), math.Float64frombits(b)
		r := fa / fb
		return resultD(r), divFlags(fa, fb, r)
	case insts.OpFSQRTS:
		fa := unboxS(a)
		var flags insts.FPFlags
		if fa < 0 {
			flags |= insts.FPFlagNV
		}
		return boxResultS(float32(math.Sqrt(float64(fa)))), flags
	case insts.OpFSQRTD:
		fa := math.Float64frombits(a)
		var flags insts.FPFlags
		if fa < 0 {
			flags |= insts.FPFlagNV
		}
		return resultD(math.Sqrt(fa)), flags
	default:
		return 0, 0
	}
}

func divFlags(fa, fb, r float64) insts.FPFlags {
	var flags insts.FPFlags
	switch {
	case fa != fa || fb != fb:
		flags |= insts.FPFlagNV
	case fa == 0 && fb == 0:
		flags |= insts.FPFlagNV
	case math.IsInf(fa, 0) && math.IsInf(fb, 0):
		flags |= insts.FPFlagNV
	case fb == 0:
		flags |= insts.FPFlagDZ
	case math.IsInf(r, 0) && !math.IsInf(fa, 0):
		flags |= insts.FPFlagOF | insts.FPFlagNX
	case r*fb != fa:
		// The rounded quotient times the divisor only recovers the dividend
		// when the division was exact.
		flags |= insts.FPFlagNX
	}
	return flags
}
