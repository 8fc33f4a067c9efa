package emu

import (
	"github.com/rvlab/o3sim/insts"
)

// EvalALU evaluates a single-cycle integer operation on two 32-bit operands.
func EvalALU(op insts.Op, a, b uint32) uint32 {
	switch op {
	case insts.OpADD:
		return a + b
	case insts.OpSUB:
		return a - b
	case insts.OpSLL:
		return a << (b & 0x1F)
	case insts.OpSLT:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case insts.OpSLTU:
		if a < b {
			return 1
		}
		return 0
	case insts.OpXOR:
		return a ^ b
	case insts.OpSRL:
		return a >> (b & 0x1F)
	case insts.OpSRA:
		return uint32(int32(a) >> (b & 0x1F))
	case insts.OpOR:
		return a | b
	case insts.OpAND:
		return a & b
	default:
		return 0
	}
}

// EvalMul evaluates an M-extension multiply. MUL returns the low 32 bits of
// the product; the MULH variants return the high 32 bits under the respective
// signedness.
func EvalMul(op insts.Op, a, b uint32) uint32 {
	switch op {
	case insts.OpMUL:
		return a * b
	case insts.OpMULH:
		p := int64(int32(a)) * int64(int32(b))
		return uint32(uint64(p) >> 32)
	case insts.OpMULHSU:
		p := int64(int32(a)) * int64(b)
		return uint32(uint64(p) >> 32)
	case insts.OpMULHU:
		p := uint64(a) * uint64(b)
		return uint32(p >> 32)
	default:
		return 0
	}
}

// EvalDiv evaluates an M-extension divide or remainder with the RISC-V
// special cases: division by zero yields all-ones (DIV/DIVU) or the dividend
// (REM/REMU); signed overflow (most negative / -1) yields the dividend with
// remainder zero. Divide never traps.
func EvalDiv(op insts.Op, a, b uint32) uint32 {
	switch op {
	case insts.OpDIV:
		if b == 0 {
			return 0xFFFF_FFFF
		}
		if a == 0x8000_0000 && b == 0xFFFF_FFFF {
			return 0x8000_0000
		}
		return uint32(int32(a) / int32(b))
	case insts.OpDIVU:
		if b == 0 {
			return 0xFFFF_FFFF
		}
		return a / b
	case insts.OpREM:
		if b == 0 {
			return a
		}
		if a == 0x8000_0000 && b == 0xFFFF_FFFF {
			return 0
		}
		return uint32(int32(a) % int32(b))
	case insts.OpREMU:
		if b == 0 {
			return a
		}
		return a % b
	default:
		return 0
	}
}
