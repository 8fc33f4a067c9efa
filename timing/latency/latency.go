// Package latency provides the execution timing model for the out-of-order
// backend. Latencies are configurable per functional-unit class via
// TimingConfig.
package latency

import (
	"github.com/rvlab/o3sim/insts"
)

// Table provides per-operation latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a latency table with a custom configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given operation.
func (t *Table) GetLatency(op insts.Op) int {
	switch {
	case op.IsMul():
		return t.config.MulLatency
	case op.IsDiv():
		return t.config.DivLatency
	case op.IsMem():
		return t.config.MemLatency
	case op.IsFPMulClass():
		switch op {
		case insts.OpFMADDS, insts.OpFMADDD:
			return t.config.FMALatency
		}
		return t.config.FPMulLatency
	case op.IsFPDivClass():
		return t.config.FPDivLatency
	case op.IsFPAddClass():
		switch op {
		case insts.OpFMINS, insts.OpFMAXS, insts.OpFMIND, insts.OpFMAXD:
			return t.config.FPMinMaxLatency
		case insts.OpFCVTSW, insts.OpFCVTDW, insts.OpFCVTWS, insts.OpFCVTWD:
			return t.config.FPCvtLatency
		case insts.OpFSGNJS, insts.OpFSGNJD:
			return t.config.FPSgnjLatency
		}
		return t.config.FPAddLatency
	default:
		return t.config.ALULatency
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
