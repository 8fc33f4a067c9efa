package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds execution latencies for each functional-unit class.
type TimingConfig struct {
	// ALULatency is the latency for integer arithmetic, conditional
	// branches, and JALR resolution. Default: 1 cycle.
	ALULatency int `json:"alu_latency"`

	// MulLatency is the latency of the pipelined integer multiplier.
	// Default: 4 cycles.
	MulLatency int `json:"mul_latency"`

	// DivLatency is the latency of the iterative integer divider.
	// Default: 17 cycles.
	DivLatency int `json:"div_latency"`

	// MemLatency is the load-to-use latency assuming a cache hit.
	// Default: 2 cycles.
	MemLatency int `json:"mem_latency"`

	// FPAddLatency is the latency of the FP add/subtract core.
	// Default: 3 cycles.
	FPAddLatency int `json:"fp_add_latency"`

	// FPMinMaxLatency is the latency of the FP min/max core.
	// Default: 1 cycle.
	FPMinMaxLatency int `json:"fp_minmax_latency"`

	// FPCvtLatency is the latency of the int/FP conversion core.
	// Default: 2 cycles.
	FPCvtLatency int `json:"fp_cvt_latency"`

	// FPSgnjLatency is the latency of the FP sign-injection core.
	// Default: 1 cycle.
	FPSgnjLatency int `json:"fp_sgnj_latency"`

	// FPMulLatency is the latency of the pipelined FP multiplier.
	// Default: 4 cycles.
	FPMulLatency int `json:"fp_mul_latency"`

	// FMALatency is the latency of the fused multiply-add core.
	// Default: 5 cycles.
	FMALatency int `json:"fma_latency"`

	// FPDivLatency is the latency of the iterative FP divide/sqrt core.
	// Default: 20 cycles.
	FPDivLatency int `json:"fp_div_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default core timings.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:      1,
		MulLatency:      4,
		DivLatency:      17,
		MemLatency:      2,
		FPAddLatency:    3,
		FPMinMaxLatency: 1,
		FPCvtLatency:    2,
		FPSgnjLatency:   1,
		FPMulLatency:    4,
		FMALatency:      5,
		FPDivLatency:    20,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Missing fields keep their
// default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"alu_latency", c.ALULatency},
		{"mul_latency", c.MulLatency},
		{"div_latency", c.DivLatency},
		{"mem_latency", c.MemLatency},
		{"fp_add_latency", c.FPAddLatency},
		{"fp_minmax_latency", c.FPMinMaxLatency},
		{"fp_cvt_latency", c.FPCvtLatency},
		{"fp_sgnj_latency", c.FPSgnjLatency},
		{"fp_mul_latency", c.FPMulLatency},
		{"fma_latency", c.FMALatency},
		{"fp_div_latency", c.FPDivLatency},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%s must be > 0", f.name)
		}
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
