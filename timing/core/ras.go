package core

// rasDepth is the return address stack size. Must be a power of two.
const rasDepth = 8

// RAS is the return address stack used for return target prediction. The
// stack position (top pointer plus valid count) is checkpointed with the
// rename state so branch recovery can rewind speculative pushes and pops.
type RAS struct {
	entries    [rasDepth]uint32
	tos        uint8
	validCount uint8
}

// Push records a call's return address.
func (r *RAS) Push(addr uint32) {
	r.tos = (r.tos + 1) % rasDepth
	r.entries[r.tos] = addr
	if r.validCount < rasDepth {
		r.validCount++
	}
}

// Pop predicts a return target. It reports false when the stack holds no
// valid entries.
func (r *RAS) Pop() (uint32, bool) {
	if r.validCount == 0 {
		return 0, false
	}
	addr := r.entries[r.tos]
	r.tos = (r.tos - 1 + rasDepth) % rasDepth
	r.validCount--
	return addr, true
}

// Position returns the current stack position for checkpointing.
func (r *RAS) Position() (tos, validCount uint8) {
	return r.tos, r.validCount
}

// Restore rewinds the stack position to a checkpointed state. Entry storage
// is not rewound; a stale entry only costs a prediction.
func (r *RAS) Restore(tos, validCount uint8) {
	r.tos = tos % rasDepth
	r.validCount = validCount
	if r.validCount > rasDepth {
		r.validCount = rasDepth
	}
}

// Reset clears the stack.
func (r *RAS) Reset() {
	*r = RAS{}
}
