// Package rs implements the reservation stations that hold dispatched
// instructions until their operands arrive over the completion broadcast.
//
// A station is a small fully associative array. Dispatch fills the
// lowest-index free slot, broadcast snooping wakes pending operands, and
// issue selects the lowest-index ready slot. There is no age ordering inside
// a station; the reorder buffer alone owns program order.
package rs

import (
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// Operand is one source of a waiting instruction: either a captured value or
// a reorder-buffer tag still in flight.
type Operand struct {
	Ready bool
	Tag   tomasulo.Tag
	Value uint64
}

// ReadyOperand returns an operand carrying a resolved value.
func ReadyOperand(value uint64) Operand {
	return Operand{Ready: true, Value: value}
}

// PendingOperand returns an operand waiting on a reorder-buffer tag.
func PendingOperand(tag tomasulo.Tag) Operand {
	return Operand{Tag: tag}
}

// DispatchRecord is the payload a station stores for one instruction.
// Operands a given operation does not use must be marked ready at dispatch.
type DispatchRecord struct {
	Tag tomasulo.Tag
	Op  insts.Op

	Src1 Operand
	Src2 Operand
	Src3 Operand

	Imm    uint32
	UseImm bool
	RM     insts.RoundingMode

	BranchTarget    uint32
	PredictedTaken  bool
	PredictedTarget uint32

	IsFPMem   bool
	MemSize   uint8
	MemSigned bool

	CSRAddr uint16
	CSRImm  uint8
	PC      uint32
}

type entry struct {
	valid bool
	rec   DispatchRecord
}

func (e *entry) ready() bool {
	return e.valid &&
		e.rec.Src1.Ready &&
		(e.rec.Src2.Ready || e.rec.UseImm) &&
		e.rec.Src3.Ready
}

// Station is one reservation station.
type Station struct {
	name    string
	entries []entry
}

// New creates a station with the given slot count.
func New(name string, depth int) *Station {
	return &Station{
		name:    name,
		entries: make([]entry, depth),
	}
}

// Name returns the station name.
func (s *Station) Name() string {
	return s.name
}

// Full reports whether every slot is occupied.
func (s *Station) Full() bool {
	for i := range s.entries {
		if !s.entries[i].valid {
			return false
		}
	}
	return true
}

// Empty reports whether no slot is occupied.
func (s *Station) Empty() bool {
	return s.Count() == 0
}

// Count returns the number of occupied slots.
func (s *Station) Count() int {
	n := 0
	for i := range s.entries {
		if s.entries[i].valid {
			n++
		}
	}
	return n
}

// Dispatch places an instruction into the lowest-index free slot. A valid
// bypass completion resolves any pending operand whose tag matches in the
// same cycle, so an instruction dispatched alongside its producer's broadcast
// does not miss the wakeup. Returns the slot index, or false when full.
func (s *Station) Dispatch(rec DispatchRecord, bypass tomasulo.Completion) (int, bool) {
	idx := -1
	for i := range s.entries {
		if !s.entries[i].valid {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, false
	}

	rec.Src1 = bypassOperand(rec.Src1, bypass)
	rec.Src2 = bypassOperand(rec.Src2, bypass)
	rec.Src3 = bypassOperand(rec.Src3, bypass)

	s.entries[idx] = entry{valid: true, rec: rec}
	return idx, true
}

func bypassOperand(op Operand, bypass tomasulo.Completion) Operand {
	if !op.Ready && bypass.Valid && op.Tag == bypass.Tag {
		op.Ready = true
		op.Value = bypass.Value
	}
	return op
}

// Snoop wakes every pending operand waiting on the broadcast tag.
func (s *Station) Snoop(c tomasulo.Completion) {
	if !c.Valid {
		return
	}
	for i := range s.entries {
		e := &s.entries[i]
		if !e.valid {
			continue
		}
		e.rec.Src1 = wake(e.rec.Src1, c)
		e.rec.Src2 = wake(e.rec.Src2, c)
		e.rec.Src3 = wake(e.rec.Src3, c)
	}
}

func wake(op Operand, c tomasulo.Completion) Operand {
	if !op.Ready && op.Tag == c.Tag {
		op.Ready = true
		op.Value = c.Value
	}
	return op
}

// PeekIssue returns the lowest-index ready instruction without removing it.
func (s *Station) PeekIssue() (int, tomasulo.IssueRecord, bool) {
	for i := range s.entries {
		if s.entries[i].ready() {
			return i, issueRecord(s.entries[i].rec), true
		}
	}
	return 0, tomasulo.IssueRecord{}, false
}

// ConsumeIssue removes the slot returned by PeekIssue after the functional
// unit accepted it.
func (s *Station) ConsumeIssue(idx int) {
	s.entries[idx].valid = false
}

// TryIssue removes and returns the lowest-index ready instruction.
func (s *Station) TryIssue() (tomasulo.IssueRecord, bool) {
	idx, rec, ok := s.PeekIssue()
	if !ok {
		return tomasulo.IssueRecord{}, false
	}
	s.ConsumeIssue(idx)
	return rec, true
}

func issueRecord(rec DispatchRecord) tomasulo.IssueRecord {
	return tomasulo.IssueRecord{
		Valid: true,
		Tag:   rec.Tag,
		Op:    rec.Op,

		Src1: rec.Src1.Value,
		Src2: rec.Src2.Value,
		Src3: rec.Src3.Value,

		Imm:    rec.Imm,
		UseImm: rec.UseImm,
		RM:     rec.RM,

		BranchTarget:    rec.BranchTarget,
		PredictedTaken:  rec.PredictedTaken,
		PredictedTarget: rec.PredictedTarget,

		IsFPMem:   rec.IsFPMem,
		MemSize:   rec.MemSize,
		MemSigned: rec.MemSigned,

		CSRAddr: rec.CSRAddr,
		CSRImm:  rec.CSRImm,
		PC:      rec.PC,
	}
}

// FlushAll clears the station.
func (s *Station) FlushAll() {
	for i := range s.entries {
		s.entries[i].valid = false
	}
}

// FlushYounger clears every instruction younger than flushTag relative to
// head.
func (s *Station) FlushYounger(flushTag, head tomasulo.Tag) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.valid && tomasulo.YoungerThan(e.rec.Tag, flushTag, head) {
			e.valid = false
		}
	}
}
