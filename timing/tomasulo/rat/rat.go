// Package rat implements the register alias table: the rename map from
// architectural registers to in-flight reorder-buffer tags.
//
// Separate integer and floating-point maps share one checkpoint file.
// Dispatch snapshots the full table for every branch that claims a slot, and
// recovery bulk-restores the snapshot in a single step, including the return
// address stack position saved with it.
package rat

import (
	"fmt"

	"github.com/rvlab/o3sim/timing/tomasulo"
)

// NumCheckpoints is the number of snapshot slots.
const NumCheckpoints = 4

// Mapping is one rename map cell: register to producing tag.
type Mapping struct {
	Valid bool
	Tag   tomasulo.Tag
}

// Lookup is a source-register resolution: either a pending producer tag or
// the architectural value passed in by the caller.
type Lookup struct {
	Renamed bool
	Tag     tomasulo.Tag
	Value   uint64
}

type checkpoint struct {
	valid         bool
	branchTag     tomasulo.Tag
	rasTOS        uint8
	rasValidCount uint8
	intMap        [32]Mapping
	fpMap         [32]Mapping
}

// Table is the register alias table.
type Table struct {
	intMap      [32]Mapping
	fpMap       [32]Mapping
	checkpoints [NumCheckpoints]checkpoint
}

// New creates a table with no live renames.
func New() *Table {
	return &Table{}
}

// Reset clears all mappings and checkpoints.
func (t *Table) Reset() {
	*t = Table{}
}

// LookupInt resolves an integer source register. The caller supplies the
// architectural value; x0 always resolves to zero.
func (t *Table) LookupInt(reg uint8, regValue uint32) Lookup {
	if reg == 0 {
		return Lookup{}
	}
	m := t.intMap[reg&31]
	if m.Valid {
		return Lookup{Renamed: true, Tag: m.Tag, Value: uint64(regValue)}
	}
	return Lookup{Value: uint64(regValue)}
}

// LookupFP resolves a floating-point source register.
func (t *Table) LookupFP(reg uint8, regValue uint64) Lookup {
	m := t.fpMap[reg&31]
	if m.Valid {
		return Lookup{Renamed: true, Tag: m.Tag, Value: regValue}
	}
	return Lookup{Value: regValue}
}

// Rename points a destination register at the tag of its new producer.
// Writes to x0 are ignored.
func (t *Table) Rename(file tomasulo.RegFileKind, reg uint8, tag tomasulo.Tag) {
	if file == tomasulo.RegFileInt {
		if reg == 0 {
			return
		}
		t.intMap[reg&31] = Mapping{Valid: true, Tag: tag}
		return
	}
	t.fpMap[reg&31] = Mapping{Valid: true, Tag: tag}
}

// CommitClear drops the mapping for a committing instruction, but only if the
// register still points at the committing tag. A younger in-flight producer
// keeps its rename.
func (t *Table) CommitClear(file tomasulo.RegFileKind, reg uint8, tag tomasulo.Tag) {
	var m *Mapping
	if file == tomasulo.RegFileInt {
		if reg == 0 {
			return
		}
		m = &t.intMap[reg&31]
	} else {
		m = &t.fpMap[reg&31]
	}
	if m.Valid && m.Tag == tag {
		m.Valid = false
	}
}

// Available returns the lowest free checkpoint slot, if any.
func (t *Table) Available() (uint8, bool) {
	for i := range t.checkpoints {
		if !t.checkpoints[i].valid {
			return uint8(i), true
		}
	}
	return 0, false
}

// Save snapshots the full rename state into a checkpoint slot, together with
// the return address stack position at the branch.
func (t *Table) Save(id uint8, branchTag tomasulo.Tag, rasTOS, rasValidCount uint8) {
	cp := &t.checkpoints[id%NumCheckpoints]
	cp.valid = true
	cp.branchTag = branchTag
	cp.rasTOS = rasTOS
	cp.rasValidCount = rasValidCount
	cp.intMap = t.intMap
	cp.fpMap = t.fpMap
}

// Restore bulk-restores the rename state from a checkpoint slot and returns
// the saved return address stack position. Restoring a free slot is a
// recovery protocol violation.
func (t *Table) Restore(id uint8) (rasTOS, rasValidCount uint8) {
	cp := &t.checkpoints[id%NumCheckpoints]
	if !cp.valid {
		panic(fmt.Sprintf("rat: restore from free checkpoint %d", id))
	}
	t.intMap = cp.intMap
	t.fpMap = cp.fpMap
	return cp.rasTOS, cp.rasValidCount
}

// Free releases a checkpoint slot. The slot of a correctly predicted branch
// is freed when the branch commits.
func (t *Table) Free(id uint8) {
	t.checkpoints[id%NumCheckpoints].valid = false
}

// CheckpointBranch returns the branch tag a live checkpoint belongs to.
func (t *Table) CheckpointBranch(id uint8) (tomasulo.Tag, bool) {
	cp := &t.checkpoints[id%NumCheckpoints]
	return cp.branchTag, cp.valid
}

// FlushAll clears every mapping and every checkpoint. After a full flush no
// instruction is in flight, so no rename can be live.
func (t *Table) FlushAll() {
	for i := range t.intMap {
		t.intMap[i].Valid = false
	}
	for i := range t.fpMap {
		t.fpMap[i].Valid = false
	}
	for i := range t.checkpoints {
		t.checkpoints[i].valid = false
	}
}
