// Package tomasulo defines the message vocabulary shared by the out-of-order
// backend: reorder-buffer tags with modular age arithmetic, allocation
// requests, issue records, completion messages, branch updates, and commit
// messages.
//
// All cross-component communication in the backend flows through these types;
// components never reach into each other's state.
package tomasulo

import (
	"github.com/rvlab/o3sim/insts"
)

// Reorder-buffer geometry. Pointers carry one extra wrap bit so a full buffer
// can be told apart from an empty one.
const (
	// NumEntries is the reorder-buffer depth. Must be a power of two.
	NumEntries = 32

	// TagMask extracts the slot index from a tag or pointer.
	TagMask = NumEntries - 1

	// PtrWrap is the modulus for head/tail pointers (2N, one wrap bit).
	PtrWrap = 2 * NumEntries
)

// Tag identifies a reorder-buffer slot. Tags wrap modulo NumEntries.
type Tag uint8

// Age returns the distance of t from head, walking forward through the
// circular buffer. Age 0 means t is the head slot.
func Age(t, head Tag) uint8 {
	return uint8(t-head) & TagMask
}

// YoungerThan reports whether t was allocated after ref, relative to head.
// This is the single flush-scope relation used by every backend component;
// it must be evaluated against the same head value across all of them within
// one cycle.
func YoungerThan(t, ref, head Tag) bool {
	return Age(t, head) > Age(ref, head)
}

// RegFileKind selects the destination register file.
type RegFileKind uint8

// Destination register files.
const (
	RegFileInt RegFileKind = iota
	RegFileFP
)

// AllocRequest is the dispatch-to-ROB allocation message. All fields are
// known at dispatch; execution-dependent fields arrive later by broadcast.
type AllocRequest struct {
	PC uint32

	DestFile  RegFileKind
	DestReg   uint8
	DestValid bool

	IsStore   bool
	IsFPStore bool

	IsBranch        bool
	PredictedTaken  bool
	PredictedTarget uint32
	IsCall          bool
	IsReturn        bool
	IsJAL           bool
	IsJALR          bool

	// LinkAddr is the return address written by JAL/JALR, known at dispatch.
	LinkAddr uint64

	IsCSR    bool
	IsFence  bool
	IsFenceI bool
	IsWFI    bool
	IsMRET   bool
	IsAMO    bool
	IsLR     bool
	IsSC     bool
}

// IssueRecord is the reservation-station-to-functional-unit issue message.
// Operand values are resolved by the time an entry issues.
type IssueRecord struct {
	Valid bool
	Tag   Tag
	Op    insts.Op

	Src1 uint64
	Src2 uint64
	Src3 uint64

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

// Completion is the canonical functional-unit result message published on the
// completion broadcast. Branch outcomes ride on the completion of the
// resolving operation.
type Completion struct {
	Valid     bool
	Tag       Tag
	Value     uint64
	Exception bool
	ExcCause  insts.ExcCause
	FPFlags   insts.FPFlags

	IsBranch     bool
	Taken        bool
	Mispredicted bool
	Target       uint32
}

// BranchUpdate is the branch-resolution message. Mispredicted is authoritative
// from the branch unit; the reorder buffer never re-derives it.
type BranchUpdate struct {
	Valid        bool
	Tag          Tag
	Taken        bool
	Mispredicted bool
	Target       uint32
}

// CommitMessage is the reorder buffer's retirement output, consumed by the
// architectural register files, the store queue, and the recovery logic.
type CommitMessage struct {
	Valid bool
	Tag   Tag
	PC    uint32

	DestFile  RegFileKind
	DestReg   uint8
	DestValid bool
	Value     uint64

	IsStore   bool
	IsFPStore bool

	Exception bool
	ExcCause  insts.ExcCause
	FPFlags   insts.FPFlags

	Misprediction bool
	RedirectPC    uint32

	HasCheckpoint bool
	CheckpointID  uint8

	IsCSR    bool
	IsFence  bool
	IsFenceI bool
	IsWFI    bool
	IsMRET   bool
	IsAMO    bool
	IsLR     bool
	IsSC     bool
}
