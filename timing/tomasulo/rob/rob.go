// Package rob implements the reorder buffer: the in-order retirement window
// of the out-of-order backend.
//
// The buffer is circular with head and tail pointers carrying one wrap bit.
// Entries are allocated at the tail in program order, marked done by
// completion broadcasts and branch updates in any order, and committed from
// the head strictly in order. A serializing state machine gates the commit of
// CSR accesses, fences, atomics, WFI, MRET, and trapping instructions on
// external handshakes.
package rob

import (
	"fmt"

	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// State is the serializing commit state.
type State uint8

// Serializing commit states.
const (
	// StateIdle commits freely.
	StateIdle State = iota

	// StateWaitSQ holds a fence or atomic until the store queue drains.
	StateWaitSQ

	// StateCSRExec holds a CSR access until the CSR unit reports done.
	StateCSRExec

	// StateMRETExec holds an MRET until the trap-return handshake completes.
	StateMRETExec

	// StateWFIWait holds a WFI until an interrupt is pending.
	StateWFIWait

	// StateTrapWait holds an excepting instruction until the trap is taken.
	StateTrapWait
)

var stateNames = map[State]string{
	StateIdle:     "idle",
	StateWaitSQ:   "wait-sq",
	StateCSRExec:  "csr-exec",
	StateMRETExec: "mret-exec",
	StateWFIWait:  "wfi-wait",
	StateTrapWait: "trap-wait",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}

// Entry is one reorder-buffer slot.
type Entry struct {
	Valid     bool
	Done      bool
	Exception bool
	ExcCause  insts.ExcCause

	PC uint32

	DestFile  tomasulo.RegFileKind
	DestReg   uint8
	DestValid bool

	Value uint64

	IsStore   bool
	IsFPStore bool

	IsBranch        bool
	BranchTaken     bool
	BranchTarget    uint32
	PredictedTaken  bool
	PredictedTarget uint32
	Mispredicted    bool
	IsCall          bool
	IsReturn        bool
	IsJAL           bool
	IsJALR          bool

	HasCheckpoint bool
	CheckpointID  uint8

	FPFlags insts.FPFlags

	IsCSR    bool
	IsFence  bool
	IsFenceI bool
	IsWFI    bool
	IsMRET   bool
	IsAMO    bool
	IsLR     bool
	IsSC     bool
}

// CommitInputs carries the external handshakes sampled by the serializing
// state machine each commit attempt.
type CommitInputs struct {
	StoreQueueEmpty  bool
	CSRDone          bool
	MRETDone         bool
	TrapTaken        bool
	InterruptPending bool
}

// Stats counts reorder-buffer activity.
type Stats struct {
	Allocations    uint64
	Commits        uint64
	Flushes        uint64
	Mispredictions uint64
}

// ROB is the reorder buffer.
type ROB struct {
	entries [tomasulo.NumEntries]Entry

	// head and tail are pointers modulo 2N; the extra wrap bit tells a full
	// buffer from an empty one.
	head uint8
	tail uint8

	state State

	// written marks slots that took a completion this cycle. Two broadcasts
	// to the same slot in one cycle is a bus arbitration failure.
	written uint32

	stats Stats
}

// New creates an empty reorder buffer.
func New() *ROB {
	return &ROB{}
}

// Reset returns the buffer to its initial state.
func (r *ROB) Reset() {
	*r = ROB{}
}

// HeadTag returns the slot index of the oldest entry.
func (r *ROB) HeadTag() tomasulo.Tag {
	return tomasulo.Tag(r.head & tomasulo.TagMask)
}

// TailTag returns the slot index the next allocation will use.
func (r *ROB) TailTag() tomasulo.Tag {
	return tomasulo.Tag(r.tail & tomasulo.TagMask)
}

// Full reports whether the buffer has no free slot.
func (r *ROB) Full() bool {
	return (r.tail^r.head)&(tomasulo.PtrWrap-1) == tomasulo.NumEntries
}

// Empty reports whether the buffer holds no entries.
func (r *ROB) Empty() bool {
	return r.tail == r.head
}

// Count returns the number of live entries.
func (r *ROB) Count() int {
	return int((r.tail - r.head + tomasulo.PtrWrap) % tomasulo.PtrWrap)
}

// State returns the serializing commit state.
func (r *ROB) State() State {
	return r.state
}

// Stats returns a copy of the activity counters.
func (r *ROB) Stats() Stats {
	return r.stats
}

// Entry returns a copy of the slot for the given tag.
func (r *ROB) Entry(tag tomasulo.Tag) Entry {
	return r.entries[tag&tomasulo.TagMask]
}

// CanAllocate reports whether an allocation would succeed.
func (r *ROB) CanAllocate() bool {
	return !r.Full()
}

// Allocate claims the tail slot for a dispatched instruction and returns its
// tag. Unconditional jumps and the serializing no-result instructions (WFI,
// FENCE, FENCE.I, MRET) are done at allocation; JALR records its link value
// but stays pending until the branch unit resolves its target.
func (r *ROB) Allocate(req tomasulo.AllocRequest) (tomasulo.Tag, bool) {
	if r.Full() {
		return 0, false
	}

	tag := r.TailTag()
	e := &r.entries[tag]
	*e = Entry{
		Valid:           true,
		PC:              req.PC,
		DestFile:        req.DestFile,
		DestReg:         req.DestReg,
		DestValid:       req.DestValid,
		IsStore:         req.IsStore,
		IsFPStore:       req.IsFPStore,
		IsBranch:        req.IsBranch,
		PredictedTaken:  req.PredictedTaken,
		PredictedTarget: req.PredictedTarget,
		IsCall:          req.IsCall,
		IsReturn:        req.IsReturn,
		IsJAL:           req.IsJAL,
		IsJALR:          req.IsJALR,
		IsCSR:           req.IsCSR,
		IsFence:         req.IsFence,
		IsFenceI:        req.IsFenceI,
		IsWFI:           req.IsWFI,
		IsMRET:          req.IsMRET,
		IsAMO:           req.IsAMO,
		IsLR:            req.IsLR,
		IsSC:            req.IsSC,
	}

	switch {
	case req.IsJAL:
		e.Done = true
		e.Value = req.LinkAddr
	case req.IsJALR:
		e.Value = req.LinkAddr
	}
	if req.IsWFI || req.IsFence || req.IsFenceI || req.IsMRET {
		e.Done = true
	}

	r.tail = (r.tail + 1) % tomasulo.PtrWrap
	r.stats.Allocations++
	return tag, true
}

// SetCheckpoint records the rename checkpoint taken for a branch entry.
func (r *ROB) SetCheckpoint(tag tomasulo.Tag, checkpointID uint8) {
	e := &r.entries[tag&tomasulo.TagMask]
	if !e.Valid {
		return
	}
	e.HasCheckpoint = true
	e.CheckpointID = checkpointID
}

// BeginCycle clears the per-cycle write tracking. Call once per simulated
// cycle before applying broadcasts.
func (r *ROB) BeginCycle() {
	r.written = 0
}

// Apply marks an entry done with its broadcast result. Applying to an
// invalid or already-done entry, or twice to the same slot in one cycle, is a
// protocol violation.
func (r *ROB) Apply(c tomasulo.Completion) {
	if !c.Valid {
		return
	}
	idx := c.Tag & tomasulo.TagMask
	e := &r.entries[idx]

	if !e.Valid {
		panic(fmt.Sprintf("rob: completion for invalid entry %d", c.Tag))
	}
	if r.written&(1<<idx) != 0 {
		panic(fmt.Sprintf("rob: two completions for entry %d in one cycle", c.Tag))
	}
	if e.Done {
		panic(fmt.Sprintf("rob: completion for already-done entry %d", c.Tag))
	}
	r.written |= 1 << idx

	e.Done = true
	e.Exception = c.Exception
	e.ExcCause = c.ExcCause
	e.FPFlags = c.FPFlags
	// JALR keeps its link value from allocation.
	if !e.IsJALR {
		e.Value = c.Value
	}
}

// ApplyBranch records a branch resolution. The Mispredicted flag is
// authoritative from the branch unit. A JAL entry is already done from
// allocation and only absorbs the update; any other target must be a pending
// branch entry.
func (r *ROB) ApplyBranch(u tomasulo.BranchUpdate) {
	if !u.Valid {
		return
	}
	e := &r.entries[u.Tag&tomasulo.TagMask]

	if !e.Valid {
		panic(fmt.Sprintf("rob: branch update for invalid entry %d", u.Tag))
	}
	if !e.IsBranch {
		panic(fmt.Sprintf("rob: branch update for non-branch entry %d", u.Tag))
	}

	e.BranchTaken = u.Taken
	e.BranchTarget = u.Target
	e.Mispredicted = u.Mispredicted

	if !e.IsJAL {
		e.Done = true
	}
	if u.Mispredicted {
		r.stats.Mispredictions++
	}
}

// serialStall advances the serializing state machine for the head entry and
// reports whether commit must stall this cycle.
func (r *ROB) serialStall(e *Entry, in CommitInputs) bool {
	switch r.state {
	case StateIdle:
		switch {
		case e.Exception:
			r.state = StateTrapWait
			return true
		case e.IsWFI:
			if !in.InterruptPending {
				r.state = StateWFIWait
				return true
			}
		case e.IsCSR:
			r.state = StateCSRExec
			return true
		case e.IsFence || e.IsFenceI || e.IsAMO || e.IsLR || e.IsSC:
			if !in.StoreQueueEmpty {
				r.state = StateWaitSQ
				return true
			}
		case e.IsMRET:
			r.state = StateMRETExec
			return true
		}

	case StateWaitSQ:
		if !in.StoreQueueEmpty {
			return true
		}
		r.state = StateIdle

	case StateCSRExec:
		if !in.CSRDone {
			return true
		}
		r.state = StateIdle

	case StateMRETExec:
		if !in.MRETDone {
			return true
		}
		r.state = StateIdle

	case StateWFIWait:
		if !in.InterruptPending {
			return true
		}
		r.state = StateIdle

	case StateTrapWait:
		if !in.TrapTaken {
			return true
		}
		r.state = StateIdle
	}

	return false
}

// TryCommit retires the head entry if it is done and not gated by the
// serializing state machine. It returns an invalid message when nothing
// commits this cycle.
func (r *ROB) TryCommit(in CommitInputs) tomasulo.CommitMessage {
	if r.Empty() {
		return tomasulo.CommitMessage{}
	}

	e := &r.entries[r.HeadTag()]
	if !e.Valid || !e.Done {
		return tomasulo.CommitMessage{}
	}
	if r.serialStall(e, in) {
		return tomasulo.CommitMessage{}
	}

	misprediction := e.IsBranch && e.Mispredicted
	var redirect uint32
	if misprediction {
		if e.BranchTaken {
			redirect = e.BranchTarget
		} else {
			redirect = e.PC + 4
		}
	}

	msg := tomasulo.CommitMessage{
		Valid: true,
		Tag:   r.HeadTag(),
		PC:    e.PC,

		DestFile:  e.DestFile,
		DestReg:   e.DestReg,
		DestValid: e.DestValid,
		Value:     e.Value,

		IsStore:   e.IsStore,
		IsFPStore: e.IsFPStore,

		Exception: e.Exception,
		ExcCause:  e.ExcCause,
		FPFlags:   e.FPFlags,

		Misprediction: misprediction,
		RedirectPC:    redirect,

		HasCheckpoint: e.HasCheckpoint,
		CheckpointID:  e.CheckpointID,

		IsCSR:    e.IsCSR,
		IsFence:  e.IsFence,
		IsFenceI: e.IsFenceI,
		IsWFI:    e.IsWFI,
		IsMRET:   e.IsMRET,
		IsAMO:    e.IsAMO,
		IsLR:     e.IsLR,
		IsSC:     e.IsSC,
	}

	e.Valid = false
	r.head = (r.head + 1) % tomasulo.PtrWrap
	r.stats.Commits++
	return msg
}

// FlushYounger invalidates every entry younger than flushTag and resets the
// tail to the slot after it. The flushed entry itself survives; it is the
// mispredicted branch being recovered past. Returns the number of entries
// dropped.
func (r *ROB) FlushYounger(flushTag tomasulo.Tag) int {
	flushed := 0

	idx := (flushTag + 1) & tomasulo.TagMask
	for idx != r.TailTag() {
		if r.entries[idx].Valid {
			r.entries[idx].Valid = false
			flushed++
		}
		idx = (idx + 1) & tomasulo.TagMask
	}

	age := tomasulo.Age(flushTag, r.HeadTag())
	r.tail = (r.head + uint8(age) + 1) % tomasulo.PtrWrap

	r.stats.Flushes++
	return flushed
}

// FlushAll invalidates every entry, resets the tail to the head, and returns
// the serializing state machine to idle. Returns the number of entries
// dropped.
func (r *ROB) FlushAll() int {
	flushed := 0
	for i := range r.entries {
		if r.entries[i].Valid {
			r.entries[i].Valid = false
			flushed++
		}
	}

	r.tail = r.head
	r.state = StateIdle

	r.stats.Flushes++
	return flushed
}
