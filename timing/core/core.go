// Package core composes the out-of-order backend: reorder buffer, register
// alias table, reservation stations, functional units, and the completion
// broadcast, together with the architectural state they retire into.
//
// The core is trace driven. Decoded instructions are fed into a dispatch
// queue and the backend executes them out of order, retiring in order
// through the reorder buffer. Each Tick models one cycle: functional units
// advance, one completion wins the bus, one instruction dispatches, each
// station may issue, and the head of the reorder buffer may commit.
package core

import (
	"fmt"

	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/cache"
	"github.com/rvlab/o3sim/timing/latency"
	"github.com/rvlab/o3sim/timing/tomasulo"
	"github.com/rvlab/o3sim/timing/tomasulo/cdb"
	"github.com/rvlab/o3sim/timing/tomasulo/fu"
	"github.com/rvlab/o3sim/timing/tomasulo/rat"
	"github.com/rvlab/o3sim/timing/tomasulo/rob"
	"github.com/rvlab/o3sim/timing/tomasulo/rs"
)

// Reservation station depths, per station class.
const (
	intRSDepth  = 8
	mulRSDepth  = 4
	memRSDepth  = 8
	fpRSDepth   = 6
	fmulRSDepth = 4
	fdivRSDepth = 2
)

// redirectPenalty is the number of cycles dispatch stays dark after a
// flush while the frontend refetches.
const redirectPenalty = 2

// Stats holds performance counters for the core.
type Stats struct {
	Cycles     uint64
	Dispatched uint64
	Issued     uint64
	Broadcasts uint64
	Commits    uint64

	Redirects      uint64
	Traps          uint64
	FullFlushes    uint64
	PartialFlushes uint64

	StallROBFull      uint64
	StallRSFull       uint64
	StallNoCheckpoint uint64
}

type csrAccess struct {
	op   insts.Op
	addr uint16
}

// Core is the composed out-of-order backend.
type Core struct {
	regs   *emu.RegFile
	memory *emu.Memory
	csr    *CSRFile
	sq     StoreQueue
	icache *cache.Cache
	ras    RAS

	rob      *rob.ROB
	rat      *rat.Table
	stations map[int]*rs.Station
	arbiter  *cdb.Arbiter

	queue []Instruction

	// inflight keeps the dispatched form of every live entry so a flush can
	// put the instructions back on the queue. The trace is the correct path;
	// a flush only costs their re-dispatch.
	inflight map[tomasulo.Tag]Instruction

	// refetchDelay keeps dispatch dark after a redirect.
	refetchDelay int

	// Per-tag CSR access info; the reorder buffer only carries the operand.
	csrInfo map[tomasulo.Tag]csrAccess

	// Serializing handshake latches.
	csrDone      bool
	csrReadValue uint32
	mretDone     bool
	mretTarget   uint32
	trapTaken    bool
	trapVector   uint32

	interruptPending bool

	redirectValid bool
	redirectPC    uint32

	stats Stats
}

// NewCore creates a core with default timing over the given architectural
// state.
func NewCore(regs *emu.RegFile, memory *emu.Memory) *Core {
	return NewCoreWithConfig(regs, memory, latency.DefaultTimingConfig())
}

// NewCoreWithConfig creates a core with custom functional-unit timing.
func NewCoreWithConfig(
	regs *emu.RegFile,
	memory *emu.Memory,
	timing *latency.TimingConfig,
) *Core {
	c := &Core{
		regs:     regs,
		memory:   memory,
		csr:      NewCSRFile(),
		sq:       NewMemStoreQueue(memory),
		rob:      rob.New(),
		rat:      rat.New(),
		arbiter:  cdb.NewArbiter(),
		inflight: make(map[tomasulo.Tag]Instruction),
		csrInfo:  make(map[tomasulo.Tag]csrAccess),
	}

	c.stations = map[int]*rs.Station{
		stationInt:  rs.New("int", intRSDepth),
		stationMul:  rs.New("mul", mulRSDepth),
		stationMem:  rs.New("mem", memRSDepth),
		stationFP:   rs.New("fp", fpRSDepth),
		stationFMul: rs.New("fmul", fmulRSDepth),
		stationFDiv: rs.New("fdiv", fdivRSDepth),
	}

	loadHook := func(addr uint32, size uint8, signed bool) uint64 {
		if c.memory == nil {
			return 0
		}
		return c.memory.Load(addr, size, signed)
	}

	c.arbiter.Attach(cdb.KindALU,
		fu.NewSingleAdapter(&fu.IntALUUnit{Lat: timing.ALULatency}))
	c.arbiter.Attach(cdb.KindMUL,
		fu.NewPipelinedAdapter(&fu.IntMulUnit{Lat: timing.MulLatency}))
	c.arbiter.Attach(cdb.KindDIV,
		fu.NewSingleAdapter(&fu.IntDivUnit{Lat: timing.DivLatency}))
	c.arbiter.Attach(cdb.KindMEM,
		fu.NewSingleAdapter(&fu.MemUnit{Lat: timing.MemLatency, Load: loadHook}))
	c.arbiter.Attach(cdb.KindFPADD, fu.NewPipelinedAdapter(
		&fu.FPAddSubUnit{Lat: timing.FPAddLatency},
		&fu.FPMinMaxUnit{Lat: timing.FPMinMaxLatency},
		&fu.FPCvtUnit{Lat: timing.FPCvtLatency},
		&fu.FPSgnjUnit{Lat: timing.FPSgnjLatency},
	))
	c.arbiter.Attach(cdb.KindFMUL, fu.NewPipelinedAdapter(
		&fu.FPMulUnit{Lat: timing.FPMulLatency},
		&fu.FMAUnit{Lat: timing.FMALatency},
	))
	c.arbiter.Attach(cdb.KindFDIV,
		fu.NewSingleAdapter(&fu.FPDivUnit{Lat: timing.FPDivLatency}))

	return c
}

// SetICache attaches an instruction cache. Dispatch touches it per
// instruction and a committing FENCE.I invalidates it.
func (c *Core) SetICache(ic *cache.Cache) {
	c.icache = ic
}

// SetStoreQueue replaces the default store queue.
func (c *Core) SetStoreQueue(sq StoreQueue) {
	c.sq = sq
}

// SetInterrupt raises or clears the external interrupt line.
func (c *Core) SetInterrupt(pending bool) {
	c.interruptPending = pending
}

// CSR returns the control and status register file.
func (c *Core) CSR() *CSRFile {
	return c.csr
}

// Stats returns a copy of the performance counters.
func (c *Core) Stats() Stats {
	return c.stats
}

// ROBStats returns the reorder buffer's own counters.
func (c *Core) ROBStats() rob.Stats {
	return c.rob.Stats()
}

// ArbiterGrants returns how often a functional-unit port won the bus.
func (c *Core) ArbiterGrants(kind cdb.FUKind) uint64 {
	return c.arbiter.Grants(kind)
}

// Feed appends decoded instructions to the dispatch queue.
func (c *Core) Feed(instructions ...Instruction) {
	c.queue = append(c.queue, instructions...)
}

// Pending returns the number of instructions not yet dispatched.
func (c *Core) Pending() int {
	return len(c.queue)
}

// Done reports whether the backend has drained completely.
func (c *Core) Done() bool {
	return len(c.queue) == 0 && c.rob.Empty() && c.sq.Empty()
}

// Redirect returns the most recent commit-time redirect, if one happened,
// and clears it.
func (c *Core) Redirect() (uint32, bool) {
	if !c.redirectValid {
		return 0, false
	}
	c.redirectValid = false
	return c.redirectPC, true
}

// Tick advances the core by one cycle.
func (c *Core) Tick() {
	c.stats.Cycles++
	c.rob.BeginCycle()

	for kind := cdb.FUKind(0); kind < cdb.NumKinds; kind++ {
		c.arbiter.Source(kind).Tick()
	}

	bc := c.arbiter.Arbitrate()
	if bc.Valid {
		c.broadcast(bc)
	}

	c.dispatch(bc.Completion)
	c.issue()
	c.serviceSerialization()
	c.commit()
	c.sq.Tick()
}

// Run ticks the core until it drains or the cycle budget runs out. It
// returns true when the backend drained.
func (c *Core) Run(maxCycles uint64) bool {
	for i := uint64(0); i < maxCycles; i++ {
		if c.Done() {
			return true
		}
		c.Tick()
	}
	return c.Done()
}

// broadcast applies one completion to the reorder buffer and wakes every
// station. Completions for flushed slots are dropped.
func (c *Core) broadcast(bc cdb.Broadcast) {
	c.stats.Broadcasts++

	for _, station := range c.stations {
		station.Snoop(bc.Completion)
	}

	entry := c.rob.Entry(bc.Tag)
	if !entry.Valid {
		return
	}
	if !entry.Done {
		c.rob.Apply(bc.Completion)
	}
	if bc.IsBranch {
		c.rob.ApplyBranch(tomasulo.BranchUpdate{
			Valid:        true,
			Tag:          bc.Tag,
			Taken:        bc.Taken,
			Mispredicted: bc.Mispredicted,
			Target:       bc.Target,
		})
		if bc.Mispredicted {
			c.recover(bc.Tag)
		}
	}
}

// dispatch moves at most one instruction from the queue into the backend.
func (c *Core) dispatch(bypass tomasulo.Completion) {
	if c.refetchDelay > 0 {
		c.refetchDelay--
		return
	}
	if len(c.queue) == 0 {
		return
	}
	in := &c.queue[0]

	if !c.rob.CanAllocate() {
		c.stats.StallROBFull++
		return
	}

	stationClass := stationFor(in.Op)
	var station *rs.Station
	if stationClass != stationNone {
		station = c.stations[stationClass]
		if station.Full() {
			c.stats.StallRSFull++
			return
		}
	}

	needsCheckpoint := in.isBranch() && in.Op != insts.OpJAL
	var checkpointID uint8
	if needsCheckpoint {
		id, ok := c.rat.Available()
		if !ok {
			c.stats.StallNoCheckpoint++
			return
		}
		checkpointID = id
	}

	if c.icache != nil {
		c.icache.Fetch(in.PC)
	}

	// Return prediction comes from the RAS; the stack action itself is
	// replayed on recovery, so the checkpoint saves the pre-action position.
	rasTOS, rasCount := c.ras.Position()
	if in.IsReturn {
		if target, ok := c.ras.Pop(); ok {
			in.PredictedTarget = target
			in.PredictedTaken = true
		}
	} else if in.IsCall {
		c.ras.Push(in.PC + 4)
	}

	tag, ok := c.rob.Allocate(in.allocRequest())
	if !ok {
		return
	}

	switch in.Op {
	case insts.OpECALL:
		c.rob.Apply(tomasulo.Completion{
			Valid: true, Tag: tag,
			Exception: true, ExcCause: insts.ExcEnvCallM,
		})
	case insts.OpEBREAK:
		c.rob.Apply(tomasulo.Completion{
			Valid: true, Tag: tag,
			Exception: true, ExcCause: insts.ExcBreakpoint,
		})
	case insts.OpCSRRW, insts.OpCSRRS, insts.OpCSRRC:
		c.csrInfo[tag] = csrAccess{op: in.Op, addr: in.CSRAddr}
	}

	if station != nil {
		rec := c.buildDispatchRecord(in, tag)
		if _, ok := station.Dispatch(rec, bypass); !ok {
			panic(fmt.Sprintf("core: station %s full after check", station.Name()))
		}
	}

	destFile, destValid := in.destInfo()
	if destValid {
		c.rat.Rename(destFile, in.Rd, tag)
	}

	if needsCheckpoint {
		c.rat.Save(checkpointID, tag, rasTOS, rasCount)
		c.rob.SetCheckpoint(tag, checkpointID)
	}

	c.inflight[tag] = *in
	c.queue = c.queue[1:]
	c.stats.Dispatched++
}

// requeue walks live slots from firstTag to the tail and puts their
// instructions back at the front of the dispatch queue, in program order.
func (c *Core) requeue(firstTag tomasulo.Tag) {
	var replay []Instruction
	for idx := firstTag & tomasulo.TagMask; idx != c.rob.TailTag(); idx = (idx + 1) & tomasulo.TagMask {
		if in, ok := c.inflight[idx]; ok {
			replay = append(replay, in)
			delete(c.inflight, idx)
		}
	}
	if len(replay) > 0 {
		c.queue = append(replay, c.queue...)
	}
}

// buildDispatchRecord resolves source operands through the alias table and
// the reorder buffer.
func (c *Core) buildDispatchRecord(in *Instruction, tag tomasulo.Tag) rs.DispatchRecord {
	k1, k2, k3 := in.srcKinds()

	return rs.DispatchRecord{
		Tag: tag,
		Op:  in.Op,

		Src1: c.resolveOperand(k1, in.Rs1),
		Src2: c.resolveOperand(k2, in.Rs2),
		Src3: c.resolveOperand(k3, in.Rs3),

		Imm:    in.Imm,
		UseImm: in.UseImm,
		RM:     in.RM,

		BranchTarget:    in.BranchTarget,
		PredictedTaken:  in.PredictedTaken,
		PredictedTarget: in.PredictedTarget,

		IsFPMem:   in.FPMem,
		MemSize:   in.MemSize,
		MemSigned: in.MemSigned,

		CSRAddr: in.CSRAddr,
		CSRImm:  in.CSRImm,
		PC:      in.PC,
	}
}

func (c *Core) resolveOperand(kind srcKind, reg uint8) rs.Operand {
	var lookup rat.Lookup
	switch kind {
	case srcNone:
		return rs.ReadyOperand(0)
	case srcInt:
		lookup = c.rat.LookupInt(reg, c.regs.ReadInt(reg))
	case srcFP:
		lookup = c.rat.LookupFP(reg, c.regs.ReadFP(reg))
	}

	if !lookup.Renamed {
		return rs.ReadyOperand(lookup.Value)
	}

	// A done producer's value is read straight out of its buffer slot.
	if entry := c.rob.Entry(lookup.Tag); entry.Valid && entry.Done {
		return rs.ReadyOperand(entry.Value)
	}
	return rs.PendingOperand(lookup.Tag)
}

// issue moves at most one ready instruction per station into its functional
// unit.
func (c *Core) issue() {
	for _, class := range []int{
		stationInt, stationMul, stationMem, stationFP, stationFMul, stationFDiv,
	} {
		station := c.stations[class]
		idx, rec, ok := station.PeekIssue()
		if !ok {
			continue
		}

		adapter := c.arbiter.Source(kindFor(rec.Op))
		if adapter.Busy() || !adapter.Issue(rec) {
			continue
		}
		station.ConsumeIssue(idx)
		c.stats.Issued++

		// Stores hand their address and data to the store queue at issue;
		// the functional unit only models timing and alignment.
		switch rec.Op {
		case insts.OpSTORE, insts.OpSC, insts.OpAMO:
			addr := uint32(rec.Src1) + rec.Imm
			c.sq.Enqueue(rec.Tag, addr, rec.MemSize, rec.Src2)
		}
	}
}

// kindFor maps an operation to its completion bus port.
func kindFor(op insts.Op) cdb.FUKind {
	switch {
	case op.IsMul():
		return cdb.KindMUL
	case op.IsDiv():
		return cdb.KindDIV
	case op.IsMem():
		return cdb.KindMEM
	case op.IsFPAddClass():
		return cdb.KindFPADD
	case op.IsFPMulClass():
		return cdb.KindFMUL
	case op.IsFPDivClass():
		return cdb.KindFDIV
	}
	return cdb.KindALU
}

// serviceSerialization performs the commit-time work the serializing state
// machine is waiting on, one handshake per state.
func (c *Core) serviceSerialization() {
	switch c.rob.State() {
	case rob.StateCSRExec:
		if c.csrDone {
			return
		}
		head := c.rob.Entry(c.rob.HeadTag())
		info, ok := c.csrInfo[c.rob.HeadTag()]
		if !ok {
			panic(fmt.Sprintf("core: csr commit without access info for tag %d",
				c.rob.HeadTag()))
		}
		c.csrReadValue = c.csr.Execute(info.op, info.addr, uint32(head.Value))
		c.csrDone = true

	case rob.StateMRETExec:
		if c.mretDone {
			return
		}
		c.mretTarget = c.csr.Return()
		c.mretDone = true

	case rob.StateTrapWait:
		if c.trapTaken {
			return
		}
		head := c.rob.Entry(c.rob.HeadTag())
		c.trapVector = c.csr.TakeTrap(head.PC, head.ExcCause, false)
		c.trapTaken = true
	}
}

// commit retires at most one instruction and applies its architectural
// effects.
func (c *Core) commit() {
	msg := c.rob.TryCommit(rob.CommitInputs{
		StoreQueueEmpty:  c.sq.Empty(),
		CSRDone:          c.csrDone,
		MRETDone:         c.mretDone,
		TrapTaken:        c.trapTaken,
		InterruptPending: c.interruptPending,
	})
	if !msg.Valid {
		return
	}
	c.stats.Commits++
	delete(c.inflight, msg.Tag)

	if msg.DestValid && !msg.Exception {
		value := msg.Value
		if msg.IsCSR {
			value = uint64(c.csrReadValue)
		}
		if msg.DestFile == tomasulo.RegFileInt {
			c.regs.WriteInt(msg.DestReg, uint32(value))
		} else {
			c.regs.WriteFP(msg.DestReg, value)
		}
	}
	c.csr.AccumulateFlags(msg.FPFlags)

	if msg.DestValid {
		c.rat.CommitClear(msg.DestFile, msg.DestReg, msg.Tag)
	}
	// A faulting store never becomes architectural; its queue entry stays
	// speculative so the trap flush drops it.
	if (msg.IsStore || msg.IsFPStore || msg.IsAMO || msg.IsSC) && !msg.Exception {
		c.sq.Commit(msg.Tag)
	}
	if msg.HasCheckpoint {
		c.rat.Free(msg.CheckpointID)
	}
	if msg.IsCSR {
		delete(c.csrInfo, msg.Tag)
		c.csrDone = false
	}

	switch {
	case msg.Exception:
		c.trapTaken = false
		c.stats.Traps++
		c.flushAll()
		c.redirect(c.trapVector)

	case msg.IsMRET:
		c.mretDone = false
		c.flushAll()
		c.redirect(c.mretTarget)

	case msg.IsFenceI:
		if c.icache != nil {
			c.icache.InvalidateAll()
		}

	case msg.Misprediction:
		// Recovery already ran at resolution; the commit message carries
		// the redirect for the frontend.
		c.redirect(msg.RedirectPC)
	}
}

func (c *Core) redirect(pc uint32) {
	c.redirectValid = true
	c.redirectPC = pc
	c.stats.Redirects++
}

// recover performs misprediction recovery at branch resolution: every
// younger instruction is flushed from the buffer, the stations, the
// functional units, and the store queue, and the rename state rewinds to the
// branch's checkpoint.
func (c *Core) recover(flushTag tomasulo.Tag) {
	head := c.rob.HeadTag()
	entry := c.rob.Entry(flushTag)

	c.requeue((flushTag + 1) & tomasulo.TagMask)
	c.rob.FlushYounger(flushTag)
	for _, station := range c.stations {
		station.FlushYounger(flushTag, head)
	}
	for kind := cdb.FUKind(0); kind < cdb.NumKinds; kind++ {
		c.arbiter.Source(kind).FlushYounger(flushTag, head)
	}
	c.sq.FlushYounger(flushTag, head)

	for tag := range c.csrInfo {
		if tomasulo.YoungerThan(tag, flushTag, head) {
			delete(c.csrInfo, tag)
		}
	}

	if !entry.HasCheckpoint {
		panic(fmt.Sprintf("core: misprediction recovery without checkpoint for tag %d",
			flushTag))
	}
	tos, count := c.rat.Restore(entry.CheckpointID)
	c.ras.Restore(tos, count)

	// The branch's own stack action happened after the snapshot and
	// survives the flush, so it is replayed here.
	if entry.IsReturn {
		c.ras.Pop()
	} else if entry.IsCall {
		c.ras.Push(entry.PC + 4)
	}

	for id := uint8(0); id < rat.NumCheckpoints; id++ {
		if branchTag, ok := c.rat.CheckpointBranch(id); ok &&
			tomasulo.YoungerThan(branchTag, flushTag, head) {
			c.rat.Free(id)
		}
	}

	c.refetchDelay = redirectPenalty
	c.stats.PartialFlushes++
}

// flushAll clears every speculative structure. Committed stores keep
// draining; architectural state is untouched.
func (c *Core) flushAll() {
	c.requeue(c.rob.HeadTag())
	c.rob.FlushAll()
	for _, station := range c.stations {
		station.FlushAll()
	}
	for kind := cdb.FUKind(0); kind < cdb.NumKinds; kind++ {
		c.arbiter.Source(kind).Flush()
	}
	c.sq.FlushAll()
	c.rat.FlushAll()
	c.csrInfo = make(map[tomasulo.Tag]csrAccess)
	c.csrDone = false
	c.mretDone = false

	c.refetchDelay = redirectPenalty
	c.stats.FullFlushes++
}
