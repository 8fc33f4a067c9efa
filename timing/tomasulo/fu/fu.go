// Package fu provides the functional-unit adapters of the out-of-order
// backend.
//
// An adapter translates issued operation records into a specific execution
// core's inputs, tracks in-flight and flushed state, and surfaces at most one
// completion per cycle in the canonical Completion shape. Two adapter styles
// exist: SingleAdapter for non-pipelined fixed-latency cores (divider style),
// and PipelinedAdapter for fully pipelined cores multiplexing several
// sub-units of different latency behind a shared, credit-backed result queue.
package fu

import (
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// Result is an evaluated operation outcome before it is stamped with its tag.
type Result struct {
	Value     uint64
	Exception bool
	ExcCause  insts.ExcCause
	FPFlags   insts.FPFlags

	IsBranch     bool
	Taken        bool
	Mispredicted bool
	Target       uint32
}

// Unit is a functional-unit arithmetic core with a fixed latency.
//
// Units are purely combinational from the adapter's point of view: the
// adapter holds the issued record for the unit's latency and calls Eval once
// when the operation completes.
type Unit interface {
	// Latency returns the execution latency in cycles (at least 1).
	Latency() int

	// Accepts reports whether this core executes the given operation.
	Accepts(op insts.Op) bool

	// Eval computes the result for a completed operation.
	Eval(rec tomasulo.IssueRecord) Result
}

// Adapter is the common surface the completion broadcast arbitrates over.
type Adapter interface {
	// Busy reports whether the adapter refuses new issues this cycle.
	Busy() bool

	// Issue hands one operation to the adapter. It returns false when the
	// adapter is busy or the operation does not route to any of its cores.
	Issue(rec tomasulo.IssueRecord) bool

	// Tick advances the adapter's internal pipelines by one cycle.
	Tick()

	// Output returns the completion at the head of the adapter's internal
	// completion order, or an invalid completion if none is ready.
	Output() tomasulo.Completion

	// Accept acknowledges that Output was taken by the broadcast this cycle.
	Accept()

	// Flush invalidates all in-flight state unconditionally.
	Flush()

	// FlushYounger marks every in-flight and queued operation younger than
	// flushTag (relative to head) as flushed; flushed operations are never
	// emitted.
	FlushYounger(flushTag, head tomasulo.Tag)
}

func completionFor(rec tomasulo.IssueRecord, res Result) tomasulo.Completion {
	return tomasulo.Completion{
		Valid:     true,
		Tag:       rec.Tag,
		Value:     res.Value,
		Exception: res.Exception,
		ExcCause:  res.ExcCause,
		FPFlags:   res.FPFlags,

		IsBranch:     res.IsBranch,
		Taken:        res.Taken,
		Mispredicted: res.Mispredicted,
		Target:       res.Target,
	}
}
