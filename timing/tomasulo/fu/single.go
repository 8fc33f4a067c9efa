package fu

import (
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// SingleAdapter wraps a non-pipelined execution core. It accepts a new
// operation only when idle and holds its completion until the broadcast
// accepts it.
//
// A flush of the in-flight operation sets a flushed latch instead of aborting
// the core: the operation runs to completion internally and its result is
// silently dropped. Re-running an iterative core is more expensive than
// absorbing one dead result.
type SingleAdapter struct {
	unit Unit

	busy      bool
	flushed   bool
	remaining int
	rec       tomasulo.IssueRecord

	out tomasulo.Completion
}

// NewSingleAdapter creates an adapter around the given execution core.
func NewSingleAdapter(unit Unit) *SingleAdapter {
	return &SingleAdapter{unit: unit}
}

// Busy reports whether the adapter refuses new issues. The adapter stays busy
// from issue until its completion has been drained by the broadcast, so the
// one-deep result register can never be overwritten.
func (a *SingleAdapter) Busy() bool {
	return a.busy || a.out.Valid
}

// Issue hands one operation to the core.
func (a *SingleAdapter) Issue(rec tomasulo.IssueRecord) bool {
	if !rec.Valid || a.Busy() || !a.unit.Accepts(rec.Op) {
		return false
	}
	a.busy = true
	a.flushed = false
	a.remaining = a.unit.Latency()
	a.rec = rec
	return true
}

// Tick advances the core by one cycle. When the operation finishes, its
// result is latched for the broadcast unless the flushed latch is set.
func (a *SingleAdapter) Tick() {
	if !a.busy {
		return
	}
	a.remaining--
	if a.remaining > 0 {
		return
	}
	a.busy = false
	if a.flushed {
		a.flushed = false
		return
	}
	a.out = completionFor(a.rec, a.unit.Eval(a.rec))
}

// Output returns the held completion, if any.
func (a *SingleAdapter) Output() tomasulo.Completion {
	return a.out
}

// Accept drains the held completion.
func (a *SingleAdapter) Accept() {
	a.out = tomasulo.Completion{}
}

// Flush invalidates the in-flight operation and any held result.
func (a *SingleAdapter) Flush() {
	if a.busy {
		a.flushed = true
	}
	a.out = tomasulo.Completion{}
}

// FlushYounger invalidates the in-flight operation and any held result whose
// tag is younger than flushTag relative to head.
func (a *SingleAdapter) FlushYounger(flushTag, head tomasulo.Tag) {
	if a.busy && tomasulo.YoungerThan(a.rec.Tag, flushTag, head) {
		a.flushed = true
	}
	if a.out.Valid && tomasulo.YoungerThan(a.out.Tag, flushTag, head) {
		a.out = tomasulo.Completion{}
	}
}
