package fu

import (
	"fmt"

	"github.com/rvlab/o3sim/timing/tomasulo"
)

// ResultQueueDepth is the capacity of the shared result queue of a
// PipelinedAdapter, and therefore also its admission credit limit.
const ResultQueueDepth = 4

// holdingDepth is the per-sub-unit holding buffer depth. Two entries are
// sufficient: a sub-unit receives at most one issue per cycle, and with total
// occupancy capped at ResultQueueDepth the drain arbiter can starve a
// sub-unit for at most one completion.
const holdingDepth = 2

type pipeSlot struct {
	flushed   bool
	remaining int
	rec       tomasulo.IssueRecord
}

// subUnit is one independently pipelined execution core inside a
// PipelinedAdapter, with its age-ordered in-flight queue and holding buffer.
type subUnit struct {
	unit     Unit
	inflight []pipeSlot
	holding  []tomasulo.Completion
}

// PipelinedAdapter multiplexes several fully pipelined sub-units of different
// latency and operation class behind one completion port.
//
// Each issued operation routes to exactly one sub-unit. Completions drain
// through per-sub-unit holding buffers into a shared result queue under fixed
// priority (sub-unit 0 highest). Admission is credit based: the adapter
// reports busy once in-flight plus queued occupancy reaches the shared
// queue's capacity, so no completion is ever dropped.
type PipelinedAdapter struct {
	subs      []*subUnit
	queue     []tomasulo.Completion
	occupancy int
}

// NewPipelinedAdapter creates an adapter over the given sub-unit cores.
// Earlier cores have higher drain priority.
func NewPipelinedAdapter(units ...Unit) *PipelinedAdapter {
	subs := make([]*subUnit, len(units))
	for i, u := range units {
		subs[i] = &subUnit{unit: u}
	}
	return &PipelinedAdapter{
		subs:  subs,
		queue: make([]tomasulo.Completion, 0, ResultQueueDepth),
	}
}

// Busy reports whether admission credit is exhausted.
func (a *PipelinedAdapter) Busy() bool {
	return a.occupancy >= ResultQueueDepth
}

// Occupancy returns the total in-flight plus queued operation count.
func (a *PipelinedAdapter) Occupancy() int {
	return a.occupancy
}

// Issue routes one operation to the sub-unit that executes its class.
func (a *PipelinedAdapter) Issue(rec tomasulo.IssueRecord) bool {
	if !rec.Valid || a.Busy() {
		return false
	}
	for _, s := range a.subs {
		if s.unit.Accepts(rec.Op) {
			s.inflight = append(s.inflight, pipeSlot{
				remaining: s.unit.Latency(),
				rec:       rec,
			})
			a.occupancy++
			return true
		}
	}
	return false
}

// Tick advances every sub-unit pipeline by one cycle, then drains at most one
// completion from the holding buffers into the shared result queue.
func (a *PipelinedAdapter) Tick() {
	for _, s := range a.subs {
		a.tickSubUnit(s)
	}
	a.drain()
}

func (a *PipelinedAdapter) tickSubUnit(s *subUnit) {
	for i := range s.inflight {
		s.inflight[i].remaining--
	}
	// Fixed latency keeps the in-flight queue age ordered; only the oldest
	// slot can complete in any cycle.
	if len(s.inflight) == 0 || s.inflight[0].remaining > 0 {
		return
	}
	slot := s.inflight[0]
	s.inflight = s.inflight[1:]

	if slot.flushed {
		a.occupancy--
		return
	}
	if len(s.holding) >= holdingDepth {
		panic(fmt.Sprintf("fu: holding buffer overflow for tag %d (credit violation)",
			slot.rec.Tag))
	}
	s.holding = append(s.holding, completionFor(slot.rec, s.unit.Eval(slot.rec)))
}

func (a *PipelinedAdapter) drain() {
	if len(a.queue) >= ResultQueueDepth {
		return
	}
	for _, s := range a.subs {
		if len(s.holding) > 0 {
			a.queue = append(a.queue, s.holding[0])
			s.holding = s.holding[1:]
			return
		}
	}
}

// Output returns the head of the shared result queue.
func (a *PipelinedAdapter) Output() tomasulo.Completion {
	if len(a.queue) == 0 {
		return tomasulo.Completion{}
	}
	return a.queue[0]
}

// Accept pops the head of the shared result queue.
func (a *PipelinedAdapter) Accept() {
	if len(a.queue) == 0 {
		return
	}
	a.queue = a.queue[1:]
	a.occupancy--
}

// Flush invalidates all in-flight and queued state unconditionally.
func (a *PipelinedAdapter) Flush() {
	for _, s := range a.subs {
		s.inflight = s.inflight[:0]
		s.holding = s.holding[:0]
	}
	a.queue = a.queue[:0]
	a.occupancy = 0
}

// FlushYounger invalidates every in-flight and queued operation younger than
// flushTag relative to head. In-flight slots keep draining through their
// pipeline with the flushed mark set; already-completed results are removed
// at their emission point.
func (a *PipelinedAdapter) FlushYounger(flushTag, head tomasulo.Tag) {
	for _, s := range a.subs {
		for i := range s.inflight {
			if !s.inflight[i].flushed &&
				tomasulo.YoungerThan(s.inflight[i].rec.Tag, flushTag, head) {
				s.inflight[i].flushed = true
			}
		}
		s.holding = a.dropYounger(s.holding, flushTag, head)
	}
	a.queue = a.dropYounger(a.queue, flushTag, head)
}

func (a *PipelinedAdapter) dropYounger(
	cs []tomasulo.Completion,
	flushTag, head tomasulo.Tag,
) []tomasulo.Completion {
	kept := cs[:0]
	for _, c := range cs {
		if tomasulo.YoungerThan(c.Tag, flushTag, head) {
			a.occupancy--
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
