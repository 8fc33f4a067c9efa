package fu

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

func fpRec(tag tomasulo.Tag, op insts.Op, a, b float32) tomasulo.IssueRecord {
	return tomasulo.IssueRecord{
		Valid: true,
		Tag:   tag,
		Op:    op,
		Src1:  emu.NaNBox(math.Float32bits(a)),
		Src2:  emu.NaNBox(math.Float32bits(b)),
	}
}

var _ = Describe("PipelinedAdapter", func() {
	var adapter *PipelinedAdapter

	BeforeEach(func() {
		adapter = NewPipelinedAdapter(
			&FPAddSubUnit{Lat: 3},
			&FPMinMaxUnit{Lat: 1},
		)
	})

	It("should route to the sub-unit that executes the operation", func() {
		Expect(adapter.Issue(fpRec(1, insts.OpFADDS, 1.5, 2.25))).To(BeTrue())
		Expect(adapter.Issue(fpRec(2, insts.OpFMINS, 1.0, 2.0))).To(BeTrue())

		rec := fpRec(3, insts.OpFDIVS, 1.0, 2.0)
		Expect(adapter.Issue(rec)).To(BeFalse())
	})

	It("should complete after the sub-unit latency", func() {
		adapter.Issue(fpRec(1, insts.OpFADDS, 1.5, 2.25))

		adapter.Tick()
		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeFalse())

		adapter.Tick()
		out := adapter.Output()
		Expect(out.Valid).To(BeTrue())
		Expect(out.Tag).To(Equal(tomasulo.Tag(1)))
		Expect(out.Value).To(Equal(emu.NaNBox(math.Float32bits(3.75))))
	})

	It("should accept a new operation every cycle into one sub-unit", func() {
		adapter.Issue(fpRec(1, insts.OpFADDS, 1, 1))
		adapter.Tick()
		Expect(adapter.Issue(fpRec(2, insts.OpFADDS, 2, 2))).To(BeTrue())
		adapter.Tick()
		Expect(adapter.Issue(fpRec(3, insts.OpFADDS, 3, 3))).To(BeTrue())

		adapter.Tick()
		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(1)))
		adapter.Accept()
		adapter.Tick()
		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(2)))
		adapter.Accept()
		adapter.Tick()
		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(3)))
	})

	It("should drain simultaneous completions in fixed priority order", func() {
		// Both finish on the same cycle; the add/sub core holds priority.
		adapter.Issue(fpRec(1, insts.OpFADDS, 1, 1))
		adapter.Tick()
		adapter.Tick()
		adapter.Issue(fpRec(2, insts.OpFMINS, 1, 2))
		adapter.Tick()

		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(1)))
		adapter.Accept()

		adapter.Tick()
		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(2)))
	})

	It("should assert busy once occupancy reaches the queue capacity", func() {
		for i := 0; i < ResultQueueDepth; i++ {
			Expect(adapter.Issue(fpRec(tomasulo.Tag(i), insts.OpFMINS, 1, 2))).
				To(BeTrue())
			adapter.Tick()
		}

		Expect(adapter.Busy()).To(BeTrue())
		Expect(adapter.Issue(fpRec(9, insts.OpFMINS, 1, 2))).To(BeFalse())
		Expect(adapter.Occupancy()).To(Equal(ResultQueueDepth))
	})

	It("should never overflow under a full backlog", func() {
		// Saturate, let everything drain into the queue, then release one
		// result per cycle while re-issuing immediately. Occupancy must stay
		// at the credit limit and results must keep flowing in tag order.
		for i := 0; i < ResultQueueDepth; i++ {
			adapter.Issue(fpRec(tomasulo.Tag(i), insts.OpFMINS, 1, 2))
			adapter.Tick()
		}
		for i := 0; i < 16; i++ {
			adapter.Tick()
		}

		next := tomasulo.Tag(ResultQueueDepth)
		for i := 0; i < 8; i++ {
			Expect(adapter.Output().Valid).To(BeTrue())
			adapter.Accept()
			Expect(adapter.Issue(fpRec(next, insts.OpFMINS, 1, 2))).To(BeTrue())
			next++
			adapter.Tick()
			Expect(adapter.Occupancy()).To(BeNumerically("<=", ResultQueueDepth))
		}
	})

	It("should clear all state on a full flush", func() {
		adapter.Issue(fpRec(1, insts.OpFADDS, 1, 1))
		adapter.Tick()
		adapter.Issue(fpRec(2, insts.OpFMINS, 1, 2))
		adapter.Tick()

		adapter.Flush()

		Expect(adapter.Occupancy()).To(Equal(0))
		Expect(adapter.Output().Valid).To(BeFalse())
		for i := 0; i < 8; i++ {
			adapter.Tick()
		}
		Expect(adapter.Output().Valid).To(BeFalse())
	})

	It("should drop only younger operations on a partial flush", func() {
		adapter.Issue(fpRec(6, insts.OpFADDS, 1, 1))
		adapter.Tick()
		adapter.Issue(fpRec(10, insts.OpFADDS, 2, 2))
		adapter.Tick()

		adapter.FlushYounger(8, 5)

		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeTrue())
		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(6)))
		adapter.Accept()

		for i := 0; i < 8; i++ {
			adapter.Tick()
		}
		Expect(adapter.Output().Valid).To(BeFalse())
		Expect(adapter.Occupancy()).To(Equal(0))
	})

	It("should drop younger queued results on a partial flush", func() {
		adapter.Issue(fpRec(6, insts.OpFMINS, 1, 2))
		adapter.Tick()
		adapter.Issue(fpRec(10, insts.OpFMINS, 1, 2))
		adapter.Tick()
		adapter.Tick()

		adapter.FlushYounger(8, 5)

		Expect(adapter.Output().Tag).To(Equal(tomasulo.Tag(6)))
		adapter.Accept()
		Expect(adapter.Output().Valid).To(BeFalse())
		Expect(adapter.Occupancy()).To(Equal(0))
	})
})
