package fu

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

func divRec(tag tomasulo.Tag, a, b uint32) tomasulo.IssueRecord {
	return tomasulo.IssueRecord{
		Valid: true,
		Tag:   tag,
		Op:    insts.OpDIV,
		Src1:  uint64(a),
		Src2:  uint64(b),
	}
}

var _ = Describe("SingleAdapter", func() {
	var adapter *SingleAdapter

	BeforeEach(func() {
		adapter = NewSingleAdapter(&IntDivUnit{Lat: 3})
	})

	It("should start idle with no output", func() {
		Expect(adapter.Busy()).To(BeFalse())
		Expect(adapter.Output().Valid).To(BeFalse())
	})

	It("should complete after the unit latency", func() {
		Expect(adapter.Issue(divRec(2, 100, 7))).To(BeTrue())
		Expect(adapter.Busy()).To(BeTrue())

		adapter.Tick()
		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeFalse())

		adapter.Tick()
		out := adapter.Output()
		Expect(out.Valid).To(BeTrue())
		Expect(out.Tag).To(Equal(tomasulo.Tag(2)))
		Expect(out.Value).To(Equal(uint64(14)))
	})

	It("should refuse issues while executing", func() {
		Expect(adapter.Issue(divRec(2, 100, 7))).To(BeTrue())
		Expect(adapter.Issue(divRec(3, 8, 2))).To(BeFalse())
	})

	It("should stay busy until the result is drained", func() {
		adapter.Issue(divRec(2, 100, 7))
		adapter.Tick()
		adapter.Tick()
		adapter.Tick()

		Expect(adapter.Busy()).To(BeTrue())
		Expect(adapter.Issue(divRec(3, 8, 2))).To(BeFalse())

		adapter.Accept()
		Expect(adapter.Busy()).To(BeFalse())
		Expect(adapter.Issue(divRec(3, 8, 2))).To(BeTrue())
	})

	It("should refuse operations its core does not execute", func() {
		rec := divRec(2, 1, 1)
		rec.Op = insts.OpFADDS
		Expect(adapter.Issue(rec)).To(BeFalse())
	})

	It("should drop the result of a flushed operation", func() {
		adapter.Issue(divRec(2, 100, 7))
		adapter.Flush()

		adapter.Tick()
		adapter.Tick()
		adapter.Tick()

		Expect(adapter.Output().Valid).To(BeFalse())
		Expect(adapter.Busy()).To(BeFalse())
	})

	It("should clear a held result on flush", func() {
		adapter.Issue(divRec(2, 100, 7))
		adapter.Tick()
		adapter.Tick()
		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeTrue())

		adapter.Flush()
		Expect(adapter.Output().Valid).To(BeFalse())
	})

	It("should keep an older operation across a partial flush", func() {
		adapter.Issue(divRec(6, 100, 7))

		adapter.FlushYounger(8, 5)

		adapter.Tick()
		adapter.Tick()
		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeTrue())
	})

	It("should drop a younger operation on a partial flush", func() {
		adapter.Issue(divRec(10, 100, 7))

		adapter.FlushYounger(8, 5)

		adapter.Tick()
		adapter.Tick()
		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeFalse())
	})

	It("should drop a younger held result on a partial flush", func() {
		adapter.Issue(divRec(10, 100, 7))
		adapter.Tick()
		adapter.Tick()
		adapter.Tick()
		Expect(adapter.Output().Valid).To(BeTrue())

		adapter.FlushYounger(8, 5)
		Expect(adapter.Output().Valid).To(BeFalse())
	})
})
