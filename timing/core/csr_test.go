package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvlab/o3sim/insts"
)

var _ = Describe("CSRFile", func() {
	var f *CSRFile

	BeforeEach(func() {
		f = NewCSRFile()
	})

	It("reads unimplemented registers as zero", func() {
		Expect(f.Read(0x7FF)).To(BeZero())
	})

	It("swaps on CSRRW and returns the old value", func() {
		f.Write(CSRMScratch, 5)
		old := f.Execute(insts.OpCSRRW, CSRMScratch, 9)

		Expect(old).To(Equal(uint32(5)))
		Expect(f.Read(CSRMScratch)).To(Equal(uint32(9)))
	})

	It("sets and clears bits on CSRRS and CSRRC", func() {
		f.Execute(insts.OpCSRRS, CSRMScratch, 0b1010)
		Expect(f.Read(CSRMScratch)).To(Equal(uint32(0b1010)))

		f.Execute(insts.OpCSRRC, CSRMScratch, 0b0010)
		Expect(f.Read(CSRMScratch)).To(Equal(uint32(0b1000)))
	})

	It("skips the write on CSRRS and CSRRC with a zero operand", func() {
		f.Write(CSRMScratch, 7)
		old := f.Execute(insts.OpCSRRS, CSRMScratch, 0)

		Expect(old).To(Equal(uint32(7)))
		Expect(f.Read(CSRMScratch)).To(Equal(uint32(7)))
	})

	It("composes fcsr from frm and fflags", func() {
		f.Write(CSRFRM, 0b011)
		f.Write(CSRFFlags, 0b10001)

		Expect(f.Read(CSRFCSR)).To(Equal(uint32(0b011<<5 | 0b10001)))
	})

	It("splits an fcsr write into frm and fflags", func() {
		f.Write(CSRFCSR, 0b101<<5|0b00110)

		Expect(f.Read(CSRFRM)).To(Equal(uint32(0b101)))
		Expect(f.Read(CSRFFlags)).To(Equal(uint32(0b00110)))
	})

	It("accumulates FP flags without clearing old ones", func() {
		f.AccumulateFlags(insts.FPFlagNX)
		f.AccumulateFlags(insts.FPFlagDZ)

		Expect(f.Read(CSRFFlags)).
			To(Equal(uint32(insts.FPFlagNX | insts.FPFlagDZ)))
	})

	It("clears bit zero of mepc writes", func() {
		f.Write(CSRMEPC, 0x101)
		Expect(f.Read(CSRMEPC)).To(Equal(uint32(0x100)))
	})

	Context("trap entry and return", func() {
		It("stacks the interrupt enable on a trap", func() {
			f.Write(CSRMStatus, mstatusMIE)
			f.Write(CSRMTVec, 0x200)

			vector := f.TakeTrap(0x44, insts.ExcEnvCallM, false)

			Expect(vector).To(Equal(uint32(0x200)))
			Expect(f.Read(CSRMEPC)).To(Equal(uint32(0x44)))
			Expect(f.Read(CSRMCause)).To(Equal(uint32(insts.ExcEnvCallM)))
			Expect(f.InterruptsEnabled()).To(BeFalse())
			Expect(f.Read(CSRMStatus) & mstatusMPIE).ToNot(BeZero())
		})

		It("marks interrupt causes with the top bit", func() {
			f.TakeTrap(0, insts.ExcCause(11), true)
			Expect(f.Read(CSRMCause)).To(Equal(uint32(1<<31 | 11)))
		})

		It("unstacks the interrupt enable on return", func() {
			f.Write(CSRMStatus, mstatusMIE)
			f.TakeTrap(0x44, insts.ExcEnvCallM, false)

			resume := f.Return()

			Expect(resume).To(Equal(uint32(0x44)))
			Expect(f.InterruptsEnabled()).To(BeTrue())
		})

		It("masks the vector mode bits off mtvec", func() {
			f.Write(CSRMTVec, 0x201)
			vector := f.TakeTrap(0, insts.ExcEnvCallM, false)
			Expect(vector).To(Equal(uint32(0x200)))
		})
	})
})
