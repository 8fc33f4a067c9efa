package core

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/insts"
	"github.com/rvlab/o3sim/timing/cache"
)

func addImm(pc uint32, rd uint8, imm uint32) Instruction {
	return Instruction{Op: insts.OpADD, PC: pc, Rd: rd, Imm: imm, UseImm: true}
}

func mulReg(pc uint32, rd, rs1, rs2 uint8) Instruction {
	return Instruction{Op: insts.OpMUL, PC: pc, Rd: rd, Rs1: rs1, Rs2: rs2}
}

var _ = Describe("Core", func() {
	var (
		c    *Core
		regs *emu.RegFile
		mem  *emu.Memory
	)

	BeforeEach(func() {
		regs = &emu.RegFile{}
		mem = emu.NewMemory()
		c = NewCore(regs, mem)
	})

	It("retires independent ALU operations in order", func() {
		c.Feed(
			addImm(0, 1, 5),
			addImm(4, 2, 7),
		)

		Expect(c.Run(100)).To(BeTrue())
		Expect(regs.ReadInt(1)).To(Equal(uint32(5)))
		Expect(regs.ReadInt(2)).To(Equal(uint32(7)))
		Expect(c.Stats().Commits).To(Equal(uint64(2)))
	})

	It("forwards a renamed result into a dependent operation", func() {
		c.Feed(
			addImm(0, 1, 5),
			Instruction{Op: insts.OpADD, PC: 4, Rd: 2, Rs1: 1, Rs2: 1},
		)

		Expect(c.Run(100)).To(BeTrue())
		Expect(regs.ReadInt(2)).To(Equal(uint32(10)))
	})

	It("commits in program order even when completion is out of order", func() {
		regs.WriteInt(1, 3)
		// The multiply finishes after the add but must retire first, so the
		// add's write to the same register wins architecturally.
		c.Feed(
			mulReg(0, 5, 1, 1),
			addImm(4, 5, 7),
		)

		Expect(c.Run(100)).To(BeTrue())
		Expect(regs.ReadInt(5)).To(Equal(uint32(7)))
		Expect(c.Stats().Commits).To(Equal(uint64(2)))
	})

	It("runs a dependent multiply chain through the pipelined unit", func() {
		regs.WriteInt(1, 2)
		c.Feed(
			mulReg(0, 2, 1, 1),
			mulReg(4, 3, 2, 2),
			mulReg(8, 4, 3, 3),
		)

		Expect(c.Run(200)).To(BeTrue())
		Expect(regs.ReadInt(2)).To(Equal(uint32(4)))
		Expect(regs.ReadInt(3)).To(Equal(uint32(16)))
		Expect(regs.ReadInt(4)).To(Equal(uint32(256)))
	})

	Context("branch handling", func() {
		It("commits a correctly predicted branch without a flush", func() {
			regs.WriteInt(1, 1)
			regs.WriteInt(2, 2)
			c.Feed(
				Instruction{
					Op: insts.OpBNE, PC: 0, Rs1: 1, Rs2: 2,
					BranchTarget:    0x40,
					PredictedTaken:  true,
					PredictedTarget: 0x40,
				},
				addImm(0x40, 3, 1),
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(regs.ReadInt(3)).To(Equal(uint32(1)))
			Expect(c.Stats().PartialFlushes).To(BeZero())
			Expect(c.ROBStats().Mispredictions).To(BeZero())
		})

		It("recovers from a misprediction and replays the flushed work", func() {
			regs.WriteInt(1, 1)
			// The branch waits on the multiply, so the younger add enters the
			// window before resolution and gets flushed and re-dispatched.
			c.Feed(
				mulReg(0, 7, 1, 1),
				Instruction{
					Op: insts.OpBNE, PC: 4, Rs1: 1, Rs2: 7,
					BranchTarget:    0x40,
					PredictedTaken:  true,
					PredictedTarget: 0x40,
				},
				addImm(8, 6, 9),
			)

			Expect(c.Run(200)).To(BeTrue())
			Expect(regs.ReadInt(6)).To(Equal(uint32(9)))
			Expect(regs.ReadInt(7)).To(Equal(uint32(1)))

			Expect(c.Stats().PartialFlushes).To(Equal(uint64(1)))
			Expect(c.ROBStats().Mispredictions).To(Equal(uint64(1)))
			Expect(c.Stats().Dispatched).To(Equal(uint64(4)))
			Expect(c.Stats().Commits).To(Equal(uint64(3)))

			pc, ok := c.Redirect()
			Expect(ok).To(BeTrue())
			Expect(pc).To(Equal(uint32(8)))
		})

		It("redirects to the target of a mispredicted taken branch", func() {
			regs.WriteInt(1, 1)
			c.Feed(
				mulReg(0, 7, 1, 1),
				Instruction{
					Op: insts.OpBEQ, PC: 4, Rs1: 1, Rs2: 7,
					BranchTarget:   0x80,
					PredictedTaken: false,
				},
			)

			Expect(c.Run(200)).To(BeTrue())
			pc, ok := c.Redirect()
			Expect(ok).To(BeTrue())
			Expect(pc).To(Equal(uint32(0x80)))
		})
	})

	Context("return address stack", func() {
		It("writes the link register for a call and predicts the return", func() {
			c.Feed(
				Instruction{Op: insts.OpJAL, PC: 0, Rd: 1, IsCall: true,
					BranchTarget: 0x100},
				Instruction{Op: insts.OpJALR, PC: 0x100, Rs1: 1, IsReturn: true},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(regs.ReadInt(1)).To(Equal(uint32(4)))
			// The popped prediction matched the register target.
			Expect(c.ROBStats().Mispredictions).To(BeZero())

			_, count := c.ras.Position()
			Expect(count).To(BeZero())
		})

		It("replays the return's own pop after restoring its checkpoint", func() {
			// The return predicts from the stack but jumps through x2, so it
			// mispredicts. Recovery restores the pre-pop stack position and
			// then replays the pop: the consumed entry must stay consumed.
			regs.WriteInt(2, 0x80)
			c.Feed(
				Instruction{Op: insts.OpJAL, PC: 0, Rd: 1, IsCall: true,
					BranchTarget: 0x100},
				Instruction{Op: insts.OpJALR, PC: 0x100, Rs1: 2, IsReturn: true},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(c.ROBStats().Mispredictions).To(Equal(uint64(1)))

			pc, ok := c.Redirect()
			Expect(ok).To(BeTrue())
			Expect(pc).To(Equal(uint32(0x80)))

			_, count := c.ras.Position()
			Expect(count).To(BeZero())
		})

		It("rewinds a speculative pop flushed by an older branch", func() {
			regs.WriteInt(1, 1)
			// The return dispatches and pops while the older branch is still
			// waiting on the multiply. The branch mispredicts, the return is
			// flushed, the stack rewinds, and the replayed return pops the
			// same entry and predicts correctly.
			c.Feed(
				Instruction{Op: insts.OpJAL, PC: 0, Rd: 1, IsCall: true,
					BranchTarget: 0x40},
				mulReg(0x40, 7, 1, 1),
				Instruction{
					Op: insts.OpBNE, PC: 0x44, Rs1: 1, Rs2: 7,
					BranchTarget:   0x60,
					PredictedTaken: false,
				},
				Instruction{Op: insts.OpJALR, PC: 0x48, Rs1: 1, IsReturn: true},
			)

			Expect(c.Run(300)).To(BeTrue())
			Expect(c.ROBStats().Mispredictions).To(Equal(uint64(1)))
			Expect(c.Stats().PartialFlushes).To(Equal(uint64(1)))
			Expect(c.Stats().Commits).To(Equal(uint64(4)))

			_, count := c.ras.Position()
			Expect(count).To(BeZero())
		})
	})

	Context("CSR accesses", func() {
		It("serializes a CSR write and returns the old value", func() {
			regs.WriteInt(1, 0x1234)
			c.Feed(
				Instruction{Op: insts.OpCSRRW, PC: 0, Rd: 5, Rs1: 1,
					CSRAddr: CSRMScratch},
				Instruction{Op: insts.OpCSRRS, PC: 4, Rd: 6, Rs1: 0,
					CSRAddr: CSRMScratch},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(regs.ReadInt(5)).To(BeZero())
			Expect(regs.ReadInt(6)).To(Equal(uint32(0x1234)))
			Expect(c.CSR().Read(CSRMScratch)).To(Equal(uint32(0x1234)))
		})

		It("writes the zimm form without reading a register", func() {
			c.Feed(
				Instruction{Op: insts.OpCSRRW, PC: 0, Rd: 0,
					CSRAddr: CSRMScratch, CSRImm: 21, UseImm: true},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(c.CSR().Read(CSRMScratch)).To(Equal(uint32(21)))
		})
	})

	Context("traps", func() {
		It("takes an ECALL trap and returns through MRET", func() {
			regs.WriteInt(1, 0x100)
			c.Feed(
				Instruction{Op: insts.OpCSRRW, PC: 0, Rd: 0, Rs1: 1,
					CSRAddr: CSRMTVec},
				Instruction{Op: insts.OpECALL, PC: 4},
				addImm(0x100, 6, 1),
				Instruction{Op: insts.OpMRET, PC: 0x104},
				addImm(8, 7, 2),
			)

			Expect(c.Run(300)).To(BeTrue())
			Expect(regs.ReadInt(6)).To(Equal(uint32(1)))
			Expect(regs.ReadInt(7)).To(Equal(uint32(2)))

			Expect(c.CSR().Read(CSRMEPC)).To(Equal(uint32(4)))
			Expect(c.CSR().Read(CSRMCause)).
				To(Equal(uint32(insts.ExcEnvCallM)))
			Expect(c.Stats().Traps).To(Equal(uint64(1)))
			Expect(c.Stats().FullFlushes).To(Equal(uint64(2)))
		})

		It("suppresses the destination write of an excepting load", func() {
			regs.WriteInt(1, 0x1001)
			regs.WriteInt(5, 99)
			c.Feed(
				// Word load from an odd address.
				Instruction{Op: insts.OpLOAD, PC: 0, Rd: 5, Rs1: 1, MemSize: 2},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(regs.ReadInt(5)).To(Equal(uint32(99)))
			Expect(c.CSR().Read(CSRMCause)).
				To(Equal(uint32(insts.ExcLoadAddrMisaligned)))
			Expect(c.Stats().Traps).To(Equal(uint64(1)))
		})

		It("discards the data of an excepting store", func() {
			regs.WriteInt(1, 0x1001)
			regs.WriteInt(2, 0xDEADBEEF)
			c.Feed(
				// Word store to an odd address.
				Instruction{Op: insts.OpSTORE, PC: 0, Rs1: 1, Rs2: 2, MemSize: 2},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(c.Stats().Traps).To(Equal(uint64(1)))
			Expect(c.CSR().Read(CSRMCause)).
				To(Equal(uint32(insts.ExcStoreAddrMisaligned)))
			// The faulting store's data must never reach memory.
			Expect(mem.Read32(0x1000)).To(BeZero())
			Expect(mem.Read32(0x1004)).To(BeZero())
		})
	})

	Context("WFI", func() {
		It("parks at the head until an interrupt is pending", func() {
			c.Feed(
				Instruction{Op: insts.OpWFI, PC: 0},
				addImm(4, 5, 3),
			)

			Expect(c.Run(50)).To(BeFalse())
			Expect(regs.ReadInt(5)).To(BeZero())

			c.SetInterrupt(true)
			Expect(c.Run(50)).To(BeTrue())
			Expect(regs.ReadInt(5)).To(Equal(uint32(3)))
		})
	})

	Context("memory ordering", func() {
		It("drains the store queue before a fence commits", func() {
			regs.WriteInt(1, 0x1000)
			regs.WriteInt(2, 0xAB)
			c.Feed(
				Instruction{Op: insts.OpSTORE, PC: 0, Rs1: 1, Rs2: 2, MemSize: 2},
				Instruction{Op: insts.OpFENCE, PC: 4},
				Instruction{Op: insts.OpLOAD, PC: 8, Rd: 5, Rs1: 1, MemSize: 2},
			)

			Expect(c.Run(100)).To(BeTrue())
			Expect(mem.Read32(0x1000)).To(Equal(uint32(0xAB)))
			Expect(regs.ReadInt(5)).To(Equal(uint32(0xAB)))
		})

		It("flushes a speculative store on misprediction", func() {
			regs.WriteInt(1, 1)
			regs.WriteInt(2, 0x2000)
			regs.WriteInt(3, 0xCD)
			c.Feed(
				mulReg(0, 7, 1, 1),
				Instruction{
					Op: insts.OpBNE, PC: 4, Rs1: 1, Rs2: 7,
					BranchTarget:    0x40,
					PredictedTaken:  true,
					PredictedTarget: 0x40,
				},
				Instruction{Op: insts.OpSTORE, PC: 8, Rs1: 2, Rs2: 3, MemSize: 2},
			)

			Expect(c.Run(200)).To(BeTrue())
			// The store is replayed after recovery and still lands exactly once.
			Expect(mem.Read32(0x2000)).To(Equal(uint32(0xCD)))
			Expect(c.Stats().PartialFlushes).To(Equal(uint64(1)))
		})
	})

	Context("floating point", func() {
		It("computes through the FP add and divide units", func() {
			regs.WriteFP(1, emu.NaNBox(math.Float32bits(2.0)))
			regs.WriteFP(2, emu.NaNBox(math.Float32bits(3.0)))
			c.Feed(
				Instruction{Op: insts.OpFADDS, PC: 0, Rd: 3, Rs1: 1, Rs2: 2},
				Instruction{Op: insts.OpFDIVS, PC: 4, Rd: 4, Rs1: 1, Rs2: 2},
			)

			Expect(c.Run(200)).To(BeTrue())
			Expect(regs.ReadFP(3)).
				To(Equal(emu.NaNBox(math.Float32bits(5.0))))
			Expect(regs.ReadFP(4)).
				To(Equal(emu.NaNBox(math.Float32bits(2.0 / 3.0))))

			// 2/3 is inexact; the flag lands in fflags at commit.
			Expect(c.CSR().Read(CSRFFlags) & uint32(insts.FPFlagNX)).
				ToNot(BeZero())
		})
	})

	Context("instruction cache", func() {
		It("invalidates every line when FENCE.I commits", func() {
			ic := cache.New(cache.DefaultL1IConfig(), cache.NewMemoryBacking(mem))
			c.SetICache(ic)

			// The fence sits on its own cache line, so two lines are live
			// when it commits.
			c.Feed(
				addImm(0, 1, 1),
				addImm(0, 2, 2),
				Instruction{Op: insts.OpFENCEI, PC: 0x100},
				addImm(0, 3, 3),
			)

			Expect(c.Run(100)).To(BeTrue())
			stats := ic.Stats()
			Expect(stats.Fetches).To(Equal(uint64(4)))
			Expect(stats.Invalidations).To(Equal(uint64(2)))
		})
	})

	It("counts dispatch stalls when a station backs up", func() {
		regs.WriteFP(1, emu.NaNBox(math.Float32bits(8.0)))
		regs.WriteFP(2, emu.NaNBox(math.Float32bits(2.0)))
		c.Feed(
			Instruction{Op: insts.OpFDIVS, PC: 0, Rd: 3, Rs1: 1, Rs2: 2},
			Instruction{Op: insts.OpFDIVS, PC: 4, Rd: 4, Rs1: 1, Rs2: 2},
			Instruction{Op: insts.OpFDIVS, PC: 8, Rd: 5, Rs1: 1, Rs2: 2},
			Instruction{Op: insts.OpFDIVS, PC: 12, Rd: 6, Rs1: 1, Rs2: 2},
		)

		Expect(c.Run(500)).To(BeTrue())
		Expect(regs.ReadFP(6)).To(Equal(emu.NaNBox(math.Float32bits(4.0))))
		Expect(c.Stats().StallRSFull).ToNot(BeZero())
	})
})
