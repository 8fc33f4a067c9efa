package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvlab/o3sim/emu"
)

var _ = Describe("MemStoreQueue", func() {
	var (
		mem *emu.Memory
		q   *MemStoreQueue
	)

	BeforeEach(func() {
		mem = emu.NewMemory()
		q = NewMemStoreQueue(mem)
	})

	It("holds a speculative store away from memory", func() {
		q.Enqueue(3, 0x100, 2, 0xDEAD)
		q.Tick()

		Expect(mem.Read32(0x100)).To(BeZero())
		Expect(q.Empty()).To(BeTrue())
	})

	It("drains one committed store per cycle, oldest first", func() {
		q.Enqueue(3, 0x100, 2, 0x11)
		q.Enqueue(4, 0x104, 2, 0x22)
		q.Commit(3)
		q.Commit(4)

		Expect(q.Empty()).To(BeFalse())

		q.Tick()
		Expect(mem.Read32(0x100)).To(Equal(uint32(0x11)))
		Expect(mem.Read32(0x104)).To(BeZero())

		q.Tick()
		Expect(mem.Read32(0x104)).To(Equal(uint32(0x22)))
		Expect(q.Empty()).To(BeTrue())
	})

	It("writes the access size it was given", func() {
		q.Enqueue(1, 0x200, 0, 0xFFAB)
		q.Commit(1)
		q.Tick()

		// A byte store only touches one byte.
		Expect(mem.Read32(0x200)).To(Equal(uint32(0xAB)))
	})

	It("drops speculative stores on a full flush but keeps committed ones", func() {
		q.Enqueue(3, 0x100, 2, 0x11)
		q.Enqueue(4, 0x104, 2, 0x22)
		q.Commit(3)

		q.FlushAll()
		Expect(q.Len()).To(Equal(1))

		q.Tick()
		Expect(mem.Read32(0x100)).To(Equal(uint32(0x11)))
		Expect(q.Empty()).To(BeTrue())
	})

	It("drops only younger speculative stores on a partial flush", func() {
		q.Enqueue(3, 0x100, 2, 0x11)
		q.Enqueue(5, 0x104, 2, 0x22)
		q.Enqueue(7, 0x108, 2, 0x33)

		q.FlushYounger(5, 2)
		Expect(q.Len()).To(Equal(2))

		q.Commit(3)
		q.Commit(5)
		q.Tick()
		q.Tick()
		q.Tick()

		Expect(mem.Read32(0x100)).To(Equal(uint32(0x11)))
		Expect(mem.Read32(0x104)).To(Equal(uint32(0x22)))
		Expect(mem.Read32(0x108)).To(BeZero())
	})
})
