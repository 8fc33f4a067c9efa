package core

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RAS", func() {
	var r RAS

	BeforeEach(func() {
		r = RAS{}
	})

	It("pops addresses in call-stack order", func() {
		r.Push(0x10)
		r.Push(0x20)

		addr, ok := r.Pop()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(0x20)))

		addr, ok = r.Pop()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(0x10)))
	})

	It("reports an empty stack", func() {
		_, ok := r.Pop()
		Expect(ok).To(BeFalse())
	})

	It("wraps around without growing past its depth", func() {
		for i := 0; i < rasDepth+3; i++ {
			r.Push(uint32(i) * 4)
		}
		_, count := r.Position()
		Expect(count).To(Equal(uint8(rasDepth)))

		addr, ok := r.Pop()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(rasDepth+2) * 4))
	})

	It("rewinds to a checkpointed position", func() {
		r.Push(0x10)
		tos, count := r.Position()

		r.Push(0x20)
		r.Pop()
		r.Pop()

		r.Restore(tos, count)
		addr, ok := r.Pop()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(0x10)))
	})

	It("survives a restore past a speculative pop", func() {
		r.Push(0x10)
		tos, count := r.Position()

		// A speculative pop, then the flush rewinds it.
		r.Pop()
		r.Restore(tos, count)

		addr, ok := r.Pop()
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(0x10)))
	})

	It("clears on reset", func() {
		r.Push(0x10)
		r.Reset()

		_, ok := r.Pop()
		Expect(ok).To(BeFalse())
	})
})
