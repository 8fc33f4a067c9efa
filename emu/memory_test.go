package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rvlab/o3sim/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemory()
	})

	It("should read zero from untouched memory", func() {
		Expect(mem.Read32(0x1000)).To(Equal(uint32(0)))
		Expect(mem.Read64(0xFFFF_0000)).To(Equal(uint64(0)))
	})

	It("should round-trip all access widths", func() {
		mem.Write8(0x100, 0xAB)
		mem.Write16(0x200, 0xBEEF)
		mem.Write32(0x300, 0xDEADBEEF)
		mem.Write64(0x400, 0x0123_4567_89AB_CDEF)

		Expect(mem.Read8(0x100)).To(Equal(uint8(0xAB)))
		Expect(mem.Read16(0x200)).To(Equal(uint16(0xBEEF)))
		Expect(mem.Read32(0x300)).To(Equal(uint32(0xDEADBEEF)))
		Expect(mem.Read64(0x400)).To(Equal(uint64(0x0123_4567_89AB_CDEF)))
	})

	It("should store little endian", func() {
		mem.Write32(0x100, 0x04030201)

		Expect(mem.Read8(0x100)).To(Equal(uint8(0x01)))
		Expect(mem.Read8(0x103)).To(Equal(uint8(0x04)))
	})

	It("should handle accesses spanning page boundaries", func() {
		mem.Write32(4094, 0xCAFEBABE)
		Expect(mem.Read32(4094)).To(Equal(uint32(0xCAFEBABE)))
	})

	Describe("sized loads", func() {
		It("should sign extend sub-word loads when asked", func() {
			mem.Write8(0x10, 0x80)
			Expect(mem.Load(0x10, 0, true)).To(Equal(uint64(0xFFFF_FFFF_FFFF_FF80)))
			Expect(mem.Load(0x10, 0, false)).To(Equal(uint64(0x80)))

			mem.Write16(0x20, 0x8000)
			Expect(mem.Load(0x20, 1, true)).To(Equal(uint64(0xFFFF_FFFF_FFFF_8000)))
		})

		It("should store and load words through the sized interface", func() {
			mem.Store(0x30, 2, 0x1234_5678)
			Expect(mem.Load(0x30, 2, false)).To(Equal(uint64(0x1234_5678)))
		})
	})
})
