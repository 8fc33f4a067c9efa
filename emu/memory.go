package emu

const pageSize = 4096

// Memory is a sparse byte-addressable memory. Pages are allocated on first
// touch; reads of untouched memory return zero.
type Memory struct {
	pages map[uint32]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*[pageSize]byte)}
}

func (m *Memory) page(addr uint32, alloc bool) *[pageSize]byte {
	base := addr &^ (pageSize - 1)
	p, ok := m.pages[base]
	if !ok && alloc {
		p = new([pageSize]byte)
		m.pages[base] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr%pageSize]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	m.page(addr, true)[addr%pageSize] = value
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// Read64 reads a little-endian doubleword.
func (m *Memory) Read64(addr uint32) uint64 {
	return uint64(m.Read32(addr)) | uint64(m.Read32(addr+4))<<32
}

// Write64 writes a little-endian doubleword.
func (m *Memory) Write64(addr uint32, value uint64) {
	m.Write32(addr, uint32(value))
	m.Write32(addr+4, uint32(value>>32))
}

// Load performs a sized load. Size is the log2 width in bytes (0 to 3);
// signed selects sign extension of sub-word loads.
func (m *Memory) Load(addr uint32, size uint8, signed bool) uint64 {
	switch size {
	case 0:
		v := m.Read8(addr)
		if signed {
			return uint64(int64(int8(v)))
		}
		return uint64(v)
	case 1:
		v := m.Read16(addr)
		if signed {
			return uint64(int64(int16(v)))
		}
		return uint64(v)
	case 2:
		v := m.Read32(addr)
		if signed {
			return uint64(int64(int32(v)))
		}
		return uint64(v)
	default:
		return m.Read64(addr)
	}
}

// Store performs a sized store. Size is the log2 width in bytes (0 to 3).
func (m *Memory) Store(addr uint32, size uint8, value uint64) {
	switch size {
	case 0:
		m.Write8(addr, uint8(value))
	case 1:
		m.Write16(addr, uint16(value))
	case 2:
		m.Write32(addr, uint32(value))
	default:
		m.Write64(addr, value)
	}
}
