package core

import (
	"github.com/rvlab/o3sim/emu"
	"github.com/rvlab/o3sim/timing/tomasulo"
)

// StoreQueue buffers stores between issue and their architectural write.
// A store sits speculative until its reorder-buffer entry commits, then
// drains to memory one store per cycle.
type StoreQueue interface {
	// Empty reports whether no committed store is still draining. This is
	// the drain condition fences and atomics wait on.
	Empty() bool

	// Enqueue records a store's address and data when it issues. AMOs
	// enqueue their source operand as-is, so they drain as plain swaps.
	Enqueue(tag tomasulo.Tag, addr uint32, size uint8, data uint64)

	// Commit marks a store architectural when its entry retires.
	Commit(tag tomasulo.Tag)

	// Tick drains at most one committed store to memory.
	Tick()

	// FlushAll drops every speculative store.
	FlushAll()

	// FlushYounger drops speculative stores younger than flushTag.
	FlushYounger(flushTag, head tomasulo.Tag)
}

type storeEntry struct {
	tag       tomasulo.Tag
	addr      uint32
	size      uint8
	data      uint64
	committed bool
}

// MemStoreQueue is the default store queue writing into an emu.Memory.
type MemStoreQueue struct {
	memory  *emu.Memory
	entries []storeEntry
}

// NewMemStoreQueue creates a store queue backed by the given memory.
func NewMemStoreQueue(memory *emu.Memory) *MemStoreQueue {
	return &MemStoreQueue{memory: memory}
}

// Empty reports whether no committed store is pending.
func (q *MemStoreQueue) Empty() bool {
	for i := range q.entries {
		if q.entries[i].committed {
			return false
		}
	}
	return true
}

// Len returns the number of buffered stores, speculative and committed.
func (q *MemStoreQueue) Len() int {
	return len(q.entries)
}

// Enqueue records an issued store.
func (q *MemStoreQueue) Enqueue(tag tomasulo.Tag, addr uint32, size uint8, data uint64) {
	q.entries = append(q.entries, storeEntry{
		tag:  tag,
		addr: addr,
		size: size,
		data: data,
	})
}

// Commit marks the store with the given tag architectural.
func (q *MemStoreQueue) Commit(tag tomasulo.Tag) {
	for i := range q.entries {
		if q.entries[i].tag == tag && !q.entries[i].committed {
			q.entries[i].committed = true
			return
		}
	}
}

// Tick writes at most one committed store to memory, oldest first.
func (q *MemStoreQueue) Tick() {
	for i := range q.entries {
		if !q.entries[i].committed {
			continue
		}
		e := q.entries[i]
		if q.memory != nil {
			q.memory.Store(e.addr, e.size, e.data)
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return
	}
}

// FlushAll drops all speculative stores. Committed stores keep draining;
// they are architectural.
func (q *MemStoreQueue) FlushAll() {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.committed {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

// FlushYounger drops speculative stores younger than flushTag.
func (q *MemStoreQueue) FlushYounger(flushTag, head tomasulo.Tag) {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !e.committed && tomasulo.YoungerThan(e.tag, flushTag, head) {
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
}
