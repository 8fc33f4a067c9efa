// Package cache models the L1 instruction cache using Akita cache components.
//
// The cache is read-only from the core's point of view. Self-modifying code
// is handled the RISC-V way: a FENCE.I at commit invalidates the whole cache,
// so stale lines can never be fetched after the fence retires.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache geometry and timing parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultL1IConfig returns the default L1 instruction cache configuration:
// 16KB, 4-way, 64B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the fetched instruction word.
	Data uint32
	// Evicted is true if a block was evicted to make room.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches data from the backing store.
	Read(addr uint64, size int) []byte
}

// Statistics holds cache performance counters.
type Statistics struct {
	Fetches       uint64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
}

// Cache is an L1 instruction cache built on the Akita cache directory.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	backing BackingStore

	stats Statistics
}

// New creates a cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the performance counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the performance counters.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// Fetch reads the instruction word at addr.
func (c *Cache) Fetch(addr uint32) AccessResult {
	c.stats.Fetches++

	blockSize := uint64(c.config.BlockSize)
	blockAddr := (uint64(addr) / blockSize) * blockSize

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    c.wordAt(c.dataStore[c.blockIndex(block)], addr),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, blockAddr)
}

func (c *Cache) handleMiss(addr uint32, blockAddr uint64) AccessResult {
	result := AccessResult{
		Latency: c.config.MissLatency,
	}

	victim := c.directory.FindVictim(blockAddr)
	if victim == nil {
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	// Clean eviction only; instruction lines are never dirty.
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
	}

	if c.backing != nil {
		copy(victimData, c.backing.Read(blockAddr, c.config.BlockSize))
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	victim.Tag = blockAddr
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	result.Data = c.wordAt(victimData, addr)
	return result
}

func (c *Cache) wordAt(blockData []byte, addr uint32) uint32 {
	offset := int(uint64(addr) % uint64(c.config.BlockSize))
	if offset+4 > len(blockData) {
		return 0
	}
	return uint32(blockData[offset]) |
		uint32(blockData[offset+1])<<8 |
		uint32(blockData[offset+2])<<16 |
		uint32(blockData[offset+3])<<24
}

// Invalidate drops the line holding addr, if present.
func (c *Cache) Invalidate(addr uint32) {
	blockSize := uint64(c.config.BlockSize)
	blockAddr := (uint64(addr) / blockSize) * blockSize

	block := c.directory.Lookup(0, blockAddr)
	if block != nil && block.IsValid {
		block.IsValid = false
		c.stats.Invalidations++
	}
}

// InvalidateAll drops every line. This is the FENCE.I commit action.
func (c *Cache) InvalidateAll() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				block.IsValid = false
				c.stats.Invalidations++
			}
		}
	}
}

// Reset invalidates all lines and clears the counters.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
