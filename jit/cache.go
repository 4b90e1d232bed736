package jit

import (
	"github.com/go-logr/logr"

	"github.com/sarchlab/rvjit/emu"
)

// Stats counts cache activity.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Builds   uint64
	Failures uint64
}

// Cache memoizes compiled blocks by start address. A stored block is never
// replaced or evicted; failed builds are not stored. Cache is not safe for
// concurrent use.
type Cache struct {
	builder BlockBuilder
	mem     *emu.Memory
	blocks  map[uint64]*CompiledBlock
	stats   Stats
	log     logr.Logger
}

// CacheOption is a functional option for configuring the Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger. V(2) logs hits.
func WithCacheLogger(log logr.Logger) CacheOption {
	return func(c *Cache) {
		c.log = log
	}
}

// NewCache creates an empty cache that builds blocks from mem.
func NewCache(builder BlockBuilder, mem *emu.Memory, opts ...CacheOption) *Cache {
	c := &Cache{
		builder: builder,
		mem:     mem,
		blocks:  make(map[uint64]*CompiledBlock),
		log:     logr.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetOrBuild returns the block starting at pc, building it on first use.
func (c *Cache) GetOrBuild(pc uint64) (*CompiledBlock, error) {
	if block, ok := c.blocks[pc]; ok {
		c.stats.Hits++
		c.log.V(2).Info("block cache hit", "pc", hex(pc))
		return block, nil
	}

	c.stats.Misses++
	block, err := c.builder.Build(c.mem, pc)
	if err != nil {
		c.stats.Failures++
		return nil, err
	}

	c.stats.Builds++
	c.blocks[pc] = block
	return block, nil
}

// Lookup returns the cached block at pc without building.
func (c *Cache) Lookup(pc uint64) (*CompiledBlock, bool) {
	block, ok := c.blocks[pc]
	return block, ok
}

// Len returns the number of cached blocks.
func (c *Cache) Len() int {
	return len(c.blocks)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return c.stats
}
