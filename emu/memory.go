package emu

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"

	"github.com/sarchlab/rvjit/insts"
)

// DefaultCapacity is the addressable size of a Memory. The backing storage
// is sparse, so only touched pages cost anything.
const DefaultCapacity uint64 = 1 << 48

// Memory is byte-addressed, little-endian instruction memory. Everything
// below Limit is considered loaded.
type Memory struct {
	storage *mem.Storage
	limit   uint64
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{
		storage: mem.NewStorage(DefaultCapacity),
	}
}

// Limit returns one past the highest loaded byte.
func (m *Memory) Limit() uint64 {
	return m.limit
}

// Contains reports whether pc is below the limit.
func (m *Memory) Contains(pc uint64) bool {
	return pc < m.limit
}

// LoadProgram copies data into memory at addr and raises the limit to cover
// it.
func (m *Memory) LoadProgram(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	if err := m.storage.Write(addr, data); err != nil {
		return fmt.Errorf("failed to load %d bytes at 0x%X: %w", len(data), addr, err)
	}

	if end := addr + uint64(len(data)); end > m.limit {
		m.limit = end
	}

	return nil
}

// LoadWords stores 32-bit words at addr in little-endian order.
func (m *Memory) LoadWords(addr uint64, words []uint32) error {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[4*i:], w)
	}
	return m.LoadProgram(addr, data)
}

// Read returns n bytes starting at addr.
func (m *Memory) Read(addr, n uint64) ([]byte, error) {
	data, err := m.storage.Read(addr, n)
	if err != nil {
		return nil, fmt.Errorf("failed to read %d bytes at 0x%X: %w", n, addr, err)
	}
	return data, nil
}

// Read16 reads a little-endian halfword. Unmapped addresses read as 0.
func (m *Memory) Read16(addr uint64) uint16 {
	data, err := m.storage.Read(addr, 2)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(data)
}

// Read32 reads a little-endian word. Unmapped addresses read as 0.
func (m *Memory) Read32(addr uint64) uint32 {
	data, err := m.storage.Read(addr, 4)
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(data)
}

// Fetch reads the instruction at pc. The high half is read only for
// long-form encodings. It reports false when the whole instruction does not
// lie below the limit.
func (m *Memory) Fetch(pc uint64) (insts.Word, bool) {
	if pc+2 > m.limit || pc+2 < pc {
		return 0, false
	}

	w := insts.Word(m.Read16(pc))
	if !w.IsLong() {
		return w, true
	}

	if pc+4 > m.limit {
		return 0, false
	}

	return w | insts.Word(m.Read16(pc+2))<<16, true
}
