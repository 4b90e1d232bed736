// Package loader reads RISC-V program images: ELF executables, flat
// binaries and hex word listings.
package loader

import (
	"bufio"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/rvjit/asm"
	"github.com/sarchlab/rvjit/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment of a program image.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program is a program image ready to be placed in instruction memory.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments.
	Segments []Segment
	// Source is the assembler listing of assembled images.
	Source *asm.Program
}

// Memory builds instruction memory from the executable segments. Only file
// contents are loaded; the zero-filled tail of a segment is not code.
func (p *Program) Memory() (*emu.Memory, error) {
	m := emu.NewMemory()
	for _, seg := range p.Segments {
		if seg.Flags&SegmentFlagExecute == 0 {
			continue
		}
		if err := m.LoadProgram(seg.VirtAddr, seg.Data); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Load parses a 64-bit little-endian RISC-V ELF executable.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{EntryPoint: f.Entry}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    segmentFlags(phdr.Flags),
		})
	}

	return prog, nil
}

func segmentFlags(pf elf.ProgFlag) SegmentFlags {
	var flags SegmentFlags
	if pf&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if pf&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if pf&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}
	return flags
}

// LoadRaw reads a flat binary and places it at base.
func LoadRaw(path string, base uint64) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}
	return FromBytes(base, data), nil
}

// FromBytes wraps code as a single executable segment at base.
func FromBytes(base uint64, code []byte) *Program {
	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     code,
			MemSize:  uint64(len(code)),
			Flags:    SegmentFlagExecute | SegmentFlagRead,
		}},
	}
}

// FromWords stores 32-bit words little-endian as a program at base.
func FromWords(base uint64, words []uint32) *Program {
	code := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(code[4*i:], w)
	}
	return FromBytes(base, code)
}

// ParseHex reads 32-bit instruction words written in hex, separated by
// whitespace or commas. A 0x prefix is optional and '#' starts a comment.
func ParseHex(r io.Reader) ([]uint32, error) {
	var words []uint32

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.FieldsFunc(line, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t' || c == '\r'
		})
		for _, field := range fields {
			digits := strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
			w, err := strconv.ParseUint(digits, 16, 32)
			if err != nil {
				return nil, fmt.Errorf("failed to parse hex word %q on line %d: %w", field, lineNo, err)
			}
			words = append(words, uint32(w))
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex words: %w", err)
	}

	return words, nil
}

// LoadHex reads a hex word listing from path and places it at base.
func LoadHex(path string, base uint64) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex image: %w", err)
	}
	defer func() { _ = f.Close() }()

	words, err := ParseHex(f)
	if err != nil {
		return nil, err
	}
	return FromWords(base, words), nil
}
