package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/rvjit/asm"
)

// Image formats.
const (
	FormatAuto = ""
	FormatELF  = "elf"
	FormatRaw  = "raw"
	FormatHex  = "hex"
	FormatAsm  = "asm"
)

// Formats lists the accepted image formats.
var Formats = []string{FormatAuto, FormatELF, FormatRaw, FormatHex, FormatAsm}

// DetectFormat picks a format from the file extension. Unknown extensions
// are taken to be ELF.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".s", ".asm":
		return FormatAsm
	case ".hex":
		return FormatHex
	case ".bin", ".raw":
		return FormatRaw
	}
	return FormatELF
}

// LoadFile loads an image in the given format. base places raw, hex and
// assembly images; ELF images carry their own addresses.
func LoadFile(path, format string, base uint64) (*Program, error) {
	if format == FormatAuto {
		format = DetectFormat(path)
	}

	switch format {
	case FormatELF:
		return Load(path)
	case FormatRaw:
		return LoadRaw(path, base)
	case FormatHex:
		return LoadHex(path, base)
	case FormatAsm:
		return LoadAsm(path, base)
	}

	return nil, fmt.Errorf("unknown image format %q", format)
}

// LoadAsm assembles a source file at base. The listing is kept in Source.
func LoadAsm(path string, base uint64) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open assembly source: %w", err)
	}
	defer func() { _ = f.Close() }()

	a := &asm.Assembler{Base: base}
	src, err := a.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", filepath.Base(path), err)
	}

	prog := FromBytes(base, src.Bytes())
	prog.Source = src
	return prog, nil
}
