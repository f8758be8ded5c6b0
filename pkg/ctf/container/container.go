// Package container extracts CTF buffers from ELF files or raw CTF files.
package container

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
)

// SectionName is the name of the ELF section holding CTF data.
const SectionName = ".SUNW_ctf"

// Container is an opened input file: either an ELF object with a
// .SUNW_ctf section or a bare CTF file.
type Container struct {
	path    string
	isELF   bool
	buffers [][]byte
	symbols *SymbolTable
}

// Open reads the file at path and locates its CTF data.
func Open(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.path = path
	return c, nil
}

// Parse locates the CTF data in an in-memory file. Files that do not start
// with the ELF magic are treated as bare CTF.
func Parse(data []byte) (*Container, error) {
	if !bytes.HasPrefix(data, []byte(elf.ELFMAG)) {
		return &Container{buffers: [][]byte{data}}, nil
	}

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, ctferrors.Wrap(ctferrors.PhaseContainer, ctferrors.KindCorrupted, err, "elf")
	}
	defer f.Close()

	c := &Container{isELF: true}

	sect := f.Section(SectionName)
	if sect == nil {
		return nil, ctferrors.New(ctferrors.PhaseContainer, ctferrors.KindSectionNotFound,
			"%s section not found", SectionName)
	}

	ctf, err := sect.Data()
	if err != nil {
		return nil, ctferrors.Wrap(ctferrors.PhaseContainer, ctferrors.KindCorrupted, err,
			"failed to read %s", SectionName)
	}
	if len(ctf) == 0 {
		return nil, ctferrors.New(ctferrors.PhaseContainer, ctferrors.KindEmptySection,
			"%s section size is zero", SectionName)
	}
	c.buffers = [][]byte{ctf}

	syms, err := f.Symbols()
	switch {
	case errors.Is(err, elf.ErrNoSymbols):
		Logger().Warn("symbol table not found")
	case err != nil:
		Logger().Warn("failed to read symbol table", zap.Error(err))
	default:
		c.symbols = NewSymbolTable(syms)
	}

	return c, nil
}

// Path returns the path the container was opened from, if any.
func (c *Container) Path() string {
	return c.path
}

// IsELF reports whether the CTF data came from an ELF section.
func (c *Container) IsELF() bool {
	return c.isELF
}

// Buffers returns the raw, possibly compressed, CTF buffers.
func (c *Container) Buffers() [][]byte {
	return c.buffers
}

// Symbols returns the ELF symbol table, or nil if there is none.
func (c *Container) Symbols() *SymbolTable {
	return c.symbols
}
