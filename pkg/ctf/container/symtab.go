package container

import (
	"debug/elf"

	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// SymbolTable is the ELF .symtab of a container.
type SymbolTable struct {
	syms []elf.Symbol // as returned by debug/elf, without the null symbol
}

// NewSymbolTable wraps symbols read with debug/elf.
func NewSymbolTable(syms []elf.Symbol) *SymbolTable {
	return &SymbolTable{syms: syms}
}

// Len returns the number of symbols, the null symbol excluded.
func (t *SymbolTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.syms)
}

// Cursor returns a new cursor over the symbols of the given type.
func (t *SymbolTable) Cursor(typ elf.SymType) *SymbolCursor {
	if t == nil {
		return nil
	}
	return &SymbolCursor{syms: t.syms, typ: typ}
}

// Objects returns a new cursor over STT_OBJECT symbols.
func (t *SymbolTable) Objects() sections.SymbolCorrelator {
	return t.Cursor(elf.STT_OBJECT)
}

// Functions returns a new cursor over STT_FUNC symbols.
func (t *SymbolTable) Functions() sections.SymbolCorrelator {
	return t.Cursor(elf.STT_FUNC)
}

// SymbolCursor walks a symbol table in order, stopping at each symbol of
// one type.
type SymbolCursor struct {
	syms []elf.Symbol
	typ  elf.SymType
	next int
}

// Next returns the next symbol of the cursor's type. Index is the symbol's
// index in .symtab, counting the null symbol.
func (c *SymbolCursor) Next() (sections.Symbol, bool) {
	if c == nil {
		return sections.Symbol{}, false
	}

	for c.next < len(c.syms) {
		i := c.next
		c.next++

		sym := c.syms[i]
		if elf.ST_TYPE(sym.Info) != c.typ {
			continue
		}
		return sections.Symbol{Name: sym.Name, Index: i + 1}, true
	}
	return sections.Symbol{}, false
}
