package sections

// Symbol is a symbol-table entry correlated with an object or function record.
type Symbol struct {
	Name  string `json:"name"`
	Index int    `json:"index"` // Index in the symbol table
}

// SymbolCorrelator is a stateful cursor over the symbols of one type
// (objects or functions) in symbol-table order. Next is called once per
// object or function entry, filler entries included.
type SymbolCorrelator interface {
	Next() (Symbol, bool)
}

// nextSymbol advances c and returns the symbol, or nil when c is nil or
// exhausted.
func nextSymbol(c SymbolCorrelator) *Symbol {
	if c == nil {
		return nil
	}
	sym, ok := c.Next()
	if !ok {
		return nil
	}
	return &sym
}
