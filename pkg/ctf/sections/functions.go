package sections

import (
	"encoding/binary"

	"go.uber.org/zap"
)

// FunctionEntry is one entry of the function section, paired with the
// STT_FUNC symbol it describes.
type FunctionEntry struct {
	Index      uint32   `json:"index"` // Position among the section's info words
	Kind       Kind     `json:"kind"`
	Vlen       uint16   `json:"vlen"` // Declared argument count
	ReturnType uint16   `json:"return_type"`
	Args       []uint16 `json:"args"`
	Symbol     *Symbol  `json:"symbol,omitempty"`
	Truncated  bool     `json:"truncated,omitempty"` // Section ended before all arguments were read
}

// FunctionIterator walks the function section word by word.
type FunctionIterator struct {
	payload []byte
	off     int64
	end     int64
	index   uint32
	symbols SymbolCorrelator
	entry   FunctionEntry
}

// NewFunctionIterator creates an iterator from the function offset up to
// the type offset. symbols may be nil.
func NewFunctionIterator(h *Header, payload []byte, symbols SymbolCorrelator) *FunctionIterator {
	return &FunctionIterator{
		payload: payload,
		off:     int64(h.FunctionOffset),
		end:     sectionEnd(h, payload, h.TypeOffset),
		symbols: symbols,
	}
}

func (it *FunctionIterator) word() (uint16, bool) {
	if it.off+2 > it.end {
		return 0, false
	}
	w := binary.LittleEndian.Uint16(it.payload[it.off:])
	it.off += 2
	return w, true
}

// Next advances to the next function. Filler words (kind unknown, no
// arguments) are skipped but still consume a symbol.
func (it *FunctionIterator) Next() bool {
	for {
		info, ok := it.word()
		if !ok {
			return false
		}

		kind := InfoKind(info)
		vlen := InfoVlen(info)
		sym := nextSymbol(it.symbols)
		index := it.index
		it.index++

		if kind == CTF_K_UNKNOWN && vlen == 0 {
			continue
		}

		it.entry = FunctionEntry{
			Index:  index,
			Kind:   kind,
			Vlen:   vlen,
			Symbol: sym,
			Args:   make([]uint16, 0, vlen),
		}

		ret, ok := it.word()
		if !ok {
			it.entry.Truncated = true
			Logger().Debug("function entry truncated before return type",
				zap.Uint32("index", index))
			return true
		}
		it.entry.ReturnType = ret

		for i := uint16(0); i < vlen; i++ {
			arg, ok := it.word()
			if !ok {
				it.entry.Truncated = true
				Logger().Debug("function arguments truncated at section end",
					zap.Uint32("index", index),
					zap.Uint16("vlen", vlen),
					zap.Int("read", len(it.entry.Args)))
				break
			}
			it.entry.Args = append(it.entry.Args, arg)
		}
		return true
	}
}

// Entry returns the current function.
func (it *FunctionIterator) Entry() FunctionEntry {
	return it.entry
}
