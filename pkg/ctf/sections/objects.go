package sections

import (
	"encoding/binary"
)

// ObjectEntrySize is the size of a data object entry in bytes.
const ObjectEntrySize = 2

// ObjectEntry is one entry of the data object section, paired with the
// STT_OBJECT symbol it describes.
type ObjectEntry struct {
	Index     uint32  `json:"index"`      // Position in the object section
	TypeIndex uint16  `json:"type_index"` // Type of the object
	Symbol    *Symbol `json:"symbol,omitempty"`
}

// ObjectIterator walks the data object section in fixed strides.
type ObjectIterator struct {
	payload []byte
	off     int64
	end     int64
	index   uint32
	symbols SymbolCorrelator
	entry   ObjectEntry
}

// NewObjectIterator creates an iterator from the object offset up to the
// function offset. symbols may be nil.
func NewObjectIterator(h *Header, payload []byte, symbols SymbolCorrelator) *ObjectIterator {
	return &ObjectIterator{
		payload: payload,
		off:     int64(h.ObjectOffset),
		end:     sectionEnd(h, payload, h.FunctionOffset),
		symbols: symbols,
	}
}

// Next advances to the next data object.
func (it *ObjectIterator) Next() bool {
	if it.off+ObjectEntrySize > it.end {
		return false
	}

	it.entry = ObjectEntry{
		Index:     it.index,
		TypeIndex: binary.LittleEndian.Uint16(it.payload[it.off:]),
		Symbol:    nextSymbol(it.symbols),
	}
	it.off += ObjectEntrySize
	it.index++
	return true
}

// Entry returns the current data object.
func (it *ObjectIterator) Entry() ObjectEntry {
	return it.entry
}
