package sections

import (
	"encoding/binary"
)

// LabelEntrySize is the size of a ctf_lblent in bytes.
const LabelEntrySize = 8

// LabelEntry is one entry of the label section.
type LabelEntry struct {
	Label     NameRef `json:"label"`
	TypeIndex uint32  `json:"type_index"` // Last type index covered by the label
}

// LabelIterator walks the label section in fixed strides.
type LabelIterator struct {
	payload []byte
	off     int64
	end     int64
	entry   LabelEntry
}

// NewLabelIterator creates an iterator from the label offset up to the
// object offset.
func NewLabelIterator(h *Header, payload []byte) *LabelIterator {
	return &LabelIterator{
		payload: payload,
		off:     int64(h.LabelOffset),
		end:     sectionEnd(h, payload, h.ObjectOffset),
	}
}

// Next advances to the next label. A trailing partial entry is never read.
func (it *LabelIterator) Next() bool {
	if it.off+LabelEntrySize > it.end {
		return false
	}

	data := it.payload[it.off:]
	it.entry = LabelEntry{
		Label:     NameRef(binary.LittleEndian.Uint32(data[0:])),
		TypeIndex: binary.LittleEndian.Uint32(data[4:]),
	}
	it.off += LabelEntrySize
	return true
}

// Entry returns the current label.
func (it *LabelIterator) Entry() LabelEntry {
	return it.entry
}

// sectionEnd clamps a section boundary to the readable payload.
func sectionEnd(h *Header, payload []byte, boundary uint32) int64 {
	end := int64(boundary)
	if limit := h.limit(payload); end > limit {
		end = limit
	}
	return end
}
