package sections

import (
	"bytes"
)

// NameRef is a packed reference into a string table: bit 31 selects the
// table, the remaining bits are a byte offset.
type NameRef uint32

// String table selectors
const (
	CTF_STRTAB_0 = 0 // Local string table
	CTF_STRTAB_1 = 1 // External (ELF) string table
	CTF_MAX_NAME = 0x7fffffff
)

// Sentinels returned by ResolveName when a name cannot be read locally.
const (
	NameExternal      = "external"
	NameExceedsStrtab = "exceeds strtab"
	NameInvalid       = "invalid"
	NameAnonymous     = "(anon)"
)

// Table returns the string table selector.
func (n NameRef) Table() uint32 {
	return uint32(n) >> 31
}

// Offset returns the byte offset within the selected table.
func (n NameRef) Offset() uint32 {
	return uint32(n) & CTF_MAX_NAME
}

// IsExternal reports whether the name lives outside this CTF buffer.
func (n NameRef) IsExternal() bool {
	return n.Table() != CTF_STRTAB_0
}

// ResolveName returns the display string for ref. It never fails:
// references that cannot be read degrade to one of the Name* sentinels.
func ResolveName(h *Header, payload []byte, ref NameRef) string {
	if ref.IsExternal() {
		return NameExternal
	}
	if ref.Offset() >= h.StringLength {
		return NameExceedsStrtab
	}

	start := int64(h.StringOffset) + int64(ref.Offset())
	if start >= h.limit(payload) {
		return NameInvalid
	}

	name, _ := parseString(payload[start:h.limit(payload)])
	if name == "" {
		return NameAnonymous
	}
	return name
}

// parseString parses a null-terminated string from data.
// Returns the string and number of bytes consumed (including null).
func parseString(data []byte) (string, int) {
	idx := bytes.IndexByte(data, 0)
	if idx == -1 {
		return string(data), len(data)
	}
	return string(data[:idx]), idx + 1
}

// StringEntry is one string of the string table.
type StringEntry struct {
	Offset uint32 `json:"offset"`
	Value  string `json:"value"`
}

// StringIterator walks every NUL-terminated string of the string table.
type StringIterator struct {
	hdr     *Header
	payload []byte
	off     uint32
	entry   StringEntry
}

// NewStringIterator creates an iterator over the string table.
func NewStringIterator(h *Header, payload []byte) *StringIterator {
	return &StringIterator{hdr: h, payload: payload}
}

// Next advances to the next string. It returns false at the end of the
// table or of the payload, whichever comes first.
func (it *StringIterator) Next() bool {
	if it.off >= it.hdr.StringLength {
		return false
	}

	start := int64(it.hdr.StringOffset) + int64(it.off)
	end := int64(it.hdr.StringOffset) + int64(it.hdr.StringLength)
	if limit := it.hdr.limit(it.payload); end > limit {
		end = limit
	}
	if start >= end {
		return false
	}

	value, n := parseString(it.payload[start:end])
	it.entry = StringEntry{Offset: it.off, Value: value}
	it.off += uint32(n)
	return true
}

// Entry returns the current string.
func (it *StringIterator) Entry() StringEntry {
	return it.entry
}
