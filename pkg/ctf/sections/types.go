package sections

import (
	"encoding/binary"

	"go.uber.org/zap"

	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
)

// Type record layout sizes
const (
	ShortTypeSize = 8  // ctf_stype: name, info, size/type
	LongTypeSize  = 16 // ctf_type: ctf_stype + lsizehi, lsizelo
	ArraySize     = 8  // ctf_array: contents, index, nelems
	MemberSize    = 8  // ctf_member: name, type, offset
	LMemberSize   = 16 // ctf_lmember: name, type, pad, offsethi, offsetlo
	EnumSize      = 8  // ctf_enum: name, value
)

// Array is the payload of a CTF_K_ARRAY record.
type Array struct {
	Contents uint16 `json:"contents"` // Element type
	Index    uint16 `json:"index"`    // Index type
	Nelems   uint32 `json:"nelems"`
}

// Member is a struct or union member.
type Member struct {
	Name   NameRef `json:"name"`
	Type   uint16  `json:"type"`
	Offset uint64  `json:"offset"` // Offset in bits
}

// Enumerator is one name/value pair of an enum.
type Enumerator struct {
	Name  NameRef `json:"name"`
	Value int32   `json:"value"`
}

// MemberLayout selects the on-disk member record of a struct or union.
type MemberLayout uint8

const (
	MemberNarrow MemberLayout = iota // ctf_member, 16-bit offsets
	MemberWide                       // ctf_lmember, 64-bit offsets
)

// TypeRecord is one decoded record of the type section. The kind selects
// which of the payload fields is set.
type TypeRecord struct {
	Offset   uint32  `json:"offset"` // Payload offset of the record
	Kind     Kind    `json:"kind"`
	Name     NameRef `json:"name"`
	Root     bool    `json:"root"`
	Vlen     uint16  `json:"vlen"`
	Size     uint64  `json:"size"`
	Type     uint16  `json:"type"` // Referenced type, or return type of a function
	LongForm bool    `json:"long_form,omitempty"`

	Encoding *Encoding    `json:"encoding,omitempty"` // CTF_K_INTEGER, CTF_K_FLOAT
	Array    *Array       `json:"array,omitempty"`    // CTF_K_ARRAY
	Args     []uint16     `json:"args,omitempty"`     // CTF_K_FUNCTION
	Layout   MemberLayout `json:"layout,omitempty"`   // CTF_K_STRUCT, CTF_K_UNION
	Members  []Member     `json:"members,omitempty"`  // CTF_K_STRUCT, CTF_K_UNION
	Enums    []Enumerator `json:"enums,omitempty"`    // CTF_K_ENUM

	Truncated bool `json:"truncated,omitempty"` // Member or enumerator list cut short
}

// HasReference reports whether Type names a referenced type.
func (t *TypeRecord) HasReference() bool {
	switch t.Kind {
	case CTF_K_POINTER, CTF_K_TYPEDEF, CTF_K_VOLATILE, CTF_K_CONST, CTF_K_RESTRICT:
		return true
	}
	return false
}

// typeReader bounds-checks reads of one record against the payload.
type typeReader struct {
	payload []byte
	limit   int64
	start   int64 // payload offset of the record
}

func (r *typeReader) fits(off, n int64) bool {
	return r.start+off+n <= r.limit
}

func (r *typeReader) u16(off int64) uint16 {
	return binary.LittleEndian.Uint16(r.payload[r.start+off:])
}

func (r *typeReader) u32(off int64) uint32 {
	return binary.LittleEndian.Uint32(r.payload[r.start+off:])
}

func (r *typeReader) overflow(off int64, format string, args ...any) error {
	return ctferrors.At(ctferrors.PhaseTypes, ctferrors.KindOffsetOverflow,
		r.start+off, "offset exceeds CTF section: "+format, args...)
}

// DecodeType decodes the type record at payload offset off. It returns the
// record and the number of bytes it occupies, so that the next record
// starts at off+consumed. DecodeType has no state: decoding the same bytes
// at the same offset always yields the same result.
func DecodeType(h *Header, payload []byte, off uint32) (TypeRecord, uint32, error) {
	r := &typeReader{
		payload: payload,
		limit:   h.limit(payload),
		start:   int64(off),
	}
	stroff := int64(h.StringOffset)

	if !r.fits(0, ShortTypeSize) {
		return TypeRecord{}, 0, r.overflow(0, "type header")
	}

	info := r.u16(4)
	word := r.u16(6)
	rec := TypeRecord{
		Offset: off,
		Kind:   InfoKind(info),
		Name:   NameRef(r.u32(0)),
		Root:   InfoIsRoot(info),
		Vlen:   InfoVlen(info),
		Size:   uint64(word),
		Type:   word,
	}

	toff := int64(ShortTypeSize)
	if word > CTF_MAX_SIZE {
		if !r.fits(0, LongTypeSize) {
			return TypeRecord{}, 0, r.overflow(0, "long type header")
		}
		rec.Size = uint64(r.u32(8))<<32 | uint64(r.u32(12))
		rec.LongForm = true
		toff = LongTypeSize
	}

	vlen := int64(rec.Vlen)

	switch rec.Kind {
	case CTF_K_UNKNOWN, CTF_K_FORWARD:
		// No payload.

	case CTF_K_INTEGER, CTF_K_FLOAT:
		if !r.fits(toff, 4) {
			return TypeRecord{}, 0, r.overflow(toff, "%s encoding", rec.Kind)
		}
		enc := DecodeEncoding(r.u32(toff))
		rec.Encoding = &enc
		toff += 4

	case CTF_K_ARRAY:
		if !r.fits(toff, ArraySize) {
			return TypeRecord{}, 0, r.overflow(toff, "array descriptor")
		}
		rec.Array = &Array{
			Contents: r.u16(toff),
			Index:    r.u16(toff + 2),
			Nelems:   r.u32(toff + 4),
		}
		toff += ArraySize

	case CTF_K_FUNCTION:
		// An argument beyond the buffer is fatal, unlike a short member
		// list which only truncates the record.
		rec.Args = make([]uint16, 0, vlen)
		for i := int64(0); i < vlen; i++ {
			argOff := toff + 2*i
			if !r.fits(argOff, 2) {
				return TypeRecord{}, 0, r.overflow(argOff, "argument %d of %d", i, vlen)
			}
			rec.Args = append(rec.Args, r.u16(argOff))
		}
		toff += (vlen + vlen&1) * 2

	case CTF_K_STRUCT, CTF_K_UNION:
		size := int64(MemberSize)
		if rec.Size >= CTF_LSTRUCT_THRESH {
			rec.Layout = MemberWide
			size = LMemberSize
		}
		rec.Members = make([]Member, 0, vlen)
		for i := int64(0); i < vlen; i++ {
			memOff := toff + i*size
			if r.start+memOff+size > stroff || !r.fits(memOff, size) {
				rec.Truncated = true
				break
			}
			m := Member{
				Name: NameRef(r.u32(memOff)),
				Type: r.u16(memOff + 4),
			}
			if rec.Layout == MemberWide {
				m.Offset = uint64(r.u32(memOff+8))<<32 | uint64(r.u32(memOff+12))
			} else {
				m.Offset = uint64(r.u16(memOff + 6))
			}
			rec.Members = append(rec.Members, m)
		}
		toff += vlen * size

	case CTF_K_ENUM:
		rec.Enums = make([]Enumerator, 0, vlen)
		for i := int64(0); i < vlen; i++ {
			enumOff := toff + i*EnumSize
			if r.start+enumOff+EnumSize > stroff || !r.fits(enumOff, EnumSize) {
				rec.Truncated = true
				break
			}
			rec.Enums = append(rec.Enums, Enumerator{
				Name:  NameRef(r.u32(enumOff)),
				Value: int32(r.u32(enumOff + 4)),
			})
		}
		toff += vlen * EnumSize

	case CTF_K_POINTER, CTF_K_TYPEDEF, CTF_K_VOLATILE, CTF_K_CONST, CTF_K_RESTRICT:
		// The referenced type is the size/type word.

	default:
		return TypeRecord{}, 0, ctferrors.At(ctferrors.PhaseTypes, ctferrors.KindInvalidKind,
			int64(off), "incorrect type %d", uint8(rec.Kind))
	}

	if rec.Truncated {
		Logger().Debug("type record truncated",
			zap.Uint32("offset", off),
			zap.Stringer("kind", rec.Kind),
			zap.Uint16("vlen", rec.Vlen))
	}

	return rec, uint32(toff), nil
}

// TypeIterator walks the type section from the type offset to the string
// offset, one record at a time. Records are numbered from 1.
type TypeIterator struct {
	hdr     *Header
	payload []byte
	off     uint32
	index   uint32
	rec     TypeRecord
	err     error
}

// NewTypeIterator creates an iterator over the type section.
func NewTypeIterator(h *Header, payload []byte) *TypeIterator {
	return &TypeIterator{
		hdr:     h,
		payload: payload,
		off:     h.TypeOffset,
	}
}

// Next decodes the next record. It returns false at the end of the section
// or on a fatal error, which Err then reports.
func (it *TypeIterator) Next() bool {
	if it.err != nil || it.off >= it.hdr.StringOffset {
		return false
	}

	rec, consumed, err := DecodeType(it.hdr, it.payload, it.off)
	if err != nil {
		it.err = err
		return false
	}

	it.rec = rec
	it.index++
	it.off += consumed
	return true
}

// Record returns the current record.
func (it *TypeIterator) Record() TypeRecord {
	return it.rec
}

// Index returns the 1-based index of the current record.
func (it *TypeIterator) Index() uint32 {
	return it.index
}

// Err returns the error that stopped the walk, if any.
func (it *TypeIterator) Err() error {
	return it.err
}
