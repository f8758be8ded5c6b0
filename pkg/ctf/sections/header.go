// Package sections decodes the sections of a CTF buffer: header, labels,
// data objects, functions, types and the string table.
//
// All offsets in a CTF header are relative to the payload that follows the
// fixed-size header. Every walker in this package takes the validated Header
// and that payload, and checks each read against the payload before slicing.
package sections

import (
	"encoding/binary"

	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
)

// CTF magic and supported version
const (
	CTF_MAGIC      = 0xcff1
	CTF_VERSION    = 2
	CTF_F_COMPRESS = 1 << 0
)

// HeaderSize is the size of the ctf_header structure in bytes.
const HeaderSize = 36

// Header is the fixed ctf_header at the beginning of a CTF buffer.
type Header struct {
	Magic          uint16  // Must be CTF_MAGIC
	Version        uint8   // Must be CTF_VERSION
	Flags          uint8   // CTF_F_* flags
	ParentLabel    NameRef // Label of the parent container
	ParentName     NameRef // Name of the parent container
	LabelOffset    uint32  // Start of the label section
	ObjectOffset   uint32  // Start of the data object section
	FunctionOffset uint32  // Start of the function section
	TypeOffset     uint32  // Start of the type section
	StringOffset   uint32  // Start of the string table
	StringLength   uint32  // Length of the string table in bytes
}

// Compressed reports whether the payload is zlib compressed.
func (h *Header) Compressed() bool {
	return h.Flags&CTF_F_COMPRESS != 0
}

// TotalLength returns the uncompressed payload length described by the header.
func (h *Header) TotalLength() int64 {
	return int64(h.StringOffset) + int64(h.StringLength)
}

// limit returns the number of payload bytes walkers may read: the smaller
// of the declared total length and the actual payload.
func (h *Header) limit(payload []byte) int64 {
	total := h.TotalLength()
	if n := int64(len(payload)); n < total {
		return n
	}
	return total
}

// ParseHeader decodes the header fields without validating them.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ctferrors.New(ctferrors.PhaseHeader, ctferrors.KindTooSmall,
			"buffer of %d bytes is too small to be CTF", len(data))
	}

	le := binary.LittleEndian
	return &Header{
		Magic:          le.Uint16(data[0:]),
		Version:        data[2],
		Flags:          data[3],
		ParentLabel:    NameRef(le.Uint32(data[4:])),
		ParentName:     NameRef(le.Uint32(data[8:])),
		LabelOffset:    le.Uint32(data[12:]),
		ObjectOffset:   le.Uint32(data[16:]),
		FunctionOffset: le.Uint32(data[20:]),
		TypeOffset:     le.Uint32(data[24:]),
		StringOffset:   le.Uint32(data[28:]),
		StringLength:   le.Uint32(data[32:]),
	}, nil
}

// ReadHeader decodes and validates the header at the start of data.
// data must contain the whole buffer, header included.
func ReadHeader(data []byte) (*Header, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	if h.Magic != CTF_MAGIC || h.Version != CTF_VERSION {
		return nil, ctferrors.New(ctferrors.PhaseHeader, ctferrors.KindBadMagicOrVersion,
			"magic 0x%04x version %d", h.Magic, h.Version)
	}

	total := h.TotalLength()
	payloadLen := int64(len(data) - HeaderSize)
	if total > payloadLen && !h.Compressed() {
		return nil, ctferrors.New(ctferrors.PhaseHeader, ctferrors.KindBogusSize,
			"bogus file size: header describes %d bytes, buffer holds %d", total, payloadLen)
	}

	if h.LabelOffset&3 != 0 || h.ObjectOffset&1 != 0 ||
		h.FunctionOffset&1 != 0 || h.TypeOffset&3 != 0 {
		return nil, ctferrors.New(ctferrors.PhaseHeader, ctferrors.KindMisaligned,
			"wrongly aligned offset (label %d, object %d, function %d, type %d)",
			h.LabelOffset, h.ObjectOffset, h.FunctionOffset, h.TypeOffset)
	}

	if int64(h.LabelOffset) >= total || int64(h.ObjectOffset) >= total ||
		int64(h.FunctionOffset) >= total || int64(h.TypeOffset) >= total {
		return nil, ctferrors.New(ctferrors.PhaseHeader, ctferrors.KindTruncated,
			"truncated file: section start beyond %d bytes", total)
	}

	if h.LabelOffset > h.ObjectOffset ||
		h.ObjectOffset > h.FunctionOffset ||
		h.FunctionOffset > h.TypeOffset ||
		h.TypeOffset > h.StringOffset {
		return nil, ctferrors.New(ctferrors.PhaseHeader, ctferrors.KindCorrupted,
			"corrupted file: section offsets are not in order")
	}

	return h, nil
}
