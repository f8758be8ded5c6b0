// Package ctftest builds CTF buffers and ELF objects for tests.
package ctftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"

	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// Info packs a type info word.
func Info(kind sections.Kind, root bool, vlen uint16) uint16 {
	info := uint16(kind)<<11 | vlen&sections.CTF_MAX_VLEN
	if root {
		info |= 1 << 10
	}
	return info
}

// Encoding packs an integer or float encoding word.
func Encoding(enc, off uint8, bits uint16) uint32 {
	return uint32(enc)<<24 | uint32(off)<<16 | uint32(bits)
}

// EncodeHeader serializes h in the on-disk layout.
func EncodeHeader(h *sections.Header) []byte {
	buf := make([]byte, sections.HeaderSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:], h.Magic)
	buf[2] = h.Version
	buf[3] = h.Flags
	le.PutUint32(buf[4:], uint32(h.ParentLabel))
	le.PutUint32(buf[8:], uint32(h.ParentName))
	le.PutUint32(buf[12:], h.LabelOffset)
	le.PutUint32(buf[16:], h.ObjectOffset)
	le.PutUint32(buf[20:], h.FunctionOffset)
	le.PutUint32(buf[24:], h.TypeOffset)
	le.PutUint32(buf[28:], h.StringOffset)
	le.PutUint32(buf[32:], h.StringLength)
	return buf
}

// Member describes a struct or union member for the builder.
type Member struct {
	Name   string
	Type   uint16
	Offset uint64
}

// Enumerator describes an enum value for the builder.
type Enumerator struct {
	Name  string
	Value int32
}

// Builder assembles a CTF buffer section by section. Sections are laid out
// in header order; the function section is padded with a zero word when
// needed to keep the type section 4-byte aligned.
type Builder struct {
	Compress bool

	parentLabel sections.NameRef
	parentName  sections.NameRef

	labels  bytes.Buffer
	objects bytes.Buffer
	funcs   bytes.Buffer
	types   bytes.Buffer
	strtab  bytes.Buffer
	strs    map[string]sections.NameRef
	ntypes  uint16
}

// New returns an empty builder. The string table starts with the empty
// string at offset 0.
func New() *Builder {
	b := &Builder{strs: map[string]sections.NameRef{"": 0}}
	b.strtab.WriteByte(0)
	return b
}

// Name interns s in the string table and returns its reference.
func (b *Builder) Name(s string) sections.NameRef {
	if ref, ok := b.strs[s]; ok {
		return ref
	}
	ref := sections.NameRef(b.strtab.Len())
	b.strtab.WriteString(s)
	b.strtab.WriteByte(0)
	b.strs[s] = ref
	return ref
}

// Parent sets the parent label and name.
func (b *Builder) Parent(label, name string) *Builder {
	b.parentLabel = b.Name(label)
	b.parentName = b.Name(name)
	return b
}

// Label appends a label entry.
func (b *Builder) Label(name string, typeIndex uint32) *Builder {
	b.put32(&b.labels, uint32(b.Name(name)))
	b.put32(&b.labels, typeIndex)
	return b
}

// Object appends a data object entry.
func (b *Builder) Object(typeIndex uint16) *Builder {
	b.put16(&b.objects, typeIndex)
	return b
}

// Function appends a function entry with its return and argument types.
func (b *Builder) Function(ret uint16, args ...uint16) *Builder {
	b.put16(&b.funcs, Info(sections.CTF_K_FUNCTION, false, uint16(len(args))))
	b.put16(&b.funcs, ret)
	for _, a := range args {
		b.put16(&b.funcs, a)
	}
	return b
}

// FunctionFiller appends a filler word to the function section.
func (b *Builder) FunctionFiller() *Builder {
	b.put16(&b.funcs, 0)
	return b
}

// FunctionWords appends raw words to the function section.
func (b *Builder) FunctionWords(words ...uint16) *Builder {
	for _, w := range words {
		b.put16(&b.funcs, w)
	}
	return b
}

// typeHeader writes a short or long type header. It returns the new type's
// index.
func (b *Builder) typeHeader(kind sections.Kind, name string, root bool, vlen uint16, size uint64) uint16 {
	b.put32(&b.types, uint32(b.Name(name)))
	b.put16(&b.types, Info(kind, root, vlen))
	if size > sections.CTF_MAX_SIZE {
		b.put16(&b.types, sections.CTF_LSIZE_SENT)
		b.put32(&b.types, uint32(size>>32))
		b.put32(&b.types, uint32(size))
	} else {
		b.put16(&b.types, uint16(size))
	}
	b.ntypes++
	return b.ntypes
}

// Integer appends a root CTF_K_INTEGER record.
func (b *Builder) Integer(name string, enc uint8, bits uint16) uint16 {
	id := b.typeHeader(sections.CTF_K_INTEGER, name, true, 0, uint64((bits+7)/8))
	b.put32(&b.types, Encoding(enc, 0, bits))
	return id
}

// Float appends a root CTF_K_FLOAT record.
func (b *Builder) Float(name string, enc uint8, bits uint16) uint16 {
	id := b.typeHeader(sections.CTF_K_FLOAT, name, true, 0, uint64((bits+7)/8))
	b.put32(&b.types, Encoding(enc, 0, bits))
	return id
}

// Ref appends a pointer, typedef or qualifier record referring to ref.
func (b *Builder) Ref(kind sections.Kind, name string, ref uint16) uint16 {
	return b.typeHeader(kind, name, true, 0, uint64(ref))
}

// Array appends a CTF_K_ARRAY record.
func (b *Builder) Array(contents, index uint16, nelems uint32) uint16 {
	id := b.typeHeader(sections.CTF_K_ARRAY, "", true, 0, 0)
	b.put16(&b.types, contents)
	b.put16(&b.types, index)
	b.put32(&b.types, nelems)
	return id
}

// FuncType appends a CTF_K_FUNCTION record, padded to an even number of
// argument words.
func (b *Builder) FuncType(name string, ret uint16, args ...uint16) uint16 {
	id := b.typeHeader(sections.CTF_K_FUNCTION, name, true, uint16(len(args)), uint64(ret))
	for _, a := range args {
		b.put16(&b.types, a)
	}
	if len(args)%2 == 1 {
		b.put16(&b.types, 0)
	}
	return id
}

// Struct appends a CTF_K_STRUCT or CTF_K_UNION record. Members use the wide
// layout when size reaches CTF_LSTRUCT_THRESH.
func (b *Builder) Struct(kind sections.Kind, name string, size uint64, members ...Member) uint16 {
	id := b.typeHeader(kind, name, true, uint16(len(members)), size)
	for _, m := range members {
		b.put32(&b.types, uint32(b.Name(m.Name)))
		b.put16(&b.types, m.Type)
		if size >= sections.CTF_LSTRUCT_THRESH {
			b.put16(&b.types, 0)
			b.put32(&b.types, uint32(m.Offset>>32))
			b.put32(&b.types, uint32(m.Offset))
		} else {
			b.put16(&b.types, uint16(m.Offset))
		}
	}
	return id
}

// Enum appends a CTF_K_ENUM record.
func (b *Builder) Enum(name string, values ...Enumerator) uint16 {
	id := b.typeHeader(sections.CTF_K_ENUM, name, true, uint16(len(values)), 4)
	for _, v := range values {
		b.put32(&b.types, uint32(b.Name(v.Name)))
		b.put32(&b.types, uint32(v.Value))
	}
	return id
}

// Forward appends a CTF_K_FORWARD record.
func (b *Builder) Forward(name string) uint16 {
	return b.typeHeader(sections.CTF_K_FORWARD, name, true, 0, 0)
}

// TypeHeader appends a bare type header with no payload, for records whose
// body is written with TypeBytes.
func (b *Builder) TypeHeader(kind sections.Kind, name string, vlen uint16, size uint64) uint16 {
	return b.typeHeader(kind, name, true, vlen, size)
}

// TypeBytes appends raw bytes to the type section.
func (b *Builder) TypeBytes(p []byte) *Builder {
	b.types.Write(p)
	return b
}

// Header returns the header describing the buffer built so far.
func (b *Builder) Header() *sections.Header {
	h := &sections.Header{
		Magic:       sections.CTF_MAGIC,
		Version:     sections.CTF_VERSION,
		ParentLabel: b.parentLabel,
		ParentName:  b.parentName,
	}
	if b.Compress {
		h.Flags |= sections.CTF_F_COMPRESS
	}

	off := uint32(0)
	h.LabelOffset = off
	off += uint32(b.labels.Len())
	h.ObjectOffset = off
	off += uint32(b.objects.Len())
	h.FunctionOffset = off
	off += uint32(b.funcs.Len())
	off += b.funcPad()
	h.TypeOffset = off
	off += uint32(b.types.Len())
	h.StringOffset = off
	h.StringLength = uint32(b.strtab.Len())
	return h
}

func (b *Builder) funcPad() uint32 {
	end := b.labels.Len() + b.objects.Len() + b.funcs.Len()
	return uint32(end & 3)
}

// Payload returns the uncompressed payload that follows the header.
func (b *Builder) Payload() []byte {
	var p bytes.Buffer
	p.Write(b.labels.Bytes())
	p.Write(b.objects.Bytes())
	p.Write(b.funcs.Bytes())
	p.Write(make([]byte, b.funcPad()))
	p.Write(b.types.Bytes())
	p.Write(b.strtab.Bytes())
	return p.Bytes()
}

// Bytes returns the complete buffer, header included, compressing the
// payload when Compress is set.
func (b *Builder) Bytes() []byte {
	payload := b.Payload()
	if b.Compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		zw.Write(payload)
		zw.Close()
		payload = z.Bytes()
	}
	return append(EncodeHeader(b.Header()), payload...)
}

func (b *Builder) put16(buf *bytes.Buffer, v uint16) {
	buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (b *Builder) put32(buf *bytes.Buffer, v uint32) {
	buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}
