package ctftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Symbol is a symbol written into the test ELF's .symtab.
type Symbol struct {
	Name string
	Type elf.SymType
}

type elfSection struct {
	name    string
	typ     elf.SectionType
	data    []byte
	link    uint32
	info    uint32
	entsize uint64
	align   uint64
	nameOff uint32
	offset  uint64
}

// ELF returns a little-endian ELF64 relocatable object. The object carries
// a .SUNW_ctf section holding ctf unless ctf is nil, and a .symtab when
// syms is not empty.
func ELF(ctf []byte, syms []Symbol) []byte {
	le := binary.LittleEndian

	var sects []*elfSection
	sects = append(sects, &elfSection{}) // SHN_UNDEF

	if ctf != nil {
		sects = append(sects, &elfSection{
			name:  ".SUNW_ctf",
			typ:   elf.SHT_PROGBITS,
			data:  ctf,
			align: 4,
		})
	}

	if len(syms) > 0 {
		var strtab bytes.Buffer
		strtab.WriteByte(0)

		symtab := make([]byte, 24) // null symbol
		for _, s := range syms {
			ent := make([]byte, 24)
			le.PutUint32(ent[0:], uint32(strtab.Len()))
			ent[4] = elf.ST_INFO(elf.STB_GLOBAL, s.Type)
			le.PutUint16(ent[6:], uint16(elf.SHN_ABS))
			symtab = append(symtab, ent...)
			strtab.WriteString(s.Name)
			strtab.WriteByte(0)
		}

		strIdx := uint32(len(sects) + 1)
		sects = append(sects,
			&elfSection{
				name:    ".symtab",
				typ:     elf.SHT_SYMTAB,
				data:    symtab,
				link:    strIdx,
				info:    1,
				entsize: 24,
				align:   8,
			},
			&elfSection{
				name:  ".strtab",
				typ:   elf.SHT_STRTAB,
				data:  strtab.Bytes(),
				align: 1,
			})
	}

	shstrtab := &elfSection{name: ".shstrtab", typ: elf.SHT_STRTAB, align: 1}
	sects = append(sects, shstrtab)

	var names bytes.Buffer
	names.WriteByte(0)
	for _, s := range sects[1:] {
		s.nameOff = uint32(names.Len())
		names.WriteString(s.name)
		names.WriteByte(0)
	}
	shstrtab.data = names.Bytes()

	// Layout: ELF header, section contents, section header table.
	const ehsize = 64
	off := uint64(ehsize)
	for _, s := range sects[1:] {
		if s.align > 1 {
			off = (off + s.align - 1) &^ (s.align - 1)
		}
		s.offset = off
		off += uint64(len(s.data))
	}
	shoff := (off + 7) &^ 7

	out := make([]byte, shoff+uint64(len(sects))*64)

	copy(out, elf.ELFMAG)
	out[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	out[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	out[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	le.PutUint16(out[16:], uint16(elf.ET_REL))
	le.PutUint16(out[18:], uint16(elf.EM_X86_64))
	le.PutUint32(out[20:], uint32(elf.EV_CURRENT))
	le.PutUint64(out[40:], shoff)
	le.PutUint16(out[52:], ehsize)
	le.PutUint16(out[54:], 56)
	le.PutUint16(out[58:], 64)
	le.PutUint16(out[60:], uint16(len(sects)))
	le.PutUint16(out[62:], uint16(len(sects)-1))

	for i, s := range sects {
		if i > 0 {
			copy(out[s.offset:], s.data)
		}
		sh := out[shoff+uint64(i)*64:]
		le.PutUint32(sh[0:], s.nameOff)
		le.PutUint32(sh[4:], uint32(s.typ))
		le.PutUint64(sh[24:], s.offset)
		le.PutUint64(sh[32:], uint64(len(s.data)))
		le.PutUint32(sh[40:], s.link)
		le.PutUint32(sh[44:], s.info)
		le.PutUint64(sh[48:], s.align)
		le.PutUint64(sh[56:], s.entsize)
	}

	return out
}
