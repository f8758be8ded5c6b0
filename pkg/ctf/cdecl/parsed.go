package cdecl

import (
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// ParsedType represents a fully parsed type.
type ParsedType struct {
	Index     uint16
	Kind      sections.Kind
	Name      string
	Size      uint64
	Signature string
	Truncated bool
	Members   []ParsedMember
	Enums     []ParsedEnumerator
}

// ParsedMember represents a member of a struct/union.
type ParsedMember struct {
	Name     string
	TypeIdx  uint16
	TypeName string
	Offset   uint64
}

// ParsedEnumerator represents one value of an enum.
type ParsedEnumerator struct {
	Name  string
	Value int32
}

// ParseType parses a type fully, resolving member types. It returns nil
// for indexes without a record.
func (r *TypeResolver) ParseType(typeIdx uint16) *ParsedType {
	rec := r.Record(typeIdx)
	if rec == nil {
		return nil
	}

	parsed := &ParsedType{
		Index:     typeIdx,
		Kind:      rec.Kind,
		Name:      r.name(rec.Name),
		Signature: r.ResolveType(typeIdx),
		Truncated: rec.Truncated,
	}

	switch rec.Kind {
	case sections.CTF_K_INTEGER, sections.CTF_K_FLOAT, sections.CTF_K_STRUCT,
		sections.CTF_K_UNION, sections.CTF_K_ENUM:
		parsed.Size = rec.Size
	}

	for _, m := range rec.Members {
		parsed.Members = append(parsed.Members, ParsedMember{
			Name:     r.name(m.Name),
			TypeIdx:  m.Type,
			TypeName: r.ResolveType(m.Type),
			Offset:   m.Offset,
		})
	}

	for _, e := range rec.Enums {
		parsed.Enums = append(parsed.Enums, ParsedEnumerator{
			Name:  r.name(e.Name),
			Value: e.Value,
		})
	}

	return parsed
}
