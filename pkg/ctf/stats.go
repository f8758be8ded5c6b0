package ctf

import (
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// SectionSizes holds the size in bytes of each section.
type SectionSizes struct {
	Labels    uint32 `json:"labels"`
	Objects   uint32 `json:"objects"`
	Functions uint32 `json:"functions"`
	Types     uint32 `json:"types"`
	Strings   uint32 `json:"strings"`
}

// Stats summarizes the contents of a buffer.
type Stats struct {
	Labels      int            `json:"labels"`
	Objects     int            `json:"objects"`
	Functions   int            `json:"functions"`
	Types       int            `json:"types"`
	TypesByKind map[string]int `json:"types_by_kind"`
	RootTypes   int            `json:"root_types"`
	LongTypes   int            `json:"long_types"`
	Members     int            `json:"members"`
	Enumerators int            `json:"enumerators"`
	Truncated   int            `json:"truncated"`
	Strings     int            `json:"strings"`
	Compressed  bool           `json:"compressed"`
	Sizes       SectionSizes   `json:"sizes"`
}

// Stats counts the entries of every section. On a fatal type error it
// returns the counts gathered so far together with the error.
func (f *File) Stats() (*Stats, error) {
	h := f.hdr
	st := &Stats{
		TypesByKind: make(map[string]int),
		Compressed:  h.Compressed(),
		Sizes: SectionSizes{
			Labels:    h.ObjectOffset - h.LabelOffset,
			Objects:   h.FunctionOffset - h.ObjectOffset,
			Functions: h.TypeOffset - h.FunctionOffset,
			Types:     h.StringOffset - h.TypeOffset,
			Strings:   h.StringLength,
		},
	}

	for it := f.Labels(); it.Next(); {
		st.Labels++
	}
	for it := f.Objects(); it.Next(); {
		st.Objects++
	}
	for it := f.Functions(); it.Next(); {
		st.Functions++
	}
	for it := f.Strings(); it.Next(); {
		st.Strings++
	}

	types, err := f.AllTypes()
	for i := range types {
		rec := &types[i]
		st.Types++
		st.TypesByKind[rec.Kind.String()]++
		if rec.Root {
			st.RootTypes++
		}
		if rec.LongForm {
			st.LongTypes++
		}
		if rec.Truncated {
			st.Truncated++
		}
		st.Members += len(rec.Members)
		st.Enumerators += len(rec.Enums)
	}
	return st, err
}

// Kinds returns the kinds present in TypesByKind in kind order.
func (s *Stats) Kinds() []string {
	var kinds []string
	for k := sections.CTF_K_UNKNOWN; k <= sections.CTF_K_MAX; k++ {
		if _, ok := s.TypesByKind[k.String()]; ok {
			kinds = append(kinds, k.String())
		}
	}
	return kinds
}
