package ctf

import (
	"strings"
)

// Section selects parts of a buffer for Report.
type Section uint8

const (
	SectionHeader Section = 1 << iota
	SectionLabels
	SectionObjects
	SectionFunctions
	SectionTypes
	SectionStrings
	SectionStats

	// SectionAll is every section printed by default. Statistics must be
	// asked for.
	SectionAll = SectionHeader | SectionLabels | SectionObjects |
		SectionFunctions | SectionTypes | SectionStrings
)

var sectionNames = []struct {
	s    Section
	name string
}{
	{SectionHeader, "header"},
	{SectionLabels, "labels"},
	{SectionObjects, "objects"},
	{SectionFunctions, "functions"},
	{SectionTypes, "types"},
	{SectionStrings, "strings"},
	{SectionStats, "stats"},
}

// Has reports whether every section of o is selected in s.
func (s Section) Has(o Section) bool {
	return s&o == o
}

// String lists the selected sections, separated by commas.
func (s Section) String() string {
	var names []string
	for _, sn := range sectionNames {
		if s.Has(sn.s) {
			names = append(names, sn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseSection returns the section with the given name.
func ParseSection(name string) (Section, bool) {
	for _, sn := range sectionNames {
		if sn.name == name {
			return sn.s, true
		}
	}
	return 0, false
}

// Report decodes the selected sections in file order. On a fatal error
// it returns what was decoded before the failure together with the error.
func (f *File) Report(sel Section) (*Report, error) {
	rep := &Report{}

	if sel.Has(SectionHeader) {
		rep.Header = f.HeaderInfo()
	}

	if sel.Has(SectionLabels) {
		for it := f.Labels(); it.Next(); {
			e := it.Entry()
			rep.Labels = append(rep.Labels, Label{
				Name:      f.Name(e.Label),
				TypeIndex: e.TypeIndex,
			})
		}
	}

	if sel.Has(SectionObjects) {
		r := f.Resolver()
		for it := f.Objects(); it.Next(); {
			e := it.Entry()
			obj := Object{
				Index:     e.Index,
				TypeIndex: e.TypeIndex,
				TypeName:  r.ResolveType(e.TypeIndex),
			}
			if e.Symbol != nil {
				obj.Symbol = e.Symbol.Name
				obj.SymIndex = e.Symbol.Index
			}
			rep.Objects = append(rep.Objects, obj)
		}
	}

	if sel.Has(SectionFunctions) {
		r := f.Resolver()
		for it := f.Functions(); it.Next(); {
			e := it.Entry()
			fn := Function{
				Index:      e.Index,
				ReturnType: e.ReturnType,
				Args:       e.Args,
				Signature:  r.ResolveFunction(e.ReturnType, e.Args),
				Truncated:  e.Truncated,
			}
			if e.Symbol != nil {
				fn.Symbol = e.Symbol.Name
				fn.SymIndex = e.Symbol.Index
			}
			rep.Functions = append(rep.Functions, fn)
		}
	}

	if sel.Has(SectionTypes) {
		types, err := f.AllTypes()
		for i := range types {
			rep.Types = append(rep.Types, f.typeInfo(uint16(i+1), &types[i]))
		}
		if err != nil {
			return rep, err
		}
	}

	if sel.Has(SectionStrings) {
		for it := f.Strings(); it.Next(); {
			rep.Strings = append(rep.Strings, it.Entry())
		}
	}

	if sel.Has(SectionStats) {
		stats, err := f.Stats()
		rep.Stats = stats
		if err != nil {
			return rep, err
		}
	}

	return rep, nil
}
