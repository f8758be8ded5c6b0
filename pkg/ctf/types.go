// Package ctf provides high-level access to CTF (Compact C Type Format) data.
package ctf

import (
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// HeaderInfo is the decoded header with names resolved.
type HeaderInfo struct {
	Magic          uint16 `json:"magic"`
	Version        uint8  `json:"version"`
	Flags          uint8  `json:"flags"`
	Compressed     bool   `json:"compressed"`
	ParentLabel    string `json:"parent_label"`
	ParentName     string `json:"parent_name"`
	LabelOffset    uint32 `json:"label_offset"`
	ObjectOffset   uint32 `json:"object_offset"`
	FunctionOffset uint32 `json:"function_offset"`
	TypeOffset     uint32 `json:"type_offset"`
	StringOffset   uint32 `json:"string_offset"`
	StringLength   uint32 `json:"string_length"`
}

// Label represents a label entry.
type Label struct {
	Name      string `json:"name"`
	TypeIndex uint32 `json:"type_index"`
}

// Object represents a data object and the symbol it describes.
type Object struct {
	Index     uint32 `json:"index"`
	TypeIndex uint16 `json:"type_index"`
	TypeName  string `json:"type_name"`
	Symbol    string `json:"symbol,omitempty"`
	SymIndex  int    `json:"symbol_index,omitempty"`
}

// Function represents a function entry and the symbol it describes.
type Function struct {
	Index      uint32   `json:"index"`
	Symbol     string   `json:"symbol,omitempty"`
	SymIndex   int      `json:"symbol_index,omitempty"`
	ReturnType uint16   `json:"return_type"`
	Args       []uint16 `json:"args"`
	Signature  string   `json:"signature"`
	Truncated  bool     `json:"truncated,omitempty"`
}

// TypeInfo represents a parsed type.
type TypeInfo struct {
	Index     uint16          `json:"index"`
	Kind      sections.Kind   `json:"kind"`
	Name      string          `json:"name"`
	Root      bool            `json:"root"`
	Size      uint64          `json:"size,omitempty"`
	Encoding  string          `json:"encoding,omitempty"`
	Offset    uint8           `json:"offset,omitempty"`
	Bits      uint16          `json:"bits,omitempty"`
	Refers    uint16          `json:"refers,omitempty"`
	Array     *sections.Array `json:"array,omitempty"`
	Args      []uint16        `json:"args,omitempty"`
	Signature string          `json:"signature"`
	Members   []Member        `json:"members,omitempty"`
	Enums     []Enumerator    `json:"enums,omitempty"`
	Truncated bool            `json:"truncated,omitempty"`
}

// Member represents a struct/union member.
type Member struct {
	Name     string `json:"name"`
	Type     uint16 `json:"type"`
	TypeName string `json:"type_name"`
	Offset   uint64 `json:"offset"`
}

// Enumerator represents one value of an enum.
type Enumerator struct {
	Name  string `json:"name"`
	Value int32  `json:"value"`
}

// Report is the whole decoded buffer, limited to the selected sections.
type Report struct {
	Header    *HeaderInfo            `json:"header,omitempty"`
	Labels    []Label                `json:"labels,omitempty"`
	Objects   []Object               `json:"objects,omitempty"`
	Functions []Function             `json:"functions,omitempty"`
	Types     []TypeInfo             `json:"types,omitempty"`
	Strings   []sections.StringEntry `json:"strings,omitempty"`
	Stats     *Stats                 `json:"stats,omitempty"`
}
