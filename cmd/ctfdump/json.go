package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/jtang613/goctf/pkg/ctf"
)

// fileReport labels a report with its file name when several files are
// dumped.
type fileReport struct {
	File string `json:"file,omitempty"`
	*ctf.Report
}

type fileType struct {
	File string `json:"file,omitempty"`
	*ctf.TypeInfo
}

// jsonRenderer writes one JSON document per buffer.
type jsonRenderer struct {
	sections  ctf.Section
	typeIndex uint16
	pretty    bool
}

func (j *jsonRenderer) Render(w io.Writer, label string, f *ctf.File) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if j.pretty {
		enc.SetIndent("", "  ")
	}

	if j.typeIndex != 0 {
		ti := f.ResolveType(j.typeIndex)
		if ti == nil {
			return fmt.Errorf("type %d not found", j.typeIndex)
		}
		return enc.Encode(fileType{File: label, TypeInfo: ti})
	}

	// A fatal error still leaves a usable partial report.
	rep, repErr := f.Report(j.sections)
	if err := enc.Encode(fileReport{File: label, Report: rep}); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return repErr
}
