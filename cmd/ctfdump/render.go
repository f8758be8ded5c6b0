package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jtang613/goctf/pkg/ctf"
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// renderer writes one decoded buffer. label is the file name when several
// files are dumped, and empty otherwise.
type renderer interface {
	Render(w io.Writer, label string, f *ctf.File) error
}

func newRenderer(o *options, out io.Writer) (renderer, error) {
	if o.json {
		return &jsonRenderer{
			sections:  o.sections,
			typeIndex: uint16(o.typeIndex),
			pretty:    o.pretty,
		}, nil
	}

	pal, err := newPalette(o.color, out)
	if err != nil {
		return nil, err
	}
	return &textRenderer{
		sections:  o.sections,
		typeIndex: uint16(o.typeIndex),
		pal:       pal,
	}, nil
}

// palette highlights kind names in text output.
type palette struct {
	enabled bool
	kind    lipgloss.Style
}

func newPalette(mode string, out io.Writer) (palette, error) {
	switch mode {
	case "never":
		return palette{}, nil
	case "auto":
		f, ok := out.(*os.File)
		if !ok || !term.IsTerminal(int(f.Fd())) {
			return palette{}, nil
		}
	case "always":
	default:
		return palette{}, fmt.Errorf("invalid color mode %q", mode)
	}

	r := lipgloss.NewRenderer(out)
	if mode == "always" {
		r.SetColorProfile(termenv.ANSI256)
	}
	return palette{
		enabled: true,
		kind:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#87CEEB")),
	}, nil
}

func (p palette) Kind(k sections.Kind) string {
	if !p.enabled {
		return k.String()
	}
	return p.kind.Render(k.String())
}

// textRenderer reproduces the layout of OpenBSD ctfdump(1).
type textRenderer struct {
	sections  ctf.Section
	typeIndex uint16 // 0: dump sections
	pal       palette
}

func (t *textRenderer) Render(w io.Writer, label string, f *ctf.File) error {
	if label != "" {
		fmt.Fprintf(w, "%s:\n", label)
	}
	if t.typeIndex != 0 {
		return t.renderDecl(w, f)
	}

	sel := t.sections
	if sel.Has(ctf.SectionHeader) {
		t.renderHeader(w, f)
	}
	if sel.Has(ctf.SectionLabels) {
		t.renderLabels(w, f)
	}
	if sel.Has(ctf.SectionObjects) {
		t.renderObjects(w, f)
	}
	if sel.Has(ctf.SectionFunctions) {
		t.renderFunctions(w, f)
	}
	if sel.Has(ctf.SectionTypes) {
		if err := t.renderTypes(w, f); err != nil {
			return err
		}
	}
	if sel.Has(ctf.SectionStrings) {
		t.renderStrings(w, f)
	}
	if sel.Has(ctf.SectionStats) {
		return t.renderStats(w, f)
	}
	return nil
}

func (t *textRenderer) renderHeader(w io.Writer, f *ctf.File) {
	h := f.HeaderInfo()
	fmt.Fprintf(w, "  cth_magic    = 0x%04x\n", h.Magic)
	fmt.Fprintf(w, "  cth_version  = %d\n", h.Version)
	fmt.Fprintf(w, "  cth_flags    = 0x%02x\n", h.Flags)
	fmt.Fprintf(w, "  cth_parlabel = %s\n", h.ParentLabel)
	fmt.Fprintf(w, "  cth_parname  = %s\n", h.ParentName)
	fmt.Fprintf(w, "  cth_lbloff   = %d\n", h.LabelOffset)
	fmt.Fprintf(w, "  cth_objtoff  = %d\n", h.ObjectOffset)
	fmt.Fprintf(w, "  cth_funcoff  = %d\n", h.FunctionOffset)
	fmt.Fprintf(w, "  cth_typeoff  = %d\n", h.TypeOffset)
	fmt.Fprintf(w, "  cth_stroff   = %d\n", h.StringOffset)
	fmt.Fprintf(w, "  cth_strlen   = %d\n", h.StringLength)
	fmt.Fprintln(w)
}

func (t *textRenderer) renderLabels(w io.Writer, f *ctf.File) {
	for it := f.Labels(); it.Next(); {
		e := it.Entry()
		fmt.Fprintf(w, "  %5d %s\n", e.TypeIndex, f.Name(e.Label))
	}
	fmt.Fprintln(w)
}

func (t *textRenderer) renderObjects(w io.Writer, f *ctf.File) {
	for it := f.Objects(); it.Next(); {
		e := it.Entry()
		line := fmt.Sprintf("  [%d] %d", e.Index, e.TypeIndex)
		if e.Symbol == nil {
			fmt.Fprintln(w, line)
			continue
		}
		// Symbol names start at column 15.
		fmt.Fprintf(w, "%s%*s %s (%d)\n", line, 14-len(line), "", e.Symbol.Name, e.Symbol.Index)
	}
	fmt.Fprintln(w)
}

func (t *textRenderer) renderFunctions(w io.Writer, f *ctf.File) {
	for it := f.Functions(); it.Next(); {
		e := it.Entry()
		fmt.Fprintf(w, "  [%d] FUNC ", e.Index)
		if e.Symbol != nil {
			fmt.Fprintf(w, "(%s) ", e.Symbol.Name)
		}
		fmt.Fprintf(w, "returns: %d args: (%s)\n", e.ReturnType, joinIndexes(e.Args))
	}
	fmt.Fprintln(w)
}

func (t *textRenderer) renderTypes(w io.Writer, f *ctf.File) error {
	it := f.Types()
	for it.Next() {
		t.renderType(w, f, it.Index(), it.Record())
	}
	if err := it.Err(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func (t *textRenderer) renderType(w io.Writer, f *ctf.File, idx uint32, rec sections.TypeRecord) {
	if rec.Root {
		fmt.Fprintf(w, "  <%d> ", idx)
	} else {
		fmt.Fprintf(w, "  [%d] ", idx)
	}
	// ctfdump has no name for CTF_K_UNKNOWN and prints neither kind nor name.
	if rec.Kind != sections.CTF_K_UNKNOWN {
		fmt.Fprintf(w, "%s %s", t.pal.Kind(rec.Kind), f.Name(rec.Name))
	}

	switch rec.Kind {
	case sections.CTF_K_INTEGER, sections.CTF_K_FLOAT:
		enc := rec.Encoding
		fmt.Fprintf(w, " encoding=%s offset=%d bits=%d",
			sections.EncodingName(rec.Kind, enc.Encoding), enc.Offset, enc.Bits)

	case sections.CTF_K_ARRAY:
		fmt.Fprintf(w, " content: %d index: %d nelems: %d\n",
			rec.Array.Contents, rec.Array.Index, rec.Array.Nelems)

	case sections.CTF_K_FUNCTION:
		fmt.Fprintf(w, " returns: %d args: (%s)", rec.Type, joinIndexes(rec.Args))

	case sections.CTF_K_STRUCT, sections.CTF_K_UNION:
		fmt.Fprintf(w, " (%d bytes)\n", rec.Size)
		for _, m := range rec.Members {
			fmt.Fprintf(w, "\t%s type=%d off=%d\n", f.Name(m.Name), m.Type, m.Offset)
		}

	case sections.CTF_K_ENUM:
		fmt.Fprintln(w)
		for _, e := range rec.Enums {
			fmt.Fprintf(w, "\t%s = %d\n", f.Name(e.Name), e.Value)
		}

	case sections.CTF_K_POINTER, sections.CTF_K_TYPEDEF, sections.CTF_K_VOLATILE,
		sections.CTF_K_CONST, sections.CTF_K_RESTRICT:
		fmt.Fprintf(w, " refers to %d", rec.Type)
	}

	fmt.Fprintln(w)
}

func (t *textRenderer) renderStrings(w io.Writer, f *ctf.File) {
	for it := f.Strings(); it.Next(); {
		e := it.Entry()
		if e.Value == "" {
			fmt.Fprintf(w, "  [%d] \\0\n", e.Offset)
			continue
		}
		fmt.Fprintf(w, "  [%d] %s\n", e.Offset, e.Value)
	}
	fmt.Fprintln(w)
}

func (t *textRenderer) renderStats(w io.Writer, f *ctf.File) error {
	st, err := f.Stats()

	fmt.Fprintf(w, "  labels       = %d\n", st.Labels)
	fmt.Fprintf(w, "  objects      = %d\n", st.Objects)
	fmt.Fprintf(w, "  functions    = %d\n", st.Functions)
	fmt.Fprintf(w, "  types        = %d\n", st.Types)
	for _, k := range st.Kinds() {
		fmt.Fprintf(w, "    %-10s = %d\n", k, st.TypesByKind[k])
	}
	fmt.Fprintf(w, "  members      = %d\n", st.Members)
	fmt.Fprintf(w, "  enumerators  = %d\n", st.Enumerators)
	fmt.Fprintf(w, "  truncated    = %d\n", st.Truncated)
	fmt.Fprintf(w, "  strings      = %d\n", st.Strings)
	fmt.Fprintf(w, "  sizes        = lbl %d obj %d func %d type %d str %d\n",
		st.Sizes.Labels, st.Sizes.Objects, st.Sizes.Functions, st.Sizes.Types, st.Sizes.Strings)
	fmt.Fprintln(w)

	return err
}

// renderDecl prints the C declaration of the selected type.
func (t *textRenderer) renderDecl(w io.Writer, f *ctf.File) error {
	ti := f.ResolveType(t.typeIndex)
	if ti == nil {
		return fmt.Errorf("type %d not found", t.typeIndex)
	}

	fmt.Fprintf(w, "  [%d] %s\n", ti.Index, ti.Signature)
	for _, m := range ti.Members {
		fmt.Fprintf(w, "\t%s %s; /* off=%d */\n", m.TypeName, m.Name, m.Offset)
	}
	for _, e := range ti.Enums {
		fmt.Fprintf(w, "\t%s = %d\n", e.Name, e.Value)
	}
	return nil
}

func joinIndexes(idx []uint16) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
