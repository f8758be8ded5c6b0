package ctf

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jtang613/goctf/internal/ctftest"
	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// sampleBuilder describes a tiny C program:
//
//	int errno;
//	const char *progname;
//	int main(int, char **);
//	struct timespec { long tv_sec; long tv_nsec; };
func sampleBuilder() *ctftest.Builder {
	b := ctftest.New().Parent("", "genunix")
	b.Label("base", 6)

	intID := b.Integer("int", sections.CTF_INT_SIGNED, 32) // 1
	charID := b.Integer("char", sections.CTF_INT_CHAR, 8)  // 2
	constChar := b.Ref(sections.CTF_K_CONST, "", charID)   // 3
	str := b.Ref(sections.CTF_K_POINTER, "", constChar)    // 4
	charPtr := b.Ref(sections.CTF_K_POINTER, "", charID)   // 5
	argv := b.Ref(sections.CTF_K_POINTER, "", charPtr)     // 6
	longID := b.Integer("long", sections.CTF_INT_SIGNED, 64)
	b.Struct(sections.CTF_K_STRUCT, "timespec", 16,
		ctftest.Member{Name: "tv_sec", Type: longID, Offset: 0},
		ctftest.Member{Name: "tv_nsec", Type: longID, Offset: 64})

	b.Object(intID).Object(str)
	b.Function(intID, intID, argv)
	return b
}

func sampleSymbols() []ctftest.Symbol {
	return []ctftest.Symbol{
		{Name: "prog.c", Type: elf.STT_FILE},
		{Name: "errno", Type: elf.STT_OBJECT},
		{Name: "main", Type: elf.STT_FUNC},
		{Name: "progname", Type: elf.STT_OBJECT},
	}
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.o")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewFile_Compressed(t *testing.T) {
	plain := sampleBuilder()
	packed := sampleBuilder()
	packed.Compress = true

	f, err := NewFile(packed.Bytes())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if !f.Header().Compressed() {
		t.Error("Compressed() = false, want true")
	}
	if diff := cmp.Diff(plain.Payload(), f.Payload()); diff != "" {
		t.Errorf("Payload() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFile_Errors(t *testing.T) {
	data := sampleBuilder().Bytes()
	data[0] = 0

	_, err := NewFile(data)
	if !ctferrors.IsNotCTF(err) {
		t.Errorf("NewFile() error = %v, want bad magic", err)
	}

	packed := sampleBuilder()
	packed.Compress = true
	data = packed.Bytes()
	data = data[:len(data)-8]
	if _, err := NewFile(data); !ctferrors.IsFatal(err) {
		t.Errorf("NewFile() of a cut stream error = %v, want fatal", err)
	}

	data = packed.Bytes()
	binary.LittleEndian.PutUint32(data[32:], packed.Header().StringLength+4)
	if _, err := NewFile(data); !errors.Is(err, ctferrors.ErrLengthMismatch) {
		t.Errorf("NewFile() with a long string length error = %v, want %v", err, ctferrors.ErrLengthMismatch)
	}
}

func TestReport_SelfReferentialFunction(t *testing.T) {
	b := ctftest.New()
	fn := b.FuncType("", 1, 1, 1, 1)
	b.Object(fn)
	b.Function(fn, fn, fn, fn)

	f, err := NewFile(b.Bytes())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	done := make(chan error, 1)
	var rep *Report
	go func() {
		var err error
		rep, err = f.Report(SectionObjects | SectionFunctions | SectionTypes)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Report() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Report() did not return")
	}

	if got, want := rep.Objects[0].TypeName, "... (..., ..., ...)"; got != want {
		t.Errorf("object type = %q, want %q", got, want)
	}
	if got, want := rep.Types[0].Signature, "... (..., ..., ...)"; got != want {
		t.Errorf("type signature = %q, want %q", got, want)
	}
}

func TestOpen_Report(t *testing.T) {
	path := writeFile(t, ctftest.ELF(sampleBuilder().Bytes(), sampleSymbols()))

	files, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("Open() returned %d files, want 1", len(files))
	}

	rep, err := files[0].Report(SectionAll)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	if rep.Header.ParentName != "genunix" || rep.Header.ParentLabel != sections.NameAnonymous {
		t.Errorf("parent = %q/%q", rep.Header.ParentLabel, rep.Header.ParentName)
	}

	wantLabels := []Label{{Name: "base", TypeIndex: 6}}
	if diff := cmp.Diff(wantLabels, rep.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	wantObjects := []Object{
		{Index: 0, TypeIndex: 1, TypeName: "int", Symbol: "errno", SymIndex: 2},
		{Index: 1, TypeIndex: 4, TypeName: "const char *", Symbol: "progname", SymIndex: 4},
	}
	if diff := cmp.Diff(wantObjects, rep.Objects); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}

	wantFuncs := []Function{{
		Index:      0,
		Symbol:     "main",
		SymIndex:   3,
		ReturnType: 1,
		Args:       []uint16{1, 6},
		Signature:  "int (int, char **)",
	}}
	if diff := cmp.Diff(wantFuncs, rep.Functions); diff != "" {
		t.Errorf("functions mismatch (-want +got):\n%s", diff)
	}

	if len(rep.Types) != 8 {
		t.Fatalf("types = %d, want 8", len(rep.Types))
	}
	wantStruct := TypeInfo{
		Index:     8,
		Kind:      sections.CTF_K_STRUCT,
		Name:      "timespec",
		Root:      true,
		Size:      16,
		Signature: "struct timespec",
		Members: []Member{
			{Name: "tv_sec", Type: 7, TypeName: "long", Offset: 0},
			{Name: "tv_nsec", Type: 7, TypeName: "long", Offset: 64},
		},
	}
	if diff := cmp.Diff(wantStruct, rep.Types[7], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("struct mismatch (-want +got):\n%s", diff)
	}
	wantInt := TypeInfo{
		Index:     1,
		Kind:      sections.CTF_K_INTEGER,
		Name:      "int",
		Root:      true,
		Size:      4,
		Encoding:  "SIGNED",
		Bits:      32,
		Signature: "int",
	}
	if diff := cmp.Diff(wantInt, rep.Types[0], cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("int mismatch (-want +got):\n%s", diff)
	}
	if rep.Types[3].Refers != 3 || rep.Types[3].Signature != "const char *" {
		t.Errorf("pointer = %+v", rep.Types[3])
	}

	if len(rep.Strings) == 0 || rep.Strings[0] != (sections.StringEntry{}) {
		t.Errorf("strings should start with the empty string, got %+v", rep.Strings)
	}
	if rep.Stats != nil {
		t.Error("Stats included without SectionStats")
	}
}

func TestOpen_NotCTF(t *testing.T) {
	path := writeFile(t, []byte("#!/bin/sh\necho hello, this is not CTF at all\n"))

	files, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Open() returned %d files, want 0", len(files))
	}
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"elf without ctf", ctftest.ELF(nil, sampleSymbols()), ctferrors.ErrSectionNotFound},
		{"raw too small", []byte{0xf1, 0xcf, 2}, ctferrors.ErrTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeFile(t, tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReport_FatalType(t *testing.T) {
	b := ctftest.New()
	b.Integer("int", sections.CTF_INT_SIGNED, 32)
	b.TypeHeader(sections.CTF_K_RESTRICT+1, "bad", 0, 0)
	b.Integer("long", sections.CTF_INT_SIGNED, 64)

	f, err := NewFile(b.Bytes())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	rep, err := f.Report(SectionAll)
	if !errors.Is(err, ctferrors.ErrInvalidKind) {
		t.Fatalf("Report() error = %v, want invalid kind", err)
	}
	if len(rep.Types) != 1 || rep.Types[0].Name != "int" {
		t.Errorf("types before the failure = %+v", rep.Types)
	}
	if rep.Strings != nil {
		t.Error("strings decoded after a fatal type error")
	}
}

func TestResolveType(t *testing.T) {
	f, err := NewFile(sampleBuilder().Bytes())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	ti := f.ResolveType(6)
	if ti == nil {
		t.Fatal("ResolveType(6) = nil")
	}
	if ti.Signature != "char **" || ti.Kind != sections.CTF_K_POINTER {
		t.Errorf("ResolveType(6) = %+v", ti)
	}
	if f.ResolveType(0) != nil || f.ResolveType(100) != nil {
		t.Error("ResolveType() of a missing index returned a type")
	}
}

func TestStats(t *testing.T) {
	f, err := NewFile(sampleBuilder().Bytes())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	rep, err := f.Report(SectionStats)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	st := rep.Stats
	h := f.Header()

	want := &Stats{
		Labels:    1,
		Objects:   2,
		Functions: 1,
		Types:     8,
		TypesByKind: map[string]int{
			"INTEGER": 3,
			"CONST":   1,
			"POINTER": 3,
			"STRUCT":  1,
		},
		RootTypes: 8,
		Members:   2,
		Strings:   9,
		Sizes: SectionSizes{
			Labels:    8,
			Objects:   4,
			Functions: h.TypeOffset - h.FunctionOffset,
			Types:     h.StringOffset - h.TypeOffset,
			Strings:   h.StringLength,
		},
	}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}

	wantKinds := []string{"INTEGER", "POINTER", "STRUCT", "CONST"}
	if diff := cmp.Diff(wantKinds, st.Kinds()); diff != "" {
		t.Errorf("Kinds() mismatch (-want +got):\n%s", diff)
	}
	if rep.Header != nil || rep.Types != nil {
		t.Error("Report(SectionStats) included other sections")
	}
}

func TestSection(t *testing.T) {
	if got := SectionAll.String(); got != "header,labels,objects,functions,types,strings" {
		t.Errorf("SectionAll.String() = %q", got)
	}
	s, ok := ParseSection("types")
	if !ok || s != SectionTypes {
		t.Errorf("ParseSection(types) = %v, %v", s, ok)
	}
	if _, ok := ParseSection("bogus"); ok {
		t.Error("ParseSection(bogus) succeeded")
	}
	if SectionAll.Has(SectionStats) {
		t.Error("SectionAll includes stats")
	}
}
