package cdecl

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jtang613/goctf/internal/ctftest"
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

func newResolver(t *testing.T, b *ctftest.Builder) *TypeResolver {
	t.Helper()
	h := b.Header()
	payload := b.Payload()

	var types []sections.TypeRecord
	it := sections.NewTypeIterator(h, payload)
	for it.Next() {
		types = append(types, it.Record())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("type walk error = %v", err)
	}

	return NewTypeResolver(types, func(ref sections.NameRef) string {
		return sections.ResolveName(h, payload, ref)
	})
}

func TestResolveType(t *testing.T) {
	b := ctftest.New()
	intID := b.Integer("int", sections.CTF_INT_SIGNED, 32)
	charID := b.Integer("char", sections.CTF_INT_CHAR, 8)
	constChar := b.Ref(sections.CTF_K_CONST, "", charID)
	constCharPtr := b.Ref(sections.CTF_K_POINTER, "", constChar)
	charPtr := b.Ref(sections.CTF_K_POINTER, "", charID)
	ptrConst := b.Ref(sections.CTF_K_CONST, "", charPtr)
	arr := b.Array(intID, intID, 16)
	fn := b.FuncType("", intID, constCharPtr, 0)
	fnPtr := b.Ref(sections.CTF_K_POINTER, "", fn)
	voidFn := b.FuncType("", 0)
	structID := b.Struct(sections.CTF_K_STRUCT, "timespec", 16)
	unionID := b.Struct(sections.CTF_K_UNION, "", 8)
	enumID := b.Enum("color")
	fwd := b.Forward("proc")
	typedef := b.Ref(sections.CTF_K_TYPEDEF, "size_t", intID)
	volatileInt := b.Ref(sections.CTF_K_VOLATILE, "", intID)
	restrictPtr := b.Ref(sections.CTF_K_RESTRICT, "", charPtr)
	loop := b.Ref(sections.CTF_K_POINTER, "", 0)
	charPtrPtr := b.Ref(sections.CTF_K_POINTER, "", charPtr)

	r := newResolver(t, b)

	tests := []struct {
		name  string
		index uint16
		want  string
	}{
		{"void", 0, "void"},
		{"integer", intID, "int"},
		{"const char", constChar, "const char"},
		{"pointer to const", constCharPtr, "const char *"},
		{"const pointer", ptrConst, "char *const"},
		{"array", arr, "int[16]"},
		{"variadic function", fn, "int (const char *, ...)"},
		{"function pointer", fnPtr, "int (*)(const char *, ...)"},
		{"no arguments", voidFn, "void (void)"},
		{"struct", structID, "struct timespec"},
		{"anonymous union", unionID, "union (anon)"},
		{"enum", enumID, "enum color"},
		{"forward", fwd, "struct proc"},
		{"typedef", typedef, "size_t"},
		{"volatile", volatileInt, "volatile int"},
		{"restrict pointer", restrictPtr, "char *restrict"},
		{"void pointer", loop, "void *"},
		{"pointer to pointer", charPtrPtr, "char **"},
		{"out of range", 0x1234, "type_0x1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.ResolveType(tt.index); got != tt.want {
				t.Errorf("ResolveType(%d) = %q, want %q", tt.index, got, tt.want)
			}
		})
	}
}

func TestResolveType_Cycle(t *testing.T) {
	b := ctftest.New()
	b.Ref(sections.CTF_K_POINTER, "", 2)
	b.Ref(sections.CTF_K_CONST, "", 1)
	r := newResolver(t, b)

	if got, want := r.ResolveType(1), "...const *"; got != want {
		t.Errorf("ResolveType(1) = %q, want %q", got, want)
	}
}

func TestResolveType_SelfReferentialFunction(t *testing.T) {
	b := ctftest.New()
	fn := b.FuncType("", 1, 1, 1, 1)
	ptr := b.Ref(sections.CTF_K_POINTER, "", fn)
	r := newResolver(t, b)

	tests := []struct {
		name  string
		index uint16
		want  string
	}{
		{"function", fn, "... (..., ..., ...)"},
		{"function pointer", ptr, "... (*)(..., ..., ...)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan string, 1)
			go func() { done <- r.ResolveType(tt.index) }()

			select {
			case got := <-done:
				if got != tt.want {
					t.Errorf("ResolveType(%d) = %q, want %q", tt.index, got, tt.want)
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("ResolveType(%d) did not return", tt.index)
			}
		})
	}

	if got, want := r.ResolveFunction(fn, nil), "... (..., ..., ...) (void)"; got != want {
		t.Errorf("ResolveFunction() = %q, want %q", got, want)
	}
}

func TestResolveType_FanOut(t *testing.T) {
	// Each function takes four arguments of the next function type, so
	// expanding the chain fully would visit 4^depth records.
	const chain = 40
	b := ctftest.New()
	for i := uint16(1); i <= chain; i++ {
		next := i + 1
		b.FuncType("", next, next, next, next, next)
	}
	b.Integer("int", sections.CTF_INT_SIGNED, 32)
	r := newResolver(t, b)

	done := make(chan string, 1)
	go func() { done <- r.ResolveType(1) }()

	select {
	case got := <-done:
		if !strings.Contains(got, "...") {
			t.Errorf("ResolveType(1) = %q, want a cut declaration", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ResolveType(1) did not return")
	}
}

func TestParseType(t *testing.T) {
	b := ctftest.New()
	longID := b.Integer("long", sections.CTF_INT_SIGNED, 64)
	structID := b.Struct(sections.CTF_K_STRUCT, "timespec", 16,
		ctftest.Member{Name: "tv_sec", Type: longID, Offset: 0},
		ctftest.Member{Name: "tv_nsec", Type: longID, Offset: 64})
	enumID := b.Enum("state",
		ctftest.Enumerator{Name: "IDLE", Value: 0},
		ctftest.Enumerator{Name: "RUN", Value: 1},
		ctftest.Enumerator{Name: "DEAD", Value: -1})
	r := newResolver(t, b)

	got := r.ParseType(structID)
	want := &ParsedType{
		Index:     structID,
		Kind:      sections.CTF_K_STRUCT,
		Name:      "timespec",
		Size:      16,
		Signature: "struct timespec",
		Members: []ParsedMember{
			{Name: "tv_sec", TypeIdx: longID, TypeName: "long", Offset: 0},
			{Name: "tv_nsec", TypeIdx: longID, TypeName: "long", Offset: 64},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseType(struct) mismatch (-want +got):\n%s", diff)
	}

	got = r.ParseType(enumID)
	want = &ParsedType{
		Index:     enumID,
		Kind:      sections.CTF_K_ENUM,
		Name:      "state",
		Size:      4,
		Signature: "enum state",
		Enums: []ParsedEnumerator{
			{Name: "IDLE", Value: 0},
			{Name: "RUN", Value: 1},
			{Name: "DEAD", Value: -1},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseType(enum) mismatch (-want +got):\n%s", diff)
	}

	if r.ParseType(0) != nil || r.ParseType(99) != nil {
		t.Error("ParseType() of a missing index returned a type")
	}
}
