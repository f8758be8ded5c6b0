package sections_test

import (
	"testing"

	"github.com/jtang613/goctf/internal/ctftest"
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

func TestInfoWord(t *testing.T) {
	tests := []struct {
		kind sections.Kind
		root bool
		vlen uint16
	}{
		{sections.CTF_K_UNKNOWN, false, 0},
		{sections.CTF_K_STRUCT, true, 12},
		{sections.CTF_K_FUNCTION, false, sections.CTF_MAX_VLEN},
		{sections.CTF_K_MAX, true, 1},
	}

	for _, tt := range tests {
		info := ctftest.Info(tt.kind, tt.root, tt.vlen)
		if got := sections.InfoKind(info); got != tt.kind {
			t.Errorf("InfoKind(%#04x) = %v, want %v", info, got, tt.kind)
		}
		if got := sections.InfoIsRoot(info); got != tt.root {
			t.Errorf("InfoIsRoot(%#04x) = %v, want %v", info, got, tt.root)
		}
		if got := sections.InfoVlen(info); got != tt.vlen {
			t.Errorf("InfoVlen(%#04x) = %d, want %d", info, got, tt.vlen)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind sections.Kind
		want string
	}{
		{sections.CTF_K_UNKNOWN, "UNKNOWN"},
		{sections.CTF_K_INTEGER, "INTEGER"},
		{sections.CTF_K_FORWARD, "FORWARD"},
		{sections.CTF_K_RESTRICT, "RESTRICT"},
		{sections.CTF_K_RESTRICT + 1, "KIND_14"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", uint8(tt.kind), got, tt.want)
		}
	}
	if (sections.CTF_K_RESTRICT + 1).Valid() {
		t.Error("kind 14 reported valid")
	}
}

func TestDecodeEncoding(t *testing.T) {
	enc := sections.DecodeEncoding(ctftest.Encoding(sections.CTF_INT_SIGNED|sections.CTF_INT_CHAR, 3, 8))
	want := sections.Encoding{Encoding: 3, Offset: 3, Bits: 8}
	if enc != want {
		t.Errorf("DecodeEncoding() = %+v, want %+v", enc, want)
	}
}

func TestEncodingName(t *testing.T) {
	tests := []struct {
		kind sections.Kind
		enc  uint8
		want string
	}{
		{sections.CTF_K_INTEGER, 1, "SIGNED"},
		{sections.CTF_K_INTEGER, 2, "CHAR"},
		{sections.CTF_K_INTEGER, 3, "SIGNED CHAR"},
		{sections.CTF_K_INTEGER, 4, "BOOL"},
		{sections.CTF_K_INTEGER, 5, "SIGNED BOOL"},
		{sections.CTF_K_INTEGER, 8, "VARARGS"},
		{sections.CTF_K_INTEGER, 0, "0x0"},
		{sections.CTF_K_INTEGER, 6, "0x6"},
		{sections.CTF_K_INTEGER, 0x10, "0x10"},
		{sections.CTF_K_FLOAT, 1, "SINGLE"},
		{sections.CTF_K_FLOAT, 2, "DOUBLE"},
		{sections.CTF_K_FLOAT, 6, "LDOUBLE"},
		{sections.CTF_K_FLOAT, 3, "0x3"},
		{sections.CTF_K_FLOAT, 12, "0xc"},
	}
	for _, tt := range tests {
		if got := sections.EncodingName(tt.kind, tt.enc); got != tt.want {
			t.Errorf("EncodingName(%v, %d) = %q, want %q", tt.kind, tt.enc, got, tt.want)
		}
	}
}
