package decompress

import (
	"bytes"
	"compress/zlib"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
)

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func TestInflate(t *testing.T) {
	payload := bytes.Repeat([]byte("\x00int\x00long\x00"), 64)
	compressed := deflate(t, payload)

	got, err := Inflate(compressed, int64(len(payload)))
	if err != nil {
		t.Fatalf("Inflate() error = %v", err)
	}
	if diff := cmp.Diff(payload, got); diff != "" {
		t.Errorf("Inflate() mismatch (-want +got):\n%s", diff)
	}
}

func TestInflate_Errors(t *testing.T) {
	payload := []byte("0123456789abcdef")
	compressed := deflate(t, payload)

	tests := []struct {
		name       string
		compressed []byte
		expected   int64
		want       error
	}{
		{
			name:       "not a zlib stream",
			compressed: []byte("plain text, no zlib header"),
			expected:   16,
			want:       ctferrors.ErrInitFailed,
		},
		{
			name:       "empty input",
			compressed: nil,
			expected:   16,
			want:       ctferrors.ErrInitFailed,
		},
		{
			name:       "stream cut short",
			compressed: compressed[:len(compressed)-6],
			expected:   int64(len(payload)),
			want:       ctferrors.ErrInflateFailed,
		},
		{
			name:       "header claims more",
			compressed: compressed,
			expected:   int64(len(payload)) + 4,
			want:       ctferrors.ErrLengthMismatch,
		},
		{
			name:       "header claims less",
			compressed: compressed,
			expected:   int64(len(payload)) - 4,
			want:       ctferrors.ErrLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inflate(tt.compressed, tt.expected)
			if !errors.Is(err, tt.want) {
				t.Errorf("Inflate() error = %v, want %v", err, tt.want)
			}
		})
	}
}
