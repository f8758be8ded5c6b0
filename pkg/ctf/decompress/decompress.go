// Package decompress inflates zlib-compressed CTF payloads.
package decompress

import (
	"bytes"
	"compress/zlib"
	"io"

	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
)

// maxPrealloc caps the buffer reserved up front, so that a corrupt header
// cannot make us allocate gigabytes before inflating a single byte.
const maxPrealloc = 64 << 20

// Inflate decompresses a zlib stream that must produce exactly expected
// bytes.
func Inflate(compressed []byte, expected int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, ctferrors.Wrap(ctferrors.PhaseDecompress, ctferrors.KindInitFailed, err,
			"zlib initialization failed")
	}
	defer zr.Close()

	var out bytes.Buffer
	out.Grow(int(min(expected, maxPrealloc)))

	// Read one byte past the expected length to detect oversized streams.
	n, err := io.Copy(&out, io.LimitReader(zr, expected+1))
	if err != nil {
		return nil, ctferrors.Wrap(ctferrors.PhaseDecompress, ctferrors.KindInflateFailed, err,
			"zlib inflate failed after %d bytes", n)
	}
	if n != expected {
		return nil, ctferrors.New(ctferrors.PhaseDecompress, ctferrors.KindLengthMismatch,
			"decompressed length %d differs from header length %d", n, expected)
	}

	return out.Bytes(), nil
}
