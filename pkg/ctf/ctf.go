package ctf

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jtang613/goctf/pkg/ctf/cdecl"
	"github.com/jtang613/goctf/pkg/ctf/container"
	"github.com/jtang613/goctf/pkg/ctf/decompress"
	ctferrors "github.com/jtang613/goctf/pkg/ctf/errors"
	"github.com/jtang613/goctf/pkg/ctf/sections"
)

// Symbols supplies fresh symbol cursors for the object and function
// sections. *container.SymbolTable implements it.
type Symbols interface {
	Objects() sections.SymbolCorrelator
	Functions() sections.SymbolCorrelator
}

type options struct {
	symbols Symbols
	logger  *zap.Logger
}

// Option configures a File.
type Option func(*options)

// WithSymbols correlates object and function entries with symbols.
func WithSymbols(s Symbols) Option {
	return func(o *options) {
		o.symbols = s
	}
}

// WithLogger sets the logger used by the File.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// File represents one decoded CTF buffer. It caches decoded types and is
// not safe for concurrent use.
type File struct {
	hdr     *sections.Header
	payload []byte // uncompressed, header excluded
	symbols Symbols
	logger  *zap.Logger

	// Cached results
	types     []sections.TypeRecord
	typesErr  error
	typesDone bool
	resolver  *cdecl.TypeResolver
}

// NewFile validates the header of data and decompresses its payload.
func NewFile(data []byte, opts ...Option) (*File, error) {
	o := newOptions(opts)

	hdr, err := sections.ReadHeader(data)
	if err != nil {
		return nil, err
	}

	payload := data[sections.HeaderSize:]
	if hdr.Compressed() {
		payload, err = decompress.Inflate(payload, hdr.TotalLength())
		if err != nil {
			return nil, err
		}
	}

	o.logger.Debug("decoded CTF header",
		zap.Bool("compressed", hdr.Compressed()),
		zap.Int64("length", hdr.TotalLength()),
		zap.Bool("symbols", o.symbols != nil))

	return &File{
		hdr:     hdr,
		payload: payload,
		symbols: o.symbols,
		logger:  o.logger,
	}, nil
}

// Open opens an ELF object or raw CTF file and decodes every CTF buffer
// in it. Buffers that are not CTF are skipped. Buffers that fail to decode
// are reported in the joined error; the others are still returned.
func Open(path string, opts ...Option) ([]*File, error) {
	c, err := container.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if syms := c.Symbols(); syms != nil {
		opts = append([]Option{WithSymbols(syms)}, opts...)
	}
	o := newOptions(opts)

	var files []*File
	var errs []error
	for i, buf := range c.Buffers() {
		f, err := NewFile(buf, opts...)
		if ctferrors.IsNotCTF(err) {
			o.logger.Debug("skipping buffer without CTF magic",
				zap.String("path", path), zap.Int("buffer", i))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		files = append(files, f)
	}

	return files, errors.Join(errs...)
}

// Header returns the validated header.
func (f *File) Header() *sections.Header {
	return f.hdr
}

// Payload returns the uncompressed payload following the header.
func (f *File) Payload() []byte {
	return f.payload
}

// Name resolves a string-table reference.
func (f *File) Name(ref sections.NameRef) string {
	return sections.ResolveName(f.hdr, f.payload, ref)
}

// HeaderInfo returns the header with parent names resolved.
func (f *File) HeaderInfo() *HeaderInfo {
	h := f.hdr
	return &HeaderInfo{
		Magic:          h.Magic,
		Version:        h.Version,
		Flags:          h.Flags,
		Compressed:     h.Compressed(),
		ParentLabel:    f.Name(h.ParentLabel),
		ParentName:     f.Name(h.ParentName),
		LabelOffset:    h.LabelOffset,
		ObjectOffset:   h.ObjectOffset,
		FunctionOffset: h.FunctionOffset,
		TypeOffset:     h.TypeOffset,
		StringOffset:   h.StringOffset,
		StringLength:   h.StringLength,
	}
}

// Labels returns an iterator over the label section.
func (f *File) Labels() *sections.LabelIterator {
	return sections.NewLabelIterator(f.hdr, f.payload)
}

// Objects returns an iterator over the data object section.
func (f *File) Objects() *sections.ObjectIterator {
	var cur sections.SymbolCorrelator
	if f.symbols != nil {
		cur = f.symbols.Objects()
	}
	return sections.NewObjectIterator(f.hdr, f.payload, cur)
}

// Functions returns an iterator over the function section.
func (f *File) Functions() *sections.FunctionIterator {
	var cur sections.SymbolCorrelator
	if f.symbols != nil {
		cur = f.symbols.Functions()
	}
	return sections.NewFunctionIterator(f.hdr, f.payload, cur)
}

// Types returns an iterator over the type section.
func (f *File) Types() *sections.TypeIterator {
	return sections.NewTypeIterator(f.hdr, f.payload)
}

// Strings returns an iterator over the string table.
func (f *File) Strings() *sections.StringIterator {
	return sections.NewStringIterator(f.hdr, f.payload)
}

// AllTypes decodes the whole type section. On a fatal error it returns the
// records decoded before the failure together with the error.
func (f *File) AllTypes() ([]sections.TypeRecord, error) {
	if f.typesDone {
		return f.types, f.typesErr
	}

	it := f.Types()
	for it.Next() {
		f.types = append(f.types, it.Record())
	}
	f.typesErr = it.Err()
	f.typesDone = true

	if f.typesErr != nil {
		f.logger.Debug("type section walk stopped",
			zap.Int("records", len(f.types)), zap.Error(f.typesErr))
	}
	return f.types, f.typesErr
}

// Resolver returns a C declaration resolver over the decoded types. It is
// usable even when the type walk failed, covering the records before the
// failure.
func (f *File) Resolver() *cdecl.TypeResolver {
	if f.resolver == nil {
		types, _ := f.AllTypes()
		f.resolver = cdecl.NewTypeResolver(types, f.Name)
	}
	return f.resolver
}

// ResolveType resolves a type index to a TypeInfo. It returns nil for
// indexes without a record.
func (f *File) ResolveType(index uint16) *TypeInfo {
	r := f.Resolver()
	rec := r.Record(index)
	if rec == nil {
		return nil
	}
	ti := f.typeInfo(index, rec)
	return &ti
}

func (f *File) typeInfo(index uint16, rec *sections.TypeRecord) TypeInfo {
	r := f.Resolver()
	parsed := r.ParseType(index)

	ti := TypeInfo{
		Index:     index,
		Kind:      rec.Kind,
		Name:      parsed.Name,
		Root:      rec.Root,
		Size:      parsed.Size,
		Array:     rec.Array,
		Args:      rec.Args,
		Signature: parsed.Signature,
		Truncated: rec.Truncated,
	}

	if rec.Encoding != nil {
		ti.Encoding = sections.EncodingName(rec.Kind, rec.Encoding.Encoding)
		ti.Offset = rec.Encoding.Offset
		ti.Bits = rec.Encoding.Bits
	}
	if rec.HasReference() || rec.Kind == sections.CTF_K_FUNCTION {
		ti.Refers = rec.Type
	}

	for _, m := range parsed.Members {
		ti.Members = append(ti.Members, Member{
			Name:     m.Name,
			Type:     m.TypeIdx,
			TypeName: m.TypeName,
			Offset:   m.Offset,
		})
	}
	for _, e := range parsed.Enums {
		ti.Enums = append(ti.Enums, Enumerator{Name: e.Name, Value: e.Value})
	}

	return ti
}
