// Package errors provides the structured error type shared by the CTF
// decoder and its collaborators.
//
// Errors carry the Phase (which section or collaborator failed) and the Kind
// (what went wrong). Kind-only sentinels such as ErrBadMagicOrVersion can be
// matched with errors.Is regardless of phase:
//
//	if errors.Is(err, ctferrors.ErrBadMagicOrVersion) {
//		// not a CTF buffer, skip it
//	}
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where decoding failed.
type Phase string

const (
	PhaseHeader     Phase = "header"
	PhaseLabels     Phase = "labels"
	PhaseObjects    Phase = "objects"
	PhaseFunctions  Phase = "functions"
	PhaseTypes      Phase = "types"
	PhaseStrings    Phase = "strings"
	PhaseDecompress Phase = "decompress"
	PhaseContainer  Phase = "container"
)

// Kind categorizes the error.
type Kind string

const (
	KindTooSmall          Kind = "too_small"
	KindBadMagicOrVersion Kind = "bad_magic_or_version"
	KindBogusSize         Kind = "bogus_size"
	KindMisaligned        Kind = "misaligned"
	KindTruncated         Kind = "truncated"
	KindCorrupted         Kind = "corrupted"
	KindOffsetOverflow    Kind = "offset_overflow"
	KindInvalidKind       Kind = "invalid_kind"
	KindInitFailed        Kind = "init_failed"
	KindInflateFailed     Kind = "inflate_failed"
	KindLengthMismatch    Kind = "length_mismatch"
	KindSectionNotFound   Kind = "section_not_found"
	KindEmptySection      Kind = "empty_section"
)

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrTooSmall          = &Error{Kind: KindTooSmall}
	ErrBadMagicOrVersion = &Error{Kind: KindBadMagicOrVersion}
	ErrBogusSize         = &Error{Kind: KindBogusSize}
	ErrMisaligned        = &Error{Kind: KindMisaligned}
	ErrTruncated         = &Error{Kind: KindTruncated}
	ErrCorrupted         = &Error{Kind: KindCorrupted}
	ErrOffsetOverflow    = &Error{Kind: KindOffsetOverflow}
	ErrInvalidKind       = &Error{Kind: KindInvalidKind}
	ErrInitFailed        = &Error{Kind: KindInitFailed}
	ErrInflateFailed     = &Error{Kind: KindInflateFailed}
	ErrLengthMismatch    = &Error{Kind: KindLengthMismatch}
	ErrSectionNotFound   = &Error{Kind: KindSectionNotFound}
	ErrEmptySection      = &Error{Kind: KindEmptySection}
)

// Error is the structured error returned by goctf packages.
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Offset int64 // payload offset of the failure, -1 if not applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.Offset >= 0 && e.Phase != "" {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// New creates an error without an offset.
func New(phase Phase, kind Kind, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: -1,
		Detail: detail(format, args),
	}
}

// At creates an error anchored at a payload offset.
func At(phase Phase, kind Kind, offset int64, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: offset,
		Detail: detail(format, args),
	}
}

// Wrap wraps an existing error with a phase and kind.
func Wrap(phase Phase, kind Kind, cause error, format string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Offset: -1,
		Detail: detail(format, args),
		Cause:  cause,
	}
}

func detail(format string, args []any) string {
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// IsNotCTF reports whether err only says the buffer is not CTF at all.
// Callers skip such buffers silently.
func IsNotCTF(err error) bool {
	return KindOf(err) == KindBadMagicOrVersion
}

// IsFatal reports whether err should be reported as a decoding failure of
// its buffer. A bad magic or version is not: the buffer is simply not CTF.
func IsFatal(err error) bool {
	return err != nil && !IsNotCTF(err)
}
