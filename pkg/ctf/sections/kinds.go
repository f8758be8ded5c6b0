package sections

import (
	"fmt"
)

// Kind is the CTF_K_* type kind packed into a record's info word.
type Kind uint8

// CTF_K_* type kinds
const (
	CTF_K_UNKNOWN  Kind = 0
	CTF_K_INTEGER  Kind = 1
	CTF_K_FLOAT    Kind = 2
	CTF_K_POINTER  Kind = 3
	CTF_K_ARRAY    Kind = 4
	CTF_K_FUNCTION Kind = 5
	CTF_K_STRUCT   Kind = 6
	CTF_K_UNION    Kind = 7
	CTF_K_ENUM     Kind = 8
	CTF_K_FORWARD  Kind = 9
	CTF_K_TYPEDEF  Kind = 10
	CTF_K_VOLATILE Kind = 11
	CTF_K_CONST    Kind = 12
	CTF_K_RESTRICT Kind = 13
	CTF_K_MAX      Kind = 31 // Largest value the 5-bit field can hold
)

// Info word packing
const (
	CTF_MAX_VLEN   = 0x3ff
	infoKindMask   = 0xf800
	infoKindShift  = 11
	infoRootMask   = 0x0400
	infoRootShift  = 10
	CTF_MAX_SIZE   = 0xfffe // Largest size stored in the short type header
	CTF_LSIZE_SENT = 0xffff // Size word announcing the long type header
)

// CTF_LSTRUCT_THRESH is the struct/union size from which members use the
// wide ctf_lmember layout.
const CTF_LSTRUCT_THRESH = 8192

// Integer encoding flags (CTF_INT_*)
const (
	CTF_INT_SIGNED  = 1 << 0
	CTF_INT_CHAR    = 1 << 1
	CTF_INT_BOOL    = 1 << 2
	CTF_INT_VARARGS = 1 << 3
)

// Float encodings (CTF_FP_*)
const (
	CTF_FP_SINGLE   = 1
	CTF_FP_DOUBLE   = 2
	CTF_FP_CPLX     = 3
	CTF_FP_DCPLX    = 4
	CTF_FP_LDCPLX   = 5
	CTF_FP_LDOUBLE  = 6
	CTF_FP_INTRVL   = 7
	CTF_FP_DINTRVL  = 8
	CTF_FP_LDINTRVL = 9
	CTF_FP_IMAGRY   = 10
	CTF_FP_DIMAGRY  = 11
	CTF_FP_LDIMAGRY = 12
)

// InfoKind extracts the kind from an info word.
func InfoKind(info uint16) Kind {
	return Kind((info & infoKindMask) >> infoKindShift)
}

// InfoIsRoot reports the root-visibility flag of an info word.
func InfoIsRoot(info uint16) bool {
	return (info&infoRootMask)>>infoRootShift != 0
}

// InfoVlen extracts the variable-length count from an info word.
func InfoVlen(info uint16) uint16 {
	return info & CTF_MAX_VLEN
}

var kindNames = [...]string{
	CTF_K_UNKNOWN:  "UNKNOWN",
	CTF_K_INTEGER:  "INTEGER",
	CTF_K_FLOAT:    "FLOAT",
	CTF_K_POINTER:  "POINTER",
	CTF_K_ARRAY:    "ARRAY",
	CTF_K_FUNCTION: "FUNCTION",
	CTF_K_STRUCT:   "STRUCT",
	CTF_K_UNION:    "UNION",
	CTF_K_ENUM:     "ENUM",
	CTF_K_FORWARD:  "FORWARD",
	CTF_K_TYPEDEF:  "TYPEDEF",
	CTF_K_VOLATILE: "VOLATILE",
	CTF_K_CONST:    "CONST",
	CTF_K_RESTRICT: "RESTRICT",
}

// Valid reports whether k is a kind defined by the format.
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

// String returns the kind name as printed by ctfdump.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("KIND_%d", uint8(k))
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Encoding is the unpacked integer or float encoding word.
type Encoding struct {
	Encoding uint8  `json:"encoding"` // CTF_INT_* flags or CTF_FP_* value
	Offset   uint8  `json:"offset"`   // Bit offset of the value within its storage
	Bits     uint16 `json:"bits"`     // Width in bits
}

// DecodeEncoding unpacks a CTF_INT_DATA/CTF_FP_DATA word.
func DecodeEncoding(data uint32) Encoding {
	return Encoding{
		Encoding: uint8((data & 0xff000000) >> 24),
		Offset:   uint8((data & 0x00ff0000) >> 16),
		Bits:     uint16(data & 0x0000ffff),
	}
}

var intEncodingNames = [...]string{"SIGNED", "CHAR", "SIGNED CHAR", "BOOL", "SIGNED BOOL"}

// IntEncodingName returns the name of an integer encoding. Unknown
// encodings render as hex.
func IntEncodingName(enc uint8) string {
	if enc == CTF_INT_VARARGS {
		return "VARARGS"
	}
	if enc > 0 && int(enc) <= len(intEncodingNames) {
		return intEncodingNames[enc-1]
	}
	return fmt.Sprintf("0x%x", enc)
}

var floatEncodingNames = [...]string{"SINGLE", "DOUBLE", "", "", "", "LDOUBLE"}

// FloatEncodingName returns the name of a float encoding. Gaps in the table
// and unknown encodings render as hex.
func FloatEncodingName(enc uint8) string {
	if enc > 0 && int(enc) <= len(floatEncodingNames) && floatEncodingNames[enc-1] != "" {
		return floatEncodingNames[enc-1]
	}
	return fmt.Sprintf("0x%x", enc)
}

// EncodingName picks the integer or float table according to kind.
func EncodingName(kind Kind, enc uint8) string {
	if kind == CTF_K_FLOAT {
		return FloatEncodingName(enc)
	}
	return IntEncodingName(enc)
}
