package tid

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/roach88/tempo/internal/ir"
)

// Size is the length of an ID in bytes.
const Size = 12

// TextLen is the length of the canonical text form.
const TextLen = 40

const timeLayout = "2006-01-02T15:04:05.000Z"

// ID is a TemporalId.
type ID [Size]byte

// Empty is the zero id. It identifies the root dataset.
var Empty ID

// FromTime returns the least id created in the second containing t.
// Useful as an "as of" cutoff expressed in wall time.
func FromTime(t time.Time) ID {
	var id ID
	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	return id
}

// FromBytes copies a 12-byte slice into an ID.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return Empty, ir.OpErrorf(ir.CodeFormatError, "FromBytes", "temporal id must be %d bytes, got %d", Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Seconds returns the creation time field.
func (id ID) Seconds() uint32 {
	return binary.BigEndian.Uint32(id[0:4])
}

// CreationTime returns the creation time at second resolution, in UTC.
func (id ID) CreationTime() time.Time {
	return time.Unix(int64(id.Seconds()), 0).UTC()
}

// IsEmpty reports whether id is Empty.
func (id ID) IsEmpty() bool {
	return id == Empty
}

// Bytes returns a copy of the id bytes.
func (id ID) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, id[:])
	return b
}

// Compare returns -1, 0, or +1.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// Less reports whether id sorts before other.
func (id ID) Less(other ID) bool {
	return id.Compare(other) < 0
}

// String returns the 40-character text form: a millisecond ISO-8601 UTC
// timestamp followed by 16 lowercase hex digits of the tail.
func (id ID) String() string {
	buf := make([]byte, 0, TextLen)
	buf = id.CreationTime().AppendFormat(buf, timeLayout)
	return string(hex.AppendEncode(buf, id[4:]))
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse is the inverse of String. Uppercase hex is accepted.
func Parse(s string) (ID, error) {
	if len(s) != TextLen {
		return Empty, ir.OpErrorf(ir.CodeFormatError, "Parse", "temporal id %q must be %d characters, got %d", s, TextLen, len(s))
	}
	stamp, tail := s[:TextLen-16], s[TextLen-16:]

	t, err := time.Parse(timeLayout, stamp)
	if err != nil {
		return Empty, ir.OpErrorf(ir.CodeFormatError, "Parse", "temporal id %q has malformed timestamp", s)
	}
	if t.Nanosecond() != 0 {
		return Empty, ir.OpErrorf(ir.CodeFormatError, "Parse", "temporal id %q has non-zero milliseconds", s)
	}
	sec := t.Unix()
	if sec < 0 || sec > 0xFFFFFFFF {
		return Empty, ir.OpErrorf(ir.CodeFormatError, "Parse", "temporal id %q timestamp out of range", s)
	}

	var id ID
	binary.BigEndian.PutUint32(id[0:4], uint32(sec))
	if _, err := hex.Decode(id[4:], []byte(tail)); err != nil {
		return Empty, ir.OpErrorf(ir.CodeFormatError, "Parse", "temporal id %q has non-hex tail", s)
	}
	return id, nil
}

// Min returns the lesser of a and b.
func Min(a, b ID) ID {
	if b.Less(a) {
		return b
	}
	return a
}

// Max returns the greater of a and b.
func Max(a, b ID) ID {
	if a.Less(b) {
		return b
	}
	return a
}

// MinOf returns the lesser of two optional ids. When only one is set it is
// returned; when neither is set the result is nil.
func MinOf(a, b *ID) *ID {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Less(*a):
		return b
	default:
		return a
	}
}

// MaxOf returns the greater of two optional ids with the same one-sided
// semantics as MinOf.
func MaxOf(a, b *ID) *ID {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Less(*b):
		return b
	default:
		return a
	}
}

// Ptr returns a pointer to a copy of id.
func Ptr(id ID) *ID {
	return &id
}
