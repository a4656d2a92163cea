package tid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempo/internal/ir"
)

func mustParse(t *testing.T, s string) ID {
	t.Helper()
	id, err := Parse(s)
	require.NoError(t, err)
	return id
}

func TestID_StringLayout(t *testing.T) {
	id := ID{0x3e, 0xa3, 0xd1, 0x90, 0x01, 0x02, 0x03, 0x04, 0x05, 0xab, 0xcd, 0xef}
	s := id.String()

	assert.Len(t, s, TextLen)
	assert.Equal(t, "2003-04-21T11:10:08.000Z0102030405abcdef", s)
	assert.Equal(t, time.Date(2003, 4, 21, 11, 10, 8, 0, time.UTC), id.CreationTime())
}

func TestParse_RoundTrip(t *testing.T) {
	g := NewGenerator()
	for i := 0; i < 100; i++ {
		id, err := g.Next()
		require.NoError(t, err)
		back, err := Parse(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, back)
	}
}

func TestParse_AcceptsUppercaseHex(t *testing.T) {
	lower := mustParse(t, "2003-04-21T11:10:08.000Z0102030405abcdef")
	upper := mustParse(t, "2003-04-21T11:10:08.000Z0102030405ABCDEF")
	assert.Equal(t, lower, upper)
	assert.Equal(t, "2003-04-21T11:10:08.000Z0102030405abcdef", upper.String())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"too short", "2003-04-21T11:10:08.000Z0102030405abcde"},
		{"too long", "2003-04-21T11:10:08.000Z0102030405abcdef0"},
		{"non-hex tail", "2003-04-21T11:10:08.000Z0102030405abcdeg"},
		{"bad timestamp", "2003-13-21T11:10:08.000Z0102030405abcdef"},
		{"milliseconds", "2003-04-21T11:10:08.123Z0102030405abcdef"},
		{"before epoch", "1969-12-31T23:59:59.000Z0102030405abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, ir.Is(err, ir.CodeFormatError), "got %v", err)
		})
	}
}

func TestID_EmptyOrdering(t *testing.T) {
	assert.True(t, Empty.IsEmpty())
	assert.Equal(t, "1970-01-01T00:00:00.000Z"+strings.Repeat("0", 16), Empty.String())
	assert.Equal(t, Empty, mustParse(t, Empty.String()))

	id, err := NewGenerator().Next()
	require.NoError(t, err)
	assert.True(t, Empty.Less(id))
	assert.False(t, id.IsEmpty())
	assert.True(t, ir.IsEmpty(Empty))
	assert.False(t, ir.IsEmpty(id))
}

func TestID_CompareIsUnsignedPerField(t *testing.T) {
	low := ID{0x00, 0, 0, 1, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	high := ID{0x80, 0, 0, 0}
	assert.True(t, low.Less(high), "top bit of seconds must not be treated as sign")

	a := ID{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1}
	b := ID{0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 2}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestMinMax(t *testing.T) {
	a := FromTime(time.Unix(100, 0))
	b := FromTime(time.Unix(200, 0))

	assert.Equal(t, a, Min(a, b))
	assert.Equal(t, a, Min(b, a))
	assert.Equal(t, b, Max(a, b))
	assert.Equal(t, Empty, Min(Empty, a))
	assert.Equal(t, a, Max(Empty, a))
}

func TestMinOf_OneSided(t *testing.T) {
	a := Ptr(FromTime(time.Unix(100, 0)))
	b := Ptr(FromTime(time.Unix(200, 0)))

	assert.Nil(t, MinOf(nil, nil))
	assert.Equal(t, a, MinOf(a, nil))
	assert.Equal(t, b, MinOf(nil, b))
	assert.Equal(t, a, MinOf(a, b))
	assert.Equal(t, a, MinOf(b, a))

	assert.Nil(t, MaxOf(nil, nil))
	assert.Equal(t, b, MaxOf(nil, b))
	assert.Equal(t, b, MaxOf(a, b))
}

func TestFromTime(t *testing.T) {
	ts := time.Date(2020, 6, 1, 12, 0, 0, 999_000_000, time.UTC)
	id := FromTime(ts)

	assert.Equal(t, ts.Truncate(time.Second), id.CreationTime())
	assert.Equal(t, "2020-06-01T12:00:00.000Z0000000000000000", id.String())

	g := NewGenerator(WithClock(func() time.Time { return ts }))
	minted, err := g.Next()
	require.NoError(t, err)
	assert.False(t, minted.Less(id), "FromTime is the least id of its second")
}

func TestFromBytes(t *testing.T) {
	id := ID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	back, err := FromBytes(id.Bytes())
	require.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = FromBytes([]byte{1, 2, 3})
	assert.True(t, ir.Is(err, ir.CodeFormatError))
}

func TestID_TextMarshaling(t *testing.T) {
	id := ID{0x3e, 0xa3, 0xd1, 0x90, 1, 2, 3, 4, 5, 6, 7, 8}
	text, err := id.MarshalText()
	require.NoError(t, err)

	var back ID
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, id, back)

	assert.Error(t, back.UnmarshalText([]byte("nope")))
}
