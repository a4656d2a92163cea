package key

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/tid"
)

type bookKey struct {
	Desk string
}

type positionKey struct {
	Book      *bookKey
	Ticker    string
	AsOf      ir.LocalDate
	Slot      ir.LocalMinute
	Stamp     ir.LocalDateTime
	Seq       int64
	Active    bool
	Source    tid.ID
	Px        float64
	Venue     string
	Exchanges []string
}

var (
	bookKeyType = meta.NewType("BookKey", func() any { return &bookKey{} },
		meta.Value("Desk", ir.KindString, func(k *bookKey) *string { return &k.Desk }),
	).WithKey("Desk")

	positionFields = []*meta.Field{
		meta.KeyRef("Book", bookKeyType, func(k *positionKey) **bookKey { return &k.Book }),
		meta.Value("Ticker", ir.KindString, func(k *positionKey) *string { return &k.Ticker }),
		meta.Value("AsOf", ir.KindDate, func(k *positionKey) *ir.LocalDate { return &k.AsOf }),
		meta.Value("Slot", ir.KindMinute, func(k *positionKey) *ir.LocalMinute { return &k.Slot }),
		meta.Value("Stamp", ir.KindDateTime, func(k *positionKey) *ir.LocalDateTime { return &k.Stamp }),
		meta.Value("Seq", ir.KindInt64, func(k *positionKey) *int64 { return &k.Seq }),
		meta.Value("Active", ir.KindBool, func(k *positionKey) *bool { return &k.Active }),
		meta.Value("Source", ir.KindTemporalID, func(k *positionKey) *tid.ID { return &k.Source }),
		meta.Value("Px", ir.KindDouble, func(k *positionKey) *float64 { return &k.Px }),
		meta.Value("Venue", ir.KindString, func(k *positionKey) *string { return &k.Venue }),
		meta.List("Exchanges", ir.KindString, func(k *positionKey) *[]string { return &k.Exchanges }),
	}
)

func positionType(key ...string) *meta.Type {
	return meta.NewType("PositionKey", func() any { return &positionKey{} }, positionFields...).WithKey(key...)
}

func samplePosition() *positionKey {
	return &positionKey{
		Book:   &bookKey{Desk: "Rates"},
		Ticker: "IBM",
		AsOf:   ir.LocalDate{Year: 2003, Month: 5, Day: 1},
		Slot:   ir.LocalMinute{Hour: 9, Minute: 30},
		Stamp:  ir.LocalDateTime{Date: ir.LocalDate{Year: 2003, Month: 5, Day: 1}, Time: ir.LocalTime{Hour: 9, Minute: 30, Millisecond: 5}},
		Seq:    42,
		Active: true,
		Source: tid.FromTime(time.Date(2003, 5, 1, 0, 0, 0, 0, time.UTC)),
	}
}

func TestFormat_TokenForms(t *testing.T) {
	typ := positionType("Book", "Ticker", "AsOf", "Slot", "Stamp", "Seq", "Active", "Source")
	s, err := Format(typ, samplePosition())
	require.NoError(t, err)
	assert.Equal(t,
		"Rates;IBM;20030501;930;20030501093000005;42;true;2003-05-01T00:00:00.000Z0000000000000000", s)
	assert.Equal(t, 8, TokenCount(typ))
}

func TestParse_RoundTrip(t *testing.T) {
	typ := positionType("Book", "Ticker", "AsOf", "Slot", "Stamp", "Seq", "Active", "Source")
	orig := samplePosition()

	s, err := Format(typ, orig)
	require.NoError(t, err)

	parsed, err := Parse(typ, s)
	require.NoError(t, err)
	assert.Equal(t, orig, parsed)

	again, err := Format(typ, parsed)
	require.NoError(t, err)
	assert.Equal(t, s, again)
}

func TestFormat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		key    []string
		mutate func(*positionKey)
		code   ir.Code
	}{
		{"delimiter in string", []string{"Ticker"}, func(k *positionKey) { k.Ticker = "A;B" }, ir.CodeInvalidKeyToken},
		{"empty string", []string{"Venue"}, nil, ir.CodeInvalidKeyToken},
		{"empty date", []string{"Ticker", "AsOf"}, func(k *positionKey) { k.AsOf = ir.LocalDate{} }, ir.CodeInvalidKeyToken},
		{"missing nested key", []string{"Book"}, func(k *positionKey) { k.Book = nil }, ir.CodeInvalidKeyToken},
		{"double element", []string{"Ticker", "Px"}, nil, ir.CodeUnsupportedKeyType},
		{"list element", []string{"Exchanges"}, nil, ir.CodeUnsupportedKeyType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := samplePosition()
			if tt.mutate != nil {
				tt.mutate(obj)
			}
			_, err := Format(positionType(tt.key...), obj)
			require.Error(t, err)
			assert.True(t, ir.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestFormat_NoKeyElements(t *testing.T) {
	_, err := Format(positionType(), samplePosition())
	assert.True(t, ir.Is(err, ir.CodeUnsupportedKeyType))
}

func TestAssign_Errors(t *testing.T) {
	typ := positionType("Ticker", "AsOf", "Seq")
	tests := []struct {
		name string
		text string
		code ir.Code
	}{
		{"too few tokens", "IBM;20030501", ir.CodeFormatError},
		{"too many tokens", "IBM;20030501;1;2", ir.CodeFormatError},
		{"empty token", "IBM;;1", ir.CodeInvalidKeyToken},
		{"trailing delimiter", "IBM;20030501;", ir.CodeInvalidKeyToken},
		{"bad integer", "IBM;20030501;x", ir.CodeFormatError},
		{"bad date", "IBM;20031399;1", ir.CodeTypeMismatch},
		{"empty text", "", ir.CodeFormatError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Assign(typ, &positionKey{}, tt.text)
			require.Error(t, err)
			assert.True(t, ir.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestAssign_SetsOnlyKeyElements(t *testing.T) {
	typ := positionType("Ticker", "Seq")
	obj := &positionKey{Venue: "XNYS"}
	require.NoError(t, Assign(typ, obj, "MSFT;7"))
	assert.Equal(t, "MSFT", obj.Ticker)
	assert.Equal(t, int64(7), obj.Seq)
	assert.Equal(t, "XNYS", obj.Venue)
}

func TestDynamicKey(t *testing.T) {
	typ := meta.Dynamic("Trade",
		meta.FieldSpec{Name: "Ticker", Kind: ir.KindString},
		meta.FieldSpec{Name: "Qty", Kind: ir.KindInt32},
	).WithKey("Ticker", "Qty")

	rec, err := Parse(typ, "IBM;100")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Ticker": "IBM", "Qty": int32(100)}, rec.(*meta.Record).Values)

	s, err := Format(typ, rec)
	require.NoError(t, err)
	assert.Equal(t, "IBM;100", s)
}
