package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempo/internal/ir"
)

type side int

const (
	sideEmpty side = iota
	sideBuy
	sideSell
)

type leg struct {
	Venue string
	Qty   int64
}

type instrumentKey struct {
	Symbol string
}

type trade struct {
	Ticker     string
	Qty        int32
	Price      *float64
	Fixings    []float64
	TradeDate  ir.LocalDate
	Side       side
	Leg        *leg
	Legs       []*leg
	Instrument *instrumentKey
}

var (
	legType = NewType("Leg", func() any { return &leg{} },
		Value("Venue", ir.KindString, func(l *leg) *string { return &l.Venue }),
		Value("Qty", ir.KindInt64, func(l *leg) *int64 { return &l.Qty }),
	)
	instrumentKeyType = NewType("InstrumentKey", func() any { return &instrumentKey{} },
		Value("Symbol", ir.KindString, func(k *instrumentKey) *string { return &k.Symbol }),
	).WithKey("Symbol")
	tradeType = NewType("Trade", func() any { return &trade{} },
		Value("Ticker", ir.KindString, func(r *trade) *string { return &r.Ticker }),
		Value("Qty", ir.KindInt32, func(r *trade) *int32 { return &r.Qty }),
		Nullable("Price", ir.KindDouble, func(r *trade) **float64 { return &r.Price }),
		List("Fixings", ir.KindDouble, func(r *trade) *[]float64 { return &r.Fixings }),
		Value("TradeDate", ir.KindDate, func(r *trade) *ir.LocalDate { return &r.TradeDate }),
		Enum("Side", []string{"Empty", "Buy", "Sell"}, func(r *trade) *side { return &r.Side }),
		Embedded("Leg", legType, func(r *trade) **leg { return &r.Leg }),
		EmbeddedList("Legs", legType, func(r *trade) *[]*leg { return &r.Legs }),
		KeyRef("Instrument", instrumentKeyType, func(r *trade) **instrumentKey { return &r.Instrument }),
	).WithKey("Ticker", "TradeDate")
)

func TestType_Lookup(t *testing.T) {
	assert.Equal(t, "Trade", tradeType.Name)
	assert.Len(t, tradeType.Fields, 9)
	assert.Equal(t, ir.KindInt32, tradeType.Field("Qty").Kind)
	assert.Nil(t, tradeType.Field("Nope"))

	keys := tradeType.KeyFields()
	require.Len(t, keys, 2)
	assert.Equal(t, "Ticker", keys[0].Name)
	assert.Equal(t, "TradeDate", keys[1].Name)

	assert.Equal(t, ir.KindKey, tradeType.Field("Instrument").Kind)
	assert.Same(t, instrumentKeyType, tradeType.Field("Instrument").Type)
}

func TestType_PanicsOnBadDeclaration(t *testing.T) {
	assert.Panics(t, func() {
		NewType("Dup", nil,
			Value("A", ir.KindString, func(l *leg) *string { return &l.Venue }),
			Value("A", ir.KindString, func(l *leg) *string { return &l.Venue }),
		)
	})
	assert.Panics(t, func() { NewType("K", nil).WithKey("Missing") })
}

func TestField_AssignAndGet(t *testing.T) {
	obj := tradeType.New().(*trade)

	require.NoError(t, tradeType.Field("Ticker").Assign(obj, "IBM"))
	require.NoError(t, tradeType.Field("Qty").Assign(obj, int64(100)))
	require.NoError(t, tradeType.Field("Price").Assign(obj, int32(12)))
	require.NoError(t, tradeType.Field("Fixings").Assign(obj, []any{1.5, int64(2), nil}))
	require.NoError(t, tradeType.Field("TradeDate").Assign(obj, int64(20030501)))
	require.NoError(t, tradeType.Field("Side").Assign(obj, "Sell"))

	assert.Equal(t, "IBM", obj.Ticker)
	assert.Equal(t, int32(100), obj.Qty)
	require.NotNil(t, obj.Price)
	assert.Equal(t, 12.0, *obj.Price)
	assert.Equal(t, []float64{1.5, 2, 0}, obj.Fixings)
	assert.Equal(t, ir.LocalDate{Year: 2003, Month: 5, Day: 1}, obj.TradeDate)
	assert.Equal(t, sideSell, obj.Side)

	assert.Equal(t, "IBM", tradeType.Field("Ticker").Get(obj))
	assert.Equal(t, 12.0, tradeType.Field("Price").Get(obj))
	assert.Equal(t, []any{1.5, 2.0, 0.0}, tradeType.Field("Fixings").Get(obj))
	assert.Equal(t, ir.Enum("Sell"), tradeType.Field("Side").Get(obj))
	assert.Nil(t, tradeType.Field("Leg").Get(obj))
	assert.Nil(t, tradeType.Field("Legs").Get(obj))

	require.NoError(t, tradeType.Field("Price").Assign(obj, nil))
	assert.Nil(t, obj.Price)
	assert.Nil(t, tradeType.Field("Price").Get(obj))
}

func TestField_AssignRejectsNarrowing(t *testing.T) {
	obj := tradeType.New().(*trade)

	err := tradeType.Field("Qty").Assign(obj, 1.25)
	require.Error(t, err)
	assert.True(t, ir.Is(err, ir.CodeTypeMismatch))
	assert.Contains(t, err.Error(), "field Qty")
	assert.Zero(t, obj.Qty)

	err = tradeType.Field("Side").Assign(obj, "Short")
	assert.True(t, ir.Is(err, ir.CodeTypeMismatch))

	err = tradeType.Field("Fixings").Assign(obj, 1.0)
	assert.True(t, ir.Is(err, ir.CodeTypeMismatch))
}

func TestField_EmbeddedObjects(t *testing.T) {
	obj := &trade{}
	l := legType.New().(*leg)
	require.NoError(t, legType.Field("Venue").Assign(l, "XNYS"))

	require.NoError(t, tradeType.Field("Leg").Assign(obj, l))
	require.NoError(t, tradeType.Field("Legs").Assign(obj, []any{l, nil}))
	assert.Same(t, l, obj.Leg)
	assert.Equal(t, []*leg{l, nil}, obj.Legs)
	assert.Equal(t, []any{l, nil}, tradeType.Field("Legs").Get(obj))

	err := tradeType.Field("Leg").Assign(obj, &trade{})
	assert.True(t, ir.Is(err, ir.CodeTypeMismatch))
}

func TestDynamic_Record(t *testing.T) {
	sub := Dynamic("Point", FieldSpec{Name: "X", Kind: ir.KindDouble})
	typ := Dynamic("Shape",
		FieldSpec{Name: "Name", Kind: ir.KindString},
		FieldSpec{Name: "Count", Kind: ir.KindInt32},
		FieldSpec{Name: "Points", Kind: ir.KindData, Array: true, Type: sub},
		FieldSpec{Name: "Color", Kind: ir.KindEnum, Enum: []string{"Red", "Blue"}},
	).WithKey("Name")

	rec := typ.New().(*Record)
	assert.Equal(t, "Shape", rec.Type)

	require.NoError(t, typ.Field("Name").Assign(rec, "tri"))
	require.NoError(t, typ.Field("Count").Assign(rec, int64(3)))
	require.NoError(t, typ.Field("Color").Assign(rec, "Blue"))
	p := sub.New().(*Record)
	require.NoError(t, sub.Field("X").Assign(p, int32(1)))
	require.NoError(t, typ.Field("Points").Assign(rec, []any{p}))

	assert.Equal(t, map[string]any{
		"Name":   "tri",
		"Count":  int32(3),
		"Color":  ir.Enum("Blue"),
		"Points": []any{p},
	}, rec.Values)
	assert.Equal(t, 1.0, p.Values["X"])

	err := typ.Field("Color").Assign(rec, "Green")
	assert.True(t, ir.Is(err, ir.CodeTypeMismatch))

	require.NoError(t, typ.Field("Name").Assign(rec, nil))
	assert.NotContains(t, rec.Values, "Name")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(tradeType)
	require.NoError(t, r.Register(legType))
	assert.Error(t, r.Register(legType))

	got, ok := r.Lookup("Leg")
	assert.True(t, ok)
	assert.Same(t, legType, got)

	_, ok = r.Lookup("Nope")
	assert.False(t, ok)
	assert.Equal(t, []string{"Leg", "Trade"}, r.Names())
}
