package meta

import (
	"math"
	"time"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
)

// Coerce converts v to the canonical Go type of kind:
//
//	string    string        date      ir.LocalDate
//	double    float64       time      ir.LocalTime
//	bool      bool          minute    ir.LocalMinute
//	int32     int32         datetime  ir.LocalDateTime
//	int64     int64         temporal  tid.ID
//	enum      ir.Enum       key       string
//
// Integer widening and integer-to-double conversion are silent. Narrowing
// succeeds only when the value is represented exactly; otherwise the result
// is a TYPE_MISMATCH error. Dates and times also accept their integer form,
// datetimes their ISO text form, and ids their text form.
func Coerce(v any, kind ir.Kind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case ir.KindString, ir.KindKey:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ir.KindDouble:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case int:
			return float64(x), nil
		}
	case ir.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case ir.KindInt32:
		if n, ok := exactInt(v); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, mismatch(v, kind, "out of range")
			}
			return int32(n), nil
		}
	case ir.KindInt64:
		if n, ok := exactInt(v); ok {
			return n, nil
		}
	case ir.KindDate:
		if d, ok := v.(ir.LocalDate); ok {
			return d, nil
		}
		if n, ok := exactInt(v); ok {
			return ir.LocalDateFromIsoInt(n)
		}
	case ir.KindTime:
		if t, ok := v.(ir.LocalTime); ok {
			return t, nil
		}
		if n, ok := exactInt(v); ok {
			return ir.LocalTimeFromIsoInt(n)
		}
	case ir.KindMinute:
		if m, ok := v.(ir.LocalMinute); ok {
			return m, nil
		}
		if n, ok := exactInt(v); ok {
			return ir.LocalMinuteFromIsoInt(n)
		}
	case ir.KindDateTime:
		switch x := v.(type) {
		case ir.LocalDateTime:
			return x, nil
		case time.Time:
			return ir.LocalDateTimeFromTime(x), nil
		case string:
			return ir.ParseLocalDateTime(x)
		}
		if n, ok := exactInt(v); ok {
			return ir.LocalDateTimeFromIsoLong(n)
		}
	case ir.KindTemporalID:
		switch x := v.(type) {
		case tid.ID:
			return x, nil
		case string:
			return tid.Parse(x)
		case []byte:
			return tid.FromBytes(x)
		}
	case ir.KindEnum:
		switch x := v.(type) {
		case ir.Enum:
			return x, nil
		case string:
			return ir.Enum(x), nil
		}
	default:
		return nil, ir.Errorf(ir.CodeUnsupportedType, "kind %s has no scalar form", kind)
	}
	return nil, mismatch(v, kind, "")
}

// exactInt returns v as int64 when v is an integer, or a float with no
// fractional part inside the int64 range.
func exactInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return floatToInt(x)
	case float32:
		return floatToInt(float64(x))
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func mismatch(v any, kind ir.Kind, detail string) error {
	if detail != "" {
		return ir.Errorf(ir.CodeTypeMismatch, "cannot convert %T %v to %s: %s", v, v, kind, detail)
	}
	return ir.Errorf(ir.CodeTypeMismatch, "cannot convert %T %v to %s", v, v, kind)
}
