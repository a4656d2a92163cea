package tree

import (
	"reflect"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
)

// NormalizeValue maps a scalar to the representation a text format reads it
// back as: integers widen to int64, dates and times become their integer
// form, ids and enums become strings.
func NormalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case ir.LocalDate:
		return int64(x.IsoInt())
	case ir.LocalTime:
		return int64(x.IsoInt())
	case ir.LocalMinute:
		return int64(x.IsoInt())
	case ir.LocalDateTime:
		return x.IsoLong()
	case tid.ID:
		return x.String()
	case ir.Enum:
		return string(x)
	}
	return v
}

// Normalize returns a copy of tokens with every value normalized.
func Normalize(tokens []Token) []Token {
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		if tok.Kind == Value {
			tok.Value = NormalizeValue(tok.Value)
		}
		out[i] = tok
	}
	return out
}

// Equal reports whether two token sequences describe the same document
// after normalization.
func Equal(a, b []Token) bool {
	if len(a) != len(b) {
		return false
	}
	na, nb := Normalize(a), Normalize(b)
	for i := range na {
		if na[i].Kind != nb[i].Kind || na[i].Name != nb[i].Name ||
			!reflect.DeepEqual(na[i].Value, nb[i].Value) {
			return false
		}
	}
	return true
}
