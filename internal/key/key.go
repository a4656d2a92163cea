// Package key derives and parses the semicolon-delimited string key of a
// record from its key element fields.
//
// The key string is a cross-format wire contract. Dates and times use their
// integer form; doubles are never key elements. A key element that is itself
// a key reference contributes its own tokens inline.
package key

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/tid"
)

// Delimiter separates key tokens.
const Delimiter = ";"

// Format returns the key string of obj, an instance of t.
func Format(t *meta.Type, obj any) (string, error) {
	tokens, err := appendTokens(nil, t, obj)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, Delimiter), nil
}

// TokenCount returns the number of tokens in keys of type t.
func TokenCount(t *meta.Type) int {
	n := 0
	for _, f := range t.KeyFields() {
		if f.Kind == ir.KindKey && !f.Array && f.Type != nil {
			n += TokenCount(f.Type)
			continue
		}
		n++
	}
	return n
}

func appendTokens(tokens []string, t *meta.Type, obj any) ([]string, error) {
	if len(t.Key) == 0 {
		return nil, ir.Errorf(ir.CodeUnsupportedKeyType, "type %s declares no key elements", t.Name)
	}
	for _, f := range t.KeyFields() {
		if err := checkKeyField(t, f); err != nil {
			return nil, err
		}
		v := f.Get(obj)
		if ir.IsEmpty(v) {
			return nil, ir.Errorf(ir.CodeInvalidKeyToken, "key element %s.%s is empty", t.Name, f.Name)
		}
		if f.Kind == ir.KindKey {
			var err error
			if tokens, err = appendTokens(tokens, f.Type, v); err != nil {
				return nil, err
			}
			continue
		}
		tok, err := token(f, v)
		if err != nil {
			return nil, fmt.Errorf("key element %s.%s: %w", t.Name, f.Name, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func checkKeyField(t *meta.Type, f *meta.Field) error {
	switch {
	case f.Array:
		return ir.Errorf(ir.CodeUnsupportedKeyType, "key element %s.%s is a list", t.Name, f.Name)
	case f.Kind == ir.KindDouble:
		return ir.Errorf(ir.CodeUnsupportedKeyType, "key element %s.%s is a double", t.Name, f.Name)
	case f.Kind == ir.KindData:
		return ir.Errorf(ir.CodeUnsupportedKeyType, "key element %s.%s is embedded data", t.Name, f.Name)
	case f.Kind == ir.KindKey && f.Type == nil:
		return ir.Errorf(ir.CodeUnsupportedKeyType, "key element %s.%s has no key type", t.Name, f.Name)
	}
	return nil
}

// token converts a single key element value to its text form.
func token(f *meta.Field, v any) (string, error) {
	c, err := meta.Coerce(v, f.Kind)
	if err != nil {
		return "", err
	}
	var s string
	switch x := c.(type) {
	case string:
		s = x
	case bool:
		s = strconv.FormatBool(x)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int64:
		s = strconv.FormatInt(x, 10)
	case ir.LocalDate:
		s = strconv.FormatInt(int64(x.IsoInt()), 10)
	case ir.LocalTime:
		s = strconv.FormatInt(int64(x.IsoInt()), 10)
	case ir.LocalMinute:
		s = strconv.FormatInt(int64(x.IsoInt()), 10)
	case ir.LocalDateTime:
		s = strconv.FormatInt(x.IsoLong(), 10)
	case tid.ID:
		s = x.String()
	case ir.Enum:
		s = string(x)
	default:
		return "", ir.Errorf(ir.CodeUnsupportedKeyType, "value of type %T cannot be a key element", c)
	}
	if s == "" {
		return "", ir.Errorf(ir.CodeInvalidKeyToken, "key token is empty")
	}
	if strings.Contains(s, Delimiter) {
		return "", ir.Errorf(ir.CodeInvalidKeyToken, "key token %q contains the delimiter %q", s, Delimiter)
	}
	return s, nil
}

// Parse creates a new instance of t and assigns its key elements from s.
func Parse(t *meta.Type, s string) (any, error) {
	obj := t.New()
	if err := Assign(t, obj, s); err != nil {
		return nil, err
	}
	return obj, nil
}

// Assign sets the key element fields of obj from the key string s.
// The token count must equal the number of key elements and no token may be
// empty.
func Assign(t *meta.Type, obj any, s string) error {
	tokens := strings.Split(s, Delimiter)
	if want := TokenCount(t); len(tokens) != want {
		return ir.Errorf(ir.CodeFormatError, "key %q of type %s has %d tokens, expected %d", s, t.Name, len(tokens), want)
	}
	for i, tok := range tokens {
		if tok == "" {
			return ir.Errorf(ir.CodeInvalidKeyToken, "key %q of type %s has an empty token at position %d", s, t.Name, i)
		}
	}
	rest, err := assignTokens(t, obj, tokens)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return ir.Errorf(ir.CodeFormatError, "key %q of type %s has unconsumed tokens", s, t.Name)
	}
	return nil
}

func assignTokens(t *meta.Type, obj any, tokens []string) ([]string, error) {
	for _, f := range t.KeyFields() {
		if err := checkKeyField(t, f); err != nil {
			return nil, err
		}
		if f.Kind == ir.KindKey {
			sub := f.Type.New()
			var err error
			if tokens, err = assignTokens(f.Type, sub, tokens); err != nil {
				return nil, err
			}
			if err := f.Set(obj, sub); err != nil {
				return nil, err
			}
			continue
		}
		v, err := parseToken(f, tokens[0])
		if err != nil {
			return nil, fmt.Errorf("key element %s.%s: %w", t.Name, f.Name, err)
		}
		if err := f.Assign(obj, v); err != nil {
			return nil, err
		}
		tokens = tokens[1:]
	}
	return tokens, nil
}

func parseToken(f *meta.Field, tok string) (any, error) {
	switch f.Kind {
	case ir.KindString, ir.KindEnum, ir.KindTemporalID:
		return tok, nil
	case ir.KindBool:
		b, err := strconv.ParseBool(tok)
		if err != nil {
			return nil, ir.Errorf(ir.CodeFormatError, "key token %q is not a bool", tok)
		}
		return b, nil
	case ir.KindInt32, ir.KindInt64, ir.KindDate, ir.KindTime, ir.KindMinute, ir.KindDateTime:
		n, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, ir.Errorf(ir.CodeFormatError, "key token %q is not an integer", tok)
		}
		return n, nil
	}
	return nil, ir.Errorf(ir.CodeUnsupportedKeyType, "kind %s cannot be a key element", f.Kind)
}
