// Package jsontree is the structured-text format: a tree.Writer producing
// JSON and a tree.Reader consuming it.
//
// Dicts map to objects, arrays to arrays. Dates and times are written in
// their integer form, temporal ids and enums as strings. Empty values inside
// a dict are omitted; inside an array they are written as null. No type
// discriminator is added.
package jsontree

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
	"github.com/roach88/tempo/internal/tree"
)

// Writer renders the document protocol as compact JSON.
type Writer struct {
	m   tree.Machine
	buf bytes.Buffer

	// first[i] is true until container i has received a member.
	first []bool

	// key is the element name not yet emitted. Keys are written only once
	// the element has content, so empty elements leave no trace.
	key     string
	keyOpen bool
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the JSON written so far.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// String returns the JSON written so far.
func (w *Writer) String() string { return w.buf.String() }

func (w *Writer) separator() {
	n := len(w.first)
	if n == 0 {
		return
	}
	if !w.first[n-1] {
		w.buf.WriteByte(',')
	}
	w.first[n-1] = false
}

func (w *Writer) flushKey() error {
	if !w.keyOpen {
		return nil
	}
	w.separator()
	b, err := marshalString(w.key)
	if err != nil {
		return err
	}
	w.buf.Write(b)
	w.buf.WriteByte(':')
	w.keyOpen = false
	return nil
}

func (w *Writer) WriteStartDocument(name string) error {
	return w.m.StartDocument(name)
}

func (w *Writer) WriteEndDocument(name string) error {
	return w.m.EndDocument(name)
}

func (w *Writer) WriteStartElement(name string) error {
	if err := w.m.StartElement(name); err != nil {
		return err
	}
	w.key, w.keyOpen = name, true
	return nil
}

func (w *Writer) WriteEndElement(name string) error {
	if err := w.m.EndElement(name); err != nil {
		return err
	}
	w.keyOpen = false
	return nil
}

func (w *Writer) WriteStartDict() error {
	inItem := w.m.State() == tree.ArrayItemStarted
	if err := w.m.StartDict(); err != nil {
		return err
	}
	if inItem {
		w.separator()
	} else if err := w.flushKey(); err != nil {
		return err
	}
	w.buf.WriteByte('{')
	w.first = append(w.first, true)
	return nil
}

func (w *Writer) WriteEndDict() error {
	if err := w.m.EndDict(); err != nil {
		return err
	}
	w.buf.WriteByte('}')
	w.first = w.first[:len(w.first)-1]
	return nil
}

func (w *Writer) WriteStartArray() error {
	if err := w.m.StartArray(); err != nil {
		return err
	}
	if err := w.flushKey(); err != nil {
		return err
	}
	w.buf.WriteByte('[')
	w.first = append(w.first, true)
	return nil
}

func (w *Writer) WriteEndArray() error {
	if err := w.m.EndArray(); err != nil {
		return err
	}
	w.buf.WriteByte(']')
	w.first = w.first[:len(w.first)-1]
	return nil
}

func (w *Writer) WriteStartArrayItem() error {
	return w.m.StartArrayItem()
}

func (w *Writer) WriteEndArrayItem() error {
	return w.m.EndArrayItem()
}

func (w *Writer) WriteStartValue() error {
	return w.m.StartValue()
}

func (w *Writer) WriteValue(v any) error {
	inItem := w.m.State() == tree.ValueArrayItemStarted
	b, err := encodeValue(v)
	if err != nil {
		return err
	}
	if err := w.m.WriteValue(); err != nil {
		return err
	}
	if inItem {
		w.separator()
		w.buf.Write(b)
		return nil
	}
	if ir.IsEmpty(v) {
		// Dicts do not record absence.
		w.keyOpen = false
		return nil
	}
	if err := w.flushKey(); err != nil {
		return err
	}
	w.buf.Write(b)
	return nil
}

func (w *Writer) WriteEndValue() error {
	return w.m.EndValue()
}

// encodeValue renders a scalar. Empty values render as null.
func encodeValue(v any) ([]byte, error) {
	if ir.IsEmpty(v) {
		return []byte("null"), nil
	}
	switch x := v.(type) {
	case string:
		return marshalString(x)
	case float64:
		return encodeFloat(x)
	case float32:
		return encodeFloat(float64(x))
	case bool:
		return strconv.AppendBool(nil, x), nil
	case int32:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case int64:
		return strconv.AppendInt(nil, x, 10), nil
	case int:
		return strconv.AppendInt(nil, int64(x), 10), nil
	case ir.LocalDate:
		return strconv.AppendInt(nil, int64(x.IsoInt()), 10), nil
	case ir.LocalTime:
		return strconv.AppendInt(nil, int64(x.IsoInt()), 10), nil
	case ir.LocalMinute:
		return strconv.AppendInt(nil, int64(x.IsoInt()), 10), nil
	case ir.LocalDateTime:
		return strconv.AppendInt(nil, x.IsoLong(), 10), nil
	case tid.ID:
		return marshalString(x.String())
	case ir.Enum:
		return marshalString(string(x))
	}
	return nil, ir.OpErrorf(ir.CodeUnsupportedType, "WriteValue", "type %T is not supported for JSON serialization", v)
}

// encodeFloat uses the same notation switch as encoding/json and always
// keeps a decimal point or exponent so the value reads back as a double.
func encodeFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ir.OpErrorf(ir.CodeUnsupportedType, "WriteValue", "%v has no JSON representation", f)
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if !bytes.ContainsAny(b, ".e") {
		b = append(b, '.', '0')
	}
	return b, nil
}

// marshalString quotes s without HTML escaping.
func marshalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
