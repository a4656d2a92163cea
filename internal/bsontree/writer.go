// Package bsontree is the binary-document format. Writer builds a BSON
// document from the protocol; Decode walks BSON bytes and pushes the protocol
// into any tree.Writer.
//
// Dates, times, and minutes are stored as int32 in their integer form,
// datetimes as int64, temporal ids as ObjectIDs (both are 12 bytes), enums
// as strings. Arrays are documents keyed "0", "1", ...; sparse arrays are
// rejected on read.
package bsontree

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
	"github.com/roach88/tempo/internal/tree"
)

type node struct {
	array bool
	doc   bson.D
	items bson.A
	// key is the element the container is attached under; unused for
	// array items and the root.
	key string
}

// Writer builds a BSON document.
type Writer struct {
	m     tree.Machine
	stack []*node
	key   string
	root  bson.D
	raw   []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Document returns the completed document, or nil before WriteEndDocument.
func (w *Writer) Document() bson.D { return w.root }

// Bytes returns the encoded document, or nil before WriteEndDocument.
func (w *Writer) Bytes() []byte { return w.raw }

func (w *Writer) top() *node { return w.stack[len(w.stack)-1] }

// attach adds a completed value to the current container.
func (w *Writer) attach(key string, v any) {
	n := w.top()
	if n.array {
		n.items = append(n.items, v)
		return
	}
	n.doc = append(n.doc, bson.E{Key: key, Value: v})
}

func (w *Writer) WriteStartDocument(name string) error {
	return w.m.StartDocument(name)
}

func (w *Writer) WriteEndDocument(name string) error {
	if err := w.m.EndDocument(name); err != nil {
		return err
	}
	raw, err := bson.Marshal(w.root)
	if err != nil {
		return ir.OpErrorf(ir.CodeUnsupportedType, "WriteEndDocument", "encode BSON: %v", err)
	}
	w.raw = raw
	return nil
}

func (w *Writer) WriteStartElement(name string) error {
	if err := w.m.StartElement(name); err != nil {
		return err
	}
	w.key = name
	return nil
}

func (w *Writer) WriteEndElement(name string) error {
	return w.m.EndElement(name)
}

func (w *Writer) WriteStartDict() error {
	if err := w.m.StartDict(); err != nil {
		return err
	}
	w.stack = append(w.stack, &node{doc: bson.D{}, key: w.key})
	return nil
}

func (w *Writer) WriteEndDict() error {
	if err := w.m.EndDict(); err != nil {
		return err
	}
	n := w.top()
	w.stack = w.stack[:len(w.stack)-1]
	if len(w.stack) == 0 {
		w.root = n.doc
		return nil
	}
	w.attach(n.key, n.doc)
	return nil
}

func (w *Writer) WriteStartArray() error {
	if err := w.m.StartArray(); err != nil {
		return err
	}
	w.stack = append(w.stack, &node{array: true, items: bson.A{}, key: w.key})
	return nil
}

func (w *Writer) WriteEndArray() error {
	if err := w.m.EndArray(); err != nil {
		return err
	}
	n := w.top()
	w.stack = w.stack[:len(w.stack)-1]
	w.attach(n.key, n.items)
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
	bv, err := encodeValue(v)
	if err != nil {
		return err
	}
	if err := w.m.WriteValue(); err != nil {
		return err
	}
	if inItem {
		w.attach("", bv)
		return nil
	}
	if bv != nil {
		w.attach(w.key, bv)
	}
	return nil
}

func (w *Writer) WriteEndValue() error {
	return w.m.EndValue()
}

// encodeValue maps a scalar to the Go value the bson encoder stores with the
// intended type tag. Empty values map to nil.
func encodeValue(v any) (any, error) {
	if ir.IsEmpty(v) {
		return nil, nil
	}
	switch x := v.(type) {
	case string, float64, bool, int32, int64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return int64(x), nil
	case ir.LocalDate:
		return x.IsoInt(), nil
	case ir.LocalTime:
		return x.IsoInt(), nil
	case ir.LocalMinute:
		return x.IsoInt(), nil
	case ir.LocalDateTime:
		return x.IsoLong(), nil
	case tid.ID:
		return primitive.ObjectID(x), nil
	case ir.Enum:
		return string(x), nil
	}
	return nil, ir.OpErrorf(ir.CodeUnsupportedType, "WriteValue", "type %T is not supported for BSON serialization", v)
}
