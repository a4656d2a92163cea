// Package tupletree projects a document onto a flat row of selected
// top-level elements.
//
// Elements of the root dict that are not projected, including the storage
// metadata elements _id and _key, are skipped with their whole subtree.
// Embedded data columns are populated into objects of the column's type and
// stored in the row as the object's JSON text. A row cell has no room for a
// list nested inside an embedded column; such lists are rejected.
package tupletree

import (
	"fmt"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/jsontree"
	"github.com/roach88/tempo/internal/key"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/objtree"
	"github.com/roach88/tempo/internal/tree"
)

// Column is one projected element.
type Column struct {
	Name  string
	Kind  ir.Kind
	Array bool

	// Type is the embedded type for KindData and the key type for KindKey.
	Type *meta.Type
}

// Columns builds the columns for the named fields of t, in the given order.
func Columns(t *meta.Type, names ...string) ([]Column, error) {
	cols := make([]Column, len(names))
	for i, n := range names {
		f := t.Field(n)
		if f == nil {
			return nil, fmt.Errorf("type %s has no field %s", t.Name, n)
		}
		cols[i] = Column{Name: f.Name, Kind: f.Kind, Array: f.Array, Type: f.Type}
	}
	return cols, nil
}

// Writer fills a row with one cell per column.
type Writer struct {
	m    tree.Machine
	cols []Column
	row  []any

	// cur is the column of the open root element, -1 when none.
	cur int

	// skip is the machine depth of a skipped element, 0 otherwise.
	skip int

	items   []any
	inArray bool

	// sub populates the embedded object of a data cell or data array item.
	sub      *objtree.Writer
	subDicts int
}

// NewWriter returns a Writer projecting onto cols.
func NewWriter(cols []Column) *Writer {
	return &Writer{cols: cols, row: make([]any, len(cols)), cur: -1}
}

// Row returns the cells filled so far. Absent elements are nil.
func (w *Writer) Row() []any { return w.row }

func (w *Writer) column(name string) int {
	for i, c := range w.cols {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (w *Writer) passive() bool { return w.skip > 0 }

func (w *Writer) WriteStartDocument(name string) error { return w.m.StartDocument(name) }

func (w *Writer) WriteEndDocument(name string) error { return w.m.EndDocument(name) }

func (w *Writer) WriteStartElement(name string) error {
	if err := w.m.StartElement(name); err != nil {
		return err
	}
	if w.passive() {
		return nil
	}
	if w.sub != nil {
		return w.sub.WriteStartElement(name)
	}
	i := w.column(name)
	if i < 0 {
		w.skip = w.m.Depth()
		return nil
	}
	w.cur = i
	return nil
}

func (w *Writer) WriteEndElement(name string) error {
	if err := w.m.EndElement(name); err != nil {
		return err
	}
	if w.passive() {
		if w.m.Depth() < w.skip {
			w.skip = 0
		}
		return nil
	}
	if w.sub != nil {
		return w.sub.WriteEndElement(name)
	}
	w.cur = -1
	return nil
}

func (w *Writer) WriteStartDict() error {
	if err := w.m.StartDict(); err != nil {
		return err
	}
	if w.passive() || w.cur < 0 {
		return nil
	}
	if w.sub != nil {
		w.subDicts++
		return w.sub.WriteStartDict()
	}
	c := w.cols[w.cur]
	if c.Kind != ir.KindData || c.Type == nil {
		return ir.OpErrorf(ir.CodeUnsupportedShape, "WriteStartDict",
			"column %s of kind %s cannot hold a dict", c.Name, c.Kind)
	}
	w.sub = objtree.NewWriter(c.Type, c.Type.New())
	w.subDicts = 1
	if err := w.sub.WriteStartDocument(c.Type.Name); err != nil {
		return err
	}
	return w.sub.WriteStartDict()
}

func (w *Writer) WriteEndDict() error {
	if err := w.m.EndDict(); err != nil {
		return err
	}
	if w.passive() || w.sub == nil {
		return nil
	}
	if err := w.sub.WriteEndDict(); err != nil {
		return err
	}
	if w.subDicts--; w.subDicts > 0 {
		return nil
	}
	c := w.cols[w.cur]
	if err := w.sub.WriteEndDocument(c.Type.Name); err != nil {
		return err
	}
	text, err := encode(c.Type, w.sub.Object())
	if err != nil {
		return fmt.Errorf("column %s: %w", c.Name, err)
	}
	w.cell(text)
	w.sub = nil
	return nil
}

// encode renders an embedded object as compact JSON.
func encode(t *meta.Type, obj any) (string, error) {
	jw := jsontree.NewWriter()
	if err := objtree.Walk(t, obj, jw); err != nil {
		return "", err
	}
	return jw.String(), nil
}

func (w *Writer) WriteStartArray() error {
	if err := w.m.StartArray(); err != nil {
		return err
	}
	if w.passive() {
		return nil
	}
	c := w.cols[w.cur]
	if w.sub != nil {
		return ir.OpErrorf(ir.CodeUnsupportedShape, "WriteStartArray",
			"column %s cannot hold a list inside embedded data", c.Name)
	}
	if !c.Array {
		return ir.OpErrorf(ir.CodeUnsupportedShape, "WriteStartArray",
			"column %s is not a list", c.Name)
	}
	w.items, w.inArray = []any{}, true
	return nil
}

func (w *Writer) WriteEndArray() error {
	if err := w.m.EndArray(); err != nil {
		return err
	}
	if w.passive() {
		return nil
	}
	w.row[w.cur] = w.items
	w.items, w.inArray = nil, false
	return nil
}

func (w *Writer) WriteStartArrayItem() error { return w.m.StartArrayItem() }

func (w *Writer) WriteEndArrayItem() error { return w.m.EndArrayItem() }

func (w *Writer) WriteStartValue() error {
	if err := w.m.StartValue(); err != nil {
		return err
	}
	if w.sub != nil && !w.passive() {
		return w.sub.WriteStartValue()
	}
	return nil
}

func (w *Writer) WriteEndValue() error {
	if err := w.m.EndValue(); err != nil {
		return err
	}
	if w.sub != nil && !w.passive() {
		return w.sub.WriteEndValue()
	}
	return nil
}

func (w *Writer) WriteValue(v any) error {
	if err := w.m.WriteValue(); err != nil {
		return err
	}
	if w.passive() {
		return nil
	}
	if w.sub != nil {
		return w.sub.WriteValue(v)
	}
	if ir.IsEmpty(v) {
		if w.inArray {
			w.items = append(w.items, nil)
		}
		return nil
	}
	c := w.cols[w.cur]
	cv, err := convert(c, v)
	if err != nil {
		return fmt.Errorf("column %s: %w", c.Name, err)
	}
	w.cell(cv)
	return nil
}

// cell stores a completed value in the open column or array.
func (w *Writer) cell(v any) {
	if w.inArray {
		w.items = append(w.items, v)
		return
	}
	w.row[w.cur] = v
}

func convert(c Column, v any) (any, error) {
	switch c.Kind {
	case ir.KindData:
		return nil, ir.OpErrorf(ir.CodeTypeMismatch, "WriteValue", "column holds embedded data, got %T", v)
	case ir.KindKey:
		s, ok := v.(string)
		if !ok {
			return nil, ir.OpErrorf(ir.CodeTypeMismatch, "WriteValue", "column holds a key string, got %T", v)
		}
		if c.Type == nil {
			return s, nil
		}
		return key.Parse(c.Type, s)
	}
	return meta.Coerce(v, c.Kind)
}

// Project reads a document from r and returns its row.
func Project(cols []Column, r tree.Reader) ([]any, error) {
	w := NewWriter(cols)
	if err := tree.Copy(w, r); err != nil {
		return nil, err
	}
	return w.Row(), nil
}
