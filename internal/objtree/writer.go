// Package objtree connects the document protocol to in-memory objects
// described by meta types.
//
// Writer populates an object from protocol calls; Walk and NewReader emit
// the protocol from an object. Key references travel as key strings. Elements
// whose names start with an underscore are storage metadata and are skipped
// on the way in.
package objtree

import (
	"fmt"
	"strings"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/key"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/tree"
)

// level is one dict being populated.
type level struct {
	typ *meta.Type
	obj any

	// field is the element currently open in this dict.
	field *meta.Field

	// pending is the completed content of field, assigned on WriteEndElement.
	pending any
	has     bool

	// items collects the content of an open array element.
	items   []any
	inArray bool
}

// Writer populates obj, an instance of typ, from the document protocol.
type Writer struct {
	m     tree.Machine
	typ   *meta.Type
	obj   any
	stack []*level

	// skip is the machine depth of a skipped metadata element, 0 otherwise.
	skip int
}

// NewWriter returns a Writer that populates obj. obj must be an instance of t.
func NewWriter(t *meta.Type, obj any) *Writer {
	return &Writer{typ: t, obj: obj}
}

// Object returns the object being populated.
func (w *Writer) Object() any { return w.obj }

func (w *Writer) top() *level { return w.stack[len(w.stack)-1] }

func (w *Writer) skipping() bool { return w.skip > 0 }

func (w *Writer) WriteStartDocument(name string) error {
	if name != w.typ.Name {
		return ir.OpErrorf(ir.CodeTypeMismatch, "WriteStartDocument",
			"document %s cannot populate type %s", name, w.typ.Name)
	}
	return w.m.StartDocument(name)
}

func (w *Writer) WriteEndDocument(name string) error {
	return w.m.EndDocument(name)
}

func (w *Writer) WriteStartElement(name string) error {
	if err := w.m.StartElement(name); err != nil {
		return err
	}
	if w.skipping() {
		return nil
	}
	if strings.HasPrefix(name, "_") {
		w.skip = w.m.Depth()
		return nil
	}
	l := w.top()
	f := l.typ.Field(name)
	if f == nil {
		return ir.OpErrorf(ir.CodeUnsupportedShape, "WriteStartElement",
			"element %s is not a field of %s", name, l.typ.Name)
	}
	l.field, l.pending, l.has = f, nil, false
	return nil
}

func (w *Writer) WriteEndElement(name string) error {
	if err := w.m.EndElement(name); err != nil {
		return err
	}
	if w.skipping() {
		if w.m.Depth() < w.skip {
			w.skip = 0
		}
		return nil
	}
	l := w.top()
	f := l.field
	l.field = nil
	if !l.has {
		return nil
	}
	if err := f.Assign(l.obj, l.pending); err != nil {
		return fmt.Errorf("%s: %w", l.typ.Name, err)
	}
	l.pending, l.has = nil, false
	return nil
}

func (w *Writer) WriteStartDict() error {
	if err := w.m.StartDict(); err != nil {
		return err
	}
	if w.skipping() {
		return nil
	}
	if len(w.stack) == 0 {
		w.stack = append(w.stack, &level{typ: w.typ, obj: w.obj})
		return nil
	}
	f := w.top().field
	if f.Kind != ir.KindData || f.Type == nil {
		return ir.OpErrorf(ir.CodeTypeMismatch, "WriteStartDict",
			"element %s of kind %s cannot hold a dict", f.Name, f.Kind)
	}
	w.stack = append(w.stack, &level{typ: f.Type, obj: f.Type.New()})
	return nil
}

func (w *Writer) WriteEndDict() error {
	if err := w.m.EndDict(); err != nil {
		return err
	}
	if w.skipping() {
		return nil
	}
	done := w.top()
	w.stack = w.stack[:len(w.stack)-1]
	if len(w.stack) == 0 {
		return nil
	}
	w.complete(done.obj)
	return nil
}

// complete records v as the content of the open element or array item.
func (w *Writer) complete(v any) {
	l := w.top()
	if l.inArray {
		l.items = append(l.items, v)
		return
	}
	l.pending, l.has = v, true
}

func (w *Writer) WriteStartArray() error {
	if err := w.m.StartArray(); err != nil {
		return err
	}
	if w.skipping() {
		return nil
	}
	l := w.top()
	if !l.field.Array {
		return ir.OpErrorf(ir.CodeTypeMismatch, "WriteStartArray",
			"element %s is not a list", l.field.Name)
	}
	l.items, l.inArray = []any{}, true
	return nil
}

func (w *Writer) WriteEndArray() error {
	if err := w.m.EndArray(); err != nil {
		return err
	}
	if w.skipping() {
		return nil
	}
	l := w.top()
	items := l.items
	l.items, l.inArray = nil, false
	l.pending, l.has = items, true
	return nil
}

func (w *Writer) WriteStartArrayItem() error { return w.m.StartArrayItem() }

func (w *Writer) WriteEndArrayItem() error { return w.m.EndArrayItem() }

func (w *Writer) WriteStartValue() error { return w.m.StartValue() }

func (w *Writer) WriteEndValue() error { return w.m.EndValue() }

func (w *Writer) WriteValue(v any) error {
	if err := w.m.WriteValue(); err != nil {
		return err
	}
	if w.skipping() {
		return nil
	}
	f := w.top().field
	if v != nil {
		switch f.Kind {
		case ir.KindData:
			return ir.OpErrorf(ir.CodeTypeMismatch, "WriteValue",
				"element %s holds embedded data, got %T", f.Name, v)
		case ir.KindKey:
			s, ok := v.(string)
			if !ok {
				return ir.OpErrorf(ir.CodeTypeMismatch, "WriteValue",
					"element %s holds a key string, got %T", f.Name, v)
			}
			k, err := key.Parse(f.Type, s)
			if err != nil {
				return fmt.Errorf("element %s: %w", f.Name, err)
			}
			v = k
		}
	}
	w.complete(v)
	return nil
}

// Populate copies the document read from r into obj.
func Populate(t *meta.Type, obj any, r tree.Reader) error {
	return tree.Copy(NewWriter(t, obj), r)
}

// Decode reads a document from r into a new instance of t.
func Decode(t *meta.Type, r tree.Reader) (any, error) {
	obj := t.New()
	if err := Populate(t, obj, r); err != nil {
		return nil, err
	}
	return obj, nil
}
