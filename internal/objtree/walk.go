package objtree

import (
	"fmt"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/key"
	"github.com/roach88/tempo/internal/meta"
	"github.com/roach88/tempo/internal/tree"
)

// Element is a leading scalar element written before the fields of the root
// dict, used for storage metadata such as _id and _key.
type Element struct {
	Name  string
	Value any
}

// Walk writes obj, an instance of t, to w as a complete document. Empty
// fields are omitted; empty list items are written as nulls.
func Walk(t *meta.Type, obj any, w tree.Writer, header ...Element) error {
	if err := w.WriteStartDocument(t.Name); err != nil {
		return err
	}
	if err := w.WriteStartDict(); err != nil {
		return err
	}
	for _, e := range header {
		if err := tree.WriteValueElement(w, e.Name, e.Value); err != nil {
			return err
		}
	}
	if err := walkFields(t, obj, w); err != nil {
		return err
	}
	if err := w.WriteEndDict(); err != nil {
		return err
	}
	return w.WriteEndDocument(t.Name)
}

// NewReader returns a pull reader over the document Walk would write.
func NewReader(t *meta.Type, obj any, header ...Element) (tree.Reader, error) {
	rec := tree.NewRecorder()
	if err := Walk(t, obj, rec, header...); err != nil {
		return nil, err
	}
	return rec.Reader(), nil
}

func walkFields(t *meta.Type, obj any, w tree.Writer) error {
	for _, f := range t.Fields {
		v := f.Get(obj)
		if v == nil {
			continue
		}
		var err error
		if f.Array {
			err = walkList(f, v, w)
		} else {
			err = walkSingle(f, v, w)
		}
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
	}
	return nil
}

func walkSingle(f *meta.Field, v any, w tree.Writer) error {
	switch f.Kind {
	case ir.KindData:
		if err := tree.WriteStartDictElement(w, f.Name); err != nil {
			return err
		}
		if err := walkFields(f.Type, v, w); err != nil {
			return err
		}
		return tree.WriteEndDictElement(w, f.Name)
	case ir.KindKey:
		s, err := key.Format(f.Type, v)
		if err != nil {
			return err
		}
		return tree.WriteValueElement(w, f.Name, s)
	}
	return tree.WriteValueElement(w, f.Name, v)
}

func walkList(f *meta.Field, v any, w tree.Writer) error {
	items, ok := v.([]any)
	if !ok {
		return ir.Errorf(ir.CodeTypeMismatch, "list field returned %T", v)
	}
	if err := tree.WriteStartArrayElement(w, f.Name); err != nil {
		return err
	}
	for _, item := range items {
		var err error
		switch {
		case item == nil:
			err = tree.WriteValueArrayItem(w, nil)
		case f.Kind == ir.KindData:
			err = walkDictItem(f.Type, item, w)
		case f.Kind == ir.KindKey:
			var s string
			if s, err = key.Format(f.Type, item); err == nil {
				err = tree.WriteValueArrayItem(w, s)
			}
		default:
			err = tree.WriteValueArrayItem(w, item)
		}
		if err != nil {
			return err
		}
	}
	return tree.WriteEndArrayElement(w, f.Name)
}

func walkDictItem(t *meta.Type, obj any, w tree.Writer) error {
	if err := tree.WriteStartDictArrayItem(w); err != nil {
		return err
	}
	if err := walkFields(t, obj, w); err != nil {
		return err
	}
	return tree.WriteEndDictArrayItem(w)
}
