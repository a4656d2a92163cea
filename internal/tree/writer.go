package tree

import "github.com/roach88/tempo/internal/ir"

// Writer is the push side of the document protocol.
//
// Implementations validate every call with a Machine before acting on it.
type Writer interface {
	WriteStartDocument(name string) error
	WriteEndDocument(name string) error
	WriteStartElement(name string) error
	WriteEndElement(name string) error
	WriteStartDict() error
	WriteEndDict() error
	WriteStartArray() error
	WriteEndArray() error
	WriteStartArrayItem() error
	WriteEndArrayItem() error
	WriteStartValue() error
	WriteValue(v any) error
	WriteEndValue() error
}

// WriteValueElement writes a complete element holding a scalar. Empty values
// are omitted: a dict does not record absence.
func WriteValueElement(w Writer, name string, v any) error {
	if ir.IsEmpty(v) {
		return nil
	}
	if err := w.WriteStartElement(name); err != nil {
		return err
	}
	if err := w.WriteStartValue(); err != nil {
		return err
	}
	if err := w.WriteValue(v); err != nil {
		return err
	}
	if err := w.WriteEndValue(); err != nil {
		return err
	}
	return w.WriteEndElement(name)
}

// WriteStartDictElement opens an element holding a dict.
func WriteStartDictElement(w Writer, name string) error {
	if err := w.WriteStartElement(name); err != nil {
		return err
	}
	return w.WriteStartDict()
}

// WriteEndDictElement closes an element opened by WriteStartDictElement.
func WriteEndDictElement(w Writer, name string) error {
	if err := w.WriteEndDict(); err != nil {
		return err
	}
	return w.WriteEndElement(name)
}

// WriteStartArrayElement opens an element holding an array.
func WriteStartArrayElement(w Writer, name string) error {
	if err := w.WriteStartElement(name); err != nil {
		return err
	}
	return w.WriteStartArray()
}

// WriteEndArrayElement closes an element opened by WriteStartArrayElement.
func WriteEndArrayElement(w Writer, name string) error {
	if err := w.WriteEndArray(); err != nil {
		return err
	}
	return w.WriteEndElement(name)
}

// WriteValueArrayItem writes a complete array item holding a scalar. Empty
// values are kept as null so that item positions are preserved.
func WriteValueArrayItem(w Writer, v any) error {
	if err := w.WriteStartArrayItem(); err != nil {
		return err
	}
	if err := w.WriteStartValue(); err != nil {
		return err
	}
	if ir.IsEmpty(v) {
		v = nil
	}
	if err := w.WriteValue(v); err != nil {
		return err
	}
	if err := w.WriteEndValue(); err != nil {
		return err
	}
	return w.WriteEndArrayItem()
}

// WriteStartDictArrayItem opens an array item holding a dict.
func WriteStartDictArrayItem(w Writer) error {
	if err := w.WriteStartArrayItem(); err != nil {
		return err
	}
	return w.WriteStartDict()
}

// WriteEndDictArrayItem closes an item opened by WriteStartDictArrayItem.
func WriteEndDictArrayItem(w Writer) error {
	if err := w.WriteEndDict(); err != nil {
		return err
	}
	return w.WriteEndArrayItem()
}
