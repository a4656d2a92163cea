package bsontree

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
	"github.com/roach88/tempo/internal/tree"
)

// Decode walks the BSON document data and pushes it into w as a document
// named name.
//
// Null fields inside a document are skipped; null array items are written as
// null values. An array index that differs from the running item counter is
// UNSUPPORTED_ENCODING; an array nested directly in an array is
// UNSUPPORTED_SHAPE.
func Decode(data []byte, name string, w tree.Writer) error {
	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return ir.Errorf(ir.CodeFormatError, "malformed BSON document: %v", err)
	}
	if err := w.WriteStartDocument(name); err != nil {
		return err
	}
	if err := w.WriteStartDict(); err != nil {
		return err
	}
	if err := decodeDict(raw, w); err != nil {
		return err
	}
	if err := w.WriteEndDict(); err != nil {
		return err
	}
	return w.WriteEndDocument(name)
}

// NewReader returns a pull reader over the BSON document data.
func NewReader(data []byte, name string) tree.Reader {
	return &reader{data: data, name: name}
}

type reader struct {
	data []byte
	name string
	src  tree.Reader
}

func (r *reader) Next() (tree.Token, error) {
	if r.src == nil {
		rec := tree.NewRecorder()
		if err := Decode(r.data, r.name, rec); err != nil {
			return tree.Token{}, err
		}
		r.src = rec.Reader()
	}
	return r.src.Next()
}

func decodeDict(raw bson.Raw, w tree.Writer) error {
	elems, err := raw.Elements()
	if err != nil {
		return ir.Errorf(ir.CodeFormatError, "malformed BSON document: %v", err)
	}
	for _, e := range elems {
		key, v := e.Key(), e.Value()
		switch v.Type {
		case bsontype.Null, bsontype.Undefined:
			continue
		case bsontype.EmbeddedDocument:
			if err := tree.WriteStartDictElement(w, key); err != nil {
				return err
			}
			if err := decodeDict(v.Document(), w); err != nil {
				return err
			}
			if err := tree.WriteEndDictElement(w, key); err != nil {
				return err
			}
		case bsontype.Array:
			if err := tree.WriteStartArrayElement(w, key); err != nil {
				return err
			}
			if err := decodeArray(key, v.Array(), w); err != nil {
				return err
			}
			if err := tree.WriteEndArrayElement(w, key); err != nil {
				return err
			}
		default:
			value, err := scalar(key, v)
			if err != nil {
				return err
			}
			if err := tree.WriteValueElement(w, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeArray(element string, raw bson.Raw, w tree.Writer) error {
	elems, err := raw.Elements()
	if err != nil {
		return ir.Errorf(ir.CodeFormatError, "malformed BSON array %q: %v", element, err)
	}
	for i, e := range elems {
		if idx, err := strconv.Atoi(e.Key()); err != nil || idx != i {
			return ir.Errorf(ir.CodeUnsupportedEncoding,
				"array %q item %d has index %q; sparse arrays are not supported", element, i, e.Key())
		}
		v := e.Value()
		switch v.Type {
		case bsontype.Null, bsontype.Undefined:
			if err := tree.WriteValueArrayItem(w, nil); err != nil {
				return err
			}
		case bsontype.EmbeddedDocument:
			if err := tree.WriteStartDictArrayItem(w); err != nil {
				return err
			}
			if err := decodeDict(v.Document(), w); err != nil {
				return err
			}
			if err := tree.WriteEndDictArrayItem(w); err != nil {
				return err
			}
		case bsontype.Array:
			return ir.Errorf(ir.CodeUnsupportedShape, "array %q item %d is an array", element, i)
		default:
			value, err := scalar(element, v)
			if err != nil {
				return err
			}
			if err := tree.WriteValueArrayItem(w, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// scalar dispatches on the embedded type tag.
func scalar(element string, v bson.RawValue) (any, error) {
	switch v.Type {
	case bsontype.String:
		return v.StringValue(), nil
	case bsontype.Double:
		return v.Double(), nil
	case bsontype.Int32:
		return v.Int32(), nil
	case bsontype.Int64:
		return v.Int64(), nil
	case bsontype.Boolean:
		return v.Boolean(), nil
	case bsontype.ObjectID:
		return tid.ID(v.ObjectID()), nil
	case bsontype.DateTime:
		return ir.LocalDateTimeFromTime(time.UnixMilli(v.DateTime())), nil
	}
	return nil, ir.Errorf(ir.CodeUnsupportedType, "element %q has unsupported BSON type %s", element, v.Type)
}
