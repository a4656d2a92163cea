package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tree"
)

type container struct {
	array bool
	// name is the element holding this container; "" for the root dict and
	// for dicts that are array items.
	name   string
	inItem bool
}

// Reader pulls document tokens from JSON text.
//
// Integral numbers read as int64 and other numbers as float64. A null inside
// an object is skipped; a null inside an array is a null item. Nested arrays
// are rejected with UNSUPPORTED_SHAPE since the protocol has no place for
// them.
type Reader struct {
	dec     *json.Decoder
	name    string
	m       tree.Machine
	stack   []container
	queue   []tree.Token
	started bool
	done    bool
}

// NewReader reads one document named name from r.
func NewReader(r io.Reader, name string) *Reader {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &Reader{dec: dec, name: name}
}

// Decode is NewReader over a byte slice.
func Decode(data []byte, name string) *Reader {
	return NewReader(bytes.NewReader(data), name)
}

// Next implements tree.Reader.
func (r *Reader) Next() (tree.Token, error) {
	for len(r.queue) == 0 {
		if r.done {
			return tree.Token{}, io.EOF
		}
		if err := r.advance(); err != nil {
			return tree.Token{}, err
		}
	}
	tok := r.queue[0]
	r.queue = r.queue[1:]
	if err := r.m.Apply(tok); err != nil {
		return tree.Token{}, err
	}
	return tok, nil
}

func (r *Reader) emit(toks ...tree.Token) {
	r.queue = append(r.queue, toks...)
}

func (r *Reader) token() (json.Token, error) {
	t, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ir.Errorf(ir.CodeFormatError, "unexpected end of JSON document")
		}
		return nil, ir.Errorf(ir.CodeFormatError, "malformed JSON: %v", err)
	}
	return t, nil
}

// advance consumes one JSON token and queues the protocol tokens it implies.
func (r *Reader) advance() error {
	if !r.started {
		t, err := r.token()
		if err != nil {
			return err
		}
		if t != json.Delim('{') {
			return ir.Errorf(ir.CodeUnsupportedShape, "JSON document must be an object, got %v", t)
		}
		r.started = true
		r.stack = append(r.stack, container{})
		r.emit(tree.Token{Kind: tree.StartDocument, Name: r.name}, tree.Token{Kind: tree.StartDict})
		return nil
	}

	top := r.stack[len(r.stack)-1]
	t, err := r.token()
	if err != nil {
		return err
	}
	if top.array {
		return r.arrayMember(top, t)
	}
	if t == json.Delim('}') {
		return r.closeDict(top)
	}
	name, ok := t.(string)
	if !ok {
		return ir.Errorf(ir.CodeFormatError, "expected object key, got %v", t)
	}
	v, err := r.token()
	if err != nil {
		return err
	}
	switch v {
	case json.Delim('{'):
		r.stack = append(r.stack, container{name: name})
		r.emit(tree.Token{Kind: tree.StartElement, Name: name}, tree.Token{Kind: tree.StartDict})
		return nil
	case json.Delim('['):
		r.stack = append(r.stack, container{array: true, name: name})
		r.emit(tree.Token{Kind: tree.StartElement, Name: name}, tree.Token{Kind: tree.StartArray})
		return nil
	case nil:
		return nil
	}
	value, err := scalar(v)
	if err != nil {
		return err
	}
	r.emit(
		tree.Token{Kind: tree.StartElement, Name: name},
		tree.Token{Kind: tree.Value, Value: value},
		tree.Token{Kind: tree.EndElement, Name: name},
	)
	return nil
}

func (r *Reader) arrayMember(top container, t json.Token) error {
	switch t {
	case json.Delim(']'):
		r.stack = r.stack[:len(r.stack)-1]
		r.emit(tree.Token{Kind: tree.EndArray}, tree.Token{Kind: tree.EndElement, Name: top.name})
		return nil
	case json.Delim('{'):
		r.stack = append(r.stack, container{inItem: true})
		r.emit(tree.Token{Kind: tree.StartArrayItem}, tree.Token{Kind: tree.StartDict})
		return nil
	case json.Delim('['):
		return ir.Errorf(ir.CodeUnsupportedShape, "array inside array in element %q", top.name)
	}
	value, err := scalar(t)
	if err != nil {
		return err
	}
	r.emit(
		tree.Token{Kind: tree.StartArrayItem},
		tree.Token{Kind: tree.Value, Value: value},
		tree.Token{Kind: tree.EndArrayItem},
	)
	return nil
}

func (r *Reader) closeDict(top container) error {
	r.stack = r.stack[:len(r.stack)-1]
	r.emit(tree.Token{Kind: tree.EndDict})
	switch {
	case len(r.stack) == 0:
		if _, err := r.dec.Token(); !errors.Is(err, io.EOF) {
			return ir.Errorf(ir.CodeFormatError, "trailing data after JSON document")
		}
		r.emit(tree.Token{Kind: tree.EndDocument, Name: r.name})
		r.done = true
	case top.inItem:
		r.emit(tree.Token{Kind: tree.EndArrayItem})
	default:
		r.emit(tree.Token{Kind: tree.EndElement, Name: top.name})
	}
	return nil
}

// scalar converts a decoded JSON literal to a protocol value.
func scalar(t json.Token) (any, error) {
	switch x := t.(type) {
	case nil:
		return nil, nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case json.Number:
		if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return nil, ir.Errorf(ir.CodeFormatError, "number %s out of range", x)
		}
		return f, nil
	}
	return nil, ir.Errorf(ir.CodeFormatError, "unexpected JSON token %v", t)
}
