package tree

import (
	"errors"
	"fmt"
	"io"
)

// TokenKind identifies a protocol event.
type TokenKind int

const (
	StartDocument TokenKind = iota
	EndDocument
	StartElement
	EndElement
	StartDict
	EndDict
	StartArray
	EndArray
	StartArrayItem
	EndArrayItem
	Value
)

var tokenNames = [...]string{
	StartDocument:  "StartDocument",
	EndDocument:    "EndDocument",
	StartElement:   "StartElement",
	EndElement:     "EndElement",
	StartDict:      "StartDict",
	EndDict:        "EndDict",
	StartArray:     "StartArray",
	EndArray:       "EndArray",
	StartArrayItem: "StartArrayItem",
	EndArrayItem:   "EndArrayItem",
	Value:          "Value",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(tokenNames) {
		return "Unknown"
	}
	return tokenNames[k]
}

// Token is one protocol event. Name is set for document and element tokens;
// Value is set for Value tokens and may be nil inside arrays.
type Token struct {
	Kind  TokenKind
	Name  string
	Value any
}

func (t Token) String() string {
	switch t.Kind {
	case StartDocument, EndDocument, StartElement, EndElement:
		return fmt.Sprintf("%s(%s)", t.Kind, t.Name)
	case Value:
		return fmt.Sprintf("Value(%v)", t.Value)
	default:
		return t.Kind.String()
	}
}

// Reader is the pull side of the document protocol. Next returns io.EOF after
// the EndDocument token.
type Reader interface {
	Next() (Token, error)
}

// Copy pulls every token from src and pushes it into dst.
func Copy(dst Writer, src Reader) error {
	for {
		tok, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := Push(dst, tok); err != nil {
			return err
		}
	}
}

// Push delivers a single token to w.
func Push(w Writer, tok Token) error {
	switch tok.Kind {
	case StartDocument:
		return w.WriteStartDocument(tok.Name)
	case EndDocument:
		return w.WriteEndDocument(tok.Name)
	case StartElement:
		return w.WriteStartElement(tok.Name)
	case EndElement:
		return w.WriteEndElement(tok.Name)
	case StartDict:
		return w.WriteStartDict()
	case EndDict:
		return w.WriteEndDict()
	case StartArray:
		return w.WriteStartArray()
	case EndArray:
		return w.WriteEndArray()
	case StartArrayItem:
		return w.WriteStartArrayItem()
	case EndArrayItem:
		return w.WriteEndArrayItem()
	case Value:
		if err := w.WriteStartValue(); err != nil {
			return err
		}
		if err := w.WriteValue(tok.Value); err != nil {
			return err
		}
		return w.WriteEndValue()
	default:
		return fmt.Errorf("unknown token kind %d", tok.Kind)
	}
}

// SliceReader replays a fixed token sequence.
type SliceReader struct {
	tokens []Token
	pos    int
}

// NewSliceReader returns a Reader over tokens.
func NewSliceReader(tokens []Token) *SliceReader {
	return &SliceReader{tokens: tokens}
}

// Next implements Reader.
func (r *SliceReader) Next() (Token, error) {
	if r.pos >= len(r.tokens) {
		return Token{}, io.EOF
	}
	tok := r.tokens[r.pos]
	r.pos++
	return tok, nil
}

// ReadAll drains r into a token slice.
func ReadAll(r Reader) ([]Token, error) {
	var tokens []Token
	for {
		tok, err := r.Next()
		if errors.Is(err, io.EOF) {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}
