package tree

// Recorder is a Writer that validates and records calls as tokens.
// The recorded document can be replayed into any other Writer.
type Recorder struct {
	m      Machine
	tokens []Token
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Tokens returns the recorded tokens.
func (r *Recorder) Tokens() []Token { return r.tokens }

// Reader returns a Reader replaying the recorded tokens.
func (r *Recorder) Reader() Reader { return NewSliceReader(r.tokens) }

// Complete reports whether a full document has been recorded.
func (r *Recorder) Complete() bool { return r.m.State() == DocumentCompleted }

func (r *Recorder) add(tok Token) {
	r.tokens = append(r.tokens, tok)
}

func (r *Recorder) WriteStartDocument(name string) error {
	if err := r.m.StartDocument(name); err != nil {
		return err
	}
	r.add(Token{Kind: StartDocument, Name: name})
	return nil
}

func (r *Recorder) WriteEndDocument(name string) error {
	if err := r.m.EndDocument(name); err != nil {
		return err
	}
	r.add(Token{Kind: EndDocument, Name: name})
	return nil
}

func (r *Recorder) WriteStartElement(name string) error {
	if err := r.m.StartElement(name); err != nil {
		return err
	}
	r.add(Token{Kind: StartElement, Name: name})
	return nil
}

func (r *Recorder) WriteEndElement(name string) error {
	if err := r.m.EndElement(name); err != nil {
		return err
	}
	r.add(Token{Kind: EndElement, Name: name})
	return nil
}

func (r *Recorder) WriteStartDict() error {
	if err := r.m.StartDict(); err != nil {
		return err
	}
	r.add(Token{Kind: StartDict})
	return nil
}

func (r *Recorder) WriteEndDict() error {
	if err := r.m.EndDict(); err != nil {
		return err
	}
	r.add(Token{Kind: EndDict})
	return nil
}

func (r *Recorder) WriteStartArray() error {
	if err := r.m.StartArray(); err != nil {
		return err
	}
	r.add(Token{Kind: StartArray})
	return nil
}

func (r *Recorder) WriteEndArray() error {
	if err := r.m.EndArray(); err != nil {
		return err
	}
	r.add(Token{Kind: EndArray})
	return nil
}

func (r *Recorder) WriteStartArrayItem() error {
	if err := r.m.StartArrayItem(); err != nil {
		return err
	}
	r.add(Token{Kind: StartArrayItem})
	return nil
}

func (r *Recorder) WriteEndArrayItem() error {
	if err := r.m.EndArrayItem(); err != nil {
		return err
	}
	r.add(Token{Kind: EndArrayItem})
	return nil
}

func (r *Recorder) WriteStartValue() error {
	return r.m.StartValue()
}

func (r *Recorder) WriteValue(v any) error {
	if err := r.m.WriteValue(); err != nil {
		return err
	}
	r.add(Token{Kind: Value, Value: v})
	return nil
}

func (r *Recorder) WriteEndValue() error {
	return r.m.EndValue()
}
