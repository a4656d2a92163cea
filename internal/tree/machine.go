package tree

import (
	"github.com/roach88/tempo/internal/ir"
)

type frameKind int

const (
	elementFrame frameKind = iota
	dictFrame
	arrayFrame
)

// frame is pushed on entering an element, dict, or array and popped on
// leaving it. saved is the state at the time of the push.
type frame struct {
	kind  frameKind
	name  string
	saved State
}

// Machine validates a sequence of protocol calls.
//
// The frame stack is empty outside the root dict. Each method either performs its transition and returns nil, or leaves the
// machine unchanged and returns a PROTOCOL_VIOLATION *ir.Error.
type Machine struct {
	state   State
	stack   []frame
	docName string
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Depth returns the number of open frames.
func (m *Machine) Depth() int { return len(m.stack) }

// DocumentName returns the name passed to StartDocument.
func (m *Machine) DocumentName() string { return m.docName }

// Element returns the name of the innermost open element, or "" at the root.
func (m *Machine) Element() string {
	for i := len(m.stack) - 1; i >= 0; i-- {
		if m.stack[i].kind == elementFrame {
			return m.stack[i].name
		}
	}
	return ""
}

// Path returns the names of the open elements, outermost first.
func (m *Machine) Path() []string {
	var path []string
	for _, f := range m.stack {
		if f.kind == elementFrame {
			path = append(path, f.name)
		}
	}
	return path
}

// InArrayItem reports whether the innermost compound is an array.
func (m *Machine) InArrayItem() bool {
	for i := len(m.stack) - 1; i >= 0; i-- {
		switch m.stack[i].kind {
		case arrayFrame:
			return true
		case dictFrame:
			return false
		}
	}
	return false
}

// Reset returns the machine to Empty.
func (m *Machine) Reset() {
	m.state = Empty
	m.stack = m.stack[:0]
	m.docName = ""
}

func (m *Machine) violation(op, format string, args ...any) error {
	e := ir.OpErrorf(ir.CodeProtocolViolation, op, format, args...)
	e.State = m.state.String()
	return e
}

func (m *Machine) push(kind frameKind, name string) {
	m.stack = append(m.stack, frame{kind: kind, name: name, saved: m.state})
}

func (m *Machine) top() (frame, bool) {
	if len(m.stack) == 0 {
		return frame{}, false
	}
	return m.stack[len(m.stack)-1], true
}

func (m *Machine) pop() {
	m.stack = m.stack[:len(m.stack)-1]
}

// StartDocument begins a document with the given root name.
func (m *Machine) StartDocument(name string) error {
	if m.state != Empty || len(m.stack) != 0 {
		return m.violation("StartDocument", "must be the first call")
	}
	m.docName = name
	m.state = DocumentStarted
	return nil
}

// EndDocument completes the document. The root dict must be closed and name
// must match StartDocument.
func (m *Machine) EndDocument(name string) error {
	if m.state != DictCompleted || len(m.stack) != 0 {
		return m.violation("EndDocument", "must follow the root WriteEndDict")
	}
	if name != m.docName {
		return m.violation("EndDocument", "root name %q does not match %q", name, m.docName)
	}
	m.state = DocumentCompleted
	return nil
}

// StartElement opens a named element.
func (m *Machine) StartElement(name string) error {
	switch m.state {
	case DocumentStarted, ElementCompleted, DictStarted, DictArrayItemStarted:
	default:
		return m.violation("StartElement", "element %q must start a dict or follow another element", name)
	}
	m.push(elementFrame, name)
	m.state = ElementStarted
	return nil
}

// EndElement closes the innermost element, whose name must match.
func (m *Machine) EndElement(name string) error {
	switch m.state {
	case ElementStarted, DictCompleted, ValueCompleted, ArrayCompleted:
	default:
		return m.violation("EndElement", "element %q has no completed content", name)
	}
	f, ok := m.top()
	if !ok || f.kind != elementFrame {
		return m.violation("EndElement", "no open element to close with %q", name)
	}
	if f.name != name {
		return m.violation("EndElement", "element name %q does not match open element %q", name, f.name)
	}
	m.pop()
	m.state = ElementCompleted
	return nil
}

// StartDict opens a dict as the root, as element content, or as an array item.
func (m *Machine) StartDict() error {
	var next State
	switch m.state {
	case DocumentStarted, ElementStarted:
		next = DictStarted
	case ArrayItemStarted:
		next = DictArrayItemStarted
	default:
		return m.violation("StartDict", "dict must follow document, element, or array item start")
	}
	m.push(dictFrame, m.Element())
	m.state = next
	return nil
}

// EndDict closes the innermost dict.
func (m *Machine) EndDict() error {
	switch m.state {
	case DictStarted, DictArrayItemStarted, ElementCompleted:
	default:
		return m.violation("EndDict", "dict is not open or its last element is incomplete")
	}
	f, ok := m.top()
	if !ok || f.kind != dictFrame {
		return m.violation("EndDict", "innermost open compound is not a dict")
	}
	m.pop()
	if f.saved == ArrayItemStarted {
		m.state = DictArrayItemCompleted
	} else {
		m.state = DictCompleted
	}
	return nil
}

// StartArray opens an array as element content.
func (m *Machine) StartArray() error {
	if m.state != ElementStarted {
		return m.violation("StartArray", "array must be element content")
	}
	m.push(arrayFrame, m.Element())
	m.state = ArrayStarted
	return nil
}

// EndArray closes the innermost array. Empty arrays are allowed.
func (m *Machine) EndArray() error {
	switch m.state {
	case ArrayStarted, ArrayItemCompleted:
	default:
		return m.violation("EndArray", "array item is still open")
	}
	f, ok := m.top()
	if !ok || f.kind != arrayFrame {
		return m.violation("EndArray", "innermost open compound is not an array")
	}
	m.pop()
	m.state = ArrayCompleted
	return nil
}

// StartArrayItem opens the next array item.
func (m *Machine) StartArrayItem() error {
	switch m.state {
	case ArrayStarted, ArrayItemCompleted:
	default:
		return m.violation("StartArrayItem", "array item must follow array start or the previous item")
	}
	m.state = ArrayItemStarted
	return nil
}

// EndArrayItem closes the current array item.
func (m *Machine) EndArrayItem() error {
	switch m.state {
	case ArrayItemStarted, DictArrayItemCompleted, ValueArrayItemCompleted:
	default:
		return m.violation("EndArrayItem", "array item content is incomplete")
	}
	m.state = ArrayItemCompleted
	return nil
}

// StartValue opens a scalar value as element content or as an array item.
func (m *Machine) StartValue() error {
	switch m.state {
	case ElementStarted:
		m.state = ValueStarted
	case ArrayItemStarted:
		m.state = ValueArrayItemStarted
	default:
		return m.violation("StartValue", "value must be element or array item content")
	}
	return nil
}

// WriteValue records that the scalar has been written.
func (m *Machine) WriteValue() error {
	switch m.state {
	case ValueStarted:
		m.state = ValueWritten
	case ValueArrayItemStarted:
		m.state = ValueArrayItemWritten
	default:
		return m.violation("WriteValue", "value must follow WriteStartValue")
	}
	return nil
}

// EndValue closes the scalar value.
func (m *Machine) EndValue() error {
	switch m.state {
	case ValueWritten:
		m.state = ValueCompleted
	case ValueArrayItemWritten:
		m.state = ValueArrayItemCompleted
	default:
		return m.violation("EndValue", "value has not been written")
	}
	return nil
}

// Apply performs the transitions for one token. A Value token is the
// StartValue, WriteValue, EndValue triple.
func (m *Machine) Apply(tok Token) error {
	switch tok.Kind {
	case StartDocument:
		return m.StartDocument(tok.Name)
	case EndDocument:
		return m.EndDocument(tok.Name)
	case StartElement:
		return m.StartElement(tok.Name)
	case EndElement:
		return m.EndElement(tok.Name)
	case StartDict:
		return m.StartDict()
	case EndDict:
		return m.EndDict()
	case StartArray:
		return m.StartArray()
	case EndArray:
		return m.EndArray()
	case StartArrayItem:
		return m.StartArrayItem()
	case EndArrayItem:
		return m.EndArrayItem()
	case Value:
		if err := m.StartValue(); err != nil {
			return err
		}
		if err := m.WriteValue(); err != nil {
			return err
		}
		return m.EndValue()
	}
	return m.violation("Apply", "unknown token kind %d", tok.Kind)
}
