package tree

// State is the position of a writer or reader within the document grammar.
type State int

const (
	Empty State = iota
	DocumentStarted
	DocumentCompleted
	ElementStarted
	ElementCompleted
	ArrayStarted
	ArrayCompleted
	ArrayItemStarted
	ArrayItemCompleted
	DictStarted
	DictCompleted
	DictArrayItemStarted
	DictArrayItemCompleted
	ValueStarted
	ValueWritten
	ValueCompleted
	ValueArrayItemStarted
	ValueArrayItemWritten
	ValueArrayItemCompleted
)

var stateNames = [...]string{
	Empty:                   "Empty",
	DocumentStarted:         "DocumentStarted",
	DocumentCompleted:       "DocumentCompleted",
	ElementStarted:          "ElementStarted",
	ElementCompleted:        "ElementCompleted",
	ArrayStarted:            "ArrayStarted",
	ArrayCompleted:          "ArrayCompleted",
	ArrayItemStarted:        "ArrayItemStarted",
	ArrayItemCompleted:      "ArrayItemCompleted",
	DictStarted:             "DictStarted",
	DictCompleted:           "DictCompleted",
	DictArrayItemStarted:    "DictArrayItemStarted",
	DictArrayItemCompleted:  "DictArrayItemCompleted",
	ValueStarted:            "ValueStarted",
	ValueWritten:            "ValueWritten",
	ValueCompleted:          "ValueCompleted",
	ValueArrayItemStarted:   "ValueArrayItemStarted",
	ValueArrayItemWritten:   "ValueArrayItemWritten",
	ValueArrayItemCompleted: "ValueArrayItemCompleted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}
