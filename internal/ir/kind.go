package ir

// Kind identifies the declared type of a record field.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindDouble
	KindBool
	KindInt32
	KindInt64
	KindDate
	KindTime
	KindMinute
	KindDateTime
	KindTemporalID
	KindEnum
	KindKey
	KindData
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindString:     "string",
	KindDouble:     "double",
	KindBool:       "bool",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindDate:       "date",
	KindTime:       "time",
	KindMinute:     "minute",
	KindDateTime:   "datetime",
	KindTemporalID: "temporal_id",
	KindEnum:       "enum",
	KindKey:        "key",
	KindData:       "data",
}

// String returns the lowercase kind name used in schemas and messages.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// ParseKind returns the kind for a name produced by String.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name && Kind(i) != KindInvalid {
			return Kind(i), true
		}
	}
	return KindInvalid, false
}

// IsScalar reports whether values of kind k are written with WriteValue.
func (k Kind) IsScalar() bool {
	return k != KindInvalid && k != KindData
}

// Enum is an enumeration member carried through the document protocol by name.
type Enum string
