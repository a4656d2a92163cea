package ir

// Emptier is implemented by value types with a distinguished empty value,
// such as the Empty temporal id.
type Emptier interface {
	IsEmpty() bool
}

// IsEmpty reports whether v is an empty value. Empty values are omitted from
// dictionaries and written as explicit nulls inside arrays.
//
// The empty string is a value, not an absence.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case LocalDate:
		return x.IsZero()
	case LocalDateTime:
		return x.IsZero()
	case Emptier:
		return x.IsEmpty()
	}
	return false
}
