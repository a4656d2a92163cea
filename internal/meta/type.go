package meta

import (
	"fmt"

	"github.com/roach88/tempo/internal/ir"
)

// Field describes one element of a record type.
type Field struct {
	// Name is the element name used by every format.
	Name string

	// Kind is the declared type of the field, or of each item for arrays.
	Kind ir.Kind

	// Array marks a list-valued field. Get returns []any and Set receives []any.
	Array bool

	// Type is the embedded type for KindData and the referenced key type for KindKey.
	Type *Type

	// Enum lists the member names for KindEnum.
	Enum []string

	// Get reads the field from obj. A nil result means the field is empty.
	Get func(obj any) any

	// Set assigns v, already coerced to Kind, to the field of obj. A nil v
	// clears the field.
	Set func(obj any, v any) error
}

// Type is the field table of a record, key, or embedded data type.
type Type struct {
	// Name is the document root name and the storage collection name.
	Name string

	// New allocates an empty instance.
	New func() any

	// Fields in declaration order.
	Fields []*Field

	// Key names the key element fields, in key order.
	Key []string

	byName map[string]*Field
}

// NewType builds a Type. Field names must be unique.
func NewType(name string, newFn func() any, fields ...*Field) *Type {
	t := &Type{Name: name, New: newFn, byName: make(map[string]*Field, len(fields))}
	for _, f := range fields {
		if _, dup := t.byName[f.Name]; dup {
			panic(fmt.Sprintf("meta: duplicate field %q in type %s", f.Name, name))
		}
		t.Fields = append(t.Fields, f)
		t.byName[f.Name] = f
	}
	return t
}

// WithKey sets the key element names and returns t.
func (t *Type) WithKey(names ...string) *Type {
	for _, n := range names {
		if _, ok := t.byName[n]; !ok {
			panic(fmt.Sprintf("meta: key element %q is not a field of %s", n, t.Name))
		}
	}
	t.Key = names
	return t
}

// Field returns the named field, or nil.
func (t *Type) Field(name string) *Field {
	return t.byName[name]
}

// KeyFields returns the key element fields in key order.
func (t *Type) KeyFields() []*Field {
	out := make([]*Field, len(t.Key))
	for i, n := range t.Key {
		out[i] = t.byName[n]
	}
	return out
}

// Assign coerces v to the field kind and stores it in obj.
func (f *Field) Assign(obj any, v any) error {
	if v == nil {
		return f.Set(obj, nil)
	}
	if f.Array {
		items, ok := v.([]any)
		if !ok {
			return ir.Errorf(ir.CodeTypeMismatch, "field %s expects a list, got %T", f.Name, v)
		}
		coerced := make([]any, len(items))
		for i, item := range items {
			c, err := f.coerceItem(item)
			if err != nil {
				return fmt.Errorf("field %s[%d]: %w", f.Name, i, err)
			}
			coerced[i] = c
		}
		return f.Set(obj, coerced)
	}
	c, err := f.coerceItem(v)
	if err != nil {
		return fmt.Errorf("field %s: %w", f.Name, err)
	}
	return f.Set(obj, c)
}

func (f *Field) coerceItem(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case ir.KindData:
		return v, nil
	case ir.KindEnum:
		c, err := Coerce(v, ir.KindEnum)
		if err != nil {
			return nil, err
		}
		if f.Enum != nil && f.enumIndex(c.(ir.Enum)) < 0 {
			return nil, ir.Errorf(ir.CodeTypeMismatch, "%q is not a member of enum %s", c, f.Name)
		}
		return c, nil
	case ir.KindKey:
		// Key objects are resolved by the caller; the setter checks the type.
		return v, nil
	}
	return Coerce(v, f.Kind)
}

func (f *Field) enumIndex(e ir.Enum) int {
	for i, n := range f.Enum {
		if n == string(e) {
			return i
		}
	}
	return -1
}
