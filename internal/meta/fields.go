package meta

import (
	"github.com/roach88/tempo/internal/ir"
)

// Value describes a scalar field of struct T reached through ref. V must be
// the canonical Go type of kind (see Coerce).
func Value[T any, V any](name string, kind ir.Kind, ref func(*T) *V) *Field {
	return &Field{
		Name: name,
		Kind: kind,
		Get: func(obj any) any {
			return *ref(obj.(*T))
		},
		Set: func(obj any, v any) error {
			p := ref(obj.(*T))
			if v == nil {
				var zero V
				*p = zero
				return nil
			}
			typed, ok := v.(V)
			if !ok {
				return ir.Errorf(ir.CodeTypeMismatch, "field %s cannot hold %T", name, v)
			}
			*p = typed
			return nil
		},
	}
}

// Nullable describes an optional scalar field held by pointer.
func Nullable[T any, V any](name string, kind ir.Kind, ref func(*T) **V) *Field {
	return &Field{
		Name: name,
		Kind: kind,
		Get: func(obj any) any {
			p := *ref(obj.(*T))
			if p == nil {
				return nil
			}
			return *p
		},
		Set: func(obj any, v any) error {
			pp := ref(obj.(*T))
			if v == nil {
				*pp = nil
				return nil
			}
			typed, ok := v.(V)
			if !ok {
				return ir.Errorf(ir.CodeTypeMismatch, "field %s cannot hold %T", name, v)
			}
			*pp = &typed
			return nil
		},
	}
}

// List describes a list of scalars. A nil slice is empty; a non-nil empty
// slice is an empty array. Null items become the zero value of V.
func List[T any, V any](name string, kind ir.Kind, ref func(*T) *[]V) *Field {
	return &Field{
		Name:  name,
		Kind:  kind,
		Array: true,
		Get: func(obj any) any {
			s := *ref(obj.(*T))
			if s == nil {
				return nil
			}
			out := make([]any, len(s))
			for i, v := range s {
				out[i] = v
			}
			return out
		},
		Set: func(obj any, v any) error {
			p := ref(obj.(*T))
			if v == nil {
				*p = nil
				return nil
			}
			items := v.([]any)
			s := make([]V, len(items))
			for i, item := range items {
				if item == nil {
					continue
				}
				typed, ok := item.(V)
				if !ok {
					return ir.Errorf(ir.CodeTypeMismatch, "field %s[%d] cannot hold %T", name, i, item)
				}
				s[i] = typed
			}
			*p = s
			return nil
		},
	}
}

// Embedded describes a nested data object of type S held by pointer.
func Embedded[T any, S any](name string, sub *Type, ref func(*T) **S) *Field {
	return &Field{
		Name: name,
		Kind: ir.KindData,
		Type: sub,
		Get: func(obj any) any {
			p := *ref(obj.(*T))
			if p == nil {
				return nil
			}
			return p
		},
		Set: func(obj any, v any) error {
			pp := ref(obj.(*T))
			if v == nil {
				*pp = nil
				return nil
			}
			typed, ok := v.(*S)
			if !ok {
				return ir.Errorf(ir.CodeTypeMismatch, "field %s cannot hold %T", name, v)
			}
			*pp = typed
			return nil
		},
	}
}

// EmbeddedList describes a list of nested data objects.
func EmbeddedList[T any, S any](name string, sub *Type, ref func(*T) *[]*S) *Field {
	return &Field{
		Name:  name,
		Kind:  ir.KindData,
		Array: true,
		Type:  sub,
		Get: func(obj any) any {
			s := *ref(obj.(*T))
			if s == nil {
				return nil
			}
			out := make([]any, len(s))
			for i, v := range s {
				if v != nil {
					out[i] = v
				}
			}
			return out
		},
		Set: func(obj any, v any) error {
			p := ref(obj.(*T))
			if v == nil {
				*p = nil
				return nil
			}
			items := v.([]any)
			s := make([]*S, len(items))
			for i, item := range items {
				if item == nil {
					continue
				}
				typed, ok := item.(*S)
				if !ok {
					return ir.Errorf(ir.CodeTypeMismatch, "field %s[%d] cannot hold %T", name, i, item)
				}
				s[i] = typed
			}
			*p = s
			return nil
		},
	}
}

// Enum describes an integer-backed enumeration whose members are named by
// names, indexed by value.
func Enum[T any, E ~int](name string, names []string, ref func(*T) *E) *Field {
	return &Field{
		Name: name,
		Kind: ir.KindEnum,
		Enum: names,
		Get: func(obj any) any {
			v := int(*ref(obj.(*T)))
			if v < 0 || v >= len(names) {
				return nil
			}
			return ir.Enum(names[v])
		},
		Set: func(obj any, v any) error {
			p := ref(obj.(*T))
			if v == nil {
				*p = 0
				return nil
			}
			e, ok := v.(ir.Enum)
			if !ok {
				return ir.Errorf(ir.CodeTypeMismatch, "field %s cannot hold %T", name, v)
			}
			for i, n := range names {
				if n == string(e) {
					*p = E(i)
					return nil
				}
			}
			return ir.Errorf(ir.CodeTypeMismatch, "%q is not a member of enum %s", e, name)
		},
	}
}

// KeyRef describes a reference to another record by key. The field holds a
// key object of type K described by keyType; formats carry it as the key
// string.
func KeyRef[T any, K any](name string, keyType *Type, ref func(*T) **K) *Field {
	f := Embedded(name, keyType, ref)
	f.Kind = ir.KindKey
	return f
}
