package meta

import (
	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/tid"
)

// Record is the instance type of a Dynamic type: field values keyed by name.
type Record struct {
	Type   string
	ID     tid.ID
	Values map[string]any
}

// SetRecordID stamps the record version id.
func (r *Record) SetRecordID(id tid.ID) { r.ID = id }

// RecordID returns the record version id.
func (r *Record) RecordID() tid.ID { return r.ID }

// FieldSpec declares one field of a Dynamic type.
type FieldSpec struct {
	Name  string
	Kind  ir.Kind
	Array bool
	Type  *Type
	Enum  []string
}

// Dynamic builds a Type whose instances are *Record.
func Dynamic(name string, specs ...FieldSpec) *Type {
	fields := make([]*Field, len(specs))
	for i, spec := range specs {
		fields[i] = dynamicField(spec)
	}
	return NewType(name, func() any {
		return &Record{Type: name, Values: make(map[string]any)}
	}, fields...)
}

func dynamicField(spec FieldSpec) *Field {
	name := spec.Name
	return &Field{
		Name:  name,
		Kind:  spec.Kind,
		Array: spec.Array,
		Type:  spec.Type,
		Enum:  spec.Enum,
		Get: func(obj any) any {
			return obj.(*Record).Values[name]
		},
		Set: func(obj any, v any) error {
			r := obj.(*Record)
			if v == nil {
				delete(r.Values, name)
				return nil
			}
			r.Values[name] = v
			return nil
		},
	}
}
