package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/tempo/internal/ir"
	"github.com/roach88/tempo/internal/meta"
)

// Load compiles every CUE file in dir into a registry of record types.
func Load(dir string) (*meta.Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: not a directory: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan schema directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(dir, inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	return Compile(v)
}

// CompileString compiles CUE source text.
func CompileString(src string) (*meta.Registry, error) {
	return Compile(cuecontext.New().CompileString(src))
}

// Compile builds the record types declared under "type" in v. Data types
// declared under "data" are built as they are referenced.
func Compile(v cue.Value) (*meta.Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("schema", err)
	}
	c := &compiler{
		decls:   make(map[string]*decl),
		data:    make(map[string]*meta.Type),
		keys:    make(map[string]*meta.Type),
		records: make(map[string]*meta.Type),
	}
	var order []string
	for _, section := range []string{"type", "data"} {
		names, err := c.collect(v, section)
		if err != nil {
			return nil, err
		}
		if section == "type" {
			order = names
		}
	}

	reg := meta.NewRegistry()
	for _, name := range order {
		t, err := c.record(name)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// decl is one declared type before it is built.
type decl struct {
	name   string
	record bool
	key    []string
	fields []fieldDecl
	val    cue.Value
}

type fieldDecl struct {
	name  string
	ref   string // kind name, type name, or key:<Type>
	array bool
	enum  []string
	val   cue.Value
}

type compiler struct {
	decls   map[string]*decl
	data    map[string]*meta.Type
	keys    map[string]*meta.Type
	records map[string]*meta.Type

	// visiting is the current chain of types being built, for cycle reports.
	visiting []string
}

func (c *compiler) collect(v cue.Value, section string) ([]string, error) {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(section, err)
	}
	var names []string
	for iter.Next() {
		name := iter.Selector().Unquoted()
		path := section + "." + name
		if _, dup := c.decls[name]; dup {
			return nil, &CompileError{Path: path, Message: "type is declared twice", Pos: iter.Value().Pos()}
		}
		d, err := parseDecl(iter.Value(), name, path, section == "type")
		if err != nil {
			return nil, err
		}
		c.decls[name] = d
		names = append(names, name)
	}
	return names, nil
}

func parseDecl(v cue.Value, name, path string, record bool) (*decl, error) {
	d := &decl{name: name, record: record, val: v}

	if kv := v.LookupPath(cue.ParsePath("key")); kv.Exists() {
		if !record {
			return nil, &CompileError{Path: path + ".key", Message: "data types have no key", Pos: kv.Pos()}
		}
		if err := kv.Decode(&d.key); err != nil {
			return nil, formatCUEError(path+".key", err)
		}
	}
	if record && len(d.key) == 0 {
		return nil, &CompileError{Path: path, Message: "record type must declare a key", Pos: v.Pos()}
	}

	fv := v.LookupPath(cue.ParsePath("fields"))
	if !fv.Exists() {
		return nil, &CompileError{Path: path, Message: "fields are required", Pos: v.Pos()}
	}
	iter, err := fv.Fields()
	if err != nil {
		return nil, formatCUEError(path+".fields", err)
	}
	for iter.Next() {
		f, err := parseField(iter.Value(), iter.Selector().Unquoted(), path+".fields")
		if err != nil {
			return nil, err
		}
		d.fields = append(d.fields, f)
	}
	return d, nil
}

// parseField accepts "kind", "[kind]", or {enum: [...], array?: bool}.
func parseField(v cue.Value, name, path string) (fieldDecl, error) {
	f := fieldDecl{name: name, val: v}
	path += "." + name

	if v.IncompleteKind() == cue.StructKind {
		ev := v.LookupPath(cue.ParsePath("enum"))
		if !ev.Exists() {
			return f, &CompileError{Path: path, Message: "field struct must declare enum", Pos: v.Pos()}
		}
		if err := ev.Decode(&f.enum); err != nil {
			return f, formatCUEError(path+".enum", err)
		}
		if len(f.enum) == 0 {
			return f, &CompileError{Path: path + ".enum", Message: "enum has no members", Pos: ev.Pos()}
		}
		if av := v.LookupPath(cue.ParsePath("array")); av.Exists() {
			b, err := av.Bool()
			if err != nil {
				return f, formatCUEError(path+".array", err)
			}
			f.array = b
		}
		f.ref = ir.KindEnum.String()
		return f, nil
	}

	s, err := v.String()
	if err != nil {
		return f, formatCUEError(path, err)
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		f.array = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return f, &CompileError{Path: path, Message: "empty field type", Pos: v.Pos()}
	}
	f.ref = s
	return f, nil
}

// record builds the named record type.
func (c *compiler) record(name string) (*meta.Type, error) {
	if t, ok := c.records[name]; ok {
		return t, nil
	}
	d := c.decls[name]
	t, err := c.build(d, d.name)
	if err != nil {
		return nil, err
	}
	if err := c.checkKey(d, t); err != nil {
		return nil, err
	}
	t.WithKey(d.key...)
	c.records[name] = t
	return t, nil
}

// embedded builds the named type for use as embedded data. Record types may
// be embedded; the embedded copy carries no key.
func (c *compiler) embedded(name string, from fieldDecl, path string) (*meta.Type, error) {
	if t, ok := c.data[name]; ok {
		return t, nil
	}
	d, ok := c.decls[name]
	if !ok {
		return nil, &CompileError{Path: path, Message: fmt.Sprintf("unknown field type %q", from.ref), Pos: from.val.Pos()}
	}
	if err := c.enter("data "+name, from, path); err != nil {
		return nil, err
	}
	defer c.leave()

	t, err := c.build(d, d.name)
	if err != nil {
		return nil, err
	}
	c.data[name] = t
	return t, nil
}

// keyType builds the key-only type of the named record: its key elements
// and nothing else.
func (c *compiler) keyType(name string, from fieldDecl, path string) (*meta.Type, error) {
	if t, ok := c.keys[name]; ok {
		return t, nil
	}
	d, ok := c.decls[name]
	if !ok || !d.record {
		return nil, &CompileError{Path: path, Message: fmt.Sprintf("%q is not a record type", name), Pos: from.val.Pos()}
	}
	if err := c.enter("key "+name, from, path); err != nil {
		return nil, err
	}
	defer c.leave()

	byName := make(map[string]fieldDecl, len(d.fields))
	for _, f := range d.fields {
		byName[f.name] = f
	}
	specs := make([]meta.FieldSpec, 0, len(d.key))
	for _, k := range d.key {
		f, ok := byName[k]
		if !ok {
			return nil, &CompileError{Path: "type." + name + ".key", Message: fmt.Sprintf("key element %s is not a field", k), Pos: d.val.Pos()}
		}
		spec, err := c.fieldSpec(f, "type."+name+".fields."+k)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	t := meta.Dynamic(name, specs...).WithKey(d.key...)
	c.keys[name] = t
	return t, nil
}

func (c *compiler) build(d *decl, typeName string) (*meta.Type, error) {
	prefix := "data."
	if d.record {
		prefix = "type."
	}
	specs := make([]meta.FieldSpec, 0, len(d.fields))
	for _, f := range d.fields {
		spec, err := c.fieldSpec(f, prefix+d.name+".fields."+f.name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return meta.Dynamic(typeName, specs...), nil
}

func (c *compiler) fieldSpec(f fieldDecl, path string) (meta.FieldSpec, error) {
	spec := meta.FieldSpec{Name: f.name, Array: f.array, Enum: f.enum}

	if kind, ok := ir.ParseKind(f.ref); ok && kind != ir.KindData && kind != ir.KindKey {
		if kind == ir.KindEnum && f.enum == nil {
			return spec, &CompileError{Path: path, Message: "enum fields declare their members with enum: [...]", Pos: f.val.Pos()}
		}
		spec.Kind = kind
		return spec, nil
	}
	if target, ok := strings.CutPrefix(f.ref, "key:"); ok {
		t, err := c.keyType(strings.TrimSpace(target), f, path)
		if err != nil {
			return spec, err
		}
		spec.Kind = ir.KindKey
		spec.Type = t
		return spec, nil
	}
	t, err := c.embedded(f.ref, f, path)
	if err != nil {
		return spec, err
	}
	spec.Kind = ir.KindData
	spec.Type = t
	return spec, nil
}

func (c *compiler) checkKey(d *decl, t *meta.Type) error {
	path := "type." + d.name + ".key"
	seen := make(map[string]bool, len(d.key))
	for _, k := range d.key {
		if seen[k] {
			return &CompileError{Path: path, Message: fmt.Sprintf("key element %s is repeated", k), Pos: d.val.Pos()}
		}
		seen[k] = true
		f := t.Field(k)
		switch {
		case f == nil:
			return &CompileError{Path: path, Message: fmt.Sprintf("key element %s is not a field", k), Pos: d.val.Pos()}
		case f.Array:
			return &CompileError{Path: path, Message: fmt.Sprintf("key element %s is a list", k), Pos: d.val.Pos()}
		case f.Kind == ir.KindDouble, f.Kind == ir.KindData:
			return &CompileError{Path: path, Message: fmt.Sprintf("key element %s cannot be a %s", k, f.Kind), Pos: d.val.Pos()}
		}
	}
	return nil
}

// enter pushes node onto the build chain and fails when it is already on it.
func (c *compiler) enter(node string, from fieldDecl, path string) error {
	for i, n := range c.visiting {
		if n == node {
			cycle := append(append([]string{}, c.visiting[i:]...), node)
			return &CompileError{
				Path:    path,
				Message: "type cycle: " + strings.Join(cycle, " -> "),
				Pos:     from.val.Pos(),
			}
		}
	}
	c.visiting = append(c.visiting, node)
	return nil
}

func (c *compiler) leave() {
	c.visiting = c.visiting[:len(c.visiting)-1]
}
