// Package index holds the semantic code model the call-graph engine queries:
// types, methods, fields, annotations and a small body IR, plus the Index
// oracle interface and an in-memory implementation built from parsed sources.
package index

import (
	"fmt"
	"strings"
)

// Modifier is a bit set of declaration modifiers.
type Modifier uint16

const (
	ModPublic Modifier = 1 << iota
	ModProtected
	ModPrivate
	ModStatic
	ModFinal
	ModAbstract
	ModDefault
	ModSynchronized
	ModNative
)

var modifierNames = []struct {
	mod  Modifier
	name string
}{
	{ModPublic, "public"},
	{ModProtected, "protected"},
	{ModPrivate, "private"},
	{ModStatic, "static"},
	{ModFinal, "final"},
	{ModAbstract, "abstract"},
	{ModDefault, "default"},
	{ModSynchronized, "synchronized"},
	{ModNative, "native"},
}

// ParseModifier maps a source keyword to its Modifier. Unknown keywords return 0.
func ParseModifier(keyword string) Modifier {
	for _, mn := range modifierNames {
		if mn.name == keyword {
			return mn.mod
		}
	}
	return 0
}

// Has reports whether all bits of o are set.
func (m Modifier) Has(o Modifier) bool { return m&o == o }

// String returns the modifiers in canonical source order.
func (m Modifier) String() string {
	var parts []string
	for _, mn := range modifierNames {
		if m.Has(mn.mod) {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, " ")
}

// TypeKind classifies a type declaration.
type TypeKind string

const (
	KindClass      TypeKind = "class"
	KindInterface  TypeKind = "interface"
	KindEnum       TypeKind = "enum"
	KindRecord     TypeKind = "record"
	KindAnnotation TypeKind = "annotation"
)

// Annotation is an annotation usage as written in source.
type Annotation struct {
	// Name is the annotation name as written (simple or qualified).
	Name string `json:"name"`
	// Values holds element values; a single unnamed argument is stored under "value".
	Values map[string]string `json:"values,omitempty"`
}

// SimpleName returns the last segment of the annotation name.
func (a Annotation) SimpleName() string { return lastSegment(a.Name) }

// Value returns the element value for key.
func (a Annotation) Value(key string) (string, bool) {
	v, ok := a.Values[key]
	return v, ok
}

// TypeRef is a reference to a type as written in source, with generic arguments.
type TypeRef struct {
	Name string    `json:"name"`
	Args []TypeRef `json:"args,omitempty"`
	Dims int       `json:"dims,omitempty"`
	// Static marks a reference produced by naming a type in expression
	// position (a static receiver), not a value of that type.
	Static bool `json:"-"`
}

// IsZero reports whether the reference names no type.
func (t TypeRef) IsZero() bool { return t.Name == "" }

// SimpleName returns the last segment of the erased name.
func (t TypeRef) SimpleName() string { return lastSegment(t.Name) }

// Erasure returns the raw type name with array dimensions.
func (t TypeRef) Erasure() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

// Element returns the last generic argument, which is the element type for
// collections, optionals and string-keyed maps.
func (t TypeRef) Element() (TypeRef, bool) {
	if len(t.Args) == 0 {
		return TypeRef{}, false
	}
	return t.Args[len(t.Args)-1], true
}

// String renders the reference in source form.
func (t TypeRef) String() string {
	if t.Name == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(t.Name)
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.String())
		}
		b.WriteByte('>')
	}
	b.WriteString(strings.Repeat("[]", t.Dims))
	return b.String()
}

// EntityKey is the stable identity of a declaration: ownerKey#name(paramTypes).
type EntityKey string

// File is the unit of loading: one source file and the types it declares.
type File struct {
	Path      string   `json:"path"`
	Package   string   `json:"package,omitempty"`
	Imports   []string `json:"imports,omitempty"`
	Types     []*Type  `json:"types"`
	InProject bool     `json:"in_project"`
}

// Link restores owner back-pointers after decoding or manual construction.
func (f *File) Link() {
	for _, t := range f.Types {
		t.File = f
		t.InProject = f.InProject
		for _, m := range t.Methods {
			m.Owner = t
		}
		for _, fd := range t.Fields {
			fd.Owner = t
		}
	}
}

// Type is a class, interface, enum, record or annotation declaration.
type Type struct {
	QualifiedName string       `json:"qualified_name,omitempty"`
	Name          string       `json:"name"`
	Package       string       `json:"package,omitempty"`
	Kind          TypeKind     `json:"kind"`
	Modifiers     Modifier     `json:"modifiers,omitempty"`
	Annotations   []Annotation `json:"annotations,omitempty"`
	TypeParams    []string     `json:"type_params,omitempty"`
	SuperClass    TypeRef      `json:"super_class,omitempty"`
	Interfaces    []TypeRef    `json:"interfaces,omitempty"`
	Fields        []*Field     `json:"fields,omitempty"`
	Methods       []*Method    `json:"methods,omitempty"`
	Outer         string       `json:"outer,omitempty"`
	FilePath      string       `json:"file_path"`
	Offset        int          `json:"offset"`
	Line          int          `json:"line"`

	InProject bool  `json:"-"`
	File      *File `json:"-"`
}

// Key returns the qualified name, or filePath:offset for anonymous and local types.
func (t *Type) Key() string {
	if t.QualifiedName != "" {
		return t.QualifiedName
	}
	return fmt.Sprintf("%s:%d", t.FilePath, t.Offset)
}

// IsInterface reports whether t is an interface (annotation types included).
func (t *Type) IsInterface() bool {
	return t.Kind == KindInterface || t.Kind == KindAnnotation
}

// IsAbstract reports whether t cannot be instantiated directly.
func (t *Type) IsAbstract() bool {
	return t.IsInterface() || t.Modifiers.Has(ModAbstract)
}

// IsFinal reports whether t cannot be subclassed.
func (t *Type) IsFinal() bool {
	return t.Modifiers.Has(ModFinal) || t.Kind == KindEnum || t.Kind == KindRecord
}

// IsTypeParam reports whether name is one of t's type parameters.
func (t *Type) IsTypeParam(name string) bool {
	for _, p := range t.TypeParams {
		if p == name {
			return true
		}
	}
	return false
}

// Field is a field declaration.
type Field struct {
	Name        string       `json:"name"`
	Type        TypeRef      `json:"type"`
	Modifiers   Modifier     `json:"modifiers,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Line        int          `json:"line"`

	Owner *Type `json:"-"`
}

// Param is a formal parameter.
type Param struct {
	Name        string       `json:"name"`
	Type        TypeRef      `json:"type"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Variadic    bool         `json:"variadic,omitempty"`
}

// Method is a method or constructor declaration.
type Method struct {
	Name        string       `json:"name"`
	Params      []Param      `json:"params,omitempty"`
	ReturnType  TypeRef      `json:"return_type,omitempty"`
	Modifiers   Modifier     `json:"modifiers,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	TypeParams  []string     `json:"type_params,omitempty"`
	Constructor bool         `json:"constructor,omitempty"`
	Body        *Block       `json:"body,omitempty"`
	FilePath    string       `json:"file_path"`
	Line        int          `json:"line"`
	EndLine     int          `json:"end_line"`
	Source      string       `json:"source,omitempty"`

	Owner *Type `json:"-"`

	locals localTable
}

// Key returns the method's EntityKey.
func (m *Method) Key() EntityKey {
	owner := ""
	if m.Owner != nil {
		owner = m.Owner.Key()
	}
	return EntityKey(owner + "#" + m.Name + "(" + m.ParamList() + ")")
}

// ParamList renders the erased parameter types separated by commas.
func (m *Method) ParamList() string {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type.Erasure()
		if p.Variadic {
			types[i] += "..."
		}
	}
	return strings.Join(types, ",")
}

// Signature renders the method as "ret name(T a, U b)".
func (m *Method) Signature() string {
	var b strings.Builder
	if !m.Constructor && !m.ReturnType.IsZero() {
		b.WriteString(m.ReturnType.String())
		b.WriteByte(' ')
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type.String())
		if p.Variadic {
			b.WriteString("...")
		}
		if p.Name != "" {
			b.WriteByte(' ')
			b.WriteString(p.Name)
		}
	}
	b.WriteByte(')')
	return b.String()
}

// HasBody reports whether the method declares a body.
func (m *Method) HasBody() bool { return m.Body != nil }

// IsAbstract reports whether the method has no implementation of its own.
func (m *Method) IsAbstract() bool {
	if m.Modifiers.Has(ModAbstract) {
		return true
	}
	return m.Body == nil && !m.Modifiers.Has(ModNative)
}

// IsStatic reports whether the method is static.
func (m *Method) IsStatic() bool { return m.Modifiers.Has(ModStatic) }

// IsPrivate reports whether the method is private.
func (m *Method) IsPrivate() bool { return m.Modifiers.Has(ModPrivate) }

// IsFinal reports whether the method is declared final.
func (m *Method) IsFinal() bool { return m.Modifiers.Has(ModFinal) }

// IsTypeParam reports whether name is a type parameter of m or its owner.
func (m *Method) IsTypeParam(name string) bool {
	for _, p := range m.TypeParams {
		if p == name {
			return true
		}
	}
	return m.Owner != nil && m.Owner.IsTypeParam(name)
}

// Location is a source position used for diagnostics and display.
type Location struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	EndLine  int    `json:"end_line,omitempty"`
}

// String renders "path:line".
func (l Location) String() string { return fmt.Sprintf("%s:%d", l.FilePath, l.Line) }

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Decapitalize applies java.beans.Introspector rules: the first character is
// lowered unless the first two characters are both upper case.
func Decapitalize(name string) string {
	if name == "" {
		return name
	}
	if len(name) > 1 && isUpper(name[0]) && isUpper(name[1]) {
		return name
	}
	if !isUpper(name[0]) {
		return name
	}
	return string(name[0]+('a'-'A')) + name[1:]
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
