package java

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/parser"
)

// JavaParser lowers Java source files into index declarations and body IR.
type JavaParser struct{}

// NewParser creates a new Java parser.
func NewParser() *JavaParser {
	return &JavaParser{}
}

func (p *JavaParser) Language() parser.Language {
	return parser.LangJava
}

func (p *JavaParser) Extensions() []string {
	return parser.FileExtensions[parser.LangJava]
}

func (p *JavaParser) ParseFile(filePath string, content []byte) (*index.File, error) {
	sitterParser := sitter.NewParser()
	sitterParser.SetLanguage(java.GetLanguage())

	tree, err := sitterParser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	e := &extractor{
		filePath: filePath,
		content:  content,
		file:     &index.File{Path: filePath},
	}
	e.walkProgram(tree.RootNode())
	e.file.Link()
	return e.file, nil
}

// extractor walks a tree-sitter Java AST and builds the file's declarations.
type extractor struct {
	filePath string
	content  []byte
	file     *index.File

	// types is the stack of enclosing type declarations.
	types []*index.Type
}

func (e *extractor) walkProgram(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			e.file.Package = e.qualifiedChild(child)
		case "import_declaration":
			e.extractImport(child)
		default:
			if isTypeDeclaration(child.Type()) {
				e.extractType(child, false)
			}
		}
	}
}

func isTypeDeclaration(kind string) bool {
	switch kind {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		return true
	}
	return false
}

// qualifiedChild returns the text of the first identifier or scoped_identifier child.
func (e *extractor) qualifiedChild(node *sitter.Node) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			return e.nodeText(child)
		}
	}
	return ""
}

func (e *extractor) extractImport(node *sitter.Node) {
	name := e.qualifiedChild(node)
	if name == "" {
		return
	}
	static := false
	for i := 0; i < int(node.ChildCount()); i++ {
		switch node.Child(i).Type() {
		case "asterisk":
			name += ".*"
		case "static":
			static = true
		}
	}
	if static && !strings.HasSuffix(name, ".*") {
		// Single static member imports do not name types.
		return
	}
	e.file.Imports = append(e.file.Imports, name)
}

func (e *extractor) enclosing() *index.Type {
	if len(e.types) == 0 {
		return nil
	}
	return e.types[len(e.types)-1]
}

// extractType records a named type declaration. Local types (declared inside
// a method body) are keyed by file offset like anonymous ones.
func (e *extractor) extractType(node *sitter.Node, local bool) *index.Type {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	t := &index.Type{
		Name:     e.nodeText(nameNode),
		Package:  e.file.Package,
		FilePath: e.filePath,
		Offset:   int(node.StartByte()),
		Line:     int(node.StartPoint().Row) + 1,
	}
	if outer := e.enclosing(); outer != nil {
		t.Outer = outer.Key()
	}
	if !local {
		switch outer := e.enclosing(); {
		case outer != nil && outer.QualifiedName != "":
			t.QualifiedName = outer.QualifiedName + "." + t.Name
		case outer == nil && e.file.Package != "":
			t.QualifiedName = e.file.Package + "." + t.Name
		case outer == nil:
			t.QualifiedName = t.Name
		}
	}

	switch node.Type() {
	case "interface_declaration":
		t.Kind = index.KindInterface
	case "enum_declaration":
		t.Kind = index.KindEnum
	case "record_declaration":
		t.Kind = index.KindRecord
	case "annotation_type_declaration":
		t.Kind = index.KindAnnotation
	default:
		t.Kind = index.KindClass
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "modifiers":
			t.Modifiers, t.Annotations = e.extractModifiers(child)
		case "type_parameters":
			t.TypeParams = e.typeParams(child)
		case "superclass":
			if child.NamedChildCount() > 0 {
				t.SuperClass = e.typeRef(child.NamedChild(0))
			}
		case "super_interfaces", "extends_interfaces":
			t.Interfaces = append(t.Interfaces, e.typeList(child)...)
		}
	}
	if t.Kind == index.KindInterface || t.Kind == index.KindAnnotation {
		t.Modifiers |= index.ModAbstract
	}

	e.file.Types = append(e.file.Types, t)
	e.types = append(e.types, t)
	defer func() { e.types = e.types[:len(e.types)-1] }()

	if t.Kind == index.KindRecord {
		e.extractRecordComponents(node.ChildByFieldName("parameters"), t)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBody(body, t)
	}
	return t
}

// extractAnonymous records the class body of an instance creation expression
// or enum constant as an anonymous subtype of super.
func (e *extractor) extractAnonymous(body *sitter.Node, super index.TypeRef) *index.Type {
	t := &index.Type{
		Kind:       index.KindClass,
		Package:    e.file.Package,
		SuperClass: super,
		FilePath:   e.filePath,
		Offset:     int(body.StartByte()),
		Line:       int(body.StartPoint().Row) + 1,
	}
	if outer := e.enclosing(); outer != nil {
		t.Outer = outer.Key()
	}
	e.file.Types = append(e.file.Types, t)
	e.types = append(e.types, t)
	e.walkBody(body, t)
	e.types = e.types[:len(e.types)-1]
	return t
}

func (e *extractor) walkBody(body *sitter.Node, t *index.Type) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "method_declaration", "annotation_type_element_declaration":
			t.Methods = append(t.Methods, e.extractMethod(child, t, false))
		case "constructor_declaration":
			t.Methods = append(t.Methods, e.extractMethod(child, t, true))
		case "field_declaration", "constant_declaration":
			t.Fields = append(t.Fields, e.extractFields(child)...)
		case "enum_body_declarations":
			e.walkBody(child, t)
		case "enum_constant":
			e.extractEnumConstant(child, t)
		default:
			if isTypeDeclaration(child.Type()) {
				e.extractType(child, false)
			}
		}
	}
}

func (e *extractor) extractEnumConstant(node *sitter.Node, enum *index.Type) {
	name := node.ChildByFieldName("name")
	if name == nil {
		return
	}
	enum.Fields = append(enum.Fields, &index.Field{
		Name:      e.nodeText(name),
		Type:      index.TypeRef{Name: enum.Key()},
		Modifiers: index.ModPublic | index.ModStatic | index.ModFinal,
		Line:      int(node.StartPoint().Row) + 1,
	})
	if body := node.ChildByFieldName("body"); body != nil {
		e.extractAnonymous(body, index.TypeRef{Name: enum.Key()})
	}
}

// extractRecordComponents turns record components into final fields and
// implicit accessor methods.
func (e *extractor) extractRecordComponents(params *sitter.Node, t *index.Type) {
	if params == nil {
		return
	}
	line := int(params.StartPoint().Row) + 1
	for _, p := range e.params(params) {
		t.Fields = append(t.Fields, &index.Field{
			Name:      p.Name,
			Type:      p.Type,
			Modifiers: index.ModPrivate | index.ModFinal,
			Line:      line,
		})
		t.Methods = append(t.Methods, &index.Method{
			Name:       p.Name,
			ReturnType: p.Type,
			Modifiers:  index.ModPublic,
			Body:       index.NewBlock(index.Return(index.FieldOf(index.This(), p.Name))),
			FilePath:   e.filePath,
			Line:       line,
			EndLine:    line,
		})
	}
}

func (e *extractor) extractMethod(node *sitter.Node, owner *index.Type, ctor bool) *index.Method {
	m := &index.Method{
		Constructor: ctor,
		FilePath:    e.filePath,
		Line:        int(node.StartPoint().Row) + 1,
		EndLine:     int(node.EndPoint().Row) + 1,
		Source:      e.nodeText(node),
		Owner:       owner,
	}
	if name := node.ChildByFieldName("name"); name != nil {
		m.Name = e.nodeText(name)
	}
	if ctor {
		m.Name = owner.Name
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "modifiers":
			m.Modifiers, m.Annotations = e.extractModifiers(child)
		case "type_parameters":
			m.TypeParams = e.typeParams(child)
		}
	}
	if owner.IsInterface() && !m.Modifiers.Has(index.ModPrivate) {
		m.Modifiers |= index.ModPublic
	}
	if rt := node.ChildByFieldName("type"); rt != nil && !ctor {
		m.ReturnType = e.typeRef(rt)
		if dims := node.ChildByFieldName("dimensions"); dims != nil {
			m.ReturnType.Dims += strings.Count(e.nodeText(dims), "[")
		}
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		m.Params = e.params(params)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		lw := &lowerer{e: e, method: m}
		m.Body = index.NewBlock(lw.block(body)...)
	}
	return m
}

func (e *extractor) params(node *sitter.Node) []index.Param {
	var out []index.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		var p index.Param
		switch child.Type() {
		case "formal_parameter":
			if t := child.ChildByFieldName("type"); t != nil {
				p.Type = e.typeRef(t)
			}
			if n := child.ChildByFieldName("name"); n != nil {
				p.Name = e.nodeText(n)
			}
			if dims := child.ChildByFieldName("dimensions"); dims != nil {
				p.Type.Dims += strings.Count(e.nodeText(dims), "[")
			}
		case "spread_parameter":
			p.Variadic = true
			for j := 0; j < int(child.NamedChildCount()); j++ {
				c := child.NamedChild(j)
				switch {
				case c.Type() == "variable_declarator":
					if n := c.ChildByFieldName("name"); n != nil {
						p.Name = e.nodeText(n)
					}
				case c.Type() == "identifier":
					p.Name = e.nodeText(c)
				case isTypeNode(c.Type()) && p.Type.IsZero():
					p.Type = e.typeRef(c)
				}
			}
			p.Type.Dims++
		default:
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			if c := child.NamedChild(j); c.Type() == "modifiers" {
				_, p.Annotations = e.extractModifiers(c)
			}
		}
		out = append(out, p)
	}
	return out
}

func (e *extractor) extractFields(node *sitter.Node) []*index.Field {
	var mods index.Modifier
	var anns []index.Annotation
	var typ index.TypeRef
	var out []*index.Field
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "modifiers":
			mods, anns = e.extractModifiers(child)
		case "variable_declarator":
			f := &index.Field{
				Type:        typ,
				Modifiers:   mods,
				Annotations: anns,
				Line:        int(child.StartPoint().Row) + 1,
			}
			if n := child.ChildByFieldName("name"); n != nil {
				f.Name = e.nodeText(n)
			}
			if dims := child.ChildByFieldName("dimensions"); dims != nil {
				f.Type.Dims += strings.Count(e.nodeText(dims), "[")
			}
			if owner := e.enclosing(); owner != nil && owner.IsInterface() {
				f.Modifiers |= index.ModPublic | index.ModStatic | index.ModFinal
			}
			out = append(out, f)
		default:
			if isTypeNode(child.Type()) {
				typ = e.typeRef(child)
			}
		}
	}
	return out
}

func (e *extractor) extractModifiers(node *sitter.Node) (index.Modifier, []index.Annotation) {
	var mods index.Modifier
	var anns []index.Annotation
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "marker_annotation", "annotation":
			anns = append(anns, e.annotation(child))
		default:
			mods |= index.ParseModifier(child.Type())
		}
	}
	return mods, anns
}

func (e *extractor) annotation(node *sitter.Node) index.Annotation {
	a := index.Annotation{}
	if n := node.ChildByFieldName("name"); n != nil {
		a.Name = e.nodeText(n)
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return a
	}
	a.Values = make(map[string]string)
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		if child.Type() == "element_value_pair" {
			k, v := child.ChildByFieldName("key"), child.ChildByFieldName("value")
			if k != nil && v != nil {
				a.Values[e.nodeText(k)] = e.elementValue(v)
			}
			continue
		}
		a.Values["value"] = e.elementValue(child)
	}
	return a
}

// elementValue renders an annotation element: string quotes are stripped and
// array initializers are joined with commas.
func (e *extractor) elementValue(node *sitter.Node) string {
	switch node.Type() {
	case "string_literal":
		return unquote(e.nodeText(node))
	case "element_value_array_initializer":
		parts := make([]string, 0, node.NamedChildCount())
		for i := 0; i < int(node.NamedChildCount()); i++ {
			parts = append(parts, e.elementValue(node.NamedChild(i)))
		}
		return strings.Join(parts, ",")
	case "binary_expression":
		// "a" + "b" constant folding for mapping paths.
		l, r := node.ChildByFieldName("left"), node.ChildByFieldName("right")
		if l != nil && r != nil {
			return e.elementValue(l) + e.elementValue(r)
		}
	}
	return e.nodeText(node)
}

func unquote(s string) string {
	if strings.HasPrefix(s, `"""`) && strings.HasSuffix(s, `"""`) && len(s) >= 6 {
		return strings.TrimSpace(s[3 : len(s)-3])
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func (e *extractor) typeParams(node *sitter.Node) []string {
	var out []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		tp := node.NamedChild(i)
		if tp.Type() != "type_parameter" {
			continue
		}
		for j := 0; j < int(tp.NamedChildCount()); j++ {
			c := tp.NamedChild(j)
			if c.Type() == "type_identifier" || c.Type() == "identifier" {
				out = append(out, e.nodeText(c))
				break
			}
		}
	}
	return out
}

func (e *extractor) typeList(node *sitter.Node) []index.TypeRef {
	var out []index.TypeRef
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "type_list" {
			out = append(out, e.typeList(child)...)
			continue
		}
		if isTypeNode(child.Type()) {
			out = append(out, e.typeRef(child))
		}
	}
	return out
}

func isTypeNode(kind string) bool {
	switch kind {
	case "type_identifier", "scoped_type_identifier", "generic_type", "array_type",
		"integral_type", "floating_point_type", "boolean_type", "void_type", "annotated_type":
		return true
	}
	return false
}

// typeRef converts a type node into a TypeRef.
func (e *extractor) typeRef(node *sitter.Node) index.TypeRef {
	switch node.Type() {
	case "generic_type":
		var ref index.TypeRef
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "type_arguments":
				for j := 0; j < int(child.NamedChildCount()); j++ {
					ref.Args = append(ref.Args, e.typeRef(child.NamedChild(j)))
				}
			default:
				if ref.Name == "" {
					ref.Name = e.typeRef(child).Name
				}
			}
		}
		return ref
	case "array_type":
		var ref index.TypeRef
		if el := node.ChildByFieldName("element"); el != nil {
			ref = e.typeRef(el)
		}
		if dims := node.ChildByFieldName("dimensions"); dims != nil {
			ref.Dims += strings.Count(e.nodeText(dims), "[")
		}
		return ref
	case "wildcard":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if c := node.NamedChild(i); isTypeNode(c.Type()) {
				return e.typeRef(c)
			}
		}
		return index.TypeRef{Name: "Object"}
	case "annotated_type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if c := node.NamedChild(i); isTypeNode(c.Type()) {
				return e.typeRef(c)
			}
		}
	case "scoped_type_identifier":
		// Drop generic arguments of qualifying segments: Map.Entry<K,V> keeps Entry's.
		text := e.nodeText(node)
		if strings.ContainsAny(text, "<@") {
			var parts []string
			for i := 0; i < int(node.NamedChildCount()); i++ {
				if name := e.typeRef(node.NamedChild(i)).Name; name != "" {
					parts = append(parts, name)
				}
			}
			return index.TypeRef{Name: strings.Join(parts, ".")}
		}
		return index.TypeRef{Name: text}
	}
	return index.TypeRef{Name: e.nodeText(node)}
}

func (e *extractor) nodeText(node *sitter.Node) string {
	return node.Content(e.content)
}
