// Package injection decides whether the receiver of a call originates from a
// dependency-injection point and describes that point.
package injection

import (
	"fmt"
	"strings"

	"github.com/imyousuf/CallEagle/internal/annotations"
	"github.com/imyousuf/CallEagle/internal/index"
)

// Cardinality is the number of beans an injection point expects.
type Cardinality uint8

const (
	Single Cardinality = iota
	List
	Set
	Map
)

func (c Cardinality) String() string {
	switch c {
	case List:
		return "LIST"
	case Set:
		return "SET"
	case Map:
		return "MAP"
	default:
		return "SINGLE"
	}
}

// Collection reports whether the point receives every matching bean.
func (c Cardinality) Collection() bool { return c != Single }

// Via names the injection mechanism that supplied a point.
type Via string

const (
	ViaField       Via = "field"
	ViaSetter      Via = "setter"
	ViaConstructor Via = "constructor"
	ViaLombok      Via = "lombok"
	ViaParameter   Via = "parameter"
	ViaBeanMethod  Via = "bean-method"
)

// Point is an injected field or parameter.
type Point struct {
	Name         string
	Kind         index.VarKind
	DeclaredType index.TypeRef
	// ElementType is the bean type after unwrapping collections and providers.
	ElementType  index.TypeRef
	Qualifier    string
	HasQualifier bool
	Cardinality  Cardinality
	Via          Via

	Field  *index.Field
	Method *index.Method
}

// Signature identifies the point's effect on disambiguation.
func (p *Point) Signature() string {
	if p == nil {
		return ""
	}
	q := "-"
	if p.HasQualifier {
		q = "q=" + p.Qualifier
	}
	return fmt.Sprintf("%s|%s|%s|%s", p.Cardinality, p.ElementType.Erasure(), q, p.Name)
}

// Owner returns the type the point is declared in, the context for
// resolving its types.
func (p *Point) Owner() *index.Type {
	switch {
	case p == nil:
		return nil
	case p.Field != nil:
		return p.Field.Owner
	case p.Method != nil:
		return p.Method.Owner
	}
	return nil
}

func (p *Point) String() string {
	if p == nil {
		return "<none>"
	}
	s := fmt.Sprintf("%s %s %s via %s", p.Kind, p.DeclaredType, p.Name, p.Via)
	if p.HasQualifier {
		s += fmt.Sprintf(" qualifier=%q", p.Qualifier)
	}
	return s
}

// maxTrace bounds receiver tracing through local variables.
const maxTrace = 8

// paramEvidence marks a setter parameter as injected.
var paramEvidence = append(append([]string{}, annotations.Inject...), annotations.Qualifier...)

// Resolver finds injection points behind call receivers.
type Resolver struct {
	idx index.Index
}

// NewResolver creates a resolver backed by idx.
func NewResolver(idx index.Index) *Resolver {
	return &Resolver{idx: idx}
}

// Resolve traces receiver, evaluated inside from, back to its declaration
// and reports the injection point it denotes. Index failures yield false.
func (r *Resolver) Resolve(from *index.Method, receiver *index.Expr) (p *Point, ok bool) {
	if from == nil || receiver == nil {
		return nil, false
	}
	defer func() {
		if recover() != nil {
			p, ok = nil, false
		}
	}()

	origin := r.trace(from, receiver, 0)
	if origin == nil {
		return nil, false
	}
	switch origin.Kind {
	case index.VarField:
		if p = r.field(origin.Field); p != nil {
			p.Field = origin.Field
		}
	case index.VarParam:
		p = r.param(origin.Method, origin.ParamIndex)
	}
	return p, p != nil
}

// trace follows parentheses, casts, call chains and single-assignment locals
// to the originating field or parameter.
func (r *Resolver) trace(from *index.Method, e *index.Expr, depth int) *index.Variable {
	if depth > maxTrace {
		return nil
	}
	e = index.Unwrap(e)
	if e == nil {
		return nil
	}
	switch e.Kind {
	case index.ExprCall:
		if e.X == nil {
			return nil
		}
		return r.trace(from, e.X, depth+1)
	case index.ExprIdent, index.ExprFieldAccess:
		v, ok := r.idx.ResolveVariable(from, e)
		if !ok {
			return nil
		}
		if v.Kind == index.VarLocal {
			if v.Init == nil || v.Reassigned {
				return nil
			}
			return r.trace(from, v.Init, depth+1)
		}
		return v
	}
	return nil
}

func (r *Resolver) field(f *index.Field) *Point {
	if f == nil || f.Owner == nil || f.Modifiers.Has(index.ModStatic) {
		return nil
	}
	owner := f.Owner

	if _, ok := r.idx.FindAnnotation(owner, f.Annotations, annotations.Inject...); ok {
		return r.point(owner, f.Name, f.Type, ViaField, f.Annotations)
	}
	if p := r.setter(owner, f); p != nil {
		return p
	}
	if p := r.constructor(owner, f); p != nil {
		return p
	}
	if _, ok := r.idx.FindAnnotation(owner, owner.Annotations, annotations.AllArgsConstructor...); ok {
		return r.point(owner, f.Name, f.Type, ViaLombok, f.Annotations)
	}
	if f.Modifiers.Has(index.ModFinal) {
		if _, ok := r.idx.FindAnnotation(owner, owner.Annotations, annotations.RequiredArgsConstructor...); ok {
			return r.point(owner, f.Name, f.Type, ViaLombok, f.Annotations)
		}
	}
	return nil
}

// setter finds an annotated set<Field> method that stores into f.
func (r *Resolver) setter(owner *index.Type, f *index.Field) *Point {
	for _, m := range owner.Methods {
		if m.Constructor || len(m.Params) != 1 || !strings.EqualFold(m.Name, "set"+f.Name) {
			continue
		}
		param := m.Params[0]
		_, onMethod := r.idx.FindAnnotation(owner, m.Annotations, annotations.Inject...)
		_, onParam := r.idx.FindAnnotation(owner, param.Annotations, paramEvidence...)
		if !onMethod && !onParam {
			continue
		}
		if m.HasBody() && !r.assigns(owner, m, f) {
			continue
		}
		p := r.point(owner, f.Name, f.Type, ViaSetter, param.Annotations, m.Annotations, f.Annotations)
		p.Method = m
		return p
	}
	return nil
}

func (r *Resolver) assigns(owner *index.Type, m *index.Method, f *index.Field) bool {
	v := &index.Variable{Kind: index.VarField, Name: f.Name, Type: f.Type, Field: f}
	for _, ref := range r.idx.References(v, owner) {
		if ref.Method == m && ref.Write {
			return true
		}
	}
	return false
}

// injectionConstructor returns the annotated constructor, or the unique
// constructor with parameters when none is annotated.
func (r *Resolver) injectionConstructor(owner *index.Type) *index.Method {
	var annotated, parameterized []*index.Method
	for _, m := range owner.Methods {
		if !m.Constructor {
			continue
		}
		if _, ok := r.idx.FindAnnotation(owner, m.Annotations, annotations.Inject...); ok {
			annotated = append(annotated, m)
		}
		if len(m.Params) > 0 {
			parameterized = append(parameterized, m)
		}
	}
	switch {
	case len(annotated) == 1:
		return annotated[0]
	case len(annotated) == 0 && len(parameterized) == 1:
		return parameterized[0]
	}
	return nil
}

// constructor matches f to a parameter of the injection constructor, by
// name first and then by type.
func (r *Resolver) constructor(owner *index.Type, f *index.Field) *Point {
	ctor := r.injectionConstructor(owner)
	if ctor == nil {
		return nil
	}
	match := -1
	for i, p := range ctor.Params {
		if p.Name == f.Name {
			match = i
			break
		}
	}
	if match < 0 {
		for i, p := range ctor.Params {
			if p.Type.SimpleName() == f.Type.SimpleName() && p.Type.Dims == f.Type.Dims {
				if match >= 0 {
					return nil
				}
				match = i
			}
		}
	}
	if match < 0 {
		return nil
	}
	param := ctor.Params[match]
	p := r.point(owner, f.Name, f.Type, ViaConstructor, param.Annotations, f.Annotations)
	p.Method = ctor
	return p
}

func (r *Resolver) param(m *index.Method, i int) *Point {
	if m == nil || i < 0 || i >= len(m.Params) || m.Owner == nil {
		return nil
	}
	owner := m.Owner
	param := m.Params[i]

	mk := func(via Via) *Point {
		p := r.point(owner, param.Name, param.Type, via, param.Annotations)
		p.Kind = index.VarParam
		p.Method = m
		return p
	}
	if _, ok := r.idx.FindAnnotation(owner, param.Annotations, annotations.Inject...); ok {
		return mk(ViaParameter)
	}
	if m.Constructor {
		if _, ok := r.idx.FindAnnotation(owner, m.Annotations, annotations.Inject...); ok {
			return mk(ViaConstructor)
		}
		if r.managed(owner) && r.injectionConstructor(owner) == m {
			return mk(ViaConstructor)
		}
		return nil
	}
	if _, ok := r.idx.FindAnnotation(owner, m.Annotations, annotations.Bean...); ok {
		return mk(ViaBeanMethod)
	}
	return nil
}

// managed reports whether t is registered as a container component.
func (r *Resolver) managed(t *index.Type) bool {
	_, ok := r.idx.FindAnnotation(t, t.Annotations, annotations.Stereotypes...)
	return ok
}

func (r *Resolver) point(ctx *index.Type, name string, typ index.TypeRef, via Via, anns ...[]index.Annotation) *Point {
	card, elem := cardinalityOf(typ)
	p := &Point{
		Name:         name,
		Kind:         index.VarField,
		DeclaredType: typ,
		ElementType:  elem,
		Cardinality:  card,
		Via:          via,
	}
	for _, list := range anns {
		if q, ok := r.qualifier(ctx, list); ok {
			p.Qualifier, p.HasQualifier = q, true
			break
		}
	}
	return p
}

// qualifier extracts a bean name from Qualifier/Named values, Resource names
// or a custom annotation meta-annotated with Qualifier.
func (r *Resolver) qualifier(ctx *index.Type, anns []index.Annotation) (string, bool) {
	for _, a := range anns {
		if a.SimpleName() == "Resource" {
			if v, ok := a.Value("name"); ok && v != "" {
				return v, true
			}
		}
	}
	a, ok := r.idx.FindAnnotation(ctx, anns, annotations.Qualifier...)
	if !ok {
		return "", false
	}
	if v, ok := a.Value("value"); ok && v != "" {
		return v, true
	}
	for _, q := range annotations.Qualifier {
		if a.SimpleName() == q {
			return "", false
		}
	}
	return a.SimpleName(), true
}

var (
	listTypes = map[string]bool{
		"List": true, "ArrayList": true, "LinkedList": true, "Collection": true,
		"Iterable": true, "Stream": true,
	}
	setTypes = map[string]bool{
		"Set": true, "HashSet": true, "LinkedHashSet": true, "SortedSet": true,
		"NavigableSet": true, "TreeSet": true,
	}
	mapTypes = map[string]bool{
		"Map": true, "HashMap": true, "LinkedHashMap": true, "SortedMap": true,
		"NavigableMap": true, "TreeMap": true, "ConcurrentMap": true, "ConcurrentHashMap": true,
	}
	providerTypes = map[string]bool{
		"Optional": true, "ObjectProvider": true, "Provider": true, "ObjectFactory": true,
	}
)

// cardinalityOf derives the cardinality and bean type of a declared type.
func cardinalityOf(t index.TypeRef) (Cardinality, index.TypeRef) {
	if t.Dims > 0 {
		el := t
		el.Dims--
		return List, el
	}
	name := t.SimpleName()
	switch {
	case listTypes[name]:
		if el, ok := t.Element(); ok {
			return List, el
		}
		return List, index.TypeRef{}
	case setTypes[name]:
		if el, ok := t.Element(); ok {
			return Set, el
		}
		return Set, index.TypeRef{}
	case mapTypes[name]:
		if len(t.Args) == 2 && t.Args[0].SimpleName() == "String" {
			return Map, t.Args[1]
		}
	case providerTypes[name]:
		if el, ok := t.Element(); ok {
			_, inner := cardinalityOf(el)
			return Single, inner
		}
	}
	return Single, t
}
