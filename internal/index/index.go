package index

import "sync"

// Scope bounds subtype and reference searches.
type Scope uint8

const (
	// ScopeProject limits results to project sources.
	ScopeProject Scope = iota
	// ScopeAll includes library (third-party) sources.
	ScopeAll
)

// VarKind classifies a resolved variable.
type VarKind uint8

const (
	VarLocal VarKind = iota
	VarParam
	VarField
)

func (k VarKind) String() string {
	switch k {
	case VarLocal:
		return "local"
	case VarParam:
		return "parameter"
	case VarField:
		return "field"
	default:
		return "unknown"
	}
}

// Variable is the declaration an identifier or field access resolves to.
type Variable struct {
	Kind        VarKind
	Name        string
	Type        TypeRef
	Annotations []Annotation

	// Field is set for VarField.
	Field *Field
	// Method is the declaring method for parameters and locals.
	Method *Method
	// ParamIndex is the position of a parameter.
	ParamIndex int

	// Init is the initializer of a local. When Element is set the local holds
	// an element of Init (enhanced-for variables, lambda parameters bound to a
	// call receiver) rather than Init itself.
	Init       *Expr
	Element    bool
	Reassigned bool
}

// Reference is one occurrence of a variable inside a method body.
type Reference struct {
	Method *Method
	Expr   *Expr
	Write  bool
}

// Index is the semantic oracle the engine queries. Implementations must be
// safe for concurrent readers.
type Index interface {
	// Revision returns a counter that increases on every source modification.
	Revision() int64

	// Type returns the type with the given key (qualified name or file:offset).
	Type(key string) (*Type, bool)

	// ResolveType resolves ref in the lexical context of from.
	ResolveType(from *Type, ref TypeRef) (*Type, bool)

	// Method returns the method with the given EntityKey.
	Method(key EntityKey) (*Method, bool)

	// FindMethods matches "Type#name(params)", "Type#name", "Type.name" or a
	// bare method name against qualified or simple type names.
	FindMethods(query string) []*Method

	// ResolveCall resolves a call, constructor or method reference expression
	// appearing in the body of from.
	ResolveCall(from *Method, e *Expr) (*Method, bool)

	// TypeOf returns the best-effort static type of e in the body of from.
	TypeOf(from *Method, e *Expr) (TypeRef, bool)

	// ResolveVariable resolves an identifier or field access in the body of from.
	ResolveVariable(from *Method, e *Expr) (*Variable, bool)

	// Supertypes returns the resolved direct supertypes of t.
	Supertypes(t *Type) []*Type

	// Subtypes returns every transitive subtype of t within scope, ordered by key.
	Subtypes(t *Type, scope Scope) []*Type

	// MethodsByName returns methods named name declared on t or inherited by
	// it, nearest declarations first; inherited methods hidden by an override
	// with the same parameter list are omitted.
	MethodsByName(t *Type, name string) []*Method

	// FindAnnotation returns the annotation among anns whose simple name is
	// one of names, directly or through meta-annotations.
	FindAnnotation(from *Type, anns []Annotation, names ...string) (Annotation, bool)

	// References returns references to v inside methods of scope and its
	// nested types.
	References(v *Variable, scope *Type) []Reference

	// Location maps a method to its source position.
	Location(m *Method) Location
}

// localTable lazily indexes the locals of a method body.
type localTable struct {
	once sync.Once
	vars map[string]*Variable
}

func (m *Method) localVars() map[string]*Variable {
	m.locals.once.Do(func() {
		m.locals.vars = collectLocals(m)
	})
	return m.locals.vars
}

func collectLocals(m *Method) map[string]*Variable {
	vars := make(map[string]*Variable)
	if m.Body == nil {
		return vars
	}
	declare := func(v *Variable) {
		if _, exists := vars[v.Name]; exists {
			return
		}
		vars[v.Name] = v
	}
	assigned := make(map[string]int)

	WalkStmts(m.Body.Stmts, Visitor{
		Stmt: func(s *Stmt) {
			switch s.Kind {
			case StmtLocal:
				declare(&Variable{Kind: VarLocal, Name: s.Name, Type: s.Type, Method: m, Init: s.Expr})
			case StmtForEach:
				declare(&Variable{Kind: VarLocal, Name: s.Name, Type: s.Type, Method: m, Init: s.Expr, Element: true})
			}
		},
		Expr: func(e *Expr) bool {
			switch e.Kind {
			case ExprCall:
				for _, a := range e.Args {
					if a.Kind != ExprLambda {
						continue
					}
					for _, p := range a.Params {
						declare(&Variable{Kind: VarLocal, Name: p, Method: m, Init: e.X, Element: e.X != nil})
					}
				}
			case ExprLambda:
				for _, p := range e.Params {
					declare(&Variable{Kind: VarLocal, Name: p, Method: m})
				}
			case ExprAssign:
				if e.X != nil && e.X.Kind == ExprIdent {
					assigned[e.X.Name]++
				}
			}
			return true
		},
	})

	for name := range assigned {
		if v, ok := vars[name]; ok {
			v.Reassigned = true
		}
	}
	return vars
}
