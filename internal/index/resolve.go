package index

// Calls on a parameterized receiver that yield the receiver's own type.
var preservingCalls = map[string]bool{
	"stream": true, "parallelStream": true, "iterator": true,
	"filter": true, "sorted": true, "distinct": true, "limit": true,
	"skip": true, "peek": true, "values": true,
	"findFirst": true, "findAny": true,
}

// Calls on a parameterized receiver that yield its element type.
var elementCalls = map[string]bool{
	"get": true, "next": true, "orElse": true, "orElseThrow": true,
	"orElseGet": true, "join": true, "getObject": true, "getIfAvailable": true,
}

// maxExprDepth guards recursive type inference over local initializers.
const maxExprDepth = 48

func (x *MemIndex) resolveCall(from *Method, e *Expr, depth int) *Method {
	switch e.Kind {
	case ExprCall:
		var cands []*Method
		switch {
		case e.X == nil:
			cur := from.Owner
			for i := 0; cur != nil && i < maxNesting; i++ {
				if cands = x.methodsByName(cur, e.Name); len(cands) > 0 {
					break
				}
				cur = x.outer(cur)
			}
		case e.X.Kind == ExprSuper:
			if sup := x.superClass(from.Owner); sup != nil {
				cands = x.methodsByName(sup, e.Name)
			}
			if len(cands) == 0 {
				// Interface.super.m() and default methods.
				for _, s := range x.supertypes(from.Owner) {
					if s.IsInterface() {
						cands = append(cands, x.methodsByName(s, e.Name)...)
					}
				}
			}
		default:
			rt, ok := x.typeOf(from, e.X, depth+1)
			if !ok {
				return nil
			}
			cands = x.methodsByName(x.refType(from.Owner, rt), e.Name)
		}
		return x.pick(from, methodsOnly(cands), e.Args, depth)

	case ExprNew:
		t := x.resolveName(from.Owner, e.Type.Name)
		return x.pick(from, x.constructors(t), e.Args, depth)

	case ExprMethodRef:
		t := x.methodRefType(from, e, depth)
		if t == nil {
			return nil
		}
		if e.Name == "new" {
			ctors := x.constructors(t)
			if len(ctors) == 0 {
				return nil
			}
			return ctors[0]
		}
		cands := methodsOnly(x.methodsByName(t, e.Name))
		if len(cands) == 0 {
			return nil
		}
		return cands[0]
	}
	return nil
}

func (x *MemIndex) methodRefType(from *Method, e *Expr, depth int) *Type {
	if e.X == nil {
		return x.resolveName(from.Owner, e.Type.Name)
	}
	switch e.X.Kind {
	case ExprThis:
		return from.Owner
	case ExprSuper:
		return x.superClass(from.Owner)
	}
	rt, ok := x.typeOf(from, e.X, depth+1)
	if !ok {
		return nil
	}
	return x.refType(from.Owner, rt)
}

func methodsOnly(ms []*Method) []*Method {
	out := ms[:0:0]
	for _, m := range ms {
		if !m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

func arityMatches(m *Method, n int) bool {
	p := len(m.Params)
	if p > 0 && m.Params[p-1].Variadic {
		return n >= p-1
	}
	return n == p
}

// pick chooses among overloads: arity first, then the argument-type score,
// then declaration order.
func (x *MemIndex) pick(from *Method, cands []*Method, args []*Expr, depth int) *Method {
	var best *Method
	bestScore := 0
	for _, c := range cands {
		if !arityMatches(c, len(args)) {
			continue
		}
		score := x.argScore(from, c, args, depth)
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func (x *MemIndex) argScore(from, target *Method, args []*Expr, depth int) int {
	score := 0
	for i, a := range args {
		pi := i
		if pi >= len(target.Params) {
			pi = len(target.Params) - 1
		}
		pt := target.Params[pi].Type
		if target.Params[pi].Variadic && pt.Dims > 0 && i >= len(target.Params)-1 {
			pt.Dims--
		}
		if target.IsTypeParam(pt.Name) {
			score++
			continue
		}
		at, ok := x.typeOf(from, a, depth+1)
		if !ok || at.IsZero() {
			continue
		}
		paramType := x.refType(target.Owner, pt)
		argType := x.refType(from.Owner, at)
		switch {
		case paramType != nil && argType != nil && paramType == argType:
			score += 3
		case paramType == nil && argType == nil && at.SimpleName() == pt.SimpleName() && at.Dims == pt.Dims:
			score += 3
		case paramType != nil && argType != nil && x.isSubtype(argType, paramType):
			score += 2
		case boxed[pt.SimpleName()] == at.SimpleName() || boxed[at.SimpleName()] == pt.SimpleName():
			score++
		case paramType != nil && argType != nil:
			score--
		}
	}
	return score
}

var boxed = map[string]string{
	"int": "Integer", "long": "Long", "short": "Short", "byte": "Byte",
	"char": "Character", "boolean": "Boolean", "double": "Double", "float": "Float",
}

func (x *MemIndex) typeOf(from *Method, e *Expr, depth int) (TypeRef, bool) {
	if e == nil || depth > maxExprDepth {
		return TypeRef{}, false
	}
	switch e.Kind {
	case ExprParen, ExprAssign:
		return x.typeOf(from, e.X, depth+1)
	case ExprCast, ExprNew:
		return x.qualify(from.Owner, e.Type), true
	case ExprThis:
		return TypeRef{Name: from.Owner.Key()}, true
	case ExprSuper:
		if sup := x.superClass(from.Owner); sup != nil {
			return TypeRef{Name: sup.Key()}, true
		}
	case ExprLiteral:
		if !e.Type.IsZero() {
			return e.Type, true
		}
	case ExprIdent:
		if v := x.resolveVariable(from, e, depth+1); v != nil {
			return x.varType(from, v, depth+1)
		}
		if t := x.resolveName(from.Owner, e.Name); t != nil {
			return TypeRef{Name: t.Key(), Static: true}, true
		}
	case ExprFieldAccess:
		if v := x.resolveVariable(from, e, depth+1); v != nil {
			return x.varType(from, v, depth+1)
		}
		if name := dottedName(e); name != "" {
			if t := x.resolveName(from.Owner, name); t != nil {
				return TypeRef{Name: t.Key(), Static: true}, true
			}
		}
	case ExprCall:
		return x.callType(from, e, depth)
	}
	return TypeRef{}, false
}

func (x *MemIndex) callType(from *Method, e *Expr, depth int) (TypeRef, bool) {
	var recv TypeRef
	haveRecv := false
	if e.X != nil && e.X.Kind != ExprSuper {
		recv, haveRecv = x.typeOf(from, e.X, depth+1)
	}
	var m *Method
	if haveRecv {
		m = x.pick(from, methodsOnly(x.methodsByName(x.refType(from.Owner, recv), e.Name)), e.Args, depth+1)
	} else if e.X == nil || e.X.Kind == ExprSuper {
		m = x.resolveCall(from, e, depth+1)
	}
	if m != nil && !m.ReturnType.IsZero() && m.ReturnType.Name != "void" {
		rt := m.ReturnType
		if m.Owner != nil && haveRecv {
			rt = substitute(m.Owner.TypeParams, recv.Args, rt)
		}
		if !m.IsTypeParam(rt.Name) {
			return x.qualify(m.Owner, rt), true
		}
	}
	if haveRecv && len(recv.Args) > 0 {
		switch {
		case preservingCalls[e.Name]:
			return TypeRef{Name: recv.Name, Args: recv.Args}, true
		case elementCalls[e.Name]:
			return recv.Element()
		}
	}
	return TypeRef{}, false
}

// substitute replaces the owner's type variables in rt with the receiver's
// type arguments.
func substitute(params []string, args []TypeRef, rt TypeRef) TypeRef {
	if len(params) == 0 || len(params) != len(args) {
		return rt
	}
	for i, p := range params {
		if p == rt.Name {
			out := args[i]
			out.Dims += rt.Dims
			return out
		}
	}
	if len(rt.Args) == 0 {
		return rt
	}
	out := rt
	out.Args = make([]TypeRef, len(rt.Args))
	for i, a := range rt.Args {
		out.Args[i] = substitute(params, args, a)
	}
	return out
}

// dottedName flattens a.b.c field access chains of plain identifiers.
func dottedName(e *Expr) string {
	switch e.Kind {
	case ExprIdent:
		return e.Name
	case ExprFieldAccess:
		if e.X == nil {
			return e.Name
		}
		if head := dottedName(e.X); head != "" {
			return head + "." + e.Name
		}
	}
	return ""
}

func (x *MemIndex) varType(from *Method, v *Variable, depth int) (TypeRef, bool) {
	ctx := from.Owner
	if v.Kind == VarField && v.Field != nil {
		ctx = v.Field.Owner
	}
	if !v.Type.IsZero() && v.Type.Name != "var" {
		return x.qualify(ctx, v.Type), true
	}
	if v.Init == nil {
		return TypeRef{}, false
	}
	it, ok := x.typeOf(from, v.Init, depth+1)
	if !ok {
		return TypeRef{}, false
	}
	if !v.Element {
		return it, true
	}
	if it.Dims > 0 {
		it.Dims--
		return it, true
	}
	return it.Element()
}

func (x *MemIndex) resolveVariable(from *Method, e *Expr, depth int) *Variable {
	if depth > maxExprDepth {
		return nil
	}
	switch e.Kind {
	case ExprIdent:
		if v, ok := from.localVars()[e.Name]; ok {
			return v
		}
		for i, p := range from.Params {
			if p.Name == e.Name {
				return &Variable{Kind: VarParam, Name: p.Name, Type: p.Type, Annotations: p.Annotations, Method: from, ParamIndex: i}
			}
		}
		cur := from.Owner
		for i := 0; cur != nil && i < maxNesting; i++ {
			if f := x.fieldOf(cur, e.Name); f != nil {
				return fieldVariable(f)
			}
			cur = x.outer(cur)
		}
	case ExprFieldAccess:
		if e.X == nil {
			return nil
		}
		var t *Type
		switch e.X.Kind {
		case ExprThis:
			t = from.Owner
		case ExprSuper:
			t = x.superClass(from.Owner)
		default:
			rt, ok := x.typeOf(from, e.X, depth+1)
			if !ok {
				return nil
			}
			t = x.refType(from.Owner, rt)
		}
		if f := x.fieldOf(t, e.Name); f != nil {
			return fieldVariable(f)
		}
	}
	return nil
}

func fieldVariable(f *Field) *Variable {
	return &Variable{Kind: VarField, Name: f.Name, Type: f.Type, Annotations: f.Annotations, Field: f}
}
