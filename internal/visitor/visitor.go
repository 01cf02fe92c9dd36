// Package visitor walks a method body once and reports every call,
// constructor invocation and method reference together with the declaration
// the index resolves it to.
package visitor

import (
	"github.com/imyousuf/CallEagle/internal/index"
)

// Kind classifies a call site.
type Kind uint8

const (
	Direct Kind = iota
	Super
	Constructor
	MethodRef
)

var kindNames = [...]string{
	Direct:      "direct",
	Super:       "super",
	Constructor: "constructor",
	MethodRef:   "method_ref",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// CallSite is one resolved invocation in a body.
type CallSite struct {
	Kind Kind
	Expr *index.Expr
	// Receiver is the qualifier expression, nil for unqualified calls and
	// constructor invocations.
	Receiver *index.Expr
	Target   *index.Method
	Line     int
}

// Visitor resolves call sites through an index.
type Visitor struct {
	idx index.Index
}

// New creates a Visitor backed by idx.
func New(idx index.Index) *Visitor {
	return &Visitor{idx: idx}
}

// Visit returns the resolved call sites of m in evaluation order: receiver
// and arguments are reported before the call that consumes them. Calls
// inside lambda bodies are included. Sites the index cannot resolve are
// dropped.
func (v *Visitor) Visit(m *index.Method) []CallSite {
	if m == nil || m.Body == nil {
		return nil
	}
	var sites []CallSite
	index.WalkStmts(m.Body.Stmts, index.Visitor{PostExpr: func(e *index.Expr) {
		site := CallSite{Expr: e, Line: e.Line}
		switch e.Kind {
		case index.ExprCall:
			site.Kind = Direct
			if e.X != nil && e.X.Kind == index.ExprSuper {
				site.Kind = Super
			}
			site.Receiver = e.X
		case index.ExprNew:
			site.Kind = Constructor
		case index.ExprMethodRef:
			site.Kind = MethodRef
			site.Receiver = e.X
		default:
			return
		}
		target, ok := v.resolve(m, e)
		if !ok {
			return
		}
		site.Target = target
		if site.Line == 0 {
			site.Line = m.Line
		}
		sites = append(sites, site)
	}})
	return sites
}

// resolve treats index failures as unresolved expressions.
func (v *Visitor) resolve(from *index.Method, e *index.Expr) (target *index.Method, ok bool) {
	defer func() {
		if recover() != nil {
			target, ok = nil, false
		}
	}()
	return v.idx.ResolveCall(from, e)
}
