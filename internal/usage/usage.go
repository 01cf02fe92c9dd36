// Package usage estimates whether a method's parameters influence anything
// observable. A parameter counts as used when it reaches a return or throw
// value, an assignment or local initializer, a call receiver or argument, a
// constructor argument, or a lambda body. Reads that only steer control flow
// do not count.
//
// The analysis is deliberately shallow: a parameter copied into a local that
// is never read still counts as used. Any doubt resolves to "used".
package usage

import (
	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/index"
)

// Analyzer memoizes parameter usage per method.
type Analyzer struct {
	cache *cache.Cache
}

// New creates an Analyzer. c may be nil.
func New(c *cache.Cache) *Analyzer {
	return &Analyzer{cache: c}
}

// Relevant reports whether calls to m should be kept: m takes no
// parameters, has no body, or uses at least one parameter.
func (a *Analyzer) Relevant(m *index.Method) bool {
	if m == nil || len(m.Params) == 0 || m.Body == nil {
		return true
	}
	return cache.GetOrCompute(a.cache, cache.Usage, string(m.Key()), func() bool {
		for _, used := range UsedParams(m) {
			if used {
				return true
			}
		}
		return false
	})
}

// UsedParams reports, per parameter of m, whether it is effectively used.
// Without a body, or when the analysis fails, every parameter is used.
func UsedParams(m *index.Method) (used []bool) {
	used = make([]bool, len(m.Params))
	all := func() {
		for i := range used {
			used[i] = true
		}
	}
	if m.Body == nil {
		all()
		return used
	}
	defer func() {
		if recover() != nil {
			all()
		}
	}()

	pos := make(map[string]int, len(m.Params))
	for i, p := range m.Params {
		pos[p.Name] = i
	}
	s := &scan{params: pos, used: used}
	s.stmts(m.Body.Stmts)
	return used
}

type scan struct {
	params map[string]int
	used   []bool
}

func (s *scan) stmts(list []*index.Stmt) {
	for _, st := range list {
		s.stmt(st)
	}
}

func (s *scan) stmt(st *index.Stmt) {
	if st == nil {
		return
	}
	switch st.Kind {
	case index.StmtReturn, index.StmtThrow, index.StmtLocal, index.StmtForEach:
		s.expr(st.Expr, true)
	default:
		s.expr(st.Expr, false)
	}
	s.stmts(st.Body)
	s.stmts(st.Else)
}

// expr marks parameters referenced in e. sink is set when the value of e
// flows somewhere observable.
func (s *scan) expr(e *index.Expr, sink bool) {
	if e == nil {
		return
	}
	switch e.Kind {
	case index.ExprIdent:
		if i, ok := s.params[e.Name]; ok && sink {
			s.used[i] = true
		}
	case index.ExprCall, index.ExprNew:
		s.expr(e.X, true)
		for _, a := range e.Args {
			s.expr(a, true)
		}
	case index.ExprMethodRef:
		s.expr(e.X, true)
	case index.ExprLambda:
		s.capture(e.Body)
	case index.ExprAssign:
		s.expr(e.X, false)
		for _, a := range e.Args {
			s.expr(a, true)
		}
	case index.ExprLiteral, index.ExprThis, index.ExprSuper:
	default:
		s.expr(e.X, sink)
		for _, a := range e.Args {
			s.expr(a, sink)
		}
		s.stmts(e.Body)
	}
}

// capture marks every parameter referenced inside a lambda body.
func (s *scan) capture(body []*index.Stmt) {
	index.WalkStmts(body, index.Visitor{Expr: func(e *index.Expr) bool {
		if e.Kind == index.ExprIdent {
			if i, ok := s.params[e.Name]; ok {
				s.used[i] = true
			}
		}
		return true
	}})
}
