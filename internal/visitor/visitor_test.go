package visitor

import (
	"testing"

	"github.com/imyousuf/CallEagle/internal/index"
)

func line(e *index.Expr, n int) *index.Expr {
	e.Line = n
	return e
}

func fixture(t *testing.T) (*index.MemIndex, *index.Method) {
	t.Helper()
	idx := index.NewMemIndex()

	worker := &index.Type{QualifiedName: "p.Worker", Name: "Worker", Package: "p", Kind: index.KindClass,
		Methods: []*index.Method{
			{Name: "Worker", Constructor: true, Params: []index.Param{{Name: "n", Type: index.Ref("int")}}, Body: index.NewBlock()},
			{Name: "work", Body: index.NewBlock()},
		}}
	base := &index.Type{QualifiedName: "p.Base", Name: "Base", Package: "p", Kind: index.KindClass,
		Methods: []*index.Method{{Name: "run", Body: index.NewBlock()}}}

	run := &index.Method{Name: "run", Line: 10, Body: index.NewBlock(
		index.ExprStmt(line(index.Call(index.Super(), "run"), 11)),
		index.ExprStmt(line(index.Call(line(index.New(index.Ref("Worker"), index.Lit("1")), 12), "work"), 12)),
		index.ExprStmt(line(index.Call(index.Ident("names"), "forEach", line(index.MethodRef(index.This(), "helper"), 13)), 13)),
		index.Local(index.Ref("Runnable"), "r", index.Lambda(nil, index.ExprStmt(line(index.Call(nil, "helper"), 14)))),
		index.ExprStmt(index.Call(index.Ident("unknown"), "call")),
		index.ExprStmt(index.Call(nil, "missing")),
		index.ExprStmt(index.Call(nil, "helper")),
	)}
	child := &index.Type{QualifiedName: "p.Child", Name: "Child", Package: "p", Kind: index.KindClass,
		SuperClass: index.Ref("Base"),
		Fields:     []*index.Field{{Name: "names", Type: index.Ref("List", index.Ref("String"))}},
		Methods: []*index.Method{
			run,
			{Name: "helper", Body: index.NewBlock()},
		}}
	idx.AddFile(&index.File{Path: "p/Child.java", Package: "p", InProject: true, Types: []*index.Type{worker, base, child}})
	return idx, run
}

func TestVisitOrderAndKinds(t *testing.T) {
	idx, run := fixture(t)
	sites := New(idx).Visit(run)

	want := []struct {
		kind   Kind
		target string
		line   int
	}{
		{Super, "p.Base#run()", 11},
		{Constructor, "p.Worker#Worker(int)", 12},
		{Direct, "p.Worker#work()", 12},
		{MethodRef, "p.Child#helper()", 13},
		{Direct, "p.Child#helper()", 14},
		{Direct, "p.Child#helper()", 10},
	}
	if len(sites) != len(want) {
		for _, s := range sites {
			t.Logf("site %s %s line %d", s.Kind, s.Target.Key(), s.Line)
		}
		t.Fatalf("Visit returned %d sites, want %d", len(sites), len(want))
	}
	for i, w := range want {
		s := sites[i]
		if s.Kind != w.kind || string(s.Target.Key()) != w.target || s.Line != w.line {
			t.Errorf("site %d = %s %s line %d, want %s %s line %d",
				i, s.Kind, s.Target.Key(), s.Line, w.kind, w.target, w.line)
		}
	}
	if sites[0].Receiver == nil || sites[0].Receiver.Kind != index.ExprSuper {
		t.Error("super call should keep its receiver")
	}
	if sites[1].Receiver != nil {
		t.Error("constructor sites have no receiver")
	}
}

func TestVisitWithoutBody(t *testing.T) {
	idx, _ := fixture(t)
	if sites := New(idx).Visit(&index.Method{Name: "abstractOne"}); sites != nil {
		t.Errorf("Visit = %v, want nil", sites)
	}
	if sites := New(idx).Visit(nil); sites != nil {
		t.Errorf("Visit(nil) = %v, want nil", sites)
	}
}

type panicking struct{ index.Index }

func (panicking) ResolveCall(*index.Method, *index.Expr) (*index.Method, bool) {
	panic("index failure")
}

func TestVisitAbsorbsIndexFailures(t *testing.T) {
	idx, run := fixture(t)
	if sites := New(panicking{idx}).Visit(run); len(sites) != 0 {
		t.Errorf("Visit = %d sites, want 0", len(sites))
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{Direct: "direct", Super: "super", Constructor: "constructor", MethodRef: "method_ref", Kind(9): "unknown"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
