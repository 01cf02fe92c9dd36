package usage

import (
	"fmt"
	"testing"

	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/index"
)

func withParams(name string, body *index.Block, names ...string) *index.Method {
	m := &index.Method{Name: name, Body: body}
	for _, n := range names {
		m.Params = append(m.Params, index.Param{Name: n, Type: index.Ref("String")})
	}
	f := &index.File{Path: "T.java", Types: []*index.Type{{QualifiedName: "p.T", Name: "T", Methods: []*index.Method{m}}}}
	f.Link()
	return m
}

func TestUsedParams(t *testing.T) {
	tests := []struct {
		name string
		body *index.Block
		want []bool
	}{
		{"returned", index.NewBlock(index.Return(index.Ident("a"))), []bool{true, false}},
		{"returned in expression", index.NewBlock(index.Return(index.Op(index.Ident("a"), index.Lit("1")))), []bool{true, false}},
		{"thrown", index.NewBlock(index.Throw(index.New(index.Ref("Err"), index.Ident("b")))), []bool{false, true}},
		{"field store", index.NewBlock(index.ExprStmt(index.Assign(index.FieldOf(index.This(), "x"), index.Ident("a")))), []bool{true, false}},
		{"local initializer", index.NewBlock(index.Local(index.Ref("String"), "unused", index.Ident("b"))), []bool{false, true}},
		{"call argument", index.NewBlock(index.ExprStmt(index.Call(index.Ident("log"), "info", index.Ident("a"), index.Ident("b")))), []bool{true, true}},
		{"call receiver", index.NewBlock(index.ExprStmt(index.Call(index.Ident("a"), "trim"))), []bool{true, false}},
		{"method reference receiver", index.NewBlock(index.ExprStmt(index.Call(nil, "run", index.MethodRef(index.Ident("b"), "trim")))), []bool{false, true}},
		{"lambda capture", index.NewBlock(index.Local(index.Ref("Runnable"), "r", index.Lambda(nil, index.If(index.Ident("a"), nil)))), []bool{true, false}},
		{"condition only", index.NewBlock(index.If(index.Op(index.Ident("a"), index.Ident("b")), []*index.Stmt{index.Return(index.Lit("1"))})), []bool{false, false}},
		{"nested in if body", index.NewBlock(index.If(index.Ident("a"), []*index.Stmt{index.Return(index.Ident("b"))})), []bool{false, true}},
		{"overwritten parameter", index.NewBlock(index.ExprStmt(index.Assign(index.Ident("a"), index.Lit("null")))), []bool{false, false}},
		{"iterated", index.NewBlock(index.ForEach(index.Ref("var"), "x", index.Ident("a"))), []bool{true, false}},
		{"cast in return", index.NewBlock(index.Return(index.Cast(index.Ref("Object"), index.Paren(index.Ident("b"))))), []bool{false, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UsedParams(withParams("target", tt.body, "a", "b"))
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("UsedParams = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUsedParamsWithoutBody(t *testing.T) {
	got := UsedParams(withParams("target", nil, "a"))
	if !got[0] {
		t.Error("parameters of a method without a body count as used")
	}
}

func TestRelevant(t *testing.T) {
	c := cache.New(nil)
	a := New(c)

	if !a.Relevant(withParams("none", index.NewBlock())) {
		t.Error("methods without parameters are relevant")
	}
	if !a.Relevant(withParams("echo", index.NewBlock(index.Return(index.Ident("a"))), "a")) {
		t.Error("a method returning its parameter is relevant")
	}
	ignored := withParams("ignore", index.NewBlock(index.ExprStmt(index.Call(nil, "tick"))), "a")
	if a.Relevant(ignored) {
		t.Error("a method ignoring its only parameter is not relevant")
	}
	if a.Relevant(ignored) {
		t.Error("a memoized verdict for a method ignoring its parameter stays not relevant")
	}
	if c.Len(cache.Usage) != 2 {
		t.Errorf("usage entries = %d, want 2", c.Len(cache.Usage))
	}
}
