package override

import (
	"strings"
	"testing"

	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/di"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/injection"
)

func greet(typ string, mods index.Modifier, body bool) *index.Method {
	m := &index.Method{Name: "greet", Modifiers: mods, Params: []index.Param{{Name: "n", Type: index.Ref(typ)}}}
	if body {
		m.Body = index.NewBlock()
	}
	return m
}

func class(name string, super string, ifaces ...string) *index.Type {
	t := &index.Type{QualifiedName: "p." + name, Name: name, Package: "p", Kind: index.KindClass}
	if super != "" {
		t.SuperClass = index.Ref(super)
	}
	for _, i := range ifaces {
		t.Interfaces = append(t.Interfaces, index.Ref(i))
	}
	return t
}

type fixture struct {
	idx     *index.MemIndex
	greeter *index.Type
	handler *index.Type
	client  *index.Type
	types   map[string]*index.Type
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	idx := index.NewMemIndex()

	greeter := &index.Type{QualifiedName: "p.Greeter", Name: "Greeter", Package: "p", Kind: index.KindInterface,
		Methods: []*index.Method{greet("String", index.ModPublic|index.ModAbstract, false)}}

	base := class("Base", "", "Greeter")
	base.Modifiers = index.ModAbstract
	base.Methods = []*index.Method{
		greet("String", index.ModPublic, true),
		{Name: "helper", Modifiers: index.ModProtected | index.ModAbstract},
	}
	loud := class("Loud", "Base")
	loud.Methods = []*index.Method{
		greet("int", index.ModPublic, true),
		greet("String", index.ModPublic, true),
		{Name: "helper", Modifiers: index.ModProtected, Body: index.NewBlock()},
	}
	quiet := class("Quiet", "Base")
	quiet.Methods = []*index.Method{{Name: "helper", Modifiers: index.ModProtected, Body: index.NewBlock()}}
	fast := class("Fast", "", "Greeter")
	fast.Annotations = []index.Annotation{{Name: "Primary"}}
	fast.Methods = []*index.Method{greet("String", index.ModPublic, true)}

	handler := &index.Type{QualifiedName: "p.Handler", Name: "Handler", Package: "p", Kind: index.KindInterface,
		TypeParams: []string{"T"},
		Methods:    []*index.Method{{Name: "handle", Modifiers: index.ModAbstract, Params: []index.Param{{Name: "v", Type: index.Ref("T")}}}}}
	strHandler := class("StringHandler", "")
	strHandler.Interfaces = []index.TypeRef{index.Ref("Handler", index.Ref("String"))}
	strHandler.Methods = []*index.Method{{Name: "handle", Params: []index.Param{{Name: "s", Type: index.Ref("String")}}, Body: index.NewBlock()}}

	final := class("Sealed", "")
	final.Modifiers = index.ModFinal
	final.Methods = []*index.Method{{Name: "run", Body: index.NewBlock()}}

	client := class("Client", "")
	client.Fields = []*index.Field{{Name: "greeter", Type: index.Ref("Greeter")}, {Name: "loud", Type: index.Ref("Loud")}}

	types := []*index.Type{greeter, base, loud, quiet, fast, handler, strHandler, final, client}
	idx.AddFile(&index.File{Path: "p/All.java", Package: "p", InProject: true, Types: types})

	lib := &index.Type{QualifiedName: "lib.LibGreeter", Name: "LibGreeter", Package: "lib", Kind: index.KindClass,
		Interfaces: []index.TypeRef{index.Ref("p.Greeter")},
		Methods:    []*index.Method{greet("String", index.ModPublic, true)}}
	idx.AddFile(&index.File{Path: "lib/LibGreeter.java", Package: "lib", Types: []*index.Type{lib}})

	byName := make(map[string]*index.Type)
	for _, typ := range append(types, lib) {
		byName[typ.Name] = typ
	}
	return &fixture{idx: idx, greeter: greeter, handler: handler, client: client, types: byName}
}

func keys(ms []*index.Method) string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m.Key())
	}
	return strings.Join(out, " ")
}

func TestEligible(t *testing.T) {
	f := newFixture(t)
	r := New(f.idx, nil, nil, Config{})

	ctor := &index.Method{Name: "Loud", Constructor: true, Owner: f.types["Loud"]}
	static := &index.Method{Name: "of", Modifiers: index.ModStatic, Owner: f.types["Loud"]}
	private := &index.Method{Name: "p", Modifiers: index.ModPrivate, Owner: f.types["Loud"]}
	finalM := &index.Method{Name: "f", Modifiers: index.ModFinal, Owner: f.types["Loud"]}

	tests := []struct {
		name string
		m    *index.Method
		want bool
	}{
		{"interface method", f.greeter.Methods[0], true},
		{"overridable class method", f.types["Loud"].Methods[1], true},
		{"constructor", ctor, false},
		{"static", static, false},
		{"private", private, false},
		{"final method", finalM, false},
		{"method of final class", f.types["Sealed"].Methods[0], false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := r.Eligible(tt.m); got != tt.want {
			t.Errorf("Eligible(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestImplementations(t *testing.T) {
	f := newFixture(t)
	want := "p.Base#greet(String) p.Fast#greet(String) p.Loud#greet(String)"

	r := New(f.idx, cache.New(f.idx), nil, Config{})
	if got := keys(r.Implementations(f.greeter.Methods[0])); got != want {
		t.Errorf("Implementations = %s, want %s", got, want)
	}

	withLib := New(f.idx, cache.New(f.idx), nil, Config{IncludeLibrary: true})
	if got := keys(withLib.Implementations(f.greeter.Methods[0])); got != "lib.LibGreeter#greet(String) "+want {
		t.Errorf("Implementations with library = %s", got)
	}

	if got := keys(r.Implementations(f.handler.Methods[0])); got != "p.StringHandler#handle(String)" {
		t.Errorf("generic Implementations = %s", got)
	}

	helper := f.types["Base"].Methods[1]
	if got := keys(r.Implementations(helper)); got != "p.Loud#helper() p.Quiet#helper()" {
		t.Errorf("abstract class method Implementations = %s", got)
	}
}

func TestImplementationsSeeSourceChanges(t *testing.T) {
	f := newFixture(t)
	r := New(f.idx, cache.New(f.idx), nil, Config{})
	m := f.greeter.Methods[0]
	if n := len(r.Implementations(m)); n != 3 {
		t.Fatalf("Implementations = %d, want 3", n)
	}

	extra := class("Extra", "", "Greeter")
	extra.Methods = []*index.Method{greet("String", index.ModPublic, true)}
	f.idx.AddFile(&index.File{Path: "p/Extra.java", Package: "p", InProject: true, Types: []*index.Type{extra}})

	if n := len(r.Implementations(m)); n != 4 {
		t.Errorf("Implementations after edit = %d, want 4", n)
	}
}

func TestResolveNarrowsWithInjectionPoint(t *testing.T) {
	f := newFixture(t)
	c := cache.New(f.idx)
	r := New(f.idx, c, di.New(f.idx, c, di.Config{}), Config{})
	m := f.greeter.Methods[0]

	all := r.Resolve(m, nil)
	if len(all.Targets) != 3 {
		t.Fatalf("Resolve without point = %s", keys(all.Targets))
	}

	ip := &injection.Point{Name: "greeter", ElementType: index.Ref("Greeter"), Field: f.client.Fields[0]}
	if got := keys(r.Resolve(m, ip).Targets); got != "p.Fast#greet(String)" {
		t.Errorf("Resolve with point = %s, want the primary implementation", got)
	}

	// A point whose bean type is unrelated to the declaring type does not
	// narrow: the receiver was derived from the bean, not the bean itself.
	other := &injection.Point{Name: "client", ElementType: index.Ref("Client"), Field: f.client.Fields[0]}
	if got := r.Resolve(m, other); len(got.Targets) != 3 {
		t.Errorf("Resolve with unrelated point = %s", keys(got.Targets))
	}

	// A subtype bean applies.
	sub := &injection.Point{Name: "loud", ElementType: index.Ref("Loud"), Qualifier: "loud", HasQualifier: true, Field: f.client.Fields[1]}
	if got := keys(r.Resolve(m, sub).Targets); got != "p.Loud#greet(String)" {
		t.Errorf("Resolve with subtype point = %s", got)
	}

	if got := r.Resolve(f.types["Sealed"].Methods[0], ip); len(got.Targets) != 0 || got.Reason == "" {
		t.Errorf("Resolve on ineligible method = %+v", got)
	}
}
