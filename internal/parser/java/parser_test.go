package java

import (
	"testing"

	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/parser"
)

const testSource = `package com.example.demo;

import java.util.List;
import java.util.function.*;
import static java.util.Objects.requireNonNull;

public interface Greeter {
    String greet(String name);

    default String greetAll(List<String> names) {
        return names.stream().map(this::greet).findFirst().orElse("");
    }
}

@Service("greetings")
public class GreetingService implements Greeter {

    @Autowired
    @Qualifier(value = "primaryRepo")
    private GreetingRepository repo;

    private final String prefix;

    public GreetingService(String prefix) {
        this.prefix = requireNonNull(prefix);
    }

    @Override
    public String greet(String name) {
        String message = prefix + " " + name;
        repo.save(new Greeting(message));
        return message;
    }

    public void greetLater(List<String> names) {
        for (String n : names) {
            Runnable r = new Runnable() {
                @Override
                public void run() {
                    greet(n);
                }
            };
            r.run();
        }
        names.forEach(each -> greet(each));
    }
}

enum Status {
    OK,
    ERROR
}

record Greeting(String text) {}
`

func parse(t *testing.T) *index.File {
	t.Helper()
	f, err := NewParser().ParseFile("demo/GreetingService.java", []byte(testSource))
	if err != nil {
		t.Fatalf("ParseFile returned error: %v", err)
	}
	return f
}

func typeByKey(f *index.File, key string) *index.Type {
	for _, t := range f.Types {
		if t.Key() == key {
			return t
		}
	}
	return nil
}

func methodNamed(t *index.Type, name string) *index.Method {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func TestParserContract(t *testing.T) {
	p := NewParser()
	if p.Language() != parser.LangJava {
		t.Errorf("Language = %q, want %q", p.Language(), parser.LangJava)
	}
	reg := parser.NewRegistry()
	reg.Register(p)
	if _, ok := reg.ForPath("src/Main.JAVA"); !ok {
		t.Error("registry should resolve .java paths case-insensitively")
	}
	if _, ok := reg.ForPath("pom.xml"); ok {
		t.Error("registry should not resolve xml files")
	}
}

func TestParseFileDeclarations(t *testing.T) {
	f := parse(t)

	if f.Package != "com.example.demo" {
		t.Errorf("Package = %q, want com.example.demo", f.Package)
	}
	wantImports := []string{"java.util.List", "java.util.function.*"}
	if len(f.Imports) != len(wantImports) {
		t.Fatalf("Imports = %v, want %v", f.Imports, wantImports)
	}
	for i, imp := range wantImports {
		if f.Imports[i] != imp {
			t.Errorf("Imports[%d] = %q, want %q", i, f.Imports[i], imp)
		}
	}

	greeter := typeByKey(f, "com.example.demo.Greeter")
	if greeter == nil {
		t.Fatal("Greeter not found")
	}
	if greeter.Kind != index.KindInterface {
		t.Errorf("Greeter kind = %q", greeter.Kind)
	}
	if m := methodNamed(greeter, "greet"); m == nil || !m.IsAbstract() {
		t.Error("Greeter.greet should be abstract")
	}
	if m := methodNamed(greeter, "greetAll"); m == nil || m.IsAbstract() || !m.Modifiers.Has(index.ModDefault) {
		t.Error("Greeter.greetAll should be a default method with a body")
	}

	svc := typeByKey(f, "com.example.demo.GreetingService")
	if svc == nil {
		t.Fatal("GreetingService not found")
	}
	if len(svc.Interfaces) != 1 || svc.Interfaces[0].Name != "Greeter" {
		t.Errorf("Interfaces = %v, want [Greeter]", svc.Interfaces)
	}
	if len(svc.Annotations) != 1 || svc.Annotations[0].Name != "Service" {
		t.Fatalf("Annotations = %v", svc.Annotations)
	}
	if v, _ := svc.Annotations[0].Value("value"); v != "greetings" {
		t.Errorf("@Service value = %q, want greetings", v)
	}

	if len(svc.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(svc.Fields))
	}
	repo := svc.Fields[0]
	if repo.Name != "repo" || repo.Type.Name != "GreetingRepository" || !repo.Modifiers.Has(index.ModPrivate) {
		t.Errorf("repo field = %+v", repo)
	}
	if len(repo.Annotations) != 2 {
		t.Fatalf("repo annotations = %v", repo.Annotations)
	}
	if v, _ := repo.Annotations[1].Value("value"); v != "primaryRepo" {
		t.Errorf("@Qualifier value = %q, want primaryRepo", v)
	}
	if !svc.Fields[1].Modifiers.Has(index.ModFinal) {
		t.Error("prefix should be final")
	}

	ctor := methodNamed(svc, "GreetingService")
	if ctor == nil || !ctor.Constructor {
		t.Fatal("constructor not found")
	}
	if got := string(ctor.Key()); got != "com.example.demo.GreetingService#GreetingService(String)" {
		t.Errorf("constructor key = %q", got)
	}

	greetLater := methodNamed(svc, "greetLater")
	if greetLater == nil || len(greetLater.Params) != 1 {
		t.Fatal("greetLater not found")
	}
	pt := greetLater.Params[0].Type
	if pt.Name != "List" || len(pt.Args) != 1 || pt.Args[0].Name != "String" {
		t.Errorf("greetLater param type = %s, want List<String>", pt)
	}

	status := typeByKey(f, "com.example.demo.Status")
	if status == nil || status.Kind != index.KindEnum || len(status.Fields) != 2 {
		t.Error("Status enum should declare two constants")
	}

	rec := typeByKey(f, "com.example.demo.Greeting")
	if rec == nil || rec.Kind != index.KindRecord {
		t.Fatal("Greeting record not found")
	}
	if m := methodNamed(rec, "text"); m == nil || m.IsAbstract() {
		t.Error("record accessor text() should be synthesized")
	}
}

func TestParseFileAnonymousTypes(t *testing.T) {
	f := parse(t)

	var anon *index.Type
	for _, typ := range f.Types {
		if typ.QualifiedName == "" {
			anon = typ
		}
	}
	if anon == nil {
		t.Fatal("anonymous Runnable not recorded")
	}
	if anon.SuperClass.Name != "Runnable" {
		t.Errorf("anonymous supertype = %q, want Runnable", anon.SuperClass.Name)
	}
	if anon.Outer != "com.example.demo.GreetingService" {
		t.Errorf("anonymous outer = %q", anon.Outer)
	}
	if methodNamed(anon, "run") == nil {
		t.Error("anonymous run() not recorded")
	}
}

func TestParseFileBodies(t *testing.T) {
	f := parse(t)
	svc := typeByKey(f, "com.example.demo.GreetingService")
	greet := methodNamed(svc, "greet")
	if greet == nil || greet.Body == nil {
		t.Fatal("greet body missing")
	}

	stmts := greet.Body.Stmts
	if len(stmts) != 3 {
		t.Fatalf("greet has %d statements, want 3", len(stmts))
	}
	if stmts[0].Kind != index.StmtLocal || stmts[0].Name != "message" || stmts[0].Type.Name != "String" {
		t.Errorf("stmt 0 = %+v, want local message", stmts[0])
	}
	save := stmts[1].Expr
	if save == nil || save.Kind != index.ExprCall || save.Name != "save" {
		t.Fatalf("stmt 1 = %+v, want repo.save call", save)
	}
	if save.X == nil || save.X.Kind != index.ExprIdent || save.X.Name != "repo" {
		t.Errorf("save receiver = %+v", save.X)
	}
	if len(save.Args) != 1 || save.Args[0].Kind != index.ExprNew || save.Args[0].Type.Name != "Greeting" {
		t.Errorf("save args = %+v", save.Args)
	}
	if save.Line != 31 {
		t.Errorf("save line = %d, want 31", save.Line)
	}
	if stmts[2].Kind != index.StmtReturn {
		t.Errorf("stmt 2 kind = %d, want return", stmts[2].Kind)
	}

	greetLater := methodNamed(svc, "greetLater")
	var calls []string
	var lambdas int
	index.WalkStmts(greetLater.Body.Stmts, index.Visitor{Expr: func(e *index.Expr) bool {
		switch e.Kind {
		case index.ExprCall:
			calls = append(calls, e.Name)
		case index.ExprLambda:
			lambdas++
			if len(e.Params) != 1 || e.Params[0] != "each" {
				t.Errorf("lambda params = %v", e.Params)
			}
		}
		return true
	}})
	want := []string{"run", "forEach", "greet"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
	if lambdas != 1 {
		t.Errorf("lambdas = %d, want 1", lambdas)
	}

	greeter := typeByKey(f, "com.example.demo.Greeter")
	var ref *index.Expr
	index.WalkStmts(methodNamed(greeter, "greetAll").Body.Stmts, index.Visitor{Expr: func(e *index.Expr) bool {
		if e.Kind == index.ExprMethodRef {
			ref = e
		}
		return true
	}})
	if ref == nil || ref.Name != "greet" || ref.X == nil || ref.X.Kind != index.ExprThis {
		t.Errorf("method reference = %+v, want this::greet", ref)
	}
}
