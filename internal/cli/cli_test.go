package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/imyousuf/CallEagle/internal/config"
	"github.com/imyousuf/CallEagle/internal/graph"
)

const checkoutSrc = `package shop;

public class Checkout {
    private Cart cart;

    public void pay() {
        cart.total();
        audit();
    }

    private void audit() {}
}

class Cart {
    public int total() { return 0; }
}
`

// run executes the command tree with args and returns everything it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// newProject creates a project directory with a home of its own and makes
// it the working directory.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newCheckoutProject initializes a project holding checkoutSrc.
func newCheckoutProject(t *testing.T) string {
	t.Helper()
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "src", "Checkout.java"), checkoutSrc)
	if out, err := run(t, "init", "--name", "shop", "--root", "src"); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	return dir
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "calleagle version "+Version) {
		t.Errorf("version output = %q", out)
	}
}

func TestInitCmd(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "service", "src", "main", "java", "App.java"), "class App {}\n")

	out, err := run(t, "init", "--name", "demo", "--library", "/opt/libs/src")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	configPath := filepath.Join(dir, ".calleagle.yaml")
	if !strings.Contains(out, "Created "+configPath) {
		t.Errorf("output missing created path:\n%s", out)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project.Name != "demo" {
		t.Errorf("Name = %q, want demo", cfg.Project.Name)
	}
	if want := []string{"service/src/main/java"}; !reflect.DeepEqual(cfg.Project.Roots, want) {
		t.Errorf("Roots = %v, want %v", cfg.Project.Roots, want)
	}
	if want := []string{"/opt/libs/src"}; !reflect.DeepEqual(cfg.Project.Libraries, want) {
		t.Errorf("Libraries = %v, want %v", cfg.Project.Libraries, want)
	}

	entry, ok := config.LookupProject(dir)
	if !ok || entry.Name != "demo" || entry.ConfigFile != configPath {
		t.Errorf("LookupProject = %+v, %v", entry, ok)
	}

	if _, err := run(t, "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if _, err := run(t, "init", "--force", "--name", "again"); err != nil {
		t.Errorf("init --force: %v", err)
	}
}

func TestGraphCmd(t *testing.T) {
	newCheckoutProject(t)

	out, err := run(t, "graph", "Checkout.pay", "--plain")
	if err != nil {
		t.Fatalf("graph: %v\n%s", err, out)
	}
	for _, want := range []string{"Checkout.pay()", "Cart.total()", "Checkout.audit()"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "graph", "Checkout.pay", "-f", "json")
	if err != nil {
		t.Fatalf("graph json: %v", err)
	}
	var doc struct {
		RootID string       `json:"root_id"`
		Nodes  []graph.Node `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if doc.RootID != "shop.Checkout#pay()" || len(doc.Nodes) != 3 {
		t.Errorf("root = %q with %d nodes; want shop.Checkout#pay() with 3", doc.RootID, len(doc.Nodes))
	}
}

func TestGraphCmdOutputFile(t *testing.T) {
	dir := newCheckoutProject(t)
	path := filepath.Join(dir, "pay.jsonl")

	out, err := run(t, "graph", "Checkout.pay", "-f", "jsonl", "-o", path)
	if err != nil {
		t.Fatalf("graph: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Wrote 3 nodes and 2 edges to "+path) {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Split(strings.TrimSpace(string(data)), "\n")); n != 3 {
		t.Errorf("jsonl lines = %d, want 3", n)
	}
}

func TestGraphCmdErrors(t *testing.T) {
	newCheckoutProject(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown format", []string{"graph", "Checkout.pay", "-f", "xml"}},
		{"unknown root", []string{"graph", "Checkout.missing"}},
		{"invalid depth", []string{"graph", "Checkout.pay", "--project-depth", "0"}},
		{"missing root arg", []string{"graph"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v should fail", tt.args)
			}
		})
	}
}

func TestTargetsCmd(t *testing.T) {
	newCheckoutProject(t)

	out, err := run(t, "targets", "Checkout.pay", "shop.Checkout#pay()", "--json")
	if err != nil {
		t.Fatalf("targets: %v\n%s", err, out)
	}
	var nodes []graph.Node
	if err := json.Unmarshal([]byte(out), &nodes); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if len(nodes) != 2 {
		t.Errorf("targets = %d, want 2", len(nodes))
	}

	out, err = run(t, "targets", "Checkout.pay", "Cart.total")
	if err != nil {
		t.Fatalf("targets leaf: %v", err)
	}
	if !strings.Contains(out, "calls nothing") {
		t.Errorf("leaf output = %q", out)
	}

	if _, err := run(t, "targets", "Checkout.pay", "Nowhere.none"); err == nil {
		t.Error("node outside the graph should fail")
	}
}

func TestQueryCmd(t *testing.T) {
	newCheckoutProject(t)

	out, err := run(t, "query", "methods", "total")
	if err != nil {
		t.Fatalf("query methods: %v", err)
	}
	if !strings.Contains(out, "shop.Cart#total()") || !strings.Contains(out, "project") {
		t.Errorf("methods output:\n%s", out)
	}

	out, err = run(t, "query", "methods", "nothing")
	if err != nil || !strings.Contains(out, "No methods matching") {
		t.Errorf("no match = %q, %v", out, err)
	}

	if _, err := run(t, "query", "implementations", "shop.Missing"); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestStatusCmd(t *testing.T) {
	newCheckoutProject(t)

	out, err := run(t, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"Workspace Status", "Project:             shop", "Files:               1", "Methods:"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "status", "--projects")
	if err != nil || !strings.Contains(out, "shop") {
		t.Errorf("status --projects = %q, %v", out, err)
	}
}

func TestConfigCmd(t *testing.T) {
	newCheckoutProject(t)

	out, err := run(t, "config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	for _, want := range []string{"CallEagle Configuration", "shop", "Project max depth"} {
		if !strings.Contains(out, want) {
			t.Errorf("config view missing %q:\n%s", want, out)
		}
	}
}

func TestDetectSourceRoots(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{"none", []string{"README.md"}, []string{"."}},
		{"single module", []string{"src/main/java/App.java"}, []string{"src/main/java"}},
		{
			"multi module",
			[]string{"api/src/main/java/A.java", "core/src/main/java/B.java", "core/src/test/java/BTest.java"},
			[]string{"api/src/main/java", "core/src/main/java"},
		},
		{"build output skipped", []string{"target/src/main/java/Gen.java"}, []string{"."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				writeFile(t, filepath.Join(dir, filepath.FromSlash(f)), "")
			}
			if got := detectSourceRoots(dir); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("detectSourceRoots = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,,\nc ")
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("splitList = %v, want %v", got, want)
	}
	if got := splitList(""); got != nil {
		t.Errorf("splitList(\"\") = %v, want nil", got)
	}
}

func TestCompletionTarget(t *testing.T) {
	tests := []struct {
		shell string
		root  bool
		want  string
	}{
		{"bash", true, "/etc/bash_completion.d/calleagle"},
		{"bash", false, "/home/u/.bash_completion.d/calleagle"},
		{"zsh", false, "/home/u/.zsh/completions/_calleagle"},
		{"fish", false, "/home/u/.config/fish/completions/calleagle.fish"},
	}
	for _, tt := range tests {
		got, _, err := completionTarget(tt.shell, "/home/u", tt.root)
		if err != nil || got != tt.want {
			t.Errorf("completionTarget(%s, %v) = %q, %v; want %q", tt.shell, tt.root, got, err, tt.want)
		}
	}
	if _, _, err := completionTarget("tcsh", "/home/u", false); err == nil {
		t.Error("unsupported shell should fail")
	}
}

func TestCompletionCmd(t *testing.T) {
	out, err := run(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion bash: %v", err)
	}
	if !strings.Contains(out, "calleagle") {
		t.Error("bash completion should mention the binary")
	}
}
