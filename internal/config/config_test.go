package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// isolate points HOME at a temp dir so the project registry is empty, and
// clears any config file set by another test.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Set("config_file", "")
	t.Cleanup(func() { viper.Set("config_file", "") })
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)

	configContent := `project:
  name: "orders"
  roots:
    - services/orders
  libraries:
    - /opt/src/spring-data
traversal:
  project_max_depth: 8
  third_party_max_depth: 2
  filter_unused_params: true
filters:
  exclude:
    - "class:.*Logger"
    - "package:org\\.slf4j.*"
  skip_accessors: false
di:
  match_by_name: true
watch:
  exclude:
    - "**/generated/**"
`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile+".yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Project.Name != "orders" {
		t.Errorf("Project.Name = %q, want %q", cfg.Project.Name, "orders")
	}
	if len(cfg.Project.Roots) != 1 || cfg.Project.Roots[0] != "services/orders" {
		t.Errorf("Project.Roots = %v", cfg.Project.Roots)
	}
	if len(cfg.Project.Libraries) != 1 || cfg.Project.Libraries[0] != "/opt/src/spring-data" {
		t.Errorf("Project.Libraries = %v", cfg.Project.Libraries)
	}
	if cfg.Traversal.ProjectMaxDepth != 8 || cfg.Traversal.ThirdPartyMaxDepth != 2 {
		t.Errorf("depths = %d/%d, want 8/2", cfg.Traversal.ProjectMaxDepth, cfg.Traversal.ThirdPartyMaxDepth)
	}
	if !cfg.Traversal.ExpandImplementations {
		t.Error("ExpandImplementations should keep its default")
	}
	if !cfg.Traversal.FilterUnusedParams {
		t.Error("FilterUnusedParams = false, want true")
	}
	if len(cfg.Filters.Exclude) != 2 || cfg.Filters.Exclude[1] != `package:org\.slf4j.*` {
		t.Errorf("Filters.Exclude = %v", cfg.Filters.Exclude)
	}
	if cfg.Filters.SkipAccessors || !cfg.Filters.SkipToString {
		t.Errorf("Filters = %+v", cfg.Filters)
	}
	if !cfg.DI.MatchByName {
		t.Error("DI.MatchByName = false, want true")
	}
	if len(cfg.Watch.Exclude) != 1 {
		t.Errorf("Watch.Exclude = %v", cfg.Watch.Exclude)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	wantBase, _ := filepath.EvalSymlinks(dir)
	gotBase, _ := filepath.EvalSymlinks(cfg.BaseDir())
	if gotBase != wantBase {
		t.Errorf("BaseDir() = %q, want %q", gotBase, wantBase)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.File() != "" {
		t.Errorf("File() = %q, want empty", cfg.File())
	}
	if len(cfg.Project.Roots) != 1 || cfg.Project.Roots[0] != "." {
		t.Errorf("Project.Roots = %v, want [.]", cfg.Project.Roots)
	}
	if cfg.Traversal.ProjectMaxDepth != 5 || cfg.Traversal.ThirdPartyMaxDepth != 1 {
		t.Errorf("depths = %d/%d, want 5/1", cfg.Traversal.ProjectMaxDepth, cfg.Traversal.ThirdPartyMaxDepth)
	}
	if !cfg.Filters.SkipAccessors || !cfg.Filters.SkipToString || !cfg.Filters.SkipEqualsHashCode {
		t.Errorf("Filters = %+v; want all member filters on", cfg.Filters)
	}
	if cfg.DI.MatchByName || cfg.Traversal.IncludeLibraryImplementations {
		t.Error("opt-in settings should default off")
	}
	if cfg.Cache.Dir != filepath.Join(".calleagle", "facts") {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
	if len(cfg.Watch.Exclude) != 4 {
		t.Errorf("Watch.Exclude = %v", cfg.Watch.Exclude)
	}

	def := Default()
	if def.Traversal != cfg.Traversal {
		t.Errorf("Default().Traversal = %+v, want %+v", def.Traversal, cfg.Traversal)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CALLEAGLE_TRAVERSAL_PROJECT_MAX_DEPTH", "3")
	t.Setenv("CALLEAGLE_DI_MATCH_BY_NAME", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Traversal.ProjectMaxDepth != 3 {
		t.Errorf("ProjectMaxDepth = %d, want 3", cfg.Traversal.ProjectMaxDepth)
	}
	if !cfg.DI.MatchByName {
		t.Error("MatchByName = false, want true")
	}
}

func TestLoadExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("project:\n  name: custom\n"), 0644); err != nil {
		t.Fatal(err)
	}
	viper.Set("config_file", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Project.Name != "custom" || cfg.File() != path {
		t.Errorf("Load() = %q from %q", cfg.Project.Name, cfg.File())
	}
	if cfg.BaseDir() != filepath.Dir(path) {
		t.Errorf("BaseDir() = %q, want %q", cfg.BaseDir(), filepath.Dir(path))
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ".calleagle.yaml"), []byte("project: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoadFromRegisteredProject(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	configFile := filepath.Join(root, ".calleagle.yaml")
	if err := os.WriteFile(configFile, []byte("project:\n  name: registered\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := RegisterProject("", root, configFile); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "src", "main")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Project.Name != "registered" {
		t.Errorf("Project.Name = %q, want %q", cfg.Project.Name, "registered")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"no roots", func(c *Config) { c.Project.Roots = nil }, "at least one project root"},
		{"blank root", func(c *Config) { c.Project.Roots = []string{" "} }, "project root 0"},
		{"blank library", func(c *Config) { c.Project.Libraries = []string{""} }, "project library 0"},
		{"zero project depth", func(c *Config) { c.Traversal.ProjectMaxDepth = 0 }, "project max depth"},
		{"negative third-party depth", func(c *Config) { c.Traversal.ThirdPartyMaxDepth = -1 }, "third-party max depth"},
		{"zero third-party depth", func(c *Config) { c.Traversal.ThirdPartyMaxDepth = 0 }, ""},
		{"bad exclusion", func(c *Config) { c.Filters.Exclude = []string{"class:(["} }, "traversal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCallGraphConversion(t *testing.T) {
	cfg := Default()
	cfg.Traversal.ProjectMaxDepth = 7
	cfg.Traversal.IncludeLibraryImplementations = true
	cfg.Filters.Exclude = []string{"method:log.*"}
	cfg.Filters.SkipToString = false
	cfg.DI.MatchByName = true

	cg := cfg.CallGraph()
	if cg.ProjectMaxDepth != 7 || cg.ThirdPartyMaxDepth != 1 {
		t.Errorf("depths = %d/%d", cg.ProjectMaxDepth, cg.ThirdPartyMaxDepth)
	}
	if !cg.IncludeLibraryImplementations || !cg.ExpandImplementations || !cg.MatchByName {
		t.Errorf("switches = %+v", cg)
	}
	if cg.Filters.SkipToString || !cg.Filters.SkipAccessors {
		t.Errorf("Filters = %+v", cg.Filters)
	}
	cfg.Filters.Exclude[0] = "changed"
	if cg.Exclude[0] != "method:log.*" {
		t.Error("CallGraph() should copy exclusion patterns")
	}
}

func TestWorkspaceConversion(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".calleagle.yaml")
	if err := os.WriteFile(path, []byte("project:\n  roots: [app, /abs/app2]\n  libraries: [libs]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	viper.Set("config_file", path)
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	base := filepath.Dir(path)
	ws := cfg.Workspace()
	if len(ws.Roots) != 2 || ws.Roots[0] != filepath.Join(base, "app") || ws.Roots[1] != "/abs/app2" {
		t.Errorf("Roots = %v", ws.Roots)
	}
	if len(ws.Libraries) != 1 || ws.Libraries[0] != filepath.Join(base, "libs") {
		t.Errorf("Libraries = %v", ws.Libraries)
	}
	if ws.Mappers != nil {
		t.Errorf("Mappers = %v, want nil", ws.Mappers)
	}
	if ws.CacheDir != filepath.Join(base, ".calleagle", "facts") {
		t.Errorf("CacheDir = %q", ws.CacheDir)
	}
	if len(ws.Exclude) != 4 {
		t.Errorf("Exclude = %v", ws.Exclude)
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Project.Name = "round-trip"
	cfg.Project.Roots = []string{"src"}
	cfg.Traversal.ThirdPartyMaxDepth = 0
	cfg.Filters.Exclude = []string{"class:.*Test"}

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := WriteConfig(cfg, path); err != nil {
		t.Fatalf("WriteConfig() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# CallEagle configuration\n") {
		t.Errorf("missing header: %q", string(data))
	}
	if !strings.Contains(string(data), "third_party_max_depth: 0") {
		t.Errorf("YAML keys should use snake_case:\n%s", data)
	}

	viper.Set("config_file", path)
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Project.Name != "round-trip" || got.Traversal.ThirdPartyMaxDepth != 0 || got.Filters.Exclude[0] != "class:.*Test" {
		t.Errorf("round trip = %+v", got)
	}
}
