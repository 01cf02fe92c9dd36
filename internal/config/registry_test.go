package config

import (
	"path/filepath"
	"testing"
)

func TestRegistryRoundTrip(t *testing.T) {
	// Use a temp dir as HOME so we don't modify the real registry.
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	regPath := RegistryPath()
	wantPath := filepath.Join(tmpHome, registryFileName)
	if regPath != wantPath {
		t.Errorf("RegistryPath() = %q, want %q", regPath, wantPath)
	}

	if entries := ListProjects(); len(entries) != 0 {
		t.Errorf("ListProjects() = %d entries, want 0", len(entries))
	}

	if err := RegisterProject("orders", "/home/user/orders", "/home/user/orders/.calleagle.yaml"); err != nil {
		t.Fatalf("RegisterProject() error: %v", err)
	}
	if err := RegisterProject("billing", "/home/user/billing", "/home/user/billing/.calleagle.yaml"); err != nil {
		t.Fatalf("RegisterProject() error: %v", err)
	}

	entries := ListProjects()
	if len(entries) != 2 {
		t.Fatalf("ListProjects() = %d entries, want 2", len(entries))
	}
	if entries[0].Name != "billing" || entries[1].Name != "orders" {
		t.Errorf("ListProjects() order = %q, %q; want sorted by name", entries[0].Name, entries[1].Name)
	}
	if entries[1].ConfigFile != "/home/user/orders/.calleagle.yaml" {
		t.Errorf("ConfigFile = %q", entries[1].ConfigFile)
	}

	// Update existing project (same root, new name).
	if err := RegisterProject("orders-v2", "/home/user/orders", "/home/user/orders/.calleagle.yaml"); err != nil {
		t.Fatalf("RegisterProject() update error: %v", err)
	}
	entries = ListProjects()
	if len(entries) != 2 {
		t.Fatalf("ListProjects() = %d entries after update, want 2", len(entries))
	}
	found := false
	for _, e := range entries {
		if e.Root == "/home/user/orders" {
			if e.Name != "orders-v2" {
				t.Errorf("updated Name = %q, want %q", e.Name, "orders-v2")
			}
			found = true
		}
	}
	if !found {
		t.Error("updated entry not found")
	}
}

func TestRegisterProjectDefaultName(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := RegisterProject("", "/home/user/my-project", ""); err != nil {
		t.Fatalf("RegisterProject() error: %v", err)
	}
	entries := ListProjects()
	if len(entries) != 1 {
		t.Fatalf("ListProjects() = %d entries, want 1", len(entries))
	}
	if entries[0].Name != "my-project" {
		t.Errorf("Name = %q, want %q", entries[0].Name, "my-project")
	}
}

func TestLookupProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := RegisterProject("mono", "/home/user/mono", ""); err != nil {
		t.Fatal(err)
	}
	if err := RegisterProject("payments", "/home/user/mono/payments", ""); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/home/user/mono", "mono"},
		{"/home/user/mono/shared/util", "mono"},
		{"/home/user/mono/payments/src", "payments"},
		{"/home/user/mono-other", ""},
		{"/home/user/other", ""},
	}
	for _, tt := range tests {
		entry, ok := LookupProject(tt.path)
		if tt.want == "" {
			if ok {
				t.Errorf("LookupProject(%q) = %q, want no match", tt.path, entry.Name)
			}
			continue
		}
		if !ok || entry.Name != tt.want {
			t.Errorf("LookupProject(%q) = %v, %v; want %q", tt.path, entry, ok, tt.want)
		}
	}
}
