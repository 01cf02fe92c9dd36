package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

const registryFileName = ".calleagle.conf"

// ProjectEntry represents a registered project in the global registry.
type ProjectEntry struct {
	Name       string `yaml:"name"`
	Root       string `yaml:"root"`
	ConfigFile string `yaml:"config_file"`
}

type registryFile struct {
	Projects []ProjectEntry `yaml:"projects"`
}

// RegistryPath returns the path to the global project registry file (~/.calleagle.conf).
func RegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, registryFileName)
}

// RegisterProject adds or updates a project entry in the global registry.
// If name is empty, it defaults to filepath.Base(root).
func RegisterProject(name, root, configFile string) error {
	if name == "" {
		name = filepath.Base(root)
	}

	entries := ListProjects()
	found := false
	for i, entry := range entries {
		if entry.Root == root {
			entries[i].Name = name
			entries[i].ConfigFile = configFile
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, ProjectEntry{Name: name, Root: root, ConfigFile: configFile})
	}
	return writeRegistry(entries)
}

// LookupProject finds the entry whose Root is path or its nearest ancestor.
func LookupProject(path string) (*ProjectEntry, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	var best *ProjectEntry
	for _, entry := range ListProjects() {
		entryRoot, err := filepath.Abs(entry.Root)
		if err != nil {
			entryRoot = entry.Root
		}
		if absPath != entryRoot && !strings.HasPrefix(absPath, entryRoot+string(filepath.Separator)) {
			continue
		}
		if best == nil || len(entryRoot) > len(best.Root) {
			e := entry
			e.Root = entryRoot
			best = &e
		}
	}
	return best, best != nil
}

// ListProjects returns all registered projects from the global registry,
// ordered by name.
func ListProjects() []ProjectEntry {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}

	data, err := os.ReadFile(regPath)
	if err != nil {
		return nil
	}

	var reg registryFile
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil
	}
	sort.SliceStable(reg.Projects, func(i, j int) bool { return reg.Projects[i].Name < reg.Projects[j].Name })
	return reg.Projects
}

func writeRegistry(entries []ProjectEntry) error {
	regPath := RegistryPath()
	if regPath == "" {
		return nil
	}

	reg := registryFile{Projects: entries}
	data, err := yaml.Marshal(&reg)
	if err != nil {
		return err
	}

	return os.WriteFile(regPath, data, 0644)
}
