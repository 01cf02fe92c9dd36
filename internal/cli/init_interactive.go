package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/config"
)

// sourceRootSuffix marks Maven and Gradle main source directories.
var sourceRootSuffix = filepath.Join("src", "main", "java")

// skipDetectDirs are never searched for source roots.
var skipDetectDirs = map[string]bool{
	".git": true, "node_modules": true, "target": true, "build": true, "out": true, "dist": true,
}

// detectSourceRoots walks rootDir (depth-limited to 5 levels) and returns
// the src/main/java directories below it relative to rootDir. It returns
// "." when there are none.
func detectSourceRoots(rootDir string) []string {
	var found []string
	rootDepth := strings.Count(filepath.ToSlash(rootDir), "/")
	_ = filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != rootDir && (skipDetectDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
			return fs.SkipDir
		}
		if strings.HasSuffix(path, string(filepath.Separator)+sourceRootSuffix) {
			if rel, err := filepath.Rel(rootDir, path); err == nil {
				found = append(found, filepath.ToSlash(rel))
			}
			return fs.SkipDir
		}
		if strings.Count(filepath.ToSlash(path), "/")-rootDepth >= 5 {
			return fs.SkipDir
		}
		return nil
	})
	if len(found) == 0 {
		return []string{"."}
	}
	sort.Strings(found)
	return found
}

// splitList parses a comma or newline separated list.
func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// runInteractiveInit runs the setup wizard, updating cfg in place. It
// reports false when the user cancels.
func runInteractiveInit(cmd *cobra.Command, cwd string, cfg *config.Config) (bool, error) {
	var (
		projectName = cfg.Project.Name
		roots       = cfg.Project.Roots
		libraries   = strings.Join(cfg.Project.Libraries, ", ")
		mappers     = strings.Join(cfg.Project.Mappers, ", ")
	)

	rootOptions := make([]huh.Option[string], 0, len(roots)+1)
	seen := make(map[string]bool)
	for _, r := range append(detectSourceRoots(cwd), roots...) {
		if seen[r] {
			continue
		}
		seen[r] = true
		rootOptions = append(rootOptions, huh.NewOption(r, r).Selected(true))
	}

	project := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&projectName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("project name cannot be empty")
					}
					return nil
				}),
			huh.NewMultiSelect[string]().
				Title("Project source roots").
				Options(rootOptions...).
				Value(&roots).
				Validate(func(s []string) error {
					if len(s) == 0 {
						return fmt.Errorf("select at least one source root")
					}
					return nil
				}),
		).Title("Project Setup"),

		huh.NewGroup(
			huh.NewInput().
				Title("Library source roots").
				Description("Comma-separated directories of unpacked library sources").
				Value(&libraries),
			huh.NewInput().
				Title("Mapper directories").
				Description("Comma-separated directories with mapping XML (empty: project roots)").
				Value(&mappers),
		).Title("Sources"),
	).WithTheme(huh.ThemeCharm())

	if err := project.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, fmt.Errorf("interactive init: %w", err)
	}

	cfg.Project.Name = strings.TrimSpace(projectName)
	cfg.Project.Roots = roots
	cfg.Project.Libraries = splitList(libraries)
	cfg.Project.Mappers = splitList(mappers)

	form, values := traversalForm(cfg)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, fmt.Errorf("interactive init: %w", err)
	}
	if !values.confirm {
		return false, nil
	}
	if err := values.apply(cfg); err != nil {
		return false, err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Roots: %s\n", strings.Join(cfg.Project.Roots, ", "))
	return true, nil
}
