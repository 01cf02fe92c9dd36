package watcher

import (
	"io/fs"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ruleSet is one compiled pattern list and the directory it is relative to.
// An empty base applies the patterns to paths relative to any root.
type ruleSet struct {
	base    string
	matcher *ignore.GitIgnore
}

// Ignore decides which paths the watcher skips, combining configured
// exclude patterns with every .gitignore found below the roots.
type Ignore struct {
	roots []string
	sets  []ruleSet
}

// NewIgnore compiles patterns (gitignore syntax) and loads .gitignore files
// below roots.
func NewIgnore(roots, patterns []string) *Ignore {
	m := &Ignore{roots: roots}
	if len(patterns) > 0 {
		m.sets = append(m.sets, ruleSet{matcher: ignore.CompileIgnoreLines(patterns...)})
	}
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && (d.Name() == ".git" || d.Name() == "node_modules") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Name() != ".gitignore" {
				return nil
			}
			gi, err := ignore.CompileIgnoreFile(path)
			if err == nil {
				m.sets = append(m.sets, ruleSet{base: filepath.Dir(path), matcher: gi})
			}
			return nil
		})
	}
	return m
}

// Match reports whether path is ignored.
func (m *Ignore) Match(path string) bool {
	if m == nil {
		return false
	}
	for _, s := range m.sets {
		if s.base != "" {
			if rel, ok := relative(s.base, path); ok && s.matcher.MatchesPath(rel) {
				return true
			}
			continue
		}
		for _, root := range m.roots {
			if rel, ok := relative(root, path); ok && s.matcher.MatchesPath(rel) {
				return true
			}
		}
		if len(m.roots) == 0 && s.matcher.MatchesPath(filepath.ToSlash(path)) {
			return true
		}
	}
	return false
}

// MatchDir reports whether dir or everything inside it is ignored, so
// patterns like "**/target/**" prune the directory itself.
func (m *Ignore) MatchDir(dir string) bool {
	return m.Match(dir) || m.Match(filepath.Join(dir, "x"))
}

func relative(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
