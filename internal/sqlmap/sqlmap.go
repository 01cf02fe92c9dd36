// Package sqlmap indexes MyBatis mapping statements so data-access methods
// can be linked to the SQL they run. Statements come from mapper XML files
// (<mapper namespace="...">) and from statement annotations on mapper
// methods.
//
// The XML index is rebuilt lazily: Invalidate marks a file dirty and the next
// lookup reparses only what changed.
package sqlmap

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/imyousuf/CallEagle/internal/annotations"
	"github.com/imyousuf/CallEagle/internal/index"
)

// Statement is one mapped SQL statement.
type Statement struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	SQL       string `json:"sql"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Key returns namespace#id.
func (s Statement) Key() string { return s.Namespace + "#" + s.ID }

// skipDirs are never scanned for mapper files.
var skipDirs = map[string]bool{
	".git": true, "target": true, "build": true, "node_modules": true, ".calleagle": true,
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the function used for verbose output.
func WithLogger(log func(format string, args ...any)) Option {
	return func(x *Index) {
		if log != nil {
			x.log = log
		}
	}
}

// Index maps namespace#id to statements. It is safe for concurrent use.
type Index struct {
	dirs []string
	log  func(format string, args ...any)

	mu      sync.RWMutex
	scanned bool
	dirty   map[string]bool
	files   map[string][]Statement
	byKey   map[string]Statement
	spaces  map[string]bool
}

// New creates an index over the mapper files found below dirs. Nothing is
// read until the first lookup.
func New(dirs []string, opts ...Option) *Index {
	x := &Index{
		dirs:  append([]string(nil), dirs...),
		log:   func(string, ...any) {},
		dirty: make(map[string]bool),
		files: make(map[string][]Statement),
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Invalidate marks path as changed. Non-XML paths are ignored.
func (x *Index) Invalidate(path string) {
	if !IsMappingFile(path) {
		return
	}
	x.mu.Lock()
	x.dirty[path] = true
	x.mu.Unlock()
}

// InvalidateAll forces a full rescan on the next lookup.
func (x *Index) InvalidateAll() {
	x.mu.Lock()
	x.scanned = false
	x.mu.Unlock()
}

// IsMappingFile reports whether path may hold mapper XML.
func IsMappingFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// Add parses content as the mapper file at path, replacing earlier
// statements from it.
func (x *Index) Add(path string, content []byte) error {
	stmts, err := Parse(path, content)
	if err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.files[path] = stmts
	delete(x.dirty, path)
	x.byKey = nil
	return nil
}

// Lookup returns the statements mapped to method on the type with the given
// qualified name.
func (x *Index) Lookup(owner, method string) []Statement {
	x.ensure()
	x.mu.RLock()
	defer x.mu.RUnlock()
	if s, ok := x.byKey[owner+"#"+method]; ok {
		return []Statement{s}
	}
	return nil
}

// HasNamespace reports whether any mapper file declares ns.
func (x *Index) HasNamespace(ns string) bool {
	x.ensure()
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.spaces[ns]
}

// Len returns the number of indexed statements.
func (x *Index) Len() int {
	x.ensure()
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byKey)
}

// Statements returns every indexed statement ordered by key.
func (x *Index) Statements() []Statement {
	x.ensure()
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Statement, 0, len(x.byKey))
	for _, s := range x.byKey {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (x *Index) ensure() {
	x.mu.RLock()
	fresh := x.scanned && len(x.dirty) == 0 && x.byKey != nil
	x.mu.RUnlock()
	if fresh {
		return
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.scanned {
		x.scanLocked()
	}
	for path := range x.dirty {
		x.reloadLocked(path)
	}
	x.dirty = make(map[string]bool)
	x.rebuildLocked()
}

func (x *Index) scanLocked() {
	for path := range x.files {
		if x.scannable(path) {
			delete(x.files, path)
		}
	}
	for _, dir := range x.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != dir && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if IsMappingFile(path) {
				x.reloadLocked(path)
			}
			return nil
		})
		if err != nil {
			x.log("sqlmap: scan %s: %v", dir, err)
		}
	}
	x.scanned = true
	x.log("sqlmap: scanned %d mapper files", len(x.files))
}

// scannable reports whether path lies below one of the scanned directories.
func (x *Index) scannable(path string) bool {
	for _, dir := range x.dirs {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (x *Index) reloadLocked(path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		delete(x.files, path)
		return
	}
	stmts, err := Parse(path, content)
	if err != nil {
		x.log("sqlmap: %v", err)
		delete(x.files, path)
		return
	}
	if len(stmts) == 0 {
		delete(x.files, path)
		return
	}
	x.files[path] = stmts
}

func (x *Index) rebuildLocked() {
	x.byKey = make(map[string]Statement)
	x.spaces = make(map[string]bool)
	paths := make([]string, 0, len(x.files))
	for p := range x.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		for _, s := range x.files[p] {
			x.spaces[s.Namespace] = true
			if _, dup := x.byKey[s.Key()]; dup {
				continue
			}
			x.byKey[s.Key()] = s
		}
	}
}

// Annotated returns statements declared by annotations on m, such as
// @Select("..."). Their namespace is the owner's key.
func Annotated(m *index.Method) []Statement {
	if m == nil || m.Owner == nil {
		return nil
	}
	var out []Statement
	for _, a := range m.Annotations {
		kind, ok := annotations.SQLStatements[a.SimpleName()]
		if !ok {
			continue
		}
		sql, _ := a.Value("value")
		out = append(out, Statement{
			Namespace: m.Owner.Key(),
			ID:        m.Name,
			Kind:      kind,
			SQL:       normalize(sql),
			File:      m.FilePath,
			Line:      m.Line,
		})
	}
	return out
}

func normalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func parseErr(path string, err error) error {
	return fmt.Errorf("parse mapper %s: %w", path, err)
}
