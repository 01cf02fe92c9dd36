// Package workspace loads project and library sources into a semantic index
// and keeps it current as files change.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/CallEagle/internal/factstore"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/parser"
	"github.com/imyousuf/CallEagle/internal/parser/java"
	"github.com/imyousuf/CallEagle/internal/sqlmap"
	"github.com/imyousuf/CallEagle/internal/watcher"
)

// Config holds the workspace settings.
type Config struct {
	// Roots are project source roots. Their types are in project.
	Roots []string
	// Libraries are dependency source roots. Their types are third-party.
	Libraries []string
	// Mappers are scanned for mapping XML. Empty means Roots.
	Mappers []string
	// CacheDir holds the parsed-fact cache. Empty disables it.
	CacheDir string
	// Exclude lists gitignore-style patterns skipped while loading and watching.
	Exclude []string
	// Workers bounds parallel parsing. Zero means GOMAXPROCS.
	Workers int
	Verbose bool
	Logger  func(format string, args ...any)
}

// Stats describes the last load and every change applied since.
type Stats struct {
	index.Stats
	Parsed     int       `json:"parsed"`
	Cached     int       `json:"cached"`
	Statements int       `json:"statements"`
	LastLoad   time.Time `json:"last_load"`
	Errors     []string  `json:"errors,omitempty"`
}

// maxErrors caps the parse errors kept for Stats.
const maxErrors = 50

// Workspace owns the index built from a set of source roots.
type Workspace struct {
	cfg      Config
	log      func(format string, args ...any)
	verbose  bool
	registry *parser.Registry
	ignore   *watcher.Ignore
	idx      *index.MemIndex
	sql      *sqlmap.Index
	facts    *factstore.Store

	// mu orders snapshot readers against changes.
	mu sync.RWMutex

	statsMu  sync.Mutex
	parsed   int
	cached   int
	errs     []string
	lastLoad time.Time
}

// Open creates a workspace. Nothing is parsed until Load.
func Open(cfg Config) (*Workspace, error) {
	if len(cfg.Roots) == 0 {
		return nil, errors.New("workspace: at least one root is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	log := cfg.Logger
	if log == nil {
		log = func(string, ...any) {}
	}

	registry := parser.NewRegistry()
	registry.Register(java.NewParser())

	mappers := cfg.Mappers
	if len(mappers) == 0 {
		mappers = cfg.Roots
	}

	w := &Workspace{
		cfg:      cfg,
		log:      log,
		verbose:  cfg.Verbose,
		registry: registry,
		ignore:   watcher.NewIgnore(cfg.watchPaths(), cfg.Exclude),
		idx:      index.NewMemIndex(),
		sql:      sqlmap.New(mappers, sqlmap.WithLogger(verbose(cfg.Verbose, log))),
	}
	if cfg.CacheDir != "" {
		facts, err := factstore.Open(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("workspace: %w", err)
		}
		w.facts = facts
	}
	return w, nil
}

func verbose(on bool, log func(string, ...any)) func(string, ...any) {
	if on {
		return log
	}
	return nil
}

// watchPaths returns every configured directory once.
func (c Config) watchPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{c.Roots, c.Libraries, c.Mappers} {
		for _, p := range group {
			p = filepath.Clean(p)
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Index returns the semantic index. Readers that need a consistent snapshot
// across several calls use View.
func (w *Workspace) Index() *index.MemIndex { return w.idx }

// Statements returns the mapping-statement index.
func (w *Workspace) Statements() *sqlmap.Index { return w.sql }

// CacheStats describes the fact cache. It reports false when the cache is
// disabled.
func (w *Workspace) CacheStats() (factstore.Stats, bool, error) {
	if w.facts == nil {
		return factstore.Stats{}, false, nil
	}
	st, err := w.facts.Stats()
	return st, true, err
}

// Close releases the fact cache.
func (w *Workspace) Close() error {
	if w.facts != nil {
		return w.facts.Close()
	}
	return nil
}

type source struct {
	path      string
	inProject bool
}

// Load parses every source file below the roots and libraries. Files that
// fail to parse are recorded in Stats and skipped.
func (w *Workspace) Load(ctx context.Context) error {
	start := time.Now()
	var sources []source
	for _, root := range w.cfg.Roots {
		sources = w.collect(root, true, sources)
	}
	for _, lib := range w.cfg.Libraries {
		sources = w.collect(lib, false, sources)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Workers)
	for _, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w.load(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	if w.facts != nil {
		keep := make(map[string]bool, len(sources))
		for _, src := range sources {
			keep[src.path] = true
		}
		if n, err := w.facts.Prune(func(p string) bool { return keep[p] }); err != nil {
			w.log("workspace: %v", err)
		} else if n > 0 && w.verbose {
			w.log("workspace: pruned %d stale cache entries", n)
		}
	}

	w.statsMu.Lock()
	w.lastLoad = time.Now()
	parsed, cached := w.parsed, w.cached
	w.statsMu.Unlock()
	w.log("workspace: loaded %d files (%d parsed, %d cached) in %s",
		len(sources), parsed, cached, time.Since(start).Round(time.Millisecond))
	return nil
}

// collect appends the parseable files below root.
func (w *Workspace) collect(root string, inProject bool, out []source) []source {
	root = filepath.Clean(root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || w.ignore.MatchDir(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := w.registry.ForPath(path); !ok || w.ignore.Match(path) {
			return nil
		}
		out = append(out, source{path: path, inProject: inProject})
		return nil
	})
	if err != nil {
		w.log("workspace: scan %s: %v", root, err)
	}
	return out
}

// load reads, parses and indexes one file.
func (w *Workspace) load(src source) {
	f, fromCache, err := w.parse(src)
	if err != nil {
		w.recordError(err)
		return
	}
	w.idx.AddFile(f)
	w.statsMu.Lock()
	if fromCache {
		w.cached++
	} else {
		w.parsed++
	}
	w.statsMu.Unlock()
}

func (w *Workspace) parse(src source) (*index.File, bool, error) {
	p, ok := w.registry.ForPath(src.path)
	if !ok {
		return nil, false, fmt.Errorf("no parser for %s", src.path)
	}
	content, err := os.ReadFile(src.path)
	if err != nil {
		return nil, false, fmt.Errorf("read file %s: %w", src.path, err)
	}

	if w.facts != nil {
		f, hit, err := w.facts.Get(src.path, content)
		if err != nil {
			w.log("workspace: %v", err)
		}
		if hit {
			f.Path = src.path
			f.InProject = src.inProject
			return f, true, nil
		}
	}

	if w.verbose {
		w.log("Parsing %s (%s)...", src.path, p.Language())
	}
	f, err := p.ParseFile(src.path, content)
	if err != nil {
		return nil, false, fmt.Errorf("parse file %s: %w", src.path, err)
	}
	f.Path = src.path
	f.InProject = src.inProject
	if w.facts != nil {
		if err := w.facts.Put(src.path, content, f); err != nil {
			w.log("workspace: %v", err)
		}
	}
	return f, false, nil
}

func (w *Workspace) recordError(err error) {
	w.log("workspace: %v", err)
	w.statsMu.Lock()
	if len(w.errs) < maxErrors {
		w.errs = append(w.errs, err.Error())
	}
	w.statsMu.Unlock()
}

// classify reports whether path belongs to a root or a library.
func (w *Workspace) classify(path string) (inProject, ok bool) {
	for _, root := range w.cfg.Roots {
		if within(root, path) {
			return true, true
		}
	}
	for _, lib := range w.cfg.Libraries {
		if within(lib, path) {
			return false, true
		}
	}
	return false, false
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Apply updates the index for one file change. It reports whether anything
// the call graph depends on changed.
func (w *Workspace) Apply(ev watcher.Event) (bool, error) {
	path := filepath.Clean(ev.Path)
	if sqlmap.IsMappingFile(path) {
		w.mu.Lock()
		w.sql.Invalidate(path)
		w.mu.Unlock()
		if w.verbose {
			w.log("workspace: mapping file %s %s", path, ev.Op)
		}
		return true, nil
	}
	if _, ok := w.registry.ForPath(path); !ok || w.ignore.Match(path) {
		return false, nil
	}
	inProject, ok := w.classify(path)
	if !ok {
		return false, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if ev.Op == watcher.Remove || ev.Op == watcher.Rename {
		return w.remove(path), nil
	}
	f, _, err := w.parse(source{path: path, inProject: inProject})
	if errors.Is(err, fs.ErrNotExist) {
		return w.remove(path), nil
	}
	if err != nil {
		w.recordError(err)
		return false, err
	}
	w.idx.AddFile(f)
	w.statsMu.Lock()
	w.parsed++
	w.statsMu.Unlock()
	if w.verbose {
		w.log("workspace: reindexed %s", path)
	}
	return true, nil
}

func (w *Workspace) remove(path string) bool {
	removed := w.idx.RemoveFile(path)
	if w.facts != nil {
		if err := w.facts.Delete(path); err != nil {
			w.log("workspace: %v", err)
		}
	}
	if removed && w.verbose {
		w.log("workspace: removed %s", path)
	}
	return removed
}

// Watch applies file changes until ctx is done, calling onChange after each
// change that affects the index. onChange may be nil.
func (w *Workspace) Watch(ctx context.Context, onChange func(watcher.Event)) error {
	wt := watcher.New(watcher.Config{
		Paths:           w.cfg.watchPaths(),
		ExcludePatterns: w.cfg.Exclude,
		Extensions:      append(w.registry.SupportedExtensions(), ".xml"),
		Logger:          w.log,
	})
	defer wt.Close()

	events, err := wt.Start(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	for ev := range events {
		changed, err := w.Apply(ev)
		if err != nil {
			continue
		}
		if changed && onChange != nil {
			onChange(ev)
		}
	}
	return ctx.Err()
}

// View runs fn against a snapshot no change can interleave with.
func (w *Workspace) View(fn func(idx *index.MemIndex) error) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return fn(w.idx)
}

// Stats returns counters for the index and for parsing.
func (w *Workspace) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	errs := append([]string(nil), w.errs...)
	sort.Strings(errs)
	return Stats{
		Stats:      w.idx.Stats(),
		Parsed:     w.parsed,
		Cached:     w.cached,
		Statements: w.sql.Len(),
		LastLoad:   w.lastLoad,
		Errors:     errs,
	}
}
