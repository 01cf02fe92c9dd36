// Package watcher reports debounced changes to source and mapping files
// below a set of roots.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	Create EventOp = iota
	Write
	Remove
	Rename
)

// String returns the string representation of EventOp.
func (op EventOp) String() string {
	switch op {
	case Create:
		return "Create"
	case Write:
		return "Write"
	case Remove:
		return "Remove"
	case Rename:
		return "Rename"
	default:
		return "Unknown"
	}
}

// Event is a debounced change to one file.
type Event struct {
	Path string
	Op   EventOp
	Time time.Time
}

// Config holds the watcher settings.
type Config struct {
	Paths           []string
	ExcludePatterns []string
	// Extensions limits events to files with these extensions. Empty
	// reports every file.
	Extensions []string
	Debounce   time.Duration
	Logger     func(format string, args ...any)
}

// DefaultDebounce is the quiet period before a path's last event is emitted.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches directory trees and emits debounced per-path events.
type Watcher struct {
	cfg    Config
	ignore *Ignore
	exts   map[string]bool
	log    func(format string, args ...any)

	mu     sync.Mutex
	fsw    *fsnotify.Watcher
	closed bool
}

// New creates a watcher. Ignore rules are loaded immediately.
func New(cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	w := &Watcher{
		cfg:    cfg,
		ignore: NewIgnore(cfg.Paths, cfg.ExcludePatterns),
		exts:   make(map[string]bool, len(cfg.Extensions)),
		log:    cfg.Logger,
	}
	if w.log == nil {
		w.log = func(string, ...any) {}
	}
	for _, e := range cfg.Extensions {
		w.exts[strings.ToLower(e)] = true
	}
	return w
}

// Ignored reports whether path is excluded by configuration or .gitignore.
func (w *Watcher) Ignored(path string) bool { return w.ignore.Match(path) }

// Wants reports whether events for path are delivered.
func (w *Watcher) Wants(path string) bool {
	if w.ignore.Match(path) {
		return false
	}
	return len(w.exts) == 0 || w.exts[strings.ToLower(filepath.Ext(path))]
}

// Start registers every non-ignored directory and returns the event
// channel. The channel closes when ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) (<-chan Event, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	for _, root := range w.cfg.Paths {
		if err := w.addRecursive(root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	out := make(chan Event, 100)
	go w.loop(ctx, fsw, out)
	return out, nil
}

// Close shuts down the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignore.MatchDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, out chan<- Event) {
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
		stop    = make(chan struct{})
	)
	defer func() {
		close(stop)
		mu.Lock()
		for path, t := range pending {
			if t.Stop() {
				wg.Done()
			}
			delete(pending, path)
		}
		mu.Unlock()
		wg.Wait()
		close(out)
	}()

	schedule := func(evt Event) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[evt.Path]; ok && t.Stop() {
			wg.Done()
		}
		wg.Add(1)
		pending[evt.Path] = time.AfterFunc(w.cfg.Debounce, func() {
			defer wg.Done()
			mu.Lock()
			delete(pending, evt.Path)
			mu.Unlock()
			select {
			case out <- evt:
			case <-ctx.Done():
			case <-stop:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case fe, ok := <-fsw.Events:
			if !ok {
				return
			}
			op, valid := convertOp(fe.Op)
			if !valid || w.ignore.Match(fe.Name) {
				continue
			}
			if op == Create {
				if info, err := os.Stat(fe.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fe.Name); err != nil {
						w.log("watcher: add %s: %v", fe.Name, err)
					}
					continue
				}
			}
			if !w.Wants(fe.Name) {
				continue
			}
			schedule(Event{Path: fe.Name, Op: op, Time: time.Now()})
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log("watcher: %v", err)
		}
	}
}

func convertOp(op fsnotify.Op) (EventOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Create, true
	case op.Has(fsnotify.Write):
		return Write, true
	case op.Has(fsnotify.Remove):
		return Remove, true
	case op.Has(fsnotify.Rename):
		return Rename, true
	default:
		return 0, false
	}
}
