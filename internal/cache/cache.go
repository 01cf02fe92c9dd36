// Package cache memoizes resolution results keyed by EntityKey strings. Every
// access compares the source revision and clears all segments wholesale when
// the sources changed since the entries were computed.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/imyousuf/CallEagle/internal/metrics"
)

// Segment names one family of cached results.
type Segment string

const (
	Subtypes  Segment = "subtypes"
	Overrides Segment = "overrides"
	DI        Segment = "di"
	Usage     Segment = "usage"
)

// Segments lists every segment in a stable order.
var Segments = []Segment{Subtypes, Overrides, DI, Usage}

// Revisioner reports the modification counter of the cached sources.
type Revisioner interface {
	Revision() int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMetrics records hits, misses and invalidations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the function used for verbose output.
func WithLogger(log func(format string, args ...any)) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// Cache is safe for concurrent use. A nil *Cache computes every value.
type Cache struct {
	source  Revisioner
	metrics *metrics.Metrics
	log     func(format string, args ...any)

	mu       sync.Mutex
	revision atomic.Int64
	nextGen  atomic.Uint64
	segments map[Segment]*atomic.Pointer[segment]
	group    singleflight.Group
}

// segment is one generation of a segment's entries. Clearing swaps in a new
// generation; values computed against a replaced one are not stored.
type segment struct {
	gen uint64
	m   sync.Map
}

// New creates a cache bound to source. A nil source never invalidates.
func New(source Revisioner, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		log:      func(string, ...any) {},
		segments: make(map[Segment]*atomic.Pointer[segment], len(Segments)),
	}
	for _, o := range opts {
		o(c)
	}
	for _, s := range Segments {
		p := &atomic.Pointer[segment]{}
		p.Store(c.fresh())
		c.segments[s] = p
	}
	if source != nil {
		c.revision.Store(source.Revision())
	}
	return c
}

func (c *Cache) fresh() *segment {
	return &segment{gen: c.nextGen.Add(1)}
}

// Revision returns the source revision the cached entries belong to.
func (c *Cache) Revision() int64 {
	if c == nil {
		return 0
	}
	return c.revision.Load()
}

// InvalidateAll clears every segment.
func (c *Cache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(Segments...)
}

// Invalidate clears the named segment only.
func (c *Cache) Invalidate(seg Segment) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked(seg)
}

func (c *Cache) clearLocked(segs ...Segment) {
	for _, s := range segs {
		if p, ok := c.segments[s]; ok {
			p.Store(c.fresh())
		}
	}
	c.metrics.CacheInvalidated()
}

// sync adopts the current source revision, clearing everything on change.
func (c *Cache) sync() {
	if c.source == nil {
		return
	}
	rev := c.source.Revision()
	if rev == c.revision.Load() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.revision.Load()
	if rev == old {
		return
	}
	c.clearLocked(Segments...)
	c.revision.Store(rev)
	c.log("cache: source revision %d -> %d, cleared", old, rev)
}

func (c *Cache) current(seg Segment) *segment {
	p, ok := c.segments[seg]
	if !ok {
		panic(fmt.Sprintf("cache: unknown segment %q", seg))
	}
	return p.Load()
}

// Len returns the number of entries held in seg.
func (c *Cache) Len(seg Segment) int {
	if c == nil {
		return 0
	}
	c.sync()
	n := 0
	c.current(seg).m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// get returns the cached value for key without computing it.
func get[T any](c *Cache, seg Segment, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	c.sync()
	v, ok := c.current(seg).m.Load(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss. Concurrent misses for the same key share one computation.
func GetOrCompute[T any](c *Cache, seg Segment, key string, compute func() T) T {
	if c == nil {
		return compute()
	}
	c.sync()
	s := c.current(seg)
	if v, ok := s.m.Load(key); ok {
		c.metrics.CacheRequest(string(seg), metrics.CacheHit)
		t, _ := v.(T)
		return t
	}
	c.metrics.CacheRequest(string(seg), metrics.CacheMiss)

	flight := fmt.Sprintf("%s/%d/%s", seg, s.gen, key)
	v, _, _ := c.group.Do(flight, func() (any, error) {
		if v, ok := s.m.Load(key); ok {
			return v, nil
		}
		v := compute()
		if c.current(seg) == s {
			s.m.Store(key, v)
		} else {
			c.metrics.CacheRequest(string(seg), metrics.CacheDiscarded)
		}
		return v, nil
	})
	t, _ := v.(T)
	return t
}
