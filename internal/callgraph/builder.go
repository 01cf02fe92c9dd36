// Package callgraph builds call graphs rooted at a method. A build is one
// depth-first walk: each expanded method's call sites are resolved, filtered
// and added as children, interface and overridable methods gain edges to
// their implementations (narrowed by dependency-injection rules when the call
// receiver is an injection point), and mapper methods gain terminal SQL
// nodes.
//
// Depth is budgeted per region. Moving between project methods costs one
// level; entering library code resets the budget to the third-party depth and
// returning to project code restores the project depth. A method with no
// budget left is a leaf. Cycles are cut per path, so a method reachable
// along two branches appears once with edges from both.
package callgraph

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/di"
	"github.com/imyousuf/CallEagle/internal/exclusion"
	"github.com/imyousuf/CallEagle/internal/framework"
	"github.com/imyousuf/CallEagle/internal/graph"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/injection"
	"github.com/imyousuf/CallEagle/internal/metrics"
	"github.com/imyousuf/CallEagle/internal/override"
	"github.com/imyousuf/CallEagle/internal/sqlmap"
	"github.com/imyousuf/CallEagle/internal/usage"
	"github.com/imyousuf/CallEagle/internal/visitor"
)

var (
	// ErrRootNotFound is returned when the root method cannot be resolved.
	ErrRootNotFound = errors.New("root method not found")
	// ErrAmbiguousRoot is returned when a root query matches several methods.
	ErrAmbiguousRoot = errors.New("root query is ambiguous")
)

// Config holds the traversal settings.
type Config struct {
	ProjectMaxDepth               int
	ThirdPartyMaxDepth            int
	ExpandImplementations         bool
	IncludeLibraryImplementations bool
	FilterUnusedParams            bool
	Exclude                       []string
	Filters                       Filters
	MatchByName                   bool
}

// DefaultConfig returns the default traversal settings.
func DefaultConfig() Config {
	return Config{
		ProjectMaxDepth:       5,
		ThirdPartyMaxDepth:    1,
		ExpandImplementations: true,
		Filters: Filters{
			SkipAccessors:      true,
			SkipToString:       true,
			SkipEqualsHashCode: true,
		},
	}
}

// Validate checks depth ranges and exclusion patterns.
func (c Config) Validate() error {
	if c.ProjectMaxDepth < 1 {
		return fmt.Errorf("project max depth must be at least 1, got %d", c.ProjectMaxDepth)
	}
	if c.ThirdPartyMaxDepth < 0 {
		return fmt.Errorf("third-party max depth must not be negative, got %d", c.ThirdPartyMaxDepth)
	}
	if _, err := exclusion.Compile(c.Exclude); err != nil {
		return err
	}
	return nil
}

// Statements looks up mapped SQL statements. *sqlmap.Index satisfies it.
type Statements interface {
	Lookup(owner, method string) []sqlmap.Statement
}

// Option configures a Builder.
type Option func(*Builder)

// WithCache shares c between builders. Without it each Builder owns a cache
// bound to its index.
func WithCache(c *cache.Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithStatements enables SQL nodes from a mapping index.
func WithStatements(s Statements) Option {
	return func(b *Builder) { b.statements = s }
}

// WithDetector replaces the framework detector.
func WithDetector(d *framework.Detector) Option {
	return func(b *Builder) { b.detector = d }
}

// WithMetrics records build outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithLogger sets the function used for verbose output.
func WithLogger(log func(format string, args ...any)) Option {
	return func(b *Builder) {
		if log != nil {
			b.log = log
		}
	}
}

// Builder builds call graphs over one index. It is safe for concurrent use;
// concurrent builds share its caches.
type Builder struct {
	idx        index.Index
	cfg        Config
	cache      *cache.Cache
	statements Statements
	detector   *framework.Detector
	metrics    *metrics.Metrics
	log        func(format string, args ...any)

	exclude   *exclusion.Matcher
	visitor   *visitor.Visitor
	injection *injection.Resolver
	overrides *override.Resolver
	usage     *usage.Analyzer
}

// New creates a Builder. It fails when cfg does not validate.
func New(idx index.Index, cfg Config, opts ...Option) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid traversal config: %w", err)
	}
	b := &Builder{
		idx: idx,
		cfg: cfg,
		log: func(string, ...any) {},
	}
	for _, o := range opts {
		o(b)
	}
	if b.cache == nil {
		b.cache = cache.New(idx, cache.WithMetrics(b.metrics))
	}
	var sqlNamespaces framework.Namespaces
	if ns, ok := b.statements.(framework.Namespaces); ok {
		sqlNamespaces = ns
	}
	if b.detector == nil {
		b.detector = framework.Default(idx, sqlNamespaces)
	}
	exclude, err := exclusion.Compile(cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid traversal config: %w", err)
	}
	b.exclude = exclude
	b.visitor = visitor.New(idx)
	b.injection = injection.NewResolver(idx)
	disambiguator := di.New(idx, b.cache, di.Config{MatchByName: cfg.MatchByName})
	b.overrides = override.New(idx, b.cache, disambiguator, override.Config{IncludeLibrary: cfg.IncludeLibraryImplementations})
	b.usage = usage.New(b.cache)
	return b, nil
}

// Config returns the builder's settings.
func (b *Builder) Config() Config { return b.cfg }

// Cache returns the resolution cache.
func (b *Builder) Cache() *cache.Cache { return b.cache }

// BuildKey resolves query with index.Index.FindMethods and builds from the
// single match. An exact EntityKey match wins over other candidates.
func (b *Builder) BuildKey(ctx context.Context, query string) (*graph.Graph, error) {
	root, err := b.Resolve(query)
	if err != nil {
		b.metrics.ObserveBuild(metrics.ResultNotFound, 0, 0, 0)
		return nil, err
	}
	return b.Build(ctx, root)
}

// Resolve finds the method a root query names.
func (b *Builder) Resolve(query string) (*index.Method, error) {
	if m, ok := b.idx.Method(index.EntityKey(query)); ok {
		return m, nil
	}
	found := b.idx.FindMethods(query)
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, query)
	case 1:
		return found[0], nil
	}
	keys := make([]string, 0, len(found))
	for _, m := range found {
		keys = append(keys, string(m.Key()))
	}
	return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguousRoot, query, strings.Join(keys, ", "))
}

// Build walks the calls reachable from root. Cancellation of ctx aborts the
// build and returns no graph.
func (b *Builder) Build(ctx context.Context, root *index.Method) (*graph.Graph, error) {
	start := time.Now()
	if root == nil {
		b.metrics.ObserveBuild(metrics.ResultNotFound, 0, 0, 0)
		return nil, ErrRootNotFound
	}
	r := &run{
		b:    b,
		ctx:  ctx,
		g:    graph.New(string(root.Key())),
		memo: make(map[memoKey]int),
	}
	r.addNode(root)
	if _, err := r.expand(root, nil, true, b.cfg.ProjectMaxDepth, nil); err != nil {
		result := metrics.ResultFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = metrics.ResultCanceled
		}
		b.metrics.ObserveBuild(result, time.Since(start).Seconds(), 0, 0)
		b.log("callgraph: build %s aborted: %v", root.Key(), err)
		return nil, fmt.Errorf("build %s: %w", root.Key(), err)
	}
	elapsed := time.Since(start)
	b.metrics.ObserveBuild(metrics.ResultOK, elapsed.Seconds(), r.g.NodeCount(), r.g.EdgeCount())
	b.log("callgraph: built %s: %d nodes, %d edges in %s", root.Key(), r.g.NodeCount(), r.g.EdgeCount(), elapsed.Round(time.Millisecond))
	return r.g, nil
}

// budget returns the depth a callee reached from caller starts with.
func (b *Builder) budget(caller, callee *index.Method, remaining int) int {
	from, to := inProject(caller), inProject(callee)
	switch {
	case from && !to:
		return b.cfg.ThirdPartyMaxDepth
	case !from && to:
		return b.cfg.ProjectMaxDepth
	default:
		return remaining - 1
	}
}

func inProject(m *index.Method) bool {
	return m.Owner != nil && m.Owner.InProject
}

// keep applies the per-candidate filters in order: exclusion, member
// suppression, parameter usage.
func (b *Builder) keep(m *index.Method) bool {
	if b.exclude.Excluded(m) {
		return false
	}
	if b.cfg.Filters.Suppressed(m) {
		return false
	}
	if b.cfg.FilterUnusedParams && !b.usage.Relevant(m) {
		return false
	}
	return true
}

// path is the chain of methods from the root to the one being expanded.
type path struct {
	key    index.EntityKey
	depth  int
	parent *path
}

func (p *path) push(key index.EntityKey) *path {
	d := 0
	if p != nil {
		d = p.depth + 1
	}
	return &path{key: key, depth: d, parent: p}
}

// find returns the depth at which key is on the path.
func (p *path) find(key index.EntityKey) (int, bool) {
	for cur := p; cur != nil; cur = cur.parent {
		if cur.key == key {
			return cur.depth, true
		}
	}
	return 0, false
}

type memoKey struct {
	key      index.EntityKey
	point    string
	dispatch bool
}

// child is one outgoing edge of an expanded method.
type child struct {
	target   *index.Method
	kind     graph.EdgeKind
	line     int
	point    *injection.Point
	dispatch bool
}

// run is the state of one build.
type run struct {
	b    *Builder
	ctx  context.Context
	g    *graph.Graph
	memo map[memoKey]int
}

const unblocked = math.MaxInt

// expand adds m's children and descends into them. It returns the smallest
// path depth a cycle in the subtree was cut at; a subtree whose cycles all
// close at or below m does not depend on the path above m and is recorded
// so later visits with no more budget can skip it.
func (r *run) expand(m *index.Method, ip *injection.Point, dispatch bool, remaining int, p *path) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if remaining <= 0 {
		return unblocked, nil
	}
	mk := memoKey{key: m.Key(), point: ip.Signature(), dispatch: dispatch}
	if done, ok := r.memo[mk]; ok && done >= remaining {
		return unblocked, nil
	}

	here := p.push(m.Key())
	from := string(m.Key())
	cut := unblocked
	for _, c := range r.children(m, ip, dispatch) {
		to := r.addNode(c.target)
		r.g.AddEdge(from, to.ID, c.kind, c.line)
		if d, onPath := here.find(c.target.Key()); onPath {
			cut = min(cut, d)
			continue
		}
		next := remaining
		if c.kind != graph.EdgeImplementation {
			next = r.b.budget(m, c.target, remaining)
		}
		sub, err := r.expand(c.target, c.point, c.dispatch, next, here)
		if err != nil {
			return 0, err
		}
		cut = min(cut, sub)
	}
	r.addStatements(m)

	if cut >= here.depth {
		r.memo[mk] = remaining
	}
	return cut, nil
}

// children lists m's implementations followed by its call sites.
func (r *run) children(m *index.Method, ip *injection.Point, dispatch bool) []child {
	var out []child
	if dispatch && r.b.cfg.ExpandImplementations && r.b.overrides.Eligible(m) {
		res := r.b.overrides.Resolve(m, ip)
		for _, impl := range res.Targets {
			if impl == m || r.b.exclude.Excluded(impl) {
				continue
			}
			out = append(out, child{target: impl, kind: graph.EdgeImplementation, line: 0})
		}
	}
	for _, site := range r.b.visitor.Visit(m) {
		if !r.b.keep(site.Target) {
			continue
		}
		c := child{target: site.Target, line: site.Line, kind: edgeKind(site.Kind), dispatch: true}
		switch site.Kind {
		case visitor.Super, visitor.Constructor:
			c.dispatch = false
		default:
			if pt, ok := r.b.injection.Resolve(m, site.Receiver); ok {
				c.point = pt
			}
		}
		out = append(out, c)
	}
	return out
}

func edgeKind(k visitor.Kind) graph.EdgeKind {
	switch k {
	case visitor.Super:
		return graph.EdgeSuper
	case visitor.Constructor:
		return graph.EdgeConstructor
	case visitor.MethodRef:
		return graph.EdgeMethodRef
	default:
		return graph.EdgeDirect
	}
}

// addStatements attaches terminal SQL nodes for the statements m runs.
func (r *run) addStatements(m *index.Method) {
	if m.Owner == nil {
		return
	}
	stmts := sqlmap.Annotated(m)
	if r.b.statements != nil {
		stmts = append(stmts, r.b.statements.Lookup(m.Owner.Key(), m.Name)...)
	}
	for _, s := range stmts {
		n := r.g.AddNode(sqlNode(s))
		r.g.AddEdge(string(m.Key()), n.ID, graph.EdgeSQL, 0)
	}
}

func (r *run) addNode(m *index.Method) *graph.Node {
	if n, ok := r.g.Node(string(m.Key())); ok {
		return n
	}
	return r.g.AddNode(r.b.newNode(m))
}

func (b *Builder) newNode(m *index.Method) *graph.Node {
	info := b.detector.Detect(m)
	loc := b.location(m)
	n := &graph.Node{
		ID:          string(m.Key()),
		DisplayName: displayName(m),
		Signature:   m.Signature(),
		Category:    info.Category,
		InProject:   inProject(m),
		Flags:       info.Flags,
		FilePath:    loc.FilePath,
		Line:        loc.Line,
		Snippet:     m.Source,
	}
	if m.Owner != nil {
		n.OwnerType = m.Owner.Key()
	}
	return n
}

// location absorbs index failures; the node keeps the declaration's own
// position.
func (b *Builder) location(m *index.Method) (loc index.Location) {
	defer func() {
		if recover() != nil {
			loc = index.Location{FilePath: m.FilePath, Line: m.Line}
		}
	}()
	return b.idx.Location(m)
}

// displayName renders Owner.name(SimpleParamTypes).
func displayName(m *index.Method) string {
	var b strings.Builder
	if m.Owner != nil && m.Owner.Name != "" {
		b.WriteString(m.Owner.Name)
		b.WriteByte('.')
	}
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type.SimpleName())
		if p.Variadic {
			b.WriteString("...")
		}
	}
	b.WriteByte(')')
	return b.String()
}

func sqlNode(s sqlmap.Statement) *graph.Node {
	ns := s.Namespace
	if i := strings.LastIndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return &graph.Node{
		ID:          "sql:" + s.Key(),
		DisplayName: strings.ToUpper(s.Kind) + " " + ns + "." + s.ID,
		OwnerType:   s.Namespace,
		Signature:   s.SQL,
		Category:    graph.CategorySQL,
		InProject:   true,
		Flags:       map[string]string{"statement": s.Kind, "namespace": s.Namespace},
		FilePath:    s.File,
		Line:        s.Line,
		Snippet:     s.SQL,
	}
}
