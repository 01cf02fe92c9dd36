// Package override maps an overridable method to the concrete methods that
// override it in subtypes, optionally narrowed by dependency-injection rules.
package override

import (
	"fmt"
	"sort"

	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/di"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/injection"
)

// maxHierarchy bounds superclass walks.
const maxHierarchy = 32

// Config selects the subtype search scope.
type Config struct {
	// IncludeLibrary also searches library sources for implementations.
	IncludeLibrary bool
}

// Resolution is the set of dispatch targets for one call site.
type Resolution struct {
	Targets []*index.Method
	Reason  string
}

// Resolver finds overriding implementations.
type Resolver struct {
	idx   index.Index
	cache *cache.Cache
	di    *di.Disambiguator
	cfg   Config
}

// New creates a Resolver. c and d may be nil; without d no narrowing occurs.
func New(idx index.Index, c *cache.Cache, d *di.Disambiguator, cfg Config) *Resolver {
	return &Resolver{idx: idx, cache: c, di: d, cfg: cfg}
}

func (r *Resolver) scope() index.Scope {
	if r.cfg.IncludeLibrary {
		return index.ScopeAll
	}
	return index.ScopeProject
}

// Eligible reports whether calls to m can dispatch to another method.
// Constructors, static, private and final methods and methods of final
// types have exactly one target.
func (r *Resolver) Eligible(m *index.Method) bool {
	if m == nil || m.Owner == nil {
		return false
	}
	if m.Constructor || m.IsStatic() || m.IsPrivate() || m.IsFinal() {
		return false
	}
	return !m.Owner.IsFinal()
}

// Implementations returns the dispatch targets of m in every non-interface
// subtype in scope, de-duplicated and ordered by EntityKey.
func (r *Resolver) Implementations(m *index.Method) []*index.Method {
	if !r.Eligible(m) {
		return nil
	}
	key := fmt.Sprintf("%d:%s", r.scope(), m.Key())
	return cache.GetOrCompute(r.cache, cache.Overrides, key, func() []*index.Method {
		return r.implementations(m)
	})
}

func (r *Resolver) implementations(m *index.Method) []*index.Method {
	seen := make(map[index.EntityKey]bool)
	var out []*index.Method
	for _, sub := range r.subtypes(m.Owner) {
		if sub.IsInterface() {
			continue
		}
		target := r.dispatch(sub, m)
		if target == nil || seen[target.Key()] {
			continue
		}
		seen[target.Key()] = true
		out = append(out, target)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (r *Resolver) subtypes(t *index.Type) []*index.Type {
	key := fmt.Sprintf("%d:%s", r.scope(), t.Key())
	return cache.GetOrCompute(r.cache, cache.Subtypes, key, func() []*index.Type {
		return r.idx.Subtypes(t, r.scope())
	})
}

// dispatch walks from sub up its superclass chain, stopping before the
// declaring type, and returns the first concrete override of m.
func (r *Resolver) dispatch(sub *index.Type, m *index.Method) *index.Method {
	cur := sub
	for i := 0; cur != nil && cur != m.Owner && i < maxHierarchy; i++ {
		for _, cand := range cur.Methods {
			if !cand.IsAbstract() && !cand.IsStatic() && index.Overrides(cand, m) {
				return cand
			}
		}
		cur = r.superClass(cur)
	}
	return nil
}

func (r *Resolver) superClass(t *index.Type) *index.Type {
	for _, s := range r.idx.Supertypes(t) {
		if !s.IsInterface() {
			return s
		}
	}
	return nil
}

// Resolve returns the implementations of m narrowed for ip. The injection
// point applies only when its bean type is m's declaring type or one of its
// subtypes; otherwise every implementation is returned.
func (r *Resolver) Resolve(m *index.Method, ip *injection.Point) Resolution {
	impls := r.Implementations(m)
	if len(impls) == 0 {
		return Resolution{Reason: "no implementations"}
	}
	if ip == nil || r.di == nil {
		return Resolution{Targets: impls, Reason: fmt.Sprintf("all %d implementations", len(impls))}
	}
	if !r.applies(ip, m.Owner) {
		return Resolution{Targets: impls, Reason: fmt.Sprintf("injection point %s does not supply %s", ip.Name, m.Owner.Key())}
	}
	res := r.di.Narrow(impls, ip)
	return Resolution{Targets: res.Methods, Reason: res.Reason}
}

func (r *Resolver) applies(ip *injection.Point, declaring *index.Type) bool {
	bean, ok := r.idx.ResolveType(ip.Owner(), ip.ElementType)
	if !ok {
		return false
	}
	return r.isA(bean, declaring)
}

// isA reports whether t is base or inherits from it.
func (r *Resolver) isA(t, base *index.Type) bool {
	seen := make(map[*index.Type]bool)
	queue := []*index.Type{t}
	for len(queue) > 0 && len(seen) < maxHierarchy*4 {
		cur := queue[0]
		queue = queue[1:]
		if cur == base {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, r.idx.Supertypes(cur)...)
	}
	return false
}
