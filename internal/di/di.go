// Package di narrows a set of candidate implementations to the ones a
// dependency-injection container would supply for an injection point.
//
// Rules, in order:
//
//  1. A qualifier keeps the candidates whose bean names include it.
//  2. Single-cardinality points keep the candidates marked primary.
//  3. Optionally, single-cardinality points keep the candidate whose bean
//     name equals the injected variable name.
//  4. Otherwise every candidate is kept.
//
// A rule that matches nothing falls through to the next. Collection points
// without a matching qualifier always receive every candidate.
package di

import (
	"fmt"
	"strings"

	"github.com/imyousuf/CallEagle/internal/annotations"
	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/injection"
)

// Config holds disambiguation toggles.
type Config struct {
	// MatchByName enables the by-name fallback after the primary rule.
	MatchByName bool
}

// Result is a narrowed candidate list and a short explanation.
type Result struct {
	Methods []*index.Method
	Reason  string
}

// Disambiguator applies the container's selection rules.
type Disambiguator struct {
	idx   index.Index
	cache *cache.Cache
	cfg   Config
}

// New creates a Disambiguator. c may be nil.
func New(idx index.Index, c *cache.Cache, cfg Config) *Disambiguator {
	return &Disambiguator{idx: idx, cache: c, cfg: cfg}
}

// bean is what the container knows about a candidate's declaring type.
type bean struct {
	names   []string
	primary bool
}

func (b bean) named(name string) bool {
	for _, n := range b.names {
		if n == name {
			return true
		}
	}
	return false
}

// Narrow filters candidates for ip. The input order is preserved. A nil ip
// returns every candidate.
func (d *Disambiguator) Narrow(candidates []*index.Method, ip *injection.Point) Result {
	if ip == nil {
		return Result{Methods: candidates, Reason: "no injection point"}
	}
	if len(candidates) == 0 {
		return Result{Reason: "no candidates"}
	}
	key := ip.Signature() + "|" + candidateKeys(candidates)
	return cache.GetOrCompute(d.cache, cache.DI, "narrow:"+key, func() Result {
		return d.narrow(candidates, ip)
	})
}

func (d *Disambiguator) narrow(candidates []*index.Method, ip *injection.Point) Result {
	beans := make([]bean, len(candidates))
	for i, m := range candidates {
		beans[i] = d.bean(m.Owner)
	}
	keep := func(pred func(bean) bool) []*index.Method {
		var out []*index.Method
		for i, m := range candidates {
			if pred(beans[i]) {
				out = append(out, m)
			}
		}
		return out
	}
	n := len(candidates)

	if ip.HasQualifier {
		if got := keep(func(b bean) bool { return b.named(ip.Qualifier) }); len(got) > 0 {
			return Result{Methods: got, Reason: fmt.Sprintf("qualifier %q matched %d of %d", ip.Qualifier, len(got), n)}
		}
	}
	if ip.Cardinality.Collection() {
		return Result{Methods: candidates, Reason: fmt.Sprintf("%s injection receives all %d", ip.Cardinality, n)}
	}
	if got := keep(func(b bean) bool { return b.primary }); len(got) > 0 {
		return Result{Methods: got, Reason: fmt.Sprintf("primary matched %d of %d", len(got), n)}
	}
	if d.cfg.MatchByName && ip.Name != "" {
		if got := keep(func(b bean) bool { return b.named(ip.Name) }); len(got) > 0 {
			return Result{Methods: got, Reason: fmt.Sprintf("bean name %q matched %d of %d", ip.Name, len(got), n)}
		}
	}
	reason := fmt.Sprintf("ambiguous: all %d kept", n)
	if n == 1 {
		reason = "single candidate"
	}
	return Result{Methods: candidates, Reason: reason}
}

func (d *Disambiguator) bean(t *index.Type) bean {
	if t == nil {
		return bean{}
	}
	return cache.GetOrCompute(d.cache, cache.DI, "bean:"+t.Key(), func() bean {
		return d.describe(t)
	})
}

// describe collects the names a type is registered under: explicit
// qualifier values, the stereotype value and the decapitalized simple name.
func (d *Disambiguator) describe(t *index.Type) bean {
	var b bean
	add := func(n string) {
		if n != "" && !b.named(n) {
			b.names = append(b.names, n)
		}
	}
	for _, a := range t.Annotations {
		if _, ok := d.idx.FindAnnotation(t, []index.Annotation{a}, annotations.Qualifier...); !ok {
			continue
		}
		if v, ok := a.Value("value"); ok {
			add(v)
		} else if !isOneOf(a.SimpleName(), annotations.Qualifier) {
			add(a.SimpleName())
		}
	}
	if a, ok := d.idx.FindAnnotation(t, t.Annotations, annotations.Stereotypes...); ok {
		if v, ok := a.Value("value"); ok {
			add(v)
		}
	}
	add(index.Decapitalize(t.Name))
	_, b.primary = d.idx.FindAnnotation(t, t.Annotations, annotations.Primary...)
	return b
}

func isOneOf(name string, names []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func candidateKeys(ms []*index.Method) string {
	keys := make([]string, len(ms))
	for i, m := range ms {
		keys[i] = string(m.Key())
	}
	return strings.Join(keys, ",")
}
