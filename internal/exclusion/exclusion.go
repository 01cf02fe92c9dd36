// Package exclusion compiles user-supplied scoped regular expressions and
// decides whether a method is excluded from call graphs.
//
// A pattern may be prefixed with a facet:
//
//	pkg:     the owner's package
//	class:   the owner's simple or qualified name
//	method:  the method name
//	sig:     name(T1,T2) or the qualified signature owner#name(T1,T2)
//
// Unprefixed patterns match any facet. Every pattern must match the whole
// facet value.
package exclusion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/imyousuf/CallEagle/internal/index"
)

// Facet selects the part of a method a pattern is matched against.
type Facet string

const (
	FacetAny       Facet = ""
	FacetPackage   Facet = "pkg"
	FacetClass     Facet = "class"
	FacetMethod    Facet = "method"
	FacetSignature Facet = "sig"
)

// Pattern is one compiled exclusion rule.
type Pattern struct {
	Raw   string
	Facet Facet
	re    *regexp.Regexp
}

// Matcher holds an ordered, de-duplicated list of patterns. The zero value
// and a nil *Matcher exclude nothing.
type Matcher struct {
	patterns []Pattern
}

// Compile parses and compiles patterns. Blank entries are skipped and
// duplicates collapse to one rule.
func Compile(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	seen := make(map[string]bool, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true

		facet, expr := splitFacet(raw)
		if expr == "" {
			return nil, fmt.Errorf("exclusion pattern %q: empty expression", raw)
		}
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, fmt.Errorf("exclusion pattern %q: %w", raw, err)
		}
		m.patterns = append(m.patterns, Pattern{Raw: raw, Facet: facet, re: re})
	}
	return m, nil
}

func splitFacet(raw string) (Facet, string) {
	for _, f := range []Facet{FacetPackage, FacetClass, FacetMethod, FacetSignature} {
		if prefix := string(f) + ":"; strings.HasPrefix(raw, prefix) {
			return f, strings.TrimSpace(raw[len(prefix):])
		}
	}
	return FacetAny, raw
}

// Len returns the number of distinct patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Patterns returns the distinct patterns in their original order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		out[i] = p.Raw
	}
	return out
}

// Excluded reports whether any pattern matches the method.
func (m *Matcher) Excluded(method *index.Method) bool {
	_, ok := m.Match(method)
	return ok
}

// Match returns the first pattern matching the method.
func (m *Matcher) Match(method *index.Method) (Pattern, bool) {
	if m == nil || len(m.patterns) == 0 || method == nil {
		return Pattern{}, false
	}
	v := facetsOf(method)
	for _, p := range m.patterns {
		if p.matches(v) {
			return p, true
		}
	}
	return Pattern{}, false
}

type facets struct {
	pkg        string
	classes    []string
	method     string
	signature  string
	qualifiedS string
}

func facetsOf(m *index.Method) facets {
	v := facets{
		method:     m.Name,
		signature:  m.Name + "(" + m.ParamList() + ")",
		qualifiedS: string(m.Key()),
	}
	if o := m.Owner; o != nil {
		v.pkg = o.Package
		if o.Name != "" {
			v.classes = append(v.classes, o.Name)
		}
		v.classes = append(v.classes, o.Key())
	}
	return v
}

func (p Pattern) matches(v facets) bool {
	switch p.Facet {
	case FacetPackage:
		return p.re.MatchString(v.pkg)
	case FacetClass:
		return p.matchesClass(v)
	case FacetMethod:
		return p.re.MatchString(v.method)
	case FacetSignature:
		return p.re.MatchString(v.signature) || p.re.MatchString(v.qualifiedS)
	}
	return p.re.MatchString(v.pkg) ||
		p.matchesClass(v) ||
		p.re.MatchString(v.method) ||
		p.re.MatchString(v.signature) ||
		p.re.MatchString(v.qualifiedS)
}

func (p Pattern) matchesClass(v facets) bool {
	for _, c := range v.classes {
		if p.re.MatchString(c) {
			return true
		}
	}
	return false
}
