// Package framework classifies methods by the framework role their
// annotations give them: request endpoints, mapper methods and managed
// components. Analyzers are tried in order and the first that accepts a
// method decides its category.
package framework

import (
	"strings"

	"github.com/imyousuf/CallEagle/internal/annotations"
	"github.com/imyousuf/CallEagle/internal/graph"
	"github.com/imyousuf/CallEagle/internal/index"
)

// Info is the framework classification of a method.
type Info struct {
	Category graph.Category
	Flags    map[string]string
}

// Analyzer recognizes one framework role.
type Analyzer interface {
	Name() string
	CanAnalyze(m *index.Method) bool
	Analyze(m *index.Method) Info
}

// Namespaces reports whether a mapper namespace is known. *sqlmap.Index
// satisfies it.
type Namespaces interface {
	HasNamespace(ns string) bool
}

// Detector runs analyzers in order.
type Detector struct {
	analyzers []Analyzer
}

// NewDetector returns a Detector with the given analyzers.
func NewDetector(analyzers ...Analyzer) *Detector {
	return &Detector{analyzers: analyzers}
}

// Default returns the standard analyzer list: Spring MVC endpoints, JAX-RS
// endpoints, MyBatis mappers and Spring components. mappers may be nil.
func Default(idx index.Index, mappers Namespaces) *Detector {
	return NewDetector(
		&SpringEndpoint{idx: idx},
		&JAXRSEndpoint{idx: idx},
		&Mapper{idx: idx, namespaces: mappers},
		&Component{idx: idx},
	)
}

// Detect classifies m. Methods no analyzer accepts are plain methods.
func (d *Detector) Detect(m *index.Method) Info {
	if d != nil && m != nil && m.Owner != nil {
		for _, a := range d.analyzers {
			if a.CanAnalyze(m) {
				info := a.Analyze(m)
				if info.Flags == nil {
					info.Flags = make(map[string]string)
				}
				info.Flags["framework"] = a.Name()
				return info
			}
		}
	}
	return Info{Category: graph.CategoryMethod}
}

// SpringEndpoint recognizes request-mapped handler methods on controllers.
type SpringEndpoint struct {
	idx index.Index
}

func (a *SpringEndpoint) Name() string { return "spring-mvc" }

func (a *SpringEndpoint) CanAnalyze(m *index.Method) bool {
	if _, ok := a.idx.FindAnnotation(m.Owner, m.Owner.Annotations, annotations.Controllers...); !ok {
		return false
	}
	_, ok := a.mapping(m)
	return ok
}

func (a *SpringEndpoint) Analyze(m *index.Method) Info {
	ann, _ := a.mapping(m)
	verb := annotations.RequestMappings[ann.SimpleName()]
	if verb == "" {
		if v, ok := ann.Value("method"); ok {
			verb = strings.ToUpper(strings.Trim(lastSegment(firstItem(v)), "{} "))
		}
	}
	if verb == "" {
		verb = "ANY"
	}
	path := mappingPath(ann)
	if base, ok := a.idx.FindAnnotation(m.Owner, m.Owner.Annotations, "RequestMapping"); ok {
		path = joinPath(mappingPath(base), path)
	} else {
		path = joinPath("", path)
	}
	return endpoint(verb, path)
}

func (a *SpringEndpoint) mapping(m *index.Method) (index.Annotation, bool) {
	return a.idx.FindAnnotation(m.Owner, m.Annotations, annotations.Keys(annotations.RequestMappings)...)
}

func mappingPath(a index.Annotation) string {
	if v, ok := a.Value("value"); ok {
		return firstItem(v)
	}
	if v, ok := a.Value("path"); ok {
		return firstItem(v)
	}
	return ""
}

// JAXRSEndpoint recognizes resource methods carrying an HTTP verb designator.
type JAXRSEndpoint struct {
	idx index.Index
}

func (a *JAXRSEndpoint) Name() string { return "jax-rs" }

func (a *JAXRSEndpoint) CanAnalyze(m *index.Method) bool {
	_, ok := a.idx.FindAnnotation(m.Owner, m.Annotations, annotations.HTTPVerbs...)
	return ok
}

func (a *JAXRSEndpoint) Analyze(m *index.Method) Info {
	verbAnn, _ := a.idx.FindAnnotation(m.Owner, m.Annotations, annotations.HTTPVerbs...)
	var base, sub string
	if p, ok := a.idx.FindAnnotation(m.Owner, m.Owner.Annotations, annotations.Path...); ok {
		base, _ = p.Value("value")
	}
	if p, ok := a.idx.FindAnnotation(m.Owner, m.Annotations, annotations.Path...); ok {
		sub, _ = p.Value("value")
	}
	return endpoint(verbAnn.SimpleName(), joinPath(base, sub))
}

// Mapper recognizes MyBatis mapper methods: members of @Mapper interfaces,
// of types whose name is a mapper XML namespace, or carrying a statement
// annotation.
type Mapper struct {
	idx        index.Index
	namespaces Namespaces
}

func (a *Mapper) Name() string { return "mybatis" }

func (a *Mapper) CanAnalyze(m *index.Method) bool {
	if _, ok := a.idx.FindAnnotation(m.Owner, m.Owner.Annotations, annotations.Mapper...); ok {
		return true
	}
	if a.namespaces != nil && a.namespaces.HasNamespace(m.Owner.Key()) {
		return true
	}
	_, ok := a.statement(m)
	return ok
}

func (a *Mapper) Analyze(m *index.Method) Info {
	flags := map[string]string{"namespace": m.Owner.Key()}
	if s, ok := a.statement(m); ok {
		flags["statement"] = annotations.SQLStatements[s.SimpleName()]
	}
	return Info{Category: graph.CategoryMapper, Flags: flags}
}

func (a *Mapper) statement(m *index.Method) (index.Annotation, bool) {
	return a.idx.FindAnnotation(m.Owner, m.Annotations, annotations.Keys(annotations.SQLStatements)...)
}

// Component recognizes methods of stereotype-annotated managed types.
type Component struct {
	idx index.Index
}

func (a *Component) Name() string { return "spring" }

func (a *Component) CanAnalyze(m *index.Method) bool {
	_, ok := a.idx.FindAnnotation(m.Owner, m.Owner.Annotations, annotations.Stereotypes...)
	return ok
}

func (a *Component) Analyze(m *index.Method) Info {
	ann, _ := a.idx.FindAnnotation(m.Owner, m.Owner.Annotations, annotations.Stereotypes...)
	flags := map[string]string{"stereotype": ann.SimpleName()}
	if name, ok := ann.Value("value"); ok && name != "" {
		flags["bean"] = name
	} else {
		flags["bean"] = index.Decapitalize(m.Owner.Name)
	}
	return Info{Category: graph.CategoryComponent, Flags: flags}
}

func endpoint(verb, path string) Info {
	return Info{
		Category: graph.CategoryEndpoint,
		Flags: map[string]string{
			"http_method": verb,
			"path":        path,
			"route":       verb + " " + path,
		},
	}
}

// joinPath concatenates route segments, collapsing double slashes and
// ensuring a leading slash.
func joinPath(base, sub string) string {
	p := strings.TrimSpace(base) + "/" + strings.TrimSpace(sub)
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// firstItem returns the first element of a comma-joined array value.
// A value that is not an array literal, such as "/{id}", is returned whole.
func firstItem(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "{") && strings.HasSuffix(v, "}") {
		if inner := v[1 : len(v)-1]; strings.ContainsAny(inner, `",`) || strings.TrimSpace(inner) == "" {
			v = strings.TrimSpace(inner)
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
		}
	}
	return strings.Trim(strings.TrimSpace(v), `"`)
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}
