package index

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// maxNesting bounds walks over outer-type chains and meta-annotation graphs.
const maxNesting = 16

// Stats summarizes the contents of a MemIndex.
type Stats struct {
	Files        int   `json:"files"`
	ProjectTypes int   `json:"project_types"`
	LibraryTypes int   `json:"library_types"`
	Methods      int   `json:"methods"`
	Revision     int64 `json:"revision"`
}

// MemIndex is an in-memory Index populated file by file.
type MemIndex struct {
	revision atomic.Int64

	mu       sync.RWMutex
	files    map[string]*File
	types    map[string]*Type
	bySimple map[string][]*Type
	methods  map[EntityKey]*Method
}

// NewMemIndex creates an empty index.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		files:    make(map[string]*File),
		types:    make(map[string]*Type),
		bySimple: make(map[string][]*Type),
		methods:  make(map[EntityKey]*Method),
	}
}

// AddFile adds f, replacing any file previously loaded from the same path.
func (x *MemIndex) AddFile(f *File) {
	f.Link()
	x.mu.Lock()
	x.removeFileLocked(f.Path)
	x.files[f.Path] = f
	for _, t := range f.Types {
		x.types[t.Key()] = t
		if t.Name != "" {
			x.bySimple[t.Name] = append(x.bySimple[t.Name], t)
		}
		for _, m := range t.Methods {
			x.methods[m.Key()] = m
		}
	}
	x.mu.Unlock()
	x.revision.Add(1)
}

// RemoveFile drops the file at path. It reports whether the file was loaded.
func (x *MemIndex) RemoveFile(path string) bool {
	x.mu.Lock()
	removed := x.removeFileLocked(path)
	x.mu.Unlock()
	if removed {
		x.revision.Add(1)
	}
	return removed
}

func (x *MemIndex) removeFileLocked(path string) bool {
	old, ok := x.files[path]
	if !ok {
		return false
	}
	delete(x.files, path)
	for _, t := range old.Types {
		if x.types[t.Key()] == t {
			delete(x.types, t.Key())
		}
		if t.Name != "" {
			list := x.bySimple[t.Name]
			kept := list[:0]
			for _, c := range list {
				if c != t {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				delete(x.bySimple, t.Name)
			} else {
				x.bySimple[t.Name] = kept
			}
		}
		for _, m := range t.Methods {
			if x.methods[m.Key()] == m {
				delete(x.methods, m.Key())
			}
		}
	}
	return true
}

// Files returns the loaded files ordered by path.
func (x *MemIndex) Files() []*File {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]*File, 0, len(x.files))
	for _, f := range x.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Stats returns aggregate counts.
func (x *MemIndex) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s := Stats{Files: len(x.files), Methods: len(x.methods), Revision: x.revision.Load()}
	for _, t := range x.types {
		if t.InProject {
			s.ProjectTypes++
		} else {
			s.LibraryTypes++
		}
	}
	return s
}

func (x *MemIndex) Revision() int64 { return x.revision.Load() }

func (x *MemIndex) Type(key string) (*Type, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	t, ok := x.types[key]
	return t, ok
}

func (x *MemIndex) ResolveType(from *Type, ref TypeRef) (*Type, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	t := x.resolveName(from, ref.Name)
	return t, t != nil
}

func (x *MemIndex) Method(key EntityKey) (*Method, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	m, ok := x.methods[key]
	return m, ok
}

func (x *MemIndex) FindMethods(query string) []*Method {
	x.mu.RLock()
	defer x.mu.RUnlock()

	query = strings.ReplaceAll(strings.TrimSpace(query), " ", "")
	if query == "" {
		return nil
	}
	if m, ok := x.methods[EntityKey(query)]; ok {
		return []*Method{m}
	}

	typePart, name, params, hasParams := splitMethodQuery(query)
	var out []*Method
	for _, t := range x.types {
		if typePart != "" && t.QualifiedName != typePart && t.Name != typePart && t.Key() != typePart {
			continue
		}
		for _, m := range t.Methods {
			if m.Name != name {
				continue
			}
			if hasParams && m.ParamList() != params {
				continue
			}
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func splitMethodQuery(q string) (typePart, name, params string, hasParams bool) {
	if i := strings.IndexByte(q, '('); i >= 0 {
		params = strings.TrimSuffix(q[i+1:], ")")
		hasParams = true
		q = q[:i]
	}
	if i := strings.LastIndexByte(q, '#'); i >= 0 {
		return q[:i], q[i+1:], params, hasParams
	}
	if i := strings.LastIndexByte(q, '.'); i >= 0 {
		return q[:i], q[i+1:], params, hasParams
	}
	return "", q, params, hasParams
}

func (x *MemIndex) ResolveCall(from *Method, e *Expr) (*Method, bool) {
	if from == nil || e == nil {
		return nil, false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	m := x.resolveCall(from, e, 0)
	return m, m != nil
}

func (x *MemIndex) TypeOf(from *Method, e *Expr) (TypeRef, bool) {
	if from == nil || e == nil {
		return TypeRef{}, false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.typeOf(from, e, 0)
}

func (x *MemIndex) ResolveVariable(from *Method, e *Expr) (*Variable, bool) {
	if from == nil || e == nil {
		return nil, false
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	v := x.resolveVariable(from, e, 0)
	return v, v != nil
}

func (x *MemIndex) Supertypes(t *Type) []*Type {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.supertypes(t)
}

func (x *MemIndex) Subtypes(t *Type, scope Scope) []*Type {
	if t == nil {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []*Type
	for _, u := range x.types {
		if u == t {
			continue
		}
		if scope == ScopeProject && !u.InProject {
			continue
		}
		if x.isSubtype(u, t) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (x *MemIndex) MethodsByName(t *Type, name string) []*Method {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.methodsByName(t, name)
}

func (x *MemIndex) FindAnnotation(from *Type, anns []Annotation, names ...string) (Annotation, bool) {
	if len(anns) == 0 || len(names) == 0 {
		return Annotation{}, false
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[lastSegment(n)] = true
	}
	for _, a := range anns {
		if want[a.SimpleName()] {
			return a, true
		}
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, a := range anns {
		if x.metaAnnotated(from, a, want, make(map[string]bool)) {
			return a, true
		}
	}
	return Annotation{}, false
}

func (x *MemIndex) metaAnnotated(from *Type, a Annotation, want map[string]bool, seen map[string]bool) bool {
	if len(seen) > maxNesting {
		return false
	}
	at := x.resolveName(from, a.Name)
	if at == nil || at.Kind != KindAnnotation || seen[at.Key()] {
		return false
	}
	seen[at.Key()] = true
	for _, b := range at.Annotations {
		if want[b.SimpleName()] || x.metaAnnotated(at, b, want, seen) {
			return true
		}
	}
	return false
}

func (x *MemIndex) References(v *Variable, scope *Type) []Reference {
	if v == nil {
		return nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	var methods []*Method
	switch {
	case v.Kind != VarField && v.Method != nil:
		methods = []*Method{v.Method}
	case scope != nil && scope.File != nil:
		for _, t := range scope.File.Types {
			if x.enclosedBy(t, scope) {
				methods = append(methods, t.Methods...)
			}
		}
	case scope != nil:
		methods = scope.Methods
	}

	var refs []Reference
	for _, m := range methods {
		if m.Body == nil {
			continue
		}
		writes := make(map[*Expr]bool)
		WalkStmts(m.Body.Stmts, Visitor{Expr: func(e *Expr) bool {
			switch e.Kind {
			case ExprAssign:
				if e.X != nil {
					writes[e.X] = true
				}
			case ExprIdent, ExprFieldAccess:
				if e.Name != v.Name {
					return true
				}
				if rv := x.resolveVariable(m, e, 0); rv != nil && sameVariable(rv, v) {
					refs = append(refs, Reference{Method: m, Expr: e, Write: writes[e]})
				}
			}
			return true
		}})
	}
	return refs
}

func sameVariable(a, b *Variable) bool {
	if a.Kind != b.Kind || a.Name != b.Name {
		return false
	}
	if a.Kind == VarField {
		return a.Field == b.Field
	}
	return a.Method == b.Method
}

func (x *MemIndex) enclosedBy(t, scope *Type) bool {
	cur := t
	for i := 0; cur != nil && i < maxNesting; i++ {
		if cur == scope {
			return true
		}
		cur = x.outer(cur)
	}
	return false
}

func (x *MemIndex) Location(m *Method) Location {
	return Location{FilePath: m.FilePath, Line: m.Line, EndLine: m.EndLine}
}

// --- resolution helpers; callers hold x.mu ---

func (x *MemIndex) outer(t *Type) *Type {
	if t == nil || t.Outer == "" {
		return nil
	}
	return x.types[t.Outer]
}

// resolveName resolves a type name in the lexical context of from.
func (x *MemIndex) resolveName(from *Type, name string) *Type {
	if name == "" {
		return nil
	}
	if t, ok := x.types[name]; ok {
		return t
	}
	cur := from
	for i := 0; cur != nil && i < maxNesting; i++ {
		if cur.IsTypeParam(name) {
			return nil
		}
		if cur.QualifiedName != "" {
			if t, ok := x.types[cur.QualifiedName+"."+name]; ok {
				return t
			}
		}
		cur = x.outer(cur)
	}

	if dot := strings.IndexByte(name, '.'); dot > 0 {
		head := x.resolveName(from, name[:dot])
		if head != nil && head.QualifiedName != "" {
			if t, ok := x.types[head.QualifiedName+name[dot:]]; ok {
				return t
			}
		}
		return nil
	}

	if from != nil && from.File != nil {
		f := from.File
		for _, imp := range f.Imports {
			if !strings.HasSuffix(imp, ".*") && lastSegment(imp) == name {
				if t, ok := x.types[imp]; ok {
					return t
				}
			}
		}
		if f.Package != "" {
			if t, ok := x.types[f.Package+"."+name]; ok {
				return t
			}
		}
		for _, imp := range f.Imports {
			if strings.HasSuffix(imp, ".*") {
				if t, ok := x.types[strings.TrimSuffix(imp, "*")+name]; ok {
					return t
				}
			}
		}
	}
	if t, ok := x.types["java.lang."+name]; ok {
		return t
	}
	if c := x.bySimple[name]; len(c) == 1 {
		return c[0]
	}
	return nil
}

// qualify rewrites ref so its names are type keys where they resolve.
func (x *MemIndex) qualify(ctx *Type, ref TypeRef) TypeRef {
	out := TypeRef{Name: ref.Name, Dims: ref.Dims, Static: ref.Static}
	if t := x.resolveName(ctx, ref.Name); t != nil {
		out.Name = t.Key()
	}
	if len(ref.Args) > 0 {
		out.Args = make([]TypeRef, len(ref.Args))
		for i, a := range ref.Args {
			out.Args[i] = x.qualify(ctx, a)
		}
	}
	return out
}

func (x *MemIndex) refType(ctx *Type, ref TypeRef) *Type {
	if ref.Dims > 0 {
		return nil
	}
	if t, ok := x.types[ref.Name]; ok {
		return t
	}
	return x.resolveName(ctx, ref.Name)
}

func (x *MemIndex) supertypes(t *Type) []*Type {
	if t == nil {
		return nil
	}
	var out []*Type
	if s := x.resolveName(t, t.SuperClass.Name); s != nil && s != t {
		out = append(out, s)
	}
	for _, i := range t.Interfaces {
		if s := x.resolveName(t, i.Name); s != nil && s != t {
			out = append(out, s)
		}
	}
	return out
}

func (x *MemIndex) superClass(t *Type) *Type {
	if t == nil {
		return nil
	}
	return x.resolveName(t, t.SuperClass.Name)
}

// hierarchy returns t followed by its transitive supertypes, breadth first.
func (x *MemIndex) hierarchy(t *Type) []*Type {
	if t == nil {
		return nil
	}
	seen := map[*Type]bool{t: true}
	out := []*Type{t}
	for i := 0; i < len(out); i++ {
		for _, s := range x.supertypes(out[i]) {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (x *MemIndex) isSubtype(u, t *Type) bool {
	for _, s := range x.hierarchy(u)[1:] {
		if s == t {
			return true
		}
	}
	return false
}

func (x *MemIndex) methodsByName(t *Type, name string) []*Method {
	var out []*Method
	for _, h := range x.hierarchy(t) {
		for _, m := range h.Methods {
			if m.Name != name || (m.Constructor && h != t) {
				continue
			}
			hidden := false
			for _, prev := range out {
				if Overrides(prev, m) {
					hidden = true
					break
				}
			}
			if !hidden {
				out = append(out, m)
			}
		}
	}
	return out
}

func (x *MemIndex) fieldOf(t *Type, name string) *Field {
	for _, h := range x.hierarchy(t) {
		for _, f := range h.Fields {
			if f.Name == name {
				return f
			}
		}
	}
	return nil
}

func (x *MemIndex) constructors(t *Type) []*Method {
	if t == nil {
		return nil
	}
	var out []*Method
	for _, m := range t.Methods {
		if m.Constructor {
			out = append(out, m)
		}
	}
	return out
}

// Overrides reports whether m overrides (or re-declares) base: same name,
// same arity and pairwise-compatible erased parameter types, where a type
// variable on either side matches anything.
func Overrides(m, base *Method) bool {
	if m == base || m.Name != base.Name || len(m.Params) != len(base.Params) {
		return false
	}
	if m.Constructor || base.Constructor || base.IsStatic() || base.IsPrivate() {
		return false
	}
	for i := range m.Params {
		mp, bp := m.Params[i].Type, base.Params[i].Type
		if base.IsTypeParam(bp.Name) || m.IsTypeParam(mp.Name) {
			continue
		}
		if mp.Dims != bp.Dims || mp.SimpleName() != bp.SimpleName() {
			return false
		}
	}
	return true
}
