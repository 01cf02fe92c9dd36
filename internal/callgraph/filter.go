package callgraph

import (
	"strings"
	"unicode"

	"github.com/imyousuf/CallEagle/internal/index"
)

// Filters selects member kinds suppressed as call targets.
type Filters struct {
	SkipAccessors      bool
	SkipToString       bool
	SkipEqualsHashCode bool
}

// Suppressed reports whether m is a member the filters hide.
func (f Filters) Suppressed(m *index.Method) bool {
	if m == nil || m.Constructor || m.IsStatic() {
		return false
	}
	switch {
	case f.SkipToString && m.Name == "toString" && len(m.Params) == 0:
		return true
	case f.SkipEqualsHashCode && m.Name == "equals" && len(m.Params) == 1:
		return true
	case f.SkipEqualsHashCode && m.Name == "hashCode" && len(m.Params) == 0:
		return true
	case f.SkipAccessors:
		return IsGetter(m) || IsSetter(m)
	}
	return false
}

// IsGetter reports whether m follows the getX/isX accessor convention.
func IsGetter(m *index.Method) bool {
	if len(m.Params) != 0 || m.ReturnType.IsZero() || m.ReturnType.Name == "void" {
		return false
	}
	if propertyName(m.Name, "get") {
		return true
	}
	rt := m.ReturnType.Name
	return propertyName(m.Name, "is") && (rt == "boolean" || rt == "Boolean" || rt == "java.lang.Boolean")
}

// IsSetter reports whether m follows the setX(value) accessor convention.
func IsSetter(m *index.Method) bool {
	return len(m.Params) == 1 && propertyName(m.Name, "set")
}

func propertyName(name, prefix string) bool {
	if !strings.HasPrefix(name, prefix) || len(name) == len(prefix) {
		return false
	}
	r := rune(name[len(prefix)])
	return unicode.IsUpper(r) || r == '_'
}
