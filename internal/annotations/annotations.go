// Package annotations lists the framework annotation simple names the engine
// recognizes. Names are matched by simple name, directly or through
// meta-annotations resolved by the index.
package annotations

var (
	// Inject marks fields, setters and constructors whose values are supplied by the container.
	Inject = []string{"Autowired", "Inject", "Resource"}

	// Qualifier carries a bean name on an injection point or a candidate.
	Qualifier = []string{"Qualifier", "Named"}

	// Primary marks the preferred candidate among several implementations.
	Primary = []string{"Primary"}

	// Stereotypes register a type as a managed component. The value element
	// is the bean name.
	Stereotypes = []string{
		"Component", "Service", "Repository", "Controller", "RestController",
		"Configuration", "Named", "ManagedBean",
	}

	// Bean marks factory methods whose parameters are injected.
	Bean = []string{"Bean"}

	// Controllers hold request-mapped handler methods.
	Controllers = []string{"Controller", "RestController"}

	// Mapper marks MyBatis mapper interfaces.
	Mapper = []string{"Mapper"}

	// RequiredArgsConstructor makes final instance fields constructor-injected.
	RequiredArgsConstructor = []string{"RequiredArgsConstructor"}

	// AllArgsConstructor makes every instance field constructor-injected.
	AllArgsConstructor = []string{"AllArgsConstructor"}

	// Path is the JAX-RS resource path annotation.
	Path = []string{"Path"}
)

// RequestMappings maps Spring MVC mapping annotations to their HTTP verb.
// RequestMapping takes its verb from the method element.
var RequestMappings = map[string]string{
	"RequestMapping": "",
	"GetMapping":     "GET",
	"PostMapping":    "POST",
	"PutMapping":     "PUT",
	"DeleteMapping":  "DELETE",
	"PatchMapping":   "PATCH",
}

// HTTPVerbs are the JAX-RS method designators.
var HTTPVerbs = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// SQLStatements maps MyBatis statement annotations to statement kinds.
var SQLStatements = map[string]string{
	"Select": "select",
	"Insert": "insert",
	"Update": "update",
	"Delete": "delete",
}

// Keys returns the keys of m in no particular order.
func Keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
