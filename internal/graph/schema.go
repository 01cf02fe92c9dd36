package graph

// Category classifies what a node represents to the framework.
type Category string

const (
	CategoryMethod    Category = "method"
	CategoryEndpoint  Category = "endpoint"
	CategoryComponent Category = "component"
	CategoryMapper    Category = "mapper"
	CategorySQL       Category = "sql"
)

// EdgeKind describes how the source node reaches the target.
type EdgeKind string

const (
	EdgeDirect         EdgeKind = "direct"
	EdgeSuper          EdgeKind = "super"
	EdgeConstructor    EdgeKind = "constructor"
	EdgeMethodRef      EdgeKind = "method_ref"
	EdgeImplementation EdgeKind = "implementation"
	EdgeSQL            EdgeKind = "sql"
)

// Node is a method, or a data-access statement, reached by a build. Nodes
// are created once per ID and never modified afterwards.
type Node struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	OwnerType   string            `json:"owner_type,omitempty"`
	Signature   string            `json:"signature"`
	Category    Category          `json:"category"`
	InProject   bool              `json:"in_project"`
	Flags       map[string]string `json:"flags,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	Line        int               `json:"line,omitempty"`
	Snippet     string            `json:"snippet,omitempty"`
}

// Edge connects two nodes. A (From, To) pair occurs once per graph; Lines
// records every distinct call line that produced it.
type Edge struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Kind  EdgeKind `json:"kind"`
	Lines []int    `json:"lines,omitempty"`
}

// Stats holds aggregate counts for a graph.
type Stats struct {
	NodeCount       int              `json:"node_count"`
	EdgeCount       int              `json:"edge_count"`
	ProjectNodes    int              `json:"project_nodes"`
	NodesByCategory map[Category]int `json:"nodes_by_category"`
	EdgesByKind     map[EdgeKind]int `json:"edges_by_kind"`
}
