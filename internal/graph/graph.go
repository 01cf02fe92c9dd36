// Package graph is the call graph produced by a build: nodes keyed by
// EntityKey, deduplicated edges, queries for presentation layers and
// export/render helpers.
package graph

import (
	"sort"

	"github.com/google/uuid"
)

// Graph is assembled by a single builder and read-only once returned.
// Readers may share it across goroutines.
type Graph struct {
	BuildID string
	RootID  string

	nodes map[string]*Node
	edges []*Edge
	out   map[string][]*Edge
	pairs map[[2]string]*Edge
}

// New creates an empty graph with a fresh build ID.
func New(rootID string) *Graph {
	return &Graph{
		BuildID: uuid.NewString(),
		RootID:  rootID,
		nodes:   make(map[string]*Node),
		out:     make(map[string][]*Edge),
		pairs:   make(map[[2]string]*Edge),
	}
}

// AddNode stores n unless a node with the same ID exists, and returns the
// stored node.
func (g *Graph) AddNode(n *Node) *Node {
	if existing, ok := g.nodes[n.ID]; ok {
		return existing
	}
	g.nodes[n.ID] = n
	return n
}

// AddEdge records a call from one node to another. Repeated pairs keep
// their first kind and accumulate distinct lines. It reports whether the
// pair is new.
func (g *Graph) AddEdge(from, to string, kind EdgeKind, line int) bool {
	key := [2]string{from, to}
	if e, ok := g.pairs[key]; ok {
		e.addLine(line)
		return false
	}
	e := &Edge{From: from, To: to, Kind: kind}
	e.addLine(line)
	g.pairs[key] = e
	g.edges = append(g.edges, e)
	g.out[from] = append(g.out[from], e)
	return true
}

func (e *Edge) addLine(line int) {
	if line <= 0 {
		return
	}
	i := sort.SearchInts(e.Lines, line)
	if i < len(e.Lines) && e.Lines[i] == line {
		return
	}
	e.Lines = append(e.Lines, 0)
	copy(e.Lines[i+1:], e.Lines[i:])
	e.Lines[i] = line
}

// HasEdge reports whether from calls to.
func (g *Graph) HasEdge(from, to string) bool {
	_, ok := g.pairs[[2]string{from, to}]
	return ok
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Root returns the root node.
func (g *Graph) Root() *Node {
	return g.nodes[g.RootID]
}

// Nodes returns every node ordered by ID.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns every edge ordered by source then target.
func (g *Graph) Edges() []*Edge {
	out := append([]*Edge(nil), g.edges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// OutEdges returns the edges leaving id in discovery order.
func (g *Graph) OutEdges(id string) []*Edge {
	return g.out[id]
}

// CallTargets returns the nodes id calls, in discovery order.
func (g *Graph) CallTargets(id string) []*Node {
	edges := g.out[id]
	out := make([]*Node, 0, len(edges))
	for _, e := range edges {
		if n, ok := g.nodes[e.To]; ok {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct (from, to) pairs.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Stats computes aggregate counts.
func (g *Graph) Stats() Stats {
	s := Stats{
		NodeCount:       len(g.nodes),
		EdgeCount:       len(g.edges),
		NodesByCategory: make(map[Category]int),
		EdgesByKind:     make(map[EdgeKind]int),
	}
	for _, n := range g.nodes {
		s.NodesByCategory[n.Category]++
		if n.InProject {
			s.ProjectNodes++
		}
	}
	for _, e := range g.edges {
		s.EdgesByKind[e.Kind]++
	}
	return s
}
