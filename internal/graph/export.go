package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Record is the export form of one node: its identifier, signature, source
// snippet and the identifiers of the nodes it calls.
type Record struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Signature string            `json:"signature"`
	Category  Category          `json:"category"`
	InProject bool              `json:"in_project"`
	Location  string            `json:"location,omitempty"`
	Flags     map[string]string `json:"flags,omitempty"`
	Snippet   string            `json:"snippet,omitempty"`
	Targets   []string          `json:"targets"`
}

// Export returns one record per node, in depth-first order from the root.
// Nodes unreachable from the root follow in ID order.
func (g *Graph) Export() []Record {
	var out []Record
	seen := make(map[string]bool, len(g.nodes))
	var visit func(id string)
	visit = func(id string) {
		if seen[id] {
			return
		}
		n, ok := g.nodes[id]
		if !ok {
			return
		}
		seen[id] = true
		out = append(out, g.record(n))
		for _, e := range g.out[id] {
			visit(e.To)
		}
	}
	visit(g.RootID)

	var rest []string
	for id := range g.nodes {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		visit(id)
	}
	return out
}

func (g *Graph) record(n *Node) Record {
	r := Record{
		ID:        n.ID,
		Name:      n.DisplayName,
		Signature: n.Signature,
		Category:  n.Category,
		InProject: n.InProject,
		Flags:     n.Flags,
		Snippet:   n.Snippet,
		Targets:   make([]string, 0, len(g.out[n.ID])),
	}
	if n.FilePath != "" {
		r.Location = fmt.Sprintf("%s:%d", n.FilePath, n.Line)
	}
	for _, e := range g.out[n.ID] {
		r.Targets = append(r.Targets, e.To)
	}
	return r
}

// document is the JSON form of a whole graph.
type document struct {
	BuildID string  `json:"build_id"`
	RootID  string  `json:"root_id"`
	Stats   Stats   `json:"stats"`
	Nodes   []*Node `json:"nodes"`
	Edges   []*Edge `json:"edges"`
}

// WriteJSON writes the graph as one indented JSON document with nodes and
// edges in sorted order.
func (g *Graph) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := document{
		BuildID: g.BuildID,
		RootID:  g.RootID,
		Stats:   g.Stats(),
		Nodes:   g.Nodes(),
		Edges:   g.Edges(),
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// WriteJSONL writes one export record per line, in Export order.
func (g *Graph) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, r := range g.Export() {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
	}
	return nil
}
