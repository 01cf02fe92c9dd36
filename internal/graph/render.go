package graph

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

var (
	rootStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	badgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#A0522D", Dark: "#E5C07B"})
	libraryStyle = lipgloss.NewStyle().Faint(true)
	enumStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderOptions controls Render output.
type RenderOptions struct {
	// Plain disables colors and emphasis.
	Plain bool
	// Locations appends file:line to each node.
	Locations bool
}

// Render draws the graph as a tree rooted at RootID. A node reached again
// is shown once more without children, marked as recursive when it is an
// ancestor on the current branch and as shared otherwise.
func (g *Graph) Render(opts RenderOptions) string {
	root := g.Root()
	if root == nil {
		return ""
	}
	r := renderer{g: g, opts: opts, expanded: map[string]bool{}, onPath: map[string]bool{}}
	t := tree.Root(r.label(root, ""))
	if !opts.Plain {
		t = t.RootStyle(rootStyle).EnumeratorStyle(enumStyle)
	}
	r.expand(t, root.ID)
	return t.String()
}

type renderer struct {
	g        *Graph
	opts     RenderOptions
	expanded map[string]bool
	onPath   map[string]bool
}

func (r *renderer) expand(t *tree.Tree, id string) {
	r.expanded[id] = true
	r.onPath[id] = true
	defer delete(r.onPath, id)

	for _, e := range r.g.out[id] {
		n, ok := r.g.nodes[e.To]
		if !ok {
			continue
		}
		label := r.label(n, e.Kind)
		switch {
		case r.onPath[n.ID]:
			t.Child(label + r.badge(" (recursive)"))
		case r.expanded[n.ID]:
			if len(r.g.out[n.ID]) > 0 {
				label += r.badge(" (shared)")
			}
			t.Child(label)
		case len(r.g.out[n.ID]) == 0:
			r.expanded[n.ID] = true
			t.Child(label)
		default:
			sub := tree.Root(label)
			if !r.opts.Plain {
				sub = sub.EnumeratorStyle(enumStyle)
			}
			r.expand(sub, n.ID)
			t.Child(sub)
		}
	}
}

func (r *renderer) label(n *Node, via EdgeKind) string {
	s := n.DisplayName
	if !n.InProject && !r.opts.Plain {
		s = libraryStyle.Render(s)
	}
	if via != "" && via != EdgeDirect {
		s = r.badge(fmt.Sprintf("(%s) ", via)) + s
	}
	if n.Category != CategoryMethod && n.Category != "" {
		tag := string(n.Category)
		if route := n.Flags["route"]; route != "" {
			tag += " " + route
		}
		s += r.badge(" [" + tag + "]")
	}
	if r.opts.Locations && n.FilePath != "" {
		s += fmt.Sprintf("  %s:%d", n.FilePath, n.Line)
	}
	return s
}

func (r *renderer) badge(s string) string {
	if r.opts.Plain {
		return s
	}
	return badgeStyle.Render(s)
}
