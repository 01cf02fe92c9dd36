package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/graph"
)

func newTargetsCmd() *cobra.Command {
	var (
		asJSON bool
		depths depthFlags
	)

	cmd := &cobra.Command{
		Use:   "targets <root> <node>",
		Short: "List what one node of a call graph calls",
		Long: `Build the call graph of <root> and list the call targets of <node>.

<node> is a node id (an entity key, or sql:namespace#id for statements)
or a method query that matches exactly one node of the graph.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			g, err := s.build(cmd.Context(), depths.apply(cmd, s.cfg.CallGraph()), args[0])
			if err != nil {
				return err
			}
			id, err := findNode(s, g, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			targets := g.CallTargets(id)
			if asJSON {
				if targets == nil {
					targets = []*graph.Node{}
				}
				return writeJSON(out, targets)
			}
			if len(targets) == 0 {
				fmt.Fprintf(out, "%s calls nothing in this graph\n", id)
				return nil
			}
			kinds := make(map[string]graph.EdgeKind)
			for _, e := range g.OutEdges(id) {
				kinds[e.To] = e.Kind
			}
			for _, n := range targets {
				fmt.Fprintf(out, "  %-16s %s", kinds[n.ID], n.DisplayName)
				if n.FilePath != "" {
					fmt.Fprintf(out, "  %s:%d", n.FilePath, n.Line)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print target nodes as JSON")
	depths.register(cmd)

	return cmd
}

// findNode resolves query to a node of g: an exact id, else the single
// method matching query that the graph contains.
func findNode(s *session, g *graph.Graph, query string) (string, error) {
	if _, ok := g.Node(query); ok {
		return query, nil
	}
	var found []string
	for _, m := range s.ws.Index().FindMethods(query) {
		if _, ok := g.Node(string(m.Key())); ok {
			found = append(found, string(m.Key()))
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("node %q is not in the graph", query)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("node %q matches %d graph nodes: %v", query, len(found), found)
	}
}
