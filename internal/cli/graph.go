package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		format    string
		output    string
		plain     bool
		locations bool
		depths    depthFlags
	)

	cmd := &cobra.Command{
		Use:   "graph <root>",
		Short: "Build and print the call graph of a method",
		Long: `Build the call graph rooted at a method and print it.

The root is an entity key such as com.acme.OrderService#place(String),
or a shorter query (OrderService.place) that matches exactly one method.

Formats:
  tree    Indented tree (default)
  json    One JSON document with nodes, edges and stats
  jsonl   One record per node with its call targets`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "tree" && format != "json" && format != "jsonl" {
				return fmt.Errorf("unknown format %q (want tree, json or jsonl)", format)
			}

			s, err := openSession(cmd.Context(), cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			g, err := s.build(cmd.Context(), depths.apply(cmd, s.cfg.CallGraph()), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				out = f
				plain = true
			}
			if err := writeGraph(out, g, format, graph.RenderOptions{Plain: plain, Locations: locations}); err != nil {
				return err
			}
			if output != "" {
				st := g.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d nodes and %d edges to %s\n", st.NodeCount, st.EdgeCount, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, json or jsonl")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&plain, "plain", false, "disable colors in tree output")
	cmd.Flags().BoolVar(&locations, "locations", false, "show file:line for each node in tree output")
	depths.register(cmd)

	return cmd
}

func writeGraph(w io.Writer, g *graph.Graph, format string, opts graph.RenderOptions) error {
	switch format {
	case "json":
		return g.WriteJSON(w)
	case "jsonl":
		return g.WriteJSONL(w)
	default:
		_, err := fmt.Fprintln(w, g.Render(opts))
		return err
	}
}
