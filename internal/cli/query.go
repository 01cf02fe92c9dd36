package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/index"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the source index directly",
		Long: `Query the source index without building a call graph.

Subcommands:
  methods          List methods matching a root query
  implementations  List the subtypes of a class or interface`,
	}

	cmd.AddCommand(newQueryMethodsCmd())
	cmd.AddCommand(newQueryImplementationsCmd())

	return cmd
}

// methodEntry is one method in query output.
type methodEntry struct {
	Key       string `json:"key"`
	Location  string `json:"location"`
	InProject bool   `json:"in_project"`
}

func newQueryMethodsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "methods <query>",
		Short: "List methods matching a query",
		Long: `List the methods a root query resolves to. The query takes the same
forms graph accepts: "Type#name(params)", "Type#name", "Type.name" or a
bare method name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			var entries []methodEntry
			err = s.ws.View(func(idx *index.MemIndex) error {
				for _, m := range idx.FindMethods(args[0]) {
					entries = append(entries, methodEntry{
						Key:       string(m.Key()),
						Location:  idx.Location(m).String(),
						InProject: m.Owner != nil && m.Owner.InProject,
					})
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No methods matching %q found.\n", args[0])
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%-8s %s  (%s)\n", origin(e.InProject), e.Key, e.Location)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")

	return cmd
}

// typeEntry is one subtype in query output.
type typeEntry struct {
	Name      string         `json:"name"`
	Kind      index.TypeKind `json:"kind"`
	Abstract  bool           `json:"abstract,omitempty"`
	Location  string         `json:"location"`
	InProject bool           `json:"in_project"`
}

func newQueryImplementationsCmd() *cobra.Command {
	var (
		jsonOut   bool
		libraries bool
	)

	cmd := &cobra.Command{
		Use:   "implementations <type>",
		Short: "List the subtypes of a class or interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			scope := index.ScopeProject
			if libraries {
				scope = index.ScopeAll
			}

			var entries []typeEntry
			err = s.ws.View(func(idx *index.MemIndex) error {
				t, ok := idx.Type(args[0])
				if !ok {
					return fmt.Errorf("type %s not found", args[0])
				}
				for _, sub := range idx.Subtypes(t, scope) {
					entries = append(entries, typeEntry{
						Name:      sub.Key(),
						Kind:      sub.Kind,
						Abstract:  sub.IsAbstract(),
						Location:  index.Location{FilePath: sub.FilePath, Line: sub.Line}.String(),
						InProject: sub.InProject,
					})
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No implementations of %s found.\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Implementations of %s:\n", args[0])
			for _, e := range entries {
				kind := string(e.Kind)
				if e.Abstract {
					kind = "abstract " + kind
				}
				fmt.Fprintf(out, "  %-8s %-16s %s  (%s)\n", origin(e.InProject), kind, e.Name, e.Location)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&libraries, "libraries", false, "include subtypes declared in library sources")

	return cmd
}

func origin(inProject bool) string {
	if inProject {
		return "project"
	}
	return "library"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
