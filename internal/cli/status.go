package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/config"
)

func newStatusCmd() *cobra.Command {
	var projects bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show loaded sources and registered projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if projects {
				entries := config.ListProjects()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No projects registered in %s\n", config.RegistryPath())
					return nil
				}
				fmt.Fprintf(out, "Registered projects (%s)\n\n", config.RegistryPath())
				for _, e := range entries {
					fmt.Fprintf(out, "  %-20s %s\n", e.Name, e.Root)
				}
				return nil
			}

			s, err := openSession(cmd.Context(), cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			stats := s.ws.Stats()
			fmt.Fprintf(out, "Workspace Status\n")
			fmt.Fprintf(out, "================\n\n")
			if s.cfg.Project.Name != "" {
				fmt.Fprintf(out, "  Project:             %s\n", s.cfg.Project.Name)
			}
			if file := s.cfg.File(); file != "" {
				fmt.Fprintf(out, "  Config:              %s\n", file)
			}
			fmt.Fprintf(out, "  Files:               %d (%d parsed, %d from cache)\n", stats.Files, stats.Parsed, stats.Cached)
			fmt.Fprintf(out, "  Project types:       %d\n", stats.ProjectTypes)
			fmt.Fprintf(out, "  Library types:       %d\n", stats.LibraryTypes)
			fmt.Fprintf(out, "  Methods:             %d\n", stats.Methods)
			fmt.Fprintf(out, "  Mapped statements:   %d\n", stats.Statements)

			if cs, ok, err := s.ws.CacheStats(); err != nil {
				fmt.Fprintf(out, "  Fact cache:          error: %v\n", err)
			} else if ok {
				fmt.Fprintf(out, "  Fact cache:          %d files, %d bytes\n", cs.Files, cs.Bytes)
			} else {
				fmt.Fprintf(out, "  Fact cache:          disabled\n")
			}

			if len(stats.Errors) > 0 {
				errs := append([]string(nil), stats.Errors...)
				sort.Strings(errs)
				fmt.Fprintf(out, "\n  Errors (%d):\n", len(errs))
				for _, e := range errs {
					fmt.Fprintf(out, "    %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&projects, "projects", false, "list projects registered in ~/.calleagle.conf")

	return cmd
}
