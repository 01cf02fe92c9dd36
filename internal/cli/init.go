package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/config"
)

type initOptions struct {
	name        string
	roots       []string
	libraries   []string
	mappers     []string
	interactive bool
	force       bool
}

func newInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a .calleagle.yaml config file",
		Long: `Initialize a CallEagle project in the current directory.

Writes .calleagle.yaml with the source roots, library sources and mapper
directories to load, plus the default traversal settings. Without --root,
Maven and Gradle source directories (src/main/java) are detected.

The project is also registered in ~/.calleagle.conf so commands run from
any subdirectory find it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			return runInit(cmd, cwd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "project name (default: directory name)")
	cmd.Flags().StringSliceVar(&opts.roots, "root", nil, "project source root (repeatable)")
	cmd.Flags().StringSliceVar(&opts.libraries, "library", nil, "library source root (repeatable)")
	cmd.Flags().StringSliceVar(&opts.mappers, "mapper", nil, "directory scanned for mapping XML (repeatable)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "run the interactive setup wizard")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, cwd string, opts initOptions) error {
	configPath := filepath.Join(cwd, config.DefaultConfigFile+".yaml")
	if _, err := os.Stat(configPath); err == nil && !opts.force {
		return fmt.Errorf("%s already exists; use --force to overwrite", configPath)
	}

	cfg := config.Default()
	cfg.Project.Name = opts.name
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cwd)
	}
	cfg.Project.Roots = opts.roots
	if len(cfg.Project.Roots) == 0 {
		cfg.Project.Roots = detectSourceRoots(cwd)
	}
	cfg.Project.Libraries = opts.libraries
	cfg.Project.Mappers = opts.mappers

	out := cmd.OutOrStdout()
	if opts.interactive {
		ok, err := runInteractiveInit(cmd, cwd, cfg)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.WriteConfig(cfg, configPath); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	fmt.Fprintf(out, "Created %s\n", configPath)

	if err := config.RegisterProject(cfg.Project.Name, cwd, configPath); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to register project in %s: %v\n", config.RegistryPath(), err)
	} else {
		fmt.Fprintf(out, "Registered project %q in %s\n", cfg.Project.Name, config.RegistryPath())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Add unpacked library sources under project.libraries to follow calls into them")
	fmt.Fprintln(out, "  2. Add to .gitignore:")
	fmt.Fprintln(out, "       .calleagle/")
	fmt.Fprintln(out, "  3. Run 'calleagle graph <Class.method>' to build a call graph")
	return nil
}
