package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/config"
)

// Style definitions for config view.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(26)
	valueStyle = lipgloss.NewStyle()
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit project configuration",
		Long: `View or edit CallEagle project configuration.

By default, displays the effective configuration (file, environment and
defaults combined). Use 'config edit' to change traversal settings
interactively.`,
		RunE: runConfigView,
	}

	cmd.AddCommand(newConfigEditCmd())

	return cmd
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	printConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("CallEagle Configuration"))
	fmt.Fprintln(out, headerStyle.Render(strings.Repeat("=", 23)))
	fmt.Fprintln(out)

	printSection(out, "Project")
	printKV(out, "Name", cfg.Project.Name)
	if file := cfg.File(); file != "" {
		printKV(out, "Config file", file)
	} else {
		printKV(out, "Config file", "(defaults)")
	}
	printList(out, "Roots", cfg.Project.Roots)
	printList(out, "Libraries", cfg.Project.Libraries)
	printList(out, "Mappers", cfg.Project.Mappers)
	fmt.Fprintln(out)

	printSection(out, "Traversal")
	printKV(out, "Project max depth", strconv.Itoa(cfg.Traversal.ProjectMaxDepth))
	printKV(out, "Third-party max depth", strconv.Itoa(cfg.Traversal.ThirdPartyMaxDepth))
	printKV(out, "Expand implementations", boolYesNo(cfg.Traversal.ExpandImplementations))
	printKV(out, "Library implementations", boolYesNo(cfg.Traversal.IncludeLibraryImplementations))
	printKV(out, "Filter unused params", boolYesNo(cfg.Traversal.FilterUnusedParams))
	fmt.Fprintln(out)

	printSection(out, "Filters")
	printKV(out, "Skip accessors", boolYesNo(cfg.Filters.SkipAccessors))
	printKV(out, "Skip toString", boolYesNo(cfg.Filters.SkipToString))
	printKV(out, "Skip equals/hashCode", boolYesNo(cfg.Filters.SkipEqualsHashCode))
	printKV(out, "DI match by name", boolYesNo(cfg.DI.MatchByName))
	for _, pattern := range cfg.Filters.Exclude {
		fmt.Fprintf(out, "    %s\n", pattern)
	}
	fmt.Fprintln(out)

	printSection(out, "Cache")
	if cfg.Cache.Dir == "" {
		printKV(out, "Fact cache", "disabled")
	} else {
		printKV(out, "Fact cache", cfg.Cache.Dir)
	}
	fmt.Fprintln(out)

	printSection(out, "Watch Exclusions")
	for _, pattern := range cfg.Watch.Exclude {
		fmt.Fprintf(out, "    %s\n", pattern)
	}
	fmt.Fprintln(out)
}

func printSection(out io.Writer, title string) {
	fmt.Fprintf(out, "  %s\n", headerStyle.Render(title))
}

func printKV(out io.Writer, label, value string) {
	fmt.Fprintf(out, "    %s%s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func printList(out io.Writer, label string, values []string) {
	if len(values) == 0 {
		printKV(out, label, "(none)")
		return
	}
	printKV(out, label, strings.Join(values, ", "))
}

func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit traversal settings interactively",
		Long:  `Edit the depth budgets and expansion switches of the project configuration using an interactive wizard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigEdit(cmd)
		},
	}
}

func runConfigEdit(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	path := cfg.File()
	if path == "" {
		return fmt.Errorf("no project config found; run 'calleagle init' first")
	}

	out := cmd.OutOrStdout()
	form, values := traversalForm(cfg)
	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
		return fmt.Errorf("interactive config edit: %w", err)
	}
	if !values.confirm {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if err := values.apply(cfg); err != nil {
		return err
	}
	if err := config.WriteConfig(cfg, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(out, "Configuration saved to %s\n", path)
	return nil
}

// traversalValues backs the traversal form fields.
type traversalValues struct {
	projectDepth    string
	thirdPartyDepth string
	expandImpls     bool
	libraryImpls    bool
	skipAccessors   bool
	matchByName     bool
	confirm         bool
}

func (v *traversalValues) apply(cfg *config.Config) error {
	pd, err := strconv.Atoi(strings.TrimSpace(v.projectDepth))
	if err != nil {
		return fmt.Errorf("project max depth: %w", err)
	}
	td, err := strconv.Atoi(strings.TrimSpace(v.thirdPartyDepth))
	if err != nil {
		return fmt.Errorf("third-party max depth: %w", err)
	}
	cfg.Traversal.ProjectMaxDepth = pd
	cfg.Traversal.ThirdPartyMaxDepth = td
	cfg.Traversal.ExpandImplementations = v.expandImpls
	cfg.Traversal.IncludeLibraryImplementations = v.libraryImpls
	cfg.Filters.SkipAccessors = v.skipAccessors
	cfg.DI.MatchByName = v.matchByName
	return nil
}

func validateDepth(min int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if n < min {
			return fmt.Errorf("must be at least %d", min)
		}
		return nil
	}
}

// traversalForm builds the wizard pages shared by init and config edit.
func traversalForm(cfg *config.Config) (*huh.Form, *traversalValues) {
	v := &traversalValues{
		projectDepth:    strconv.Itoa(cfg.Traversal.ProjectMaxDepth),
		thirdPartyDepth: strconv.Itoa(cfg.Traversal.ThirdPartyMaxDepth),
		expandImpls:     cfg.Traversal.ExpandImplementations,
		libraryImpls:    cfg.Traversal.IncludeLibraryImplementations,
		skipAccessors:   cfg.Filters.SkipAccessors,
		matchByName:     cfg.DI.MatchByName,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project max depth").
				Description("Levels of project calls to follow from the root").
				Value(&v.projectDepth).
				Validate(validateDepth(1)),
			huh.NewInput().
				Title("Third-party max depth").
				Description("Extra levels allowed below a library call (0 keeps library calls as leaves)").
				Value(&v.thirdPartyDepth).
				Validate(validateDepth(0)),
		).Title("Depth Budgets"),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Expand interface calls to implementations?").
				Value(&v.expandImpls).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Include implementations found in libraries?").
				Value(&v.libraryImpls).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Skip getters and setters?").
				Value(&v.skipAccessors).
				Affirmative("Yes").
				Negative("No"),
			huh.NewConfirm().
				Title("Narrow injected beans by field name?").
				Value(&v.matchByName).
				Affirmative("Yes").
				Negative("No"),
		).Title("Expansion"),

		huh.NewGroup(
			huh.NewNote().
				Title("Summary").
				DescriptionFunc(func() string {
					return fmt.Sprintf(
						"Depth:        %s project / %s third-party\n"+
							"Expand impls: %v (libraries: %v)\n"+
							"Skip getters: %v\n"+
							"DI by name:   %v",
						v.projectDepth, v.thirdPartyDepth,
						v.expandImpls, v.libraryImpls, v.skipAccessors, v.matchByName,
					)
				}, v),
			huh.NewConfirm().
				Title("Save changes?").
				Value(&v.confirm).
				Affirmative("Save").
				Negative("Cancel"),
		).Title("Confirm"),
	).WithTheme(huh.ThemeCharm())

	return form, v
}
