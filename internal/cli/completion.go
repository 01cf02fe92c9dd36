package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Generate or install shell completion scripts",
		Long: `Generate or install shell completion scripts for CallEagle.

Subcommands:
  bash      Print bash completion script to stdout
  zsh       Print zsh completion script to stdout
  fish      Print fish completion script to stdout
  install   Auto-detect shell and install completion script`,
	}

	for _, shell := range []string{"bash", "zsh", "fish"} {
		cmd.AddCommand(newCompletionShellCmd(shell))
	}
	cmd.AddCommand(newCompletionInstallCmd())

	return cmd
}

// genCompletion writes the completion script for shell.
func genCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	default:
		return fmt.Errorf("unsupported shell: %s (want bash, zsh or fish)", shell)
	}
}

func newCompletionShellCmd(shell string) *cobra.Command {
	return &cobra.Command{
		Use:   shell,
		Short: fmt.Sprintf("Generate %s completion script", shell),
		Long: fmt.Sprintf(`Generate %[1]s completion script for CallEagle.

To load completions in your current shell session:
  source <(calleagle completion %[1]s)

To install permanently, use:
  calleagle completion install`, shell),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := genCompletion(cmd.Root(), shell, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to generate %s completion: %w", shell, err)
			}
			return nil
		},
	}
}

func newCompletionInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Auto-detect shell and install completion script",
		Long: `Auto-detect your shell and install the completion script.

If running with sudo/root, installs system-wide:
  - Bash: /etc/bash_completion.d/calleagle
  - Zsh: /usr/local/share/zsh/site-functions/_calleagle

Otherwise, installs for current user:
  - Bash: ~/.bash_completion.d/calleagle (sources from ~/.bashrc)
  - Zsh: ~/.zsh/completions/_calleagle (add to fpath in ~/.zshrc)
  - Fish: ~/.config/fish/completions/calleagle.fish`,
		RunE: runCompletionInstall,
	}
}

// completionTarget returns where the script for shell is installed and
// what the user still has to do.
func completionTarget(shell, home string, root bool) (path, hint string, err error) {
	switch {
	case shell == "bash" && root:
		return "/etc/bash_completion.d/calleagle", "Completion will be available in new shells.", nil
	case shell == "bash":
		return filepath.Join(home, ".bash_completion.d", "calleagle"), `Add to your ~/.bashrc if not already present:
  for f in ~/.bash_completion.d/*; do source "$f"; done

Then reload: source ~/.bashrc`, nil
	case shell == "zsh" && root:
		return "/usr/local/share/zsh/site-functions/_calleagle", "Completion will be available in new shells.", nil
	case shell == "zsh":
		return filepath.Join(home, ".zsh", "completions", "_calleagle"), `Add to your ~/.zshrc if not already present:
  fpath=(~/.zsh/completions $fpath)
  autoload -U compinit && compinit

Then reload: source ~/.zshrc`, nil
	case shell == "fish":
		return filepath.Join(home, ".config", "fish", "completions", "calleagle.fish"), "Completion will be available in new shells.", nil
	default:
		return "", "", fmt.Errorf("unsupported shell: %s (only bash, zsh and fish are supported)", shell)
	}
}

func runCompletionInstall(cmd *cobra.Command, args []string) error {
	shell := detectShell()
	if shell == "" {
		return fmt.Errorf("could not detect shell (SHELL env not set or unsupported shell)")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	completionPath, hint, err := completionTarget(shell, homeDir, isRunningAsRoot())
	if err != nil {
		return err
	}

	var content bytes.Buffer
	if err := genCompletion(cmd.Root(), shell, &content); err != nil {
		return fmt.Errorf("failed to generate %s completion: %w", shell, err)
	}

	parentDir := filepath.Dir(completionPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", parentDir, err)
	}
	if err := os.WriteFile(completionPath, content.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write completion file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installed %s completion to: %s\n\n%s\n", shell, completionPath, hint)
	return nil
}

func detectShell() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		return ""
	}

	base := filepath.Base(shell)
	switch {
	case strings.Contains(base, "bash"):
		return "bash"
	case strings.Contains(base, "zsh"):
		return "zsh"
	case strings.Contains(base, "fish"):
		return "fish"
	default:
		return base
	}
}

func isRunningAsRoot() bool {
	if os.Geteuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return true
	}
	currentUser, err := user.Current()
	if err != nil {
		return false
	}
	return currentUser.Uid == "0"
}
