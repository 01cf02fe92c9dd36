// Package cli implements the command-line interface for CallEagle.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Use:   "calleagle",
		Short: "CallEagle - framework-aware call graphs for Java codebases",
		Long: `CallEagle builds static call graphs rooted at a method. It follows
interface calls to their implementations, narrows them with Spring-style
dependency-injection rules, marks web endpoints and MyBatis mappers, and
budgets depth separately for project and library code.

Commands:
  init       Initialize a .calleagle.yaml config file
  graph      Build and print the call graph of a method
  targets    List what one node of a call graph calls
  query      Look up methods and implementations in the index
  watch      Rebuild a call graph whenever sources change
  status     Show loaded sources and registered projects
  config     Show the effective configuration
  serve      Run the MCP server over stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .calleagle.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	if err := viper.BindPFlag("config_file", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		panic(fmt.Sprintf("failed to bind config flag: %v", err))
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newGraphCmd())
	rootCmd.AddCommand(newTargetsCmd())
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
