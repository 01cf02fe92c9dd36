package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Start an MCP (Model Context Protocol) server over stdin/stdout.

The server loads the configured workspace once and exposes the call_graph,
call_targets and index_status tools to MCP clients. Graphs are cached
until the sources they were built from change.

This command is typically launched by an MCP client, not run directly.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Handle signals for graceful shutdown.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					cancel()
				case <-ctx.Done():
				}
			}()

			s, err := openSession(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer s.Close()

			// Tool call logs go to --log if set, else to stderr with -v.
			logger := s.log
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
				if err != nil {
					return fmt.Errorf("open log file %s: %w", logFile, err)
				}
				defer f.Close()
				logger = func(format string, args ...any) {
					fmt.Fprintf(f, format+"\n", args...)
					f.Sync()
				}
			}

			server := mcp.NewServer(s.ws, s.cfg.CallGraph(), mcp.Options{
				Version: Version,
				Logger:  logger,
			})

			// stdout carries the protocol.
			fmt.Fprintln(os.Stderr, "calleagle MCP server started")

			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log", "", "path to write tool call logs")

	return cmd
}
