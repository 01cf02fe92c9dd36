package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/graph"
	"github.com/imyousuf/CallEagle/internal/metrics"
	"github.com/imyousuf/CallEagle/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		metricsAddr string
		tree        bool
		depths      depthFlags
	)

	cmd := &cobra.Command{
		Use:   "watch <root>",
		Short: "Rebuild a call graph whenever sources change",
		Long: `Load the workspace, build the call graph of <root>, then watch the
project, library and mapper directories. Each change to a .java source
or mapping XML file is applied to the index and the graph is rebuilt.

With --metrics-addr, build and cache metrics are served in the
Prometheus text format at http://<addr>/metrics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Set up signal handling.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case <-sigCh:
					fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
					cancel()
				case <-ctx.Done():
				}
			}()

			var m *metrics.Metrics
			if metricsAddr != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				m = metrics.New(reg)
				srv, err := serveMetrics(ctx, metricsAddr, reg)
				if err != nil {
					return err
				}
				defer srv.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on http://%s/metrics\n", metricsAddr)
			}

			s, err := openSession(ctx, cmd, m)
			if err != nil {
				return err
			}
			defer s.Close()

			cfg := depths.apply(cmd, s.cfg.CallGraph())
			root := args[0]
			rebuild := func(reason string) {
				start := time.Now()
				g, err := s.build(ctx, cfg, root)
				if err != nil {
					if ctx.Err() == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					}
					return
				}
				st := g.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %d nodes, %d edges (%s)\n",
					time.Now().Format("15:04:05"), reason, st.NodeCount, st.EdgeCount,
					time.Since(start).Round(time.Millisecond))
				if tree {
					fmt.Fprintln(cmd.OutOrStdout(), g.Render(graph.RenderOptions{}))
				}
			}

			stats := s.ws.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d roots, %d libraries (%d files, %d mapped statements)\n",
				len(s.cfg.Project.Roots), len(s.cfg.Project.Libraries), stats.Files, stats.Statements)
			rebuild("initial build")

			err = s.ws.Watch(ctx, func(ev watcher.Event) {
				rebuild(fmt.Sprintf("%s %s", ev.Op, ev.Path))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watch: %w", err)
			}

			stats = s.ws.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "\nFinal stats:\n")
			fmt.Fprintf(cmd.OutOrStdout(), "  Files:    %d (%d parsed, %d from cache)\n", stats.Files, stats.Parsed, stats.Cached)
			fmt.Fprintf(cmd.OutOrStdout(), "  Methods:  %d\n", stats.Methods)
			if len(stats.Errors) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "  Errors:   %d\n", len(stats.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	cmd.Flags().BoolVar(&tree, "tree", false, "print the tree after every build")
	depths.register(cmd)

	return cmd
}

// serveMetrics starts an HTTP server for reg in the background.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("metrics server: %w", err)
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
	}
	return srv, nil
}
