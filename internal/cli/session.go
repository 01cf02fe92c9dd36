package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/callgraph"
	"github.com/imyousuf/CallEagle/internal/config"
	"github.com/imyousuf/CallEagle/internal/graph"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/metrics"
	"github.com/imyousuf/CallEagle/internal/workspace"
)

// session is a loaded workspace plus the settings builds run with.
type session struct {
	cfg     *config.Config
	ws      *workspace.Workspace
	cache   *cache.Cache
	metrics *metrics.Metrics
	log     func(format string, args ...any)
}

// newLogger returns a stderr logger when --verbose is set, else nil.
func newLogger(cmd *cobra.Command) func(format string, args ...any) {
	if !verbose {
		return nil
	}
	w := cmd.ErrOrStderr()
	return func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}
}

// openSession loads and validates the configuration, then loads the
// workspace it describes. m may be nil.
func openSession(ctx context.Context, cmd *cobra.Command, m *metrics.Metrics) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := newLogger(cmd)
	wcfg := cfg.Workspace()
	wcfg.Verbose = verbose
	wcfg.Logger = log
	ws, err := workspace.Open(wcfg)
	if err != nil {
		return nil, err
	}
	if err := ws.Load(ctx); err != nil {
		ws.Close()
		return nil, err
	}
	return &session{
		cfg:     cfg,
		ws:      ws,
		cache:   cache.New(ws.Index(), cache.WithMetrics(m), cache.WithLogger(log)),
		metrics: m,
		log:     log,
	}, nil
}

func (s *session) Close() error { return s.ws.Close() }

// build builds the graph of root against a consistent snapshot.
func (s *session) build(ctx context.Context, cfg callgraph.Config, root string) (*graph.Graph, error) {
	var g *graph.Graph
	err := s.ws.View(func(idx *index.MemIndex) error {
		b, err := callgraph.New(idx, cfg,
			callgraph.WithCache(s.cache),
			callgraph.WithStatements(s.ws.Statements()),
			callgraph.WithMetrics(s.metrics),
			callgraph.WithLogger(s.log),
		)
		if err != nil {
			return err
		}
		g, err = b.BuildKey(ctx, root)
		return err
	})
	return g, err
}

// depthFlags holds per-command overrides of the traversal budgets.
type depthFlags struct {
	project    int
	thirdParty int
}

func (d *depthFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&d.project, "project-depth", 0, "project max depth (overrides config)")
	cmd.Flags().IntVar(&d.thirdParty, "third-party-depth", 0, "third-party max depth (overrides config)")
}

// apply returns cfg with the flags the user set.
func (d *depthFlags) apply(cmd *cobra.Command, cfg callgraph.Config) callgraph.Config {
	if cmd.Flags().Changed("project-depth") {
		cfg.ProjectMaxDepth = d.project
	}
	if cmd.Flags().Changed("third-party-depth") {
		cfg.ThirdPartyMaxDepth = d.thirdParty
	}
	return cfg
}
