// Package mcp exposes call-graph queries as Model Context Protocol tools
// over stdio, for agents and editor integrations.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/imyousuf/CallEagle/internal/cache"
	"github.com/imyousuf/CallEagle/internal/callgraph"
	"github.com/imyousuf/CallEagle/internal/graph"
	"github.com/imyousuf/CallEagle/internal/index"
	"github.com/imyousuf/CallEagle/internal/metrics"
	"github.com/imyousuf/CallEagle/internal/sqlmap"
	"github.com/imyousuf/CallEagle/internal/workspace"
)

const serverName = "calleagle"

// Workspace is the source snapshot tools build against. *workspace.Workspace
// satisfies it.
type Workspace interface {
	View(fn func(idx *index.MemIndex) error) error
	Index() *index.MemIndex
	Statements() *sqlmap.Index
	Stats() workspace.Stats
}

// Options configures a Server.
type Options struct {
	Version string
	Metrics *metrics.Metrics
	Logger  func(format string, args ...any)
}

// Server serves call-graph tools for one workspace.
type Server struct {
	ws    Workspace
	cfg   callgraph.Config
	opts  Options
	cache *cache.Cache
	mcp   *gomcp.Server
}

// CallGraphArgs are the call_graph tool arguments.
type CallGraphArgs struct {
	Root               string `json:"root" jsonschema:"the root method: an entity key such as com.acme.OrderService#place(String) or Type.method"`
	ProjectMaxDepth    int    `json:"project_max_depth,omitempty" jsonschema:"overrides the project depth budget"`
	ThirdPartyMaxDepth *int   `json:"third_party_max_depth,omitempty" jsonschema:"overrides the third-party depth budget"`
	Format             string `json:"format,omitempty" jsonschema:"json (default), jsonl or tree"`
}

// CallTargetsArgs are the call_targets tool arguments.
type CallTargetsArgs struct {
	Root string `json:"root" jsonschema:"the root method of the graph"`
	Node string `json:"node" jsonschema:"the node whose callees are listed: a node id or a method query"`
}

// StatusArgs are the index_status tool arguments.
type StatusArgs struct{}

// NewServer creates a server. cfg holds the default traversal settings.
func NewServer(ws Workspace, cfg callgraph.Config, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	s := &Server{
		ws:    ws,
		cfg:   cfg,
		opts:  opts,
		cache: cache.New(ws.Index(), cache.WithMetrics(opts.Metrics)),
		mcp:   gomcp.NewServer(&gomcp.Implementation{Name: serverName, Version: opts.Version}, nil),
	}
	s.registerTools()
	return s
}

// Run serves requests on stdin/stdout until the client disconnects or ctx
// is done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.mcp, &gomcp.Tool{
		Name:        "call_graph",
		Description: "Builds the call graph rooted at a method and returns its nodes with their call targets",
	}, func(ctx context.Context, req *gomcp.CallToolRequest, args CallGraphArgs) (*gomcp.CallToolResult, any, error) {
		text, err := s.callGraph(ctx, args)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(text), nil, nil
	})

	gomcp.AddTool(s.mcp, &gomcp.Tool{
		Name:        "call_targets",
		Description: "Lists the methods a node calls within the call graph of a root method",
	}, func(ctx context.Context, req *gomcp.CallToolRequest, args CallTargetsArgs) (*gomcp.CallToolResult, any, error) {
		text, err := s.callTargets(ctx, args)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(text), nil, nil
	})

	gomcp.AddTool(s.mcp, &gomcp.Tool{
		Name:        "index_status",
		Description: "Returns counts for the loaded sources and mapping statements",
	}, func(ctx context.Context, req *gomcp.CallToolRequest, args StatusArgs) (*gomcp.CallToolResult, any, error) {
		data, err := json.MarshalIndent(s.ws.Stats(), "", "  ")
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(string(data)), nil, nil
	})
}

// build runs one build under the workspace read lock.
func (s *Server) build(ctx context.Context, cfg callgraph.Config, root string) (*graph.Graph, error) {
	if root == "" {
		return nil, errors.New("root is required")
	}
	var g *graph.Graph
	err := s.ws.View(func(idx *index.MemIndex) error {
		b, err := callgraph.New(idx, cfg,
			callgraph.WithCache(s.cache),
			callgraph.WithStatements(s.ws.Statements()),
			callgraph.WithMetrics(s.opts.Metrics),
			callgraph.WithLogger(s.opts.Logger),
		)
		if err != nil {
			return err
		}
		g, err = b.BuildKey(ctx, root)
		return err
	})
	return g, err
}

func (s *Server) callGraph(ctx context.Context, args CallGraphArgs) (string, error) {
	cfg := s.cfg
	if args.ProjectMaxDepth > 0 {
		cfg.ProjectMaxDepth = args.ProjectMaxDepth
	}
	if args.ThirdPartyMaxDepth != nil {
		cfg.ThirdPartyMaxDepth = *args.ThirdPartyMaxDepth
	}
	g, err := s.build(ctx, cfg, args.Root)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	switch args.Format {
	case "", "json":
		err = g.WriteJSON(&buf)
	case "jsonl":
		err = g.WriteJSONL(&buf)
	case "tree":
		buf.WriteString(g.Render(graph.RenderOptions{Plain: true, Locations: true}))
	default:
		return "", fmt.Errorf("unknown format %q (want json, jsonl or tree)", args.Format)
	}
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) callTargets(ctx context.Context, args CallTargetsArgs) (string, error) {
	if args.Node == "" {
		return "", errors.New("node is required")
	}
	g, err := s.build(ctx, s.cfg, args.Root)
	if err != nil {
		return "", err
	}
	id := args.Node
	if _, ok := g.Node(id); !ok {
		matches := s.ws.Index().FindMethods(args.Node)
		var found []string
		for _, m := range matches {
			if _, ok := g.Node(string(m.Key())); ok {
				found = append(found, string(m.Key()))
			}
		}
		switch len(found) {
		case 0:
			return "", fmt.Errorf("node %q is not in the graph of %s", args.Node, args.Root)
		case 1:
			id = found[0]
		default:
			return "", fmt.Errorf("node %q matches %d graph nodes: %v", args.Node, len(found), found)
		}
	}

	targets := g.CallTargets(id)
	if targets == nil {
		targets = []*graph.Node{}
	}
	data, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
