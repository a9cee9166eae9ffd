package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/pkg/config"
)

// Server wraps the MCP server and registers the csanalyser tools.
type Server struct {
	server  *mcp.Server
	version string
	config  *config.Config
	logger  *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration analysis runs start from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l.Named("mcp")
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "csanalyser",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, version: version, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_csharp",
		Description: describeAnalyze(),
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_rules",
		Description: describeListRules(),
	}, s.handleListRules)
}
