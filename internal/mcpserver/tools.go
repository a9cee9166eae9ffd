package mcpserver

import (
	"bytes"
	"context"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/internal/cache"
	"github.com/JSingmin/CSharpAnalyser/internal/output"
	"github.com/JSingmin/CSharpAnalyser/internal/scanner"
	"github.com/JSingmin/CSharpAnalyser/internal/service/analysis"
	"github.com/JSingmin/CSharpAnalyser/pkg/parser"
	"github.com/JSingmin/CSharpAnalyser/pkg/source"
)

// AnalyzeInput is the input of analyze_csharp.
type AnalyzeInput struct {
	Paths       []string          `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to the current directory."`
	Sources     map[string]string `json:"sources,omitempty" jsonschema:"Inline C# sources keyed by file name. When set, paths are ignored."`
	Rules       []string          `json:"rules,omitempty" jsonschema:"Rule names or ids to run. Defaults to the configured rules."`
	EntryPoints []string          `json:"entry_points,omitempty" jsonschema:"Method names never reported as unused, e.g. Main."`
	Format      string            `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown, text or sarif."`
}

// ListRulesInput is the input of list_rules.
type ListRulesInput struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, markdown or text."`
}

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	if format == "" {
		return output.FormatTOON
	}
	return output.ParseFormat(format)
}

func render(r output.Renderable, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	format := getFormat(input.Format)
	opts := []analysis.Option{
		analysis.WithConfig(s.config),
		analysis.WithLogger(s.logger),
	}

	var files []string
	if len(input.Sources) > 0 {
		for name := range input.Sources {
			if err := parser.CheckCSharp(name); err != nil {
				return toolError(err.Error())
			}
			files = append(files, name)
		}
		sort.Strings(files)
		opts = append(opts, analysis.WithSource(source.NewMap(input.Sources)))
	} else {
		found, err := scanner.NewScanner(s.config, scanner.WithLogger(s.logger)).ScanPaths(getPaths(input))
		if err != nil {
			return toolError(err.Error())
		}
		if len(found) == 0 {
			return toolError("no C# files found")
		}
		files = found
		if s.config.Cache.Enabled {
			c, err := cache.New(s.config.Cache.Dir, s.config.Cache.TTL, true, cache.WithLogger(s.logger))
			if err != nil {
				s.logger.Warn("cache unavailable", zap.Error(err))
			} else {
				opts = append(opts, analysis.WithCache(c))
			}
		}
	}

	res, err := analysis.New(opts...).Analyze(ctx, files, analysis.Options{
		Rules:       input.Rules,
		EntryPoints: input.EntryPoints,
	})
	if err != nil {
		return toolError(err.Error())
	}
	s.logger.Debug("analyze_csharp", zap.Int("files", len(files)), zap.Int("findings", len(res.Items)))

	text, err := render(output.NewRunReport(res, s.version), format)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(text)
}

func (s *Server) handleListRules(ctx context.Context, req *mcp.CallToolRequest, input ListRulesInput) (*mcp.CallToolResult, any, error) {
	text, err := render(output.RulesTable(), getFormat(input.Format))
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(text)
}
