package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
)

// Language represents a supported programming language.
type Language string

const (
	LangCSharp  Language = "csharp"
	LangUnknown Language = "unknown"
)

// ErrUnsupportedFile is returned for paths that are not C# sources.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Parser wraps a tree-sitter parser configured for C#.
type Parser struct {
	parser *sitter.Parser
}

// ParseResult contains the parsed CST and metadata.
type ParseResult struct {
	Tree     *sitter.Tree
	Language Language
	Source   []byte
	Path     string
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(csharp.GetLanguage())
	return &Parser{parser: p}
}

// Parse parses C# source code.
func (p *Parser) Parse(source []byte, path string) (*ParseResult, error) {
	return p.ParseCtx(context.Background(), source, path)
}

// ParseCtx parses C# source code, honoring cancellation of ctx.
func (p *Parser) ParseCtx(ctx context.Context, source []byte, path string) (*ParseResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse: %w", err)
	}

	return &ParseResult{
		Tree:     tree,
		Language: LangCSharp,
		Source:   source,
		Path:     path,
	}, nil
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// DetectLanguage determines the language from a file path.
func DetectLanguage(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cs", ".csx":
		return LangCSharp
	default:
		return LangUnknown
	}
}

// IsCSharp reports whether path names a C# source file.
func IsCSharp(path string) bool {
	return DetectLanguage(path) == LangCSharp
}

// CheckCSharp returns ErrUnsupportedFile unless path names a C# source file.
func CheckCSharp(path string) error {
	if !IsCSharp(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
	return nil
}

// GetNodeText extracts the source text for a node.
// Returns empty string if node is nil or byte offsets are out of bounds.
func GetNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	start := node.StartByte()
	end := node.EndByte()
	if start > end || end > uint32(len(source)) {
		return ""
	}
	return string(source[start:end])
}
