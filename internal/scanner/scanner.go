package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/pkg/config"
	"github.com/JSingmin/CSharpAnalyser/pkg/parser"
)

// Directories that never hold sources worth analyzing.
var alwaysSkipped = []string{".git", ".csanalyser", ".vs"}

// Scanner finds C# source files.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
	// base is the directory exclusion paths are made relative to.
	base   string
	logger *zap.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger used for skipped paths.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		s.logger = l.Named("scanner")
	}
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config, opts ...Option) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Scanner{config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns loads exclusion patterns from both config and .gitignore files.
// Config patterns are parsed as gitignore patterns and combined with .gitignore files.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	s.base = root
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Exclude.Gitignore {
		// Without a repository the scanned root's own .gitignore files still apply.
		if gitRoot := findGitRoot(root); gitRoot != "" {
			s.base = gitRoot
		}
		if gitPatterns, err := gitignore.ReadPatterns(osfs.New(s.base), nil); err == nil {
			patterns = append(patterns, gitPatterns...)
		} else {
			s.logger.Debug("reading .gitignore failed", zap.String("root", s.base), zap.Error(err))
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively scans a directory for C# source files.
// Validates that all paths stay within the root directory to prevent traversal attacks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		matchPath, err := filepath.Rel(s.base, filepath.Join(absRoot, relPath))
		if err != nil {
			matchPath = relPath
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				s.logger.Debug("skipping symlink", zap.String("path", path))
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if relPath != "." && (slices.Contains(alwaysSkipped, d.Name()) || s.isExcluded(matchPath, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(matchPath, false) {
			return nil
		}
		if parser.IsCSharp(path) {
			files = append(files, path)
		}

		return nil
	})

	return files, walkErr
}

// expandPaths replaces glob arguments such as "src/**/*.cs" with their
// matches. Other arguments pass through unchanged.
func expandPaths(paths []string) ([]string, error) {
	var expanded []string
	for _, p := range paths {
		if !strings.ContainsAny(p, "*?[{") {
			expanded = append(expanded, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %q: %w", p, fs.ErrNotExist)
		}
		expanded = append(expanded, matches...)
	}
	return expanded, nil
}

// ScanPaths scans every path, walking directories and checking files, and
// returns the sources found in argument order without duplicates. Paths may
// be doublestar globs.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	paths, err := expandPaths(paths)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	add := func(f string) {
		key := f
		if abs, err := filepath.Abs(f); err == nil {
			key = abs
		}
		if !seen[key] {
			seen[key] = true
			files = append(files, f)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			ok, err := s.ScanFile(p)
			if err != nil {
				return nil, err
			}
			if ok {
				add(p)
			}
			continue
		}

		found, err := s.ScanDir(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	s.logger.Debug("scan complete", zap.Int("files", len(files)), zap.Strings("roots", paths))
	return files, nil
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	if !strings.HasPrefix(absPath, root+string(filepath.Separator)) && absPath != root {
		return false
	}

	return true
}

// ScanFile checks if a single file should be analyzed. Explicitly named files
// are checked against the configured patterns by base name.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	if info.IsDir() {
		return false, nil
	}

	if s.config.ShouldExclude(filepath.Base(path)) {
		return false, nil
	}

	return parser.IsCSharp(path), nil
}
