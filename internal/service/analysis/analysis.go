// Package analysis runs the rule analyzers over a set of C# files.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/internal/cache"
	"github.com/JSingmin/CSharpAnalyser/internal/fileproc"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/registry"
	"github.com/JSingmin/CSharpAnalyser/pkg/analyzer/unused"
	"github.com/JSingmin/CSharpAnalyser/pkg/config"
	"github.com/JSingmin/CSharpAnalyser/pkg/models"
	"github.com/JSingmin/CSharpAnalyser/pkg/parser"
	"github.com/JSingmin/CSharpAnalyser/pkg/source"
	"github.com/JSingmin/CSharpAnalyser/pkg/syntax/csharp"
)

// ErrAnalyzerPanic wraps a panic raised while an analyzer visited a tree.
var ErrAnalyzerPanic = errors.New("analyzer panicked")

// Service orchestrates code analysis operations.
type Service struct {
	config *config.Config
	cache  *cache.Cache
	source source.ContentSource
	rules  []registry.Rule
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache enables the per-file result cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithSource reads file content from src instead of the filesystem.
func WithSource(src source.ContentSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithRules replaces rule selection by name with an explicit rule set.
func WithRules(rules ...registry.Rule) Option {
	return func(s *Service) {
		s.rules = rules
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new analysis service.
func New(opts ...Option) *Service {
	s := &Service{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if s.source == nil {
		s.source = source.NewFilesystem(s.config.Analysis.MaxFileSize)
	}
	return s
}

// Options override the configured analysis settings for one run. Zero
// values keep the configuration.
type Options struct {
	Rules       []string
	Workers     int
	EntryPoints []string
}

// TreeFailure records an analyzer that failed on one tree. Its findings for
// that tree were discarded.
type TreeFailure struct {
	Path     string `json:"path"`
	Analyzer string `json:"analyzer"`
	Err      error  `json:"-"`
}

func (f TreeFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Path, f.Analyzer, f.Err)
}

func (f TreeFailure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Items    []models.ReportItem
	Summary  models.Summary
	Failures []TreeFailure
	// Errors lists files that could not be read or parsed.
	Errors *fileproc.ProcessingErrors
}

// fileResult is what one file contributes to a run.
type fileResult struct {
	cached   bool
	summary  cache.FileSummary
	failures []TreeFailure
}

// Analyze runs the selected rules over files. Per-file problems never abort
// the run: unreadable files land in Result.Errors and analyzer failures in
// Result.Failures. Items are ordered by rule, then file, then position of
// discovery within the file.
func (s *Service) Analyze(ctx context.Context, files []string, opts Options) (*Result, error) {
	rules, err := s.selectRules(opts)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}

	entryPoints := opts.EntryPoints
	if len(entryPoints) == 0 {
		entryPoints = s.config.Analysis.EntryPoints
	}
	workers := opts.Workers
	if workers == 0 {
		workers = s.config.Analysis.Workers
	}

	logger := s.logger.Named("analysis")
	start := time.Now()

	perFile, errs := fileproc.MapSourceFiles(ctx, files, s.source,
		func(psr *parser.Parser, path string, content []byte) (fileResult, error) {
			return s.analyzeFile(ctx, psr, path, content, rules, names, logger)
		},
		fileproc.WithWorkers(workers),
		fileproc.WithLogger(s.logger),
	)

	res := &Result{
		RunID:   uuid.NewString(),
		Summary: models.NewSummary(),
		Errors:  errs,
	}

	failed := make(map[int]bool)
	if errs.HasErrors() {
		errored := make(map[string]bool, len(errs.Errors))
		for _, pe := range errs.Errors {
			errored[pe.Path] = true
		}
		for i, f := range files {
			if errored[f] {
				failed[i] = true
			}
		}
	}

	for i, fr := range perFile {
		if failed[i] {
			continue
		}
		res.Summary.FilesAnalyzed++
		if fr.cached {
			res.Summary.FilesCached++
		}
		res.Failures = append(res.Failures, fr.failures...)
	}
	res.Summary.FilesFailed = len(failed)

	for _, r := range rules {
		if r.Global {
			items, err := s.mergeLiveness(r, perFile, failed, entryPoints)
			if err != nil {
				return nil, err
			}
			res.Items = append(res.Items, items...)
			continue
		}
		for i, fr := range perFile {
			if failed[i] {
				continue
			}
			for _, item := range fr.summary.Findings {
				if item.Rule == r.ID {
					res.Items = append(res.Items, item)
				}
			}
		}
	}
	res.Summary.AddAll(res.Items)

	for _, f := range res.Failures {
		logger.Warn("analyzer failed", zap.String("path", f.Path), zap.String("analyzer", f.Analyzer), zap.Error(f.Err))
	}
	logger.Debug("run complete",
		zap.String("run_id", res.RunID),
		zap.Int("files", len(files)),
		zap.Int("findings", len(res.Items)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (s *Service) selectRules(opts Options) ([]registry.Rule, error) {
	if s.rules != nil {
		return s.rules, nil
	}
	names := opts.Rules
	if len(names) == 0 {
		names = s.config.Analysis.Rules
	}
	return registry.Select(names)
}

func (s *Service) analyzeFile(
	ctx context.Context,
	psr *parser.Parser,
	path string,
	content []byte,
	rules []registry.Rule,
	names []string,
	logger *zap.Logger,
) (fileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	key := cache.Key(abs, names)
	hash := cache.HashBytes(content)

	if s.cache != nil {
		if summary, ok := s.cache.LoadSummary(key, hash); ok {
			// Cached entries were recorded under the same path.
			return fileResult{cached: true, summary: *summary}, nil
		}
	}

	tree, err := csharp.ParseCtx(ctx, psr, content, path)
	if err != nil {
		return fileResult{}, err
	}

	fr := fileResult{summary: cache.FileSummary{Path: path}}
	for _, r := range rules {
		a := r.New(registry.Options{})
		findings, err := guard(func() ([]models.Finding, error) {
			return analyzer.Collect(a, tree)
		})
		if err == nil && r.Global {
			err = s.recordLiveness(&fr.summary, a)
		}
		if err != nil {
			fr.failures = append(fr.failures, TreeFailure{Path: path, Analyzer: r.Name, Err: err})
			continue
		}
		if r.Global {
			continue
		}
		items, err := models.ResolveAll(findings)
		if err != nil {
			fr.failures = append(fr.failures, TreeFailure{Path: path, Analyzer: r.Name, Err: err})
			continue
		}
		fr.summary.Findings = append(fr.summary.Findings, items...)
	}

	// Partial results are never cached so a failure is retried next run.
	if s.cache != nil && len(fr.failures) == 0 {
		if err := s.cache.StoreSummary(key, hash, &fr.summary); err != nil {
			logger.Warn("cache write failed", zap.String("path", path), zap.Error(err))
		}
	}
	logger.Debug("analyzed", zap.String("path", path), zap.Int("findings", len(fr.summary.Findings)))
	return fr, nil
}

// recordLiveness copies the declarations and calls a liveness analyzer saw
// into the file summary, resolving declaration locations on the way.
func (s *Service) recordLiveness(summary *cache.FileSummary, a analyzer.TreeAnalyzer) error {
	u, ok := a.(*unused.Analyzer)
	if !ok {
		return fmt.Errorf("global analyzer %s does not record liveness", a.Name())
	}
	decls, calls := u.Records()
	for _, d := range decls {
		loc, err := d.Location.Resolve()
		if err != nil {
			return err
		}
		summary.Declarations = append(summary.Declarations, cache.Declaration{
			Owner:    d.Owner,
			Name:     d.Name,
			Arity:    d.Arity,
			Location: models.FixedLocation{Path: loc.Path, Line: loc.Line, Column: loc.Column},
		})
	}
	summary.Calls = append(summary.Calls, calls...)
	return nil
}

// mergeLiveness feeds every file's liveness records, in input order, into
// one analyzer and resolves its findings. It runs only after all files are
// done, since a call in any file can keep a method alive.
func (s *Service) mergeLiveness(r registry.Rule, perFile []fileResult, failed map[int]bool, entryPoints []string) ([]models.ReportItem, error) {
	merged, ok := r.New(registry.Options{EntryPoints: entryPoints}).(*unused.Analyzer)
	if !ok {
		return nil, fmt.Errorf("global analyzer %s does not record liveness", r.Name)
	}
	for i, fr := range perFile {
		if failed[i] {
			continue
		}
		decls := make([]unused.Declaration, len(fr.summary.Declarations))
		for j, d := range fr.summary.Declarations {
			decls[j] = unused.Declaration{Owner: d.Owner, Name: d.Name, Arity: d.Arity, Location: d.Location}
		}
		merged.AddRecords(decls, fr.summary.Calls)
	}
	// Fixed locations always resolve.
	items, _ := models.ResolveAll(merged.Findings())
	return items, nil
}

// guard runs fn, converting a panic into an error.
func guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrAnalyzerPanic, r)
		}
	}()
	return fn()
}
