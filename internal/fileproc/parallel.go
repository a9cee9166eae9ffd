// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/pkg/parser"
	"github.com/JSingmin/CSharpAnalyser/pkg/source"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes every collected error to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// Workers returns n, or the default worker count when n is not positive.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

type options struct {
	workers int
	logger  *zap.Logger
}

// Option configures a parallel run.
type Option func(*options)

// WithWorkers bounds the number of concurrent jobs. Zero selects the default.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger used for per-file timings and failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l.Named("fileproc")
	}
}

// run calls job for every file on a bounded pool. A job that panics, or
// that starts after ctx is done, fails with an error for its file. The
// returned slice holds the error of each file by index.
func run(ctx context.Context, files []string, opts []Option, job func(i int, path string) error) []error {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	tracker := TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	errAt := make([]error, len(files))
	p := pool.New().WithMaxGoroutines(Workers(o.workers))
	for i, path := range files {
		p.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					errAt[i] = fmt.Errorf("panic: %v", r)
					o.logger.Error("file job panicked", zap.String("path", path), zap.Any("panic", r))
				}
				if tracker != nil {
					tracker.Tick(path)
				}
			}()

			if err := ctx.Err(); err != nil {
				errAt[i] = err
				return
			}

			start := time.Now()
			errAt[i] = job(i, path)
			if errAt[i] != nil {
				o.logger.Debug("file failed", zap.String("path", path), zap.Error(errAt[i]))
				return
			}
			o.logger.Debug("file processed", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
		})
	}
	p.Wait()

	return errAt
}

func collect(files []string, errAt []error) *ProcessingErrors {
	errs := &ProcessingErrors{}
	for i, err := range errAt {
		if err != nil {
			errs.Errors = append(errs.Errors, ProcessingError{Path: files[i], Err: err})
		}
	}
	if !errs.HasErrors() {
		return nil
	}
	return errs
}

// MapSourceFiles reads each file from src and calls fn with a dedicated
// parser. Results are stored by input index, so results[i] belongs to
// files[i]; a failed file leaves the zero value in its slot and an entry,
// in input order, in the returned errors.
func MapSourceFiles[T any](
	ctx context.Context,
	files []string,
	src source.ContentSource,
	fn func(*parser.Parser, string, []byte) (T, error),
	opts ...Option,
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]T, len(files))
	errAt := run(ctx, files, opts, func(i int, path string) error {
		content, err := src.Read(path)
		if err != nil {
			return err
		}

		psr := parser.New()
		defer psr.Close()

		result, err := fn(psr, path, content)
		if err != nil {
			return err
		}
		results[i] = result
		return nil
	})

	return results, collect(files, errAt)
}
