// Package watch re-runs analysis when C# sources change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/pkg/config"
	"github.com/JSingmin/CSharpAnalyser/pkg/parser"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

var skippedDirs = []string{".git", ".csanalyser", ".vs"}

// Watcher monitors directory trees and reports changed C# files in batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	roots     []string
	added     bool
	callback  func(changed []string)
	logger    *zap.Logger
	mu        sync.Mutex
	pending   map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = l.Named("watch")
	}
}

// Roots returns the directories to watch so that a change to any source
// named by paths is seen. A directory is its own root, a file contributes
// its directory and a glob its static prefix. Roots nested inside another
// root are dropped. An empty paths watches the working directory.
func Roots(paths []string) []string {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var dirs []string
	for _, p := range paths {
		dir := p
		if strings.ContainsAny(p, "*?[{") {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(p))
			dir = filepath.FromSlash(base)
		} else if info, err := os.Stat(p); err != nil || !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		dirs = append(dirs, filepath.Clean(dir))
	}

	sort.Strings(dirs)
	dirs = slices.Compact(dirs)

	var roots []string
	for _, d := range dirs {
		if !slices.ContainsFunc(roots, func(r string) bool { return within(d, r) }) {
			roots = append(roots, d)
		}
	}
	return roots
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}

// NewWatcher creates a watcher for the given root directories.
func NewWatcher(roots []string, cfg *config.Config, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  DefaultDebounce,
		roots:     roots,
		logger:    zap.NewNop(),
		pending:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetCallback sets the function called with each batch of changed files,
// sorted. Calls never overlap.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// Add registers the roots with the file system watcher. Changes made after
// Add returns are reported once Start runs. Start calls Add if it has not
// been called.
func (w *Watcher) Add() error {
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return err
		}
	}
	w.added = true
	w.logger.Info("watching", zap.Strings("roots", w.roots), zap.Int("dirs", len(w.fsWatcher.WatchList())))
	return nil
}

// Start watches until ctx is done, then returns ctx.Err().
func (w *Watcher) Start(ctx context.Context) error {
	if !w.added {
		if err := w.Add(); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wg.Go(func() { w.processDebounced(ctx) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

// addTree watches every directory under dir that is not excluded.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if !slices.Contains(w.roots, path) && w.excludedDir(path, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// rel returns path relative to the root that contains it.
func (w *Watcher) rel(path string) (string, bool) {
	for _, root := range w.roots {
		if within(path, root) {
			rel, err := filepath.Rel(root, path)
			return rel, err == nil
		}
	}
	return "", false
}

func (w *Watcher) excludedDir(path, name string) bool {
	if slices.Contains(skippedDirs, name) {
		return true
	}
	rel, ok := w.rel(path)
	if !ok {
		return false
	}
	return w.config.ShouldExclude(rel + string(filepath.Separator))
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if isDir, err := statDir(path); err == nil && isDir {
			if !w.excludedDir(path, filepath.Base(path)) {
				if err := w.addTree(path); err != nil {
					w.logger.Debug("watching new directory failed", zap.String("path", path), zap.Error(err))
				}
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !parser.IsCSharp(path) {
		return
	}
	if rel, ok := w.rel(path); ok && w.config.ShouldExclude(rel) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced reports pending changes after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(w.debounce / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ready := w.takeReady(time.Now()); len(ready) > 0 && w.callback != nil {
				w.logger.Debug("files changed", zap.Strings("paths", ready))
				w.callback(ready)
			}
		}
	}
}

// takeReady removes and returns files quiet for at least the debounce period.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
	}
	sort.Strings(ready)
	return ready
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the watched directories.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
