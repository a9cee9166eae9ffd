package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/internal/cache"
	"github.com/JSingmin/CSharpAnalyser/internal/fileproc"
	"github.com/JSingmin/CSharpAnalyser/internal/logging"
	"github.com/JSingmin/CSharpAnalyser/internal/output"
	"github.com/JSingmin/CSharpAnalyser/internal/progress"
	"github.com/JSingmin/CSharpAnalyser/internal/scanner"
	"github.com/JSingmin/CSharpAnalyser/internal/service/analysis"
	"github.com/JSingmin/CSharpAnalyser/pkg/config"
	"github.com/JSingmin/CSharpAnalyser/pkg/watch"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze C# files and directories",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "rules",
				Usage: "Rules to run, by name or id (default: the configured rules)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Files analyzed concurrently (0 = 2 x CPUs)",
			},
			&cli.StringSliceFlag{
				Name:  "entry-point",
				Usage: "Method name never reported as unused, e.g. Main",
			},
			&cli.BoolFlag{
				Name:  "fail-on-findings",
				Usage: "Exit with status 2 when anything is reported",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Hide the progress bar",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-run the analysis whenever a C# file changes",
			},
			&cli.DurationFlag{
				Name:  "debounce",
				Usage: "Quiet period before a change triggers a re-run",
				Value: watch.DefaultDebounce,
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	loaded, err := appConfig(c)
	if err != nil {
		return err
	}
	cfg := loaded.Config
	logger := logging.Get()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := analysis.New(serviceOptions(cfg, logger)...)
	paths := getPaths(c)

	if c.Bool("watch") {
		return watchAndAnalyze(ctx, c, svc, paths)
	}

	res, err := analyzeOnce(ctx, c, svc, paths)
	if err != nil || res == nil {
		return err
	}

	if c.Bool("fail-on-findings") && len(res.Items) > 0 {
		return errFindings
	}
	return nil
}

func serviceOptions(cfg *config.Config, logger *zap.Logger) []analysis.Option {
	opts := []analysis.Option{
		analysis.WithConfig(cfg),
		analysis.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		ch, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true, cache.WithLogger(logger))
		if err != nil {
			logger.Warn("cache unavailable", zap.String("dir", cfg.Cache.Dir), zap.Error(err))
		} else {
			opts = append(opts, analysis.WithCache(ch))
		}
	}
	return opts
}

// analyzeOnce scans paths, analyzes what it finds and writes the report.
// It returns a nil result when there was nothing to analyze.
func analyzeOnce(ctx context.Context, c *cli.Context, svc *analysis.Service, paths []string) (*analysis.Result, error) {
	loaded, err := appConfig(c)
	if err != nil {
		return nil, err
	}
	cfg := loaded.Config
	logger := logging.Get()

	files, err := scanner.NewScanner(cfg, scanner.WithLogger(logger)).ScanPaths(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		color.Yellow("No C# files found")
		return nil, nil
	}

	var tracker *progress.Tracker
	if !c.Bool("no-progress") && isatty.IsTerminal(os.Stderr.Fd()) {
		tracker = progress.NewTracker(fmt.Sprintf("Analyzing %d files...", len(files)), len(files))
		ctx = fileproc.WithTracker(ctx, tracker.FileTracker())
	}

	res, err := svc.Analyze(ctx, files, analysis.Options{
		Rules:       c.StringSlice("rules"),
		Workers:     c.Int("workers"),
		EntryPoints: c.StringSlice("entry-point"),
	})
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.FinishSuccess()
		}
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return nil, err
	}
	defer formatter.Close()

	if err := formatter.Output(output.NewRunReport(res, version)); err != nil {
		return nil, err
	}
	return res, nil
}

// watchAndAnalyze analyzes once, then again after every batch of changes
// until ctx is canceled. Every run sees the whole tree since unused-method
// detection needs all files; unchanged files come from the cache.
func watchAndAnalyze(ctx context.Context, c *cli.Context, svc *analysis.Service, paths []string) error {
	loaded, err := appConfig(c)
	if err != nil {
		return err
	}
	logger := logging.Get()

	roots := watch.Roots(paths)
	w, err := watch.NewWatcher(roots, loaded.Config,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	rerun := func() {
		if _, err := analyzeOnce(ctx, c, svc, paths); err != nil && ctx.Err() == nil {
			output.NewWriterFormatter(output.FormatText, c.App.ErrWriter, false).Error("%v", err)
		}
	}

	if err := w.Add(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	rerun()
	w.SetCallback(func(changed []string) {
		logger.Info("re-analyzing", zap.Int("changed", len(changed)))
		rerun()
	})

	color.Cyan("Watching %s for changes (Ctrl+C to stop)", strings.Join(roots, ", "))
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
