package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/JSingmin/CSharpAnalyser/internal/cache"
	"github.com/JSingmin/CSharpAnalyser/internal/logging"
	"github.com/JSingmin/CSharpAnalyser/internal/output"
	"github.com/JSingmin/CSharpAnalyser/pkg/config"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the analysis cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show the number, size and age of cached entries",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Action: runCacheClear,
			},
		},
	}
}

// openCache opens the configured cache directory even when caching is
// turned off for analysis runs.
func openCache(c *cli.Context) (*cache.Cache, *config.Config, error) {
	loaded, err := appConfig(c)
	if err != nil {
		return nil, nil, err
	}
	cfg := loaded.Config
	ch, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, true, cache.WithLogger(logging.Get()))
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}
	return ch, cfg, nil
}

func runCacheStats(c *cli.Context) error {
	ch, cfg, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := ch.GetStats()
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	table := output.NewTable(
		"Cache",
		[]string{"Dir", "Entries", "Size", "Oldest", "Newest"},
		[][]string{{
			ch.Dir(),
			strconv.Itoa(stats.Entries),
			formatBytes(stats.TotalSize),
			stats.OldestAge.Round(time.Second).String(),
			stats.NewestAge.Round(time.Second).String(),
		}},
		nil,
		stats,
	)
	return formatter.Output(table)
}

func runCacheClear(c *cli.Context) error {
	ch, _, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := ch.GetStats()
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}
	if err := ch.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	color.New(color.FgGreen).Fprintf(c.App.Writer, "Removed %d cached entries from %s\n", stats.Entries, ch.Dir())
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
