package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/JSingmin/CSharpAnalyser/internal/logging"
	"github.com/JSingmin/CSharpAnalyser/internal/output"
	"github.com/JSingmin/CSharpAnalyser/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// errFindings makes the process exit with status 2 under --fail-on-findings.
var errFindings = errors.New("findings reported")

const (
	metaConfig    = "config"
	metaConfigErr = "configErr"
	metaPprofCPU  = "pprofCPU"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.Sync()
		if errors.Is(err, errFindings) {
			os.Exit(2)
		}
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "csanalyser",
		Usage:    "Static analysis for C# sources",
		Version:  version,
		Metadata: make(map[string]any),
		Description: `csanalyser looks for SqlCommand and Process.Start arguments built by
concatenating untrusted values, calls to MD5 and SHA1, and methods that
nothing calls.

Run without a command to analyze the current directory.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"CSANALYSER_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: " + strings.Join(config.Formats, ", "),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file, rotated",
			},
			&cli.StringFlag{
				Name:  "pprof",
				Usage: "Enable pprof profiling and write to specified prefix (creates <prefix>.cpu.pprof and <prefix>.mem.pprof)",
			},
		},
		Before: before,
		After:  after,
		Commands: []*cli.Command{
			analyzeCmd(),
			rulesCmd(),
			configCmd(),
			initCmd(),
			cacheCmd(),
			mcpCmd(),
		},
		DefaultCommand: "analyze",
	}
}

// before loads the configuration, applies flag overrides and sets up
// logging. A broken config file does not stop the app here, so that
// "config validate" can report it; commands that need the config fail
// through appConfig instead.
func before(c *cli.Context) error {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		c.App.Metadata[metaConfigErr] = err
		result = &config.LoadResult{Config: config.DefaultConfig()}
	}
	applyFlags(c, result.Config)
	c.App.Metadata[metaConfig] = result

	logging.InitializeStderr(result.Config.Log)
	logging.Get().Debug("configuration loaded",
		zap.String("source", result.Source),
		zap.String("version", version),
	)

	if prefix := c.String("pprof"); prefix != "" {
		cpuFile, err := os.Create(prefix + ".cpu.pprof")
		if err != nil {
			return fmt.Errorf("failed to create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			cpuFile.Close()
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
		c.App.Metadata[metaPprofCPU] = cpuFile
	}
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if f := c.String("format"); f != "" {
		cfg.Output.Format = strings.ToLower(f)
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.Bool("no-color") {
		cfg.Output.Color = false
	}
	if l := c.String("log-level"); l != "" {
		cfg.Log.Level = l
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if f := c.String("log-file"); f != "" {
		cfg.Log.File = f
	}
}

func after(c *cli.Context) error {
	defer logging.Sync()

	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	pprof.StopCPUProfile()
	if cpuFile, ok := c.App.Metadata[metaPprofCPU].(*os.File); ok {
		cpuFile.Close()
		color.Green("CPU profile written to %s.cpu.pprof", prefix)
	}

	memFile, err := os.Create(prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer memFile.Close()

	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	color.Green("Memory profile written to %s.mem.pprof", prefix)
	return nil
}

// appConfig returns the configuration loaded in before, or the error that
// loading it produced. Flag overrides are validated too.
func appConfig(c *cli.Context) (*config.LoadResult, error) {
	if err, ok := c.App.Metadata[metaConfigErr].(error); ok {
		return nil, err
	}
	result, ok := c.App.Metadata[metaConfig].(*config.LoadResult)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	if err := result.Config.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// newFormatter writes to --output when given, otherwise to the app writer.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := output.ParseFormat(cfg.Output.Format)
	if path := c.String("output"); path != "" {
		return output.NewFormatter(format, path, false)
	}
	return output.NewWriterFormatter(format, c.App.Writer, cfg.Output.Color), nil
}
