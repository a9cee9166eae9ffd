package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/JSingmin/CSharpAnalyser/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates a csanalyser configuration file for syntax errors, unknown
keys and invalid values.

Examples:
  csanalyser config validate                     # Validates default config locations
  csanalyser -c csanalyser.toml config validate  # Validates specific file`,
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "as",
						Value: "toml",
						Usage: "Encoding: toml or yaml",
					},
				},
				Action: runConfigShow,
			},
		},
	}
}

func runConfigValidate(c *cli.Context) error {
	result, err := appConfig(c)
	if err != nil {
		color.New(color.FgRed).Fprintln(c.App.Writer, "Configuration validation failed:")
		fmt.Fprintf(c.App.Writer, "  - %s\n", err)
		return err
	}

	if result.Source != "" {
		color.New(color.FgGreen).Fprintf(c.App.Writer, "Configuration valid: %s\n", result.Source)
	} else {
		color.New(color.FgYellow).Fprintln(c.App.Writer, "No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	result, err := appConfig(c)
	if err != nil {
		return err
	}

	if result.Source != "" {
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", result.Source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}

	content, err := marshalConfig(result.Config, c.String("as"))
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, string(content))
	return nil
}

func marshalConfig(cfg *config.Config, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "toml":
		content, err := toml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		return content, nil
	case "yaml", "yml":
		content, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		return content, nil
	default:
		return nil, fmt.Errorf("unknown config encoding %q (want toml or yaml)", encoding)
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a new csanalyser configuration file",
		Description: `Creates a csanalyser.toml configuration file in the current directory
with the default settings. A path ending in .yaml or .yml writes YAML.

Examples:
  csanalyser init                                # Creates csanalyser.toml
  csanalyser init --path .csanalyser/csanalyser.yaml
  csanalyser init --force                        # Overwrite existing config file`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Value: "csanalyser.toml",
				Usage: "Config file to create",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing config file",
			},
		},
		Action: runInit,
	}
}

func runInit(c *cli.Context) error {
	outputPath := c.String("path")

	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", dir, err)
		}
	}

	content, err := generateDefaultConfig(outputPath)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	color.New(color.FgGreen).Fprintf(c.App.Writer, "Created %s\n", outputPath)
	fmt.Fprintln(c.App.Writer, "Edit this file to customize analysis settings.")
	return nil
}

func generateDefaultConfig(path string) (string, error) {
	encoding := "toml"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		encoding = "yaml"
	}

	content, err := marshalConfig(config.DefaultConfig(), encoding)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	buf.WriteString("# csanalyser configuration\n")
	buf.WriteString("# Documentation: https://github.com/JSingmin/CSharpAnalyser\n\n")
	buf.Write(content)

	return buf.String(), nil
}
