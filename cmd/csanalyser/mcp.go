package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/JSingmin/CSharpAnalyser/internal/logging"
	"github.com/JSingmin/CSharpAnalyser/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes csanalyser
as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "csanalyser": {
        "command": "csanalyser",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_csharp   Run the rules over paths or inline sources
  - list_rules       List rule names, ids and severities`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:  "manifest",
				Usage: "Print the MCP registry manifest (server.json)",
				Action: func(c *cli.Context) error {
					data, err := mcpserver.GenerateManifest(version)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, string(data))
					return nil
				},
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	loaded, err := appConfig(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version,
		mcpserver.WithConfig(loaded.Config),
		mcpserver.WithLogger(logging.Get()),
	)
	return server.Run(c.Context)
}
