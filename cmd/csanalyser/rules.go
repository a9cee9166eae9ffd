package main

import (
	"github.com/urfave/cli/v2"

	"github.com/JSingmin/CSharpAnalyser/internal/output"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List the available rules",
		Action: func(c *cli.Context) error {
			loaded, err := appConfig(c)
			if err != nil {
				return err
			}
			cfg := loaded.Config

			formatter, err := newFormatter(c, cfg)
			if err != nil {
				return err
			}
			defer formatter.Close()
			return formatter.Output(output.RulesTable())
		},
	}
}
