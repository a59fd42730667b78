package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threadkit/cmd"
	"github.com/threadkit/internal/logging"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "threadkit",
		Usage:   "Discussion-backed comment engine for hosted content threads",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "threadkit.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			logging.Setup(c.Bool("verbose"))
			return nil
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.ShowCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
