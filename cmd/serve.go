package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/threadkit/internal/bridge"
	"github.com/threadkit/internal/config"
)

// ServeCommand returns the CLI command for starting the view-adapter bridge
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the view-adapter bridge for one discussion",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the bridge server (overrides config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			st, number, err := buildStore(c.Context, cfg)
			if err != nil {
				return err
			}
			st.Load(number)

			port := cfg.Bridge.Port
			if c.Int("port") != 0 {
				port = c.Int("port")
			}
			fmt.Printf("Serving discussion #%d on port %d...\n", number, port)

			server := bridge.NewServer(st, port, cfg.Bridge.Token)
			return server.Start()
		},
	}
}
