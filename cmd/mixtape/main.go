package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	r := &runner{}

	app := &cli.Command{
		Name:    "mixtape",
		Usage:   "Playlist ordering and tag consensus service",
		Version: "0.1.0",
		Commands: []*cli.Command{
			serveCommand(r),
			migrateCommand(r),
			seedCommand(r),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func serveCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides HOST and PORT",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "Apply pending migrations before serving (postgres backend)",
			},
		},
		Action: r.with(r.Serve),
	}
}

func migrateCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or revert the postgres schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: r.with(func(ctx context.Context, cmd *cli.Command) error {
					return r.Migrate(ctx, "up")
				}),
			},
			{
				Name:  "down",
				Usage: "Revert all migrations",
				Action: r.with(func(ctx context.Context, cmd *cli.Command) error {
					return r.Migrate(ctx, "down")
				}),
			},
		},
	}
}

func seedCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:   "seed",
		Usage:  "Load demo playlists, tracks and tags",
		Action: r.with(r.Seed),
	}
}
