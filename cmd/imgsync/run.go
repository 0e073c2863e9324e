package main

import (
	"context"

	"github.com/aleister1102/imgsync/internal/app"
	"github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "watch the local directory and sync changes until interrupted",
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	engine, err := app.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start sync engine")
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn().Err(err).Msg("Errors during shutdown")
		}
	}()

	return engine.Run(ctx)
}
