package main

import (
	"context"

	"github.com/aleister1102/imgsync/internal/common"
	"github.com/aleister1102/imgsync/internal/config"
	"github.com/aleister1102/imgsync/internal/logger"
	"github.com/aleister1102/imgsync/internal/version"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

// Commands:
// run (default)
//   watch local_path and mirror changes until interrupted
// validate
//   load and validate the configuration, then exit
// history
//   print the most recent entries of the sync journal
// version
//   print build information

func Execute(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:    "imgsync",
		Usage:   "mirror an image directory over SFTP and publish shortcodes",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML/JSON configuration file",
				Sources: cli.EnvVars(config.ConfigPathEnv),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "force debug logging",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			historyCommand(),
			versionCommand(),
		},
	}

	return app.Run(ctx, args)
}

// loadConfig reads and validates the configuration named by --config
func loadConfig(cmd *cli.Command) (*config.GlobalConfig, error) {
	cfg, err := config.LoadGlobalConfig(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.Bool("debug") {
		cfg.Debug = true
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.GlobalConfig) (zerolog.Logger, error) {
	log, err := logger.New(cfg.LogConfig, cfg.Debug)
	if err != nil {
		return zerolog.Nop(), common.WrapError(err, "could not initialize logger")
	}
	return log, nil
}
