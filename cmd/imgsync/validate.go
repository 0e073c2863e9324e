package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:   "validate",
		Usage:  "validate the configuration without connecting anywhere",
		Action: validateAction,
	}
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	desc := cfg.SFTP.Descriptor()
	fmt.Printf("configuration ok\n")
	fmt.Printf("  sftp:     %s -> %s\n", desc, cfg.SFTP.RemotePath)
	fmt.Printf("  watching: %s (%d pattern(s))\n", cfg.SFTP.LocalPath, len(cfg.Watch.Patterns))
	fmt.Printf("  registry: %s\n", cfg.Registry.WorkerURL)
	if cfg.Discord.Enabled() {
		fmt.Printf("  discord:  enabled (ids in %s)\n", cfg.Discord.IDsFile)
	} else {
		fmt.Printf("  discord:  disabled\n")
	}
	if cfg.History.Enabled {
		fmt.Printf("  history:  %s\n", cfg.History.DBPath)
	}
	if cfg.Status.Listen != "" {
		fmt.Printf("  status:   http://%s\n", cfg.Status.Listen)
	}
	return nil
}
