package main

import (
	"context"
	"fmt"

	"github.com/aleister1102/imgsync/internal/version"
	"github.com/urfave/cli/v3"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "show version",
		Action:  versionAction,
	}
}

func versionAction(_ context.Context, _ *cli.Command) error {
	fmt.Printf("imgsync version %s (%s)\n", version.Version, version.Commit)
	return nil
}
