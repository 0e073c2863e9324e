package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aleister1102/imgsync/internal/history"
	"github.com/aleister1102/imgsync/internal/models"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "show recent sync outcomes from the journal",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "n",
				Aliases: []string{"limit"},
				Value:   20,
				Usage:   "number of entries to show",
			},
		},
		Action: historyAction,
	}
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled; set history.enabled and history.db_path")
	}
	if _, err := os.Stat(cfg.History.DBPath); err != nil {
		return fmt.Errorf("history database %s: %w", cfg.History.DBPath, err)
	}

	db, err := history.NewDB(cfg.History.DBPath, zerolog.Nop())
	if err != nil {
		return err
	}
	defer db.Close()

	outcomes, err := db.Recent(ctx, cmd.Int("n"))
	if err != nil {
		return err
	}
	if err := printOutcomes(os.Stdout, outcomes); err != nil {
		return err
	}

	counts, err := db.CountByStatus(ctx)
	if err != nil {
		return err
	}
	return printSummary(os.Stdout, counts)
}

func printOutcomes(w io.Writer, outcomes []models.SyncOutcome) error {
	if len(outcomes) == 0 {
		_, err := fmt.Fprintln(w, "no sync history yet")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tKIND\tSTATUS\tSHORTCODE\tPATH\tERROR")
	for _, o := range outcomes {
		path := o.SrcPath
		if o.DestPath != "" {
			path += " -> " + o.DestPath
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.FinishedAt.Local().Format(time.DateTime),
			o.Kind,
			o.Status,
			dash(o.Shortcode),
			path,
			dash(o.Error),
		)
	}
	return tw.Flush()
}

var summaryOrder = []models.SyncStatus{
	models.StatusCreated,
	models.StatusUpdated,
	models.StatusMoved,
	models.StatusDeleted,
	models.StatusPartial,
	models.StatusFailed,
	models.StatusIgnored,
}

// printSummary writes one line with journal totals per status
func printSummary(w io.Writer, counts map[models.SyncStatus]int) error {
	total := 0
	var parts []string
	for _, status := range summaryOrder {
		if n := counts[status]; n > 0 {
			total += n
			parts = append(parts, fmt.Sprintf("%s %d", status, n))
		}
	}
	line := fmt.Sprintf("total %d", total)
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, ", ")
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
