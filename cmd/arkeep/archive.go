package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	v1 "github.com/arkeep/arkeep/apis/v1"
	"github.com/arkeep/arkeep/internal/runner"
	"github.com/urfave/cli/v3"
)

var archiveCommand = &cli.Command{
	Name:  "archive",
	Usage: "Archive a directory in one shot, without a job file",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "src",
			Usage:    "Directory to archive",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "dest",
			Usage:    "Directory to store the archive in",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "name",
			Usage:    "Archive file name (timestamp-prefixed when --keep is set)",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "tgz",
			Usage: "Archive format (tgz, tar, bz2, xz, zip)",
		},
		&cli.StringFlag{
			Name:  "engine",
			Value: "tool",
			Usage: "Archive engine (tool, native)",
		},
		&cli.IntFlag{
			Name:  "keep",
			Usage: "Keep only the N most recent archives of this format in dest",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job := v1.ArchiveJob{
			Kind:     "ArchiveJob",
			Metadata: v1.Metadata{Name: command.String("name")},
			Spec: v1.ArchiveJobSpec{
				Source:      command.String("src"),
				Destination: command.String("dest"),
				Archive: v1.ArchiveSpec{
					Name:   command.String("name"),
					Format: command.String("format"),
					Engine: command.String("engine"),
				},
			},
		}
		if keep := int(command.Int("keep")); keep > 0 {
			job.Spec.Retention = &v1.RetentionSpec{Keep: keep}
		}

		r, err := runner.New(logger.Named("runner"), job)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		report, err := r.Run(ctx)
		if err != nil {
			return err
		}

		return printReport(ctx, report)
	},
}

// printReport writes the report to stdout: indented for a terminal, compact
// for pipes and CI.
func printReport(ctx context.Context, report *runner.Report) error {
	enc := json.NewEncoder(os.Stdout)
	if isInteractive(ctx) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
