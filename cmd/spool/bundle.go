package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	v1 "github.com/spoolkit/spool/apis/v1"
	"github.com/spoolkit/spool/internal/runner"
)

var bundleCommand = &cli.Command{
	Name:  "bundle",
	Usage: "Build a bundle from a job file",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "var",
			Usage: "Set a template variable as NAME=value (can be repeated)",
		},
		&cli.StringSliceFlag{
			Name:  "allowed-env",
			Usage: "Environment variables allowed in job configuration (can be repeated)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "job",
			UsageText: "The job file to build a bundle from",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		job, err := loadJob(command)
		if err != nil {
			return err
		}

		r, err := runner.New(ctx, logger.Named("runner"), job)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("failed to run job: %w", err)
		}

		return nil
	},
}

// loadJob reads, parses and expands the job file named on the command
// line.
func loadJob(command *cli.Command) (v1.BundleJob, error) {
	jobFilename := command.StringArg("job")
	if jobFilename == "" {
		return v1.BundleJob{}, fmt.Errorf("no job file provided")
	}

	jobFile, err := os.ReadFile(jobFilename)
	if err != nil {
		return v1.BundleJob{}, fmt.Errorf("failed to read job file: %w", err)
	}

	job, err := runner.ParseBundleJob(jobFile)
	if err != nil {
		return v1.BundleJob{}, fmt.Errorf("failed to parse job: %w", err)
	}

	variables, err := runner.BuildVariables(job, command.StringSlice("allowed-env"))
	if err != nil {
		return v1.BundleJob{}, fmt.Errorf("failed to build variables: %w", err)
	}
	for _, kv := range command.StringSlice("var") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return v1.BundleJob{}, fmt.Errorf("invalid --var %q, expected NAME=value", kv)
		}
		variables[name] = value
	}

	if err := runner.ExpandJob(&job, variables); err != nil {
		return v1.BundleJob{}, fmt.Errorf("failed to expand job: %w", err)
	}

	return job, nil
}
