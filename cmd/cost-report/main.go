package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/zgpcy/cost-report/internal/config"
	"github.com/zgpcy/cost-report/internal/logger"
	"github.com/zgpcy/cost-report/internal/provider"
	"github.com/zgpcy/cost-report/internal/report"
	"github.com/zgpcy/cost-report/internal/version"
)

var errProfileConflict = errors.New("--profile cannot be combined with --use-default-session")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(os.Stdout, os.Stderr)
	if err := app.RunContext(ctx, os.Args); err != nil {
		// Stage failures are already logged by the pipeline
		var stageErr *report.StageError
		if !errors.As(err, &stageErr) {
			logger.New(config.DefaultLogLevel).Error("cost-report failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

// newApp builds the CLI. Logs go to stderr; stdout only ever carries the
// dry-run message.
func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "cost-report",
		Usage:     "Send this month's cloud cost and server count to a Zulip chat",
		Version:   version.String(),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to configuration file",
				Value: defaultConfigPath(),
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"aws-profile"},
				Usage:   "Named credential profile used for the cloud session",
				Value:   provider.DefaultProfile,
			},
			&cli.BoolFlag{
				Name:    "use-default-session",
				Aliases: []string{"use-aws-default-session"},
				Usage:   "Use ambient credentials (environment, instance role) instead of a named profile",
			},
			&cli.BoolFlag{
				Name:    "dryrun",
				Aliases: []string{"dry-run"},
				Usage:   "Print the message to stdout instead of sending it",
			},
		},
		Action: func(c *cli.Context) error {
			creds, err := selectCredentials(c.String("profile"), c.IsSet("profile"), c.Bool("use-default-session"))
			if err != nil {
				return err
			}

			resolver := config.NewResolver(c.String("config"))
			pipeline := report.New(resolver, creds,
				report.WithDryRun(c.Bool("dryrun")),
				report.WithStdout(c.App.Writer),
				report.WithLogOutput(c.App.ErrWriter),
			)
			return pipeline.Run(c.Context)
		},
	}
}

// selectCredentials maps the credential flags to a Credentials variant
func selectCredentials(profile string, profileSet, useDefaultSession bool) (provider.Credentials, error) {
	if useDefaultSession {
		if profileSet {
			return provider.Credentials{}, errProfileConflict
		}
		return provider.Ambient(), nil
	}
	return provider.NamedProfile(profile), nil
}

// defaultConfigPath returns config.yaml next to the executable
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return config.DefaultFileName
	}
	return filepath.Join(filepath.Dir(exe), config.DefaultFileName)
}
