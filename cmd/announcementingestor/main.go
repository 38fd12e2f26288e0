package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"AnnouncementIngestor/internal/app"
	"AnnouncementIngestor/internal/config"
	"AnnouncementIngestor/internal/logging"
	"AnnouncementIngestor/internal/usecase"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "announcementingestor",
		Usage: "Ingest regulatory announcement attachments into a searchable page store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{"INGESTOR_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the trigger, status and health API",
				Action: serveCommand,
			},
			{
				Name:   "run",
				Usage:  "Perform one ingestion run and exit",
				Action: runCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Log page records instead of storing them",
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) config.Config {
	if path := c.String("config"); path != "" {
		_ = os.Setenv("INGESTOR_CONFIG", path)
	}
	cfg := config.Load()
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg
}

func serveCommand(c *cli.Context) error {
	cfg := loadConfig(c)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	if err := application.Serve(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}

func runCommand(c *cli.Context) error {
	cfg := loadConfig(c)
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger, app.Options{DryRun: c.Bool("dry-run")})
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}
	defer application.Close()

	status, err := application.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "status=%s new_documents=%d processed=%d failed=%d\n%s\n",
		status.Status, status.NewDocuments, status.Processed, status.Failed, status.Message)
	if status.Status == usecase.StatusError {
		return cli.Exit(status.Message, 1)
	}
	return nil
}
