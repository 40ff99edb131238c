package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/api"
	"github.com/Ianodad/Vector11/config"
	"github.com/Ianodad/Vector11/crawler"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "vector11",
		Usage: "football knowledge ingestion and chat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "sources",
				Aliases: []string{"s"},
				Usage:   "YAML file listing sources and refresh feeds (overrides SOURCES_FILE)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Crawl every configured source into the store",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-urls",
						Usage: "Stop fetching pages after this many (0 keeps MAX_URLS)",
					},
					&cli.BoolFlag{
						Name:  "allow-recreate",
						Usage: "Drop and recreate the collection when the vector dimension changed",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Write into an in-memory store instead of the configured backend",
					},
				},
			},
			{
				Name:   "refresh",
				Usage:  "Ingest new articles from the refresh feeds, skipping known URLs",
				Action: refreshCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the chat API and the scheduled refresh endpoint",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (0 keeps APP_PORT)",
					},
				},
			},
		},
	}
}

// setup loads configuration and builds the logger shared by every command.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if path := c.String("sources"); path != "" {
		cfg.SourcesFile = path
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func ingestCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if n := c.Int("max-urls"); n > 0 {
		cfg.MaxURLs = n
	}
	if c.Bool("allow-recreate") {
		cfg.AllowRecreate = true
	}
	if c.Bool("dry-run") {
		cfg.StoreBackend = config.BackendMemory
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	svc, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	summary, err := svc.crawler.Run(ctx, svc.sources.Sources)
	logSummary(logger, "ingest finished", summary)
	return err
}

func refreshCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	svc, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	summary, err := svc.crawler.Refresh(ctx, svc.sources.Refresh)
	logSummary(logger, "refresh finished", summary)
	return err
}

func serveCommand(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET is required to serve")
	}
	if p := c.Int("port"); p > 0 {
		cfg.AppPort = p
	}

	ctx, cancel := signalContext(c.Context)
	defer cancel()

	svc, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	assistant, err := svc.assistant()
	if err != nil {
		return err
	}

	refresh := api.RefreshFunc(func(ctx context.Context) (crawler.Summary, error) {
		summary, err := svc.crawler.Refresh(ctx, svc.sources.Refresh)
		logSummary(logger, "refresh finished", summary)
		return summary, err
	})

	return api.NewServer(cfg.AppPort, cfg.CronSecret, assistant, refresh, logger).Start(ctx)
}

func logSummary(logger *zap.Logger, msg string, s crawler.Summary) {
	logger.Info(msg,
		zap.String("run_id", s.RunID),
		zap.Int("done", s.Done),
		zap.Int("skipped", s.Skipped),
		zap.Int("failed", s.Failed),
		zap.Int("expanded", s.Expanded),
		zap.Int("not_processed", s.NotProcessed),
		zap.Int("parents_inserted", s.ParentsInserted),
		zap.Int("children_inserted", s.ChildrenInserted),
		zap.Int("duplicates", s.Duplicates),
		zap.Int64("tokens", s.TokensUsed),
		zap.Duration("elapsed", s.Elapsed),
	)
}
