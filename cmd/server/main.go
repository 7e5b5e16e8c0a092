// Command server runs the NeuroTune API.
//
//	server serve   [--env-file .env] [--port 8080]
//	server migrate [--env-file .env]
//
// Configuration comes from the environment, optionally seeded from a .env
// file; see internal/config.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/ohmbajaj/Neurotune-Backend/internal/config"
	sqliteRepo "github.com/ohmbajaj/Neurotune-Backend/internal/repository/sqlite"
	"github.com/ohmbajaj/Neurotune-Backend/internal/server"
)

var version = "dev"

func main() {
	envFlag := &cli.StringFlag{
		Name:    "env-file",
		Aliases: []string{"e"},
		Usage:   "Path to a .env file (ignored when missing)",
		Value:   ".env",
	}

	app := &cli.Command{
		Name:    "neurotune",
		Usage:   "AI-assisted Spotify playlist generator API",
		Version: version,
		Flags:   []cli.Flag{envFlag},
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API",
				Flags: []cli.Flag{
					envFlag,
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Listen port, overrides PORT",
					},
				},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Create or update the database schema and exit",
				Flags:  []cli.Flag{envFlag},
				Action: migrate,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "neurotune:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := load(cmd)
	if err != nil {
		return err
	}
	if port := cmd.String("port"); port != "" {
		cfg.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ensureDir(cfg.DBPath); err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Start(ctx)
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := load(cmd)
	if err != nil {
		return err
	}
	if err := ensureDir(cfg.DBPath); err != nil {
		return err
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	logger.Info("database schema is up to date", slog.String("database", cfg.DBPath))
	return nil
}

func load(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// ensureDir creates the directory holding a file-backed database.
func ensureDir(dbPath string) error {
	if dbPath == ":memory:" {
		return nil
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}
