package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrehanahmed/IMAP-Migrate/backup"
	"github.com/mrehanahmed/IMAP-Migrate/config"
	"github.com/mrehanahmed/IMAP-Migrate/ledger"
	"github.com/mrehanahmed/IMAP-Migrate/progress"
	"github.com/mrehanahmed/IMAP-Migrate/runner"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "imap-migrate",
		Short: "Migrate messages between two IMAP accounts, resumable after interruption",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}

			logger := setupLogger(cfg.LogLevel)
			slog.SetDefault(logger)
			logger.Info("starting imap-migrate",
				"source", cfg.Source.Host, "destination", cfg.Destination.Host,
				"ledger", cfg.Database.Path, "dryRun", cfg.DryRun)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(lookupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	led, err := ledger.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("ledger.Open: %w", err)
	}
	defer func() {
		_ = led.Close()
	}()

	r := runner.New(cfg, led, logger)
	r.SetProgress(progress.New(cfg.LogLevel))

	if cfg.MappingFile != "" {
		mapping, err := config.LoadMapping(cfg.MappingFile)
		if err != nil {
			return err
		}
		logger.Info("mailbox mapping loaded", "file", cfg.MappingFile, "entries", len(mapping))
		r.SetMapping(mapping)
	}

	if cfg.ExcludeFile != "" {
		excludes, err := config.LoadExcludes(cfg.ExcludeFile)
		if err != nil {
			return err
		}
		logger.Info("exclude list loaded", "file", cfg.ExcludeFile, "entries", len(excludes))
		r.SetExcludes(excludes)
	}

	if cfg.Options.BackupDir != "" && !cfg.DryRun {
		archive, err := backup.Open(cfg.Options.BackupDir, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Warn("closing backup archive", "err", err)
			}
		}()
		r.SetBackup(archive)
	}

	return r.Run()
}

func setupLogger(logLevel string) *slog.Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch logLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
