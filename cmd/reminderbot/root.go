package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/reminderbot/internal/config"
	"github.com/LeventeLantos/reminderbot/internal/repo"
	"github.com/LeventeLantos/reminderbot/internal/service"
	"github.com/LeventeLantos/reminderbot/internal/timeparse"
)

var rootCmd = &cobra.Command{
	Use:   "reminderbot",
	Short: "Two-stage event reminders delivered to Discord",
	Long: `reminderbot stores user events and posts a reminder one day and thirty
minutes before each of them. Run "serve" for the scheduler and HTTP API, or
"add" and "list" to manage reminders from the terminal.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStore picks Postgres when POSTGRES_URL is set and the SQLite file
// otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (repo.ReminderRepository, error) {
	if cfg.PostgresURL != "" {
		return repo.NewPostgresReminderRepo(ctx, cfg.PostgresURL)
	}
	return repo.NewSQLiteReminderRepo(ctx, cfg.Path)
}

// loadCommon reads the configuration, installs the logger and opens the store.
func loadCommon(ctx context.Context) (*config.Config, repo.ReminderRepository, error) {
	cfg, err := config.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stderr))

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, store, nil
}

func newReminders(cfg *config.Config, store repo.ReminderRepository) *service.Reminders {
	return service.NewReminders(store, timeparse.NewResolver(timeparse.NewFuzzyParser(cfg.Reminders.Location)))
}
