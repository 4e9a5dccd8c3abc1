package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LeventeLantos/reminderbot/internal/api"
	"github.com/LeventeLantos/reminderbot/internal/cache"
	"github.com/LeventeLantos/reminderbot/internal/client"
	"github.com/LeventeLantos/reminderbot/internal/schedule"
	"github.com/LeventeLantos/reminderbot/internal/scheduler"
	"github.com/LeventeLantos/reminderbot/internal/service"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the reminder scheduler and the HTTP API",
		RunE:  runServe,
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, store, err := loadCommon(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := cfg.RequireDiscord(); err != nil {
		return err
	}

	policy := schedule.Policy{Margin: cfg.Scheduler.Margin, Retention: cfg.Scheduler.Retention}
	if err := policy.Validate(cfg.Scheduler.Interval); err != nil {
		return err
	}

	dispatcher := service.NewDispatcher(store, client.NewDiscordClient(cfg.Discord.APIURL, cfg.Discord.Token), policy).
		WithDeliveryTimeout(cfg.Scheduler.DeliveryTimeout).
		WithLocation(cfg.Reminders.Location)

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		dispatcher.WithDeliveryLog(cache.NewRedisCache(rdb, cfg.Redis.TTL))
	}

	reminders := newReminders(cfg, store)
	pending := service.NewPending(reminders, cfg.Reminders.PromptTimeout)

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Address, err)
	}

	// The first sweep waits until the API is accepting connections.
	ready := make(chan struct{})
	sched, err := scheduler.New(cfg.Scheduler.Interval, func(ctx context.Context) {
		res := dispatcher.Tick(ctx)
		expired := pending.Sweep(time.Now())
		slog.Debug("sweep finished",
			"sent", res.Sent,
			"failed", res.Failed,
			"skipped", res.Skipped,
			"purged", res.Purged,
			"errors", res.Errors,
			"expired_prompts", expired,
		)
	}, scheduler.WithReady(ready))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           api.Router(api.NewHandler(sched, reminders, pending, cfg.Reminders.Location)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("reminderbot starting",
		"addr", ln.Addr().String(),
		"interval", cfg.Scheduler.Interval,
		"margin", cfg.Scheduler.Margin,
		"retention", cfg.Scheduler.Retention,
		"postgres", cfg.Database.PostgresURL != "",
		"redis", cfg.Redis.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		close(ready)

		<-gctx.Done()
		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	slog.Info("reminderbot stopped")
	return err
}
