package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vainnor/pomobot/api"
	"github.com/vainnor/pomobot/binding"
	"github.com/vainnor/pomobot/collector"
	"github.com/vainnor/pomobot/config"
	"github.com/vainnor/pomobot/db"
	"github.com/vainnor/pomobot/discord"
	"github.com/vainnor/pomobot/logfields"
	"github.com/vainnor/pomobot/metrics"
	"github.com/vainnor/pomobot/session"
	"github.com/vainnor/pomobot/tracker"
	"github.com/vainnor/pomobot/types"
)

var CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging"`

	Run struct{} `cmd:"" help:"Connect to Discord and serve the operator API"`

	Leaderboard struct {
		Limit int `short:"n" help:"Number of entries to print" default:"10"`
	} `cmd:"" help:"Print the stored presence leaderboard"`

	Reset struct {
		Yes bool `help:"Confirm deletion of every presence total"`
	} `cmd:"" help:"Delete all stored presence totals"`
}

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("pomobot"),
		kong.Description("Pomodoro sessions and voice presence tracking for Discord"))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logLevel := cfg.Level()
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch ctx.Command() {
	case "run":
		err = runBot(sigCtx, cfg, logger)
	case "leaderboard":
		err = runLeaderboard(sigCtx, cfg, CLI.Leaderboard.Limit)
	case "reset":
		err = runReset(sigCtx, cfg, CLI.Reset.Yes)
	}
	if err != nil {
		slog.Error("Command failed", logfields.Command(ctx.Command()), logfields.Error(err))
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*db.Store, error) {
	store, err := db.Open(ctx, cfg.DBDriver, cfg.DSN(), db.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func runBot(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if cfg.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	bot, err := discord.New(cfg.BotToken,
		discord.WithGuild(cfg.GuildID),
		discord.WithModRole(cfg.ModRole),
		discord.WithLogger(logger))
	if err != nil {
		return err
	}

	registry := binding.NewRegistry(store)
	directory := bot.Directory()

	sessions := session.NewController(registry, directory, bot.Notifier(),
		session.WithLogger(logger),
		session.WithMetrics(recorder),
		session.WithRetryDelay(cfg.RetryDelay))

	accrual, err := collector.NewCollector(registry, directory, store,
		collector.WithInterval(cfg.AccrualInterval),
		collector.WithLogger(logger),
		collector.WithMetrics(recorder))
	if err != nil {
		return err
	}

	svc := tracker.New(registry, sessions, store, logger)

	if err := bot.Open(ctx, svc); err != nil {
		return err
	}
	defer bot.Close()

	if err := accrual.Start(ctx); err != nil {
		return err
	}

	router := api.NewRouter(svc, accrual, api.Options{
		MasterKey: cfg.MasterKey,
		Metrics:   metrics.HTTPHandler(reg),
		Logger:    logger,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("API server failed", logfields.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := accrual.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop collector: %w", err))
	}
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop session: %w", err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop api server: %w", err))
	}
	return errors.Join(errs...)
}

func runLeaderboard(ctx context.Context, cfg config.Config, limit int) error {
	store, err := openStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	totals, err := store.Top(ctx, limit)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Println("No data available to display the leaderboard.")
		return nil
	}
	printLeaderboard(os.Stdout, totals)
	return nil
}

func printLeaderboard(w io.Writer, totals []types.PresenceTotal) {
	for i, t := range totals {
		fmt.Fprintf(w, "%d. %s - %.2f minutes\n", i+1, t.ParticipantID, t.Minutes())
	}
}

func runReset(ctx context.Context, cfg config.Config, confirmed bool) error {
	if !confirmed {
		return errors.New("refusing to delete presence totals without --yes")
	}
	store, err := openStore(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteAll(ctx); err != nil {
		return err
	}
	slog.Info("Presence totals deleted")
	return nil
}
