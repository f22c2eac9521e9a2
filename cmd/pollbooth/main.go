package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pollbooth/internal/bot"
	"pollbooth/internal/config"
	"pollbooth/internal/httpapi"
	"pollbooth/internal/repository"
	"pollbooth/internal/service"
)

const reconcileJobTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "event", "config_failed", "module", "main", "error", err.Error())
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pollbooth stopped with error", "event", "shutdown_failed", "module", "main", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("shutdown complete", "event", "shutdown", "module", "main")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repository.Close(db); err != nil {
			logger.Warn("close db", "event", "db_close_failed", "module", "main", "error", err.Error())
		}
	}()
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	pollRepo := repository.NewPollRepository(db)
	voteRepo := repository.NewVoteRepository(db)

	pollSvc := service.NewPollService(pollRepo, voteRepo, logger)
	ledger := service.NewVoteLedger(pollRepo, voteRepo, cfg.VoteTimeout, logger)
	resultsSvc := service.NewResultsService(pollRepo, voteRepo)
	reconcileSvc := service.NewReconcileService(voteRepo, cfg.ReconcileRepair, logger)

	scheduler := service.NewSchedulerService(time.Local, logger)
	reconcile := func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), reconcileJobTimeout)
		defer cancel()
		if _, err := reconcileSvc.Reconcile(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reconcile counters", "event", "reconcile_failed", "module", "main", "error", err.Error())
		}
	}
	switch {
	case cfg.ReconcileAt != "":
		if _, err := scheduler.ScheduleDaily(cfg.ReconcileAt, reconcile); err != nil {
			return err
		}
	case cfg.ReconcileInterval > 0:
		if _, err := scheduler.ScheduleInterval(cfg.ReconcileInterval, reconcile); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := httpapi.New(cfg.HTTPAddr, httpapi.Deps{
		Users:      userRepo,
		Polls:      pollSvc,
		Ledger:     ledger,
		Results:    resultsSvc,
		IsAdmin:    cfg.IsAdmin,
		Ping:       sqlDB.PingContext,
		UserHeader: cfg.UserHeader,
		Logger:     logger,
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	if cfg.TelegramToken != "" {
		telegramBot, err := bot.New(cfg.TelegramToken, userRepo, pollSvc, ledger, resultsSvc, cfg.IsAdmin, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- err
			}
		}()
	}

	logger.Info("pollbooth started", "event", "startup", "module", "main", "telegram", cfg.TelegramToken != "")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "event", "http_shutdown_failed", "module", "main", "error", err.Error())
	}
	return runErr
}
