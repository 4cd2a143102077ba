package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/whizrock/ledger/config"
	"github.com/whizrock/ledger/data"
	"github.com/whizrock/ledger/data/cache"
	"github.com/whizrock/ledger/data/repository/postgres"
	"github.com/whizrock/ledger/data/session"
	"github.com/whizrock/ledger/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/whizrock/ledger/internal/externalApi/moexApi"
	"github.com/whizrock/ledger/internal/reportGenerator/xslsxGenerator"
	"github.com/whizrock/ledger/internal/scheduler"
	"github.com/whizrock/ledger/internal/service/ledgerService"
	"github.com/whizrock/ledger/internal/tgbot"
	"github.com/whizrock/ledger/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	moexApiClient := moexApi.New(cfg)

	reportGenerator := xslsxGenerator.New()

	// without credentials reports are sent as files
	var cloudStorage ledgerService.CloudStorage
	if cfg.GoogleDrive.CredentialsFile != "" {
		driveApi, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("failed to init google drive", slog.String("err", err.Error()))
			panic(err)
		}
		cloudStorage = driveApi
	}

	ledgerSrv := ledgerService.New(cfg, pgRepo, redisCache, moexApiClient, reportGenerator, cloudStorage)

	sched := scheduler.New()
	if cfg.Jobs.RefreshPricesInterval > 0 {
		sched.NewIntervalJob("refresh held prices", func(ctx context.Context) error {
			_, err := ledgerSrv.RefreshHeldPrices(ctx)
			return err
		}, cfg.Jobs.RefreshPricesInterval, true)
	}
	if cloudStorage != nil {
		sched.NewCrontabJob("cleanup exported reports", ledgerSrv.CleanupExports, cfg.Jobs.CleanupExportsCrontab, false)
	}
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(cfg, ledgerSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
