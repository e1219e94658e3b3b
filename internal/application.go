package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rocketscienceinc/xo-arena-backend/internal/config"
	"github.com/rocketscienceinc/xo-arena-backend/internal/metrics"
	"github.com/rocketscienceinc/xo-arena-backend/internal/repository"
	"github.com/rocketscienceinc/xo-arena-backend/internal/repository/storage"
	"github.com/rocketscienceinc/xo-arena-backend/internal/service"
	"github.com/rocketscienceinc/xo-arena-backend/transport/rest"
	"github.com/rocketscienceinc/xo-arena-backend/transport/telegram"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp wires storage, repositories, game services and both transports, then
// blocks until a signal or a fatal transport error.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	profileRepo := repository.NewProfileRepository(redisStorage.Connection)
	resultRepo := repository.NewResultRepository(sqliteStorage.Connection)

	registry := prometheus.NewRegistry()
	arenaMetrics := metrics.New(registry)

	bot, err := telegram.NewBot(logger, conf.Telegram, profileRepo)
	if err != nil {
		return fmt.Errorf("could not create telegram bot: %w", err)
	}

	messenger := telegram.NewMessenger(bot.API())

	settlementService := service.NewSettlementService(logger, messenger, profileRepo, resultRepo, conf.Game)
	matchService := service.NewMatchService(logger, messenger, settlementService, arenaMetrics, conf.Game)
	queueService := service.NewQueueService(logger, messenger, profileRepo, matchService, arenaMetrics, conf.Game)

	bot.Attach(queueService, matchService)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, registry); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Telegram bot
	botDone := make(chan struct{})
	go func() {
		bot.Start()
		close(botDone)
	}()

	select {
	case err = <-httpErrCh:
		bot.Stop()
		return fmt.Errorf("HTTP server error: %w", err)
	case <-botDone:
		return errors.New("telegram update loop stopped unexpectedly")
	case <-ctx.Done():
		log.Info("application context canceled, shutting down")
		bot.Stop()
		<-botDone
		return nil
	}
}
