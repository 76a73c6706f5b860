package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/attendry/attendry-api/internal/api"
	"github.com/attendry/attendry-api/internal/config"
	"github.com/attendry/attendry-api/internal/db"
	"github.com/attendry/attendry-api/internal/logger"
	"github.com/attendry/attendry-api/internal/pkg/scheduler"
	"github.com/attendry/attendry-api/internal/repository"
	"github.com/attendry/attendry-api/internal/repository/dao"
	"github.com/attendry/attendry-api/internal/service"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	var rdb *redis.Client
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		rdb, err = db.OpenRedisWithURL(redisURL)
		if err != nil {
			return fmt.Errorf("failed to initialize redis -> %w", err)
		}
	} else {
		rdb = db.OpenRedis(conf.Redis)
	}

	s := api.NewServer(conf, postgresDB, rdb)

	// The scheduler owns the sweep cadence; the service only exposes the
	// sweep itself.
	lifecycleSvc := service.NewLifecycleService(repository.NewEventRepository(dao.NewEventDAO(postgresDB)))
	sweepInterval := time.Duration(conf.Lifecycle.SweepIntervalSeconds) * time.Second
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	sweepTask := scheduler.NewTask("lifecycle-sweep", sweepInterval, func(ctx context.Context) {
		if _, err := lifecycleSvc.Sweep(ctx, time.Now()); err != nil {
			zap.L().Error("lifecycle sweep failed", zap.Error(err))
		}
	})
	if err = sweepTask.Start(); err != nil {
		return fmt.Errorf("failed to start sweep task -> %w", err)
	}

	addr := ":" + s.Config.API.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info(fmt.Sprintf("starting server at %v", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errCh:
		return fmt.Errorf("failed to start the server -> %w", err)
	case sig := <-quit:
		zap.L().Info("shutting down", zap.String("signal", sig.String()))
	}

	if err = sweepTask.Stop(); err != nil {
		zap.L().Warn("failed to stop sweep task", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down the server -> %w", err)
	}

	return nil
}
