package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"crypto_backend/internal/app/di"
	"crypto_backend/internal/app/router"
	"crypto_backend/internal/feature/registry/adapters"
	registryhandler "crypto_backend/internal/feature/registry/transport/handler"
	registryusecase "crypto_backend/internal/feature/registry/usecase"
	"crypto_backend/internal/platform/config"
	infradb "crypto_backend/internal/platform/db"
	jwtmw "crypto_backend/internal/platform/jwt"
	"crypto_backend/internal/platform/logging"
	infraredis "crypto_backend/internal/platform/redis"
	"crypto_backend/internal/platform/scheduler"
)

// shutdownTimeout はグレースフルシャットダウンの最大待機時間です。
const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	v, _, err := config.Load("server", config.Options{Args: os.Args[1:]})
	if err != nil {
		return err
	}
	logging.Setup(logging.LoadConfig(v), os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.Open(infradb.LoadConfig(v), adapters.AutoMigrate)
	if err != nil {
		return err
	}
	defer func() {
		if err := infradb.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	// Redis
	rdb := openRedis(ctx, infraredis.LoadConfig(v))
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// Usecase
	registryUC := di.NewRegistryUsecase(v, db, rdb)

	// 初期データ投入（ストアが空の場合のみ）
	if _, err := registryUC.Seed(ctx, config.StringList(v, "SEED_SYMBOLS")); err != nil {
		slog.Error("failed to seed initial data", "error", err)
	}

	// 価格リフレッシュ
	task := registryusecase.NewRefreshTask(registryUC, v.GetString("REFRESH_CURRENCY"))
	go scheduler.New(task, v.GetDuration("REFRESH_INTERVAL"), scheduler.WithImmediateRun()).Start(ctx)

	// Handler / ルータ生成
	registryH := registryhandler.NewRegistryHandler(registryUC)
	jwtCfg := jwtmw.LoadConfig(v)
	engine := router.NewRouter(registryH, pinger(db), jwtCfg.Secret)

	srv := &http.Server{
		Addr:              v.GetString("HTTP_ADDR"),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRedis はRedisが設定されている場合に接続します。接続できない場合はキャッシュなしで動作します。
func openRedis(ctx context.Context, cfg infraredis.Config) *redisv9.Client {
	if !cfg.Enabled() {
		slog.Info("REDIS_HOST is not set; running without cache")
		return nil
	}
	rdb, err := infraredis.NewRedisClient(ctx, cfg)
	if err != nil {
		slog.Warn("Redis unavailable; running without cache", "error", err)
		return nil
	}
	return rdb
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return infradb.Ping(ctx, db)
	}
}
