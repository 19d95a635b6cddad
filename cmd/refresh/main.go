// Command refresh は登録済みコインの価格を1回だけ更新して終了します。
// cronやCloud Schedulerからの定期実行を想定しています。
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"crypto_backend/internal/app/di"
	"crypto_backend/internal/feature/registry/adapters"
	"crypto_backend/internal/platform/config"
	infradb "crypto_backend/internal/platform/db"
	"crypto_backend/internal/platform/logging"
)

func main() {
	var currency string
	v, _, err := config.Load("refresh", config.Options{
		Args: os.Args[1:],
		Flags: func(fs *pflag.FlagSet) {
			fs.StringVar(&currency, "currency", "", "quote currency (defaults to REFRESH_CURRENCY)")
		},
	})
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logging.Setup(logging.LoadConfig(v), os.Stderr)

	db, err := infradb.Open(infradb.LoadConfig(v), adapters.AutoMigrate)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = infradb.Close(db) }()

	// キャッシュを経由しないため、APIサーバー側のキャッシュはTTL経過で更新される
	uc := di.NewRegistryUsecase(v, db, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := uc.RefreshAll(ctx, currency)
	if err != nil {
		slog.Error("refresh failed", "error", err)
		os.Exit(1)
	}
	slog.Info("refresh ok", "updated", n)
}
