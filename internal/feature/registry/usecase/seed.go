package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// Seed はストアが空の場合に限り、指定されたシンボルを登録します。
// シンボルごとの失敗はログに出力してスキップし、残りの登録を続けます。
// 戻り値は登録できた件数です。
func (u *RegistryUsecase) Seed(ctx context.Context, symbols []string) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}
	count, err := u.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count coins: %w", err)
	}
	if count > 0 {
		slog.Info("database already contains coins; skipping seed", "count", count)
		return 0, nil
	}

	slog.Info("database is empty; seeding initial data", "symbols", symbols)
	seeded := 0
	for _, s := range symbols {
		sym := canonicalSymbol(s)
		note := fmt.Sprintf("Initial seed for %s", sym)
		if _, err := u.Create(ctx, sym, &note); err != nil {
			slog.Error("failed to seed cryptocurrency", "symbol", sym, "error", err)
			continue
		}
		seeded++
	}
	slog.Info("initial data seeding complete", "seeded", seeded)
	return seeded, nil
}
