package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"crypto_backend/internal/feature/registry/domain/entity"
)

// RefreshAll は登録済みの全コインの価格を1回のバッチリクエストで取得し、メタデータにマージします。
// 外部APIが失敗した場合やデータが無い場合はエラーではなく0を返します（次回のティックで再試行されます）。
// 戻り値は実際に更新した行数です。レスポンスに含まれない行は変更しません。
func (u *RegistryUsecase) RefreshAll(ctx context.Context, currency string) (int, error) {
	currency = normalizeCurrency(currency, u.currency)

	ids, err := u.repo.ListExternalIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list external ids: %w", err)
	}
	ids = lo.Uniq(ids)
	if len(ids) == 0 {
		slog.Info("no tracked coins with external ids; skipping price refresh")
		return 0, nil
	}
	slog.Info("refreshing prices", "coins", len(ids), "currency", currency)

	res := u.market.Prices(ctx, ids, currency)
	switch res.Outcome {
	case OutcomeFound:
	case OutcomeEmpty:
		slog.Warn("received no price data from market data provider", "currency", currency)
		return 0, nil
	default:
		slog.Warn("price refresh failed", "currency", currency, "error", res.Err)
		return 0, nil
	}

	patches := pricePatches(ids, res.Value, currency)
	if len(patches) == 0 {
		slog.Info("no prices in the expected format; nothing to update", "currency", currency)
		return 0, nil
	}

	n, err := u.repo.MergeMetadata(ctx, patches, u.now())
	if err != nil {
		return 0, fmt.Errorf("merge metadata: %w", err)
	}
	slog.Info("price refresh completed", "updated", n, "currency", currency)
	return n, nil
}

// pricePatches は追跡中のIDかつ通貨フィールドを持つエントリだけをパッチに変換します。
func pricePatches(ids []string, table entity.PriceTable, currency string) map[string]entity.Metadata {
	tracked := lo.SliceToMap(ids, func(id string) (string, struct{}) { return id, struct{}{} })
	key := entity.PriceKey(currency)

	patches := make(map[string]entity.Metadata, len(table))
	for id, prices := range table {
		if _, ok := tracked[id]; !ok {
			continue
		}
		price, ok := prices[currency]
		if !ok {
			slog.Warn("price not found for currency", "external_id", id, "currency", currency)
			continue
		}
		patches[id] = entity.Metadata{key: price}
	}
	return patches
}

// RefreshTask は定期実行用に RefreshAll をラップしたタスクです。
type RefreshTask struct {
	uc       *RegistryUsecase
	currency string
}

// NewRefreshTask creates a task that refreshes prices in currency (empty means the usecase default).
func NewRefreshTask(uc *RegistryUsecase, currency string) *RefreshTask {
	return &RefreshTask{uc: uc, currency: currency}
}

// Name returns the task name used in logs.
func (t *RefreshTask) Name() string {
	return "price refresh"
}

// Run executes one refresh tick.
func (t *RefreshTask) Run(ctx context.Context) error {
	_, err := t.uc.RefreshAll(ctx, t.currency)
	return err
}
