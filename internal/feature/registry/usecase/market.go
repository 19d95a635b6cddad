package usecase

import (
	"context"

	"crypto_backend/internal/feature/registry/domain/entity"
)

// Outcome は外部APIルックアップの結果種別です。
type Outcome int

const (
	// OutcomeFound はデータが取得できたことを示します。
	OutcomeFound Outcome = iota
	// OutcomeEmpty は呼び出しは成功したが該当データが無かったことを示します。
	OutcomeEmpty
	// OutcomeFailed は通信エラー・HTTPエラー・不正なレスポンスなどで取得に失敗したことを示します。
	OutcomeFailed
)

// String returns a short label used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Lookup は外部APIの呼び出し結果を表します。
// トランスポートエラーは例外的な戻り値ではなく OutcomeFailed と Err で表現されます。
type Lookup[T any] struct {
	Outcome Outcome
	Value   T
	Err     error
}

// Found はデータ付きの成功結果を生成します。
func Found[T any](v T) Lookup[T] {
	return Lookup[T]{Outcome: OutcomeFound, Value: v}
}

// Empty はデータ無しの成功結果を生成します。
func Empty[T any]() Lookup[T] {
	return Lookup[T]{Outcome: OutcomeEmpty}
}

// Failed は失敗理由付きの結果を生成します。
func Failed[T any](err error) Lookup[T] {
	return Lookup[T]{Outcome: OutcomeFailed, Err: err}
}

// MarketData は暗号資産の市場データを提供する外部APIを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MarketData interface {
	// Search はシンボルに一致するコインを検索します。
	Search(ctx context.Context, symbol string) Lookup[entity.SearchHit]
	// Details は外部IDでコインの詳細（画像URLなど）を取得します。
	Details(ctx context.Context, externalID string) Lookup[entity.CoinDetails]
	// Prices は複数の外部IDの価格を1回のリクエストでまとめて取得します。
	Prices(ctx context.Context, externalIDs []string, currency string) Lookup[entity.PriceTable]
}
