// Package usecase はregistryフィーチャー（追跡対象コインの登録・更新・価格リフレッシュ）のビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"crypto_backend/internal/feature/registry/domain"
	"crypto_backend/internal/feature/registry/domain/entity"
)

const (
	// MaxSymbolLength はシンボルの最大文字数（rune数）です。
	MaxSymbolLength = 20
	// DefaultListLimit は一覧取得のデフォルト件数です。
	DefaultListLimit = 100
	// MaxListLimit は一覧取得の最大件数です。
	MaxListLimit = 200
	// DefaultCurrency は価格取得に使用するデフォルト通貨です。
	DefaultCurrency = "usd"
)

// CoinRepository は追跡対象コインの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type CoinRepository interface {
	// Create は新しいコインを永続化し、採番されたIDを coin.ID に設定します。
	// シンボルまたは外部IDが重複する場合、domain.ErrDuplicateSymbol / domain.ErrDuplicateExternalID を返します。
	Create(ctx context.Context, coin *entity.TrackedCoin) error

	// FindBySymbol は正規化済み（大文字）シンボルでコインを取得します。
	// 存在しない場合、domain.ErrNotFound を返します。
	FindBySymbol(ctx context.Context, symbol string) (*entity.TrackedCoin, error)

	// FindByExternalID は外部IDでコインを取得します。
	// 存在しない場合、domain.ErrNotFound を返します。
	FindByExternalID(ctx context.Context, externalID string) (*entity.TrackedCoin, error)

	// List はID順にコインを返します。
	List(ctx context.Context, offset, limit int) ([]entity.TrackedCoin, error)

	// Count は登録済みコインの件数を返します。
	Count(ctx context.Context) (int64, error)

	// UpdateNote はメモを置き換え、last_updated を at に更新します。nil はNULLを意味します。
	// 存在しない場合、domain.ErrNotFound を返します。
	UpdateNote(ctx context.Context, symbol string, note *string, at time.Time) (*entity.TrackedCoin, error)

	// Delete はコインを削除し、削除前の状態を返します。
	// 存在しない場合、domain.ErrNotFound を返します。
	Delete(ctx context.Context, symbol string) (*entity.TrackedCoin, error)

	// ListExternalIDs はNULLでない外部IDをすべて返します。
	ListExternalIDs(ctx context.Context) ([]string, error)

	// MergeMetadata は外部IDごとのパッチを既存メタデータにマージし、last_updated を at に更新します。
	// すべての更新は1つのトランザクションでコミットされ、更新した行数を返します。
	MergeMetadata(ctx context.Context, patches map[string]entity.Metadata, at time.Time) (int, error)
}

// RegistryUsecase provides the registry operations: create, read, list, update, delete and price refresh.
type RegistryUsecase struct {
	repo     CoinRepository
	market   MarketData
	currency string
	now      func() time.Time
}

// NewRegistryUsecase creates a RegistryUsecase. currency is used for the initial price fetched at creation
// and as the default for RefreshAll; empty means DefaultCurrency.
func NewRegistryUsecase(repo CoinRepository, market MarketData, currency string) *RegistryUsecase {
	return &RegistryUsecase{
		repo:     repo,
		market:   market,
		currency: normalizeCurrency(currency, DefaultCurrency),
		now:      time.Now,
	}
}

// Currency returns the default currency of the usecase.
func (u *RegistryUsecase) Currency() string {
	return u.currency
}

// NormalizeSymbol はシンボルを正規形（前後の空白除去・大文字）に変換し、検証します。
func NormalizeSymbol(symbol string) (string, error) {
	s := canonicalSymbol(symbol)
	if s == "" {
		return "", fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(s) > MaxSymbolLength {
		return "", fmt.Errorf("%w: symbol exceeds maximum length of %d characters", domain.ErrValidation, MaxSymbolLength)
	}
	return s, nil
}

func canonicalSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func normalizeCurrency(currency, fallback string) string {
	c := strings.ToLower(strings.TrimSpace(currency))
	if c == "" {
		return fallback
	}
	return c
}

// Create は外部APIでシンボルを検証し、初期メタデータ（価格・画像）を付けてコインを登録します。
// 手順1〜4（検証・シンボル重複・外部検索・外部ID重複）のいずれかで失敗した場合、行は作成されません。
// 価格と画像の取得はベストエフォートで、失敗しても該当キーを省略するだけです。
func (u *RegistryUsecase) Create(ctx context.Context, symbol string, note *string) (*entity.TrackedCoin, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if _, err := u.repo.FindBySymbol(ctx, sym); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSymbol, sym)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find by symbol %q: %w", sym, err)
	}

	search := u.market.Search(ctx, sym)
	// 検索の失敗は「該当なし」と同じ扱い
	if search.Outcome != OutcomeFound {
		if search.Outcome == OutcomeFailed {
			slog.Warn("symbol search failed", "symbol", sym, "error", search.Err)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSymbol, sym)
	}
	hit := search.Value

	if existing, err := u.repo.FindByExternalID(ctx, hit.ExternalID); err == nil {
		return nil, fmt.Errorf("%w: %s (symbol: %s)", domain.ErrDuplicateExternalID, hit.ExternalID, existing.Symbol)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find by external id %q: %w", hit.ExternalID, err)
	}

	externalID := hit.ExternalID
	coin := &entity.TrackedCoin{
		Symbol:      sym,
		Name:        hit.Name,
		ExternalID:  &externalID,
		Metadata:    u.initialMetadata(ctx, externalID),
		Note:        note,
		LastUpdated: u.now(),
	}
	if err := u.repo.Create(ctx, coin); err != nil {
		return nil, err
	}
	slog.Info("cryptocurrency created", "symbol", coin.Symbol, "external_id", externalID)
	return coin, nil
}

// initialMetadata は登録時の価格と画像URLを取得します。取得できなかったキーは含めません。
func (u *RegistryUsecase) initialMetadata(ctx context.Context, externalID string) entity.Metadata {
	md := entity.Metadata{}

	prices := u.market.Prices(ctx, []string{externalID}, u.currency)
	if prices.Outcome == OutcomeFound {
		if p, ok := prices.Value[externalID][u.currency]; ok {
			md[entity.PriceKey(u.currency)] = p
		}
	} else {
		slog.Warn("initial price unavailable", "external_id", externalID, "outcome", prices.Outcome, "error", prices.Err)
	}

	details := u.market.Details(ctx, externalID)
	if details.Outcome == OutcomeFound && details.Value.ImageURL != "" {
		md[entity.MetadataImage] = details.Value.ImageURL
	} else if details.Outcome == OutcomeFailed {
		slog.Warn("coin details unavailable", "external_id", externalID, "error", details.Err)
	}
	return md
}

// Get はシンボル（大文字小文字を区別しない）でコインを取得します。
func (u *RegistryUsecase) Get(ctx context.Context, symbol string) (*entity.TrackedCoin, error) {
	return u.repo.FindBySymbol(ctx, canonicalSymbol(symbol))
}

// List はID順にコインのページを返します。skip は0以上、limit は1〜MaxListLimit です。
func (u *RegistryUsecase) List(ctx context.Context, skip, limit int) ([]entity.TrackedCoin, error) {
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must be >= 0", domain.ErrValidation)
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, MaxListLimit)
	}
	return u.repo.List(ctx, skip, limit)
}

// Update はメモのみを更新します。upd が未設定の場合は書き込みを行わず、現在の行をそのまま返します。
func (u *RegistryUsecase) Update(ctx context.Context, symbol string, upd NoteUpdate) (*entity.TrackedCoin, error) {
	sym := canonicalSymbol(symbol)
	if !upd.IsSet() {
		return u.repo.FindBySymbol(ctx, sym)
	}
	return u.repo.UpdateNote(ctx, sym, upd.Value(), u.now())
}

// Delete はコインを削除し、削除前の状態を返します。
func (u *RegistryUsecase) Delete(ctx context.Context, symbol string) (*entity.TrackedCoin, error) {
	coin, err := u.repo.Delete(ctx, canonicalSymbol(symbol))
	if err != nil {
		return nil, err
	}
	slog.Info("cryptocurrency deleted", "symbol", coin.Symbol)
	return coin, nil
}
