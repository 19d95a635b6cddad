// Package adapters はregistryフィーチャーのリポジトリ実装（GORM）を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"crypto_backend/internal/feature/registry/domain"
	"crypto_backend/internal/feature/registry/domain/entity"
	"crypto_backend/internal/feature/registry/usecase"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// coinGorm はCoinRepositoryインターフェースのGORM実装です。
// Postgres・MySQL・SQLiteのいずれのダイアレクトでも動作します。
type coinGorm struct {
	db *gorm.DB
}

var _ usecase.CoinRepository = (*coinGorm)(nil)

// NewCoinRepository は指定されたDB接続でcoinGormリポジトリの新しいインスタンスを生成します。
func NewCoinRepository(db *gorm.DB) *coinGorm {
	return &coinGorm{db: db}
}

// AutoMigrate は tracked_coins テーブルを作成・更新します。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CoinModel{})
}

func (r *coinGorm) Create(ctx context.Context, coin *entity.TrackedCoin) error {
	m := toModel(coin)
	m.ID = 0
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return r.classifyDuplicate(ctx, coin)
		}
		return fmt.Errorf("create coin %q: %w", coin.Symbol, err)
	}
	coin.ID = m.ID
	return nil
}

// classifyDuplicate は一意制約違反がシンボルと外部IDのどちらによるものかを判定します。
func (r *coinGorm) classifyDuplicate(ctx context.Context, coin *entity.TrackedCoin) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&CoinModel{}).Where("symbol = ?", coin.Symbol).Count(&n).Error; err == nil && n > 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateSymbol, coin.Symbol)
	}
	if coin.ExternalID != nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateExternalID, *coin.ExternalID)
	}
	return fmt.Errorf("%w: %s", domain.ErrDuplicateSymbol, coin.Symbol)
}

func (r *coinGorm) FindBySymbol(ctx context.Context, symbol string) (*entity.TrackedCoin, error) {
	return r.findOne(r.db.WithContext(ctx), "symbol = ?", symbol)
}

func (r *coinGorm) FindByExternalID(ctx context.Context, externalID string) (*entity.TrackedCoin, error) {
	return r.findOne(r.db.WithContext(ctx), "external_id = ?", externalID)
}

func (r *coinGorm) findOne(tx *gorm.DB, query string, arg any) (*entity.TrackedCoin, error) {
	var m CoinModel
	if err := tx.Where(query, arg).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find coin (%s %v): %w", query, arg, err)
	}
	e := toEntity(m)
	return &e, nil
}

// List はID順に offset 件スキップして最大 limit 件を返します。
func (r *coinGorm) List(ctx context.Context, offset, limit int) ([]entity.TrackedCoin, error) {
	var ms []CoinModel
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	out := make([]entity.TrackedCoin, 0, len(ms))
	for _, m := range ms {
		out = append(out, toEntity(m))
	}
	return out, nil
}

func (r *coinGorm) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&CoinModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count coins: %w", err)
	}
	return n, nil
}

// UpdateNote はメモと last_updated のみを書き換えます。note が nil の場合はNULLを書き込みます。
func (r *coinGorm) UpdateNote(ctx context.Context, symbol string, note *string, at time.Time) (*entity.TrackedCoin, error) {
	var out entity.TrackedCoin
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m CoinModel
		if err := tx.Where("symbol = ?", symbol).Take(&m).Error; err != nil {
			return err
		}
		m.Note = note
		m.LastUpdated = at
		if err := tx.Model(&m).Select("Note", "LastUpdated").Updates(&m).Error; err != nil {
			return err
		}
		out = toEntity(m)
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update note of %q: %w", symbol, err)
	}
	return &out, nil
}

// Delete は行を削除し、削除前の状態を返します。
func (r *coinGorm) Delete(ctx context.Context, symbol string) (*entity.TrackedCoin, error) {
	var out entity.TrackedCoin
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m CoinModel
		if err := tx.Where("symbol = ?", symbol).Take(&m).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CoinModel{}, m.ID).Error; err != nil {
			return err
		}
		out = toEntity(m)
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delete coin %q: %w", symbol, err)
	}
	return &out, nil
}

// ListExternalIDs はID順にNULLでない外部IDを返します。
func (r *coinGorm) ListExternalIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&CoinModel{}).
		Where("external_id IS NOT NULL").
		Order("id ASC").
		Pluck("external_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list external ids: %w", err)
	}
	return ids, nil
}

// MergeMetadata はパッチを既存メタデータにマージし、1つのトランザクションでコミットします。
// パッチに含まれない行は変更しません。
func (r *coinGorm) MergeMetadata(ctx context.Context, patches map[string]entity.Metadata, at time.Time) (int, error) {
	if len(patches) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(patches))
	for id := range patches {
		ids = append(ids, id)
	}

	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ms []CoinModel
		if err := tx.Where("external_id IN ?", ids).Order("id ASC").Find(&ms).Error; err != nil {
			return err
		}
		for i := range ms {
			m := &ms[i]
			m.Metadata = entity.Metadata(m.Metadata).Merge(patches[*m.ExternalID])
			m.LastUpdated = at
			if err := tx.Model(m).Select("Metadata", "LastUpdated").Updates(m).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("merge metadata: %w", err)
	}
	return updated, nil
}

// isDuplicateKey はドライバーごとの一意制約違反エラーを判定します。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	return false
}
